package allocation

import (
	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles allocation policy and manual-allocation handlers.
type Handlers struct {
	Service *Service
}

// GetAllocationMode GET /api/v1/allocation-mode?entity_type=&entity_id=
func (h *Handlers) GetAllocationMode(c *fiber.Ctx) error {
	entityID, err := uuid.Parse(c.Query("entity_id"))
	if err != nil {
		return response.Error(c, "Invalid entity ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	mode, err := h.Service.GetAllocationMode(c.Context(), domain.ModeEntityType(c.Query("entity_type")), entityID)
	if err != nil {
		return err
	}
	return response.Success(c, "Allocation mode fetched successfully", map[string]interface{}{
		"entity_type": c.Query("entity_type"),
		"entity_id":   entityID,
		"mode":        mode,
	}, nil)
}

type setModeRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Mode       string `json:"mode"`
}

// SetAllocationMode PUT /api/v1/allocation-mode
func (h *Handlers) SetAllocationMode(c *fiber.Ctx) error {
	var req setModeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	entityID, err := uuid.Parse(req.EntityID)
	if err != nil {
		return response.Error(c, "Invalid entity ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	setting, err := h.Service.SetAllocationMode(c.Context(), domain.ModeEntityType(req.EntityType), entityID, domain.AllocationMode(req.Mode))
	if err != nil {
		return err
	}
	return response.Success(c, "Allocation mode updated successfully", setting, nil)
}

// GetStrategy GET /api/v1/contractors/:contractor_id/allocation-strategy
func (h *Handlers) GetStrategy(c *fiber.Ctx) error {
	contractorID, err := uuid.Parse(c.Params("contractor_id"))
	if err != nil {
		return response.Error(c, "Invalid contractor ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	strategy, err := h.Service.GetStrategy(c.Context(), contractorID)
	if err != nil {
		return err
	}
	if strategy == nil {
		// No stored strategy: report the default.
		return response.Success(c, "Allocation strategy fetched successfully", map[string]interface{}{
			"contractor_id": contractorID,
			"strategy_type": domain.StrategyFIFO,
		}, nil)
	}
	return response.Success(c, "Allocation strategy fetched successfully", strategy, nil)
}

type upsertStrategyRequest struct {
	StrategyType          string   `json:"strategy_type"`
	LocationPriorityOrder []string `json:"location_priority_order"`
}

// UpsertStrategy PUT /api/v1/contractors/:contractor_id/allocation-strategy
func (h *Handlers) UpsertStrategy(c *fiber.Ctx) error {
	contractorID, err := uuid.Parse(c.Params("contractor_id"))
	if err != nil {
		return response.Error(c, "Invalid contractor ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req upsertStrategyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	var priority []uuid.UUID
	for _, raw := range req.LocationPriorityOrder {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(c, "Invalid location ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		priority = append(priority, id)
	}
	strategy, err := h.Service.UpsertStrategy(c.Context(), contractorID, domain.StrategyType(req.StrategyType), priority)
	if err != nil {
		return err
	}
	return response.Success(c, "Allocation strategy updated successfully", strategy, nil)
}

type manualAllocateRequest struct {
	OrderID  string `json:"order_id"`
	Quantity int64  `json:"quantity"`
}

// AllocateFromLot POST /api/v1/lots/:lot_id/allocate
func (h *Handlers) AllocateFromLot(c *fiber.Ctx) error {
	lotID, err := uuid.Parse(c.Params("lot_id"))
	if err != nil {
		return response.Error(c, "Invalid lot ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req manualAllocateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return response.Error(c, "Invalid order ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	alloc, err := h.Service.AllocateFromLot(c.Context(), orderID, lotID, req.Quantity)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Stock allocated successfully", alloc, nil)
}
