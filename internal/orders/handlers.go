package orders

import (
	"stocklot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles per-order allocation handlers.
type Handlers struct {
	Integrator *Integrator
}

type allocateOrderRequest struct {
	ContractorID *string `json:"contractor_id"`
	SellerUserID *string `json:"seller_user_id"`
	Lines        []struct {
		ListingID string `json:"listing_id"`
		Quantity  int64  `json:"quantity"`
	} `json:"lines"`
}

// AllocateOrder POST /api/v1/orders/:order_id/allocate
func (h *Handlers) AllocateOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("order_id"))
	if err != nil {
		return response.Error(c, "Invalid order ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req allocateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	var contractorID *uuid.UUID
	if req.ContractorID != nil {
		id, err := uuid.Parse(*req.ContractorID)
		if err != nil {
			return response.Error(c, "Invalid contractor ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		contractorID = &id
	}
	var sellerUserID *uuid.UUID
	if req.SellerUserID != nil {
		id, err := uuid.Parse(*req.SellerUserID)
		if err != nil {
			return response.Error(c, "Invalid seller user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		sellerUserID = &id
	}
	lines := make([]OrderLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		listingID, err := uuid.Parse(l.ListingID)
		if err != nil {
			return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		lines = append(lines, OrderLine{ListingID: listingID, Quantity: l.Quantity})
	}

	result, err := h.Integrator.AllocateStockForOrder(c.Context(), orderID, lines, contractorID, sellerUserID)
	if err != nil {
		return err
	}
	return response.Success(c, "Order stock allocation completed", result, nil)
}

// ReleaseOrder POST /api/v1/orders/:order_id/release
func (h *Handlers) ReleaseOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("order_id"))
	if err != nil {
		return response.Error(c, "Invalid order ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	if err := h.Integrator.ReleaseAllocationsForOrder(c.Context(), orderID); err != nil {
		return err
	}
	return response.Success(c, "Allocations released successfully", nil, nil)
}

// ConsumeOrder POST /api/v1/orders/:order_id/consume
func (h *Handlers) ConsumeOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("order_id"))
	if err != nil {
		return response.Error(c, "Invalid order ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	if err := h.Integrator.ConsumeAllocationsForOrder(c.Context(), orderID); err != nil {
		return err
	}
	return response.Success(c, "Allocations consumed successfully", nil, nil)
}

// ListAllocations GET /api/v1/orders/:order_id/allocations
func (h *Handlers) ListAllocations(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("order_id"))
	if err != nil {
		return response.Error(c, "Invalid order ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	allocs, err := h.Integrator.Allocations.GetAllocations(c.Context(), orderID)
	if err != nil {
		return err
	}
	return response.Success(c, "Allocations fetched successfully", allocs, map[string]interface{}{
		"count": len(allocs),
	})
}

// AllocationSummary GET /api/v1/orders/:order_id/allocation-summary
func (h *Handlers) AllocationSummary(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("order_id"))
	if err != nil {
		return response.Error(c, "Invalid order ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	summary, err := h.Integrator.GetAllocationSummary(c.Context(), orderID)
	if err != nil {
		return err
	}
	return response.Success(c, "Allocation summary fetched successfully", summary, nil)
}
