package locations

import (
	"stocklot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles location handlers.
type Handlers struct {
	Service *Service
}

type createLocationRequest struct {
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

// CreateLocation POST /api/v1/locations
func (h *Handlers) CreateLocation(c *fiber.Ctx) error {
	var req createLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		return response.Error(c, "Invalid owner ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}

	loc, err := h.Service.CreateCustomLocation(c.Context(), req.Name, ownerID)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Location created successfully", loc, nil)
}

// ListLocations GET /api/v1/locations?search=&owner_id=&preset_only=
func (h *Handlers) ListLocations(c *fiber.Ctx) error {
	opts := SearchOptions{
		Search:     c.Query("search"),
		PresetOnly: c.QueryBool("preset_only"),
	}
	if ownerStr := c.Query("owner_id"); ownerStr != "" {
		ownerID, err := uuid.Parse(ownerStr)
		if err != nil {
			return response.Error(c, "Invalid owner ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		opts.OwnerID = &ownerID
	}

	locs, err := h.Service.SearchLocations(c.Context(), opts)
	if err != nil {
		return err
	}
	return response.Success(c, "Locations fetched successfully", locs, map[string]interface{}{
		"count": len(locs),
	})
}
