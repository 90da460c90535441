package stock

import (
	"time"

	"stocklot-backend/internal/pkg/apperrors"
	"stocklot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles stock lot handlers.
type Handlers struct {
	Service *Service
}

type createLotRequest struct {
	ListingID  string  `json:"listing_id"`
	Quantity   int64   `json:"quantity"`
	LocationID *string `json:"location_id"`
	OwnerID    *string `json:"owner_id"`
	Listed     *bool   `json:"listed"`
	Notes      string  `json:"notes"`
}

// CreateLot POST /api/v1/lots
func (h *Handlers) CreateLot(c *fiber.Ctx) error {
	var req createLotRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	in := CreateLotInput{
		ListingID: listingID,
		Quantity:  req.Quantity,
		Listed:    req.Listed,
		Notes:     req.Notes,
	}
	if req.LocationID != nil {
		locID, err := uuid.Parse(*req.LocationID)
		if err != nil {
			return response.Error(c, "Invalid location ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		in.LocationID = &locID
	}
	if req.OwnerID != nil {
		ownerID, err := uuid.Parse(*req.OwnerID)
		if err != nil {
			return response.Error(c, "Invalid owner ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		in.OwnerID = &ownerID
	}

	lot, err := h.Service.CreateLot(c.Context(), in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Lot created successfully", lot, nil)
}

// ListLots GET /api/v1/lots?listing_id=&location_id=&unspecified=&owner_id=&listed=
func (h *Handlers) ListLots(c *fiber.Ctx) error {
	var f LotFilter
	if v := c.Query("listing_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		f.ListingID = &id
	}
	if v := c.Query("location_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return response.Error(c, "Invalid location ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		f.LocationID = &id
	}
	f.UnspecifiedLocation = c.QueryBool("unspecified")
	if v := c.Query("owner_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return response.Error(c, "Invalid owner ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		f.OwnerID = &id
	}
	if v := c.Query("listed"); v != "" {
		listed := c.QueryBool("listed")
		f.Listed = &listed
	}

	lots, err := h.Service.GetLots(c.Context(), f)
	if err != nil {
		return err
	}
	return response.Success(c, "Lots fetched successfully", lots, map[string]interface{}{
		"count": len(lots),
	})
}

type updateLotRequest struct {
	Quantity          *int64     `json:"quantity"`
	LocationID        *string    `json:"location_id"`
	ClearLocation     bool       `json:"clear_location"`
	OwnerID           *string    `json:"owner_id"`
	ClearOwner        bool       `json:"clear_owner"`
	Listed            *bool      `json:"listed"`
	Notes             *string    `json:"notes"`
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at"`
}

// UpdateLot PATCH /api/v1/lots/:lot_id
func (h *Handlers) UpdateLot(c *fiber.Ctx) error {
	lotID, err := uuid.Parse(c.Params("lot_id"))
	if err != nil {
		return response.Error(c, "Invalid lot ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req updateLotRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	in := UpdateLotInput{
		Quantity:          req.Quantity,
		ClearLocation:     req.ClearLocation,
		ClearOwner:        req.ClearOwner,
		Listed:            req.Listed,
		Notes:             req.Notes,
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	}
	if req.LocationID != nil {
		locID, err := uuid.Parse(*req.LocationID)
		if err != nil {
			return response.Error(c, "Invalid location ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		in.LocationID = &locID
	}
	if req.OwnerID != nil {
		ownerID, err := uuid.Parse(*req.OwnerID)
		if err != nil {
			return response.Error(c, "Invalid owner ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		in.OwnerID = &ownerID
	}

	lot, err := h.Service.UpdateLot(c.Context(), lotID, in)
	if err != nil {
		return err
	}
	return response.Success(c, "Lot updated successfully", lot, nil)
}

// DeleteLot DELETE /api/v1/lots/:lot_id
func (h *Handlers) DeleteLot(c *fiber.Ctx) error {
	lotID, err := uuid.Parse(c.Params("lot_id"))
	if err != nil {
		return response.Error(c, "Invalid lot ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.DeleteLot(c.Context(), lotID); err != nil {
		return err
	}
	return response.Success(c, "Lot deleted successfully", nil, nil)
}

type transferRequest struct {
	DestinationLocationID *string `json:"destination_location_id"`
	Quantity              int64   `json:"quantity"`
}

// TransferLot POST /api/v1/lots/:lot_id/transfer
func (h *Handlers) TransferLot(c *fiber.Ctx) error {
	lotID, err := uuid.Parse(c.Params("lot_id"))
	if err != nil {
		return response.Error(c, "Invalid lot ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	var destID *uuid.UUID
	if req.DestinationLocationID != nil {
		id, err := uuid.Parse(*req.DestinationLocationID)
		if err != nil {
			return response.Error(c, "Invalid location ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		destID = &id
	}

	result, err := h.Service.TransferLot(c.Context(), lotID, destID, req.Quantity)
	if err != nil {
		return err
	}
	return response.Success(c, "Stock transferred successfully", result, nil)
}

// GetAggregation GET /api/v1/stock/:listing_id
func (h *Handlers) GetAggregation(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	agg, err := h.Service.GetStockAggregation(c.Context(), listingID)
	if err != nil {
		return err
	}
	return response.Success(c, "Stock aggregation fetched successfully", agg, nil)
}

// GetSimpleStock GET /api/v1/stock/:listing_id/simple
// Reports the Unspecified lot's quantity; 0 when the lot does not exist yet.
func (h *Handlers) GetSimpleStock(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	lot, err := h.Service.GetUnspecifiedLot(c.Context(), listingID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return response.Success(c, "Simple stock fetched successfully", map[string]interface{}{
				"listing_id": listingID,
				"quantity":   0,
			}, nil)
		}
		return err
	}
	return response.Success(c, "Simple stock fetched successfully", map[string]interface{}{
		"listing_id": listingID,
		"quantity":   lot.QuantityTotal,
	}, nil)
}

type simpleStockRequest struct {
	Quantity int64 `json:"quantity"`
}

// UpdateSimpleStock PUT /api/v1/stock/:listing_id/simple
func (h *Handlers) UpdateSimpleStock(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req simpleStockRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	lot, err := h.Service.UpdateSimpleStock(c.Context(), listingID, req.Quantity)
	if err != nil {
		return err
	}
	return response.Success(c, "Simple stock updated successfully", lot, nil)
}
