package allocation

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/middleware"
	"stocklot-backend/internal/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAllocationApp(t *testing.T) (*fiber.App, *Service) {
	svc := setupAllocationTest(t)
	h := &Handlers{Service: svc}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Get("/api/v1/allocation-mode", h.GetAllocationMode)
	app.Put("/api/v1/allocation-mode", h.SetAllocationMode)
	app.Get("/api/v1/contractors/:contractor_id/allocation-strategy", h.GetStrategy)
	app.Put("/api/v1/contractors/:contractor_id/allocation-strategy", h.UpsertStrategy)
	app.Post("/api/v1/lots/:lot_id/allocate", h.AllocateFromLot)
	return app, svc
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]interface{}) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	return resp.StatusCode, payload
}

func TestAllocationModeEndpoints(t *testing.T) {
	app, _ := setupAllocationApp(t)
	userID := uuid.New()

	status, payload := doJSON(t, app, "GET", "/api/v1/allocation-mode?entity_type=user&entity_id="+userID.String(), "")
	assert.Equal(t, fiber.StatusOK, status)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, "auto", data["mode"])

	status, _ = doJSON(t, app, "PUT", "/api/v1/allocation-mode",
		fmt.Sprintf(`{"entity_type":"user","entity_id":%q,"mode":"manual"}`, userID))
	assert.Equal(t, fiber.StatusOK, status)

	status, payload = doJSON(t, app, "GET", "/api/v1/allocation-mode?entity_type=user&entity_id="+userID.String(), "")
	assert.Equal(t, fiber.StatusOK, status)
	data = payload["data"].(map[string]interface{})
	assert.Equal(t, "manual", data["mode"])
}

func TestSetAllocationModeEndpoint_InvalidMode(t *testing.T) {
	app, _ := setupAllocationApp(t)

	status, payload := doJSON(t, app, "PUT", "/api/v1/allocation-mode",
		fmt.Sprintf(`{"entity_type":"user","entity_id":%q,"mode":"sometimes"}`, uuid.New()))
	assert.Equal(t, fiber.StatusBadRequest, status)
	errObj := payload["error"].(map[string]interface{})
	assert.Equal(t, string(apperrors.KindInvalidInput), errObj["kind"])
}

func TestStrategyEndpoints(t *testing.T) {
	app, _ := setupAllocationApp(t)
	contractorID := uuid.New()
	locA := uuid.New()

	// No stored strategy: the default fifo is reported.
	status, payload := doJSON(t, app, "GET", "/api/v1/contractors/"+contractorID.String()+"/allocation-strategy", "")
	assert.Equal(t, fiber.StatusOK, status)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, "fifo", data["strategy_type"])

	status, _ = doJSON(t, app, "PUT", "/api/v1/contractors/"+contractorID.String()+"/allocation-strategy",
		fmt.Sprintf(`{"strategy_type":"location_priority","location_priority_order":[%q]}`, locA))
	assert.Equal(t, fiber.StatusOK, status)

	status, payload = doJSON(t, app, "GET", "/api/v1/contractors/"+contractorID.String()+"/allocation-strategy", "")
	assert.Equal(t, fiber.StatusOK, status)
	data = payload["data"].(map[string]interface{})
	assert.Equal(t, "location_priority", data["strategy_type"])
}

func TestAllocateFromLotEndpoint(t *testing.T) {
	app, svc := setupAllocationApp(t)
	lot := seedLot(t, svc.DB, domain.StockLot{ListingID: uuid.New(), QuantityTotal: 5, Listed: false}, time.Hour)

	status, payload := doJSON(t, app, "POST", "/api/v1/lots/"+lot.LotID.String()+"/allocate",
		fmt.Sprintf(`{"order_id":%q,"quantity":3}`, uuid.New()))
	assert.Equal(t, fiber.StatusCreated, status)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["quantity"])
	assert.Equal(t, "active", data["status"])

	status, payload = doJSON(t, app, "POST", "/api/v1/lots/"+lot.LotID.String()+"/allocate",
		fmt.Sprintf(`{"order_id":%q,"quantity":3}`, uuid.New()))
	assert.Equal(t, fiber.StatusConflict, status)
	errObj := payload["error"].(map[string]interface{})
	assert.Equal(t, string(apperrors.KindOverAllocation), errObj["kind"])
}
