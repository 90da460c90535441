package app

import (
	"stocklot-backend/internal/allocation"
	"stocklot-backend/internal/config"
	"stocklot-backend/internal/database"
	"stocklot-backend/internal/health"
	"stocklot-backend/internal/locations"
	"stocklot-backend/internal/middleware"
	"stocklot-backend/internal/orders"
	"stocklot-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all global middleware and the
// pass-through routes over the allocation engine.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix:     cfg.FrontendURLEndsWith,
		DevPassword:       cfg.DevPassword,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
	}))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
		app.Use(middleware.HealthMarker(rdb))
	}

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		if err := locations.EnsurePresetLocations(db); err != nil {
			return nil, nil, nil, err
		}
	}

	// Health (no DB/redis requirement; degrades to "issue")
	healthHandlers := &health.Handlers{
		Rdb:            rdb,
		DB:             &gormDBPinger{db: db},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/reset", healthHandlers.Reset)

	if db != nil {
		locationService := &locations.Service{DB: db}
		locationHandlers := &locations.Handlers{Service: locationService}
		locGroup := app.Group("/api/v1/locations")
		locGroup.Get("/", locationHandlers.ListLocations)
		locGroup.Post("/", locationHandlers.CreateLocation)

		stockService := &stock.Service{DB: db}
		stockHandlers := &stock.Handlers{Service: stockService}
		lotGroup := app.Group("/api/v1/lots")
		lotGroup.Post("/", stockHandlers.CreateLot)
		lotGroup.Get("/", stockHandlers.ListLots)
		lotGroup.Patch("/:lot_id", stockHandlers.UpdateLot)
		lotGroup.Delete("/:lot_id", stockHandlers.DeleteLot)
		lotGroup.Post("/:lot_id/transfer", stockHandlers.TransferLot)

		stockGroup := app.Group("/api/v1/stock")
		stockGroup.Get("/:listing_id", stockHandlers.GetAggregation)
		stockGroup.Get("/:listing_id/simple", stockHandlers.GetSimpleStock)
		stockGroup.Put("/:listing_id/simple", stockHandlers.UpdateSimpleStock)

		allocationService := &allocation.Service{DB: db}
		allocationHandlers := &allocation.Handlers{Service: allocationService}
		app.Get("/api/v1/allocation-mode", allocationHandlers.GetAllocationMode)
		app.Put("/api/v1/allocation-mode", allocationHandlers.SetAllocationMode)
		app.Get("/api/v1/contractors/:contractor_id/allocation-strategy", allocationHandlers.GetStrategy)
		app.Put("/api/v1/contractors/:contractor_id/allocation-strategy", allocationHandlers.UpsertStrategy)
		lotGroup.Post("/:lot_id/allocate", allocationHandlers.AllocateFromLot)

		integrator := &orders.Integrator{Allocations: allocationService}
		orderHandlers := &orders.Handlers{Integrator: integrator}
		orderGroup := app.Group("/api/v1/orders")
		orderGroup.Post("/:order_id/allocate", orderHandlers.AllocateOrder)
		orderGroup.Post("/:order_id/release", orderHandlers.ReleaseOrder)
		orderGroup.Post("/:order_id/consume", orderHandlers.ConsumeOrder)
		orderGroup.Get("/:order_id/allocations", orderHandlers.ListAllocations)
		orderGroup.Get("/:order_id/allocation-summary", orderHandlers.AllocationSummary)
	}

	return app, db, rdb, nil
}
