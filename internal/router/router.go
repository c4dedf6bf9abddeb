package router

import (
	"time"

	"aquafarm/internal/config"
	"aquafarm/internal/handler"
	"aquafarm/internal/middleware"
	"aquafarm/internal/model"
	"aquafarm/internal/repository"
	"aquafarm/internal/service"
	"aquafarm/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	farmRepo := repository.NewFarmRepository(db)
	itemRepo := repository.NewInventoryRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	inventorySvc := service.NewInventoryService(itemRepo, movementRepo, farmRepo, dispatcher)
	forecastSvc := service.NewForecastService(itemRepo, movementRepo, farmRepo)
	pondSvc := service.NewPondService(farmRepo, recordRepo, dispatcher)
	recordSvc := service.NewRecordService(recordRepo, farmRepo, inventorySvc)
	syncSvc := service.NewSyncService(recordRepo, farmRepo, recordSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	pondsH := handler.NewPondsHandler(pondSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc, forecastSvc)
	recordsH := handler.NewRecordsHandler(recordSvc)
	syncH := handler.NewSyncHandler(syncSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public. The sync agent probes /health to decide online/offline.
	r.GET("/health", handler.Health(db, rdb))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	anyRole := middleware.RequireRole(model.RoleOwner, model.RoleTechnician, model.RoleOperator)
	manageRole := middleware.RequireRole(model.RoleOwner, model.RoleTechnician)

	v1 := r.Group("/v1", jwtMW)
	{
		users := v1.Group("/users", middleware.RequireRole(model.RoleOwner))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
			users.GET("/:id", usersH.Get)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Deactivate)
		}

		v1.POST("/farms", middleware.RequireRole(model.RoleOwner), pondsH.CreateFarm)
		v1.GET("/farms", anyRole, pondsH.ListFarms)

		farm := v1.Group("/farms/:farm_id")
		{
			farm.POST("/ponds", manageRole, pondsH.CreatePond)
			farm.GET("/ponds", anyRole, pondsH.ListPonds)
			farm.DELETE("/ponds/:pond_id", manageRole, pondsH.DeactivatePond)

			farm.POST("/ponds/:pond_id/cycles", manageRole, pondsH.StartCycle)
			farm.GET("/cycles", anyRole, pondsH.ListCycles)
			farm.POST("/cycles/:cycle_id/harvest", manageRole, pondsH.Harvest)

			inv := farm.Group("/inventory")
			{
				inv.POST("/items", manageRole, inventoryH.CreateItem)
				inv.GET("/items", anyRole, inventoryH.ListItems)
				inv.GET("/movements", anyRole, inventoryH.ListMovements)
				inv.GET("/alerts", anyRole, inventoryH.StockAlerts)
				inv.GET("/forecast", anyRole, inventoryH.Forecast)
			}

			records := farm.Group("/records", anyRole)
			{
				records.POST("/feedings", recordsH.CreateFeeding)
				records.GET("/feedings", recordsH.ListFeedings)
				records.POST("/biometries", recordsH.CreateBiometry)
				records.GET("/biometries", recordsH.ListBiometries)
				records.POST("/water-quality", recordsH.CreateWaterQuality)
				records.GET("/water-quality", recordsH.ListWaterQualities)
				records.POST("/mortalities", recordsH.CreateMortality)
				records.GET("/mortalities", recordsH.ListMortalities)
			}

			// Offline replay endpoint used by the sync agent.
			farm.POST("/sync/operations", anyRole, syncH.ApplyBatch)
		}

		// Item-scoped inventory routes; scope is enforced in the service
		// via the item's farm.
		items := v1.Group("/inventory/items/:item_id")
		{
			items.GET("", anyRole, inventoryH.GetItem)
			items.PUT("", manageRole, inventoryH.UpdateItem)
			items.DELETE("", manageRole, inventoryH.DeactivateItem)
			items.POST("/movements", manageRole, inventoryH.ApplyMovement)
			items.POST("/reconcile", manageRole, inventoryH.Reconcile)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
