package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/localspothub/deals-api/internal/config"
	"github.com/localspothub/deals-api/internal/database"
	"github.com/localspothub/deals-api/internal/handler"
	"github.com/localspothub/deals-api/internal/jobs"
	"github.com/localspothub/deals-api/internal/middleware"
	"github.com/localspothub/deals-api/internal/queue"
	"github.com/localspothub/deals-api/internal/redemption"
	"github.com/localspothub/deals-api/internal/repository"
	"github.com/localspothub/deals-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables caching and rate
	// limiting and degrades preferences to defaults.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache, rate limiting and preferences degraded")
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	stores := repository.NewStoreRepo(db)
	deals := repository.NewDealRepo(db)
	redemptions := repository.NewRedemptionRepo(db)
	favorites := repository.NewFavoriteRepo(db)
	prefs := repository.NewPreferenceRepo(rdb)

	// The redemption engine runs directly against the MySQL-backed
	// store; all eligibility and atomicity decisions live there.
	engine := redemption.NewService(redemptions)

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := &handler.PublicHandler{StoreRepo: stores, DealRepo: deals}
	customerH := handler.NewCustomerHandler(engine, redemptions, deals, stores, favorites, prefs)
	ownerH := handler.NewOwnerHandler(stores, deals, redemptions)

	e := echo.New()
	e.HideBanner = true

	// Rate limiting covers everything; the response cache only wraps
	// the public browse routes.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, cacheMW)
	router.RegisterCustomer(e, customerH, cfg.JWTSecret)
	router.RegisterOwner(e, ownerH, cfg.JWTSecret)

	// Background consumer writes redemption events to logs/.
	go func() {
		if err := queue.StartRedemptionConsumer(); err != nil {
			log.Printf("redemption consumer stopped: %v", err)
		}
	}()

	// Periodic counter self-heal.
	if cfg.RecountEveryMin > 0 {
		sched, err := jobs.StartRecount(redemptions, time.Duration(cfg.RecountEveryMin)*time.Minute)
		if err != nil {
			log.Fatalf("recount scheduler failed: %v", err)
		}
		defer func() { _ = sched.Shutdown() }()
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
