package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-dashboard/internal/cache"
	"github.com/iliyamo/inventory-dashboard/internal/config"
	"github.com/iliyamo/inventory-dashboard/internal/database"
	"github.com/iliyamo/inventory-dashboard/internal/handler"
	"github.com/iliyamo/inventory-dashboard/internal/middleware"
	"github.com/iliyamo/inventory-dashboard/internal/queue"
	"github.com/iliyamo/inventory-dashboard/internal/repository"
	"github.com/iliyamo/inventory-dashboard/internal/router"
	queue_publisher "github.com/iliyamo/inventory-dashboard/internal/service"
)

func main() {
	// A local .env is a convenience for development; in production the
	// variables come from the environment itself.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs both the response cache and the rate limiter.  When it
	// is unreachable the server still starts: caching falls back to the
	// in-process store and rate limiting disables itself.
	rdb := config.NewRedisClient()
	cacheCfg := config.LoadCacheConfig()
	var store cache.Store
	switch {
	case !cacheCfg.Enabled:
		store = cache.NopStore{}
	case rdb != nil:
		store = cache.NewRedisStore(rdb)
	default:
		log.Println("redis unavailable, using in-process cache")
		store = cache.NewMemoryStore()
	}
	rs := handler.Resources{Store: store, Prefix: cacheCfg.Prefix, TTL: cacheCfg.TTL}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	orgs := repository.NewOrganizationRepo(db)
	cats := repository.NewCategoryRepo(db)
	subs := repository.NewSubCategoryRepo(db)
	items := repository.NewItemRepo(db)

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	orgHandler := handler.NewOrganizationHandler(rs, orgs)
	catHandler := handler.NewCategoryHandler(rs, cats)
	subHandler := handler.NewSubCategoryHandler(rs, subs)
	itemHandler := handler.NewItemHandler(rs, items)
	itemHandler.Publish = queue_publisher.PublishInventoryChanged

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterOrganizations(e, orgHandler, cfg.JWTSecret)
	router.RegisterResources(e, cfg.JWTSecret, catHandler, subHandler, itemHandler)

	// The consumer appends inventory.changed events to a local log; it
	// reconnects on its own and must not block startup.
	go func() {
		if err := queue.StartInventoryConsumer(); err != nil {
			log.Printf("inventory consumer: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
