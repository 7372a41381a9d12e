package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/avelara/inference-gateway/internal/config"
	"github.com/avelara/inference-gateway/internal/database"
	"github.com/avelara/inference-gateway/internal/handler"
	"github.com/avelara/inference-gateway/internal/middleware"
	"github.com/avelara/inference-gateway/internal/predictor"
	"github.com/avelara/inference-gateway/internal/queue"
	"github.com/avelara/inference-gateway/internal/registry"
	"github.com/avelara/inference-gateway/internal/repository"
	"github.com/avelara/inference-gateway/internal/router"
	queue_publisher "github.com/avelara/inference-gateway/internal/service"
	"github.com/avelara/inference-gateway/internal/task"
)

func main() {
	_ = godotenv.Load() // optional .env for local development
	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database open: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}
	if err := database.Seed(ctx, db, cfg); err != nil {
		log.Fatalf("database seed: %v", err)
	}

	users := repository.NewUserRepo(db)
	policies := repository.NewAccessPolicyRepo(db)
	models := repository.NewInferenceModelRepo(db)
	access := repository.NewUserAccessRepo(db)
	calls := repository.NewServiceCallRepo(db)

	// Compose the model registry explicitly: every dispatchable model is
	// registered here, under the database id its seeded row received.
	reg := registry.New()
	linreg, err := models.GetByName(ctx, database.ModelNameLinreg)
	if err != nil {
		log.Fatalf("load seeded model %q: %v", database.ModelNameLinreg, err)
	}
	reg.Register(linreg.ID, predictor.PlaceholderRegression)

	// The inline v1/v2 surfaces share the ledger with dispatched calls,
	// so resolve their seeded model ids as well.
	v1Model, err := models.GetByName(ctx, database.ModelNamePlaceholderV1)
	if err != nil {
		log.Fatalf("load seeded model %q: %v", database.ModelNamePlaceholderV1, err)
	}
	v2Model, err := models.GetByName(ctx, database.ModelNamePlaceholderV2)
	if err != nil {
		log.Fatalf("load seeded model %q: %v", database.ModelNamePlaceholderV2, err)
	}

	dispatcher := task.NewDispatcher(reg, task.Options{
		Workers:     cfg.TaskWorkers,
		MaxAttempts: cfg.TaskRetries,
	})
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	correlator := task.NewCorrelator(calls, queue_publisher.PublishInferenceCompleted)
	go correlator.Run(ctx, dispatcher.Completions())

	// Background consumer mirrors completion events into logs/inference.log.
	go func() {
		if err := queue.StartInferenceConsumer(); err != nil {
			log.Printf("completion-consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting disabled")
	}
	rateLimit := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	e.Validator = handler.NewValidator()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	v1 := predictor.NewPlaceholder("v1")
	v2 := predictor.NewPlaceholder("v2")
	v1.Load()
	v2.Load()

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret, rateLimit)
	router.RegisterAdmin(e, handler.NewAdminHandler(cfg, users), cfg.JWTSecret)
	router.RegisterMLService(e, "/mlservice/v1",
		handler.NewMLServiceHandler(v1, v1Model.ID, calls), cfg.JWTSecret, middleware.CtxHasAccessV1)
	router.RegisterMLService(e, "/mlservice/v2",
		handler.NewMLServiceHandler(v2, v2Model.ID, calls), cfg.JWTSecret, middleware.CtxHasAccessV2)
	router.RegisterInference(e, &handler.InferenceHandler{
		Registry:   reg,
		Dispatcher: dispatcher,
		Access:     access,
		Calls:      calls,
		Models:     models,
		Policies:   policies,
		Users:      users,
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
