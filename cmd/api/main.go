// Command api runs the commerce platform HTTP service: authentication and
// role administration, the order and ticket lifecycles, and delivery
// assignment.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickcart/commerce-api/internal/api"
	"github.com/quickcart/commerce-api/internal/core/domain"
	"github.com/quickcart/commerce-api/internal/core/service"
	"github.com/quickcart/commerce-api/internal/infrastructure/config"
	mongodb "github.com/quickcart/commerce-api/internal/infrastructure/db/mongo"
	redisdb "github.com/quickcart/commerce-api/internal/infrastructure/db/redis"
	"github.com/quickcart/commerce-api/internal/infrastructure/queue"
	"github.com/quickcart/commerce-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(logger.Options{})
		l := logger.Get()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := domain.NewCapabilityRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid capability registry")
	}

	// --- Stores ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	userRepo := mongodb.NewUserRepository(db)
	orderRepo := mongodb.NewOrderRepository(db)
	ticketRepo := mongodb.NewTicketRepository(db)
	agentRepo := mongodb.NewAgentRepository(db)
	pool := redisdb.NewAgentPool(rdb, cfg.Agents.Mode, cfg.Agents.HeartbeatTTL)

	for name, ensure := range map[string]func(context.Context) error{
		"users":   userRepo.EnsureIndexes,
		"orders":  orderRepo.EnsureIndexes,
		"tickets": ticketRepo.EnsureIndexes,
		"agents":  agentRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("failed to ensure indexes")
		}
	}

	// --- Services ---
	assignmentSvc := service.NewAssignmentService(orderRepo, pool, log)
	dispatcher := queue.NewDispatcher(cfg.AssignWorkers, assignmentSvc, log)
	dispatcher.Start(ctx)

	authSvc := service.NewAuthService(userRepo, agentRepo, registry, cfg.JWTSecret, cfg.TokenTTL, log)
	userSvc := service.NewUserService(userRepo, log)
	orderSvc := service.NewOrderService(orderRepo, userRepo, agentRepo, dispatcher, cfg.ReturnWindow, log)
	ticketSvc := service.NewTicketService(ticketRepo, log)

	e := api.NewRouter(api.Deps{
		JWTSecret:  cfg.JWTSecret,
		Log:        log,
		DB:         db,
		RDB:        rdb,
		Auth:       authSvc,
		Users:      userSvc,
		Orders:     orderSvc,
		Tickets:    ticketSvc,
		Assignment: assignmentSvc,
		Agents:     agentRepo,
		Pool:       pool,
		Queue:      dispatcher,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("commerce api started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
