package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-management-api/internal/auth"
	"github.com/iliyamo/task-management-api/internal/config"
	"github.com/iliyamo/task-management-api/internal/database"
	"github.com/iliyamo/task-management-api/internal/handler"
	"github.com/iliyamo/task-management-api/internal/queue"
	"github.com/iliyamo/task-management-api/internal/repository"
	"github.com/iliyamo/task-management-api/internal/router"
	"github.com/iliyamo/task-management-api/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tasks := repository.NewTaskRepo(db)

	signer := auth.NewSigner(cfg.JWTSecret)
	events := queue.NewPublisher()
	tokenSvc := service.NewTokenService(tokens, users, signer, events, cfg.AccessTTL, cfg.RefreshTTL)

	if cfg.AdminUsername != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := users.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminName, cfg.BcryptCost); err != nil {
			log.Fatalf("admin bootstrap: %v", err)
		}
		cancel()
	}

	// Audit consumer keeps running across broker restarts; never returns.
	go func() {
		if err := queue.StartSecurityConsumer(); err != nil {
			log.Printf("security consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e,
		handler.NewAuthHandler(users, tokenSvc),
		handler.NewUserHandler(cfg, users),
		handler.NewTaskHandler(tasks, users),
		signer, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
