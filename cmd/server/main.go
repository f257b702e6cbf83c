package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/niyoseris/curling/internal/admin"
	"github.com/niyoseris/curling/internal/api"
	"github.com/niyoseris/curling/internal/config"
	"github.com/niyoseris/curling/internal/database"
	"github.com/niyoseris/curling/internal/game"
	"github.com/niyoseris/curling/internal/migrations"
	"github.com/niyoseris/curling/internal/redis"
	"github.com/niyoseris/curling/internal/store"
	"github.com/niyoseris/curling/internal/ws"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL, 5)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		log.Println("[MIGRATE] Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	games, err := newManager(ctx, db, rdb, cfg)
	if err != nil {
		log.Fatalf("Invalid match configuration: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)
	games.SetBroadcaster(hub.Broadcast)
	ws.StartEventSubscriber(ctx, rdb, hub)

	games.StartIdleWorker(ctx)
	games.StartJanitor(ctx, time.Minute)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, db, games, hub, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting curling server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	games.Shutdown()
	log.Println("Server stopped")
}

// newManager applies the admin runtime overrides on top of the environment config. If
// the overrides produce invalid match settings they are ignored.
func newManager(ctx context.Context, db *sqlx.DB, rdb *goredis.Client, cfg *config.Config) (*game.Manager, error) {
	st := store.New(db)
	tuned := *cfg
	if err := admin.LoadRuntimeConfig(ctx, db, &tuned); err != nil {
		log.Printf("[CONFIG] Runtime config unavailable: %v", err)
		return game.NewManager(rdb, st, cfg)
	}
	games, err := game.NewManager(rdb, st, &tuned)
	if err != nil {
		log.Printf("[CONFIG] Runtime overrides rejected (%v); using environment values", err)
		return game.NewManager(rdb, st, cfg)
	}
	*cfg = tuned
	return games, nil
}
