package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lucas/castlerush/internal/api"
	"github.com/lucas/castlerush/internal/catalog"
	"github.com/lucas/castlerush/internal/config"
	"github.com/lucas/castlerush/internal/room"
	"github.com/lucas/castlerush/internal/room/commands"
	"github.com/lucas/castlerush/internal/store"
	"github.com/lucas/castlerush/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	noDB := flag.Bool("no-db", false, "run without a database (in-memory registry, no match persistence)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config from %s, using defaults: %v", *configPath, err)
		cfg = config.Default()
	}

	// baseCtx is the process lifetime context; every room runs under it,
	// not under the HTTP request that created it
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	// Initialize database connections
	var postgres *store.Postgres
	var redis *store.Redis

	if *noDB {
		log.Println("Running without a database (in-memory registry only)")
		postgres = &store.Postgres{}
		redis, _ = store.NewRedis(baseCtx, "")
	} else {
		postgres, err = store.NewPostgres(baseCtx, cfg.Database.PostgresURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL: %v", err)
			postgres = &store.Postgres{}
		}

		redis, err = store.NewRedis(baseCtx, cfg.Database.RedisURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v", err)
			redis, _ = store.NewRedis(baseCtx, "")
		}
	}
	defer postgres.Close()
	defer redis.Close()

	// Load the unit catalog
	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("Failed to load unit catalog: %v", err)
	}

	// Initialize the websocket hub
	hub := transport.NewHub()
	go hub.Run()

	// Initialize the command handler registry
	handlerRegistry := room.NewHandlerRegistry()
	commands.RegisterAllHandlers(handlerRegistry)

	// Initialize the room manager; rooms it creates run under baseCtx
	roomManager := room.NewManager(baseCtx, cat, cfg.Balance, cfg.Room, handlerRegistry, hub, postgres, redis)

	// Wire the websocket handler and HTTP router
	wsHandler := transport.NewHandler(hub, roomManager)
	router := api.NewRouter(roomManager, redis, wsHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop every live room's actor loop
	roomManager.Shutdown()
	cancelBase()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
