package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kanbanflow/internal/auth"
	"kanbanflow/internal/blob"
	"kanbanflow/internal/config"
	"kanbanflow/internal/database"
	"kanbanflow/internal/handlers"
	"kanbanflow/internal/middleware"
	"kanbanflow/internal/realtime"
	"kanbanflow/internal/routes"
	"kanbanflow/internal/store"

	"github.com/go-redis/redis/v8"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	tokens, err := auth.NewManager(auth.NewRedisTokenStore(rdb))
	if err != nil {
		log.Fatalf("Token manager init failed: %v", err)
	}

	blobs, err := blob.NewDiskStore(cfg.UploadDir, cfg.BaseURL)
	if err != nil {
		log.Fatalf("Upload dir init failed: %v", err)
	}

	st := store.NewPostgres(db)
	broadcaster := realtime.NewRedisBroadcaster(rdb)

	r := routes.SetupRoutes(routes.Deps{
		Auth:       handlers.NewAuthHandler(st, tokens),
		Membership: handlers.NewMembershipHandler(st),
		Project:    handlers.NewProjectHandler(st),
		Task:       handlers.NewTaskHandler(st, blobs, broadcaster),
		User:       handlers.NewUserHandler(st),
		Chat:       handlers.NewChatHandler(st, broadcaster),
		Tokens:     tokens,
		UploadDir:  cfg.UploadDir,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: middleware.CORS(cfg.AllowedOrigins)(r),
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutdown signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
