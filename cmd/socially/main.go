package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sociallyhq/socially/backend/internal/chat"
	"github.com/sociallyhq/socially/backend/internal/config"
	"github.com/sociallyhq/socially/backend/internal/identity"
	"github.com/sociallyhq/socially/backend/internal/media"
	"github.com/sociallyhq/socially/backend/internal/messages"
	mongostore "github.com/sociallyhq/socially/backend/internal/storage/mongo"
	"github.com/sociallyhq/socially/backend/internal/users"
)

func main() {
	//config part
	_ = godotenv.Load()
	cfg := config.MustLoad()

	//database handling
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	conn, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoPoolSize)
	cancel()
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	defer conn.Close(context.Background())

	userStore := users.NewMongoStore(conn.Db)
	msgStore := messages.NewMongoStore(conn.Db)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := userStore.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Error creating user indexes: %v", err)
		}
		if err := msgStore.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Error creating message indexes: %v", err)
		}
	}

	mediaStore, err := media.NewDisk(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		log.Fatalf("Error preparing media dir: %v", err)
	}

	// presence + push path
	presence := chat.NewPresence()
	hub := chat.NewHub(presence)
	go hub.Run()

	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxUploadMB << 20
	r.Static("/media", cfg.MediaDir)

	api := r.Group("/api")
	users.RegisterWebhook(api, userStore, cfg.WebhookSecret)

	authed := api.Group("", identity.Middleware(cfg.JWTSecret))
	users.Register(authed, userStore)
	messages.Register(authed, userStore, msgStore, mediaStore, hub)

	chat.RegisterWS(r.Group(""), hub, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()
	slog.Info("server listening", "addr", cfg.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
	slog.Info("server stopped")
}
