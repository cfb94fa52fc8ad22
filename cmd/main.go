package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"vetline/backend/internal/api/handler"
	"vetline/backend/internal/backend"
	"vetline/backend/internal/chathub"
	"vetline/backend/internal/config"
	"vetline/backend/internal/messages"
	"vetline/backend/internal/models"
	"vetline/backend/internal/notify"
	"vetline/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.RoomRecord{},
		&models.CallRecord{},
		&models.CallbackRequest{},
		&models.StaffProfile{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting Vetline signaling hub...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file loaded")
	}
	cfg := config.Load()

	db, rdb := setupDependencies(cfg)
	s := storage.NewService(db, rdb)

	msgs, err := messages.NewCatalog("")
	if err != nil {
		log.Fatalf("Failed to load message catalog: %v", err)
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramBotToken != "" && cfg.TelegramOpsChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramOpsChatID)
		if err != nil {
			log.Fatalf("Failed to start ops alerting: %v", err)
		}
		notifier = tg
	}

	sink := backend.NewClient(cfg.BackendBaseURL)
	hub := chathub.New(s, sink, notifier, msgs, cfg)

	go hub.Run()

	r := gin.Default()
	h := handler.NewHandler(hub, s, cfg)

	r.GET("/token", h.GetToken)
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/callbacks", h.CreateCallback)
		api.GET("/callbacks", h.ListCallbacks)
		api.POST("/callbacks/:id/contacted", h.MarkCallbackContacted)
	}

	server := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Printf("Listening on %s", cfg.ListenAddr)
	log.Fatal(server.ListenAndServe())
}
