package main

import (
	"context"
	"log"
	"time"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/auth"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/config"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/database"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/email"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/genimage"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/handlers"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/logger"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/ratelimit"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/upload"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	logger.Initialize(logger.ParseLevel(cfg.LogLevel), cfg.IsDevelopment())

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	emailService := email.NewService(cfg)
	if emailService.IsEnabled() {
		log.Println("Email service enabled with Mailgun")
	} else {
		log.Println("Email service disabled - Mailgun not configured")
	}

	images, err := upload.NewStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		log.Fatal("Failed to initialize Cloudinary:", err)
	}

	generator, err := genimage.NewGenerator(context.Background(), cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}

	limiter := ratelimit.New()
	go func() {
		for range time.Tick(10 * time.Minute) {
			limiter.Cleanup()
		}
	}()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 10 << 20

	handlers.SetupRoutes(r, db, cfg, &handlers.Services{
		Tokens:    auth.NewTokenService(cfg.JWTSecret),
		Limiter:   limiter,
		Images:    images,
		Generator: generator,
		Email:     emailService,
	})

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(r.Run(":" + cfg.Port))
}
