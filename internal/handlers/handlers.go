package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/apperr"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/auth"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/config"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/email"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/logger"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/middleware"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/ratelimit"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/upload"

	"github.com/gin-gonic/gin"
)

// ImageStore is the slice of the Cloudinary client the handlers need.
type ImageStore interface {
	Upload(ctx context.Context, data []byte) (*upload.Image, error)
	Delete(ctx context.Context, publicID string) error
}

// ImageGenerator is the slice of the Gemini client the handlers need.
type ImageGenerator interface {
	GenerateModelImage(ctx context.Context, image []byte, mimeType string) (string, error)
	VirtualTryOn(ctx context.Context, modelImage string, garment []byte, garmentMIME string) (string, error)
	PoseVariation(ctx context.Context, image, poseInstruction string) (string, error)
	Closeup(ctx context.Context, image, outfitDescription string) (string, error)
	PostCopy(ctx context.Context, image, outfitDescription, sceneDescription, brandName string) (string, error)
}

// Services bundles everything the handlers depend on besides the database.
type Services struct {
	Tokens    *auth.TokenService
	Limiter   *ratelimit.Limiter
	Images    ImageStore
	Generator ImageGenerator
	Email     *email.Service
}

func SetupRoutes(r *gin.Engine, db *sql.DB, cfg *config.Config, services *Services) {
	r.Use(middleware.Recovery(cfg))
	r.Use(middleware.LogRequests())
	r.Use(middleware.SecurityHeaders(cfg))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.GlobalRateLimit(cfg))
	r.Use(addServicesContext(db, services))

	r.GET("/", handleRoot)
	r.GET("/health", makeHealthHandler(cfg))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register",
			middleware.RateLimitRoute(services.Limiter, 5, 15*time.Minute),
			handleRegister)
		authGroup.POST("/login",
			middleware.RateLimitRoute(services.Limiter, 10, 15*time.Minute),
			handleLogin)

		authGroup.GET("/profile", middleware.RequireAuth(db, services.Tokens), handleGetProfile)
		authGroup.PUT("/profile", middleware.RequireAuth(db, services.Tokens), handleUpdateProfile)
		authGroup.PUT("/change-password",
			middleware.RequireAuth(db, services.Tokens),
			middleware.RateLimitRoute(services.Limiter, 3, time.Hour),
			handleChangePassword)
		authGroup.DELETE("/account",
			middleware.RequireAuth(db, services.Tokens),
			middleware.RateLimitRoute(services.Limiter, 2, 24*time.Hour),
			handleDeleteAccount)
	}

	wardrobe := api.Group("/wardrobe")
	wardrobe.Use(middleware.RequireAuth(db, services.Tokens))
	{
		wardrobe.GET("", handleListWardrobeItems)
		wardrobe.GET("/stats", handleWardrobeStats)
		wardrobe.GET("/:id", handleGetWardrobeItem)
		wardrobe.POST("",
			middleware.RateLimitRoute(services.Limiter, 20, time.Hour),
			handleCreateWardrobeItem)
		wardrobe.PUT("/:id", handleUpdateWardrobeItem)
		wardrobe.DELETE("/:id", handleDeleteWardrobeItem)
	}

	projects := api.Group("/projects")
	{
		projects.GET("", middleware.RequireAuth(db, services.Tokens), handleListProjects)
		projects.POST("", middleware.RequireAuth(db, services.Tokens), handleCreateProject)
		projects.GET("/:id",
			middleware.OptionalAuth(db, services.Tokens),
			middleware.ProjectAccess(db),
			handleGetProject)
		projects.PUT("/:id", middleware.RequireAuth(db, services.Tokens), handleUpdateProject)
		projects.DELETE("/:id", middleware.RequireAuth(db, services.Tokens), handleDeleteProject)
		projects.POST("/:id/share", middleware.RequireAuth(db, services.Tokens), handleShareProject)
	}

	ai := api.Group("/ai")
	ai.Use(middleware.RequireAuth(db, services.Tokens))
	ai.Use(middleware.RateLimitRoute(services.Limiter, 20, time.Hour))
	{
		ai.POST("/generate-model", handleGenerateModel)
		ai.POST("/virtual-tryon", handleVirtualTryOn)
		ai.POST("/generate-pose", handleGeneratePose)
		ai.POST("/generate-closeup", handleGenerateCloseup)
		ai.POST("/generate-post-copy", handleGeneratePostCopy)
		ai.POST("/generate-video", handleGenerateVideo)
		ai.GET("/video-status/:id", handleVideoStatus)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route " + c.Request.URL.Path + " not found",
		})
	})
}

func addServicesContext(db *sql.DB, services *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Set("services", services)
		c.Next()
	}
}

func handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Welcome to the Fit Check API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"auth":     "/api/auth",
			"wardrobe": "/api/wardrobe",
			"projects": "/api/projects",
			"ai":       "/api/ai",
			"health":   "/health",
		},
	})
}

func makeHealthHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     "Fit Check backend is running",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": cfg.Environment,
		})
	}
}

func getDB(c *gin.Context) *sql.DB {
	return c.MustGet("db").(*sql.DB)
}

func getServices(c *gin.Context) *Services {
	return c.MustGet("services").(*Services)
}

func currentUserID(c *gin.Context) string {
	return c.MustGet(middleware.ContextUserID).(string)
}

func respondOK(c *gin.Context, message string, data any) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusOK, body)
}

func respondCreated(c *gin.Context, message string, data any) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusCreated, body)
}

// respondError maps application errors to the envelope. Anything that is
// not an apperr becomes an opaque 500 so internals never leak to clients.
func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*apperr.Error); ok {
		c.JSON(appErr.Status, gin.H{"success": false, "message": appErr.Message})
		return
	}

	logger.Error("Unhandled error", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": fallback,
	})
}

func respondValidation(c *gin.Context, violations []string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Validation failed",
		"errors":  violations,
	})
}
