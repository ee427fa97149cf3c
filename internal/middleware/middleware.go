package middleware

import (
	"database/sql"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/auth"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/config"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/database"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/logger"
	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Context keys set by the auth middleware.
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
)

type globalClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// GlobalRateLimit is a coarse per-IP burst limiter in front of everything.
// The per-route budgets use RateLimitRoute, this one only sheds abusive
// clients. Each handler returned here owns its own client table.
func GlobalRateLimit(cfg *config.Config) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		clients = make(map[string]*globalClient)
	)

	return func(c *gin.Context) {
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		ip := c.ClientIP()

		mu.Lock()
		defer mu.Unlock()

		if client, exists := clients[ip]; exists {
			client.lastSeen = time.Now()
			if !client.limiter.Allow() {
				c.JSON(http.StatusTooManyRequests, gin.H{
					"success": false,
					"message": "Too many requests. Please try again later.",
				})
				c.Abort()
				return
			}
		} else {
			clients[ip] = &globalClient{
				limiter:  rate.NewLimiter(rate.Every(time.Second/20), 20),
				lastSeen: time.Now(),
			}
		}

		for addr, client := range clients {
			if time.Since(client.lastSeen) > 10*time.Minute {
				delete(clients, addr)
			}
		}
		c.Next()
	}
}

// Recovery turns a handler panic into the standard error envelope instead of
// an empty 500. The stack is exposed outside production only.
func Recovery(cfg *config.Config) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered", "path", c.Request.URL.Path, "panic", fmt.Sprintf("%v", recovered))

		body := gin.H{
			"success": false,
			"message": "Internal server error",
		}
		if cfg.IsDevelopment() {
			body["stack"] = string(debug.Stack())
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

// RateLimitRoute enforces a fixed-window budget for one route. The window is
// keyed per user when authenticated, per IP otherwise, so the auth
// middleware must run first on authenticated routes.
func RateLimitRoute(limiter *ratelimit.Limiter, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "anonymous"
		if userID, exists := c.Get(ContextUserID); exists {
			key = userID.(string)
		} else if ip := c.ClientIP(); ip != "" {
			key = ip
		}

		allowed, retryAfter := limiter.Allow(key, maxRequests, window)
		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"message":    "Too many requests. Please try again later.",
				"retryAfter": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAuth validates the bearer token and rejects the request when it is
// missing, invalid, or belongs to a deleted account.
func RequireAuth(db *sql.DB, tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, "Access token not provided")
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			abortUnauthorized(c, "Invalid access token")
			return
		}

		user, err := database.GetUserByID(db, claims.UserID)
		if err != nil {
			if err == database.ErrNotFound {
				abortUnauthorized(c, "User not found")
				return
			}
			logger.Error("Failed to load user for auth", "error", err)
			abortUnauthorized(c, "Invalid access token")
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserEmail, user.Email)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid bearer token is present and
// silently continues otherwise.
func OptionalAuth(db *sql.DB, tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" {
			if claims, err := tokens.Verify(token); err == nil {
				if user, err := database.GetUserByID(db, claims.UserID); err == nil {
					c.Set(ContextUserID, user.ID)
					c.Set(ContextUserEmail, user.Email)
				}
			}
		}
		c.Next()
	}
}

// ProjectAccess gates project reads. Owners always pass, then public
// projects, then a matching ?token= share token. A missing project is a 404
// before any access decision so probing ids reveals nothing.
func ProjectAccess(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		if projectID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Project ID not provided",
			})
			c.Abort()
			return
		}

		project, err := database.GetProject(db, projectID)
		if err != nil {
			if err == database.ErrNotFound {
				c.JSON(http.StatusNotFound, gin.H{
					"success": false,
					"message": "Project not found",
				})
				c.Abort()
				return
			}
			logger.Error("Failed to load project for access check", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to check project access",
			})
			c.Abort()
			return
		}

		userID, _ := c.Get(ContextUserID)
		if project.UserID == userID {
			c.Next()
			return
		}
		if project.IsPublic {
			c.Next()
			return
		}
		if token := c.Query("token"); token != "" && project.ShareToken != nil && *project.ShareToken == token {
			c.Next()
			return
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Access to project denied",
		})
		c.Abort()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
	c.Abort()
}

func CORS(allowedOrigins string) gin.HandlerFunc {
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := false
		for _, allowedOrigin := range origins {
			if origin == allowedOrigin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func SecurityHeaders(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

func LogRequests() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s %s\n",
			param.TimeStamp.Format("2006/01/02 15:04:05"),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
			param.ClientIP,
		)
	})
}
