package server

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/USA-RedDragon/wander-server/internal/config"
	"github.com/USA-RedDragon/wander-server/internal/navigation"
	"github.com/USA-RedDragon/wander-server/internal/notes"
	"github.com/USA-RedDragon/wander-server/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func applyMiddleware(r *gin.Engine, config *config.Config, otelComponent string, deps Dependencies) {
	r.Use(gin.Recovery())

	r.TrustedPlatform = "X-Real-IP"

	// CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "authorization")
	corsConfig.AllowCredentials = true
	corsConfig.AllowWildcard = true
	if len(config.HTTP.CORSHosts) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowOrigins = config.HTTP.CORSHosts
	r.Use(cors.New(corsConfig))

	err := r.SetTrustedProxies(config.HTTP.TrustedProxies)
	if err != nil {
		slog.Error("Failed to set trusted proxies", "error", err.Error())
	}

	r.Use(configMiddleware(config))
	r.Use(navigationMiddleware(deps.Navigation))
	r.Use(notesMiddleware(deps.Notes))

	if config.HTTP.Tracing.Enabled {
		r.Use(otelgin.Middleware(otelComponent))
		r.Use(tracingProvider(config))
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		WithSpanID:        config.HTTP.Tracing.Enabled,
		WithTraceID:       config.HTTP.Tracing.Enabled,
		DefaultLevel:      slog.LevelInfo,
		ClientErrorLevel:  slog.LevelWarn,
		ServerErrorLevel:  slog.LevelError,
		WithRequestHeader: false,
	}))
}

func configMiddleware(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("config", config)
		c.Next()
	}
}

func tracingProvider(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.HTTP.Tracing.OTLPEndpoint != "" {
			ctx := c.Request.Context()
			span := trace.SpanFromContext(ctx)
			if span.IsRecording() {
				span.SetAttributes(
					attribute.String("http.method", c.Request.Method),
					attribute.String("http.path", c.Request.URL.Path),
				)
				if sessionID := c.Param("session_id"); sessionID != "" {
					span.SetAttributes(attribute.String("wander.session_id", sessionID))
				}
			}
		}
		c.Next()
	}
}

func navigationMiddleware(nav *navigation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("navigation", nav)
		c.Next()
	}
}

func notesMiddleware(store *notes.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("notes", store)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if c.Query("access_token") == "" {
			return "", false
		}
		authHeader = "JWT " + c.Query("access_token")
	}
	if !strings.HasPrefix(authHeader, "JWT ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "JWT "), true
}

// requireAuth accepts any valid session token.
func requireAuth(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		jwtString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		sessionID, err := utils.VerifySessionJWT(config.JWT.Secret, jwtString)
		if err != nil {
			slog.Warn("Failed to verify session JWT", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set("session_id", sessionID)
		c.Next()
	}
}

// requireSessionAuth additionally requires the token to belong to the
// :session_id in the path.
func requireSessionAuth(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := c.Params.Get("session_id")
		if !ok || sessionID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
			return
		}
		jwtString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		subject, err := utils.VerifySessionJWT(config.JWT.Secret, jwtString)
		if err != nil {
			slog.Warn("Failed to verify session JWT", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if subject != sessionID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Set("session_id", sessionID)
		c.Next()
	}
}

// requireLiveSession rejects requests for sessions that no longer exist.
func requireLiveSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		nav, ok := c.MustGet("navigation").(*navigation.Service)
		if !ok {
			slog.Error("Failed to get navigation service from context")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
			return
		}
		if _, err := nav.Snapshot(c.GetString("session_id")); err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}
