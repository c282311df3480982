package api

import (
	"context"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/middleware"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/observ"
	"github.com/lalith-99/lingomatch/internal/service"
)

type RouterConfig struct {
	JWTSecret   string
	CORSOrigins []string
	// Health reports whether the backing store is reachable. Nil means
	// there is nothing to check (the in-memory store).
	Health func(ctx context.Context) error
}

var bindingOnce sync.Once

// configureBinding makes gin's JSON binding strict and teaches its
// validator the "language" tag. gin keeps both in package globals.
func configureBinding() {
	bindingOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
			return models.Language(fl.Field().String()).Valid()
		})
	})
}

func NewRouter(services *service.Services, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	configureBinding()

	r := gin.New()
	r.Use(observ.GinLogger(logger), gin.Recovery())
	if c, ok := corsConfig(cfg.CORSOrigins); ok {
		r.Use(cors.New(c))
	}

	r.GET("/v1/health", healthHandler(cfg.Health))

	authHandler := NewAuthHandler(services.Accounts, logger)
	r.POST("/v1/auth/signup", authHandler.Signup)
	r.POST("/v1/auth/login", authHandler.Login)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	profiles := NewProfileHandler(services.Profiles, logger)
	v1.POST("/profile", profiles.Ensure)
	v1.GET("/profile/me", profiles.GetMe)
	v1.PUT("/profile/languages", profiles.UpdateLanguages)
	v1.GET("/profiles", profiles.List)
	v1.GET("/profiles/:id", profiles.GetByID)
	v1.GET("/partners", profiles.Partners)

	blocks := NewBlockHandler(services.Profiles, logger)
	v1.POST("/blocks", blocks.Block)
	v1.DELETE("/blocks/:id", blocks.Unblock)

	conversations := NewConversationHandler(services.Conversations, logger)
	v1.POST("/conversations", conversations.Create)
	v1.GET("/conversations", conversations.List)
	v1.GET("/conversations/:id", conversations.GetByID)

	messages := NewMessageHandler(services.Messages, logger)
	v1.POST("/conversations/:id/messages", messages.Create)
	v1.GET("/conversations/:id/messages", messages.List)

	feeds := NewFeedHandler(services, cfg.CORSOrigins, logger)
	v1.GET("/feeds/profiles", feeds.Profiles)
	v1.GET("/feeds/partners", feeds.Partners)
	v1.GET("/feeds/conversations", feeds.Conversations)
	v1.GET("/feeds/conversations/:id/messages", feeds.Messages)

	r.NoRoute(func(c *gin.Context) {
		respondError(c, apperr.NotFound("route not found"))
	})

	return r
}

// healthHandler is public so load balancers can check it without a token.
func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func corsConfig(origins []string) (cors.Config, bool) {
	if len(origins) == 0 {
		return cors.Config{}, false
	}
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c, true
}
