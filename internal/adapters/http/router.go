package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/farmrelay/internal/adapters/signal"
	"github.com/dkeye/farmrelay/internal/app/orch"
	"github.com/dkeye/farmrelay/internal/auth"
	"github.com/dkeye/farmrelay/internal/config"
	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const identityKey = "identity"

func bearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// TokenAuthMiddleware rejects the request unless it carries a valid token,
// either as ?token= or as an Authorization bearer header.
func TokenAuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := verifier.Verify(bearerToken(c))
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("handshake rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication error"})
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

func identityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	ident, ok := v.(domain.Identity)
	return ident, ok
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, verifier *auth.Verifier, store core.Store) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	ctrl := signal.NewSignalWSController(o,
		signal.NewHandshakeLimiter(cfg.HandshakeLimit, cfg.HandshakeInterval),
		signal.OptionsFrom(cfg))

	log.Info().Str("module", "adapters.http").Int("port", cfg.Port).Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ws", TokenAuthMiddleware(verifier), func(c *gin.Context) {
		ident, ok := identityFrom(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		log.Debug().Str("module", "adapters.http").Str("identity", ident.Key()).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c, ident)
	})

	api := r.Group("/api", TokenAuthMiddleware(verifier))

	// GET /api/connections: live connection counts and rooms
	api.GET("/connections", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"hosts": o.Registry.Count(domain.RoleHost),
			"users": o.Registry.Count(domain.RoleUser),
			"rooms": o.Rooms.List(),
		})
	})

	return r
}
