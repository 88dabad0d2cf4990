package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/beamlink/signaling/internal/adapters/signal"
	"github.com/beamlink/signaling/internal/app"
	"github.com/beamlink/signaling/internal/config"
	"github.com/beamlink/signaling/internal/domain"
)

// Authorizer is the external authorization hook, consulted before a signaling
// connection is accepted. nil allows everything, matching the anonymous mode
// of the product.
type Authorizer func(c *gin.Context) bool

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, life *app.Lifecycle, auth Authorizer) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("BeamlinkSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "signaling server is healthy")
	})

	limiter := NewIPRateLimiter(cfg.RateLimit, cfg.RateInterval)
	ctrl := signal.NewSignalWSController(life, cfg.ReadLimit, cfg.PingPeriod)

	api := r.Group("/api")
	api.Use(RateLimitMiddleware(limiter))

	api.GET("/ws/signal", func(c *gin.Context) {
		if auth != nil && !auth(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}
		ctrl.HandleSignal(ctx, c)
	})

	// GET /api/status — live counts from both registries, never cached.
	api.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, life.Status())
	})

	// GET /api/p2p/status — capability document for clients probing the
	// signaling plane.
	api.GET("/p2p/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":                  "active",
			"signaling_server":        "connected",
			"message":                 "P2P signaling server is running",
			"authentication_required": false,
			"features": gin.H{
				"encryption":      "end-to-end",
				"connection_type": "WebRTC P2P",
			},
		})
	})

	// POST /api/p2p/generate-room — short shareable room id.
	api.POST("/p2p/generate-room", func(c *gin.Context) {
		roomID := uuid.NewString()[:8]
		c.JSON(http.StatusOK, gin.H{
			"room_id":  roomID,
			"join_url": "/p2p?room=" + roomID,
		})
	})

	// GET /api/p2p/room/:id — member count for one room; an unknown room
	// reports zero peers.
	api.GET("/p2p/room/:id", func(c *gin.Context) {
		roomID := domain.RoomID(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{
			"room_id":    roomID,
			"peer_count": len(life.Directory.MembersOf(roomID)),
		})
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
