// Package http exposes a local status/control surface over the engine:
// health, presence and profile views, and voice commands. It reads
// engine snapshots only; all protocol work stays in the engine.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/roommate/roomlink/internal/app"
	"github.com/roommate/roomlink/internal/app/orch"
	"github.com/roommate/roomlink/internal/config"
	"github.com/roommate/roomlink/internal/domain"
)

// clientTokenMiddleware tags each caller with a stable token so log
// lines from one UI client correlate across requests.
func clientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get("ct").(string)
		if token == "" {
			token = uuid.NewString()
			s.Set("ct", token)
			_ = s.Save()
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, engine *app.Engine) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RoomlinkSessions", store))
	r.Use(clientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Int("port", cfg.Port).Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api")

	api.GET("/status", func(c *gin.Context) {
		resp := gin.H{
			"connected":     engine.Channel.Connected(),
			"self_presence": engine.SelfPresence(),
			"subscribed":    engine.Registry.Subscribed(),
		}
		if engine.Voice != nil {
			resp["in_voice"] = engine.Voice.InVoice()
			resp["muted"] = engine.Voice.Muted()
			resp["peers"] = engine.Voice.Peers()
		}
		c.JSON(http.StatusOK, resp)
	})

	api.GET("/presence/:pubkey", func(c *gin.Context) {
		house := domain.SigningPubkey(c.Param("pubkey"))
		c.JSON(http.StatusOK, gin.H{
			"signing_pubkey": house,
			"users":          engine.Presence.House(house),
		})
	})

	api.GET("/profiles", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"profiles": engine.Profiles.All()})
	})

	api.POST("/voice/join", func(c *gin.Context) {
		if engine.Voice == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "voice not configured"})
			return
		}
		var req struct {
			Room    string `json:"room"`
			HouseID string `json:"house_id"`
			PeerID  string `json:"peer_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.HouseID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		peer := domain.PeerID(req.PeerID)
		if peer == "" {
			peer = domain.NewVoicePeerID()
		}
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Str("peer", string(peer)).Msg("voice join requested")
		err := engine.Voice.JoinVoice(req.Room, domain.HouseID(req.HouseID), peer)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"joined": true, "peer_id": peer})
		case errors.Is(err, orch.ErrAlreadyInVoice):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			// Local-precondition failures surface to the caller.
			c.JSON(http.StatusFailedDependency, gin.H{"error": err.Error()})
		}
	})

	api.POST("/voice/leave", func(c *gin.Context) {
		if engine.Voice != nil {
			engine.Voice.LeaveVoice()
		}
		c.JSON(http.StatusOK, gin.H{"left": true})
	})

	api.POST("/voice/mute", func(c *gin.Context) {
		if engine.Voice == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "voice not configured"})
			return
		}
		var req struct {
			Muted bool `json:"muted"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		engine.Voice.SetMuted(req.Muted)
		c.JSON(http.StatusOK, gin.H{"muted": req.Muted})
	})

	return r
}
