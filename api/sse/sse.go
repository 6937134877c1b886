package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/guildbank/cache"
	"github.com/kasuganosora/guildbank/config"
	"github.com/kasuganosora/guildbank/game/guild"
	mw "github.com/kasuganosora/guildbank/middleware"
	"github.com/kasuganosora/guildbank/notify"
	"go.uber.org/zap"
)

const announceChannel = "announce"

// Handler streams the events of the caller's guild to read-only clients
// such as the guild website and bank dashboards.
type Handler struct {
	pubsub    cache.PubSub
	sec       config.SecurityConfig
	c         cache.Cache
	svc       *guild.Service
	logger    *zap.Logger
	keepalive time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, c cache.Cache, sec config.SecurityConfig, svc *guild.Service, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, c: c, sec: sec, svc: svc, logger: logger, keepalive: 30 * time.Second}
}

// ServeSSE handles GET /sse?token=<jwt>.
// It streams the guild events of the token's character and system
// announcements. The stream ends when the guild is disbanded.
func (h *Handler) ServeSSE(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, ok := mw.CheckSession(c.Request.Context(), h.sec, h.c, tokenStr)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	g := h.svc.Directory().ByMember(claims.CharID)
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": guild.CodePlayerNotInGuild, "error": guild.ErrNotInGuild.Error()})
		return
	}
	guildChannel := notify.GuildChannel(g.ID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, guildChannel, announceChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Int64("guild_id", g.ID), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"guild_id\":%d}\n\n", g.ID)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			if msg.Channel == announceChannel {
				fmt.Fprintf(c.Writer, "event: announce\ndata: %s\n\n", msg.Payload)
				c.Writer.Flush()
				continue
			}
			var head eventHead
			if err := json.Unmarshal([]byte(msg.Payload), &head); err != nil || head.Type == "" {
				h.logger.Warn("sse: bad guild event", zap.Int64("guild_id", g.ID), zap.Error(err))
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", head.Type, msg.Payload)
			c.Writer.Flush()
			if head.ends(claims.CharID) {
				return
			}

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

type eventHead struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ends reports whether the event closes the stream of charID: the guild is
// gone or the character is no longer a member.
func (e eventHead) ends(charID int64) bool {
	switch e.Type {
	case guild.EventDisbanded:
		return true
	case guild.EventMemberLeft, guild.EventMemberRemoved:
		var who struct {
			CharID int64 `json:"char_id"`
		}
		return json.Unmarshal(e.Data, &who) == nil && who.CharID == charID
	}
	return false
}

// Announce publishes an announcement message to all SSE subscribers.
func (h *Handler) Announce(ctx context.Context, message string) error {
	return h.pubsub.Publish(ctx, announceChannel, message)
}

// HandleAnnounce handles POST /api/admin/announce.
func (h *Handler) HandleAnnounce(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, _ := json.Marshal(gin.H{"message": req.Message})
	if err := h.Announce(c.Request.Context(), string(data)); err != nil {
		h.logger.Error("announce failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "publish failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
