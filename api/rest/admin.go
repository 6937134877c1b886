package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/guildbank/game/guild"
	"github.com/kasuganosora/guildbank/game/player"
	"github.com/kasuganosora/guildbank/scheduler"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	svc    *guild.Service
	sm     *player.SessionManager
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(svc *guild.Service, sm *player.SessionManager, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, sm: sm, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online_players":  h.sm.Count(),
		"loaded_guilds":   h.svc.Directory().Len(),
		"scheduler_tasks": h.sched.Tasks(),
	})
}

// ListPlayers returns a snapshot of all online players.
// GET /api/admin/players
func (h *AdminHandler) ListPlayers(c *gin.Context) {
	sessions := h.sm.All()
	type playerInfo struct {
		CharID   int64  `json:"char_id"`
		CharName string `json:"char_name"`
		GuildID  int64  `json:"guild_id"`
	}
	result := make([]playerInfo, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, playerInfo{
			CharID:   s.CharID,
			CharName: s.CharName,
			GuildID:  s.GuildID.Load(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"players": result, "count": len(result)})
}

// KickPlayer forcibly disconnects a player by character ID.
// POST /api/admin/kick/:id
func (h *AdminHandler) KickPlayer(c *gin.Context) {
	charID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	s := h.sm.Get(charID)
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not online"})
		return
	}
	s.Close()
	h.logger.Info("admin kicked player", zap.Int64("char_id", charID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListGuilds returns every loaded guild.
// GET /api/admin/guilds
func (h *AdminHandler) ListGuilds(c *gin.Context) {
	guilds := h.svc.Summaries()
	c.JSON(http.StatusOK, gin.H{"guilds": guilds, "count": len(guilds)})
}

// ResetQuotas runs the daily, or with weekly set the weekly, quota reset
// right away.
// POST /api/admin/guilds/reset
func (h *AdminHandler) ResetQuotas(c *gin.Context) {
	var req struct {
		Weekly bool `json:"weekly"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := h.svc.ResetTimes(c.Request.Context(), req.Weekly); err != nil {
		h.logger.Error("admin quota reset failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}
	h.logger.Info("admin reset guild quotas", zap.Bool("weekly", req.Weekly))
	c.JSON(http.StatusOK, gin.H{"ok": true, "weekly": req.Weekly})
}

// PostNews records a news entry for a guild, for announcements raised
// outside the guild service such as achievements or loot.
// POST /api/admin/guilds/:id/news
func (h *AdminHandler) PostNews(c *gin.Context) {
	guildID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Type   guild.NewsType `json:"type"`
		CharID int64          `json:"char_id"`
		Value  uint32         `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.svc.AddNews(c.Request.Context(), guildID, req.Type, req.CharID, req.Value)
	switch {
	case errors.Is(err, guild.ErrGuildNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "guild not loaded"})
		return
	case err != nil:
		h.logger.Error("admin news failed", zap.Int64("guild_id", guildID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "news failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

// ListSchedulerTasks returns names of all registered tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Tasks()})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// WARNING: if adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection. Set a non-empty
// server.admin_key in config to enable admin routes.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
