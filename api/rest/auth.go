package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/guildbank/cache"
	"github.com/kasuganosora/guildbank/config"
	mw "github.com/kasuganosora/guildbank/middleware"
	"github.com/kasuganosora/guildbank/storage"
	"go.uber.org/zap"
)

// AuthHandler manages character sessions. Players log in through the
// account service, which shares the session cache; the admin issue route
// exists for GM tools and load tests.
type AuthHandler struct {
	chars  *storage.Characters
	cache  cache.Cache
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(chars *storage.Characters, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{chars: chars, cache: c, sec: sec, logger: logger}
}

type issueRequest struct {
	CharID int64 `json:"char_id" binding:"required"`
}

// startSession signs a token for the character and stores its session.
func (h *AuthHandler) startSession(ctx context.Context, accountID, charID int64) (string, error) {
	token, err := mw.GenerateToken(accountID, charID, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.cache.Set(ctx, mw.SessionKey(token), strconv.FormatInt(charID, 10), h.sec.JWTTTLH); err != nil {
		return "", err
	}
	return token, nil
}

// Issue handles POST /api/admin/sessions.
func (h *AuthHandler) Issue(c *gin.Context) {
	var req issueRequest
	if !bind(c, &req) {
		return
	}
	info, err := h.chars.Character(c.Request.Context(), req.CharID)
	if errors.Is(err, storage.ErrCharacterNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}
	if err != nil {
		h.logger.Error("issue session: load character", zap.Int64("char_id", req.CharID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	token, err := h.startSession(c.Request.Context(), info.AccountID, info.CharID)
	if err != nil {
		h.logger.Error("issue session", zap.Int64("char_id", req.CharID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	h.logger.Info("admin issued session", zap.Int64("char_id", info.CharID))
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"account_id": info.AccountID,
		"char_id":    info.CharID,
	})
}

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenStr := bearer(c)
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(tokenStr))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Refresh handles POST /api/auth/refresh. The old token stops working.
func (h *AuthHandler) Refresh(c *gin.Context) {
	charID := mw.GetCharID(c)
	if charID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(bearer(c)))

	newToken, err := h.startSession(c.Request.Context(), mw.GetAccountID(c), charID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": newToken})
}
