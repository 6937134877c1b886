package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/guildbank/audit"
	"github.com/kasuganosora/guildbank/game/guild"
	mw "github.com/kasuganosora/guildbank/middleware"
	"go.uber.org/zap"
)

const guildIDKey = "guild_id"

// GuildHandler exposes the guild and guild bank commands over REST. The
// acting character is always the one bound to the token.
type GuildHandler struct {
	svc    *guild.Service
	audit  *audit.Service
	logger *zap.Logger
}

// NewGuildHandler creates a new GuildHandler.
func NewGuildHandler(svc *guild.Service, auditSvc *audit.Service, logger *zap.Logger) *GuildHandler {
	return &GuildHandler{svc: svc, audit: auditSvc, logger: logger}
}

// Register mounts the guild routes on rg, which must run Auth.
func (h *GuildHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/guilds", h.Create)

	g := rg.Group("/guilds/:id", h.member)
	g.GET("", h.Roster)
	g.DELETE("", h.Disband)
	g.GET("/permissions", h.Permissions)
	g.GET("/events", h.EventLog)
	g.GET("/news", h.News)
	g.PUT("/news/:news_id/sticky", h.SetNewsSticky)
	g.PUT("/motd", h.SetMOTD)
	g.PUT("/info", h.SetInfo)
	g.PUT("/leader", h.SetLeader)
	g.POST("/leave", h.Leave)

	g.POST("/members", h.Invite)
	g.DELETE("/members/:cid", h.Kick)
	g.PUT("/members/:cid/rank", h.UpdateMemberRank)
	g.PUT("/members/:cid/note", h.SetMemberNote)

	g.POST("/ranks", h.CreateRank)
	g.PUT("/ranks/:rank_id", h.SetRankInfo)
	g.POST("/ranks/remove", h.RemoveRank)
	g.POST("/ranks/shift", h.ShiftRank)

	g.POST("/bank/tabs", h.BuyTab)
	g.GET("/bank/tabs/:tab", h.BankTab)
	g.PUT("/bank/tabs/:tab", h.SetTabInfo)
	g.PUT("/bank/tabs/:tab/text", h.SetTabText)
	g.GET("/bank/tabs/:tab/log", h.BankLog)
	g.POST("/bank/transfer", h.Transfer)
	g.GET("/bank/money", h.Money)
	g.GET("/bank/money/log", h.MoneyLog)
	g.POST("/bank/money/deposit", h.DepositMoney)
	g.POST("/bank/money/withdraw", h.WithdrawMoney)
}

// StatusOf maps a guild error to an HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, guild.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, guild.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, guild.ErrQuota), errors.Is(err, guild.ErrCapacity):
		return http.StatusConflict
	case errors.Is(err, guild.ErrIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, guild.ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *GuildHandler) fail(c *gin.Context, err error) {
	status := StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("guild command failed",
			zap.String("path", c.FullPath()),
			zap.Int64("char_id", mw.GetCharID(c)),
			zap.String("trace_id", mw.GetTraceID(c)),
			zap.Error(err))
		msg = "internal error"
	}
	c.JSON(status, gin.H{"code": guild.CodeOf(err), "error": msg})
}

// member checks that the acting character belongs to the guild in the path.
func (h *GuildHandler) member(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid guild id"})
		return
	}
	g := h.svc.Directory().ByMember(mw.GetCharID(c))
	if g == nil || g.ID != id {
		h.fail(c, guild.ErrNotInGuild)
		c.Abort()
		return
	}
	c.Set(guildIDKey, id)
	c.Next()
}

// run executes a mutating command, audits it and writes the result.
func (h *GuildHandler) run(c *gin.Context, action string, req any, fn func(ctx context.Context, charID int64) error) {
	start := time.Now()
	charID := mw.GetCharID(c)
	err := fn(c.Request.Context(), charID)
	h.audit.Command(mw.GetTraceID(c), charID, c.GetInt64(guildIDKey), action, req, err, start)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": guild.CodeSuccess})
}

// bind decodes the JSON body into req and reports a 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func intParam(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func reply[T any](h *GuildHandler, c *gin.Context, v T, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type createGuildRequest struct {
	Name string `json:"name" binding:"required,min=2,max=32"`
}

// Create handles POST /api/guilds.
func (h *GuildHandler) Create(c *gin.Context) {
	var req createGuildRequest
	if !bind(c, &req) {
		return
	}
	start := time.Now()
	charID := mw.GetCharID(c)
	g, err := h.svc.CreateGuild(c.Request.Context(), charID, req.Name)
	var guildID int64
	if g != nil {
		guildID = g.ID
	}
	h.audit.Command(mw.GetTraceID(c), charID, guildID, "guild_create", req, err, start)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": guild.CodeSuccess, "guild_id": guildID})
}

// Roster handles GET /api/guilds/:id.
func (h *GuildHandler) Roster(c *gin.Context) {
	v, err := h.svc.Roster(mw.GetCharID(c))
	reply(h, c, v, err)
}

// Disband handles DELETE /api/guilds/:id.
func (h *GuildHandler) Disband(c *gin.Context) {
	h.run(c, "guild_disband", nil, h.svc.Disband)
}

// Permissions handles GET /api/guilds/:id/permissions.
func (h *GuildHandler) Permissions(c *gin.Context) {
	v, err := h.svc.Permissions(mw.GetCharID(c))
	reply(h, c, v, err)
}

// EventLog handles GET /api/guilds/:id/events.
func (h *GuildHandler) EventLog(c *gin.Context) {
	v, err := h.svc.EventLog(mw.GetCharID(c))
	reply(h, c, gin.H{"events": v}, err)
}

// News handles GET /api/guilds/:id/news.
func (h *GuildHandler) News(c *gin.Context) {
	v, err := h.svc.News(mw.GetCharID(c))
	reply(h, c, gin.H{"news": v}, err)
}

type stickyRequest struct {
	Sticky bool `json:"sticky"`
}

// SetNewsSticky handles PUT /api/guilds/:id/news/:news_id/sticky.
func (h *GuildHandler) SetNewsSticky(c *gin.Context) {
	id, ok := intParam(c, "news_id")
	if !ok {
		return
	}
	var req stickyRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_news_sticky", req, func(ctx context.Context, charID int64) error {
		return h.svc.SetNewsSticky(ctx, charID, uint32(id), req.Sticky)
	})
}

type textRequest struct {
	Text string `json:"text" binding:"max=500"`
}

// SetMOTD handles PUT /api/guilds/:id/motd.
func (h *GuildHandler) SetMOTD(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_motd", req, func(ctx context.Context, charID int64) error {
		return h.svc.SetMOTD(ctx, charID, req.Text)
	})
}

// SetInfo handles PUT /api/guilds/:id/info.
func (h *GuildHandler) SetInfo(c *gin.Context) {
	var req textRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_info", req, func(ctx context.Context, charID int64) error {
		return h.svc.SetInfo(ctx, charID, req.Text)
	})
}

type targetRequest struct {
	CharID int64 `json:"char_id" binding:"required"`
}

// SetLeader handles PUT /api/guilds/:id/leader.
func (h *GuildHandler) SetLeader(c *gin.Context) {
	var req targetRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_set_leader", req, func(ctx context.Context, charID int64) error {
		return h.svc.SetLeader(ctx, charID, req.CharID)
	})
}

// Leave handles POST /api/guilds/:id/leave.
func (h *GuildHandler) Leave(c *gin.Context) {
	h.run(c, "guild_leave", nil, h.svc.Leave)
}

// Invite handles POST /api/guilds/:id/members.
func (h *GuildHandler) Invite(c *gin.Context) {
	var req targetRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_invite", req, func(ctx context.Context, charID int64) error {
		return h.svc.Invite(ctx, charID, req.CharID)
	})
}

// Kick handles DELETE /api/guilds/:id/members/:cid.
func (h *GuildHandler) Kick(c *gin.Context) {
	target, ok := intParam(c, "cid")
	if !ok {
		return
	}
	h.run(c, "guild_kick", gin.H{"char_id": target}, func(ctx context.Context, charID int64) error {
		return h.svc.Kick(ctx, charID, target)
	})
}

type memberRankRequest struct {
	Demote bool `json:"demote"`
}

// UpdateMemberRank handles PUT /api/guilds/:id/members/:cid/rank.
func (h *GuildHandler) UpdateMemberRank(c *gin.Context) {
	target, ok := intParam(c, "cid")
	if !ok {
		return
	}
	var req memberRankRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_member_rank", req, func(ctx context.Context, charID int64) error {
		return h.svc.UpdateMemberRank(ctx, charID, target, req.Demote)
	})
}

type noteRequest struct {
	Note    string `json:"note" binding:"max=31"`
	Officer bool   `json:"officer"`
}

// SetMemberNote handles PUT /api/guilds/:id/members/:cid/note.
func (h *GuildHandler) SetMemberNote(c *gin.Context) {
	target, ok := intParam(c, "cid")
	if !ok {
		return
	}
	var req noteRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_member_note", req, func(ctx context.Context, charID int64) error {
		return h.svc.SetMemberNote(ctx, charID, target, req.Note, req.Officer)
	})
}

type createRankRequest struct {
	Name string `json:"name" binding:"required,max=32"`
}

// CreateRank handles POST /api/guilds/:id/ranks.
func (h *GuildHandler) CreateRank(c *gin.Context) {
	var req createRankRequest
	if !bind(c, &req) {
		return
	}
	start := time.Now()
	charID := mw.GetCharID(c)
	id, err := h.svc.CreateRank(c.Request.Context(), charID, req.Name)
	h.audit.Command(mw.GetTraceID(c), charID, c.GetInt64(guildIDKey), "guild_rank_create", req, err, start)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": guild.CodeSuccess, "rank_id": id})
}

// SetRankInfo handles PUT /api/guilds/:id/ranks/:rank_id.
func (h *GuildHandler) SetRankInfo(c *gin.Context) {
	id, ok := intParam(c, "rank_id")
	if !ok {
		return
	}
	var req guild.RankEdit
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_rank_update", req, func(ctx context.Context, charID int64) error {
		return h.svc.SetRankInfo(ctx, charID, uint8(id), req)
	})
}

type rankOrderRequest struct {
	Order uint8 `json:"order"`
	Up    bool  `json:"up"`
}

// RemoveRank handles POST /api/guilds/:id/ranks/remove.
func (h *GuildHandler) RemoveRank(c *gin.Context) {
	var req rankOrderRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_rank_remove", req, func(ctx context.Context, charID int64) error {
		return h.svc.RemoveRank(ctx, charID, req.Order)
	})
}

// ShiftRank handles POST /api/guilds/:id/ranks/shift.
func (h *GuildHandler) ShiftRank(c *gin.Context) {
	var req rankOrderRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_rank_shift", req, func(ctx context.Context, charID int64) error {
		return h.svc.ShiftRank(ctx, charID, req.Order, req.Up)
	})
}

type buyTabRequest struct {
	Tab int `json:"tab"`
}

// BuyTab handles POST /api/guilds/:id/bank/tabs.
func (h *GuildHandler) BuyTab(c *gin.Context) {
	var req buyTabRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_bank_buy_tab", req, func(ctx context.Context, charID int64) error {
		return h.svc.BuyBankTab(ctx, charID, req.Tab)
	})
}

// BankTab handles GET /api/guilds/:id/bank/tabs/:tab.
func (h *GuildHandler) BankTab(c *gin.Context) {
	tab, ok := intParam(c, "tab")
	if !ok {
		return
	}
	v, err := h.svc.BankTab(mw.GetCharID(c), int(tab))
	reply(h, c, v, err)
}

type tabInfoRequest struct {
	Name string `json:"name" binding:"max=16"`
	Icon string `json:"icon" binding:"max=100"`
}

// SetTabInfo handles PUT /api/guilds/:id/bank/tabs/:tab.
func (h *GuildHandler) SetTabInfo(c *gin.Context) {
	tab, ok := intParam(c, "tab")
	if !ok {
		return
	}
	var req tabInfoRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_bank_tab_info", req, func(ctx context.Context, charID int64) error {
		return h.svc.SetBankTabInfo(ctx, charID, int(tab), req.Name, req.Icon)
	})
}

// SetTabText handles PUT /api/guilds/:id/bank/tabs/:tab/text.
func (h *GuildHandler) SetTabText(c *gin.Context) {
	tab, ok := intParam(c, "tab")
	if !ok {
		return
	}
	var req textRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_bank_tab_text", req, func(ctx context.Context, charID int64) error {
		return h.svc.SetBankTabText(ctx, charID, int(tab), req.Text)
	})
}

// BankLog handles GET /api/guilds/:id/bank/tabs/:tab/log.
func (h *GuildHandler) BankLog(c *gin.Context) {
	tab, ok := intParam(c, "tab")
	if !ok {
		return
	}
	if tab == guild.MoneyTab {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tab"})
		return
	}
	v, err := h.svc.BankLog(mw.GetCharID(c), int(tab))
	reply(h, c, gin.H{"log": v}, err)
}

type transferRequest struct {
	Src   guild.Location `json:"src"`
	Dst   guild.Location `json:"dst"`
	Split uint32         `json:"split"`
}

// Transfer handles POST /api/guilds/:id/bank/transfer.
func (h *GuildHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_bank_swap", req, func(ctx context.Context, charID int64) error {
		return h.svc.Transfer(ctx, charID, req.Src, req.Dst, req.Split)
	})
}

// Money handles GET /api/guilds/:id/bank/money.
func (h *GuildHandler) Money(c *gin.Context) {
	charID := mw.GetCharID(c)
	remaining, err := h.svc.RemainingMoney(charID)
	if err != nil {
		h.fail(c, err)
		return
	}
	v, err := h.svc.Roster(charID)
	reply(h, c, guild.MoneyUpdate{Money: v.Money, Remaining: remaining}, err)
}

// MoneyLog handles GET /api/guilds/:id/bank/money/log.
func (h *GuildHandler) MoneyLog(c *gin.Context) {
	v, err := h.svc.BankLog(mw.GetCharID(c), guild.MoneyTab)
	reply(h, c, gin.H{"log": v}, err)
}

type moneyRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
	Repair bool   `json:"repair"`
}

// DepositMoney handles POST /api/guilds/:id/bank/money/deposit.
func (h *GuildHandler) DepositMoney(c *gin.Context) {
	var req moneyRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_bank_deposit_money", req, func(ctx context.Context, charID int64) error {
		return h.svc.DepositMoney(ctx, charID, req.Amount, false)
	})
}

// WithdrawMoney handles POST /api/guilds/:id/bank/money/withdraw.
func (h *GuildHandler) WithdrawMoney(c *gin.Context) {
	var req moneyRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, "guild_bank_withdraw_money", req, func(ctx context.Context, charID int64) error {
		return h.svc.WithdrawMoney(ctx, charID, req.Amount, req.Repair)
	})
}
