package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/kasuganosora/guildbank/audit"
	"github.com/kasuganosora/guildbank/cache"
	"github.com/kasuganosora/guildbank/game/guild"
	"github.com/kasuganosora/guildbank/game/player"
	"go.uber.org/zap"
)

// Reply packet types.
const (
	PacketCommandResult = "guild_command_result"
	PacketRoster        = "guild_roster"
	PacketBankLog       = "guild_bank_log"
	PacketRemaining     = "guild_bank_remaining_withdraw"
)

const commandLockTTL = 5 * time.Second

var (
	errMalformed = errors.New("malformed payload")
	errBusy      = errors.New("another guild command is in progress")
)

// CommandLockKey is the cache key that serializes the guild commands of one
// character across nodes.
func CommandLockKey(charID int64) string {
	return "guildbank:cmd:" + strconv.FormatInt(charID, 10)
}

// CommandResult answers every mutating guild command.
type CommandResult struct {
	Command string           `json:"command"`
	Code    guild.ResultCode `json:"code"`
	Error   string           `json:"error,omitempty"`
}

// GuildHandlers handles guild and guild bank WebSocket messages.
type GuildHandlers struct {
	svc    *guild.Service
	audit  *audit.Service
	cache  cache.Cache
	logger *zap.Logger
}

// NewGuildHandlers creates GuildHandlers.
func NewGuildHandlers(svc *guild.Service, auditSvc *audit.Service, c cache.Cache, logger *zap.Logger) *GuildHandlers {
	return &GuildHandlers{svc: svc, audit: auditSvc, cache: c, logger: logger}
}

// RegisterHandlers registers guild WS handlers.
func (h *GuildHandlers) RegisterHandlers(r *Router) {
	// bank
	r.On("guild_bank_swap", h.command("guild_bank_swap", h.swap))
	r.On("guild_bank_deposit_money", h.command("guild_bank_deposit_money", h.depositMoney))
	r.On("guild_bank_withdraw_money", h.command("guild_bank_withdraw_money", h.withdrawMoney))
	r.On("guild_bank_buy_tab", h.command("guild_bank_buy_tab", h.buyTab))
	r.On("guild_bank_update_tab", h.command("guild_bank_update_tab", h.updateTab))
	r.On("guild_bank_set_tab_text", h.command("guild_bank_set_tab_text", h.setTabText))
	r.On("guild_bank_query_tab", h.QueryTab)
	r.On("guild_bank_query_log", h.QueryLog)
	r.On("guild_bank_remaining_withdraw", h.QueryRemaining)

	// ranks
	r.On("guild_rank_create", h.command("guild_rank_create", h.createRank))
	r.On("guild_rank_remove", h.command("guild_rank_remove", h.removeRank))
	r.On("guild_rank_shift", h.command("guild_rank_shift", h.shiftRank))
	r.On("guild_rank_update", h.command("guild_rank_update", h.updateRank))

	// membership
	r.On("guild_create", h.command("guild_create", h.create))
	r.On("guild_invite", h.command("guild_invite", h.invite))
	r.On("guild_leave", h.command("guild_leave", h.leave))
	r.On("guild_kick", h.command("guild_kick", h.kick))
	r.On("guild_promote", h.command("guild_promote", h.memberRank(false)))
	r.On("guild_demote", h.command("guild_demote", h.memberRank(true)))
	r.On("guild_set_leader", h.command("guild_set_leader", h.setLeader))
	r.On("guild_disband", h.command("guild_disband", h.disband))
	r.On("guild_motd", h.command("guild_motd", h.motd))
	r.On("guild_info", h.command("guild_info", h.info))
	r.On("guild_set_note", h.command("guild_set_note", h.note))
	r.On("guild_news_sticky", h.command("guild_news_sticky", h.newsSticky))

	// queries
	r.On("guild_roster", h.QueryRoster)
	r.On("guild_permissions_query", h.QueryPermissions)
	r.On("guild_event_log_query", h.QueryEventLog)
	r.On("guild_news_query", h.QueryNews)
}

// commandFn runs one decoded command and returns the request for the audit
// log.
type commandFn func(ctx context.Context, charID int64, raw json.RawMessage) (any, error)

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errMalformed
	}
	return v, nil
}

// command wraps fn with the per-character lock, the audit log and the
// result packet. Only internal failures are reported to the router.
func (h *GuildHandlers) command(name string, fn commandFn) HandlerFunc {
	return func(ctx context.Context, s *player.PlayerSession, raw json.RawMessage) error {
		start := time.Now()
		release, err := h.lock(ctx, s.CharID)
		if err != nil {
			h.reply(s, name, err)
			return nil
		}
		defer release()

		before := s.GuildID.Load()
		req, err := fn(ctx, s.CharID, raw)
		h.syncGuild(s)
		guildID := before
		if guildID == 0 {
			guildID = s.GuildID.Load()
		}
		h.audit.Command(TraceIDFromCtx(ctx), s.CharID, guildID, name, req, err, start)
		h.reply(s, name, err)
		if errors.Is(err, guild.ErrInternal) {
			return err
		}
		return nil
	}
}

// lock takes the command lock of charID. The returned func releases it.
func (h *GuildHandlers) lock(ctx context.Context, charID int64) (func(), error) {
	key := CommandLockKey(charID)
	ok, err := h.cache.SetNX(ctx, key, TraceIDFromCtx(ctx), commandLockTTL)
	if err != nil {
		h.logger.Error("guild command lock", zap.Int64("char_id", charID), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, errBusy
	}
	return func() {
		if err := h.cache.Del(context.Background(), key); err != nil {
			h.logger.Warn("guild command unlock", zap.Int64("char_id", charID), zap.Error(err))
		}
	}, nil
}

func (h *GuildHandlers) syncGuild(s *player.PlayerSession) {
	var id int64
	if g := h.svc.Directory().ByMember(s.CharID); g != nil {
		id = g.ID
	}
	s.GuildID.Store(id)
}

func (h *GuildHandlers) reply(s *player.PlayerSession, name string, err error) {
	res := CommandResult{Command: name, Code: guild.CodeOf(err)}
	if err != nil {
		res.Error = err.Error()
		if errors.Is(err, guild.ErrInternal) {
			res.Error = "internal error"
		}
	}
	s.SendJSON(PacketCommandResult, res)
}

// query sends v as an event of typ, the same envelope pushed updates use,
// or a failed result for name when err is set.
func query[T any](h *GuildHandlers, s *player.PlayerSession, name, typ string, v T, err error) error {
	if err != nil {
		h.reply(s, name, err)
		return nil
	}
	s.SendJSON(typ, guild.Event{Type: typ, GuildID: s.GuildID.Load(), Data: v})
	return nil
}

// ---- bank ----

type swapPayload struct {
	Src   guild.Location `json:"src"`
	Dst   guild.Location `json:"dst"`
	Split uint32         `json:"split"`
}

func (h *GuildHandlers) swap(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[swapPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.Transfer(ctx, charID, req.Src, req.Dst, req.Split)
}

type moneyPayload struct {
	Amount uint64 `json:"amount"`
	Repair bool   `json:"repair"`
}

func (h *GuildHandlers) depositMoney(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[moneyPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.DepositMoney(ctx, charID, req.Amount, false)
}

func (h *GuildHandlers) withdrawMoney(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[moneyPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.WithdrawMoney(ctx, charID, req.Amount, req.Repair)
}

type tabPayload struct {
	Tab  int    `json:"tab"`
	Name string `json:"name,omitempty"`
	Icon string `json:"icon,omitempty"`
	Text string `json:"text,omitempty"`
}

func (h *GuildHandlers) buyTab(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[tabPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.BuyBankTab(ctx, charID, req.Tab)
}

func (h *GuildHandlers) updateTab(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[tabPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.SetBankTabInfo(ctx, charID, req.Tab, req.Name, req.Icon)
}

func (h *GuildHandlers) setTabText(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[tabPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.SetBankTabText(ctx, charID, req.Tab, req.Text)
}

// QueryTab sends the content of one bank tab.
func (h *GuildHandlers) QueryTab(_ context.Context, s *player.PlayerSession, raw json.RawMessage) error {
	req, err := decode[tabPayload](raw)
	if err != nil {
		h.reply(s, "guild_bank_query_tab", err)
		return nil
	}
	v, err := h.svc.BankTab(s.CharID, req.Tab)
	return query(h, s, "guild_bank_query_tab", guild.EventBankContent, v, err)
}

type bankLog struct {
	Tab     int                             `json:"tab"`
	Entries []guild.Record[guild.BankEntry] `json:"entries"`
}

// QueryLog sends the log of a bank tab, or of the money tab.
func (h *GuildHandlers) QueryLog(_ context.Context, s *player.PlayerSession, raw json.RawMessage) error {
	req, err := decode[tabPayload](raw)
	if err != nil {
		h.reply(s, "guild_bank_query_log", err)
		return nil
	}
	entries, err := h.svc.BankLog(s.CharID, req.Tab)
	return query(h, s, "guild_bank_query_log", PacketBankLog, bankLog{Tab: req.Tab, Entries: entries}, err)
}

// QueryRemaining sends the money the character may still withdraw today.
func (h *GuildHandlers) QueryRemaining(_ context.Context, s *player.PlayerSession, _ json.RawMessage) error {
	left, err := h.svc.RemainingMoney(s.CharID)
	return query(h, s, "guild_bank_remaining_withdraw", PacketRemaining, map[string]int64{"remaining_money": left}, err)
}

// ---- ranks ----

type rankPayload struct {
	Name  string `json:"name"`
	Order uint8  `json:"order"`
	Up    bool   `json:"up"`
}

func (h *GuildHandlers) createRank(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[rankPayload](raw)
	if err != nil {
		return nil, err
	}
	_, err = h.svc.CreateRank(ctx, charID, req.Name)
	return req, err
}

func (h *GuildHandlers) removeRank(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[rankPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.RemoveRank(ctx, charID, req.Order)
}

func (h *GuildHandlers) shiftRank(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[rankPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.ShiftRank(ctx, charID, req.Order, req.Up)
}

type rankUpdatePayload struct {
	RankID uint8 `json:"rank_id"`
	guild.RankEdit
}

func (h *GuildHandlers) updateRank(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[rankUpdatePayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.SetRankInfo(ctx, charID, req.RankID, req.RankEdit)
}

// ---- membership ----

type memberPayload struct {
	CharID  int64  `json:"char_id"`
	Name    string `json:"name,omitempty"`
	Text    string `json:"text,omitempty"`
	Note    string `json:"note,omitempty"`
	Officer bool   `json:"officer,omitempty"`
}

func (h *GuildHandlers) create(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[memberPayload](raw)
	if err != nil {
		return nil, err
	}
	_, err = h.svc.CreateGuild(ctx, charID, req.Name)
	return req, err
}

func (h *GuildHandlers) invite(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[memberPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.Invite(ctx, charID, req.CharID)
}

func (h *GuildHandlers) leave(ctx context.Context, charID int64, _ json.RawMessage) (any, error) {
	return nil, h.svc.Leave(ctx, charID)
}

func (h *GuildHandlers) kick(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[memberPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.Kick(ctx, charID, req.CharID)
}

func (h *GuildHandlers) memberRank(demote bool) commandFn {
	return func(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
		req, err := decode[memberPayload](raw)
		if err != nil {
			return nil, err
		}
		return req, h.svc.UpdateMemberRank(ctx, charID, req.CharID, demote)
	}
}

func (h *GuildHandlers) setLeader(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[memberPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.SetLeader(ctx, charID, req.CharID)
}

func (h *GuildHandlers) disband(ctx context.Context, charID int64, _ json.RawMessage) (any, error) {
	return nil, h.svc.Disband(ctx, charID)
}

func (h *GuildHandlers) motd(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[memberPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.SetMOTD(ctx, charID, req.Text)
}

func (h *GuildHandlers) info(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[memberPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.SetInfo(ctx, charID, req.Text)
}

func (h *GuildHandlers) note(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[memberPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.SetMemberNote(ctx, charID, req.CharID, req.Note, req.Officer)
}

type stickyPayload struct {
	ID     uint32 `json:"id"`
	Sticky bool   `json:"sticky"`
}

func (h *GuildHandlers) newsSticky(ctx context.Context, charID int64, raw json.RawMessage) (any, error) {
	req, err := decode[stickyPayload](raw)
	if err != nil {
		return nil, err
	}
	return req, h.svc.SetNewsSticky(ctx, charID, req.ID, req.Sticky)
}

// ---- queries ----

// QueryRoster sends the guild roster.
func (h *GuildHandlers) QueryRoster(_ context.Context, s *player.PlayerSession, _ json.RawMessage) error {
	v, err := h.svc.Roster(s.CharID)
	return query(h, s, "guild_roster", PacketRoster, v, err)
}

// QueryPermissions sends the character's rights and remaining quotas.
func (h *GuildHandlers) QueryPermissions(_ context.Context, s *player.PlayerSession, _ json.RawMessage) error {
	v, err := h.svc.Permissions(s.CharID)
	return query(h, s, "guild_permissions_query", guild.EventPermissions, v, err)
}

// QueryEventLog sends the guild event log.
func (h *GuildHandlers) QueryEventLog(_ context.Context, s *player.PlayerSession, _ json.RawMessage) error {
	v, err := h.svc.EventLog(s.CharID)
	return query(h, s, "guild_event_log_query", guild.EventEventLog, v, err)
}

// QueryNews sends the guild news.
func (h *GuildHandlers) QueryNews(_ context.Context, s *player.PlayerSession, _ json.RawMessage) error {
	v, err := h.svc.News(s.CharID)
	return query(h, s, "guild_news_query", guild.EventNews, v, err)
}
