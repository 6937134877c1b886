package guild

// Event types pushed to clients.
const (
	EventBankContent   = "guild_bank_content"
	EventBankMoney     = "guild_bank_money"
	EventBankTab       = "guild_bank_tab_updated"
	EventBankTabBought = "guild_bank_tab_bought"
	EventRankUpdated   = "guild_rank_updated"
	EventRankDeleted   = "guild_rank_deleted"
	EventRankOrder     = "guild_rank_order"
	EventPermissions   = "guild_permissions"
	EventMemberJoined  = "guild_member_joined"
	EventMemberLeft    = "guild_member_left"
	EventMemberRemoved = "guild_member_removed"
	EventMemberRank    = "guild_member_rank"
	EventLeaderChanged = "guild_leader_changed"
	EventMOTD          = "guild_motd"
	EventInfo          = "guild_info"
	EventNote          = "guild_member_note"
	EventEventLog      = "guild_event_log"
	EventNews          = "guild_news"
	EventQuotaReset    = "guild_quota_reset"
	EventDisbanded     = "guild_disbanded"
)

// Event is a notification about a guild.
type Event struct {
	Type    string `json:"type"`
	GuildID int64  `json:"guild_id"`
	Data    any    `json:"data,omitempty"`
}

// Delivery is an event addressed to one character.
type Delivery struct {
	CharID int64 `json:"char_id"`
	Event  Event `json:"event"`
}

// Notifier delivers events. The Service calls it after releasing the guild
// lock. Notify hands over the per-character events of one operation and
// drops those of offline characters; Publish fans out to guild-wide
// listeners.
type Notifier interface {
	Notify(guildID int64, ds []Delivery)
	Publish(guildID int64, ev Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(int64, []Delivery) {}
func (nopNotifier) Publish(int64, Event)     {}

// SlotView is one bank slot in a content update.
type SlotView struct {
	Slot int       `json:"slot"`
	Item *ItemView `json:"item,omitempty"`
}

// ItemView is the client view of an item.
type ItemView struct {
	GUID  int64  `json:"guid"`
	Entry int    `json:"entry"`
	Count uint32 `json:"count"`
}

// BankContent is the payload of EventBankContent.
type BankContent struct {
	Tab       int        `json:"tab"`
	Slots     []SlotView `json:"slots"`
	Remaining int32      `json:"remaining_withdrawals"`
	BankMoney uint64     `json:"bank_money"`
}

// MoneyUpdate is the payload of EventBankMoney.
type MoneyUpdate struct {
	Money     uint64 `json:"money"`
	Remaining int64  `json:"remaining_money"`
}
