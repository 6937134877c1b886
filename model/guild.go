package model

import (
	"time"

	"gorm.io/datatypes"
)

// Guild is the guild row.
type Guild struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	LeaderID  int64     `gorm:"index:idx_guild_leader;not null" json:"leader_id"`
	MOTD      string    `gorm:"size:128" json:"motd"`
	Info      string    `gorm:"type:text" json:"info"`
	Money     uint64    `gorm:"default:0" json:"money"`
	CreatedAt time.Time `json:"created_at"`
	// DailyResetAt and WeeklyResetAt mark the last quota resets applied to
	// the guild's members.
	DailyResetAt  *time.Time `json:"daily_reset_at"`
	WeeklyResetAt *time.Time `json:"weekly_reset_at"`
}

// GuildRank is one rank of a guild. RankID is stable, RankOrder is the
// rank's position with 0 being the guild master.
type GuildRank struct {
	GuildID     int64  `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	RankID      uint8  `gorm:"primaryKey;autoIncrement:false" json:"rank_id"`
	RankOrder   uint8  `gorm:"not null" json:"rank_order"`
	Name        string `gorm:"size:32;not null" json:"name"`
	Rights      uint32 `gorm:"default:0" json:"rights"`
	MoneyPerDay int64  `gorm:"default:0" json:"money_per_day"`
}

// GuildBankRight holds a rank's rights and daily slot cap on one tab.
type GuildBankRight struct {
	GuildID     int64 `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	RankID      uint8 `gorm:"primaryKey;autoIncrement:false" json:"rank_id"`
	Tab         int   `gorm:"primaryKey;autoIncrement:false" json:"tab"`
	Rights      uint8 `gorm:"default:0" json:"rights"`
	SlotsPerDay int32 `gorm:"default:0" json:"slots_per_day"`
}

// GuildBankTab is a purchased bank tab.
type GuildBankTab struct {
	GuildID int64  `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	Tab     int    `gorm:"primaryKey;autoIncrement:false" json:"tab"`
	Name    string `gorm:"size:16" json:"name"`
	Icon    string `gorm:"size:100" json:"icon"`
	Text    string `gorm:"size:500" json:"text"`
}

// GuildBankItem places an item instance in a bank tab slot.
type GuildBankItem struct {
	GuildID  int64 `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	Tab      int   `gorm:"primaryKey;autoIncrement:false" json:"tab"`
	Slot     int   `gorm:"primaryKey;autoIncrement:false" json:"slot"`
	ItemGUID int64 `gorm:"uniqueIndex;not null" json:"item_guid"`
}

// GuildMember links a character to a guild. The withdraw counters are kept
// as JSON arrays indexed by tab.
type GuildMember struct {
	CharID            int64          `gorm:"primaryKey;autoIncrement:false" json:"char_id"`
	GuildID           int64          `gorm:"index:idx_guild_member;not null" json:"guild_id"`
	RankID            uint8          `gorm:"not null" json:"rank_id"`
	PublicNote        string         `gorm:"size:31" json:"public_note"`
	OfficerNote       string         `gorm:"size:31" json:"officer_note"`
	LogoutAt          *time.Time     `json:"logout_at"`
	WeekActivity      uint32         `gorm:"default:0" json:"week_activity"`
	WeekReputation    uint32         `gorm:"default:0" json:"week_reputation"`
	BankWithdraw      datatypes.JSON `json:"bank_withdraw"`
	BankWithdrawMoney int64          `gorm:"default:0" json:"bank_withdraw_money"`
	Criteria          datatypes.JSON `json:"criteria"`
	JoinedAt          time.Time      `gorm:"autoCreateTime" json:"joined_at"`
}

// GuildEventLog is one row of the guild event ring. LogID wraps, so rows
// are overwritten in place.
type GuildEventLog struct {
	GuildID   int64     `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	LogID     uint32    `gorm:"primaryKey;autoIncrement:false" json:"log_id"`
	EventType uint8     `gorm:"not null" json:"event_type"`
	PlayerID  int64     `json:"player_id"`
	TargetID  int64     `json:"target_id"`
	NewRank   uint8     `json:"new_rank"`
	CreatedAt time.Time `gorm:"index:idx_guild_event_time" json:"created_at"`
}

// GuildBankEventLog is one row of a bank log ring, per tab or the money tab.
type GuildBankEventLog struct {
	GuildID     int64     `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	Tab         int       `gorm:"primaryKey;autoIncrement:false" json:"tab"`
	LogID       uint32    `gorm:"primaryKey;autoIncrement:false" json:"log_id"`
	EventType   uint8     `gorm:"not null" json:"event_type"`
	PlayerID    int64     `json:"player_id"`
	ItemOrMoney uint64    `json:"item_or_money"`
	Count       uint32    `json:"count"`
	DestTab     int       `json:"dest_tab"`
	TxnID       string    `gorm:"index:idx_guild_bank_txn;size:36" json:"txn_id"`
	CreatedAt   time.Time `gorm:"index:idx_guild_bank_time" json:"created_at"`
}

// GuildNewsLog is one row of the news ring.
type GuildNewsLog struct {
	GuildID   int64     `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	LogID     uint32    `gorm:"primaryKey;autoIncrement:false" json:"log_id"`
	NewsType  uint8     `gorm:"not null" json:"news_type"`
	PlayerID  int64     `json:"player_id"`
	Flags     uint32    `json:"flags"`
	Value     uint32    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}
