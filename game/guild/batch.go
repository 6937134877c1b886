package guild

import (
	"context"
	"time"

	"github.com/kasuganosora/guildbank/game/item"
)

// Store is the durable transaction sink. Commit applies every op of the
// batch or none of them.
type Store interface {
	Commit(ctx context.Context, b *Batch) error
}

// Batch is the write-ahead record of one guild operation.
type Batch struct {
	TxnID   string
	GuildID int64
	Ops     []Op
}

// Op is one upsert or delete in a Batch. Ops carry snapshots: they never
// alias live aggregate state.
type Op interface{ op() }

type (
	// SaveItem upserts an item instance row with its current placement.
	SaveItem struct{ Item item.Item }
	// DeleteItem removes an item instance row.
	DeleteItem struct{ GUID int64 }
	// SaveBankItem points a bank slot at an item.
	SaveBankItem struct {
		GuildID   int64
		Tab, Slot int
		GUID      int64
	}
	// DeleteBankSlot empties a bank slot.
	DeleteBankSlot struct {
		GuildID   int64
		Tab, Slot int
	}
	SaveBankLog struct {
		GuildID int64
		Tab     int
		Record  Record[BankEntry]
	}
	SaveEventLog struct {
		GuildID int64
		Record  Record[EventEntry]
	}
	SaveNews struct {
		GuildID int64
		Record  Record[NewsEntry]
	}
	// SaveMemberWithdraw stores a member's daily and weekly counters.
	SaveMemberWithdraw struct {
		GuildID        int64
		CharID         int64
		Slots          []int32
		Money          int64
		WeekActivity   uint32
		WeekReputation uint32
	}
	SaveGuildMoney struct {
		GuildID int64
		Money   uint64
	}
	SaveCharacterGold struct {
		CharID int64
		Gold   uint64
	}
	SaveRank struct {
		GuildID int64
		Rank    *Rank
	}
	DeleteRank struct {
		GuildID int64
		RankID  uint8
	}
	SaveBankRight struct {
		GuildID int64
		RankID  uint8
		Tab     int
		Rights  TabRights
	}
	SaveBankTab struct {
		GuildID int64
		Tab     int
		Name    string
		Icon    string
		Text    string
	}
	SaveMember struct {
		Member *Member
	}
	DeleteMember struct {
		GuildID int64
		CharID  int64
	}
	SaveGuild struct{ Guild Summary }
	// SaveGuildReset records the reset instants applied to a guild.
	SaveGuildReset struct {
		GuildID       int64
		Daily, Weekly time.Time
	}
	// DeleteGuild removes the guild with every dependent row.
	DeleteGuild struct{ GuildID int64 }
)

func (SaveItem) op()           {}
func (DeleteItem) op()         {}
func (SaveBankItem) op()       {}
func (DeleteBankSlot) op()     {}
func (SaveBankLog) op()        {}
func (SaveEventLog) op()       {}
func (SaveNews) op()           {}
func (SaveMemberWithdraw) op() {}
func (SaveGuildMoney) op()     {}
func (SaveCharacterGold) op()  {}
func (SaveRank) op()           {}
func (DeleteRank) op()         {}
func (SaveBankRight) op()      {}
func (SaveBankTab) op()        {}
func (SaveMember) op()         {}
func (DeleteMember) op()       {}
func (SaveGuild) op()          {}
func (SaveGuildReset) op()     {}
func (DeleteGuild) op()        {}
