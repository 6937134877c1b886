package guild

import "math"

// RankRights is the guild-wide rights bitmask of a rank.
type RankRights uint32

const (
	RightEmpty            RankRights = 0x00000040
	RightGChatListen      RankRights = RightEmpty | 0x00000001
	RightGChatSpeak       RankRights = RightEmpty | 0x00000002
	RightOffChatListen    RankRights = RightEmpty | 0x00000004
	RightOffChatSpeak     RankRights = RightEmpty | 0x00000008
	RightInvite           RankRights = RightEmpty | 0x00000010
	RightRemove           RankRights = RightEmpty | 0x00000020
	RightPromote          RankRights = RightEmpty | 0x00000080
	RightDemote           RankRights = RightEmpty | 0x00000100
	RightSetMOTD          RankRights = RightEmpty | 0x00001000
	RightEditPublicNote   RankRights = RightEmpty | 0x00002000
	RightViewOfficerNote  RankRights = RightEmpty | 0x00004000
	RightEditOfficerNote  RankRights = RightEmpty | 0x00008000
	RightModifyGuildInfo  RankRights = RightEmpty | 0x00010000
	RightWithdrawGoldLock RankRights = 0x00020000
	RightWithdrawRepair   RankRights = 0x00040000
	RightWithdrawGold     RankRights = 0x00080000
	RightCreateGuildEvent RankRights = 0x00100000
	RightAll              RankRights = 0x00DDFFBF
)

// Has reports whether r grants every bit of want. The shared RightEmpty
// marker bit is ignored.
func (r RankRights) Has(want RankRights) bool {
	want &^= RightEmpty
	return want != 0 && r&want == want
}

// BankRights is the per-tab rights bitmask of a rank.
type BankRights uint8

const (
	BankRightViewTab    BankRights = 0x01
	BankRightPutItem    BankRights = 0x02
	BankRightUpdateText BankRights = 0x04
	BankRightDeposit    BankRights = BankRightViewTab | BankRightPutItem
	BankRightFull       BankRights = 0xFF
)

// Has reports whether b grants every bit of want.
func (b BankRights) Has(want BankRights) bool { return b&want == want }

const (
	// GuildMasterRank is the id of the rank held by the guild leader. It is
	// always ordered first.
	GuildMasterRank uint8 = 0
	// OfficerRank is the id of the second default rank.
	OfficerRank uint8 = 1

	// MoneyTab is the bank log pseudo tab holding money events.
	MoneyTab = 100

	UnlimitedSlots int32 = math.MaxInt32
	UnlimitedMoney int64 = math.MaxInt64
)

// BankLogType identifies a bank log entry.
type BankLogType uint8

const (
	BankLogDepositItem     BankLogType = 1
	BankLogWithdrawItem    BankLogType = 2
	BankLogMoveItem        BankLogType = 3
	BankLogDepositMoney    BankLogType = 4
	BankLogWithdrawMoney   BankLogType = 5
	BankLogRepairMoney     BankLogType = 6
	BankLogMoveItem2       BankLogType = 7
	BankLogBuySlot         BankLogType = 9
	BankLogCashFlowDeposit BankLogType = 10
)

// IsMoney reports whether entries of this type belong to the money log.
func (t BankLogType) IsMoney() bool {
	switch t {
	case BankLogDepositMoney, BankLogWithdrawMoney, BankLogRepairMoney, BankLogBuySlot, BankLogCashFlowDeposit:
		return true
	}
	return false
}

// EventLogType identifies a guild event log entry.
type EventLogType uint8

const (
	EventLogInvite   EventLogType = 1
	EventLogJoin     EventLogType = 2
	EventLogPromote  EventLogType = 3
	EventLogDemote   EventLogType = 4
	EventLogUninvite EventLogType = 5
	EventLogLeave    EventLogType = 6
)

// NewsType identifies a guild news entry.
type NewsType uint8

const (
	NewsGuildAchievement  NewsType = 0
	NewsPlayerAchievement NewsType = 1
	NewsDungeonEncounter  NewsType = 2
	NewsItemLooted        NewsType = 3
	NewsItemCrafted       NewsType = 4
	NewsItemPurchased     NewsType = 5
	NewsGuildLevel        NewsType = 6
	NewsCreated           NewsType = 7
	NewsEvent             NewsType = 8
	NewsMemberPromoted    NewsType = 9
	NewsBankTabBought     NewsType = 10
)

// NewsFlagSticky pins a news entry.
const NewsFlagSticky uint32 = 0x1
