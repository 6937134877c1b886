package guild

import "time"

// CharacterInfo is the display data of a character as known to the
// character directory.
type CharacterInfo struct {
	CharID    int64
	AccountID int64
	Name      string
	Level     int
	Race      int
	Class     int
	Gender    int
	Zone      int
}

// Member is one character's membership in a guild.
type Member struct {
	GuildID int64
	CharID  int64
	RankID  uint8

	CharacterInfo

	Online bool
	AFK    bool
	DND    bool

	PublicNote  string
	OfficerNote string
	LogoutAt    time.Time

	WeekActivity   uint32
	WeekReputation uint32
	// Criteria is the set of tracked achievement criteria. It is stored and
	// loaded but not interpreted here.
	Criteria []uint32

	bankWithdraw      []int32
	bankWithdrawMoney int64
}

// NewMember creates a member with zeroed withdraw counters for maxTabs tabs.
func NewMember(guildID int64, info CharacterInfo, rankID uint8, maxTabs int) *Member {
	return &Member{
		GuildID:       guildID,
		CharID:        info.CharID,
		RankID:        rankID,
		CharacterInfo: info,
		bankWithdraw:  make([]int32, maxTabs),
	}
}

// BankWithdraw returns how many slots the member withdrew from tab today.
func (m *Member) BankWithdraw(tab int) int32 {
	if tab < 0 || tab >= len(m.bankWithdraw) {
		return 0
	}
	return m.bankWithdraw[tab]
}

// BankWithdrawMoney returns the money withdrawn today.
func (m *Member) BankWithdrawMoney() int64 { return m.bankWithdrawMoney }

// Withdrawals returns a copy of the per-tab counters.
func (m *Member) Withdrawals() []int32 { return append([]int32(nil), m.bankWithdraw...) }

// RestoreWithdrawals sets the counters read from storage.
func (m *Member) RestoreWithdrawals(slots []int32, money int64) {
	for i := range m.bankWithdraw {
		m.bankWithdraw[i] = 0
		if i < len(slots) {
			m.bankWithdraw[i] = slots[i]
		}
	}
	m.bankWithdrawMoney = money
}

// ResetValues zeroes the daily counters, and the weekly ones when weekly is set.
func (m *Member) ResetValues(weekly bool) {
	for i := range m.bankWithdraw {
		m.bankWithdraw[i] = 0
	}
	m.bankWithdrawMoney = 0
	if weekly {
		m.WeekActivity = 0
		m.WeekReputation = 0
	}
}

// CheckStats reports whether the cached character data is usable.
func (m *Member) CheckStats() bool { return m.Level >= 1 && m.Class != 0 }

// SetStats refreshes the cached character data.
func (m *Member) SetStats(info CharacterInfo) {
	info.CharID = m.CharID
	m.CharacterInfo = info
}

func (m *Member) clone() *Member {
	c := *m
	c.bankWithdraw = append([]int32(nil), m.bankWithdraw...)
	c.Criteria = append([]uint32(nil), m.Criteria...)
	return &c
}
