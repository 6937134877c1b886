package guild

import (
	"sort"
	"sync"
	"time"

	"github.com/kasuganosora/guildbank/config"
)

// Config holds the guild limits.
type Config struct {
	MaxRanks     int
	MinRanks     int
	MaxBankTabs  int
	BankSlots    int
	MaxMoney     uint64
	EventLogSize int
	BankLogSize  int
	NewsLogSize  int
	// TabCosts is the price of each bank tab, by tab index.
	TabCosts []uint64
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return ConfigFrom(config.Default().Guild)
}

// ConfigFrom converts the loaded configuration section.
func ConfigFrom(c config.GuildConfig) Config {
	return Config{
		MaxRanks:     c.MaxRanks,
		MinRanks:     c.MinRanks,
		MaxBankTabs:  c.MaxBankTabs,
		BankSlots:    c.BankSlots,
		MaxMoney:     c.MaxMoney,
		EventLogSize: c.EventLogSize,
		BankLogSize:  c.BankLogSize,
		NewsLogSize:  c.NewsLogSize,
		TabCosts:     append([]uint64(nil), c.TabCosts...),
	}
}

// TabCost returns the price of bank tab i.
func (c Config) TabCost(i int) uint64 {
	if i < 0 || i >= len(c.TabCosts) {
		return 0
	}
	return c.TabCosts[i]
}

// Summary is the guild row.
type Summary struct {
	ID        int64
	Name      string
	LeaderID  int64
	MOTD      string
	Info      string
	Money     uint64
	CreatedAt time.Time
	// DailyResetAt and WeeklyResetAt are the reset instants last applied.
	DailyResetAt  time.Time
	WeeklyResetAt time.Time
}

// Guild is the aggregate root owning ranks, members, bank tabs and logs.
// All access goes through the Service, which holds mu for the whole of
// each operation.
type Guild struct {
	mu  sync.Mutex
	out outbox
	Summary

	cfg      Config
	ranks    []*Rank // sorted by Order
	members  map[int64]*Member
	tabs     []*BankTab
	events   *Ring[EventEntry]
	bankLogs []*Ring[BankEntry] // one per possible tab
	moneyLog *Ring[BankEntry]
	news     *Ring[NewsEntry]
}

// New creates an empty guild aggregate. Ranks, members and tabs are added
// with the Restore methods or by the Service.
func New(cfg Config, s Summary) *Guild {
	g := &Guild{
		Summary:  s,
		cfg:      cfg,
		members:  make(map[int64]*Member),
		events:   NewRing[EventEntry](cfg.EventLogSize),
		moneyLog: NewRing[BankEntry](cfg.BankLogSize),
		news:     NewRing[NewsEntry](cfg.NewsLogSize),
	}
	for i := 0; i < cfg.MaxBankTabs; i++ {
		g.bankLogs = append(g.bankLogs, NewRing[BankEntry](cfg.BankLogSize))
	}
	return g
}

// Config returns the limits the guild was created with.
func (g *Guild) Config() Config { return g.cfg }

// RestoreRank adds a persisted rank.
func (g *Guild) RestoreRank(r *Rank) {
	g.ranks = append(g.ranks, r)
	g.sortRanks()
}

// RestoreMember adds a persisted member.
func (g *Guild) RestoreMember(m *Member) {
	if len(m.bankWithdraw) < g.cfg.MaxBankTabs {
		m.bankWithdraw = append(m.bankWithdraw, make([]int32, g.cfg.MaxBankTabs-len(m.bankWithdraw))...)
	}
	g.members[m.CharID] = m
}

// RestoreTab adds a persisted bank tab. Tabs must be restored in index order.
func (g *Guild) RestoreTab(t *BankTab) { g.tabs = append(g.tabs, t) }

func (g *Guild) sortRanks() {
	sort.SliceStable(g.ranks, func(i, j int) bool { return g.ranks[i].Order < g.ranks[j].Order })
}

// Ranks returns the ranks ordered from guild master down.
func (g *Guild) Ranks() []*Rank { return append([]*Rank(nil), g.ranks...) }

// Rank returns the rank with the given id.
func (g *Guild) Rank(id uint8) *Rank {
	for _, r := range g.ranks {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// RankByOrder returns the rank at the given position.
func (g *Guild) RankByOrder(order uint8) *Rank {
	for _, r := range g.ranks {
		if r.Order == order {
			return r
		}
	}
	return nil
}

// LowestRank returns the rank ordered last.
func (g *Guild) LowestRank() *Rank {
	if len(g.ranks) == 0 {
		return nil
	}
	return g.ranks[len(g.ranks)-1]
}

// Member returns the member for charID.
func (g *Guild) Member(charID int64) *Member { return g.members[charID] }

// Members returns all members sorted by character id.
func (g *Guild) Members() []*Member {
	out := make([]*Member, 0, len(g.members))
	for _, m := range g.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CharID < out[j].CharID })
	return out
}

// MemberCount returns the number of members.
func (g *Guild) MemberCount() int { return len(g.members) }

// Tab returns purchased tab i.
func (g *Guild) Tab(i int) *BankTab {
	if i < 0 || i >= len(g.tabs) {
		return nil
	}
	return g.tabs[i]
}

// TabCount returns the number of purchased tabs.
func (g *Guild) TabCount() int { return len(g.tabs) }

// EventLog returns the guild event log.
func (g *Guild) EventLog() *Ring[EventEntry] { return g.events }

// News returns the news log.
func (g *Guild) News() *Ring[NewsEntry] { return g.news }

// BankLog returns the log of tab, or the money log for MoneyTab.
func (g *Guild) BankLog(tab int) *Ring[BankEntry] {
	if tab == MoneyTab {
		return g.moneyLog
	}
	if tab < 0 || tab >= len(g.bankLogs) {
		return nil
	}
	return g.bankLogs[tab]
}

// IsLeader reports whether charID leads the guild.
func (g *Guild) IsLeader(charID int64) bool { return g.LeaderID == charID }

// memberRank returns the member's rank, falling back to the lowest rank.
func (g *Guild) memberRank(m *Member) *Rank {
	if r := g.Rank(m.RankID); r != nil {
		return r
	}
	return g.LowestRank()
}

// HasRankRight reports whether the member's rank grants right.
func (g *Guild) HasRankRight(m *Member, right RankRights) bool {
	r := g.memberRank(m)
	return r != nil && r.Rights().Has(right)
}

// HasTabRights reports whether the member holds rights on tab. The guild
// master and the leader hold every right.
func (g *Guild) HasTabRights(m *Member, tab int, rights BankRights) bool {
	if m.RankID == GuildMasterRank || g.IsLeader(m.CharID) {
		return true
	}
	r := g.memberRank(m)
	return r != nil && r.BankTabRights(tab).Has(rights)
}

// RemainingSlots returns how many withdrawals the member has left on tab today.
func (g *Guild) RemainingSlots(m *Member, tab int) int32 {
	if m.RankID == GuildMasterRank {
		return UnlimitedSlots
	}
	r := g.memberRank(m)
	if r == nil || !r.BankTabRights(tab).Has(BankRightViewTab) {
		return 0
	}
	if left := r.BankTabSlotsPerDay(tab) - m.BankWithdraw(tab); left > 0 {
		return left
	}
	return 0
}

// RemainingMoney returns how much money the member may still withdraw today.
func (g *Guild) RemainingMoney(m *Member) int64 {
	if m.RankID == GuildMasterRank {
		return UnlimitedMoney
	}
	r := g.memberRank(m)
	if r == nil {
		return 0
	}
	if r.Rights().Has(RightWithdrawRepair) || r.Rights().Has(RightWithdrawGold) {
		if left := r.MoneyPerDay() - m.BankWithdrawMoney(); left > 0 {
			return left
		}
	}
	return 0
}

// isRankNotLower reports whether m's rank is ordered at or above order.
func (g *Guild) isRankNotLower(m *Member, order uint8) bool {
	r := g.memberRank(m)
	return r != nil && r.Order <= order
}

// defaultRanks returns the rank set of a new guild.
func defaultRanks() []*Rank {
	member := RightGChatListen | RightGChatSpeak
	return []*Rank{
		NewRank(0, 0, "Guild Master", RightAll, UnlimitedMoney),
		NewRank(1, 1, "Officer", RightAll, 0),
		NewRank(2, 2, "Veteran", member, 0),
		NewRank(3, 3, "Member", member, 0),
		NewRank(4, 4, "Initiate", member, 0),
	}
}
