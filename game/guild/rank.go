package guild

// TabRights pairs a rank's rights on one bank tab with its daily slot cap.
type TabRights struct {
	Rights      BankRights `json:"rights"`
	SlotsPerDay int32      `json:"slots_per_day"`
}

// Rank is a permission level inside a guild. ID is stable for the rank's
// lifetime; Order is its position, 0 being the guild master.
//
// The guild master rank always reads back full rights and unlimited caps,
// whatever was stored.
type Rank struct {
	ID    uint8
	Order uint8
	Name  string

	rights      RankRights
	moneyPerDay int64
	tabs        []TabRights
}

// NewRank creates a rank without any bank tab entries.
func NewRank(id, order uint8, name string, rights RankRights, moneyPerDay int64) *Rank {
	r := &Rank{ID: id, Order: order, Name: name}
	r.SetRights(rights)
	r.SetMoneyPerDay(moneyPerDay)
	return r
}

func (r *Rank) isGuildMaster() bool { return r.ID == GuildMasterRank }

// Rights returns the rank's guild-wide rights.
func (r *Rank) Rights() RankRights {
	if r.isGuildMaster() {
		return RightAll
	}
	return r.rights
}

func (r *Rank) SetRights(rights RankRights) {
	if r.isGuildMaster() {
		rights = RightAll
	}
	r.rights = rights
}

// MoneyPerDay returns the daily money withdraw cap.
func (r *Rank) MoneyPerDay() int64 {
	if r.isGuildMaster() {
		return UnlimitedMoney
	}
	return r.moneyPerDay
}

func (r *Rank) SetMoneyPerDay(money int64) {
	if r.isGuildMaster() {
		money = UnlimitedMoney
	}
	if money < 0 {
		money = 0
	}
	r.moneyPerDay = money
}

// BankTabRights returns the rank's rights on tab, 0 for unknown tabs.
func (r *Rank) BankTabRights(tab int) BankRights {
	if r.isGuildMaster() {
		return BankRightFull
	}
	if tab < 0 || tab >= len(r.tabs) {
		return 0
	}
	return r.tabs[tab].Rights
}

// BankTabSlotsPerDay returns the daily withdraw slot cap on tab.
func (r *Rank) BankTabSlotsPerDay(tab int) int32 {
	if r.isGuildMaster() {
		return UnlimitedSlots
	}
	if tab < 0 || tab >= len(r.tabs) {
		return 0
	}
	return r.tabs[tab].SlotsPerDay
}

// SetBankTabRightsAndSlots stores the rights and cap for an existing tab entry.
func (r *Rank) SetBankTabRightsAndSlots(tab int, tr TabRights) {
	if tab < 0 || tab >= len(r.tabs) {
		return
	}
	if r.isGuildMaster() {
		tr = TabRights{Rights: BankRightFull, SlotsPerDay: UnlimitedSlots}
	}
	if tr.SlotsPerDay < 0 {
		tr.SlotsPerDay = 0
	}
	r.tabs[tab] = tr
}

// RestoreBankTabRights sets a persisted tab entry, growing the entries to
// reach tab.
func (r *Rank) RestoreBankTabRights(tab int, tr TabRights) {
	if tab < 0 {
		return
	}
	r.createMissingTabs(tab + 1)
	r.SetBankTabRightsAndSlots(tab, tr)
}

// TabCount returns the number of tab entries the rank carries.
func (r *Rank) TabCount() int { return len(r.tabs) }

// createMissingTabs grows the tab entries to cover n tabs. New entries grant
// nothing, except on the guild master rank. It returns the indexes it added.
func (r *Rank) createMissingTabs(n int) []int {
	var added []int
	for len(r.tabs) < n {
		tr := TabRights{}
		if r.isGuildMaster() {
			tr = TabRights{Rights: BankRightFull, SlotsPerDay: UnlimitedSlots}
		}
		added = append(added, len(r.tabs))
		r.tabs = append(r.tabs, tr)
	}
	return added
}

func (r *Rank) clone() *Rank {
	c := *r
	c.tabs = append([]TabRights(nil), r.tabs...)
	return &c
}
