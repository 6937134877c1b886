package guild

// TabView is a bank tab header.
type TabView struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Text  string `json:"text"`
}

type RankView struct {
	ID          uint8       `json:"id"`
	Order       uint8       `json:"order"`
	Name        string      `json:"name"`
	Rights      RankRights  `json:"rights"`
	MoneyPerDay int64       `json:"money_per_day"`
	Tabs        []TabRights `json:"tabs"`
}

type MemberView struct {
	CharID      int64  `json:"char_id"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Class       int    `json:"class"`
	Zone        int    `json:"zone"`
	RankID      uint8  `json:"rank_id"`
	Online      bool   `json:"online"`
	PublicNote  string `json:"public_note"`
	OfficerNote string `json:"officer_note,omitempty"`
}

// GuildView is the roster sent to a member.
type GuildView struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	LeaderID int64        `json:"leader_id"`
	MOTD     string       `json:"motd"`
	Info     string       `json:"info"`
	Money    uint64       `json:"money"`
	Tabs     []TabView    `json:"tabs"`
	Ranks    []RankView   `json:"ranks"`
	Members  []MemberView `json:"members"`
}

// SummaryView is one line of the guild list.
type SummaryView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LeaderID int64  `json:"leader_id"`
	Members  int    `json:"members"`
	Online   int    `json:"online"`
	Tabs     int    `json:"tabs"`
	Money    uint64 `json:"money"`
}

// TabPermission is a member's standing on one tab.
type TabPermission struct {
	Rights    BankRights `json:"rights"`
	Remaining int32      `json:"remaining"`
}

// PermissionsView is a member's rights and remaining quotas.
type PermissionsView struct {
	RankID         uint8           `json:"rank_id"`
	Rights         RankRights      `json:"rights"`
	RemainingMoney int64           `json:"remaining_money"`
	PurchasedTabs  int             `json:"purchased_tabs"`
	Tabs           []TabPermission `json:"tabs"`
}

func viewRank(r *Rank) RankView {
	v := RankView{ID: r.ID, Order: r.Order, Name: r.Name, Rights: r.Rights(), MoneyPerDay: r.MoneyPerDay()}
	for i := 0; i < r.TabCount(); i++ {
		v.Tabs = append(v.Tabs, TabRights{Rights: r.BankTabRights(i), SlotsPerDay: r.BankTabSlotsPerDay(i)})
	}
	return v
}

func viewGuild(g *Guild, officerNotes bool) GuildView {
	v := GuildView{ID: g.ID, Name: g.Name, LeaderID: g.LeaderID, MOTD: g.MOTD, Info: g.Info, Money: g.Money}
	for _, t := range g.tabs {
		v.Tabs = append(v.Tabs, TabView{Index: t.Index, Name: t.Name, Icon: t.Icon, Text: t.Text})
	}
	for _, r := range g.ranks {
		v.Ranks = append(v.Ranks, viewRank(r))
	}
	for _, m := range g.Members() {
		mv := MemberView{
			CharID:     m.CharID,
			Name:       m.Name,
			Level:      m.Level,
			Class:      m.Class,
			Zone:       m.Zone,
			RankID:     m.RankID,
			Online:     m.Online,
			PublicNote: m.PublicNote,
		}
		if officerNotes {
			mv.OfficerNote = m.OfficerNote
		}
		v.Members = append(v.Members, mv)
	}
	return v
}

func viewPermissions(g *Guild, m *Member) PermissionsView {
	r := g.memberRank(m)
	v := PermissionsView{RankID: m.RankID, RemainingMoney: g.RemainingMoney(m), PurchasedTabs: g.TabCount()}
	if r != nil {
		v.Rights = r.Rights()
	}
	for i := 0; i < g.TabCount(); i++ {
		var rights BankRights
		if r != nil {
			rights = r.BankTabRights(i)
		}
		v.Tabs = append(v.Tabs, TabPermission{Rights: rights, Remaining: g.RemainingSlots(m, i)})
	}
	return v
}

func viewSummary(g *Guild) SummaryView {
	v := SummaryView{ID: g.ID, Name: g.Name, LeaderID: g.LeaderID, Members: len(g.members), Tabs: len(g.tabs), Money: g.Money}
	for _, m := range g.members {
		if m.Online {
			v.Online++
		}
	}
	return v
}
