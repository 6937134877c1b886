package guild

import (
	"context"

	"go.uber.org/zap"
)

// BuyBankTab buys the next bank tab for the guild. tab must be the next
// unpurchased index. The price is paid from the leader's purse.
func (s *Service) BuyBankTab(ctx context.Context, charID int64, tab int) error {
	g, m, err := s.lockLeader(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	if g.TabCount() >= s.cfg.MaxBankTabs {
		return ErrTabLimit
	}
	if tab != g.TabCount() {
		return ErrWrongBagType
	}

	t := s.begin(g)
	if cost := s.cfg.TabCost(tab); cost > 0 {
		inv, err := s.invs.Get(ctx, charID)
		if err != nil {
			return err
		}
		inv.Lock()
		defer inv.Unlock()
		if inv.Gold < cost {
			return ErrNotEnoughMoney
		}
		t.setGold(inv, inv.Gold-cost)
		t.logBank(BankEntry{Type: BankLogBuySlot, PlayerID: m.CharID, ItemOrMoney: cost})
	}
	s.stageNewTab(t, tab)
	news := t.addNews(NewsEntry{Type: NewsBankTabBought, PlayerID: charID, Value: uint32(tab)})

	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.logger.Info("guild bank tab bought",
		zap.Int64("guild_id", g.ID),
		zap.Int64("char_id", charID),
		zap.Int("tab", tab))
	s.broadcast(g, Event{Type: EventBankTabBought, Data: map[string]int{"tab": tab}})
	s.announce(g, news)
	s.sendPermissions(g)
	return nil
}

// stageNewTab stages a new empty tab together with the rights entry every
// rank needs for it.
func (s *Service) stageNewTab(t *txn, tab int) {
	g := t.g
	nt := NewBankTab(tab, s.cfg.BankSlots)
	t.stage(SaveBankTab{GuildID: g.ID, Tab: tab}, func() { g.tabs = append(g.tabs, nt) })
	for _, r := range g.ranks {
		next := r.clone()
		for _, i := range next.createMissingTabs(tab + 1) {
			t.stage(SaveBankRight{GuildID: g.ID, RankID: r.ID, Tab: i, Rights: next.tabs[i]}, nil)
		}
		t.stage(nil, func() { *r = *next })
	}
}

// SetBankTabInfo renames a tab. Unchanged values are a no-op.
func (s *Service) SetBankTabInfo(ctx context.Context, charID int64, tab int, name, icon string) error {
	g, _, err := s.lockLeader(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	bt := g.Tab(tab)
	if bt == nil {
		return ErrWrongBagType
	}
	if bt.Name == name && bt.Icon == icon {
		return nil
	}
	t := s.begin(g)
	t.stage(SaveBankTab{GuildID: g.ID, Tab: tab, Name: name, Icon: icon, Text: bt.Text}, func() {
		bt.Name, bt.Icon = name, icon
	})
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.broadcast(g, Event{Type: EventBankTab, Data: TabView{Index: tab, Name: name, Icon: icon, Text: bt.Text}})
	return nil
}

// SetBankTabText sets the free text of a tab. It needs the update-text right
// on that tab. Unchanged text is a no-op.
func (s *Service) SetBankTabText(ctx context.Context, charID int64, tab int, text string) error {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	bt := g.Tab(tab)
	if bt == nil {
		return ErrWrongBagType
	}
	if !g.HasTabRights(m, tab, BankRightUpdateText) {
		return ErrNoRights
	}
	if bt.Text == text {
		return nil
	}
	t := s.begin(g)
	t.stage(SaveBankTab{GuildID: g.ID, Tab: tab, Name: bt.Name, Icon: bt.Icon, Text: text}, func() {
		bt.Text = text
	})
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.broadcastIf(g,
		func(m *Member) bool { return g.HasTabRights(m, tab, BankRightViewTab) },
		func(*Member) Event {
			return Event{Type: EventBankTab, Data: TabView{Index: tab, Name: bt.Name, Icon: bt.Icon, Text: text}}
		})
	return nil
}

// sendPermissions pushes every member's rights and remaining quotas.
func (s *Service) sendPermissions(g *Guild) {
	s.broadcastIf(g,
		func(*Member) bool { return true },
		func(m *Member) Event { return Event{Type: EventPermissions, Data: viewPermissions(g, m)} })
}
