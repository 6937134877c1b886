package guild

import (
	"context"

	"go.uber.org/zap"
)

// RankEdit is a full rank update.
type RankEdit struct {
	Name        string      `json:"name"`
	Rights      RankRights  `json:"rights"`
	MoneyPerDay int64       `json:"money_per_day"`
	Tabs        []TabRights `json:"tabs"`
}

func (s *Service) stageRank(t *txn, r *Rank) {
	t.stage(SaveRank{GuildID: t.g.ID, Rank: r.clone()}, nil)
}

// CreateRank appends a rank below all others. It takes the first unused id.
func (s *Service) CreateRank(ctx context.Context, charID int64, name string) (uint8, error) {
	g, _, err := s.lockLeader(charID)
	if err != nil {
		return 0, err
	}
	defer s.unlock(g)

	if len(g.ranks) >= s.cfg.MaxRanks {
		return 0, ErrTooManyRanks
	}
	if name == "" {
		return 0, ErrNameInvalid
	}
	id := uint8(0)
	for g.Rank(id) != nil {
		id++
	}

	r := NewRank(id, uint8(len(g.ranks)), name, RightGChatListen|RightGChatSpeak, 0)
	added := r.createMissingTabs(g.TabCount())
	t := s.begin(g)
	s.stageRank(t, r)
	for _, i := range added {
		t.stage(SaveBankRight{GuildID: g.ID, RankID: id, Tab: i, Rights: r.tabs[i]}, nil)
	}
	t.stage(nil, func() { g.RestoreRank(r) })
	if err := s.commit(ctx, t); err != nil {
		return 0, err
	}
	s.logger.Info("guild rank created", zap.Int64("guild_id", g.ID), zap.Uint8("rank_id", id))
	s.broadcast(g, Event{Type: EventRankUpdated, Data: viewRank(r)})
	return id, nil
}

// RemoveRank deletes the rank at order and closes the gap it leaves.
// A rank that still has members cannot be removed.
func (s *Service) RemoveRank(ctx context.Context, charID int64, order uint8) error {
	g, _, err := s.lockLeader(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	if len(g.ranks) <= s.cfg.MinRanks {
		return ErrTooFewRanks
	}
	r := g.RankByOrder(order)
	if r == nil {
		return ErrRankNotFound
	}
	if r.ID == GuildMasterRank {
		return ErrGuildMasterRank
	}
	for _, m := range g.members {
		if m.RankID == r.ID {
			return ErrRankInUse
		}
	}

	t := s.begin(g)
	t.stage(DeleteRank{GuildID: g.ID, RankID: r.ID}, nil)
	var shifted []*Rank
	for _, o := range g.ranks {
		if o.Order > order {
			next := o.clone()
			next.Order--
			s.stageRank(t, next)
			shifted = append(shifted, o)
		}
	}
	t.stage(nil, func() {
		for _, o := range shifted {
			o.Order--
		}
		kept := g.ranks[:0]
		for _, o := range g.ranks {
			if o != r {
				kept = append(kept, o)
			}
		}
		g.ranks = kept
		g.sortRanks()
	})
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.logger.Info("guild rank removed", zap.Int64("guild_id", g.ID), zap.Uint8("rank_id", r.ID))
	s.broadcast(g, Event{Type: EventRankDeleted, Data: map[string]uint8{"order": order}})
	return nil
}

// ShiftRank swaps the rank at order with its neighbour above (up) or below.
// The guild master rank never moves.
func (s *Service) ShiftRank(ctx context.Context, charID int64, order uint8, up bool) error {
	g, _, err := s.lockLeader(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	other := int(order) + 1
	if up {
		other = int(order) - 1
	}
	if other < 0 {
		return ErrGuildMasterRank
	}
	r, o := g.RankByOrder(order), g.RankByOrder(uint8(other))
	if r == nil || o == nil {
		return ErrRankNotFound
	}
	if r.ID == GuildMasterRank || o.ID == GuildMasterRank {
		return ErrGuildMasterRank
	}

	t := s.begin(g)
	nr, no := r.clone(), o.clone()
	nr.Order, no.Order = o.Order, r.Order
	s.stageRank(t, nr)
	s.stageRank(t, no)
	t.stage(nil, func() {
		r.Order, o.Order = nr.Order, no.Order
		g.sortRanks()
	})
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.broadcast(g, Event{Type: EventRankOrder, Data: []RankView{viewRank(r), viewRank(o)}})
	return nil
}

// SetRankInfo replaces a rank's name, rights, money cap and tab rights.
// Tab entries beyond the purchased tabs are ignored.
func (s *Service) SetRankInfo(ctx context.Context, charID int64, rankID uint8, edit RankEdit) error {
	g, _, err := s.lockLeader(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	r := g.Rank(rankID)
	if r == nil {
		return ErrRankNotFound
	}
	if edit.Name == "" {
		return ErrNameInvalid
	}

	next := r.clone()
	next.Name = edit.Name
	next.SetRights(edit.Rights)
	next.SetMoneyPerDay(edit.MoneyPerDay)
	next.createMissingTabs(g.TabCount())
	t := s.begin(g)
	for i, tr := range edit.Tabs {
		if i >= g.TabCount() {
			break
		}
		next.SetBankTabRightsAndSlots(i, tr)
		t.stage(SaveBankRight{GuildID: g.ID, RankID: rankID, Tab: i, Rights: next.tabs[i]}, nil)
	}
	s.stageRank(t, next)
	t.stage(nil, func() { *r = *next })
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.logger.Info("guild rank updated", zap.Int64("guild_id", g.ID), zap.Uint8("rank_id", rankID))
	s.broadcast(g, Event{Type: EventRankUpdated, Data: viewRank(r)})
	s.sendPermissions(g)
	return nil
}
