package guild

import (
	"context"

	"go.uber.org/zap"
)

// Restore repairs a guild read from storage, persists the repairs and
// publishes it in the directory. A guild left without any member is deleted
// instead.
func (s *Service) Restore(ctx context.Context, g *Guild) error {
	g.mu.Lock()
	defer s.unlock(g)

	t := s.begin(g)
	empty := s.validate(t)
	if empty {
		t.stage(DeleteGuild{GuildID: g.ID}, nil)
	}
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	if empty {
		s.logger.Warn("guild without members deleted", zap.Int64("guild_id", g.ID), zap.String("name", g.Name))
		return nil
	}
	s.dir.Add(g)
	return nil
}

// validate fixes g in place and stages the matching writes. g must not be
// published yet. It reports whether g has no member left to lead it.
func (s *Service) validate(t *txn) bool {
	g := t.g
	log := s.logger.With(zap.Int64("guild_id", g.ID))

	if !g.ranksValid() {
		log.Warn("guild ranks broken, restoring defaults", zap.Int("ranks", len(g.ranks)))
		for _, r := range g.ranks {
			t.stage(DeleteRank{GuildID: g.ID, RankID: r.ID}, nil)
		}
		g.ranks = nil
		for _, r := range defaultRanks() {
			g.RestoreRank(r)
		}
		for _, r := range g.ranks {
			r.createMissingTabs(g.TabCount())
			s.stageRank(t, r)
			for i := range r.tabs {
				t.stage(SaveBankRight{GuildID: g.ID, RankID: r.ID, Tab: i, Rights: r.tabs[i]}, nil)
			}
		}
	} else {
		for _, r := range g.ranks {
			for _, i := range r.createMissingTabs(g.TabCount()) {
				t.stage(SaveBankRight{GuildID: g.ID, RankID: r.ID, Tab: i, Rights: r.tabs[i]}, nil)
			}
		}
	}

	lowest := g.LowestRank()
	for _, m := range g.Members() {
		if !m.CheckStats() {
			log.Warn("guild member has broken stats, removing", zap.Int64("char_id", m.CharID))
			t.stage(DeleteMember{GuildID: g.ID, CharID: m.CharID}, nil)
			delete(g.members, m.CharID)
			continue
		}
		if g.Rank(m.RankID) == nil {
			m.RankID = lowest.ID
			t.stage(SaveMember{Member: m.clone()}, nil)
		}
	}

	leader := g.Member(g.LeaderID)
	if leader == nil {
		for _, m := range g.Members() {
			if leader == nil || g.memberRank(m).Order < g.memberRank(leader).Order {
				leader = m
			}
		}
		if leader == nil {
			return true
		}
		log.Warn("guild leader missing, promoting member", zap.Int64("char_id", leader.CharID))
		g.LeaderID = leader.CharID
		t.stage(SaveGuild{Guild: g.Summary}, nil)
	}
	if leader.RankID != GuildMasterRank {
		leader.RankID = GuildMasterRank
		t.stage(SaveMember{Member: leader.clone()}, nil)
	}

	officer := g.RankByOrder(1)
	if officer == nil {
		officer = lowest
	}
	for _, m := range g.Members() {
		if m.RankID == GuildMasterRank && m != leader {
			log.Warn("extra guild master demoted", zap.Int64("char_id", m.CharID))
			m.RankID = officer.ID
			t.stage(SaveMember{Member: m.clone()}, nil)
		}
	}
	return false
}

// ranksValid reports whether the ranks count is within limits, their order
// is dense from 0 and the guild master rank comes first.
func (g *Guild) ranksValid() bool {
	if len(g.ranks) == 0 || len(g.ranks) < g.cfg.MinRanks || len(g.ranks) > g.cfg.MaxRanks {
		return false
	}
	for i, r := range g.ranks {
		if int(r.Order) != i {
			return false
		}
	}
	return g.ranks[0].ID == GuildMasterRank
}
