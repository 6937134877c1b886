package guild

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	maxNameLen  = 24
	defaultMOTD = "No message set."
)

func (s *Service) lockGuild(id int64) (*Guild, error) {
	g := s.dir.Get(id)
	if g == nil {
		return nil, ErrGuildNotFound
	}
	g.mu.Lock()
	return g, nil
}

func (s *Service) character(ctx context.Context, charID int64) (CharacterInfo, error) {
	info, err := s.chars.Character(ctx, charID)
	if err != nil {
		return CharacterInfo{}, fmt.Errorf("%w: %w", ErrMemberNotFound, err)
	}
	info.CharID = charID
	return info, nil
}

// stageMember stages a snapshot of m after mutate has been applied to it.
func stageMember(t *txn, m *Member, mutate func(*Member)) {
	next := m.clone()
	mutate(next)
	t.stage(SaveMember{Member: next.clone()}, func() { mutate(m) })
}

// stageAddMember stages a new member. The directory entry must already be
// claimed.
func (s *Service) stageAddMember(t *txn, info CharacterInfo, rankID uint8) *Member {
	g := t.g
	m := NewMember(g.ID, info, rankID, s.cfg.MaxBankTabs)
	t.stage(SaveMember{Member: m.clone()}, func() { g.members[m.CharID] = m })
	t.logEvent(EventEntry{Type: EventLogJoin, PlayerID: m.CharID})
	return m
}

// CreateGuild founds a guild led by leaderID with the default ranks.
func (s *Service) CreateGuild(ctx context.Context, leaderID int64, name string) (*Guild, error) {
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return nil, ErrNameInvalid
	}
	info, err := s.character(ctx, leaderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	g := New(s.cfg, Summary{
		ID:            s.dir.NextID(),
		Name:          name,
		LeaderID:      leaderID,
		MOTD:          defaultMOTD,
		CreatedAt:     now,
		DailyResetAt:  now,
		WeeklyResetAt: now,
	})
	if !s.dir.claimName(name, g.ID) {
		return nil, ErrNameExists
	}
	if !s.dir.claimMember(leaderID, g.ID) {
		s.dir.releaseName(name)
		return nil, ErrAlreadyInGuild
	}
	g.mu.Lock()
	defer s.unlock(g)

	t := s.begin(g)
	t.stage(SaveGuild{Guild: g.Summary}, nil)
	for _, r := range defaultRanks() {
		s.stageRank(t, r)
		t.stage(nil, func() { g.RestoreRank(r) })
	}
	s.stageAddMember(t, info, GuildMasterRank)
	t.addNews(NewsEntry{Type: NewsCreated, PlayerID: leaderID})
	if err := s.commit(ctx, t); err != nil {
		s.dir.releaseMember(leaderID)
		s.dir.releaseName(name)
		return nil, err
	}
	s.dir.Add(g)
	s.logger.Info("guild created",
		zap.Int64("guild_id", g.ID),
		zap.String("name", name),
		zap.Int64("leader_id", leaderID))
	s.broadcast(g, Event{Type: EventMemberJoined, Data: map[string]any{"char_id": leaderID, "name": info.Name}})
	return g, nil
}

// Disband deletes the guild of the leader charID with its bank content.
func (s *Service) Disband(ctx context.Context, charID int64) error {
	g, _, err := s.lockLeader(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)
	return s.disband(ctx, g)
}

func (s *Service) disband(ctx context.Context, g *Guild) error {
	t := s.begin(g)
	t.stage(DeleteGuild{GuildID: g.ID}, func() {
		for _, bt := range g.tabs {
			bt.Clear()
		}
	})
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.broadcast(g, Event{Type: EventDisbanded})
	s.dir.Remove(g.ID)
	s.logger.Info("guild disbanded", zap.Int64("guild_id", g.ID), zap.String("name", g.Name))
	return nil
}

// Invite adds charID to the inviter's guild at the lowest rank.
func (s *Service) Invite(ctx context.Context, inviterID, charID int64) error {
	info, err := s.character(ctx, charID)
	if err != nil {
		return err
	}
	g, m, err := s.lockMember(inviterID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	if !g.HasRankRight(m, RightInvite) {
		return ErrNoRights
	}
	if !s.dir.claimMember(charID, g.ID) {
		return ErrAlreadyInGuild
	}
	t := s.begin(g)
	t.logEvent(EventEntry{Type: EventLogInvite, PlayerID: inviterID, TargetID: charID})
	s.stageAddMember(t, info, g.LowestRank().ID)
	if err := s.commit(ctx, t); err != nil {
		s.dir.releaseMember(charID)
		return err
	}
	s.broadcast(g, Event{Type: EventMemberJoined, Data: map[string]any{"char_id": charID, "name": info.Name}})
	return nil
}

// Leave removes charID from its guild. A leader may only leave as the last
// member, which disbands the guild.
func (s *Service) Leave(ctx context.Context, charID int64) error {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	if g.IsLeader(charID) {
		if g.MemberCount() > 1 {
			return ErrLeaderLeave
		}
		return s.disband(ctx, g)
	}
	t := s.begin(g)
	s.stageRemoveMember(t, m)
	t.logEvent(EventEntry{Type: EventLogLeave, PlayerID: charID})
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.broadcast(g, Event{Type: EventMemberLeft, Data: map[string]any{"char_id": charID, "name": m.Name}})
	return nil
}

// Kick removes targetID. The actor needs the remove right and a rank above
// the target's.
func (s *Service) Kick(ctx context.Context, charID, targetID int64) error {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	if !g.HasRankRight(m, RightRemove) {
		return ErrNoRights
	}
	target := g.Member(targetID)
	switch {
	case target == nil:
		return ErrMemberNotFound
	case targetID == charID:
		return ErrSelfTarget
	case target.RankID == GuildMasterRank:
		return ErrLeaderLeave
	case g.isRankNotLower(target, g.memberRank(m).Order):
		return ErrRankTooHigh
	}

	t := s.begin(g)
	t.logEvent(EventEntry{Type: EventLogUninvite, PlayerID: charID, TargetID: targetID})
	s.stageRemoveMember(t, target)
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	ev := Event{Type: EventMemberRemoved, Data: map[string]any{"char_id": targetID, "name": target.Name, "by": charID}}
	s.broadcast(g, ev)
	s.send(g, targetID, ev)
	return nil
}

func (s *Service) stageRemoveMember(t *txn, m *Member) {
	g := t.g
	t.stage(DeleteMember{GuildID: g.ID, CharID: m.CharID}, func() {
		delete(g.members, m.CharID)
		s.dir.releaseMember(m.CharID)
	})
}

// UpdateMemberRank promotes or demotes targetID by one rank.
func (s *Service) UpdateMemberRank(ctx context.Context, charID, targetID int64, demote bool) error {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	right, typ := RightPromote, EventLogPromote
	if demote {
		right, typ = RightDemote, EventLogDemote
	}
	if !g.HasRankRight(m, right) {
		return ErrNoRights
	}
	target := g.Member(targetID)
	if target == nil {
		return ErrMemberNotFound
	}
	if targetID == charID {
		return ErrSelfTarget
	}
	mine := g.memberRank(m).Order
	cur := g.memberRank(target)
	var next *Rank
	if demote {
		if g.isRankNotLower(target, mine) {
			return ErrRankTooHigh
		}
		if cur == g.LowestRank() {
			return ErrRankTooLow
		}
		next = g.RankByOrder(cur.Order + 1)
	} else {
		if g.isRankNotLower(target, mine+1) {
			return ErrRankTooHigh
		}
		next = g.RankByOrder(cur.Order - 1)
	}
	if next == nil {
		return ErrRankNotFound
	}

	t := s.begin(g)
	stageMember(t, target, func(x *Member) { x.RankID = next.ID })
	t.logEvent(EventEntry{Type: typ, PlayerID: charID, TargetID: targetID, NewRank: next.ID})
	var news uint32
	if !demote {
		news = t.addNews(NewsEntry{Type: NewsMemberPromoted, PlayerID: targetID, Value: uint32(next.ID)})
	}
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.broadcast(g, Event{Type: EventMemberRank, Data: map[string]any{
		"char_id": targetID, "by": charID, "rank_id": next.ID, "rank": next.Name, "demote": demote,
	}})
	if !demote {
		s.announce(g, news)
	}
	return nil
}

// SetLeader hands the guild over to targetID. The old leader becomes an
// officer.
func (s *Service) SetLeader(ctx context.Context, charID, targetID int64) error {
	g, m, err := s.lockLeader(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	target := g.Member(targetID)
	if target == nil {
		return ErrMemberNotFound
	}
	if targetID == charID {
		return ErrSelfTarget
	}
	officer := g.RankByOrder(1)
	if officer == nil {
		return ErrRankNotFound
	}

	t := s.begin(g)
	s.stageLeader(t, target)
	stageMember(t, m, func(x *Member) { x.RankID = officer.ID })
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.logger.Info("guild leader changed",
		zap.Int64("guild_id", g.ID),
		zap.Int64("old_leader", charID),
		zap.Int64("new_leader", targetID))
	s.broadcast(g, Event{Type: EventLeaderChanged, Data: map[string]int64{"leader_id": targetID, "old_leader_id": charID}})
	return nil
}

// stageLeader makes m the guild master.
func (s *Service) stageLeader(t *txn, m *Member) {
	g := t.g
	sum := g.Summary
	sum.LeaderID = m.CharID
	t.stage(SaveGuild{Guild: sum}, func() { g.LeaderID = m.CharID })
	stageMember(t, m, func(x *Member) { x.RankID = GuildMasterRank })
}

// SetMOTD changes the message of the day.
func (s *Service) SetMOTD(ctx context.Context, charID int64, motd string) error {
	return s.setText(ctx, charID, RightSetMOTD, EventMOTD, func(sum *Summary) { sum.MOTD = motd })
}

// SetInfo changes the guild information text.
func (s *Service) SetInfo(ctx context.Context, charID int64, info string) error {
	return s.setText(ctx, charID, RightModifyGuildInfo, EventInfo, func(sum *Summary) { sum.Info = info })
}

func (s *Service) setText(ctx context.Context, charID int64, right RankRights, evType string, edit func(*Summary)) error {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)
	if !g.HasRankRight(m, right) {
		return ErrNoRights
	}
	sum := g.Summary
	edit(&sum)
	t := s.begin(g)
	t.stage(SaveGuild{Guild: sum}, func() { edit(&g.Summary) })
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.broadcast(g, Event{Type: evType, Data: map[string]string{"motd": g.MOTD, "info": g.Info}})
	return nil
}

// SetMemberNote sets the public or officer note of targetID.
func (s *Service) SetMemberNote(ctx context.Context, charID, targetID int64, note string, officer bool) error {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	right := RightEditPublicNote
	if officer {
		right = RightEditOfficerNote
	}
	if !g.HasRankRight(m, right) {
		return ErrNoRights
	}
	target := g.Member(targetID)
	if target == nil {
		return ErrMemberNotFound
	}
	t := s.begin(g)
	stageMember(t, target, func(x *Member) {
		if officer {
			x.OfficerNote = note
		} else {
			x.PublicNote = note
		}
	})
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	ev := Event{Type: EventNote, Data: map[string]any{"char_id": targetID, "note": note, "officer": officer}}
	if officer {
		s.broadcastIf(g,
			func(x *Member) bool { return g.HasRankRight(x, RightViewOfficerNote) },
			func(*Member) Event { return ev })
		return nil
	}
	s.broadcast(g, ev)
	return nil
}

// SetOnline records a login or logout of charID and refreshes its cached
// character data. Characters outside any guild are ignored.
func (s *Service) SetOnline(ctx context.Context, charID int64, online bool) error {
	info, infoErr := s.chars.Character(ctx, charID)
	g, m, err := s.lockMember(charID)
	if err != nil {
		return nil
	}
	defer s.unlock(g)

	t := s.begin(g)
	now := s.now()
	stageMember(t, m, func(x *Member) {
		x.Online = online
		if !online {
			x.LogoutAt = now
		}
		if infoErr == nil {
			x.SetStats(info)
		}
	})
	return s.commit(ctx, t)
}
