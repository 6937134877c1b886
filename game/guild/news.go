package guild

import "context"

// AddNews records a news entry for guildID. It returns the entry id.
func (s *Service) AddNews(ctx context.Context, guildID int64, typ NewsType, charID int64, value uint32) (uint32, error) {
	g, err := s.lockGuild(guildID)
	if err != nil {
		return 0, err
	}
	defer s.unlock(g)

	t := s.begin(g)
	id := t.addNews(NewsEntry{Type: typ, PlayerID: charID, Value: value})
	if err := s.commit(ctx, t); err != nil {
		return 0, err
	}
	s.announce(g, id)
	return id, nil
}

// announce queues the committed news entry id for every online member.
func (s *Service) announce(g *Guild, id uint32) {
	if rec, ok := g.news.Get(id); ok {
		s.broadcast(g, Event{Type: EventNews, Data: rec})
	}
}

// SetNewsSticky pins or unpins a news entry. Any member may do this.
func (s *Service) SetNewsSticky(ctx context.Context, charID int64, id uint32, sticky bool) error {
	g, _, err := s.lockMember(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	rec, ok := g.news.Get(id)
	if !ok {
		return ErrNewsNotFound
	}
	if rec.Data.Sticky() == sticky {
		return nil
	}
	set := func(e *NewsEntry) {
		if sticky {
			e.Flags |= NewsFlagSticky
		} else {
			e.Flags &^= NewsFlagSticky
		}
	}
	set(&rec.Data)
	t := s.begin(g)
	t.stage(SaveNews{GuildID: g.ID, Record: rec}, func() { g.news.Update(id, set) })
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.broadcast(g, Event{Type: EventNews, Data: rec})
	return nil
}
