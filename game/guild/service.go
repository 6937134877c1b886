package guild

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kasuganosora/guildbank/game/item"
	"go.uber.org/zap"
)

// CharacterDirectory resolves characters outside the guild.
type CharacterDirectory interface {
	Character(ctx context.Context, charID int64) (CharacterInfo, error)
}

// Service runs every guild operation. Each operation holds the guild's lock
// from its first check to its commit, stages its effects in a txn, commits
// them through the Store and only then applies them in memory. Events are
// sent once the lock is released.
type Service struct {
	cfg    Config
	store  Store
	dir    *Directory
	invs   *item.Registry
	guids  *item.GUIDGenerator
	chars  CharacterDirectory
	notify Notifier
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a guild Service. A nil Notifier drops all events.
func NewService(cfg Config, store Store, dir *Directory, invs *item.Registry, guids *item.GUIDGenerator,
	chars CharacterDirectory, n Notifier, logger *zap.Logger) *Service {
	if n == nil {
		n = nopNotifier{}
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		dir:    dir,
		invs:   invs,
		guids:  guids,
		chars:  chars,
		notify: n,
		logger: logger,
		now:    time.Now,
	}
}

// Directory returns the registry of loaded guilds.
func (s *Service) Directory() *Directory { return s.dir }

func (s *Service) begin(g *Guild) *txn { return newTxn(g, s.now()) }

// commit makes t durable, then applies it. On failure nothing in memory
// has changed.
func (s *Service) commit(ctx context.Context, t *txn) error {
	if len(t.batch.Ops) > 0 {
		if err := s.store.Commit(ctx, &t.batch); err != nil {
			s.logger.Error("guild commit failed",
				zap.Int64("guild_id", t.g.ID),
				zap.String("txn_id", t.ID()),
				zap.Int("ops", len(t.batch.Ops)),
				zap.Error(err))
			return fmt.Errorf("%w: %w", ErrCommitFailed, err)
		}
	}
	for _, fn := range t.applies {
		fn()
	}
	for _, fn := range t.after {
		fn()
	}
	return nil
}

// lockMember locks the guild of charID and returns it with the member.
// The caller must unlock g.mu.
func (s *Service) lockMember(charID int64) (*Guild, *Member, error) {
	g := s.dir.ByMember(charID)
	if g == nil {
		return nil, nil, ErrNotInGuild
	}
	g.mu.Lock()
	m := g.Member(charID)
	if m == nil {
		s.unlock(g)
		return nil, nil, ErrNotInGuild
	}
	return g, m, nil
}

// lockLeader is lockMember restricted to the guild leader.
func (s *Service) lockLeader(charID int64) (*Guild, *Member, error) {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return nil, nil, err
	}
	if !g.IsLeader(charID) {
		s.unlock(g)
		return nil, nil, ErrNotLeader
	}
	return g, m, nil
}

// outbox holds the events queued by the operation that owns the guild lock.
type outbox struct {
	direct []Delivery
	guild  []Event
}

// unlock releases g, then sends the events queued while it was held.
func (s *Service) unlock(g *Guild) {
	out := g.out
	g.out = outbox{}
	g.mu.Unlock()
	if len(out.direct) > 0 {
		s.notify.Notify(g.ID, out.direct)
	}
	for _, ev := range out.guild {
		s.notify.Publish(g.ID, ev)
	}
}

// send queues ev for charID.
func (s *Service) send(g *Guild, charID int64, ev Event) {
	ev.GuildID = g.ID
	g.out.direct = append(g.out.direct, Delivery{CharID: charID, Event: ev})
}

// publish queues ev for the guild channel.
func (s *Service) publish(g *Guild, ev Event) {
	ev.GuildID = g.ID
	g.out.guild = append(g.out.guild, ev)
}

// broadcast queues ev for every member and the guild channel.
func (s *Service) broadcast(g *Guild, ev Event) {
	for _, m := range g.Members() {
		s.send(g, m.CharID, ev)
	}
	s.publish(g, ev)
}

// broadcastIf queues ev for the members accepted by pred.
func (s *Service) broadcastIf(g *Guild, pred func(*Member) bool, ev func(*Member) Event) {
	for _, m := range g.Members() {
		if pred(m) {
			s.send(g, m.CharID, ev(m))
		}
	}
}

// sendBankContent pushes the changed slots of tab to every member allowed
// to view it, each with their own remaining withdrawals.
func (s *Service) sendBankContent(g *Guild, tab int, slots []int) {
	t := g.Tab(tab)
	if t == nil {
		return
	}
	sort.Ints(slots)
	views := make([]SlotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, SlotView{Slot: slot, Item: viewItem(t.At(slot))})
	}
	s.broadcastIf(g,
		func(m *Member) bool { return g.HasTabRights(m, tab, BankRightViewTab) },
		func(m *Member) Event {
			return Event{Type: EventBankContent, Data: BankContent{
				Tab:       tab,
				Slots:     views,
				Remaining: g.RemainingSlots(m, tab),
				BankMoney: g.Money,
			}}
		})
	s.publish(g, Event{Type: EventBankContent, Data: BankContent{Tab: tab, Slots: views, BankMoney: g.Money}})
}

func viewItem(it *item.Item) *ItemView {
	if it == nil {
		return nil
	}
	return &ItemView{GUID: it.GUID, Entry: it.Entry, Count: it.Count}
}

// RemainingSlots returns the withdrawals charID has left on tab today.
func (s *Service) RemainingSlots(charID int64, tab int) (int32, error) {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return 0, err
	}
	defer s.unlock(g)
	return g.RemainingSlots(m, tab), nil
}

// RemainingMoney returns the money charID may still withdraw today.
func (s *Service) RemainingMoney(charID int64) (int64, error) {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return 0, err
	}
	defer s.unlock(g)
	return g.RemainingMoney(m), nil
}

// BankTab returns the full content of tab as seen by charID.
func (s *Service) BankTab(charID int64, tab int) (BankContent, error) {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return BankContent{}, err
	}
	defer s.unlock(g)
	t := g.Tab(tab)
	if t == nil {
		return BankContent{}, ErrWrongBagType
	}
	if !g.HasTabRights(m, tab, BankRightViewTab) {
		return BankContent{}, ErrNoRights
	}
	out := BankContent{Tab: tab, Remaining: g.RemainingSlots(m, tab), BankMoney: g.Money}
	for i := 0; i < t.Len(); i++ {
		if it := t.At(i); it != nil {
			out.Slots = append(out.Slots, SlotView{Slot: i, Item: viewItem(it)})
		}
	}
	return out, nil
}

// BankLog returns the log of tab, or of the money pseudo tab.
func (s *Service) BankLog(charID int64, tab int) ([]Record[BankEntry], error) {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(g)
	if tab != MoneyTab {
		if g.Tab(tab) == nil {
			return nil, ErrWrongBagType
		}
		if !g.HasTabRights(m, tab, BankRightViewTab) {
			return nil, ErrNoRights
		}
	}
	return g.BankLog(tab).Entries(), nil
}

// EventLog returns the guild event log.
func (s *Service) EventLog(charID int64) ([]Record[EventEntry], error) {
	g, _, err := s.lockMember(charID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(g)
	return g.events.Entries(), nil
}

// News returns the guild news, sticky entries first.
func (s *Service) News(charID int64) ([]Record[NewsEntry], error) {
	g, _, err := s.lockMember(charID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(g)
	out := g.news.Entries()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Data.Sticky() && !out[j].Data.Sticky() })
	return out, nil
}

// Roster returns the guild as seen by charID.
func (s *Service) Roster(charID int64) (GuildView, error) {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return GuildView{}, err
	}
	defer s.unlock(g)
	return viewGuild(g, g.HasRankRight(m, RightViewOfficerNote)), nil
}

// Permissions returns charID's rights and remaining quotas.
func (s *Service) Permissions(charID int64) (PermissionsView, error) {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return PermissionsView{}, err
	}
	defer s.unlock(g)
	return viewPermissions(g, m), nil
}

// Summaries lists every loaded guild by id.
func (s *Service) Summaries() []SummaryView {
	guilds := s.dir.All()
	out := make([]SummaryView, 0, len(guilds))
	for _, g := range guilds {
		g.mu.Lock()
		out = append(out, viewSummary(g))
		s.unlock(g)
	}
	return out
}
