package guild

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kasuganosora/guildbank/game/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

const (
	leaderID   int64 = 1
	officerID  int64 = 2
	memberID   int64 = 3
	outsiderID int64 = 9

	initiateRank uint8 = 4
)

// memStore keeps every committed batch. A non-nil err fails all commits;
// failGuild fails only the commits of that guild.
type memStore struct {
	mu        sync.Mutex
	batches   []Batch
	err       error
	failGuild int64
}

func (s *memStore) Commit(_ context.Context, b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.failGuild != 0 && b.GuildID == s.failGuild {
		return errors.New("guild store down")
	}
	s.batches = append(s.batches, *b)
	return nil
}

func (s *memStore) last() Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return Batch{}
	}
	return s.batches[len(s.batches)-1]
}

type charBook map[int64]CharacterInfo

func (c charBook) Character(_ context.Context, charID int64) (CharacterInfo, error) {
	info, ok := c[charID]
	if !ok {
		return CharacterInfo{}, errors.New("character not found")
	}
	return info, nil
}

// recorder collects notifications per character.
type recorder struct {
	mu        sync.Mutex
	sent      map[int64][]Event
	published []Event
	notifies  int
}

func newRecorder() *recorder { return &recorder{sent: make(map[int64][]Event)} }

func (r *recorder) Notify(_ int64, ds []Delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifies++
	for _, d := range ds {
		r.sent[d.CharID] = append(r.sent[d.CharID], d.Event)
	}
}

func (r *recorder) Publish(_ int64, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, ev)
}

func (r *recorder) of(charID int64, typ string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.sent[charID] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = make(map[int64][]Event)
	r.published = nil
	r.notifies = 0
}

type fixture struct {
	svc    *Service
	store  *memStore
	events *recorder
	invs   *item.Registry
	guids  *item.GUIDGenerator
	chars  charBook
	g      *Guild
}

// newFixture creates a guild led by leaderID with an officer, an initiate
// and two purchased bank tabs of 8 slots.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TabCosts = nil
	cfg.BankSlots = 8

	chars := charBook{}
	for _, id := range []int64{leaderID, officerID, memberID, 4, 5, outsiderID} {
		chars[id] = CharacterInfo{CharID: id, Name: fmt.Sprintf("char%d", id), Level: 10, Class: 1}
	}
	invs := item.NewRegistry(func(_ context.Context, charID int64) (*item.Inventory, error) {
		return item.NewInventory(charID, []int{4}), nil
	})
	f := &fixture{
		store:  &memStore{},
		events: newRecorder(),
		invs:   invs,
		guids:  item.NewGUIDGenerator(1000, 0),
		chars:  chars,
	}
	f.svc = NewService(cfg, f.store, NewDirectory(), invs, f.guids, chars, f.events, nop())

	ctx := context.Background()
	g, err := f.svc.CreateGuild(ctx, leaderID, "Bankers")
	require.NoError(t, err)
	f.g = g
	require.NoError(t, f.svc.Invite(ctx, leaderID, officerID))
	require.NoError(t, f.svc.Invite(ctx, leaderID, memberID))
	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.UpdateMemberRank(ctx, leaderID, officerID, false))
	}
	require.NoError(t, f.svc.BuyBankTab(ctx, leaderID, 0))
	require.NoError(t, f.svc.BuyBankTab(ctx, leaderID, 1))
	f.events.reset()
	return f
}

func (f *fixture) newItem(t *testing.T, entry int, count, maxStack uint32) *item.Item {
	t.Helper()
	guid, err := f.guids.Next()
	require.NoError(t, err)
	return &item.Item{GUID: guid, Entry: entry, Count: count, MaxStack: maxStack}
}

// bank puts a new item straight into a tab slot.
func (f *fixture) bank(t *testing.T, tab, slot, entry int, count, maxStack uint32) *item.Item {
	t.Helper()
	it := f.newItem(t, entry, count, maxStack)
	f.g.Tab(tab).Set(slot, it)
	return it
}

func (f *fixture) inv(t *testing.T, charID int64) *item.Inventory {
	t.Helper()
	inv, err := f.invs.Get(context.Background(), charID)
	require.NoError(t, err)
	return inv
}

// carry puts a new item straight into a character's first bag.
func (f *fixture) carry(t *testing.T, charID int64, slot, entry int, count, maxStack uint32) *item.Item {
	t.Helper()
	it := f.newItem(t, entry, count, maxStack)
	require.NoError(t, f.inv(t, charID).Place(0, slot, it))
	return it
}

// grant sets the rights of rankID on one tab, keeping everything else.
func (f *fixture) grant(t *testing.T, rankID uint8, tab int, tr TabRights) {
	t.Helper()
	r := f.g.Rank(rankID)
	require.NotNil(t, r)
	edit := RankEdit{Name: r.Name, Rights: r.Rights(), MoneyPerDay: r.MoneyPerDay(), Tabs: make([]TabRights, f.g.TabCount())}
	for i := range edit.Tabs {
		edit.Tabs[i] = TabRights{Rights: r.BankTabRights(i), SlotsPerDay: r.BankTabSlotsPerDay(i)}
	}
	edit.Tabs[tab] = tr
	require.NoError(t, f.svc.SetRankInfo(context.Background(), leaderID, rankID, edit))
}

func bankLoc(tab, slot int) Location { return Location{Bank: true, Container: tab, Slot: slot} }
func invLoc(slot int) Location       { return Location{Container: 0, Slot: slot} }

func TestFixture_Layout(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 3, f.g.MemberCount())
	assert.Equal(t, 2, f.g.TabCount())
	assert.Equal(t, OfficerRank, f.g.Member(officerID).RankID)
	assert.Equal(t, initiateRank, f.g.Member(memberID).RankID)
	assert.Equal(t, f.g, f.svc.Directory().ByMember(memberID))
}

func TestRemainingSlots_NoViewRight(t *testing.T) {
	f := newFixture(t)
	f.grant(t, initiateRank, 0, TabRights{Rights: 0, SlotsPerDay: 10})

	n, err := f.svc.RemainingSlots(memberID, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(0), n)
}

func TestRemainingSlots_NotInGuild(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RemainingSlots(outsiderID, 0)
	assert.ErrorIs(t, err, ErrNotInGuild)
}

func TestGuildMaster_AlwaysUnlimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	err := f.svc.SetRankInfo(ctx, leaderID, GuildMasterRank, RankEdit{
		Name:        "Boss",
		Rights:      RightGChatListen,
		MoneyPerDay: 5,
		Tabs:        []TabRights{{Rights: 0, SlotsPerDay: 0}, {Rights: BankRightViewTab, SlotsPerDay: 1}},
	})
	require.NoError(t, err)

	gm := f.g.Rank(GuildMasterRank)
	assert.Equal(t, "Boss", gm.Name)
	assert.Equal(t, RightAll, gm.Rights())
	assert.Equal(t, UnlimitedMoney, gm.MoneyPerDay())
	for tab := 0; tab < f.g.TabCount(); tab++ {
		assert.Equal(t, BankRightFull, gm.BankTabRights(tab))
		assert.Equal(t, UnlimitedSlots, gm.BankTabSlotsPerDay(tab))
		n, err := f.svc.RemainingSlots(leaderID, tab)
		require.NoError(t, err)
		assert.Equal(t, UnlimitedSlots, n)
	}
	money, err := f.svc.RemainingMoney(leaderID)
	require.NoError(t, err)
	assert.Equal(t, UnlimitedMoney, money)
}

func TestBankTab_RequiresViewRight(t *testing.T) {
	f := newFixture(t)
	f.bank(t, 0, 2, 100, 3, 20)

	_, err := f.svc.BankTab(memberID, 0)
	assert.ErrorIs(t, err, ErrNoRights)

	f.grant(t, initiateRank, 0, TabRights{Rights: BankRightViewTab, SlotsPerDay: 4})
	view, err := f.svc.BankTab(memberID, 0)
	require.NoError(t, err)
	require.Len(t, view.Slots, 1)
	assert.Equal(t, 2, view.Slots[0].Slot)
	assert.Equal(t, uint32(3), view.Slots[0].Item.Count)
	assert.Equal(t, int32(4), view.Remaining)

	_, err = f.svc.BankTab(memberID, 5)
	assert.ErrorIs(t, err, ErrWrongBagType)
}

func TestRoster_OfficerNotesHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SetMemberNote(ctx, leaderID, memberID, "watch out", true))

	view, err := f.svc.Roster(memberID)
	require.NoError(t, err)
	for _, m := range view.Members {
		assert.Empty(t, m.OfficerNote)
	}

	view, err = f.svc.Roster(officerID)
	require.NoError(t, err)
	var found bool
	for _, m := range view.Members {
		if m.CharID == memberID {
			found = true
			assert.Equal(t, "watch out", m.OfficerNote)
		}
	}
	assert.True(t, found)
	assert.Len(t, view.Ranks, 5)
	assert.Len(t, view.Tabs, 2)
}

func TestSummaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SetOnline(ctx, officerID, true))
	require.NoError(t, f.svc.SetOnline(ctx, outsiderID, true), "outsiders are ignored")
	_, err := f.svc.CreateGuild(ctx, 4, "Smiths")
	require.NoError(t, err)

	sums := f.svc.Summaries()
	require.Len(t, sums, 2)
	byName := make(map[string]SummaryView)
	for _, v := range sums {
		byName[v.Name] = v
	}
	bankers := byName["Bankers"]
	assert.Equal(t, f.g.ID, bankers.ID)
	assert.Equal(t, leaderID, bankers.LeaderID)
	assert.Equal(t, 3, bankers.Members)
	assert.Equal(t, 1, bankers.Online)
	assert.Equal(t, 2, bankers.Tabs)
	assert.Equal(t, 1, byName["Smiths"].Members)
	assert.Zero(t, byName["Smiths"].Tabs)
}

// lockWatch records whether the guild lock was free whenever events
// arrived.
type lockWatch struct {
	g     *Guild
	calls int
	held  int
}

func (w *lockWatch) check() {
	w.calls++
	if !w.g.mu.TryLock() {
		w.held++
		return
	}
	w.g.mu.Unlock()
}

func (w *lockWatch) Notify(int64, []Delivery) { w.check() }
func (w *lockWatch) Publish(int64, Event)     { w.check() }

func TestEvents_SentAfterUnlock(t *testing.T) {
	f := newFixture(t)
	w := &lockWatch{g: f.g}
	f.svc.notify = w
	ctx := context.Background()
	f.inv(t, leaderID).Gold = 100
	f.carry(t, leaderID, 0, 100, 5, 20)

	require.NoError(t, f.svc.DepositMoney(ctx, leaderID, 40, false))
	require.NoError(t, f.svc.Transfer(ctx, leaderID, invLoc(0), bankLoc(0, 3), 0))
	require.NoError(t, f.svc.SetMOTD(ctx, leaderID, "hello"))

	assert.Greater(t, w.calls, 0)
	assert.Zero(t, w.held, "events sent while the guild lock was held")
}

func TestEvents_OneNotifyPerOperation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SetMOTD(context.Background(), leaderID, "hello"))

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	assert.Equal(t, 1, f.events.notifies)
	for _, id := range []int64{leaderID, officerID, memberID} {
		require.Len(t, f.events.sent[id], 1)
		assert.Equal(t, f.g.ID, f.events.sent[id][0].GuildID)
	}
	require.Len(t, f.events.published, 1)
	assert.Equal(t, EventMOTD, f.events.published[0].Type)
}

func TestErrors_ClassAndCode(t *testing.T) {
	cases := []struct {
		err   error
		class error
		code  ResultCode
	}{
		{ErrNoRights, ErrPermission, CodePermissions},
		{ErrSlotQuota, ErrQuota, CodeWithdrawLimit},
		{ErrBankFull, ErrCapacity, CodeBankFull},
		{ErrItemNotFound, ErrNotFound, CodeItemNotFound},
		{ErrSameSlot, ErrInvalid, CodeOf(ErrSameSlot)},
	}
	for _, c := range cases {
		wrapped := fmt.Errorf("ctx: %w", c.err)
		assert.ErrorIs(t, wrapped, c.err)
		assert.ErrorIs(t, wrapped, c.class)
		assert.Equal(t, c.code, CodeOf(wrapped))
	}
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeSuccess, CodeOf(nil))
}
