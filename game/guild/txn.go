package guild

import (
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/guildbank/game/item"
)

// container is a slot grid items can be written to: a bank tab or an
// inventory.
type container interface {
	Len() int
	At(slot int) *item.Item
	Set(slot int, it *item.Item)
}

type slotKey struct {
	c    container
	slot int
}

type counters struct {
	slots []int32
	money int64
}

// txn stages the effects of one guild operation. Reads through the txn see
// earlier staged writes; the live aggregate is only touched by the apply
// funcs, which run after the batch has been committed.
type txn struct {
	g     *Guild
	now   time.Time
	batch Batch

	applies []func()
	after   []func()

	slots    map[slotKey]*item.Item
	counts   map[*item.Item]uint32
	pending  map[any]int
	withdraw map[*Member]*counters
	money    uint64
}

func newTxn(g *Guild, now time.Time) *txn {
	return &txn{
		g:        g,
		now:      now,
		batch:    Batch{TxnID: uuid.NewString(), GuildID: g.ID},
		slots:    make(map[slotKey]*item.Item),
		counts:   make(map[*item.Item]uint32),
		pending:  make(map[any]int),
		withdraw: make(map[*Member]*counters),
		money:    g.Money,
	}
}

// ID returns the transaction id shared by every log entry of the txn.
func (t *txn) ID() string { return t.batch.TxnID }

// stage records op and the in-memory change that goes with it. Either may
// be nil.
func (t *txn) stage(op Op, apply func()) {
	if op != nil {
		t.batch.Ops = append(t.batch.Ops, op)
	}
	if apply != nil {
		t.applies = append(t.applies, apply)
	}
}

// onCommit queues fn to run once the txn has been applied.
func (t *txn) onCommit(fn func()) { t.after = append(t.after, fn) }

func (t *txn) at(c container, slot int) *item.Item {
	if it, ok := t.slots[slotKey{c, slot}]; ok {
		return it
	}
	return c.At(slot)
}

func (t *txn) count(it *item.Item) uint32 {
	if n, ok := t.counts[it]; ok {
		return n
	}
	return it.Count
}

func (t *txn) setSlot(c container, slot int, it *item.Item) {
	t.slots[slotKey{c, slot}] = it
	t.stage(nil, func() { c.Set(slot, it) })
}

func (t *txn) setCount(it *item.Item, n uint32) {
	t.counts[it] = n
	t.stage(nil, func() { it.Count = n })
}

// snapshot returns a detached copy of it carrying its staged count.
func (t *txn) snapshot(it *item.Item) item.Item {
	s := *it
	s.Count = t.count(it)
	return s
}

func nextID[T any](t *txn, r *Ring[T]) uint32 {
	id := r.NextID(t.pending[r])
	t.pending[r]++
	return id
}

func (t *txn) logBank(e BankEntry) {
	if e.Type.IsMoney() {
		e.Tab = MoneyTab
	}
	r := t.g.BankLog(e.Tab)
	if r == nil {
		return
	}
	e.TxnID = t.ID()
	rec := Record[BankEntry]{ID: nextID(t, r), At: t.now, Data: e}
	t.stage(SaveBankLog{GuildID: t.g.ID, Tab: e.Tab, Record: rec}, func() { r.Add(rec) })
}

func (t *txn) logEvent(e EventEntry) {
	r := t.g.events
	rec := Record[EventEntry]{ID: nextID(t, r), At: t.now, Data: e}
	t.stage(SaveEventLog{GuildID: t.g.ID, Record: rec}, func() { r.Add(rec) })
}

func (t *txn) addNews(e NewsEntry) uint32 {
	r := t.g.news
	rec := Record[NewsEntry]{ID: nextID(t, r), At: t.now, Data: e}
	t.stage(SaveNews{GuildID: t.g.ID, Record: rec}, func() { r.Add(rec) })
	return rec.ID
}

func (t *txn) counters(m *Member) *counters {
	c, ok := t.withdraw[m]
	if !ok {
		c = &counters{slots: m.Withdrawals(), money: m.bankWithdrawMoney}
		t.withdraw[m] = c
	}
	return c
}

func (t *txn) saveCounters(m *Member, c *counters) {
	slots := append([]int32(nil), c.slots...)
	money := c.money
	t.stage(SaveMemberWithdraw{
		GuildID:        t.g.ID,
		CharID:         m.CharID,
		Slots:          slots,
		Money:          money,
		WeekActivity:   m.WeekActivity,
		WeekReputation: m.WeekReputation,
	}, func() {
		copy(m.bankWithdraw, slots)
		m.bankWithdrawMoney = money
	})
}

// useSlot consumes one daily withdrawal of m on tab.
func (t *txn) useSlot(m *Member, tab int) {
	c := t.counters(m)
	if tab < 0 || tab >= len(c.slots) {
		return
	}
	c.slots[tab]++
	t.saveCounters(m, c)
}

// useMoney adds amount to m's withdrawn money today.
func (t *txn) useMoney(m *Member, amount int64) {
	c := t.counters(m)
	c.money += amount
	t.saveCounters(m, c)
}

func (t *txn) setMoney(n uint64) {
	t.money = n
	g := t.g
	t.stage(SaveGuildMoney{GuildID: g.ID, Money: n}, func() { g.Money = n })
}

func (t *txn) setGold(inv *item.Inventory, gold uint64) {
	t.stage(SaveCharacterGold{CharID: inv.CharID, Gold: gold}, func() { inv.Gold = gold })
}
