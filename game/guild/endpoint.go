package guild

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/guildbank/game/item"
)

// Endpoint is the source or destination of a bank item move.
type Endpoint interface {
	IsBank() bool
	Container() int
	Slot() int

	// InitItem resolves the item at the endpoint's slot.
	InitItem() error
	// Item returns the resolved item, or the split clone when split is set.
	Item(split bool) *item.Item
	// CloneItem prepares a clone of count units for a split.
	CloneItem(count uint32) error

	CheckStoreRights(other Endpoint) error
	CheckWithdrawRights(other Endpoint) error
	// CanStore plans where it would go. The plan is kept for StoreItem.
	CanStore(it *item.Item, swap bool) error

	RemoveItem(t *txn, other Endpoint, split uint32) error
	StoreItem(t *txn, it *item.Item) error
	LogBankEvent(t *txn, from Endpoint, count uint32)

	// touched returns the slots a committed move changed on this endpoint.
	touched() []int
}

// moveData is the state shared by both endpoint kinds.
type moveData struct {
	g     *Guild
	m     *Member
	guids *item.GUIDGenerator

	container int
	slot      int
	skip      int

	it         *item.Item
	clone      *item.Item
	placements []item.Placement
}

func (d *moveData) Container() int { return d.container }
func (d *moveData) Slot() int      { return d.slot }

func (d *moveData) Item(split bool) *item.Item {
	if split {
		return d.clone
	}
	return d.it
}

func (d *moveData) CloneItem(count uint32) error {
	guid, err := d.guids.Next()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCloneFailed, err)
	}
	d.clone = d.it.Clone(guid, count)
	return nil
}

func (d *moveData) touched() []int {
	out := []int{}
	if d.slot != item.AnySlot {
		out = append(out, d.slot)
	}
	for _, p := range d.placements {
		if p.Slot != d.slot {
			out = append(out, p.Slot)
		}
	}
	return out
}

func reserveErr(err error, full *Error) error {
	switch {
	case errors.Is(err, item.ErrCantStack):
		return ErrCantStack
	case errors.Is(err, item.ErrNoSpace):
		return full
	}
	return err
}

// place writes it into c following the planned placements. A placement on
// an occupied slot tops up that stack; the last such placement consumes it.
// Every other placement but the last receives a fresh clone, the last one
// receives it itself.
func (d *moveData) place(t *txn, c container, it *item.Item, save func(slot int, snap item.Item)) error {
	for i, p := range d.placements {
		last := i == len(d.placements)-1
		if dest := t.at(c, p.Slot); dest != nil {
			t.setCount(dest, t.count(dest)+p.Count)
			save(p.Slot, t.snapshot(dest))
			if last {
				t.stage(DeleteItem{GUID: it.GUID}, nil)
			}
			continue
		}
		placed := it
		if last {
			t.setCount(it, p.Count)
		} else {
			guid, err := d.guids.Next()
			if err != nil {
				return fmt.Errorf("%w: %w", ErrCloneFailed, err)
			}
			placed = it.Clone(guid, p.Count)
		}
		t.setSlot(c, p.Slot, placed)
		save(p.Slot, t.snapshot(placed))
	}
	return nil
}

// BankEndpoint addresses a slot of a bank tab.
type BankEndpoint struct {
	moveData
}

// NewBankEndpoint creates an endpoint for tab/slot acting as member m.
// slot may be item.AnySlot for a destination.
func NewBankEndpoint(g *Guild, m *Member, guids *item.GUIDGenerator, tab, slot int) *BankEndpoint {
	return &BankEndpoint{moveData{g: g, m: m, guids: guids, container: tab, slot: slot, skip: item.AnySlot}}
}

func (b *BankEndpoint) IsBank() bool { return true }

func (b *BankEndpoint) sameTab(other Endpoint) bool {
	return other.IsBank() && other.Container() == b.container
}

func (b *BankEndpoint) InitItem() error {
	tab := b.g.Tab(b.container)
	if tab == nil {
		return ErrWrongBagType
	}
	b.it = tab.At(b.slot)
	if b.it == nil {
		return ErrItemNotFound
	}
	return nil
}

func (b *BankEndpoint) CheckStoreRights(other Endpoint) error {
	if b.sameTab(other) {
		return nil
	}
	if !b.g.HasTabRights(b.m, b.container, BankRightDeposit) {
		return ErrNoRights
	}
	return nil
}

func (b *BankEndpoint) CheckWithdrawRights(other Endpoint) error {
	if b.sameTab(other) {
		return nil
	}
	if b.g.RemainingSlots(b.m, b.container) == 0 {
		return ErrSlotQuota
	}
	return nil
}

func (b *BankEndpoint) CanStore(it *item.Item, swap bool) error {
	if it.Soulbound {
		return ErrBoundItem
	}
	tab := b.g.Tab(b.container)
	if tab == nil {
		return ErrWrongBagType
	}
	if b.slot != item.AnySlot && (b.slot < 0 || b.slot >= tab.Len()) {
		return ErrWrongSlot
	}
	p, err := item.Reserve(tab, it, b.slot, swap, b.skip)
	if err != nil {
		return reserveErr(err, ErrBankFull)
	}
	b.placements = p
	return nil
}

func (b *BankEndpoint) RemoveItem(t *txn, other Endpoint, split uint32) error {
	tab := b.g.Tab(b.container)
	if split > 0 {
		t.setCount(b.it, t.count(b.it)-split)
		snap := t.snapshot(b.it)
		t.stage(SaveItem{Item: snap}, nil)
	} else {
		t.setSlot(tab, b.slot, nil)
		t.stage(DeleteBankSlot{GuildID: b.g.ID, Tab: b.container, Slot: b.slot}, nil)
	}
	if !b.sameTab(other) {
		t.useSlot(b.m, b.container)
	}
	return nil
}

func (b *BankEndpoint) StoreItem(t *txn, it *item.Item) error {
	tab := b.g.Tab(b.container)
	if tab == nil {
		return ErrWrongBagType
	}
	return b.place(t, tab, it, func(slot int, snap item.Item) {
		snap.Loc, snap.OwnerID, snap.Bag, snap.Slot = item.LocBank, 0, b.container, slot
		t.stage(SaveItem{Item: snap}, nil)
		t.stage(SaveBankItem{GuildID: b.g.ID, Tab: b.container, Slot: slot, GUID: snap.GUID}, nil)
	})
}

func (b *BankEndpoint) LogBankEvent(t *txn, from Endpoint, count uint32) {
	e := BankEntry{
		PlayerID:    b.m.CharID,
		ItemOrMoney: uint64(from.Item(false).Entry),
		Count:       count,
	}
	if from.IsBank() {
		e.Type, e.Tab, e.DestTab = BankLogMoveItem, from.Container(), b.container
	} else {
		e.Type, e.Tab = BankLogDepositItem, b.container
	}
	t.logBank(e)
}

// InventoryEndpoint addresses a slot of the acting character's inventory.
type InventoryEndpoint struct {
	moveData
	inv  *item.Inventory
	flat int
}

// NewInventoryEndpoint creates an endpoint for bag/slot of inv. slot may be
// item.AnySlot for a destination, in which case the whole inventory is
// searched.
func NewInventoryEndpoint(g *Guild, m *Member, guids *item.GUIDGenerator, inv *item.Inventory, bag, slot int) *InventoryEndpoint {
	e := &InventoryEndpoint{
		moveData: moveData{g: g, m: m, guids: guids, container: bag, slot: slot, skip: item.AnySlot},
		inv:      inv,
		flat:     item.AnySlot,
	}
	if slot != item.AnySlot {
		if i, ok := inv.Index(bag, slot); ok {
			e.flat = i
		} else {
			e.flat = inv.Len()
		}
	}
	return e
}

func (p *InventoryEndpoint) IsBank() bool { return false }

func (p *InventoryEndpoint) InitItem() error {
	p.it = p.inv.Get(p.container, p.slot)
	switch {
	case p.it == nil:
		return ErrItemNotFound
	case p.it.IsNotEmptyBag():
		p.it = nil
		return ErrNonEmptyBag
	case !p.it.CanBeTraded():
		p.it = nil
		return ErrCantTrade
	}
	return nil
}

func (p *InventoryEndpoint) CheckStoreRights(Endpoint) error    { return nil }
func (p *InventoryEndpoint) CheckWithdrawRights(Endpoint) error { return nil }

func (p *InventoryEndpoint) CanStore(it *item.Item, swap bool) error {
	pl, err := item.Reserve(p.inv, it, p.flat, swap, p.skip)
	if err != nil {
		if p.flat >= p.inv.Len() {
			return ErrWrongSlot
		}
		return reserveErr(err, ErrInventoryFull)
	}
	p.placements = pl
	return nil
}

func (p *InventoryEndpoint) RemoveItem(t *txn, _ Endpoint, split uint32) error {
	if split > 0 {
		t.setCount(p.it, t.count(p.it)-split)
		t.stage(SaveItem{Item: t.snapshot(p.it)}, nil)
		return nil
	}
	t.setSlot(p.inv, p.flat, nil)
	return nil
}

func (p *InventoryEndpoint) StoreItem(t *txn, it *item.Item) error {
	return p.place(t, p.inv, it, func(slot int, snap item.Item) {
		bag, s, _ := p.inv.Position(slot)
		snap.Loc, snap.OwnerID, snap.Bag, snap.Slot = item.LocInventory, p.inv.CharID, bag, s
		t.stage(SaveItem{Item: snap}, nil)
	})
}

func (p *InventoryEndpoint) LogBankEvent(t *txn, from Endpoint, count uint32) {
	t.logBank(BankEntry{
		Type:        BankLogWithdrawItem,
		Tab:         from.Container(),
		PlayerID:    p.m.CharID,
		ItemOrMoney: uint64(from.Item(false).Entry),
		Count:       count,
	})
}

func (p *InventoryEndpoint) touched() []int { return nil }
