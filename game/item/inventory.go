package item

import (
	"context"
	"errors"
	"sync"
)

// ErrBadPosition is returned for a bag/slot pair outside the inventory.
var ErrBadPosition = errors.New("item: invalid inventory position")

// Inventory is a character's personal bags and purse.
// Slots of every bag are addressed through one flat index so the inventory
// can be searched as a single Grid.
type Inventory struct {
	mu sync.Mutex

	CharID int64
	Gold   uint64

	bags [][]*Item
	offs []int
	size int
}

// NewInventory creates an inventory with one bag per entry of bagSizes.
// A size of 0 stands for an empty bag slot.
func NewInventory(charID int64, bagSizes []int) *Inventory {
	inv := &Inventory{CharID: charID}
	for _, n := range bagSizes {
		if n < 0 {
			n = 0
		}
		inv.offs = append(inv.offs, inv.size)
		inv.bags = append(inv.bags, make([]*Item, n))
		inv.size += n
	}
	return inv
}

// Lock serialises access to the inventory during a bank transfer.
func (inv *Inventory) Lock() { inv.mu.Lock() }

// Unlock releases the lock taken by Lock.
func (inv *Inventory) Unlock() { inv.mu.Unlock() }

// Len returns the total number of slots over all bags.
func (inv *Inventory) Len() int { return inv.size }

// At returns the item in flat slot i, or nil.
func (inv *Inventory) At(i int) *Item {
	bag, slot, ok := inv.Position(i)
	if !ok {
		return nil
	}
	return inv.bags[bag][slot]
}

// Set writes flat slot i and records the placement on the item.
func (inv *Inventory) Set(i int, it *Item) {
	bag, slot, ok := inv.Position(i)
	if !ok {
		return
	}
	inv.bags[bag][slot] = it
	if it != nil {
		it.Loc = LocInventory
		it.OwnerID = inv.CharID
		it.Bag = bag
		it.Slot = slot
	}
}

// Index converts a bag/slot pair into a flat slot index.
func (inv *Inventory) Index(bag, slot int) (int, bool) {
	if bag < 0 || bag >= len(inv.bags) || slot < 0 || slot >= len(inv.bags[bag]) {
		return 0, false
	}
	return inv.offs[bag] + slot, true
}

// Position converts a flat slot index back into its bag/slot pair.
func (inv *Inventory) Position(i int) (bag, slot int, ok bool) {
	if i < 0 || i >= inv.size {
		return 0, 0, false
	}
	for b := len(inv.offs) - 1; b >= 0; b-- {
		if i >= inv.offs[b] && len(inv.bags[b]) > 0 {
			return b, i - inv.offs[b], true
		}
	}
	return 0, 0, false
}

// Get returns the item at bag/slot, or nil.
func (inv *Inventory) Get(bag, slot int) *Item {
	i, ok := inv.Index(bag, slot)
	if !ok {
		return nil
	}
	return inv.bags[bag][i-inv.offs[bag]]
}

// Place puts it at bag/slot. Used when loading and by tests.
func (inv *Inventory) Place(bag, slot int, it *Item) error {
	i, ok := inv.Index(bag, slot)
	if !ok {
		return ErrBadPosition
	}
	inv.Set(i, it)
	return nil
}

// Items returns every item currently held, in slot order.
func (inv *Inventory) Items() []*Item {
	var out []*Item
	for _, bag := range inv.bags {
		for _, it := range bag {
			if it != nil {
				out = append(out, it)
			}
		}
	}
	return out
}

// CountOf returns how many units of entry the inventory holds.
func (inv *Inventory) CountOf(entry int) uint32 {
	var n uint32
	for _, it := range inv.Items() {
		if it.Entry == entry {
			n += it.Count
		}
	}
	return n
}

// Loader builds a character's inventory from storage.
type Loader func(ctx context.Context, charID int64) (*Inventory, error)

// Registry keeps the live inventory of every character touched so far.
type Registry struct {
	mu   sync.Mutex
	invs map[int64]*Inventory
	load Loader
}

// NewRegistry creates a Registry. load may be nil, in which case unknown
// characters have no inventory.
func NewRegistry(load Loader) *Registry {
	return &Registry{invs: make(map[int64]*Inventory), load: load}
}

// Get returns the live inventory for charID, loading it on first use.
func (r *Registry) Get(ctx context.Context, charID int64) (*Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.invs[charID]; ok {
		return inv, nil
	}
	if r.load == nil {
		return nil, ErrBadPosition
	}
	inv, err := r.load(ctx, charID)
	if err != nil {
		return nil, err
	}
	r.invs[charID] = inv
	return inv, nil
}

// Put registers an already built inventory.
func (r *Registry) Put(inv *Inventory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invs[inv.CharID] = inv
}
