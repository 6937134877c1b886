package guild

import "github.com/kasuganosora/guildbank/game/item"

// BankTab is one purchased tab of the guild bank.
type BankTab struct {
	Index int
	Name  string
	Icon  string
	Text  string

	slots []*item.Item
}

// NewBankTab creates an empty tab with the given number of slots.
func NewBankTab(index, slots int) *BankTab {
	return &BankTab{Index: index, slots: make([]*item.Item, slots)}
}

// Len returns the fixed slot count.
func (t *BankTab) Len() int { return len(t.slots) }

// At returns the item in slot, or nil when the slot is empty or out of range.
func (t *BankTab) At(slot int) *item.Item {
	if slot < 0 || slot >= len(t.slots) {
		return nil
	}
	return t.slots[slot]
}

// Set writes slot. A stored item is detached from any character and placed
// in this tab.
func (t *BankTab) Set(slot int, it *item.Item) {
	if slot < 0 || slot >= len(t.slots) {
		return
	}
	t.slots[slot] = it
	if it != nil {
		it.Loc = item.LocBank
		it.OwnerID = 0
		it.Bag = t.Index
		it.Slot = slot
	}
}

// Items returns the occupied slots.
func (t *BankTab) Items() map[int]*item.Item {
	out := make(map[int]*item.Item)
	for i, it := range t.slots {
		if it != nil {
			out[i] = it
		}
	}
	return out
}

// Clear detaches every item from the tab and returns them.
func (t *BankTab) Clear() []*item.Item {
	var out []*item.Item
	for i, it := range t.slots {
		if it != nil {
			it.Loc = item.LocNone
			out = append(out, it)
			t.slots[i] = nil
		}
	}
	return out
}
