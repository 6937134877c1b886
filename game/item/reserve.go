package item

import "errors"

var (
	// ErrCantStack means the requested slot holds an item the moving one cannot join.
	ErrCantStack = errors.New("item: cannot stack with destination")
	// ErrNoSpace means the grid has no room left for the remaining units.
	ErrNoSpace = errors.New("item: no space")
)

// AnySlot lets the space search pick the slots.
const AnySlot = -1

// Grid is a flat, fixed-size array of slots.
type Grid interface {
	Len() int
	At(slot int) *Item
}

// Placement is a number of units reserved in one slot.
type Placement struct {
	Slot  int
	Count uint32
}

// Reserve plans where every unit of moving can be stored in g.
//
// The requested slot (when not AnySlot) is tried first and must either be
// empty or hold a non-full stack of the same entry. The remainder then tops
// up existing stacks in ascending slot order, and finally fills empty slots
// in ascending order. The requested slot and skip are never scanned. A slot
// holding moving itself counts as empty, and so does the requested slot when
// swap is set because its occupant is about to leave.
func Reserve(g Grid, moving *Item, want int, swap bool, skip int) ([]Placement, error) {
	count := moving.Count
	var out []Placement

	reserve := func(slot int, dest *Item) bool {
		space := moving.MaxStack
		if space == 0 {
			space = 1
		}
		if dest != nil {
			if dest.Entry != moving.Entry || dest.Count >= space {
				return false
			}
			space -= dest.Count
		}
		if space > count {
			space = count
		}
		out = append(out, Placement{Slot: slot, Count: space})
		count -= space
		return true
	}

	if want != AnySlot {
		if want < 0 || want >= g.Len() {
			return nil, ErrCantStack
		}
		dest := g.At(want)
		if dest == moving || swap {
			dest = nil
		}
		if !reserve(want, dest) {
			return nil, ErrCantStack
		}
		if count == 0 {
			return out, nil
		}
	}

	scan := func(merge bool) {
		for slot := 0; slot < g.Len() && count > 0; slot++ {
			if slot == want || slot == skip {
				continue
			}
			dest := g.At(slot)
			if dest == moving {
				dest = nil
			}
			if (dest != nil) != merge {
				continue
			}
			reserve(slot, dest)
		}
	}

	if moving.Stackable() {
		scan(true)
		if count == 0 {
			return out, nil
		}
	}
	scan(false)
	if count == 0 {
		return out, nil
	}
	return nil, ErrNoSpace
}
