package item

// Location says which kind of container currently holds an item.
type Location uint8

const (
	LocNone Location = iota
	LocInventory
	LocBank
)

// Item is a live item instance. Items are owned by whichever container
// currently references them; this package only describes the unit that moves.
type Item struct {
	GUID      int64
	Entry     int // item template id
	Count     uint32
	MaxStack  uint32
	Soulbound bool
	Quest     bool
	BagSlots  int // > 0 when the item is itself a bag
	BagUsed   int // items currently stored inside the bag

	Loc     Location
	OwnerID int64 // character id while in an inventory, 0 while banked
	Bag     int   // inventory bag index, or bank tab index
	Slot    int
}

// IsBag reports whether the item is a container.
func (it *Item) IsBag() bool { return it.BagSlots > 0 }

// IsNotEmptyBag reports whether the item is a bag that still holds items.
func (it *Item) IsNotEmptyBag() bool { return it.IsBag() && it.BagUsed > 0 }

// CanBeTraded reports whether the item may leave its owner.
func (it *Item) CanBeTraded() bool { return !it.Soulbound && !it.Quest }

// Stackable reports whether more than one unit fits in a slot.
func (it *Item) Stackable() bool { return it.MaxStack > 1 }

// Clone returns a detached copy of it carrying a new guid and count.
func (it *Item) Clone(guid int64, count uint32) *Item {
	c := *it
	c.GUID = guid
	c.Count = count
	c.Loc = LocNone
	c.OwnerID = 0
	c.Bag, c.Slot = 0, 0
	return &c
}
