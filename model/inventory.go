package model

// ItemLoc says where an item instance lives.
type ItemLoc = uint8

const (
	ItemLocNone      ItemLoc = 0
	ItemLocInventory ItemLoc = 1
	ItemLocBank      ItemLoc = 2
)

// Item is one item instance. While in an inventory OwnerID is the
// character and Bag/Slot its position; while banked the position is held by
// GuildBankItem and OwnerID is 0.
type Item struct {
	GUID      int64  `gorm:"primaryKey;autoIncrement:false" json:"guid"`
	Entry     int    `gorm:"not null" json:"entry"`
	Count     uint32 `gorm:"default:1" json:"count"`
	MaxStack  uint32 `gorm:"default:1" json:"max_stack"`
	Soulbound bool   `gorm:"default:false" json:"soulbound"`
	Quest     bool   `gorm:"default:false" json:"quest"`
	BagSlots  int    `gorm:"default:0" json:"bag_slots"`
	BagUsed   int    `gorm:"default:0" json:"bag_used"`
	Loc       uint8  `gorm:"default:0" json:"loc"`
	OwnerID   int64  `gorm:"index:idx_item_owner" json:"owner_id"`
	Bag       int    `gorm:"default:0" json:"bag"`
	Slot      int    `gorm:"default:0" json:"slot"`
}
