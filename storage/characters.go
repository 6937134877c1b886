package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/guildbank/game/guild"
	"github.com/kasuganosora/guildbank/game/item"
	"github.com/kasuganosora/guildbank/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrCharacterNotFound is returned for unknown character ids.
var ErrCharacterNotFound = errors.New("storage: character not found")

// Characters resolves characters from the characters table.
type Characters struct {
	db *gorm.DB
}

// NewCharacters creates a character directory over db.
func NewCharacters(db *gorm.DB) *Characters { return &Characters{db: db} }

// Character implements guild.CharacterDirectory.
func (c *Characters) Character(ctx context.Context, charID int64) (guild.CharacterInfo, error) {
	var row model.Character
	err := c.db.WithContext(ctx).First(&row, charID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return guild.CharacterInfo{}, fmt.Errorf("%w: %d", ErrCharacterNotFound, charID)
	}
	if err != nil {
		return guild.CharacterInfo{}, err
	}
	return characterInfo(row), nil
}

func characterInfo(c model.Character) guild.CharacterInfo {
	return guild.CharacterInfo{
		CharID:    c.ID,
		AccountID: c.AccountID,
		Name:      c.Name,
		Level:     c.Level,
		Race:      c.Race,
		Class:     c.Class,
		Gender:    c.Gender,
		Zone:      c.Zone,
	}
}

// InventoryLoader returns an item.Loader building inventories with the
// given bag layout from the character's purse and its inventory items.
// Items whose stored position does not fit the layout are skipped.
func InventoryLoader(db *gorm.DB, bags []int, logger *zap.Logger) item.Loader {
	return func(ctx context.Context, charID int64) (*item.Inventory, error) {
		var char model.Character
		err := db.WithContext(ctx).Select("id", "gold").First(&char, charID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrCharacterNotFound, charID)
		}
		if err != nil {
			return nil, err
		}

		var rows []model.Item
		if err := db.WithContext(ctx).
			Where("owner_id = ? AND loc = ?", charID, model.ItemLocInventory).
			Order("bag, slot, guid").
			Find(&rows).Error; err != nil {
			return nil, err
		}

		inv := item.NewInventory(charID, bags)
		inv.Gold = char.Gold
		for _, r := range rows {
			if inv.Get(r.Bag, r.Slot) != nil {
				logger.Warn("inventory slot used twice", zap.Int64("char_id", charID), zap.Int64("item_guid", r.GUID))
				continue
			}
			if err := inv.Place(r.Bag, r.Slot, itemFromRow(r)); err != nil {
				logger.Warn("inventory item out of layout",
					zap.Int64("char_id", charID),
					zap.Int64("item_guid", r.GUID),
					zap.Int("bag", r.Bag),
					zap.Int("slot", r.Slot))
			}
		}
		return inv, nil
	}
}
