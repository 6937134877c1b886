package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasuganosora/guildbank/game/guild"
	"github.com/kasuganosora/guildbank/game/item"
	"github.com/kasuganosora/guildbank/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists guild batches and loads guilds back. Every batch is
// written in one database transaction.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStore creates a GormStore over db.
func NewGormStore(db *gorm.DB, logger *zap.Logger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

// Commit writes every op of b or none of them.
func (s *GormStore) Commit(ctx context.Context, b *guild.Batch) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, op := range b.Ops {
			if err := apply(tx, op); err != nil {
				return fmt.Errorf("op %d %T: %w", i, op, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit txn %s: %w", b.TxnID, err)
	}
	s.logger.Debug("guild batch committed",
		zap.Int64("guild_id", b.GuildID),
		zap.String("txn_id", b.TxnID),
		zap.Int("ops", len(b.Ops)))
	return nil
}

// memberColumns are rewritten on a member upsert; joined_at is kept.
var memberColumns = []string{
	"guild_id", "rank_id", "public_note", "officer_note", "logout_at",
	"week_activity", "week_reputation", "bank_withdraw", "bank_withdraw_money", "criteria",
}

func upsert(tx *gorm.DB, row any) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func apply(tx *gorm.DB, op guild.Op) error {
	switch o := op.(type) {
	case guild.SaveItem:
		return upsert(tx, itemRow(o.Item))
	case guild.DeleteItem:
		return tx.Delete(&model.Item{}, o.GUID).Error
	case guild.SaveBankItem:
		// the item may still be indexed under the slot it left
		if err := tx.Where("item_guid = ?", o.GUID).Delete(&model.GuildBankItem{}).Error; err != nil {
			return err
		}
		return upsert(tx, &model.GuildBankItem{GuildID: o.GuildID, Tab: o.Tab, Slot: o.Slot, ItemGUID: o.GUID})
	case guild.DeleteBankSlot:
		return tx.Where("guild_id = ? AND tab = ? AND slot = ?", o.GuildID, o.Tab, o.Slot).
			Delete(&model.GuildBankItem{}).Error
	case guild.SaveBankLog:
		e := o.Record.Data
		return upsert(tx, &model.GuildBankEventLog{
			GuildID:     o.GuildID,
			Tab:         o.Tab,
			LogID:       o.Record.ID,
			EventType:   uint8(e.Type),
			PlayerID:    e.PlayerID,
			ItemOrMoney: e.ItemOrMoney,
			Count:       e.Count,
			DestTab:     e.DestTab,
			TxnID:       e.TxnID,
			CreatedAt:   o.Record.At,
		})
	case guild.SaveEventLog:
		e := o.Record.Data
		return upsert(tx, &model.GuildEventLog{
			GuildID:   o.GuildID,
			LogID:     o.Record.ID,
			EventType: uint8(e.Type),
			PlayerID:  e.PlayerID,
			TargetID:  e.TargetID,
			NewRank:   e.NewRank,
			CreatedAt: o.Record.At,
		})
	case guild.SaveNews:
		e := o.Record.Data
		return upsert(tx, &model.GuildNewsLog{
			GuildID:   o.GuildID,
			LogID:     o.Record.ID,
			NewsType:  uint8(e.Type),
			PlayerID:  e.PlayerID,
			Flags:     e.Flags,
			Value:     e.Value,
			CreatedAt: o.Record.At,
		})
	case guild.SaveMemberWithdraw:
		slots, err := json.Marshal(o.Slots)
		if err != nil {
			return err
		}
		return tx.Model(&model.GuildMember{}).Where("char_id = ?", o.CharID).Updates(map[string]any{
			"bank_withdraw":       datatypes.JSON(slots),
			"bank_withdraw_money": o.Money,
			"week_activity":       o.WeekActivity,
			"week_reputation":     o.WeekReputation,
		}).Error
	case guild.SaveGuildMoney:
		return tx.Model(&model.Guild{}).Where("id = ?", o.GuildID).Update("money", o.Money).Error
	case guild.SaveCharacterGold:
		return tx.Model(&model.Character{}).Where("id = ?", o.CharID).Update("gold", o.Gold).Error
	case guild.SaveRank:
		r := o.Rank
		return upsert(tx, &model.GuildRank{
			GuildID:     o.GuildID,
			RankID:      r.ID,
			RankOrder:   r.Order,
			Name:        r.Name,
			Rights:      uint32(r.Rights()),
			MoneyPerDay: r.MoneyPerDay(),
		})
	case guild.DeleteRank:
		if err := tx.Where("guild_id = ? AND rank_id = ?", o.GuildID, o.RankID).Delete(&model.GuildBankRight{}).Error; err != nil {
			return err
		}
		return tx.Where("guild_id = ? AND rank_id = ?", o.GuildID, o.RankID).Delete(&model.GuildRank{}).Error
	case guild.SaveBankRight:
		return upsert(tx, &model.GuildBankRight{
			GuildID:     o.GuildID,
			RankID:      o.RankID,
			Tab:         o.Tab,
			Rights:      uint8(o.Rights.Rights),
			SlotsPerDay: o.Rights.SlotsPerDay,
		})
	case guild.SaveBankTab:
		return upsert(tx, &model.GuildBankTab{GuildID: o.GuildID, Tab: o.Tab, Name: o.Name, Icon: o.Icon, Text: o.Text})
	case guild.SaveMember:
		row, err := memberRow(o.Member)
		if err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "char_id"}},
			DoUpdates: clause.AssignmentColumns(memberColumns),
		}).Create(row).Error
	case guild.DeleteMember:
		return tx.Where("guild_id = ? AND char_id = ?", o.GuildID, o.CharID).Delete(&model.GuildMember{}).Error
	case guild.SaveGuild:
		g := o.Guild
		return upsert(tx, &model.Guild{
			ID:            g.ID,
			Name:          g.Name,
			LeaderID:      g.LeaderID,
			MOTD:          g.MOTD,
			Info:          g.Info,
			Money:         g.Money,
			CreatedAt:     g.CreatedAt,
			DailyResetAt:  optTime(g.DailyResetAt),
			WeeklyResetAt: optTime(g.WeeklyResetAt),
		})
	case guild.SaveGuildReset:
		return tx.Model(&model.Guild{}).Where("id = ?", o.GuildID).Updates(map[string]any{
			"daily_reset_at":  optTime(o.Daily),
			"weekly_reset_at": optTime(o.Weekly),
		}).Error
	case guild.DeleteGuild:
		return deleteGuild(tx, o.GuildID)
	}
	return fmt.Errorf("unknown op %T", op)
}

func deleteGuild(tx *gorm.DB, id int64) error {
	banked := tx.Model(&model.GuildBankItem{}).Select("item_guid").Where("guild_id = ?", id)
	if err := tx.Where("guid IN (?)", banked).Delete(&model.Item{}).Error; err != nil {
		return err
	}
	for _, m := range []any{
		&model.GuildBankItem{},
		&model.GuildBankTab{},
		&model.GuildBankRight{},
		&model.GuildRank{},
		&model.GuildMember{},
		&model.GuildEventLog{},
		&model.GuildBankEventLog{},
		&model.GuildNewsLog{},
	} {
		if err := tx.Where("guild_id = ?", id).Delete(m).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&model.Guild{}, id).Error
}

// optTime maps the zero time to NULL.
func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeOf(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return *p
}

func itemRow(it item.Item) *model.Item {
	return &model.Item{
		GUID:      it.GUID,
		Entry:     it.Entry,
		Count:     it.Count,
		MaxStack:  it.MaxStack,
		Soulbound: it.Soulbound,
		Quest:     it.Quest,
		BagSlots:  it.BagSlots,
		BagUsed:   it.BagUsed,
		Loc:       uint8(it.Loc),
		OwnerID:   it.OwnerID,
		Bag:       it.Bag,
		Slot:      it.Slot,
	}
}

func itemFromRow(r model.Item) *item.Item {
	return &item.Item{
		GUID:      r.GUID,
		Entry:     r.Entry,
		Count:     r.Count,
		MaxStack:  r.MaxStack,
		Soulbound: r.Soulbound,
		Quest:     r.Quest,
		BagSlots:  r.BagSlots,
		BagUsed:   r.BagUsed,
		Loc:       item.Location(r.Loc),
		OwnerID:   r.OwnerID,
		Bag:       r.Bag,
		Slot:      r.Slot,
	}
}

func memberRow(m *guild.Member) (*model.GuildMember, error) {
	slots, err := json.Marshal(m.Withdrawals())
	if err != nil {
		return nil, err
	}
	criteria, err := json.Marshal(m.Criteria)
	if err != nil {
		return nil, err
	}
	row := &model.GuildMember{
		CharID:            m.CharID,
		GuildID:           m.GuildID,
		RankID:            m.RankID,
		PublicNote:        m.PublicNote,
		OfficerNote:       m.OfficerNote,
		WeekActivity:      m.WeekActivity,
		WeekReputation:    m.WeekReputation,
		BankWithdraw:      datatypes.JSON(slots),
		BankWithdrawMoney: m.BankWithdrawMoney(),
		Criteria:          datatypes.JSON(criteria),
	}
	row.LogoutAt = optTime(m.LogoutAt)
	return row, nil
}
