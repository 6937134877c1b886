package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kasuganosora/guildbank/game/guild"
	"github.com/kasuganosora/guildbank/model"
	"go.uber.org/zap"
)

// LoadGuilds rebuilds every stored guild. The aggregates are not validated
// nor registered; pass each one to guild.Service.Restore.
func (s *GormStore) LoadGuilds(ctx context.Context, cfg guild.Config) ([]*guild.Guild, error) {
	db := s.db.WithContext(ctx)

	var rows []model.Guild
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load guilds: %w", err)
	}
	guilds := make(map[int64]*guild.Guild, len(rows))
	out := make([]*guild.Guild, 0, len(rows))
	for _, r := range rows {
		g := guild.New(cfg, guild.Summary{
			ID:            r.ID,
			Name:          r.Name,
			LeaderID:      r.LeaderID,
			MOTD:          r.MOTD,
			Info:          r.Info,
			Money:         r.Money,
			CreatedAt:     r.CreatedAt,
			DailyResetAt:  timeOf(r.DailyResetAt),
			WeeklyResetAt: timeOf(r.WeeklyResetAt),
		})
		guilds[r.ID] = g
		out = append(out, g)
	}
	if len(out) == 0 {
		return out, nil
	}

	steps := []struct {
		name string
		fn   func(context.Context, map[int64]*guild.Guild, guild.Config) error
	}{
		{"ranks", s.loadRanks},
		{"tabs", s.loadTabs},
		{"members", s.loadMembers},
		{"event log", s.loadEventLogs},
		{"bank log", s.loadBankLogs},
		{"news", s.loadNews},
	}
	for _, st := range steps {
		if err := st.fn(ctx, guilds, cfg); err != nil {
			return nil, fmt.Errorf("load guild %s: %w", st.name, err)
		}
	}
	s.logger.Info("guilds loaded", zap.Int("count", len(out)))
	return out, nil
}

func (s *GormStore) loadRanks(ctx context.Context, guilds map[int64]*guild.Guild, _ guild.Config) error {
	var ranks []model.GuildRank
	if err := s.db.WithContext(ctx).Order("guild_id, rank_order").Find(&ranks).Error; err != nil {
		return err
	}
	type key struct {
		guild int64
		rank  uint8
	}
	byKey := make(map[key]*guild.Rank)
	for _, r := range ranks {
		g := guilds[r.GuildID]
		if g == nil {
			continue
		}
		rank := guild.NewRank(r.RankID, r.RankOrder, r.Name, guild.RankRights(r.Rights), r.MoneyPerDay)
		byKey[key{r.GuildID, r.RankID}] = rank
		g.RestoreRank(rank)
	}

	var rights []model.GuildBankRight
	if err := s.db.WithContext(ctx).Order("guild_id, rank_id, tab").Find(&rights).Error; err != nil {
		return err
	}
	for _, br := range rights {
		if rank := byKey[key{br.GuildID, br.RankID}]; rank != nil {
			rank.RestoreBankTabRights(br.Tab, guild.TabRights{
				Rights:      guild.BankRights(br.Rights),
				SlotsPerDay: br.SlotsPerDay,
			})
		}
	}
	return nil
}

func (s *GormStore) loadTabs(ctx context.Context, guilds map[int64]*guild.Guild, cfg guild.Config) error {
	var tabs []model.GuildBankTab
	if err := s.db.WithContext(ctx).Order("guild_id, tab").Find(&tabs).Error; err != nil {
		return err
	}
	for _, t := range tabs {
		g := guilds[t.GuildID]
		if g == nil {
			continue
		}
		if t.Tab != g.TabCount() || t.Tab >= cfg.MaxBankTabs {
			s.logger.Warn("skipping out of sequence bank tab",
				zap.Int64("guild_id", t.GuildID), zap.Int("tab", t.Tab))
			continue
		}
		bt := guild.NewBankTab(t.Tab, cfg.BankSlots)
		bt.Name, bt.Icon, bt.Text = t.Name, t.Icon, t.Text
		g.RestoreTab(bt)
	}

	var slots []model.GuildBankItem
	if err := s.db.WithContext(ctx).Find(&slots).Error; err != nil {
		return err
	}
	guids := make([]int64, 0, len(slots))
	for _, sl := range slots {
		guids = append(guids, sl.ItemGUID)
	}
	items := make(map[int64]model.Item, len(guids))
	for i := 0; i < len(guids); i += 500 {
		end := min(i+500, len(guids))
		var rows []model.Item
		if err := s.db.WithContext(ctx).Where("guid IN ?", guids[i:end]).Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			items[r.GUID] = r
		}
	}
	for _, sl := range slots {
		g := guilds[sl.GuildID]
		row, ok := items[sl.ItemGUID]
		var tab *guild.BankTab
		if g != nil {
			tab = g.Tab(sl.Tab)
		}
		if !ok || tab == nil || sl.Slot < 0 || sl.Slot >= tab.Len() || tab.At(sl.Slot) != nil {
			s.logger.Warn("dropping unusable bank slot",
				zap.Int64("guild_id", sl.GuildID),
				zap.Int("tab", sl.Tab),
				zap.Int("slot", sl.Slot),
				zap.Int64("item_guid", sl.ItemGUID))
			continue
		}
		tab.Set(sl.Slot, itemFromRow(row))
	}
	return nil
}

func (s *GormStore) loadMembers(ctx context.Context, guilds map[int64]*guild.Guild, cfg guild.Config) error {
	var members []model.GuildMember
	if err := s.db.WithContext(ctx).Find(&members).Error; err != nil {
		return err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.CharID)
	}
	chars := make(map[int64]model.Character, len(ids))
	if len(ids) > 0 {
		var rows []model.Character
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return err
		}
		for _, c := range rows {
			chars[c.ID] = c
		}
	}

	for _, row := range members {
		g := guilds[row.GuildID]
		if g == nil {
			continue
		}
		// a missing character leaves zero stats, which validation removes
		m := guild.NewMember(row.GuildID, characterInfo(chars[row.CharID]), row.RankID, cfg.MaxBankTabs)
		m.CharID = row.CharID
		m.CharacterInfo.CharID = row.CharID
		m.PublicNote = row.PublicNote
		m.OfficerNote = row.OfficerNote
		m.WeekActivity = row.WeekActivity
		m.WeekReputation = row.WeekReputation
		m.LogoutAt = timeOf(row.LogoutAt)
		var slots []int32
		if err := decodeJSON(row.BankWithdraw, &slots); err != nil {
			return fmt.Errorf("member %d withdraw counters: %w", row.CharID, err)
		}
		if err := decodeJSON(row.Criteria, &m.Criteria); err != nil {
			return fmt.Errorf("member %d criteria: %w", row.CharID, err)
		}
		g.RestoreMember(m)
		m.RestoreWithdrawals(slots, row.BankWithdrawMoney)
	}
	return nil
}

func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// olderFirst orders two log rows. Rows written in the same instant are
// ordered by id, taking the wrap of the ring into account.
func olderFirst(a, b uint32, capacity int) bool {
	d := int(b) - int(a)
	if d > capacity/2 || -d > capacity/2 {
		return a > b
	}
	return a < b
}

func (s *GormStore) loadEventLogs(ctx context.Context, guilds map[int64]*guild.Guild, _ guild.Config) error {
	var rows []model.GuildEventLog
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}
	byGuild := make(map[int64][]model.GuildEventLog)
	for _, r := range rows {
		byGuild[r.GuildID] = append(byGuild[r.GuildID], r)
	}
	for id, list := range byGuild {
		g := guilds[id]
		if g == nil {
			continue
		}
		ring := g.EventLog()
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].CreatedAt.Before(list[j].CreatedAt)
			}
			return olderFirst(list[i].LogID, list[j].LogID, ring.Cap())
		})
		for _, r := range list {
			ring.Load(guild.Record[guild.EventEntry]{ID: r.LogID, At: r.CreatedAt, Data: guild.EventEntry{
				Type:     guild.EventLogType(r.EventType),
				PlayerID: r.PlayerID,
				TargetID: r.TargetID,
				NewRank:  r.NewRank,
			}})
		}
	}
	return nil
}

func (s *GormStore) loadBankLogs(ctx context.Context, guilds map[int64]*guild.Guild, _ guild.Config) error {
	var rows []model.GuildBankEventLog
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}
	type key struct {
		guild int64
		tab   int
	}
	byTab := make(map[key][]model.GuildBankEventLog)
	for _, r := range rows {
		byTab[key{r.GuildID, r.Tab}] = append(byTab[key{r.GuildID, r.Tab}], r)
	}
	for k, list := range byTab {
		g := guilds[k.guild]
		if g == nil {
			continue
		}
		ring := g.BankLog(k.tab)
		if ring == nil {
			continue
		}
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].CreatedAt.Before(list[j].CreatedAt)
			}
			return olderFirst(list[i].LogID, list[j].LogID, ring.Cap())
		})
		for _, r := range list {
			ring.Load(guild.Record[guild.BankEntry]{ID: r.LogID, At: r.CreatedAt, Data: guild.BankEntry{
				Type:        guild.BankLogType(r.EventType),
				Tab:         r.Tab,
				PlayerID:    r.PlayerID,
				ItemOrMoney: r.ItemOrMoney,
				Count:       r.Count,
				DestTab:     r.DestTab,
				TxnID:       r.TxnID,
			}})
		}
	}
	return nil
}

func (s *GormStore) loadNews(ctx context.Context, guilds map[int64]*guild.Guild, _ guild.Config) error {
	var rows []model.GuildNewsLog
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}
	byGuild := make(map[int64][]model.GuildNewsLog)
	for _, r := range rows {
		byGuild[r.GuildID] = append(byGuild[r.GuildID], r)
	}
	for id, list := range byGuild {
		g := guilds[id]
		if g == nil {
			continue
		}
		ring := g.News()
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].CreatedAt.Before(list[j].CreatedAt)
			}
			return olderFirst(list[i].LogID, list[j].LogID, ring.Cap())
		})
		for _, r := range list {
			ring.Load(guild.Record[guild.NewsEntry]{ID: r.LogID, At: r.CreatedAt, Data: guild.NewsEntry{
				Type:     guild.NewsType(r.NewsType),
				PlayerID: r.PlayerID,
				Flags:    r.Flags,
				Value:    r.Value,
			}})
		}
	}
	return nil
}

// MaxItemGUID returns the highest stored item guid, 0 when there is none.
func (s *GormStore) MaxItemGUID(ctx context.Context) (int64, error) {
	var top *int64
	if err := s.db.WithContext(ctx).Model(&model.Item{}).Select("MAX(guid)").Scan(&top).Error; err != nil {
		return 0, err
	}
	if top == nil {
		return 0, nil
	}
	return *top, nil
}
