// Package guildtest wires a complete guild service over an in-memory
// database for handler tests.
package guildtest

import (
	"context"
	"testing"

	"github.com/kasuganosora/guildbank/audit"
	"github.com/kasuganosora/guildbank/cache"
	"github.com/kasuganosora/guildbank/game/guild"
	"github.com/kasuganosora/guildbank/game/item"
	"github.com/kasuganosora/guildbank/game/player"
	"github.com/kasuganosora/guildbank/model"
	"github.com/kasuganosora/guildbank/notify"
	"github.com/kasuganosora/guildbank/storage"
	"github.com/kasuganosora/guildbank/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeded ids.
const (
	Ana int64 = 1
	Bo  int64 = 2
	Cy  int64 = 3

	// StackGUID is Ana's stack of 20 units of entry 7 in bag 0 slot 0.
	StackGUID int64 = 500
)

// Env is a running guild service with its collaborators.
type Env struct {
	DB       *gorm.DB
	Cache    cache.Cache
	PubSub   cache.PubSub
	Sessions *player.SessionManager
	Hub      *notify.Hub
	Store    *storage.GormStore
	Svc      *guild.Service
	Audit    *audit.Service
	Logger   *zap.Logger
}

// Config is the guild configuration used by New: eight slot tabs, free to buy.
func Config() guild.Config {
	cfg := guild.DefaultConfig()
	cfg.TabCosts = nil
	cfg.BankSlots = 8
	return cfg
}

// New seeds the characters Ana, Bo and Cy, each with 1000 gold, and builds
// the service.
func New(t *testing.T) *Env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	for _, name := range []string{"Ana", "Bo", "Cy"} {
		require.NoError(t, db.Create(&model.Character{AccountID: 1, Name: name, Level: 10, Class: 1, Gold: 1000}).Error)
	}
	require.NoError(t, db.Create(&model.Item{
		GUID: StackGUID, Entry: 7, Count: 20, MaxStack: 50,
		Loc: model.ItemLocInventory, OwnerID: Ana,
	}).Error)

	logger := zap.NewNop()
	e := &Env{
		DB:       db,
		Cache:    c,
		PubSub:   ps,
		Sessions: player.NewSessionManager(logger),
		Store:    storage.NewGormStore(db, logger),
		Audit:    audit.New(db, audit.Config{}, logger),
		Logger:   logger,
	}
	t.Cleanup(func() { e.Audit.Stop(context.Background()) })
	e.Hub = notify.NewHub(e.Sessions, ps, "test", logger)

	guids := item.NewGUIDGenerator(1000, 0)
	invs := item.NewRegistry(storage.InventoryLoader(db, []int{4}, logger))
	e.Svc = guild.NewService(Config(), e.Store, guild.NewDirectory(), invs, guids,
		storage.NewCharacters(db), e.Hub, logger)
	return e
}

// Guild creates a guild led by Ana with Bo as a member and one bank tab.
func (e *Env) Guild(t *testing.T) *guild.Guild {
	t.Helper()
	ctx := context.Background()
	g, err := e.Svc.CreateGuild(ctx, Ana, "Bankers")
	require.NoError(t, err)
	require.NoError(t, e.Svc.Invite(ctx, Ana, Bo))
	require.NoError(t, e.Svc.BuyBankTab(ctx, Ana, 0))
	return g
}

// Restart builds a second service over the same database, the way a new
// process would, and restores every stored guild into it.
func (e *Env) Restart(t *testing.T) *guild.Service {
	t.Helper()
	ctx := context.Background()
	maxGUID, err := e.Store.MaxItemGUID(ctx)
	require.NoError(t, err)
	guids := item.NewGUIDGenerator(1000, 0)
	guids.Observe(maxGUID)
	invs := item.NewRegistry(storage.InventoryLoader(e.DB, []int{4}, e.Logger))
	svc := guild.NewService(Config(), e.Store, guild.NewDirectory(), invs, guids,
		storage.NewCharacters(e.DB), nil, e.Logger)

	guilds, err := e.Store.LoadGuilds(ctx, Config())
	require.NoError(t, err)
	for _, g := range guilds {
		require.NoError(t, svc.Restore(ctx, g))
	}
	return svc
}
