package guild

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) allowMoney(t *testing.T, rankID uint8, rights RankRights, perDay int64) {
	t.Helper()
	r := f.g.Rank(rankID)
	edit := RankEdit{Name: r.Name, Rights: r.Rights() | rights, MoneyPerDay: perDay}
	require.NoError(t, f.svc.SetRankInfo(context.Background(), leaderID, rankID, edit))
}

func TestDepositMoney(t *testing.T) {
	f := newFixture(t)
	f.inv(t, memberID).Gold = 500

	require.NoError(t, f.svc.DepositMoney(context.Background(), memberID, 300, false))
	assert.Equal(t, uint64(300), f.g.Money)
	assert.Equal(t, uint64(200), f.inv(t, memberID).Gold)

	logs := f.g.BankLog(MoneyTab).Entries()
	require.Len(t, logs, 1)
	assert.Equal(t, BankLogDepositMoney, logs[0].Data.Type)
	assert.Equal(t, uint64(300), logs[0].Data.ItemOrMoney)
	assert.Equal(t, MoneyTab, logs[0].Data.Tab)
	assert.Len(t, f.events.of(leaderID, EventBankMoney), 1)
}

func TestDepositMoney_NotEnoughGold(t *testing.T) {
	f := newFixture(t)
	f.inv(t, memberID).Gold = 10

	err := f.svc.DepositMoney(context.Background(), memberID, 300, false)
	assert.ErrorIs(t, err, ErrNotEnoughMoney)
	assert.Zero(t, f.g.Money)
	assert.Equal(t, uint64(10), f.inv(t, memberID).Gold)
}

func TestDepositMoney_ClampedToCap(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.MaxMoney = 1000
	f.g.Money = 900
	f.inv(t, memberID).Gold = 500

	require.NoError(t, f.svc.DepositMoney(context.Background(), memberID, 300, false))
	assert.Equal(t, uint64(1000), f.g.Money)
	assert.Equal(t, uint64(400), f.inv(t, memberID).Gold)

	batches := len(f.store.batches)
	require.NoError(t, f.svc.DepositMoney(context.Background(), memberID, 300, false))
	assert.Equal(t, batches, len(f.store.batches), "a full bank turns the deposit into a no-op")
}

func TestDepositMoney_CashFlow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.DepositMoney(context.Background(), memberID, 50, true))
	assert.Equal(t, uint64(50), f.g.Money)
	assert.Zero(t, f.inv(t, memberID).Gold)
	assert.Equal(t, BankLogCashFlowDeposit, f.g.BankLog(MoneyTab).Entries()[0].Data.Type)
}

func TestWithdrawMoney_Rights(t *testing.T) {
	f := newFixture(t)
	f.g.Money = 1000

	err := f.svc.WithdrawMoney(context.Background(), memberID, 100, false)
	assert.ErrorIs(t, err, ErrNoRights)
	assert.Equal(t, uint64(1000), f.g.Money)
}

func TestWithdrawMoney_Quota(t *testing.T) {
	f := newFixture(t)
	f.allowMoney(t, initiateRank, RightWithdrawGold, 300)
	f.g.Money = 1000
	ctx := context.Background()

	require.NoError(t, f.svc.WithdrawMoney(ctx, memberID, 200, false))
	assert.Equal(t, uint64(800), f.g.Money)
	assert.Equal(t, uint64(200), f.inv(t, memberID).Gold)
	left, _ := f.svc.RemainingMoney(memberID)
	assert.Equal(t, int64(100), left)

	err := f.svc.WithdrawMoney(ctx, memberID, 200, false)
	assert.ErrorIs(t, err, ErrMoneyQuota)
	assert.ErrorIs(t, err, ErrQuota)
	assert.Equal(t, uint64(800), f.g.Money)

	require.NoError(t, f.svc.ResetTimes(ctx, false))
	left, _ = f.svc.RemainingMoney(memberID)
	assert.Equal(t, int64(300), left)
}

func TestWithdrawMoney_Repair(t *testing.T) {
	f := newFixture(t)
	f.allowMoney(t, initiateRank, RightWithdrawRepair, 100)
	f.g.Money = 1000
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.WithdrawMoney(ctx, memberID, 50, false), ErrNoRights)
	require.NoError(t, f.svc.WithdrawMoney(ctx, memberID, 50, true))
	assert.Equal(t, uint64(950), f.g.Money)
	assert.Zero(t, f.inv(t, memberID).Gold)
	assert.Equal(t, BankLogRepairMoney, f.g.BankLog(MoneyTab).Entries()[0].Data.Type)
}

func TestWithdrawMoney_NotEnoughInBank(t *testing.T) {
	f := newFixture(t)
	f.g.Money = 10
	err := f.svc.WithdrawMoney(context.Background(), leaderID, 100, false)
	assert.ErrorIs(t, err, ErrNotEnoughMoney)
}

func TestWithdrawMoney_ZeroIsNoop(t *testing.T) {
	f := newFixture(t)
	f.allowMoney(t, initiateRank, RightWithdrawGold, 300)
	f.g.Money = 1000
	commits := len(f.store.batches)

	require.NoError(t, f.svc.WithdrawMoney(context.Background(), memberID, 0, false))
	assert.Len(t, f.store.batches, commits)
	assert.Empty(t, f.g.BankLog(MoneyTab).Entries())
	assert.Equal(t, uint64(1000), f.g.Money)
	assert.Empty(t, f.events.of(memberID, EventBankMoney))
}

func TestWithdrawMoney_CommitFailure(t *testing.T) {
	f := newFixture(t)
	f.g.Money = 1000
	f.store.err = errors.New("lost connection")

	err := f.svc.WithdrawMoney(context.Background(), leaderID, 100, false)
	assert.ErrorIs(t, err, ErrCommitFailed)
	assert.Equal(t, uint64(1000), f.g.Money)
	assert.Zero(t, f.inv(t, leaderID).Gold)
	assert.Empty(t, f.g.BankLog(MoneyTab).Entries())
}

func TestBuyBankTab(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.TabCosts = []uint64{0, 0, 700}
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.BuyBankTab(ctx, officerID, 2), ErrNotLeader)
	assert.ErrorIs(t, f.svc.BuyBankTab(ctx, leaderID, 3), ErrWrongBagType)
	assert.ErrorIs(t, f.svc.BuyBankTab(ctx, leaderID, 2), ErrNotEnoughMoney)

	f.inv(t, leaderID).Gold = 1000
	require.NoError(t, f.svc.BuyBankTab(ctx, leaderID, 2))
	assert.Equal(t, 3, f.g.TabCount())
	assert.Equal(t, uint64(300), f.inv(t, leaderID).Gold)
	for _, r := range f.g.Ranks() {
		assert.Equal(t, 3, r.TabCount())
	}
	assert.Equal(t, BankRights(0), f.g.Rank(initiateRank).BankTabRights(2))
	assert.Equal(t, BankLogBuySlot, f.g.BankLog(MoneyTab).Entries()[0].Data.Type)
	assert.Len(t, f.events.of(memberID, EventPermissions), 1)

	news := f.g.News().Entries()
	last := news[len(news)-1].Data
	assert.Equal(t, NewsBankTabBought, last.Type)
	assert.Equal(t, leaderID, last.PlayerID)
	assert.Equal(t, uint32(2), last.Value)
	assert.Len(t, f.events.of(memberID, EventNews), 1)
}

func TestBuyBankTab_Limit(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.MaxBankTabs = 2
	assert.ErrorIs(t, f.svc.BuyBankTab(context.Background(), leaderID, 2), ErrTabLimit)
}

func TestSetBankTabText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.SetBankTabText(ctx, memberID, 0, "hello"), ErrNoRights)
	f.grant(t, initiateRank, 0, TabRights{Rights: BankRightViewTab | BankRightUpdateText})
	require.NoError(t, f.svc.SetBankTabText(ctx, memberID, 0, "hello"))
	assert.Equal(t, "hello", f.g.Tab(0).Text)

	require.NoError(t, f.svc.SetBankTabInfo(ctx, leaderID, 0, "Mats", "icon_ore"))
	assert.Equal(t, "Mats", f.g.Tab(0).Name)
	assert.Equal(t, "hello", f.g.Tab(0).Text)
	assert.ErrorIs(t, f.svc.SetBankTabInfo(ctx, memberID, 0, "x", "y"), ErrNotLeader)
}
