package guild

import (
	"context"
	"errors"
	"testing"

	"github.com/kasuganosora/guildbank/game/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer_DepositToEmptySlot(t *testing.T) {
	f := newFixture(t)
	f.grant(t, initiateRank, 0, TabRights{Rights: BankRightDeposit, SlotsPerDay: 1})
	it := f.carry(t, memberID, 0, 100, 5, 20)

	err := f.svc.Transfer(context.Background(), memberID, invLoc(0), bankLoc(0, 3), 0)
	require.NoError(t, err)

	assert.Same(t, it, f.g.Tab(0).At(3))
	assert.Equal(t, item.LocBank, it.Loc)
	assert.Equal(t, 3, it.Slot)
	assert.Nil(t, f.inv(t, memberID).Get(0, 0))

	logs := f.g.BankLog(0).Entries()
	require.Len(t, logs, 1)
	assert.Equal(t, BankLogDepositItem, logs[0].Data.Type)
	assert.Equal(t, uint32(5), logs[0].Data.Count)

	n, _ := f.svc.RemainingSlots(memberID, 0)
	assert.Equal(t, int32(1), n, "deposits do not use the withdraw quota")
}

func TestTransfer_DepositNeedsRights(t *testing.T) {
	f := newFixture(t)
	f.grant(t, initiateRank, 0, TabRights{Rights: BankRightViewTab, SlotsPerDay: 5})
	it := f.carry(t, memberID, 0, 100, 5, 20)

	err := f.svc.Transfer(context.Background(), memberID, invLoc(0), bankLoc(0, 0), 0)
	assert.ErrorIs(t, err, ErrNoRights)
	assert.ErrorIs(t, err, ErrPermission)
	assert.Same(t, it, f.inv(t, memberID).Get(0, 0))
	assert.Nil(t, f.g.Tab(0).At(0))
}

func TestTransfer_MergeFill(t *testing.T) {
	f := newFixture(t)
	stack := f.bank(t, 0, 3, 100, 20, 50)
	f.carry(t, leaderID, 1, 100, 40, 50)
	ops := len(f.store.batches)

	err := f.svc.Transfer(context.Background(), leaderID, invLoc(1), bankLoc(0, item.AnySlot), 0)
	require.NoError(t, err)

	tab := f.g.Tab(0)
	assert.Same(t, stack, tab.At(3))
	assert.Equal(t, uint32(50), stack.Count)
	var total uint32
	var others int
	for slot, it := range tab.Items() {
		total += it.Count
		if slot != 3 {
			others++
			assert.Equal(t, uint32(10), it.Count)
			assert.Equal(t, 0, slot, "the first empty slot is used")
		}
	}
	assert.Equal(t, 1, others)
	assert.Equal(t, uint32(60), total)
	assert.Equal(t, uint32(0), f.inv(t, leaderID).CountOf(100))

	logs := f.g.BankLog(0).Entries()
	require.Len(t, logs, 1)
	assert.Equal(t, BankLogDepositItem, logs[0].Data.Type)
	assert.Equal(t, uint32(40), logs[0].Data.Count)
	assert.Equal(t, ops+1, len(f.store.batches), "one durable commit per move")
}

func TestTransfer_QuotaBlock(t *testing.T) {
	f := newFixture(t)
	f.grant(t, initiateRank, 0, TabRights{Rights: BankRightViewTab, SlotsPerDay: 2})
	for slot := 0; slot < 3; slot++ {
		f.bank(t, 0, slot, 200+slot, 1, 1)
	}
	ctx := context.Background()

	prev, _ := f.svc.RemainingSlots(memberID, 0)
	assert.Equal(t, int32(2), prev)
	for slot := 0; slot < 2; slot++ {
		require.NoError(t, f.svc.Transfer(ctx, memberID, bankLoc(0, slot), invLoc(item.AnySlot), 0))
		n, _ := f.svc.RemainingSlots(memberID, 0)
		assert.Less(t, n, prev)
		prev = n
	}
	assert.Equal(t, int32(0), prev)

	third := f.g.Tab(0).At(2)
	err := f.svc.Transfer(ctx, memberID, bankLoc(0, 2), invLoc(item.AnySlot), 0)
	assert.ErrorIs(t, err, ErrSlotQuota)
	assert.ErrorIs(t, err, ErrQuota)
	assert.Same(t, third, f.g.Tab(0).At(2))
	assert.Len(t, f.g.BankLog(0).Entries(), 2)

	require.NoError(t, f.svc.ResetTimes(ctx, false))
	n, _ := f.svc.RemainingSlots(memberID, 0)
	assert.Equal(t, int32(2), n)
	require.NoError(t, f.svc.Transfer(ctx, memberID, bankLoc(0, 2), invLoc(item.AnySlot), 0))
}

func TestTransfer_SwapBankSlots(t *testing.T) {
	f := newFixture(t)
	x := f.bank(t, 0, 1, 100, 5, 5)
	y := f.bank(t, 1, 4, 200, 2, 10)

	err := f.svc.Transfer(context.Background(), leaderID, bankLoc(0, 1), bankLoc(1, 4), 0)
	require.NoError(t, err)

	assert.Same(t, x, f.g.Tab(1).At(4))
	assert.Same(t, y, f.g.Tab(0).At(1))
	assert.Equal(t, uint32(5), x.Count)
	assert.Equal(t, uint32(2), y.Count)
	assert.Equal(t, 1, x.Bag)
	assert.Equal(t, 0, y.Bag)

	into1 := f.g.BankLog(0).Entries()
	into0 := f.g.BankLog(1).Entries()
	require.Len(t, into1, 1)
	require.Len(t, into0, 1)
	assert.Equal(t, BankLogMoveItem, into1[0].Data.Type)
	assert.Equal(t, BankLogMoveItem, into0[0].Data.Type)
	assert.NotEmpty(t, into1[0].Data.TxnID)
	assert.Equal(t, into1[0].Data.TxnID, into0[0].Data.TxnID)
	assert.Equal(t, f.store.last().TxnID, into1[0].Data.TxnID)
}

func TestTransfer_SwapWithInventory(t *testing.T) {
	f := newFixture(t)
	f.grant(t, initiateRank, 0, TabRights{Rights: BankRightDeposit, SlotsPerDay: 3})
	banked := f.bank(t, 0, 0, 100, 1, 1)
	carried := f.carry(t, memberID, 2, 200, 1, 1)

	err := f.svc.Transfer(context.Background(), memberID, invLoc(2), bankLoc(0, 0), 0)
	require.NoError(t, err)

	assert.Same(t, carried, f.g.Tab(0).At(0))
	assert.Same(t, banked, f.inv(t, memberID).Get(0, 2))
	assert.Equal(t, memberID, banked.OwnerID)

	logs := f.g.BankLog(0).Entries()
	require.Len(t, logs, 2)
	assert.Equal(t, BankLogDepositItem, logs[0].Data.Type)
	assert.Equal(t, BankLogWithdrawItem, logs[1].Data.Type)
	n, _ := f.svc.RemainingSlots(memberID, 0)
	assert.Equal(t, int32(2), n, "the swapped out item counts as one withdrawal")
}

func TestTransfer_Split(t *testing.T) {
	f := newFixture(t)
	src := f.bank(t, 0, 0, 100, 10, 20)

	err := f.svc.Transfer(context.Background(), leaderID, bankLoc(0, 0), invLoc(0), 4)
	require.NoError(t, err)

	assert.Same(t, src, f.g.Tab(0).At(0))
	assert.Equal(t, uint32(6), src.Count)
	got := f.inv(t, leaderID).Get(0, 0)
	require.NotNil(t, got)
	assert.NotSame(t, src, got)
	assert.NotEqual(t, src.GUID, got.GUID)
	assert.Equal(t, uint32(4), got.Count)
	assert.Equal(t, 100, got.Entry)
}

func TestTransfer_SplitWholeStackIsMove(t *testing.T) {
	f := newFixture(t)
	src := f.bank(t, 0, 0, 100, 10, 20)

	err := f.svc.Transfer(context.Background(), leaderID, bankLoc(0, 0), invLoc(0), 10)
	require.NoError(t, err)

	assert.Nil(t, f.g.Tab(0).At(0))
	assert.Same(t, src, f.inv(t, leaderID).Get(0, 0))
	assert.Equal(t, uint32(10), src.Count)
}

func TestTransfer_SplitTooLarge(t *testing.T) {
	f := newFixture(t)
	f.bank(t, 0, 0, 100, 10, 20)
	err := f.svc.Transfer(context.Background(), leaderID, bankLoc(0, 0), invLoc(0), 11)
	assert.ErrorIs(t, err, ErrSplitTooLarge)
}

func TestTransfer_SplitCloneFailure(t *testing.T) {
	f := newFixture(t)
	src := f.bank(t, 0, 0, 100, 10, 20)
	f.svc.guids = item.NewGUIDGenerator(5, 4)

	err := f.svc.Transfer(context.Background(), leaderID, bankLoc(0, 0), invLoc(0), 3)
	assert.ErrorIs(t, err, ErrCloneFailed)
	assert.ErrorIs(t, err, item.ErrGUIDExhausted)
	assert.Equal(t, uint32(10), src.Count)
}

func TestTransfer_SplitWithinTab(t *testing.T) {
	f := newFixture(t)
	src := f.bank(t, 0, 0, 100, 10, 20)

	err := f.svc.Transfer(context.Background(), leaderID, bankLoc(0, 0), bankLoc(0, item.AnySlot), 4)
	require.NoError(t, err)

	assert.Equal(t, uint32(6), src.Count)
	got := f.g.Tab(0).At(1)
	require.NotNil(t, got, "the source stack is not a merge target")
	assert.Equal(t, uint32(4), got.Count)
}

func TestTransfer_IntraTabFreeOfQuota(t *testing.T) {
	f := newFixture(t)
	f.grant(t, initiateRank, 0, TabRights{Rights: BankRightViewTab, SlotsPerDay: 1})
	it := f.bank(t, 0, 0, 100, 3, 20)

	require.NoError(t, f.svc.Transfer(context.Background(), memberID, bankLoc(0, 0), bankLoc(0, 5), 0))
	assert.Same(t, it, f.g.Tab(0).At(5))
	n, _ := f.svc.RemainingSlots(memberID, 0)
	assert.Equal(t, int32(1), n)
}

func TestTransfer_Rejections(t *testing.T) {
	f := newFixture(t)
	f.bank(t, 0, 0, 100, 3, 20)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Transfer(ctx, leaderID, bankLoc(0, 0), bankLoc(0, 0), 0), ErrSameSlot)
	assert.ErrorIs(t, f.svc.Transfer(ctx, leaderID, invLoc(0), invLoc(1), 0), ErrNoBankSide)
	assert.ErrorIs(t, f.svc.Transfer(ctx, leaderID, bankLoc(0, 1), invLoc(0), 0), ErrItemNotFound)
	assert.ErrorIs(t, f.svc.Transfer(ctx, leaderID, bankLoc(7, 0), invLoc(0), 0), ErrWrongBagType)
	assert.ErrorIs(t, f.svc.Transfer(ctx, leaderID, bankLoc(0, 0), bankLoc(0, 99), 0), ErrWrongSlot)
	assert.ErrorIs(t, f.svc.Transfer(ctx, outsiderID, bankLoc(0, 0), invLoc(0), 0), ErrNotInGuild)
}

func TestTransfer_ItemRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bound := f.carry(t, leaderID, 0, 100, 1, 1)
	bound.Soulbound = true
	assert.ErrorIs(t, f.svc.Transfer(ctx, leaderID, invLoc(0), bankLoc(0, 0), 0), ErrCantTrade)

	bag := f.carry(t, leaderID, 1, 101, 1, 1)
	bag.BagSlots, bag.BagUsed = 10, 2
	assert.ErrorIs(t, f.svc.Transfer(ctx, leaderID, invLoc(1), bankLoc(0, 0), 0), ErrNonEmptyBag)

	bag.BagUsed = 0
	require.NoError(t, f.svc.Transfer(ctx, leaderID, invLoc(1), bankLoc(0, 0), 0))
}

func TestTransfer_CantStack(t *testing.T) {
	f := newFixture(t)
	f.bank(t, 0, 0, 100, 20, 20)
	f.carry(t, leaderID, 0, 100, 5, 20)

	err := f.svc.Transfer(context.Background(), leaderID, invLoc(0), bankLoc(0, 0), 2)
	assert.ErrorIs(t, err, ErrCantStack)
}

func TestTransfer_BankFull(t *testing.T) {
	f := newFixture(t)
	for slot := 0; slot < 8; slot++ {
		f.bank(t, 0, slot, 300+slot, 1, 1)
	}
	f.carry(t, leaderID, 0, 100, 1, 1)

	err := f.svc.Transfer(context.Background(), leaderID, invLoc(0), bankLoc(0, item.AnySlot), 0)
	assert.ErrorIs(t, err, ErrBankFull)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestTransfer_InventoryFull(t *testing.T) {
	f := newFixture(t)
	for slot := 0; slot < 4; slot++ {
		f.carry(t, leaderID, slot, 300+slot, 1, 1)
	}
	f.bank(t, 0, 0, 100, 1, 1)

	err := f.svc.Transfer(context.Background(), leaderID, bankLoc(0, 0), invLoc(item.AnySlot), 0)
	assert.ErrorIs(t, err, ErrInventoryFull)
}

func TestTransfer_CommitFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.grant(t, initiateRank, 0, TabRights{Rights: BankRightDeposit, SlotsPerDay: 2})
	banked := f.bank(t, 0, 0, 100, 10, 20)
	carried := f.carry(t, memberID, 0, 200, 3, 20)
	f.store.err = errors.New("disk on fire")

	ctx := context.Background()
	err := f.svc.Transfer(ctx, memberID, bankLoc(0, 0), invLoc(item.AnySlot), 4)
	assert.ErrorIs(t, err, ErrCommitFailed)
	err = f.svc.Transfer(ctx, memberID, invLoc(0), bankLoc(0, 0), 0)
	assert.ErrorIs(t, err, ErrCommitFailed)

	assert.Same(t, banked, f.g.Tab(0).At(0))
	assert.Equal(t, uint32(10), banked.Count)
	assert.Same(t, carried, f.inv(t, memberID).Get(0, 0))
	assert.Equal(t, item.LocInventory, carried.Loc)
	assert.Empty(t, f.g.BankLog(0).Entries())
	n, _ := f.svc.RemainingSlots(memberID, 0)
	assert.Equal(t, int32(2), n)
	assert.Empty(t, f.events.of(memberID, EventBankContent))
}

func TestTransfer_NotifiesViewers(t *testing.T) {
	f := newFixture(t)
	f.grant(t, OfficerRank, 0, TabRights{Rights: BankRightViewTab, SlotsPerDay: 7})
	f.events.reset()
	f.carry(t, leaderID, 0, 100, 2, 20)

	require.NoError(t, f.svc.Transfer(context.Background(), leaderID, invLoc(0), bankLoc(0, 6), 0))

	got := f.events.of(officerID, EventBankContent)
	require.Len(t, got, 1)
	content := got[0].Data.(BankContent)
	assert.Equal(t, 0, content.Tab)
	assert.Equal(t, int32(7), content.Remaining)
	require.Len(t, content.Slots, 1)
	assert.Equal(t, 6, content.Slots[0].Slot)
	assert.Empty(t, f.events.of(memberID, EventBankContent))
	assert.Len(t, f.events.of(leaderID, EventBankContent), 1)
}
