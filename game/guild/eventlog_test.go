package guild

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_EvictsOldest(t *testing.T) {
	r := NewRing[EventEntry](3)
	for i := 0; i < 5; i++ {
		id := r.NextID(0)
		r.Add(Record[EventEntry]{ID: id, At: time.Now(), Data: EventEntry{PlayerID: int64(i)}})
	}
	got := r.Entries()
	require.Len(t, got, 3)
	assert.Equal(t, int64(2), got[0].Data.PlayerID)
	assert.Equal(t, int64(4), got[2].Data.PlayerID)
	assert.Equal(t, []uint32{2, 0, 1}, []uint32{got[0].ID, got[1].ID, got[2].ID})
}

func TestRing_NextIDWithPending(t *testing.T) {
	r := NewRing[BankEntry](4)
	assert.Equal(t, uint32(0), r.NextID(0))
	assert.Equal(t, uint32(1), r.NextID(1))
	r.Add(Record[BankEntry]{ID: 3})
	assert.Equal(t, uint32(0), r.NextID(0))
	assert.Equal(t, uint32(2), r.NextID(2))
}

func TestRing_Update(t *testing.T) {
	r := NewRing[NewsEntry](2)
	r.Load(Record[NewsEntry]{ID: 0, Data: NewsEntry{Type: NewsEvent}})
	assert.True(t, r.Update(0, func(e *NewsEntry) { e.Flags = NewsFlagSticky }))
	assert.False(t, r.Update(1, func(*NewsEntry) {}))
	rec, ok := r.Get(0)
	require.True(t, ok)
	assert.True(t, rec.Data.Sticky())
}

func TestBankLog_Capacity(t *testing.T) {
	f := newFixture(t)
	f.inv(t, leaderID).Gold = 1000
	ctx := context.Background()
	capacity := f.g.BankLog(MoneyTab).Cap()

	for i := 0; i < capacity+3; i++ {
		require.NoError(t, f.svc.DepositMoney(ctx, leaderID, 1, false))
	}
	logs, err := f.svc.BankLog(memberID, MoneyTab)
	require.NoError(t, err)
	assert.Len(t, logs, capacity)
	assert.Equal(t, uint32(2), logs[len(logs)-1].ID)

	_, err = f.svc.BankLog(memberID, 0)
	assert.ErrorIs(t, err, ErrNoRights)
}

func TestRankRights_Has(t *testing.T) {
	r := RightGChatListen | RightGChatSpeak
	assert.True(t, r.Has(RightGChatListen))
	assert.False(t, r.Has(RightInvite))
	assert.False(t, r.Has(RightEmpty))
	assert.True(t, RightAll.Has(RightEditOfficerNote|RightWithdrawGold))
	assert.False(t, RightAll.Has(RightWithdrawGoldLock))
	assert.True(t, BankRightDeposit.Has(BankRightViewTab))
	assert.False(t, BankRightViewTab.Has(BankRightPutItem))
}

func TestBankLogType_IsMoney(t *testing.T) {
	assert.True(t, BankLogRepairMoney.IsMoney())
	assert.True(t, BankLogBuySlot.IsMoney())
	assert.False(t, BankLogMoveItem.IsMoney())
}
