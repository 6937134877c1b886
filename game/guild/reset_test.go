package guild

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetDue_OnlyPastMarkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.g.DailyResetAt
	require.False(t, created.IsZero())
	m := f.g.Member(memberID)
	m.bankWithdraw[0] = 3

	n, err := f.svc.ResetDue(ctx, created.Add(-time.Hour), created.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "reset already applied for this period")
	assert.Equal(t, int32(3), m.BankWithdraw(0))

	daily := created.Add(time.Hour)
	n, err = f.svc.ResetDue(ctx, daily, created.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, m.BankWithdraw(0))
	assert.Equal(t, daily, f.g.DailyResetAt)
	assert.Equal(t, created, f.g.WeeklyResetAt)

	var saved *SaveGuildReset
	for _, op := range f.store.last().Ops {
		if o, ok := op.(SaveGuildReset); ok {
			saved = &o
		}
	}
	require.NotNil(t, saved, "markers written with the counters")
	assert.Equal(t, daily, saved.Daily)
}

func TestResetDue_Weekly(t *testing.T) {
	f := newFixture(t)
	m := f.g.Member(memberID)
	m.WeekActivity = 9
	instant := f.g.DailyResetAt.Add(time.Hour)

	_, err := f.svc.ResetDue(context.Background(), instant, instant)
	require.NoError(t, err)
	assert.Zero(t, m.WeekActivity)
	assert.Equal(t, instant, f.g.WeeklyResetAt)
}

func TestResetDue_RetrySkipsGuildsAlreadyReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := f.svc.CreateGuild(ctx, 4, "Smiths")
	require.NoError(t, err)
	f.store.failGuild = other.ID

	ours := f.g.Member(memberID)
	ours.bankWithdraw[0] = 3
	theirs := other.Member(4)
	theirs.bankWithdraw[0] = 2

	daily := time.Now().Add(time.Hour)
	weekly := time.Now().Add(-30 * 24 * time.Hour)
	n, err := f.svc.ResetDue(ctx, daily, weekly)
	assert.ErrorIs(t, err, ErrCommitFailed)
	assert.Equal(t, 1, n)
	assert.Zero(t, ours.BankWithdraw(0))
	assert.Equal(t, int32(2), theirs.BankWithdraw(0))

	// a withdrawal between the failed check and the retry stays counted
	ours.bankWithdraw[0] = 1
	f.store.failGuild = 0
	n, err = f.svc.ResetDue(ctx, daily, weekly)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int32(1), ours.BankWithdraw(0))
	assert.Zero(t, theirs.BankWithdraw(0))
}

func TestResetTimes_MovesMarkers(t *testing.T) {
	f := newFixture(t)
	now := f.g.DailyResetAt.Add(2 * time.Hour)
	f.svc.now = func() time.Time { return now }
	weekly := f.g.WeeklyResetAt

	require.NoError(t, f.svc.ResetTimes(context.Background(), false))
	assert.Equal(t, now, f.g.DailyResetAt)
	assert.Equal(t, weekly, f.g.WeeklyResetAt)
}
