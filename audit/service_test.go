package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kasuganosora/guildbank/model"
	"github.com/kasuganosora/guildbank/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func TestLog_EnqueuedAndFlushed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Config{}, nop())

	charID, guildID := int64(1), int64(7)
	svc.Log(Entry{
		TraceID:    "trace-123",
		CharID:     &charID,
		CharName:   "Alice",
		GuildID:    &guildID,
		Action:     "guild_bank_swap",
		Request:    map[string]int{"split": 5},
		Response:   map[string]bool{"ok": true},
		IP:         "127.0.0.1",
		DurationMs: 42,
	})
	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-123", logs[0].TraceID)
	assert.Equal(t, "guild_bank_swap", logs[0].Action)
	require.NotNil(t, logs[0].GuildID)
	assert.Equal(t, int64(7), *logs[0].GuildID)
	assert.JSONEq(t, `{"split":5}`, string(logs[0].Request))
	assert.Equal(t, 42, logs[0].DurationMs)
}

func TestCommand_RecordsError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Config{}, nop())

	svc.Command("trace-9", 3, 0, "guild_bank_withdraw_money", map[string]uint64{"amount": 10},
		errors.New("not enough money"), time.Now())
	svc.Stop(context.Background())

	var log model.AuditLog
	require.NoError(t, db.First(&log).Error)
	assert.Equal(t, "not enough money", log.Error)
	assert.Nil(t, log.GuildID)
	require.NotNil(t, log.CharID)
	assert.Equal(t, int64(3), *log.CharID)
}

func TestLog_BatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Config{BatchSize: 10, FlushInterval: time.Hour}, nop())

	for i := 0; i < 25; i++ {
		svc.Log(Entry{Action: "guild_bank_query_tab"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.Equal(t, int64(25), count)
}

func TestLog_TimerFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Config{FlushInterval: 20 * time.Millisecond}, nop())
	defer svc.Stop(context.Background())

	svc.Log(Entry{Action: "timer_test"})
	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.AuditLog{}).Count(&count)
		return count == 1
	}, time.Second, 20*time.Millisecond)
}

func TestLog_DropsWhenFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Config{QueueSize: 4, BatchSize: 1000, FlushInterval: time.Hour}, nop())

	for i := 0; i < 50; i++ {
		svc.Log(Entry{Action: "flood"})
	}
	svc.Stop(context.Background())
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.LessOrEqual(t, count, int64(50))
	assert.Positive(t, count)
}
