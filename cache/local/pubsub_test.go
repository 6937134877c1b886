package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan *LocalMessage) *LocalMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return nil
}

func TestPubSub_FanOut(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	a, cancelA, err := ps.Subscribe(ctx, "guild.1")
	require.NoError(t, err)
	defer cancelA()
	b, cancelB, err := ps.Subscribe(ctx, "guild.1", "guild.2")
	require.NoError(t, err)
	defer cancelB()

	require.NoError(t, ps.Publish(ctx, "guild.1", "deposit"))
	assert.Equal(t, "deposit", recv(t, a).Payload)
	assert.Equal(t, "guild.1", recv(t, b).Channel)

	require.NoError(t, ps.Publish(ctx, "guild.2", "withdraw"))
	assert.Equal(t, "withdraw", recv(t, b).Payload)
	assert.Empty(t, a)
}

func TestPubSub_CancelClosesAndUnregisters(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "guild.1")
	require.NoError(t, err)
	assert.Equal(t, 1, ps.Subscribers("guild.1"))

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, ps.Subscribers("guild.1"))
	assert.NoError(t, ps.Publish(ctx, "guild.1", "late"))
}

func TestPubSub_ContextDone(t *testing.T) {
	ps := NewPubSub(16)
	ctx, cancel := context.WithCancel(context.Background())

	ch, _, err := ps.Subscribe(ctx, "guild.3")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed with its context")
	}
}

func TestPubSub_SlowSubscriberDrops(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "guild.1")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "guild.1", "first"))
	require.NoError(t, ps.Publish(ctx, "guild.1", "second"))
	assert.Equal(t, "first", recv(t, ch).Payload)
	assert.Empty(t, ch)
}
