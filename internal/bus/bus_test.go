package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAssignsIdentityAndTimestamp(t *testing.T) {
	b := New(10, nil)

	before := time.Now()
	msg := b.Broadcast(types.AgentDetector, types.NewPoolDetected{})

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, types.MsgNewPoolDetected, msg.Type)
	assert.Equal(t, types.AgentDetector, msg.From)
	assert.False(t, msg.Timestamp.Before(before))

	other := b.Broadcast(types.AgentDetector, types.NewPoolDetected{})
	assert.NotEqual(t, msg.ID, other.ID)
}

func TestDeliveryOrderAndRouting(t *testing.T) {
	b := New(10, nil)

	var mu sync.Mutex
	var got []string
	record := func(tag string) Handler {
		return func(msg types.AgentMessage) {
			mu.Lock()
			got = append(got, tag)
			mu.Unlock()
		}
	}

	b.SubscribeAll(types.AgentCoordinator, record("any1"))
	b.SubscribeAll(types.AgentCoordinator, record("any2"))
	b.Subscribe(types.AgentSafety, types.MsgNewPoolDetected, record("typed"))
	b.SubscribeDirect(types.AgentSniper, record("direct"))

	b.SendTo(types.AgentDetector, types.AgentSniper, types.NewPoolDetected{})
	assert.Equal(t, []string{"any1", "any2", "typed", "direct"}, got)

	// Broadcast must not hit the direct channel of a specific agent.
	got = nil
	b.Broadcast(types.AgentDetector, types.NewPoolDetected{})
	assert.Equal(t, []string{"any1", "any2", "typed"}, got)
}

func TestPanickingSubscriberDoesNotBlockDelivery(t *testing.T) {
	b := New(10, nil)

	delivered := false
	b.Subscribe(types.AgentSafety, types.MsgSnipeFailed, func(types.AgentMessage) {
		panic("boom")
	})
	b.Subscribe(types.AgentCoordinator, types.MsgSnipeFailed, func(types.AgentMessage) {
		delivered = true
	})

	assert.NotPanics(t, func() {
		b.Broadcast(types.AgentSniper, types.SnipeFailed{Reason: "test"})
	})
	assert.True(t, delivered)
}

func TestWaitForMessageTimesOut(t *testing.T) {
	b := New(10, nil)

	start := time.Now()
	_, err := b.WaitForMessage(context.Background(), types.MsgSnipeExecuted, 100*time.Millisecond, nil)
	require.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitForMessageResolvesBeforeDeadline(t *testing.T) {
	b := New(10, nil)

	go func() {
		time.Sleep(50 * time.Millisecond)
		b.Broadcast(types.AgentSniper, types.SnipeExecuted{Signature: "sig-1"})
	}()

	msg, err := b.WaitForMessage(context.Background(), types.MsgSnipeExecuted, 100*time.Millisecond, nil)
	require.NoError(t, err)
	payload := msg.Payload.(types.SnipeExecuted)
	assert.Equal(t, "sig-1", payload.Signature)
}

func TestWaitForMessagePredicate(t *testing.T) {
	b := New(10, nil)

	go func() {
		b.Broadcast(types.AgentDetector, types.PoolDetectionReverted{PoolAddress: "other"})
		b.Broadcast(types.AgentDetector, types.PoolDetectionReverted{PoolAddress: "wanted"})
	}()

	msg, err := b.WaitForMessage(context.Background(), types.MsgPoolDetectionReverted, time.Second,
		func(m types.AgentMessage) bool {
			return m.Payload.(types.PoolDetectionReverted).PoolAddress == "wanted"
		})
	require.NoError(t, err)
	assert.Equal(t, "wanted", msg.Payload.(types.PoolDetectionReverted).PoolAddress)

	// One-shot listener must be gone after resolution.
	b.mu.Lock()
	assert.Empty(t, b.waiters[types.MsgPoolDetectionReverted])
	b.mu.Unlock()
}

func TestHistoryBounded(t *testing.T) {
	b := New(3, nil)

	for i := 0; i < 5; i++ {
		b.Broadcast(types.AgentMempool, types.CandidateSeen{Slot: uint64(i)})
	}

	recent := b.RecentMessages(0)
	require.Len(t, recent, 3)
	// Oldest evicted, most recent last.
	assert.Equal(t, uint64(2), recent[0].Payload.(types.CandidateSeen).Slot)
	assert.Equal(t, uint64(4), recent[2].Payload.(types.CandidateSeen).Slot)

	limited := b.RecentMessages(2)
	require.Len(t, limited, 2)
	assert.Equal(t, uint64(4), limited[1].Payload.(types.CandidateSeen).Slot)
}

func TestMessagesByTypeAndClear(t *testing.T) {
	b := New(10, nil)

	b.Broadcast(types.AgentMempool, types.CandidateSeen{})
	b.Broadcast(types.AgentSniper, types.SnipeFailed{})
	b.Broadcast(types.AgentMempool, types.CandidateSeen{})

	assert.Len(t, b.MessagesByType(types.MsgCandidateSeen), 2)
	assert.Len(t, b.MessagesByType(types.MsgSnipeFailed), 1)

	b.ClearHistory()
	assert.Empty(t, b.RecentMessages(0))
}
