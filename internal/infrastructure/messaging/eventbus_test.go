package messaging

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdeck/reward-engine/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:     false,
		EnableMetrics: true,
	})
}

func TestInMemoryEventBus_PublishRoutesByType(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var credited, committed int32
	require.NoError(t, bus.Subscribe(shared.EventTicketsCredited, func(e shared.Event) error {
		atomic.AddInt32(&credited, 1)
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventDrawCommitted, func(e shared.Event) error {
		atomic.AddInt32(&committed, 1)
		return nil
	}))

	event := shared.NewTicketsCreditedEvent("student-1", 2, 2, 1)
	require.NoError(t, bus.Publish(event))

	assert.Equal(t, int32(1), atomic.LoadInt32(&credited))
	assert.Equal(t, int32(0), atomic.LoadInt32(&committed))
}

func TestInMemoryEventBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var seen int32
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		atomic.AddInt32(&seen, 1)
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewTicketsCreditedEvent("student-1", 1, 1, 0)))
	require.NoError(t, bus.Publish(shared.NewPityTriggeredEvent("student-1", "epic", 5)))

	assert.Equal(t, int32(2), atomic.LoadInt32(&seen))
}

func TestInMemoryEventBus_ClosedBusRejectsPublish(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewTicketsCreditedEvent("student-1", 1, 1, 0))
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestInMemoryEventBus_MetricsCountPublishes(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventTicketsCredited, func(e shared.Event) error {
		return nil
	}))
	require.NoError(t, bus.Publish(shared.NewTicketsCreditedEvent("student-1", 1, 1, 0)))
	require.NoError(t, bus.Publish(shared.NewTicketsCreditedEvent("student-1", 2, 3, 0)))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
	assert.Equal(t, 1.0, snap.HandlerSuccessRate)
}
