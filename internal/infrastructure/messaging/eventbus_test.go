package messaging

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func sessionEvent() shared.Event {
	return shared.NewSessionLoggedEvent("user-1", "session-1", "Math", "integrals", 45, 8)
}

func TestInMemoryEventBus_PublishRoutesByType(t *testing.T) {
	bus := syncBus()

	var typed, global atomic.Int64
	require.NoError(t, bus.Subscribe(shared.EventSessionLogged, func(e shared.Event) error {
		typed.Add(1)
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		global.Add(1)
		return nil
	}))

	require.NoError(t, bus.Publish(sessionEvent()))

	assert.Equal(t, int64(1), typed.Load())
	assert.Equal(t, int64(1), global.Load())
}

func TestInMemoryEventBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := syncBus()

	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		return errors.New("handler exploded")
	}))

	assert.NoError(t, bus.Publish(sessionEvent()))
}

func TestInMemoryEventBus_ClosedBusRejectsOperations(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(sessionEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventSessionLogged, func(e shared.Event) error { return nil }), ErrEventBusClosed)

	// Second close is a no-op.
	assert.NoError(t, bus.Close())
}

func TestInMemoryEventBus_NilChecks(t *testing.T) {
	bus := syncBus()

	assert.Error(t, bus.Subscribe(shared.EventSessionLogged, nil))
	assert.Error(t, bus.SubscribeAll(nil))
	assert.Error(t, bus.Publish(nil))
}
