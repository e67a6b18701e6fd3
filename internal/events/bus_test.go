package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch chan *CloudEvent) *CloudEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestEmitDeliversToTypeSubscribers(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(EventReleaseExecuted)
	defer bus.Unsubscribe(ch)

	bus.Emit(EventReleaseExecuted, "firmos/release", "rel-001", map[string]interface{}{
		"release_id":    "rel-001",
		"workstream_id": "ws-001",
	})

	ev := receive(t, ch)
	assert.Equal(t, EventReleaseExecuted, ev.Type)
	assert.Equal(t, "1.0", ev.SpecVersion)
	assert.Equal(t, "rel-001", ev.Subject)
	assert.Equal(t, "ws-001", ev.WorkstreamID)
	assert.NotEmpty(t, ev.ID)
}

func TestTypeFilteredSubscriberIgnoresOtherTypes(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(EventIncidentLogged)
	defer bus.Unsubscribe(ch)

	bus.Emit(EventGuardianReport, "firmos/guardian", "ws-001", map[string]interface{}{})

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmptySubscriptionReceivesAllEvents(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	bus.Emit(EventAutonomyDecided, "firmos/autonomy", "tax", map[string]interface{}{})
	bus.Emit(EventIncidentLogged, "firmos/incidents", "inc-1", map[string]interface{}{})

	assert.Equal(t, EventAutonomyDecided, receive(t, ch).Type)
	assert.Equal(t, EventIncidentLogged, receive(t, ch).Type)
}

func TestSSEFormat(t *testing.T) {
	ev := NewCloudEvent(EventGuardianReport, "firmos/guardian", "ws-001", map[string]interface{}{
		"passed": true,
	})

	data, err := ev.SSEFormat()
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "event: "+EventGuardianReport+"\n")
	assert.Contains(t, out, "id: "+ev.ID+"\n")
	assert.Contains(t, out, `"passed":true`)
}

func TestSubscriberCount(t *testing.T) {
	bus := NewEventBus()
	assert.Equal(t, 0, bus.SubscriberCount())

	a := bus.Subscribe()
	b := bus.Subscribe(EventReleaseCreated)
	assert.Equal(t, 2, bus.SubscriberCount())

	bus.Unsubscribe(a)
	bus.Unsubscribe(b)
	assert.Equal(t, 0, bus.SubscriberCount())
}
