package eventbus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/deepnoodle-ai/cowrite"
	"github.com/deepnoodle-ai/wonton/assert"
)

func testEvent(eventType cowrite.EventType, data cowrite.EventData) *cowrite.Event {
	return &cowrite.Event{
		ID:        "event_test",
		Type:      eventType,
		EditorID:  "doc1",
		Timestamp: time.Now(),
		Data:      data,
	}
}

func appliedEvent() *cowrite.Event {
	return testEvent(cowrite.EventOperationApplied, &cowrite.OperationAppliedData{
		Operation: &cowrite.Operation{
			ID:       "op1",
			Type:     cowrite.OperationInsert,
			Content:  "x",
			ClientID: "c1",
		},
		Version: 1,
	})
}

func TestSubscribeExactType(t *testing.T) {
	bus := New(Options{})
	var received []*cowrite.Event
	_, err := bus.Subscribe("operation.applied", func(ctx context.Context, event *cowrite.Event) error {
		received = append(received, event)
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, bus.Publish(context.Background(), appliedEvent()))
	assert.Equal(t, 1, len(received))
	assert.Equal(t, cowrite.EventOperationApplied, received[0].Type)
}

func TestSubscribeGlobPattern(t *testing.T) {
	bus := New(Options{})
	var types []cowrite.EventType
	_, err := bus.Subscribe("operation.*", func(ctx context.Context, event *cowrite.Event) error {
		types = append(types, event.Type)
		return nil
	})
	assert.NoError(t, err)

	bus.Publish(context.Background(), appliedEvent())
	bus.Publish(context.Background(), testEvent(cowrite.EventCursorUpdated, &cowrite.CursorUpdatedData{
		UserID: "u1",
	}))

	assert.Equal(t, 1, len(types))
	assert.Equal(t, cowrite.EventOperationApplied, types[0])
}

func TestSubscribeWildcardAll(t *testing.T) {
	bus := New(Options{})
	count := 0
	bus.Subscribe("*", func(ctx context.Context, event *cowrite.Event) error {
		count++
		return nil
	})

	bus.Publish(context.Background(), appliedEvent())
	bus.Publish(context.Background(), testEvent(cowrite.EventCursorUpdated, &cowrite.CursorUpdatedData{
		UserID: "u1",
	}))
	assert.Equal(t, 2, count)
}

func TestDeliveryOrderMatchesSubscriptionOrder(t *testing.T) {
	bus := New(Options{})
	var order []string
	bus.Subscribe("*", func(ctx context.Context, event *cowrite.Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe("*", func(ctx context.Context, event *cowrite.Event) error {
		order = append(order, "second")
		return nil
	})

	bus.Publish(context.Background(), appliedEvent())
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestHandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := New(Options{})
	delivered := false
	bus.Subscribe("*", func(ctx context.Context, event *cowrite.Event) error {
		return fmt.Errorf("sink exploded")
	})
	bus.Subscribe("*", func(ctx context.Context, event *cowrite.Event) error {
		delivered = true
		return nil
	})

	assert.NoError(t, bus.Publish(context.Background(), appliedEvent()))
	assert.True(t, delivered)
}

func TestUnsubscribe(t *testing.T) {
	bus := New(Options{})
	count := 0
	unsubscribe, err := bus.Subscribe("*", func(ctx context.Context, event *cowrite.Event) error {
		count++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, bus.SubscriberCount())

	bus.Publish(context.Background(), appliedEvent())
	unsubscribe()
	bus.Publish(context.Background(), appliedEvent())

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestPublishRejectsInvalidEvent(t *testing.T) {
	bus := New(Options{})
	err := bus.Publish(context.Background(), &cowrite.Event{Type: cowrite.EventOperationApplied})
	assert.Error(t, err)
}

func TestSubscribeRejectsBadPattern(t *testing.T) {
	bus := New(Options{})
	_, err := bus.Subscribe("[", func(ctx context.Context, event *cowrite.Event) error { return nil })
	assert.Error(t, err)
}
