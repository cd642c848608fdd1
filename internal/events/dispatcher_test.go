package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	calls := 0
	d.Subscribe(EventRequestEscalated, func(context.Context, Event) error {
		calls++
		return errors.New("webhook down")
	})
	d.Subscribe(EventRequestEscalated, func(context.Context, Event) error {
		calls++
		return nil
	})
	d.Subscribe(EventRequestCreated, func(context.Context, Event) error {
		t.Fatal("unrelated handler invoked")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventRequestEscalated, RequestID: "r1"})

	assert.Equal(t, 2, calls)
	assert.ErrorContains(t, err, "webhook down")
}

func TestWildcardSubscriberSeesEveryType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []EventType
	d.Subscribe(AllEvents, func(_ context.Context, e Event) error {
		seen = append(seen, e.Type)
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventRequestCreated}))
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventCommentAdded}))

	assert.Equal(t, []EventType{EventRequestCreated, EventCommentAdded}, seen)
}

func TestPanickingHandlerIsReported(t *testing.T) {
	d := NewInMemoryDispatcher()
	after := false
	d.Subscribe(EventRequestAssigned, func(context.Context, Event) error { panic("boom") })
	d.Subscribe(EventRequestAssigned, func(context.Context, Event) error {
		after = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventRequestAssigned})

	assert.True(t, after)
	assert.ErrorContains(t, err, "handler panic: boom")
}
