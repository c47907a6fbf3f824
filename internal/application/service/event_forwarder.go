package service

import (
	"context"

	"github.com/garyjia/claim-review/internal/application/dispatcher"
	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/event"
)

// EventForwarder copies every committed event to an external publisher
type EventForwarder struct {
	publisher port.EventPublisher
}

// NewEventForwarder creates a new EventForwarder
func NewEventForwarder(publisher port.EventPublisher) *EventForwarder {
	return &EventForwarder{publisher: publisher}
}

// Register subscribes the forwarder to all events
func (f *EventForwarder) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(dispatcher.AllEvents, "event-feed", f.Forward)
}

// Forward publishes evt
func (f *EventForwarder) Forward(ctx context.Context, evt *event.Event) error {
	return f.publisher.Publish(ctx, evt)
}
