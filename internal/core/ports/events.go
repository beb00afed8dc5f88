package ports

import (
	"context"

	"github.com/insights/issue-tracker/internal/core/domain"
)

// EventPublisher fans an issue change out to live observers. Publish never
// fails the caller: delivery problems are handled by the implementation.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// Observer is one subscribed live connection as seen by the transport.
// Messages is closed when the observer is unregistered.
type Observer interface {
	ID() string
	Messages() <-chan []byte
}

// LiveFeed registers and releases observers.
type LiveFeed interface {
	Subscribe() Observer
	Unsubscribe(o Observer)
}

// EventRelay forwards serialized events to the other process instances.
type EventRelay interface {
	Publish(ctx context.Context, payload []byte) error
}
