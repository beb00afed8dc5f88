package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/insights/issue-tracker/internal/pkg/metrics"
)

// DefaultEventChannel is the pub/sub channel shared by every instance.
const DefaultEventChannel = "issue-events"

// envelope tags a payload with the instance that produced it so the
// producer can skip its own echo.
type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// EventRelay forwards serialized issue events between process instances.
type EventRelay struct {
	client  *redis.Client
	channel string
	origin  string
	log     zerolog.Logger
}

func NewEventRelay(client *redis.Client, channel, origin string, log zerolog.Logger) *EventRelay {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &EventRelay{client: client, channel: channel, origin: origin, log: log}
}

// Publish sends payload, which must be a JSON document, to the other instances.
func (r *EventRelay) Publish(ctx context.Context, payload []byte) error {
	msg, err := r.encode(payload)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, msg).Err(); err != nil {
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

// Listen subscribes to the channel and hands every foreign payload to
// deliver until ctx is cancelled.
func (r *EventRelay) Listen(ctx context.Context, deliver func([]byte)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}
	r.log.Info().Str("channel", r.channel).Msg("event relay listening")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			payload, foreign := r.decode(msg.Payload)
			if foreign {
				deliver(payload)
			}
		}
	}
}

func (r *EventRelay) encode(payload []byte) ([]byte, error) {
	msg, err := json.Marshal(envelope{Origin: r.origin, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("relay encode: %w", err)
	}
	return msg, nil
}

// decode reports false for malformed messages and for this instance's own.
func (r *EventRelay) decode(raw string) ([]byte, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		metrics.LiveRelayErrorsTotal.WithLabelValues("decode").Inc()
		r.log.Warn().Err(err).Msg("dropping malformed relay message")
		return nil, false
	}
	if env.Origin == r.origin {
		return nil, false
	}
	return env.Payload, true
}
