package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/config"
	"github.com/stemsi/classroom-backend/internal/model"
)

// RosterPublisher fans roster changes out over Redis Pub/Sub so every API
// instance can forward them to its WebSocket subscribers.
type RosterPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRosterPublisher creates a new RosterPublisher.
func NewRosterPublisher(rdb *redis.Client, log zerolog.Logger) *RosterPublisher {
	return &RosterPublisher{rdb: rdb, log: log.With().Str("component", "roster_publisher").Logger()}
}

// Publish sends the event on the class roster channel.
func (p *RosterPublisher) Publish(ctx context.Context, ev model.RosterEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, config.CacheKey.ClassRosterChannel(ev.ClassID), raw).Err()
}

// Listen subscribes to a class roster channel and decodes its events until
// ctx is done, then closes the returned channel. It returns once the
// subscription is confirmed, so no event published afterwards is missed.
func (p *RosterPublisher) Listen(ctx context.Context, classID int) (<-chan model.RosterEvent, error) {
	pubsub := p.rdb.Subscribe(ctx, config.CacheKey.ClassRosterChannel(classID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe roster %d: %w", classID, err)
	}

	out := make(chan model.RosterEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev model.RosterEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					p.log.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed roster event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
