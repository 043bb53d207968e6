package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/edustake/edustake-core"
)

const signalPrefix = "edustake:"

// SignalService fans entity-change events out over redis pub/sub so
// every connected presentation client sees collection mutations as they
// happen.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

// Publish emits one change event on the channel for its kind.
func (s *SignalService) Publish(ctx context.Context, event edustake.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, signalPrefix+event.Kind, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Realtime forwards events for the requested kinds to output until ctx
// is done or input closes. Each batch received on input replaces the
// previous subscription set.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- edustake.Event) {

	pubsub := s.rdb.PSubscribe(ctx)
	defer pubsub.Close()

	var subscribed []string

	for {
		select {
		case <-ctx.Done():
			return

		case kinds, ok := <-input:
			if !ok {
				return
			}
			if len(subscribed) > 0 {
				if err := pubsub.PUnsubscribe(ctx, subscribed...); err != nil {
					slog.ErrorContext(ctx, "Failed to unsubscribe",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}
			subscribed = subscribed[:0]
			for _, kind := range kinds {
				subscribed = append(subscribed, signalPrefix+kind)
			}
			if len(subscribed) > 0 {
				if err := pubsub.PSubscribe(ctx, subscribed...); err != nil {
					slog.ErrorContext(ctx, "Failed to subscribe",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}

		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var event edustake.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.WarnContext(ctx, "Discarding undecodable event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			output <- event
		}
	}
}
