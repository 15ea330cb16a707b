package watch

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"folio/internal/logger"
)

const SourceRedis = "redis"

// Subscribe invalidates on every message published to channel until ctx is
// done. It returns once the subscription is confirmed or failed, handing the
// message loop to a goroutine; the returned stop func waits for it to exit.
func Subscribe(ctx context.Context, client *redis.Client, channel string, inv Invalidator, log logger.Logger) (stop func(), err error) {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.String("component", "watch"), logger.String("channel", channel))

	sub := client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				log.Info("invalidation requested", logger.String("payload", msg.Payload))
				inv.Invalidate(SourceRedis)
			}
		}
	}()
	log.Info("listening for invalidations")

	return func() {
		cancel()
		<-done
	}, nil
}

// Publish asks every subscribed folio process to reload. reason is carried
// as the payload for their logs.
func Publish(ctx context.Context, client *redis.Client, channel, reason string) (int64, error) {
	n, err := client.Publish(ctx, channel, reason).Result()
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", channel, err)
	}
	return n, nil
}
