// Package mq carries build progress events to whoever is listening: the log,
// a Redis channel shared by every server instance, and websocket subscribers.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"luxe/logging"
)

// Channel is the Redis pub/sub channel build events are published on.
const Channel = "itinerary-builds"

type Stage string

const (
	StageGenerating Stage = "generating"
	StageParsing    Stage = "parsing"
	StageImages     Stage = "resolving-images"
	StageRendering  Stage = "rendering"
	StageDelivering Stage = "delivering"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Terminal reports whether no further events follow s for the same build.
func (s Stage) Terminal() bool { return s == StageDone || s == StageFailed }

type Event struct {
	BuildID string    `json:"build_id"`
	Stage   Stage     `json:"stage"`
	Message string    `json:"message,omitempty"`
	Kind    string    `json:"kind,omitempty"`
	Time    time.Time `json:"time"`
}

// Publisher delivers an event. Implementations must be safe for concurrent use
// and must not block the build for long; a failed publish never fails a build.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes every event to the structured log.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("build_id", ev.BuildID),
		zap.String("stage", string(ev.Stage)),
	}
	if ev.Message != "" {
		fields = append(fields, zap.String("message", ev.Message))
	}
	if ev.Stage == StageFailed {
		logging.OrNop(p.Logger).Warn("build event", append(fields, zap.String("kind", ev.Kind))...)
		return nil
	}
	logging.OrNop(p.Logger).Info("build event", fields...)
	return nil
}

// RedisPublisher publishes JSON events on Channel so every instance sees them.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", Channel, err)
	}
	return nil
}

// Relay subscribes to Channel and hands every decoded event to next until ctx
// ends. It lets a server forward events published by any instance.
func (p *RedisPublisher) Relay(ctx context.Context, next Publisher, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	sub := p.client.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	logger.Info("relaying build events", zap.String("channel", Channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("dropping malformed build event", zap.Error(err))
				continue
			}
			if err := next.Publish(ctx, ev); err != nil {
				logger.Warn("relaying build event", zap.String("build_id", ev.BuildID), zap.Error(err))
			}
		}
	}
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps events in memory. Useful as a publisher in tests and for
// status endpoints.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Stages lists the recorded stages in order.
func (r *Recorder) Stages() []Stage {
	evs := r.Events()
	out := make([]Stage, len(evs))
	for i, ev := range evs {
		out[i] = ev.Stage
	}
	return out
}
