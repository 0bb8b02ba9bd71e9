package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Event) error { return f.err }

func TestFanoutReachesEveryPublisher(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	boom := errors.New("boom")
	f := Fanout{a, nil, failingPublisher{boom}, b}

	err := f.Publish(context.Background(), Event{BuildID: "1", Stage: StageParsing})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Stage{StageParsing}, a.Stages())
	assert.Equal(t, []Stage{StageParsing}, b.Stages())
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := LogPublisher{Logger: zap.New(core)}

	require.NoError(t, p.Publish(context.Background(), Event{BuildID: "b1", Stage: StageRendering}))
	require.NoError(t, p.Publish(context.Background(), Event{BuildID: "b1", Stage: StageFailed, Kind: "parse_failure"}))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "rendering", entries[0].ContextMap()["stage"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "parse_failure", entries[1].ContextMap()["kind"])
}

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageDone.Terminal())
	assert.True(t, StageFailed.Terminal())
	assert.False(t, StageRendering.Terminal())
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient("http://nope")
	assert.Error(t, err)
}

func TestRedisPublisherReportsUnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := NewRedisPublisher(client).Publish(ctx, Event{BuildID: "x", Stage: StageDone})
	require.Error(t, err)
	assert.Contains(t, err.Error(), Channel)
}
