package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxe/mq"
)

func receive(t *testing.T, ch <-chan []byte) mq.Event {
	t.Helper()
	select {
	case got := <-ch:
		var ev mq.Event
		require.NoError(t, json.Unmarshal(got, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	return mq.Event{}
}

func TestHubRegisterPublishUnregister(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := &Client{Send: make(chan []byte, 10), Room: "build-1"}
	other := &Client{Send: make(chan []byte, 10), Room: "build-2"}
	hub.register <- client
	hub.register <- other

	require.NoError(t, hub.Publish(context.Background(), mq.Event{BuildID: "build-1", Stage: mq.StageParsing}))
	ev := receive(t, client.Send)
	assert.Equal(t, mq.StageParsing, ev.Stage)

	select {
	case <-other.Send:
		t.Fatal("event leaked into another room")
	default:
	}

	hub.unregister <- client
	_, open := <-client.Send
	assert.False(t, open, "unregister closes the send channel")
}

func TestHubReplaysHistory(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, mq.Event{BuildID: "b", Stage: mq.StageGenerating}))
	require.NoError(t, hub.Publish(ctx, mq.Event{BuildID: "b", Stage: mq.StageParsing}))

	late := &Client{Send: make(chan []byte, 10), Room: "b"}
	hub.register <- late
	assert.Equal(t, mq.StageGenerating, receive(t, late.Send).Stage)
	assert.Equal(t, mq.StageParsing, receive(t, late.Send).Stage)
}

func TestHubPublishAfterStop(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	hub.Stop()

	err := hub.Publish(context.Background(), mq.Event{BuildID: "b", Stage: mq.StageDone})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHubServeWebsocket(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "b42")
	}))
	defer srv.Close()

	// published before the subscriber connects; delivered by history replay
	require.NoError(t, hub.Publish(context.Background(), mq.Event{BuildID: "b42", Stage: mq.StageDone, Message: "ok"}))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var got mq.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "b42", got.BuildID)
	assert.Equal(t, mq.StageDone, got.Stage)
	assert.Equal(t, "ok", got.Message)
}
