package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubDeliversOnlyToWatchers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	watched, other := uuid.New(), uuid.New()
	a := &Client{Hub: hub, QuestionID: watched, Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, QuestionID: other, Send: make(chan []byte, 4)}
	hub.Register <- a
	hub.Register <- b

	hub.Publish(watched, map[string]int{"upvotes": 3})

	select {
	case msg := <-a.Send:
		assert.JSONEq(t, `{"upvotes":3}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("watcher did not receive update")
	}
	assert.Empty(t, b.Send)

	hub.unregister(a)
	require.Eventually(t, func() bool { return hub.Watchers(watched) == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-a.Send
	assert.False(t, open)
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		hub.Publish(uuid.New(), "late")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("publish blocked on a stopped hub")
	}
}

func TestRegisterAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	result := make(chan bool, 1)
	go func() {
		result <- hub.RegisterClient(&Client{Hub: hub, QuestionID: uuid.New(), Send: make(chan []byte, 1)})
	}()
	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("register blocked on a stopped hub")
	}
}

func TestClientReceivesOverWebsocket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	questionID := uuid.New()
	upgrader := ws.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, questionID, conn)
		if !hub.RegisterClient(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	defer server.Close()

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Watchers(questionID) == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(questionID, map[string]string{"type": "vote"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event map[string]string
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "vote", event["type"])
}
