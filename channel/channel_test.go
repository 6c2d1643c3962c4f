package channel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/converselink/messages"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newTestServer runs handler for each websocket connection and returns
// a ws:// URL for dialing.
func newTestServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/nothing-here")
	require.Error(t, err)
}

func TestSendReachesServer(t *testing.T) {
	received := make(chan messages.Message, 1)
	url := newTestServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := messages.Decode(data)
		if err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		received <- msg
	})

	ch, err := Dial(context.Background(), url)
	require.NoError(t, err)
	defer ch.Close()

	sent := messages.NewUserMessage("table for two at eight")
	ch.Send(sent)

	select {
	case got := <-received:
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the message")
	}
}

func TestInboundOrderPreserved(t *testing.T) {
	const count = 20
	url := newTestServer(t, func(conn *websocket.Conn) {
		for i := 0; i < count; i++ {
			data, err := messages.Encode(messages.NewAssistantMessage(fmt.Sprintf("part %d", i)))
			if err != nil {
				t.Errorf("encode: %v", err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		conn.ReadMessage() // wait for the peer's close
	})

	ch, err := Dial(context.Background(), url)
	require.NoError(t, err)
	defer ch.Close()

	i := 0
	for msg := range ch.Messages() {
		assert.Equal(t, messages.TypeAssistant, msg.Type)
		assert.Equal(t, fmt.Sprintf("part %d", i), msg.Payload)
		i++
	}
	assert.Equal(t, count, i)
}

func TestStreamClosesOnServerClose(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "done"),
		)
	})

	ch, err := Dial(context.Background(), url)
	require.NoError(t, err)
	defer ch.Close()

	select {
	case _, ok := <-ch.Messages():
		assert.False(t, ok, "stream should close without delivering anything")
	case <-time.After(2 * time.Second):
		t.Fatal("inbound stream never closed")
	}
}

func TestCloseIdempotentAndSendAfterClose(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})

	ch, err := Dial(context.Background(), url)
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	ch.Send(messages.NewUserMessage("late")) // dropped, no panic

	select {
	case _, ok := <-ch.Messages():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("inbound stream never closed after Close")
	}
}

func TestMalformedFrameSkipped(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		data, err := messages.Encode(messages.NewConsoleMessage("still alive"))
		if err != nil {
			t.Errorf("encode: %v", err)
			return
		}
		conn.WriteMessage(websocket.TextMessage, data)
		conn.ReadMessage()
	})

	ch, err := Dial(context.Background(), url)
	require.NoError(t, err)
	defer ch.Close()

	select {
	case msg := <-ch.Messages():
		assert.Equal(t, messages.TypeConsole, msg.Type)
		assert.Equal(t, "still alive", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("good frame after a malformed one never arrived")
	}
}
