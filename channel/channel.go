// Package channel provides the message-framed duplex transport used by
// the voice session: ordered fire-and-forget sends in one direction and
// a stream of inbound messages in the other, over a single websocket.
package channel

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/room4-2/converselink/messages"
)

const (
	writeBufferSize = 256
	recvBufferSize  = 64
	writeTimeout    = 10 * time.Second
	maxMessageSize  = 512 * 1024
)

// Channel is a bidirectional, message-framed connection to a remote
// endpoint. Outbound messages are enqueued without blocking and written
// by a single pump goroutine, so per-direction ordering is preserved.
// Inbound messages are delivered on the channel returned by Messages,
// which closes when the peer closes or the transport fails.
type Channel struct {
	conn *websocket.Conn

	writeChan chan messages.Message
	recvChan  chan messages.Message
	closeChan chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Dial connects to the remote endpoint and starts the read and write
// pumps.
func Dial(ctx context.Context, url string) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	conn.SetReadLimit(maxMessageSize)
	conn.EnableWriteCompression(true)

	c := &Channel{
		conn:      conn,
		writeChan: make(chan messages.Message, writeBufferSize),
		recvChan:  make(chan messages.Message, recvBufferSize),
		closeChan: make(chan struct{}),
	}

	go c.writePump()
	go c.readPump()

	return c, nil
}

// Send enqueues a message for delivery. It never blocks: after Close,
// or when the queue is full, the message is dropped.
func (c *Channel) Send(msg messages.Message) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	select {
	case c.writeChan <- msg:
	default:
		// Queue full, drop message (shouldn't happen with proper sizing)
	}
}

// Messages returns the inbound message stream. The channel is closed
// when the remote closes the connection or a read fails.
func (c *Channel) Messages() <-chan messages.Message {
	return c.recvChan
}

// Close terminates both directions. The inbound stream ends shortly
// after, letting consumers exit their range loops. Close is idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.closeChan)
	return c.conn.Close()
}

func (c *Channel) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// writePump drains the outbound queue on a single goroutine.
func (c *Channel) writePump() {
	defer func() {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-c.closeChan:
			return
		case msg := <-c.writeChan:
			data, err := messages.Encode(msg)
			if err != nil {
				log.Printf("channel: dropping unencodable message: %v", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// readPump feeds inbound frames into recvChan until the connection
// ends, then closes the stream.
func (c *Channel) readPump() {
	defer close(c.recvChan)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.isClosed() && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("channel: read error: %v", err)
			}
			return
		}

		msg, err := messages.Decode(data)
		if err != nil {
			log.Printf("channel: dropping malformed frame: %v", err)
			continue
		}

		select {
		case c.recvChan <- msg:
		case <-c.closeChan:
			return
		}
	}
}
