package messaging

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/pkg/config"
)

// Connection bridges one admitted observer to its websocket. The write pump
// drains the observer's outbound queue onto the wire; the read pump exists
// only to service control frames and detect disconnects, since observers
// never send application data.
type Connection struct {
	hub      Broadcaster
	observer *Observer
	conn     *websocket.Conn
	logger   *logging.ChanneledLogger
}

// NewConnection wraps an upgraded websocket for an admitted observer.
func NewConnection(hub Broadcaster, observer *Observer, conn *websocket.Conn, logger *logging.ChanneledLogger) *Connection {
	return &Connection{hub: hub, observer: observer, conn: conn, logger: logger}
}

// Serve runs the write pump on a new goroutine and the read pump on the
// calling goroutine. It returns when the connection is gone; by then the
// observer has been unsubscribed and the socket closed.
func (c *Connection) Serve() {
	go c.writePump()
	c.readPump()
}

func (c *Connection) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.observer)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.ObserverMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.ObserverPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.ObserverPongWait))
		return nil
	})

	for {
		// Inbound frames are discarded; the dashboard stream is one-way.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				if c.logger != nil {
					c.logger.Broadcast().Warn("Observer read error",
						"observerId", c.observer.ID, "error", err.Error())
				}
			}
			return
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(config.ObserverPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.observer.Outbound():
			c.conn.SetWriteDeadline(time.Now().Add(config.ObserverWriteWait))
			if !ok {
				// Hub closed the queue on unsubscribe.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if c.logger != nil {
					c.logger.Broadcast().Warn("Observer write error",
						"observerId", c.observer.ID, "error", err.Error())
				}
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.ObserverWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
