package generators

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WSClient struct {
	conn   *websocket.Conn
	url    string
	auth   string
	logger *zap.Logger

	mu   sync.Mutex
	done chan struct{}
}

func NewWSClient(url string, auth string) (*WSClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{
		"Authorization": {auth},
	})
	if err != nil {
		return nil, err
	}

	return &WSClient{
		conn:   conn,
		url:    url,
		auth:   auth,
		logger: zap.L(),
		done:   make(chan struct{}),
	}, nil
}

func (c *WSClient) reconnect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, http.Header{
		"Authorization": {c.auth},
	})
	if err != nil {
		return err
	}

	c.conn = conn
	return nil
}

func (c *WSClient) SendMessage(message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.conn.WriteMessage(websocket.TextMessage, []byte(message))
	if err != nil {
		if err := c.reconnect(); err != nil {
			return err
		}

		// Retry once on the fresh connection.
		return c.conn.WriteMessage(websocket.TextMessage, []byte(message))
	}
	return nil
}

// ReadMessages pumps raw frames into messageChan until the connection drops,
// then closes the channel. Single reader per connection.
func (c *WSClient) ReadMessages(messageChan chan<- []byte) {
	defer close(c.done)
	defer close(messageChan)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Warn("ws read failed", zap.Error(err))
			return
		}
		messageChan <- message
	}
}

func (c *WSClient) Close() error {
	err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	select {
	case <-c.done:
	case <-time.After(time.Second):
	}
	return c.conn.Close()
}
