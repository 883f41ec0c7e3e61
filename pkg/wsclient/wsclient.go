// Package wsclient is a small reconnecting websocket reader used by
// auron-ctl to tail the daemon's event stream.
package wsclient

import (
	log "log/slog"
	"time"

	ws "github.com/gorilla/websocket"
)

type Client struct {
	conn  *ws.Conn
	url   string
	retry time.Duration
}

func Dial(url string, retry time.Duration) (*Client, error) {
	if retry <= 0 {
		retry = time.Second
	}

	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	return &Client{conn: conn, url: url, retry: retry}, nil
}

// Next returns the next message, reconnecting transparently when the
// server closes the connection. Other read failures are returned.
func (c *Client) Next() ([]byte, error) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err == nil {
			return msg, nil
		}
		if !isClosed(err) {
			return nil, err
		}

		log.Warn("Connection lost, reconnecting", "url", c.url)
		c.reconnect()
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) reconnect() {
	for {
		conn, _, err := ws.DefaultDialer.Dial(c.url, nil)
		if err == nil {
			c.conn = conn
			return
		}
		time.Sleep(c.retry)
	}
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure) || ws.IsUnexpectedCloseError(err)
}
