// Package stream subscribes to live observation releases over a websocket.
// Each frame is a JSON object carrying the release timestamp and the newly
// observed values, ready to be appended to an updated vintage for news
// decomposition.
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Release is one pushed observation update.
type Release struct {
	Time   time.Time          `json:"ts"`
	Values map[string]float64 `json:"values"`
}

type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger

	ctx       context.Context
	ctxCancel context.CancelFunc

	releases chan Release
}

// Dial connects to url and starts the read pump. The client owns the
// connection until Close.
func Dial(ctx context.Context, url string, logger *zap.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to dial %q: %w", url, err)
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &Client{
		conn:      conn,
		logger:    logger,
		ctx:       cctx,
		ctxCancel: cancel,
		releases:  make(chan Release, 64),
	}
	go c.read()
	return c, nil
}

// Releases delivers pushed updates in arrival order. The channel closes
// when the connection ends.
func (c *Client) Releases() <-chan Release {
	return c.releases
}

func (c *Client) Close() {
	c.ctxCancel()
	_ = c.conn.Close()
}

func (c *Client) read() {
	defer close(c.releases)
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var rel Release
			if err := c.conn.ReadJSON(&rel); err != nil {
				if c.ctx.Err() == nil {
					c.logger.Warn("stream read failed", zap.Error(err))
				}
				return
			}
			select {
			case c.releases <- rel:
			case <-c.ctx.Done():
				return
			}
		}
	}
}
