// Package bus is a thin JSON layer over a NATS connection.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultHandlerTimeout bounds a single message handler.
const DefaultHandlerTimeout = 2 * time.Minute

type Client struct {
	nc             *nats.Conn
	logger         *slog.Logger
	HandlerTimeout time.Duration
}

func Connect(url, name string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc, logger: logger, HandlerTimeout: DefaultHandlerTimeout}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *Client) Conn() *nats.Conn { return c.nc }

func (c *Client) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	return c.nc.Publish(subject, b)
}

// QueueSubscribeJSON delivers messages on subject to one member of queue.
// Each subscription runs its handler serially; open several to process
// messages in parallel.
func (c *Client) QueueSubscribeJSON(subject, queue string, handler func(ctx context.Context, data []byte)) (*nats.Subscription, error) {
	return c.nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		ctx, cancel := c.handlerContext()
		defer cancel()
		handler(ctx, msg.Data)
	})
}

// HandleRequests answers request/reply messages on subject with the JSON
// encoding of whatever handler returns.
func (c *Client) HandleRequests(subject string, handler func(ctx context.Context, data []byte) any) (*nats.Subscription, error) {
	return c.nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx, cancel := c.handlerContext()
		defer cancel()
		b, err := json.Marshal(handler(ctx, msg.Data))
		if err != nil {
			c.logger.Error("encode reply failed", "subject", subject, "err", err)
			return
		}
		if msg.Reply == "" {
			c.logger.Warn("request without reply subject", "subject", subject)
			return
		}
		if err := msg.Respond(b); err != nil {
			c.logger.Error("reply failed", "subject", subject, "err", err)
		}
	})
}

// RequestJSON sends v on subject and decodes the reply into out.
func (c *Client) RequestJSON(ctx context.Context, subject string, v, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	msg, err := c.nc.RequestWithContext(ctx, subject, b)
	if err != nil {
		return err
	}
	return json.Unmarshal(msg.Data, out)
}

func (c *Client) handlerContext() (context.Context, context.CancelFunc) {
	timeout := c.HandlerTimeout
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}
