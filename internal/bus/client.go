package bus

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loqalabs/loqa-narrate/internal/config"
	"github.com/loqalabs/loqa-narrate/internal/protocol"
	"github.com/nats-io/nats.go"
)

// Client wraps a NATS connection with the helpers used to publish progress.
type Client struct {
	conn   *nats.Conn
	prefix string
	log    *slog.Logger
}

// Connect dials the configured servers. servers overrides cfg.Servers when
// non-empty, which is how the embedded broker's address is passed in.
func Connect(ctx context.Context, cfg config.BusConfig, log *slog.Logger, servers ...string) (*Client, error) {
	if len(servers) == 0 {
		servers = cfg.Servers
	}
	if len(servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	options := []nats.Option{
		nats.Name("narrate"),
	}
	if cfg.ConnectTimeout > 0 {
		options = append(options, nats.Timeout(time.Duration(cfg.ConnectTimeout)*time.Millisecond))
	}
	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "narrate"
	}

	log.Info("connected to NATS", slog.String("servers", url), slog.String("prefix", prefix))

	return &Client{
		conn:   conn,
		prefix: prefix,
		log:    log,
	}, nil
}

// Close drains pending publications and closes the connection.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info("closing NATS connection")
	if err := c.conn.Drain(); err != nil {
		c.log.Warn("nats drain failed", slog.String("error", err.Error()))
	}
	c.conn.Close()
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Publish sends evt on its subject.
func (c *Client) Publish(evt protocol.Event) error {
	data, err := protocol.Encode(evt)
	if err != nil {
		return err
	}
	return c.conn.Publish(protocol.Subject(c.prefix, evt.Type), data)
}

// Record publishes evt and logs failures; the bus is best effort and never
// interrupts a run.
func (c *Client) Record(_ context.Context, evt protocol.Event) {
	if err := c.Publish(evt); err != nil {
		c.log.Warn("publish progress event failed",
			slog.String("type", string(evt.Type)),
			slog.String("error", err.Error()))
	}
}

// Subscribe delivers every decoded event published under the client's prefix
// to handler until the returned subscription is unsubscribed.
func (c *Client) Subscribe(handler func(protocol.Event)) (*nats.Subscription, error) {
	return c.conn.Subscribe(protocol.SubjectWildcard(c.prefix), func(msg *nats.Msg) {
		evt, err := protocol.Decode(msg.Data)
		if err != nil {
			c.log.Warn("discarding malformed event", slog.String("subject", msg.Subject), slog.String("error", err.Error()))
			return
		}
		handler(evt)
	})
}
