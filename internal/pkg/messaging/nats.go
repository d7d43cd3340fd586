// Package messaging provides a NATS client wrapper for the pub/sub bus that
// connects the API, the pairing worker, and realtime subscribers. It handles
// connection lifecycle, subject-based subscriptions, and convenience methods
// for the queue, match, and session channels.
package messaging

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATS subject patterns used across duet services.
const (
	SubjectQueueChanged = "queue.changed"
	SubjectMatchFound   = "match.found" // + .<actor_id>
	SubjectSession      = "session"     // + .<session_id>
)

// Client wraps the NATS connection with helper methods for pub/sub.
type Client struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// Config holds NATS connection settings.
type Config struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:           url,
		Name:          name,
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// Connect connects to NATS with the given config and returns a ready client.
// It returns an error if the initial connection fails.
func Connect(config Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")

	return &Client{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to the given NATS subject.
func (c *Client) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// Subscribe registers a handler for the given subject and stores the
// subscription internally for later cleanup. The key defaults to the subject;
// SubscribeKeyed allows multiple subscribers on the same subject.
func (c *Client) Subscribe(subject string, handler func(data []byte)) error {
	return c.SubscribeKeyed(subject, subject, handler)
}

// SubscribeKeyed registers a handler for subject under an explicit key so that
// several subscribers on one server can share a subject without overwriting
// each other's subscription.
func (c *Client) SubscribeKeyed(key, subject string, handler func(data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[key] = sub
	c.mu.Unlock()
	return nil
}

// Unsubscribe removes and unsubscribes the subscription stored under key.
func (c *Client) Unsubscribe(key string) error {
	c.mu.Lock()
	sub, ok := c.subs[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("nats: no subscription for key %s", key)
	}
	delete(c.subs, key)
	c.mu.Unlock()

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("nats unsubscribe %s: %w", key, err)
	}
	return nil
}

// PublishQueueChanged publishes a queue mutation event that triggers a
// pairing attempt on the worker side.
func (c *Client) PublishQueueChanged(data []byte) error {
	return c.Publish(SubjectQueueChanged, data)
}

// SubscribeQueueChanged subscribes to queue mutation events. The queue group
// ensures only one worker instance handles each event.
func (c *Client) SubscribeQueueChanged(handler func(data []byte)) error {
	sub, err := c.conn.QueueSubscribe(SubjectQueueChanged, "pairing-workers", func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", SubjectQueueChanged, err)
	}

	c.mu.Lock()
	c.subs[SubjectQueueChanged] = sub
	c.mu.Unlock()
	return nil
}

// PublishMatchFound publishes a match notification to a specific actor.
func (c *Client) PublishMatchFound(actorID string, data []byte) error {
	return c.Publish(SubjectMatchFound+"."+actorID, data)
}

// SubscribeMatchFound subscribes to match notifications for an actor.
func (c *Client) SubscribeMatchFound(key, actorID string, handler func(data []byte)) error {
	return c.SubscribeKeyed(key, SubjectMatchFound+"."+actorID, handler)
}

// PublishSessionEvent publishes an event on a session's channel.
func (c *Client) PublishSessionEvent(sessionID string, data []byte) error {
	return c.Publish(SubjectSession+"."+sessionID, data)
}

// SubscribeSession subscribes to a session's event channel.
func (c *Client) SubscribeSession(key, sessionID string, handler func(data []byte)) error {
	return c.SubscribeKeyed(key, SubjectSession+"."+sessionID, handler)
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("NATS subscription drain failed")
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("NATS connection drain failed")
	}
}
