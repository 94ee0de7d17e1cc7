package control

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Signal names understood by the engine.
const (
	SignalEnable       = "enable"
	SignalDisable      = "disable"
	SignalToggle       = "toggle"
	SignalSetIntensity = "set-intensity"
	SignalToggleChrome = "toggle-chrome"
)

// Signal is one control message. Process scopes the signal to a single
// host process; empty targets every attached engine.
type Signal struct {
	Name    string `json:"name"`
	Value   int    `json:"value,omitempty"`
	Process string `json:"process,omitempty"`
}

// Matches reports whether the signal applies to the given process.
func (s Signal) Matches(process string) bool {
	return s.Process == "" || s.Process == process
}

// Handler consumes signals delivered by Subscribe. It is called on the
// subscription goroutine; handlers marshal onto the UI thread themselves.
type Handler func(sig Signal)

// Channel is a redis pub/sub control channel. Every attached engine
// subscribes; the CLI publishes.
type Channel struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

// Options configure the channel connection.
type Options struct {
	Addr    string
	DB      int
	Channel string
}

// New connects a control channel.
func New(opts Options, logger zerolog.Logger) *Channel {
	client := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
		DB:   opts.DB,
	})
	return NewFromClient(client, opts.Channel, logger)
}

// NewFromClient wraps an existing redis client. Tests use it with
// miniredis.
func NewFromClient(client *redis.Client, channel string, logger zerolog.Logger) *Channel {
	return &Channel{
		client:  client,
		channel: channel,
		log:     logger.With().Str("component", "control").Logger(),
	}
}

// Publish sends a signal to every subscriber.
func (c *Channel) Publish(ctx context.Context, sig Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to encode signal: %w", err)
	}
	if err := c.client.Publish(ctx, c.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish signal: %w", err)
	}
	c.log.Debug().Str("signal", sig.Name).Int("value", sig.Value).Msg("signal published")
	return nil
}

// Subscribe delivers signals to handler until ctx is canceled. Malformed
// payloads are logged and skipped; the subscription survives them.
func (c *Channel) Subscribe(ctx context.Context, handler Handler) error {
	sub := c.client.Subscribe(ctx, c.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()
	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var sig Signal
				if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
					c.log.Warn().Err(err).Str("payload", msg.Payload).Msg("malformed signal dropped")
					continue
				}
				c.log.Debug().Str("signal", sig.Name).Msg("signal received")
				handler(sig)
			}
		}
	}()

	c.log.Info().Str("channel", c.channel).Msg("control subscription started")
	return nil
}

// Ping verifies the connection.
func (c *Channel) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *Channel) Close() error {
	return c.client.Close()
}
