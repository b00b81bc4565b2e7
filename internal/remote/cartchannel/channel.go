package cartchannel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rdelrosario/sari-pos/pkg/logger"
	pkgredis "github.com/rdelrosario/sari-pos/pkg/redis"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

// Mirrored carts are ephemeral working state; if no device touches one for
// a day it is abandoned.
const cartTTL = 24 * time.Hour

// envelope is the wire format on the cart pub/sub channel. A cleared cart is
// a tombstone carrying only the version, so receivers can order it against
// their own state like any other update.
type envelope struct {
	Cleared bool        `json:"cleared,omitempty"`
	Version int64       `json:"version,omitempty"`
	Cart    *types.Cart `json:"cart,omitempty"`
}

// Channel mirrors carts through Redis: the current state lives under a
// per-staff key, and every write or clear is announced on a matching
// pub/sub channel so other devices react without polling.
type Channel struct {
	client *pkgredis.Client
	log    *logger.Logger
}

// New builds the Redis-backed cart channel.
func New(client *pkgredis.Client, log *logger.Logger) (*Channel, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Channel{client: client, log: log}, nil
}

// Write stores the cart state and announces it.
func (c *Channel) Write(ctx context.Context, staffID string, cart types.Cart) error {
	payload, err := json.Marshal(envelope{Version: cart.Version, Cart: &cart})
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := c.client.Set(ctx, c.client.CartKey(staffID), payload, cartTTL); err != nil {
		return fmt.Errorf("storing cart mirror: %w", err)
	}
	if err := c.client.Publish(ctx, c.client.CartChannel(staffID), payload); err != nil {
		return fmt.Errorf("announcing cart update: %w", err)
	}
	return nil
}

// Delete removes the mirrored cart and announces a versioned tombstone, so
// other devices observe an explicit "empty" rather than a stale mirror.
func (c *Channel) Delete(ctx context.Context, staffID string, version int64) error {
	if err := c.client.Del(ctx, c.client.CartKey(staffID)); err != nil {
		return fmt.Errorf("deleting cart mirror: %w", err)
	}
	payload, err := json.Marshal(envelope{Cleared: true, Version: version})
	if err != nil {
		return fmt.Errorf("encoding tombstone: %w", err)
	}
	if err := c.client.Publish(ctx, c.client.CartChannel(staffID), payload); err != nil {
		return fmt.Errorf("announcing cart clear: %w", err)
	}
	return nil
}

// Subscribe listens for cart updates for one staff identity and feeds each
// decoded state to onChange. The returned stop function tears the
// subscription down and ends the delivery goroutine.
func (c *Channel) Subscribe(ctx context.Context, staffID string, onChange func(types.Cart)) (func(), error) {
	pubsub, err := c.client.Subscribe(ctx, c.client.CartChannel(staffID))
	if err != nil {
		return nil, fmt.Errorf("subscribing to cart channel: %w", err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			cart, ok := c.decode(ctx, msg.Payload)
			if !ok {
				continue
			}
			onChange(cart)
		}
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			c.log.Warn(context.Background(), fmt.Sprintf("closing cart subscription: %v", err))
		}
	}, nil
}

// Current reads the mirrored cart state, for devices joining mid-session.
func (c *Channel) Current(ctx context.Context, staffID string) (*types.Cart, error) {
	raw, err := c.client.Get(ctx, c.client.CartKey(staffID))
	if err != nil {
		if err == pkgredis.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cart mirror: %w", err)
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decoding cart mirror: %w", err)
	}
	if env.Cleared || env.Cart == nil {
		return nil, nil
	}
	return env.Cart, nil
}

func (c *Channel) decode(ctx context.Context, payload string) (types.Cart, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		c.log.Warn(ctx, fmt.Sprintf("dropping malformed cart update: %v", err))
		return types.Cart{}, false
	}
	if env.Cleared {
		return types.Cart{Version: env.Version}, true
	}
	if env.Cart == nil {
		return types.Cart{}, false
	}
	return *env.Cart, true
}
