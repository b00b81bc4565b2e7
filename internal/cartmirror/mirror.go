package cartmirror

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rdelrosario/sari-pos/pkg/config"
	"github.com/rdelrosario/sari-pos/pkg/logger"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

// RemoteChannel is the shared cart medium other devices observe.
type RemoteChannel interface {
	Write(ctx context.Context, staffID string, cart types.Cart) error
	Delete(ctx context.Context, staffID string, version int64) error
	Subscribe(ctx context.Context, staffID string, onChange func(types.Cart)) (func(), error)
}

// Subscriber receives cart states adopted from other devices.
type Subscriber func(cart types.Cart)

// Mirror keeps one staff identity's in-progress cart synchronized across
// devices. Local edits are coalesced into a debounced push; remote updates
// are adopted only when strictly newer than the local version, which is what
// keeps a device from re-ingesting its own push as if it were a remote edit.
//
// Mirroring is best effort. Push failures log and move on; checkout always
// operates on the local state regardless of mirror health.
type Mirror struct {
	channel RemoteChannel
	log     *logger.Logger
	cfg     config.MirrorConfig
	staffID string

	mu          sync.Mutex
	cart        types.Cart
	timer       *time.Timer
	subscribers map[int]Subscriber
	nextSubID   int
	unsubscribe func()
	stopped     bool
}

// NewMirror builds the live cart mirror for one staff identity.
func NewMirror(channel RemoteChannel, staffID string, cfg config.MirrorConfig, log *logger.Logger) (*Mirror, error) {
	if channel == nil {
		return nil, fmt.Errorf("remote channel required")
	}
	if staffID == "" {
		return nil, fmt.Errorf("staff id required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 300 * time.Millisecond
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 500 * time.Millisecond
	}
	return &Mirror{
		channel:     channel,
		log:         log,
		cfg:         cfg,
		staffID:     staffID,
		cart:        types.Cart{StaffID: staffID},
		subscribers: map[int]Subscriber{},
	}, nil
}

// Start begins observing remote updates for this identity.
func (m *Mirror) Start(ctx context.Context) error {
	unsubscribe, err := m.channel.Subscribe(ctx, m.staffID, m.onRemoteUpdate)
	if err != nil {
		return fmt.Errorf("subscribing to cart channel: %w", err)
	}
	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	return nil
}

// Stop cancels any scheduled push and detaches from the remote channel.
func (m *Mirror) Stop() {
	m.mu.Lock()
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Subscribe registers an observer for remotely adopted cart states and
// returns its handle.
func (m *Mirror) Subscribe(fn Subscriber) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSubID++
	m.subscribers[m.nextSubID] = fn
	return m.nextSubID
}

// Unsubscribe removes a previously registered observer.
func (m *Mirror) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, id)
}

// Cart returns a snapshot of the current cart state.
func (m *Mirror) Cart() types.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.Clone()
}

// ApplyLocalEdit adopts a locally edited cart, bumps its version past
// everything seen so far, and schedules the debounced push. Rapid edits
// coalesce: each reschedules the same timer, and the eventual push carries
// whatever state is current when it fires.
func (m *Mirror) ApplyLocalEdit(cart types.Cart) types.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart.StaffID = m.staffID
	cart.Version = m.cart.Version + 1
	cart.UpdatedAt = time.Now().UTC()
	m.cart = cart.Clone()

	m.schedulePushLocked()
	return m.cart.Clone()
}

// Mutate applies an in-place edit to the current cart under the same
// versioning and debounce rules as ApplyLocalEdit.
func (m *Mirror) Mutate(edit func(cart *types.Cart)) types.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cart.Clone()
	edit(&next)
	next.StaffID = m.staffID
	next.Version = m.cart.Version + 1
	next.UpdatedAt = time.Now().UTC()
	m.cart = next

	m.schedulePushLocked()
	return m.cart.Clone()
}

// Clear empties the cart and deletes the remote mirror outright, so other
// devices observe an unambiguous "empty" instead of an empty-list push.
// The local version keeps advancing so a late echo of the old cart state
// is still discarded.
func (m *Mirror) Clear(ctx context.Context) error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.cart = types.Cart{StaffID: m.staffID, Version: m.cart.Version + 1, UpdatedAt: time.Now().UTC()}
	version := m.cart.Version
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.PushTimeout)
	defer cancel()
	if err := m.channel.Delete(ctx, m.staffID, version); err != nil {
		m.log.Warn(ctx, fmt.Sprintf("deleting remote cart mirror: %v", err))
	}
	return nil
}

// onRemoteUpdate adopts a cart state written by another device. Updates at
// or below the local version are echoes or stale and are discarded without
// scheduling a push, so nothing observed remotely is ever re-sent.
func (m *Mirror) onRemoteUpdate(remote types.Cart) {
	m.mu.Lock()
	if m.stopped || remote.Version <= m.cart.Version {
		m.mu.Unlock()
		return
	}
	remote.StaffID = m.staffID
	m.cart = remote.Clone()
	snapshot := m.cart.Clone()
	subscribers := make([]Subscriber, 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subscribers = append(subscribers, fn)
	}
	m.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}

// schedulePushLocked arms or rearms the debounce timer. Callers hold m.mu.
func (m *Mirror) schedulePushLocked() {
	if m.stopped {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.cfg.DebounceWindow, m.push)
}

// push writes the current coalesced state to the remote channel.
func (m *Mirror) push() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	snapshot := m.cart.Clone()
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PushTimeout)
	defer cancel()
	if err := m.channel.Write(ctx, m.staffID, snapshot); err != nil {
		m.log.Warn(m.log.WithStaffID(ctx, m.staffID), fmt.Sprintf("cart mirror push failed: %v", err))
	}
}
