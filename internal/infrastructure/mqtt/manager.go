package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// SettingsSource returns the current broker settings. It is consulted on
// every connect attempt so user edits apply on the next connect.
type SettingsSource func(ctx context.Context) (Settings, error)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager owns the bridge's single broker connection.
//
// The shared handle is a mutable resource touched by many concurrent
// publish tasks. Connect attempts are serialized behind an internal
// mutex, giving a single-connect guarantee: tasks that observe
// Disconnected concurrently do not open duplicate connections; the
// first one connects, the rest reuse the live handle.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Manager struct {
	source SettingsSource
	logger Logger

	// connectMu serializes the connect step. Held for the full duration
	// of a connect attempt; waiters re-check the live handle on entry.
	connectMu sync.Mutex

	// mu guards state and client, which always change together.
	mu     sync.RWMutex
	state  State
	client pahomqtt.Client
}

// NewManager creates a connection manager. No connection is opened until
// the first EnsureConnected call.
func NewManager(source SettingsSource) *Manager {
	return &Manager{
		source: source,
		logger: noopLogger{},
	}
}

// SetLogger sets a logger for connection lifecycle events.
func (m *Manager) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// EnsureConnected returns once a live connection handle exists.
//
// If already connected it returns immediately. Otherwise it transitions
// to Connecting, reads the current broker settings, and opens a
// connection with a freshly generated client identifier. On failure the
// state is left Disconnected and a ConnectFailed (or Timeout, if ctx
// expired) error is returned.
//
// The caller's context bounds the whole attempt. On ctx expiry the paho
// token is abandoned; the underlying handshake may still complete in the
// background and is torn down best-effort.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	if m.live() {
		return nil
	}

	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	// Another task may have connected while we waited on the mutex.
	if m.live() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: connect: %w", ErrTimeout, err)
	}

	m.setConn(StateConnecting, nil)

	settings, err := m.source(ctx)
	if err != nil {
		m.setConn(StateDisconnected, nil)
		return fmt.Errorf("%w: loading broker settings: %w", ErrConnectFailed, err)
	}

	client := pahomqtt.NewClient(buildClientOptions(settings))
	token := client.Connect()

	select {
	case <-ctx.Done():
		// Abandon the attempt. Force-close so a late handshake success
		// does not leave a stray session registered at the broker.
		client.Disconnect(0)
		m.setConn(StateDisconnected, nil)
		return fmt.Errorf("%w: connect: %w", ErrTimeout, ctx.Err())
	case <-token.Done():
		if err := token.Error(); err != nil {
			m.setConn(StateDisconnected, nil)
			return fmt.Errorf("%w: %w", ErrConnectFailed, err)
		}
	}

	m.setConn(StateConnected, client)
	return nil
}

// Publish delivers payload to topic with QoS 1 (at-least-once) and
// retain false.
//
// A live handle is required: callers must have called EnsureConnected
// first. The caller's context bounds the wait for the broker's
// acknowledgment; on expiry the token is abandoned and ErrTimeout
// returned.
func (m *Manager) Publish(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes",
			ErrPublishFailed, len(payload), maxPayloadSize)
	}

	m.mu.RLock()
	state, client := m.state, m.client
	m.mu.RUnlock()

	if state != StateConnected || client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	token := client.Publish(topic, qosAtLeastOnce, false, payload)

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: publish to %s: %w", ErrTimeout, topic, ctx.Err())
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %w", ErrPublishFailed, err)
		}
	}

	return nil
}

// Disconnect gracefully closes the live handle, allowing a quiesce
// period for in-flight operations, then unconditionally transitions to
// Disconnected. Close failures are swallowed: from the caller's
// perspective disconnect always succeeds.
func (m *Manager) Disconnect() {
	m.drop(disconnectQuiesce)
}

// Reset forces the manager to Disconnected immediately, dropping any
// partially open handle with no quiesce. Called by the publish pipeline
// after connect/publish failures so the next attempt starts clean.
func (m *Manager) Reset() {
	m.drop(0)
}

// Reconnect tears down the current connection, waits a fixed delay, and
// connects again. The delay is not synchronized against concurrent
// publish attempts: a publish task running EnsureConnected during the
// pause may connect first, which Reconnect then reuses.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.Disconnect()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: reconnect: %w", ErrTimeout, ctx.Err())
	case <-time.After(reconnectDelay):
	}

	return m.EnsureConnected(ctx)
}

// live reports whether a connected handle exists right now.
func (m *Manager) live() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected && m.client != nil && m.client.IsConnected()
}

// setConn updates state and handle together.
func (m *Manager) setConn(state State, client pahomqtt.Client) {
	m.mu.Lock()
	m.state = state
	m.client = client
	m.mu.Unlock()
}

// drop releases the handle (if any) and transitions to Disconnected.
func (m *Manager) drop(quiesceMs uint) {
	m.mu.Lock()
	client := m.client
	m.state = StateDisconnected
	m.client = nil
	m.mu.Unlock()

	if client != nil {
		client.Disconnect(quiesceMs)
	}
}
