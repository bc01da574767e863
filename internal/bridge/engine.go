package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/hkbridge/internal/event"
	"github.com/nerrad567/hkbridge/internal/settings"
	"github.com/nerrad567/hkbridge/internal/subscription"
)

// commandBuffer absorbs event bursts from the source so ingestion never
// blocks it. The engine loop does no network I/O, so the buffer drains
// quickly.
const commandBuffer = 256

// Broker is the interface the engine needs from the connection manager.
type Broker interface {
	// EnsureConnected returns once a live connection exists, bounded by ctx.
	EnsureConnected(ctx context.Context) error

	// Publish delivers payload to topic with at-least-once semantics.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Reset forces the manager to Disconnected, dropping any handle.
	Reset()
}

// SettingsStore persists the broker settings blob.
// Implemented by settings.Broker.
type SettingsStore interface {
	Load(ctx context.Context) (settings.BrokerSettings, error)
	Save(ctx context.Context, s settings.BrokerSettings) error
}

// History receives a copy of every logged event for durable storage.
// Implemented by the InfluxDB mirror; may be nil.
type History interface {
	WriteEvent(ts time.Time, kind, accessory, room, service, characteristic, value string)
}

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures an Engine.
type Options struct {
	// LogCapacity is the event log capacity; values below 1 use
	// event.DefaultCapacity.
	LogCapacity int

	// Store is the subscription store (required).
	Store *subscription.Store

	// Broker is the connection manager (required).
	Broker Broker

	// Settings persists broker settings (required).
	Settings SettingsStore

	// History mirrors logged events to durable storage (optional).
	History History

	// Logger for engine diagnostics (optional).
	Logger Logger
}

// Engine is the single logical controller owning the event log, the
// subscription store, and the current broker settings.
//
// All methods are safe for concurrent use: they hand work to the
// engine's single-writer goroutine and wait for the result where a
// result is needed.
type Engine struct {
	log      *event.Log
	store    *subscription.Store
	broker   Broker
	settings SettingsStore
	history  History
	logger   Logger

	// current broker settings; written only on the engine goroutine,
	// read lock-free by publish tasks building topics and by the
	// connection manager's settings source.
	current atomic.Pointer[settings.BrokerSettings]

	cmds      chan func(ctx context.Context)
	stop      chan struct{}
	stopped   chan struct{}
	pipelines sync.WaitGroup
	closeOnce sync.Once
}

// NewEngine creates an engine. Call Load before Start.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("bridge: subscription store is required")
	}
	if opts.Broker == nil {
		return nil, fmt.Errorf("bridge: broker is required")
	}
	if opts.Settings == nil {
		return nil, fmt.Errorf("bridge: settings store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	e := &Engine{
		log:      event.NewLog(opts.LogCapacity),
		store:    opts.Store,
		broker:   opts.Broker,
		settings: opts.Settings,
		history:  opts.History,
		logger:   logger,
		cmds:     make(chan func(ctx context.Context), commandBuffer),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	defaults := settings.DefaultBrokerSettings()
	e.current.Store(&defaults)
	return e, nil
}

// Load reads persisted state: the subscription list and broker settings.
// Called once at startup, before Start.
func (e *Engine) Load(ctx context.Context) error {
	if err := e.store.Load(ctx); err != nil {
		return err
	}

	s, err := e.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading broker settings: %w", err)
	}
	e.current.Store(&s)

	e.logger.Info("bridge state loaded",
		"subscriptions", e.store.Len(),
		"broker", fmt.Sprintf("%s:%d", s.Host, s.Port),
	)
	return nil
}

// Start launches the single-writer goroutine.
func (e *Engine) Start() {
	go e.run()
}

// Close stops the engine and waits for in-flight publish tasks to
// finish. Outcomes of tasks completing after Close are dropped.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.stop)
		<-e.stopped
		e.pipelines.Wait()
	})
}

// run is the single-writer loop. Only this goroutine touches the event
// log, the subscription store, and the current-settings pointer.
func (e *Engine) run() {
	defer close(e.stopped)

	// Persistence writes triggered by commands use an engine-owned
	// context: a caller's cancellation must not abort a half-applied
	// mutation.
	ctx := context.Background()

	for {
		select {
		case <-e.stop:
			return
		case cmd := <-e.cmds:
			cmd(ctx)
		}
	}
}

// submit hands a command to the engine goroutine without waiting.
// Commands submitted after Close are dropped.
func (e *Engine) submit(cmd func(ctx context.Context)) {
	select {
	case e.cmds <- cmd:
	case <-e.stopped:
	}
}

// do hands a command to the engine goroutine and waits for completion.
func (e *Engine) do(fn func(ctx context.Context)) error {
	done := make(chan struct{})
	select {
	case e.cmds <- func(ctx context.Context) {
		fn(ctx)
		close(done)
	}:
	case <-e.stopped:
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-e.stopped:
		return ErrClosed
	}
}

// HandleEvent ingests one event from the external source (or a publish
// outcome). It never blocks the caller on network activity and returns
// before the event is processed.
func (e *Engine) HandleEvent(ev event.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	e.submit(func(ctx context.Context) {
		e.ingest(ctx, ev)
	})
}

// ingest appends the event, mirrors it, and triggers matching.
// Runs on the engine goroutine.
func (e *Engine) ingest(ctx context.Context, ev event.Event) {
	e.log.Append(ev)

	if e.history != nil {
		e.history.WriteEvent(ev.Timestamp, string(ev.Kind),
			ev.Accessory, ev.Room, ev.Service, ev.Characteristic, ev.Value)
	}

	// Only complete characteristic updates participate in matching.
	if ev.Kind != event.KindCharacteristicUpdated ||
		ev.Accessory == "" || ev.Characteristic == "" || ev.Value == "" {
		return
	}

	for _, sub := range e.store.Match(ev.Accessory, ev.Characteristic) {
		// The match is recorded (and persisted) before rendering, so a
		// publish that later fails validation still counts.
		if err := e.store.RecordMatch(ctx, sub.ID, ev.Timestamp); err != nil {
			e.logger.Error("recording match", "subscription", sub.ID, "error", err)
		}

		if sub.TopicSuffix == "" {
			continue
		}

		snapshot := *sub.Clone()
		e.pipelines.Add(1)
		go e.runPublish(snapshot, ev.Value)
	}
}

// Events returns a snapshot of the event log, oldest first.
func (e *Engine) Events() []event.Event {
	var snap []event.Event
	if err := e.do(func(context.Context) {
		snap = e.log.Snapshot()
	}); err != nil {
		return nil
	}
	return snap
}

// Subscriptions returns clones of all subscriptions.
func (e *Engine) Subscriptions() []*subscription.Subscription {
	var subs []*subscription.Subscription
	if err := e.do(func(context.Context) {
		subs = e.store.List()
	}); err != nil {
		return nil
	}
	return subs
}

// AddSubscription inserts a user-created subscription.
func (e *Engine) AddSubscription(sub *subscription.Subscription) error {
	var opErr error
	if err := e.do(func(ctx context.Context) {
		opErr = e.store.Add(ctx, sub)
	}); err != nil {
		return err
	}
	return opErr
}

// UpdateSubscription applies user edits (topic suffix, template).
func (e *Engine) UpdateSubscription(sub *subscription.Subscription) error {
	var opErr error
	if err := e.do(func(ctx context.Context) {
		opErr = e.store.Update(ctx, sub)
	}); err != nil {
		return err
	}
	return opErr
}

// RemoveSubscription deletes a subscription by ID.
func (e *Engine) RemoveSubscription(id string) error {
	var opErr error
	if err := e.do(func(ctx context.Context) {
		opErr = e.store.Remove(ctx, id)
	}); err != nil {
		return err
	}
	return opErr
}

// PromoteEvent creates a subscription from a logged characteristic
// update, targeting the event's accessory/characteristic pair. The new
// subscription starts with the default template and no topic suffix.
func (e *Engine) PromoteEvent(ev event.Event) (*subscription.Subscription, error) {
	if ev.Kind != event.KindCharacteristicUpdated || ev.Accessory == "" || ev.Characteristic == "" {
		return nil, ErrNotPromotable
	}

	sub := subscription.New(ev.Accessory, ev.Characteristic)
	if err := e.AddSubscription(sub); err != nil {
		return nil, err
	}
	return sub.Clone(), nil
}

// BrokerSettings returns the current broker settings. Lock-free; safe
// from any goroutine.
func (e *Engine) BrokerSettings() settings.BrokerSettings {
	return *e.current.Load()
}

// SetBrokerSettings persists new broker settings and makes them current.
// The live connection is untouched: edits take effect on the next
// connect attempt.
func (e *Engine) SetBrokerSettings(s settings.BrokerSettings) error {
	var opErr error
	if err := e.do(func(ctx context.Context) {
		if opErr = e.settings.Save(ctx, s); opErr != nil {
			return
		}
		e.current.Store(&s)
	}); err != nil {
		return err
	}
	return opErr
}
