package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/hkbridge/internal/event"
	"github.com/nerrad567/hkbridge/internal/settings"
	"github.com/nerrad567/hkbridge/internal/subscription"
)

// fakeBroker records connection-manager calls without any network.
type fakeBroker struct {
	mu         sync.Mutex
	connectErr error
	publishErr error
	connects   int
	resets     int
	published  []publishCall
}

type publishCall struct {
	topic   string
	payload string
}

func (b *fakeBroker) EnsureConnected(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	return b.connectErr
}

func (b *fakeBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, publishCall{topic: topic, payload: string(payload)})
	return nil
}

func (b *fakeBroker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets++
}

func (b *fakeBroker) stats() (connects, resets int, published []publishCall) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connects, b.resets, append([]publishCall(nil), b.published...)
}

// memoryRepo is an in-memory subscription.Repository.
type memoryRepo struct {
	mu    sync.Mutex
	saved []subscription.Subscription
}

func (r *memoryRepo) LoadSubscriptions(_ context.Context) ([]subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved, nil
}

func (r *memoryRepo) SaveSubscriptions(_ context.Context, subs []subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = subs
	return nil
}

// memorySettings is an in-memory SettingsStore.
type memorySettings struct {
	mu    sync.Mutex
	s     settings.BrokerSettings
	saves int
}

func (m *memorySettings) Load(_ context.Context) (settings.BrokerSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == (settings.BrokerSettings{}) {
		return settings.DefaultBrokerSettings(), nil
	}
	return m.s, nil
}

func (m *memorySettings) Save(_ context.Context, s settings.BrokerSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	m.saves++
	return nil
}

// newTestEngine starts an engine over in-memory collaborators.
func newTestEngine(t *testing.T, broker Broker) *Engine {
	t.Helper()

	engine, err := NewEngine(Options{
		LogCapacity: 100,
		Store:       subscription.NewStore(&memoryRepo{}),
		Broker:      broker,
		Settings:    &memorySettings{},
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	engine.Start()
	t.Cleanup(engine.Close)
	return engine
}

// addTestSubscription adds a Sensor1/Temperature subscription.
func addTestSubscription(t *testing.T, e *Engine, topicSuffix string) *subscription.Subscription {
	t.Helper()
	sub := subscription.New("Sensor1", "Temperature")
	sub.TopicSuffix = topicSuffix
	sub.Template = `{"state":"{{value}}"}`
	if err := e.AddSubscription(sub); err != nil {
		t.Fatalf("AddSubscription() error = %v", err)
	}
	return sub
}

// temperatureEvent builds a characteristic update for Sensor1/Temperature.
func temperatureEvent(value string) event.Event {
	return event.Event{
		Timestamp:      time.Now().UTC(),
		Kind:           event.KindCharacteristicUpdated,
		Accessory:      "Sensor1",
		Characteristic: "Temperature",
		Value:          value,
	}
}

// waitForEvent polls the log until an event of the given kind appears.
func waitForEvent(t *testing.T, e *Engine, kind event.Kind) event.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range e.Events() {
			if ev.Kind == kind {
				return ev
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s event appeared within deadline; log: %+v", kind, e.Events())
	return event.Event{}
}

func TestPublishSuccess(t *testing.T) {
	broker := &fakeBroker{}
	engine := newTestEngine(t, broker)
	addTestSubscription(t, engine, "temp")

	engine.HandleEvent(temperatureEvent("21.5"))

	waitForEvent(t, engine, event.KindPublishSuccess)

	_, resets, published := broker.stats()
	if len(published) != 1 {
		t.Fatalf("published %d messages, want 1", len(published))
	}
	if published[0].topic != "homekit/temp" {
		t.Errorf("topic = %q, want %q", published[0].topic, "homekit/temp")
	}
	if published[0].payload != `{"state":"21.5"}` {
		t.Errorf("payload = %q, want %q", published[0].payload, `{"state":"21.5"}`)
	}
	if resets != 0 {
		t.Errorf("resets = %d, want 0", resets)
	}

	subs := engine.Subscriptions()
	if len(subs) != 1 || subs[0].MatchCount != 1 {
		t.Errorf("MatchCount = %d, want 1", subs[0].MatchCount)
	}
	if subs[0].LastMatch == nil {
		t.Error("LastMatch = nil, want event timestamp")
	}
}

func TestInvalidPayloadSkipsNetwork(t *testing.T) {
	broker := &fakeBroker{}
	engine := newTestEngine(t, broker)
	addTestSubscription(t, engine, "temp")

	// An unescaped quote breaks the JSON after substitution.
	engine.HandleEvent(temperatureEvent(`21"5`))

	ev := waitForEvent(t, engine, event.KindInvalidPayload)
	if ev.Value != `{"state":"21"5"}` {
		t.Errorf("offending text = %q, want %q", ev.Value, `{"state":"21"5"}`)
	}

	connects, resets, published := broker.stats()
	if connects != 0 || len(published) != 0 {
		t.Errorf("network activity: connects = %d, publishes = %d, want 0/0", connects, len(published))
	}
	if resets != 0 {
		t.Errorf("resets = %d, want 0 (validation failure must not touch connection state)", resets)
	}

	// The match is recorded before rendering, so it still counts.
	subs := engine.Subscriptions()
	if subs[0].MatchCount != 1 {
		t.Errorf("MatchCount = %d, want 1", subs[0].MatchCount)
	}
}

func TestConnectFailureResetsConnection(t *testing.T) {
	broker := &fakeBroker{connectErr: errors.New("broker refused")}
	engine := newTestEngine(t, broker)
	addTestSubscription(t, engine, "temp")

	engine.HandleEvent(temperatureEvent("21.5"))

	waitForEvent(t, engine, event.KindConnectFailure)

	_, resets, published := broker.stats()
	if resets != 1 {
		t.Errorf("resets = %d, want 1", resets)
	}
	if len(published) != 0 {
		t.Errorf("published %d messages, want 0", len(published))
	}
}

func TestConnectTimeout(t *testing.T) {
	broker := &fakeBroker{
		connectErr: fmt.Errorf("connect: %w", context.DeadlineExceeded),
	}
	engine := newTestEngine(t, broker)
	addTestSubscription(t, engine, "temp")

	engine.HandleEvent(temperatureEvent("21.5"))

	waitForEvent(t, engine, event.KindTimeout)

	_, resets, _ := broker.stats()
	if resets != 1 {
		t.Errorf("resets = %d, want 1", resets)
	}
}

func TestPublishFailureResetsConnection(t *testing.T) {
	broker := &fakeBroker{publishErr: errors.New("broker rejected")}
	engine := newTestEngine(t, broker)
	addTestSubscription(t, engine, "temp")

	engine.HandleEvent(temperatureEvent("21.5"))

	waitForEvent(t, engine, event.KindPublishFailure)

	connects, resets, _ := broker.stats()
	if connects != 1 {
		t.Errorf("connects = %d, want 1", connects)
	}
	if resets != 1 {
		t.Errorf("resets = %d, want 1", resets)
	}
}

func TestEmptyTopicSuffixMatchesButNeverPublishes(t *testing.T) {
	broker := &fakeBroker{}
	engine := newTestEngine(t, broker)
	addTestSubscription(t, engine, "")

	engine.HandleEvent(temperatureEvent("21.5"))

	// Events() round-trips through the command queue, so the ingest
	// command has completed by the time it returns.
	events := engine.Events()
	if len(events) != 1 {
		t.Fatalf("log has %d events, want 1 (just the source event)", len(events))
	}

	subs := engine.Subscriptions()
	if subs[0].MatchCount != 1 {
		t.Errorf("MatchCount = %d, want 1", subs[0].MatchCount)
	}

	connects, _, published := broker.stats()
	if connects != 0 || len(published) != 0 {
		t.Errorf("network activity for suffix-less subscription: %d/%d", connects, len(published))
	}
}

func TestNonQualifyingEventsIgnored(t *testing.T) {
	broker := &fakeBroker{}
	engine := newTestEngine(t, broker)
	addTestSubscription(t, engine, "temp")

	engine.HandleEvent(event.Event{
		Kind:      event.KindReachabilityChanged,
		Accessory: "Sensor1",
		Value:     "true",
	})
	engine.HandleEvent(event.Event{
		Kind:           event.KindCharacteristicUpdated,
		Accessory:      "Sensor1",
		Characteristic: "Temperature",
		// no value
	})
	engine.HandleEvent(event.Event{
		Kind:           event.KindCharacteristicUpdated,
		Characteristic: "Temperature",
		Value:          "21.5",
		// no accessory
	})

	if got := len(engine.Events()); got != 3 {
		t.Fatalf("log has %d events, want 3", got)
	}

	subs := engine.Subscriptions()
	if subs[0].MatchCount != 0 {
		t.Errorf("MatchCount = %d, want 0", subs[0].MatchCount)
	}
}

func TestMultipleSubscriptionsSamePair(t *testing.T) {
	broker := &fakeBroker{}
	engine := newTestEngine(t, broker)
	addTestSubscription(t, engine, "temp/a")
	addTestSubscription(t, engine, "temp/b")

	engine.HandleEvent(temperatureEvent("19"))

	// Both subscriptions publish independently.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, _, published := broker.stats(); len(published) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, _, published := broker.stats()
	if len(published) != 2 {
		t.Fatalf("published %d messages, want 2", len(published))
	}
	topics := map[string]bool{}
	for _, p := range published {
		topics[p.topic] = true
	}
	if !topics["homekit/temp/a"] || !topics["homekit/temp/b"] {
		t.Errorf("topics = %v, want homekit/temp/a and homekit/temp/b", topics)
	}
}

func TestPromoteEvent(t *testing.T) {
	engine := newTestEngine(t, &fakeBroker{})

	sub, err := engine.PromoteEvent(temperatureEvent("21.5"))
	if err != nil {
		t.Fatalf("PromoteEvent() error = %v", err)
	}
	if sub.Accessory != "Sensor1" || sub.Characteristic != "Temperature" {
		t.Errorf("promoted pair = (%q, %q)", sub.Accessory, sub.Characteristic)
	}
	if sub.TopicSuffix != "" {
		t.Errorf("TopicSuffix = %q, want empty until the user sets one", sub.TopicSuffix)
	}
	if sub.Template != subscription.DefaultTemplate {
		t.Errorf("Template = %q, want default", sub.Template)
	}

	if got := len(engine.Subscriptions()); got != 1 {
		t.Errorf("store has %d subscriptions, want 1", got)
	}
}

func TestPromoteEventNotPromotable(t *testing.T) {
	engine := newTestEngine(t, &fakeBroker{})

	_, err := engine.PromoteEvent(event.Event{Kind: event.KindHomeUpdated})
	if !errors.Is(err, ErrNotPromotable) {
		t.Errorf("PromoteEvent() error = %v, want ErrNotPromotable", err)
	}
}

func TestSetBrokerSettings(t *testing.T) {
	broker := &fakeBroker{}
	engine := newTestEngine(t, broker)
	addTestSubscription(t, engine, "temp")

	edited := settings.BrokerSettings{
		Host:        "broker.local",
		Port:        1883,
		TopicPrefix: "house",
	}
	if err := engine.SetBrokerSettings(edited); err != nil {
		t.Fatalf("SetBrokerSettings() error = %v", err)
	}
	if got := engine.BrokerSettings(); got != edited {
		t.Errorf("BrokerSettings() = %+v, want %+v", got, edited)
	}

	// The next publish uses the new prefix.
	engine.HandleEvent(temperatureEvent("21.5"))
	waitForEvent(t, engine, event.KindPublishSuccess)

	_, _, published := broker.stats()
	if len(published) != 1 || published[0].topic != "house/temp" {
		t.Errorf("published = %+v, want topic house/temp", published)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	engine := newTestEngine(t, &fakeBroker{})
	engine.Close()
	engine.Close()

	if err := engine.AddSubscription(subscription.New("A", "C")); !errors.Is(err, ErrClosed) {
		t.Errorf("AddSubscription() after Close error = %v, want ErrClosed", err)
	}
}

func TestNewEngineValidation(t *testing.T) {
	store := subscription.NewStore(&memoryRepo{})

	if _, err := NewEngine(Options{Broker: &fakeBroker{}, Settings: &memorySettings{}}); err == nil {
		t.Error("NewEngine() without store should fail")
	}
	if _, err := NewEngine(Options{Store: store, Settings: &memorySettings{}}); err == nil {
		t.Error("NewEngine() without broker should fail")
	}
	if _, err := NewEngine(Options{Store: store, Broker: &fakeBroker{}}); err == nil {
		t.Error("NewEngine() without settings should fail")
	}
}
