package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// unreachableSource returns settings pointing at a port nothing listens on.
func unreachableSource(_ context.Context) (Settings, error) {
	return Settings{Host: "127.0.0.1", Port: 19999}, nil
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestInitialState(t *testing.T) {
	mgr := NewManager(unreachableSource)
	if got := mgr.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want StateDisconnected", got)
	}
}

func TestPublishNotConnected(t *testing.T) {
	mgr := NewManager(unreachableSource)

	err := mgr.Publish(context.Background(), "homekit/temp", []byte(`{}`))
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishEmptyTopic(t *testing.T) {
	mgr := NewManager(unreachableSource)

	err := mgr.Publish(context.Background(), "", []byte(`{}`))
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishOversizedPayload(t *testing.T) {
	mgr := NewManager(unreachableSource)

	payload := make([]byte, maxPayloadSize+1)
	err := mgr.Publish(context.Background(), "homekit/temp", payload)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestEnsureConnectedExpiredContext(t *testing.T) {
	mgr := NewManager(unreachableSource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mgr.EnsureConnected(ctx)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("EnsureConnected() error = %v, want ErrTimeout", err)
	}
	if got := mgr.State(); got != StateDisconnected {
		t.Errorf("State() after timeout = %v, want StateDisconnected", got)
	}
}

func TestEnsureConnectedSettingsError(t *testing.T) {
	sourceErr := errors.New("store unavailable")
	mgr := NewManager(func(_ context.Context) (Settings, error) {
		return Settings{}, sourceErr
	})

	err := mgr.EnsureConnected(context.Background())
	if !errors.Is(err, ErrConnectFailed) {
		t.Errorf("EnsureConnected() error = %v, want ErrConnectFailed", err)
	}
	if !errors.Is(err, sourceErr) {
		t.Errorf("EnsureConnected() error = %v, want wrapped source error", err)
	}
	if got := mgr.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want StateDisconnected", got)
	}
}

func TestEnsureConnectedUnreachableBroker(t *testing.T) {
	mgr := NewManager(unreachableSource)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := mgr.EnsureConnected(ctx)
	if err == nil {
		t.Fatal("EnsureConnected() = nil for unreachable broker, want error")
	}
	if !errors.Is(err, ErrConnectFailed) && !errors.Is(err, ErrTimeout) {
		t.Errorf("EnsureConnected() error = %v, want ErrConnectFailed or ErrTimeout", err)
	}
	if got := mgr.State(); got != StateDisconnected {
		t.Errorf("State() after failure = %v, want StateDisconnected", got)
	}
}

func TestResetFromDisconnected(t *testing.T) {
	mgr := NewManager(unreachableSource)

	// Reset with no handle held is a no-op that stays Disconnected.
	mgr.Reset()
	if got := mgr.State(); got != StateDisconnected {
		t.Errorf("State() after Reset = %v, want StateDisconnected", got)
	}
}

func TestDisconnectFromDisconnected(t *testing.T) {
	mgr := NewManager(unreachableSource)

	mgr.Disconnect()
	if got := mgr.State(); got != StateDisconnected {
		t.Errorf("State() after Disconnect = %v, want StateDisconnected", got)
	}
}

func TestBuildClientOptionsFreshClientID(t *testing.T) {
	settings := Settings{Host: "localhost", Port: 1883}

	a := buildClientOptions(settings)
	b := buildClientOptions(settings)

	if a.ClientID == b.ClientID {
		t.Errorf("client IDs not unique per attempt: %q", a.ClientID)
	}
	if !strings.HasPrefix(a.ClientID, clientIDPrefix) {
		t.Errorf("ClientID = %q, want prefix %q", a.ClientID, clientIDPrefix)
	}
}

func TestBuildClientOptionsCredentials(t *testing.T) {
	opts := buildClientOptions(Settings{
		Host:     "localhost",
		Port:     1883,
		Username: "bridge",
		Password: "secret",
	})

	if opts.Username != "bridge" || opts.Password != "secret" {
		t.Errorf("credentials = (%q, %q), want (bridge, secret)", opts.Username, opts.Password)
	}
}

func TestBuildClientOptionsBrokerURL(t *testing.T) {
	opts := buildClientOptions(Settings{Host: "broker.local", Port: 8883})

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers = %d entries, want 1", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://broker.local:8883" {
		t.Errorf("broker URL = %q, want %q", got, "tcp://broker.local:8883")
	}
}
