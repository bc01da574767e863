package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Connection constants.
const (
	// qosAtLeastOnce is the only QoS level the bridge publishes with.
	qosAtLeastOnce byte = 1

	// maxPayloadSize caps outgoing payloads (1MB). Prevents resource
	// exhaustion and aligns with typical broker limits.
	maxPayloadSize = 1 << 20

	// defaultDialTimeout bounds the underlying TCP/handshake dial. The
	// caller's context is the authoritative bound; this is a backstop so
	// an abandoned attempt does not dial forever.
	defaultDialTimeout = 10 * time.Second

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// disconnectQuiesce is the time allowed for pending operations on a
	// graceful disconnect, in milliseconds.
	disconnectQuiesce = 1000

	// reconnectDelay is the fixed pause between disconnect and the next
	// connect attempt during Reconnect.
	reconnectDelay = 500 * time.Millisecond

	// clientIDPrefix prefixes the per-attempt client identifier.
	clientIDPrefix = "hkbridge"
)

// Settings is the broker configuration read on every connect attempt.
type Settings struct {
	Host     string
	Port     int
	Username string
	Password string
}

// buildClientOptions creates paho MQTT options from broker settings.
//
// Each call generates a fresh client identifier so a new attempt never
// collides with a session the broker may still hold for a previous one.
// Auto-reconnect and connect-retry are disabled: the connection lifecycle
// is owned explicitly by the Manager.
func buildClientOptions(settings Settings) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", settings.Host, settings.Port))
	opts.SetClientID(fmt.Sprintf("%s-%s", clientIDPrefix, uuid.NewString()))

	if settings.Username != "" {
		opts.SetUsername(settings.Username)
		opts.SetPassword(settings.Password)
	}

	// Start fresh on every connect; no persistent session on the broker.
	opts.SetCleanSession(true)

	// The Manager owns reconnection; paho must not race it.
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetConnectTimeout(defaultDialTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	return opts
}
