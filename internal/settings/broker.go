package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// BrokerSettings is the user-edited MQTT broker configuration.
//
// It is a singleton blob: read by the connection manager on every
// connect attempt (not cached per connection), so edits take effect on
// the next connect. TopicPrefix is prepended to every subscription's
// topic suffix when publishing.
type BrokerSettings struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	TopicPrefix string `json:"topic_prefix"`
}

// DefaultBrokerSettings returns the out-of-box broker configuration.
func DefaultBrokerSettings() BrokerSettings {
	return BrokerSettings{
		Host:        "localhost",
		Port:        1883,
		TopicPrefix: "homekit",
	}
}

// Broker provides typed access to the persisted broker settings blob.
type Broker struct {
	repo Repository
}

// NewBroker creates a typed view over repo.
func NewBroker(repo Repository) *Broker {
	return &Broker{repo: repo}
}

// Load returns the persisted broker settings, or the defaults if none
// have been saved yet.
func (b *Broker) Load(ctx context.Context) (BrokerSettings, error) {
	blob, err := b.repo.Get(ctx, KeyBroker)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DefaultBrokerSettings(), nil
		}
		return BrokerSettings{}, err
	}

	var s BrokerSettings
	if err := json.Unmarshal(blob, &s); err != nil {
		return BrokerSettings{}, fmt.Errorf("decoding broker settings: %w", err)
	}
	return s, nil
}

// Save persists the broker settings.
func (b *Broker) Save(ctx context.Context, s BrokerSettings) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding broker settings: %w", err)
	}
	return b.repo.Set(ctx, KeyBroker, blob)
}
