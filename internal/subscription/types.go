package subscription

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTemplate is the payload template assigned to newly created
// subscriptions. It wraps the raw value in a minimal JSON object.
const DefaultTemplate = `{"value":"{{value}}"}`

// Subscription binds an accessory/characteristic pair to an MQTT topic
// suffix and a payload template.
//
// ID uniqueness is a hard invariant enforced by the Store. The
// accessory/characteristic pair is not required to be unique: multiple
// subscriptions may watch the same pair with different topics or
// templates.
type Subscription struct {
	ID             string     `json:"id"`
	Accessory      string     `json:"accessory"`
	Characteristic string     `json:"characteristic"`
	TopicSuffix    string     `json:"topic_suffix"`
	Template       string     `json:"template"`
	LastMatch      *time.Time `json:"last_match,omitempty"`
	MatchCount     int        `json:"match_count"`
}

// New creates a subscription for the given pair with a fresh ID, the
// default template, and no topic suffix. A subscription without a topic
// suffix is matched and counted but never published.
func New(accessory, characteristic string) *Subscription {
	return &Subscription{
		ID:             uuid.NewString(),
		Accessory:      accessory,
		Characteristic: characteristic,
		Template:       DefaultTemplate,
	}
}

// Clone returns an independent copy. The LastMatch pointer is duplicated
// so the copy can cross goroutine boundaries safely.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	cpy := *s
	if s.LastMatch != nil {
		ts := *s.LastMatch
		cpy.LastMatch = &ts
	}
	return &cpy
}
