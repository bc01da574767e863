package event

import "time"

// Kind classifies an event in the log.
type Kind string

// Event kinds delivered by the external event source.
const (
	KindCharacteristicUpdated Kind = "characteristic_updated"
	KindReachabilityChanged   Kind = "reachability_changed"
	KindAccessoryAdded        Kind = "accessory_added"
	KindAccessoryRemoved      Kind = "accessory_removed"
	KindHomeUpdated           Kind = "home_updated"
	KindRoomUpdated           Kind = "room_updated"
	KindServiceUpdated        Kind = "service_updated"
	KindActionExecuted        Kind = "action_executed"
)

// Event kinds produced by the publish pipeline. Outcome events are
// appended to the log exactly like externally sourced events, so the log
// is the single user-visible record of publish results.
const (
	KindPublishSuccess Kind = "publish_success"
	KindPublishFailure Kind = "publish_failure"
	KindConnectFailure Kind = "connect_failure"
	KindTimeout        Kind = "timeout"
	KindInvalidPayload Kind = "invalid_payload"

	// KindEncodingFailure is part of the log vocabulary for parity with
	// the pipeline's error model, but Go strings are always encodable so
	// the pipeline never emits it in practice.
	KindEncodingFailure Kind = "encoding_failure"
)

// Event is an immutable record of one observed state change or one
// publish outcome. Optional fields are empty strings when absent.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Kind           Kind      `json:"kind"`
	Accessory      string    `json:"accessory,omitempty"`
	Room           string    `json:"room,omitempty"`
	Service        string    `json:"service,omitempty"`
	Characteristic string    `json:"characteristic,omitempty"`
	Value          string    `json:"value,omitempty"`
}
