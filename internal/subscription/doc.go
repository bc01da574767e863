// Package subscription holds the user-defined publish rules and the
// matching logic that connects incoming events to them.
//
// A subscription binds an (accessory, characteristic) pair to an MQTT
// topic suffix and a payload template. Matching is exact, case-sensitive
// tuple equality; several subscriptions may target the same pair.
//
// The Store keeps all subscriptions in memory and writes the full set to
// the persistence repository after every mutation. Like the event log, it
// is owned by the engine's single-writer goroutine and is not safe for
// concurrent use.
package subscription
