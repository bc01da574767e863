// Package event defines the bridge's event record and the bounded
// in-memory event log.
//
// Events come from two producers: the external HomeKit event source
// (device state changes, reachability, structural updates) and the publish
// pipeline, which records the outcome of every publish attempt as an event
// in the same log. Events are immutable once appended.
//
// The Log is not safe for concurrent use. It is owned by the bridge
// engine's single-writer goroutine; all appends, including those
// originating inside concurrent publish tasks, are funneled through the
// engine (see internal/bridge).
package event
