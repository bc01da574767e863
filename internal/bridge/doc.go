// Package bridge wires the event log, subscription store, and broker
// connection into the bridge's core control flow:
//
//	source event → log append → match → per match: render → validate →
//	ensure-connected → publish → outcome appended to the log
//
// # Single-writer discipline
//
// The Engine owns all mutable core state (event log, subscription store,
// broker settings). A single goroutine consumes a command channel and is
// the only context permitted to touch that state; mutations originating
// elsewhere (UI edits, publish-task outcomes) are handed off as
// commands, never applied directly. This is a message-passing handoff,
// not a lock.
//
// # Publish tasks
//
// Each matched subscription spawns an independent publish goroutine.
// Tasks are fire-and-forget: they do not block event ingestion, are not
// queued or rate-limited, and their outcomes interleave in the event log
// strictly by completion time. Under sustained high match rates this
// allows unbounded concurrent publish attempts; a bounded work queue
// would cap that but also change the observable interleaving, so the
// current design keeps the simple model.
//
// Every error inside a publish task is converted into a log entry at the
// task boundary; none escape to the ingestion path.
package bridge
