// Package mqtt owns the lifecycle of the bridge's single MQTT broker
// connection.
//
// This package manages:
//   - Lazy connection on first publish (no connection at startup)
//   - An explicit state machine: Disconnected → Connecting → Connected
//   - Publishing with QoS 1 (at-least-once) and retain false
//   - Failure reset: any connect/publish failure drops the handle so the
//     next attempt starts clean
//
// # Lifecycle
//
// Unlike a long-lived bus client, the connection here follows the publish
// pipeline's discipline: EnsureConnected is called per attempt, bounded
// by the caller's context; there is no automatic reconnect or retry. The
// next triggering event gets a fresh, independent attempt.
//
// Broker settings are read through a SettingsSource on every connect
// attempt, so user edits take effect on the next connect without a
// restart. Each attempt uses a freshly generated client identifier to
// avoid session collisions with a prior identifier the broker may still
// hold.
//
// # Concurrency
//
// All methods are safe for concurrent use. The connect step is
// serialized internally: when several publish tasks observe Disconnected
// at once, exactly one opens the connection and the rest reuse it.
//
// # Usage
//
//	mgr := mqtt.NewManager(settingsSource)
//
//	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
//	defer cancel()
//	if err := mgr.EnsureConnected(ctx); err != nil {
//	    mgr.Reset()
//	    return err
//	}
//	err = mgr.Publish(ctx, "homekit/temp", []byte(`{"state":"21.5"}`))
package mqtt
