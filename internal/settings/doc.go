// Package settings is the persistence boundary for hkbridge.
//
// Storage is deliberately opaque: serialized blobs keyed by name in a
// single SQLite table. The bridge stores two blobs, the subscription
// list and the broker settings, loaded once at startup and written
// synchronously after every mutation.
//
// Typed helpers (Subscriptions, Broker) wrap the raw key-value
// repository with JSON encoding so callers never touch blobs directly.
package settings
