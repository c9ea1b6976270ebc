// package persist implements the serialization bridge: it encodes a
// playlist and its entries to versioned, order-preserving records and
// reconstructs them later, re-injecting the runtime dependencies that can
// never be part of the persisted payload.
//
// It also owns the on-disk session state (persisted queue file and
// now-playing marker) and an opt-in sqlite cache of extraction metadata.
package persist
