// package queue implements the ordered media queue and the per-entry
// download state machine.
//
// A Playlist owns an ordered collection of entries. Each entry drives its
// own preparation (extraction, download, caching, probing) through the
// extraction dispatcher and resolves a set of readiness futures when it
// finishes, so a playback consumer always has the next item ready with
// minimal latency. At most one download is ever in flight per entry;
// concurrent readiness requests register additional waiters on the same
// download.
package queue
