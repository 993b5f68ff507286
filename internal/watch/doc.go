// Package watch implements the watch capability. Each watch target runs its
// own event loop: filesystem changes matching the target's globs are
// debounced, the target's task sequence is re-run, and live-reload listeners
// are notified after a successful sequence.
package watch
