// Package livereload signals browsers and other listeners after successful
// rebuilds. It serves two client flavors on /livereload: the LiveReload
// protocol (version 7) over websocket for the browser extension and
// livereload.js, and a server-sent events stream for the bundled
// /livereload.js snippet. Reload events can also be published to NATS.
package livereload

import "context"

// Notifier signals listeners with the files that changed.
type Notifier interface {
	Notify(ctx context.Context, changed []string) error
}
