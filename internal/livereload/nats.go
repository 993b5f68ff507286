package livereload

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// ReloadEvent is the JSON payload published on the notify subject.
type ReloadEvent struct {
	Files []string  `json:"files"`
	Time  time.Time `json:"time"`
}

type publishFunc func(subject string, data []byte) error

// NATSNotifier publishes reload events to a NATS subject.
type NATSNotifier struct {
	conn    *nats.Conn
	publish publishFunc
	subject string
	now     func() time.Time
}

// NewNATSNotifier connects to url and publishes on subject.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("assetbuilder"), nats.Timeout(2*time.Second))
	if err != nil {
		return nil, ferrors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS reload notifier connected", "url", url, "subject", subject)
	n := newNATSNotifier(conn.Publish, subject)
	n.conn = conn
	return n, nil
}

func newNATSNotifier(publish publishFunc, subject string) *NATSNotifier {
	return &NATSNotifier{publish: publish, subject: subject, now: time.Now}
}

func (n *NATSNotifier) Notify(_ context.Context, changed []string) error {
	data, err := json.Marshal(ReloadEvent{Files: changed, Time: n.now().UTC()})
	if err != nil {
		return ferrors.InternalError("failed to marshal reload event").WithCause(err).Build()
	}
	if err := n.publish(n.subject, data); err != nil {
		return ferrors.NetworkError("failed to publish reload event").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}
	slog.Debug("Published reload event", "subject", n.subject, "files", len(changed))
	return nil
}

// Close drains the connection.
func (n *NATSNotifier) Close() {
	if n.conn == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}
