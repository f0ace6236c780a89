// Package notify publishes build summaries to NATS so that other services
// (deploy hooks, chat bots, dashboards) can react to finished builds.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/retry"
)

const publishTimeout = 5 * time.Second

// Publisher sends one message to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Notifier publishes a summary of every finished build.
type Notifier struct {
	pub     Publisher
	subject string
	close   func()
}

// New returns a Notifier publishing through pub.
func New(pub Publisher, subject string) *Notifier {
	return &Notifier{pub: pub, subject: subject, close: func() {}}
}

// Connect dials the NATS server at url, retrying according to policy.
func Connect(ctx context.Context, url, subject string, policy retry.Policy) (*Notifier, error) {
	var conn *nats.Conn
	err := policy.Do(ctx, "nats connect", func(context.Context) error {
		var err error
		conn, err = nats.Connect(url, nats.Name("docsite"), nats.Timeout(publishTimeout))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS build notifications enabled", "url", url, "subject", subject)
	n := New(&natsPublisher{conn: conn, js: js}, subject)
	n.close = conn.Close
	return n, nil
}

// Close releases the underlying connection.
func (n *Notifier) Close() {
	if n != nil {
		n.close()
	}
}

// Notify publishes the summary of r.
func (n *Notifier) Notify(ctx context.Context, r *build.Report) error {
	data, err := r.SummaryJSON()
	if err != nil {
		return fmt.Errorf("encode build summary: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := n.pub.Publish(ctx, n.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", n.subject, err)
	}
	return nil
}

// Observer adapts the notifier to the build pipeline. Publish failures
// are logged and never fail the build.
func (n *Notifier) Observer() build.Observer {
	return build.BuildCompleteFunc(func(ctx context.Context, r *build.Report) {
		if err := n.Notify(ctx, r); err != nil {
			slog.Warn("Build notification failed", logfields.Error(err))
		}
	})
}

// natsPublisher prefers JetStream so a stream bound to the subject gets an
// acknowledged write, and falls back to core NATS when no stream listens.
type natsPublisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := p.js.Publish(ctx, subject, data)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrNoStreamResponse) && !errors.Is(err, nats.ErrNoResponders) {
		return err
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	return p.conn.FlushWithContext(ctx)
}
