package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/build"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/retry"
)

type recordingPublisher struct {
	subject string
	data    []byte
	err     error
	hadDL   bool
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	_, p.hadDL = ctx.Deadline()
	p.subject = subject
	p.data = data
	return p.err
}

func TestNotifyPublishesSummary(t *testing.T) {
	pub := &recordingPublisher{}
	n := New(pub, "docsite.build")

	r := &build.Report{
		Outcome:  metrics.BuildOutcomeWarning,
		Versions: []build.VersionReport{{Version: build.CurrentVersion, Pages: 3, OutputDir: "build/docs"}},
	}
	require.NoError(t, n.Notify(context.Background(), r))
	require.Equal(t, "docsite.build", pub.subject)
	require.True(t, pub.hadDL)

	var got build.Summary
	require.NoError(t, json.Unmarshal(pub.data, &got))
	require.Equal(t, "warning", got.Outcome)
	require.Equal(t, 3, got.Pages)
}

func TestNotifyCanceledContextStillPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, New(pub, "s").Notify(ctx, &build.Report{}))
	require.NotEmpty(t, pub.data)
}

func TestObserverSwallowsErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("down")}
	n := New(pub, "s")

	require.Error(t, n.Notify(context.Background(), &build.Report{}))
	require.NotPanics(t, func() {
		n.Observer().OnBuildComplete(context.Background(), &build.Report{})
	})
	require.Equal(t, "s", pub.subject)
}

func TestConnectFailure(t *testing.T) {
	policy := retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 1)
	_, err := Connect(context.Background(), "nats://127.0.0.1:1", "s", policy)
	require.Error(t, err)
}

func TestCloseNil(t *testing.T) {
	var n *Notifier
	require.NotPanics(t, n.Close)
	require.NotPanics(t, New(&recordingPublisher{}, "s").Close)
}
