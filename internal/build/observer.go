package build

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// Observer receives callbacks around stage execution and build completion.
// Notification and build-log sinks hook in here without touching stage code.
type Observer interface {
	OnStageComplete(stage Stage, version string, d time.Duration, result metrics.ResultLabel)
	OnBuildComplete(ctx context.Context, report *Report)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageComplete(Stage, string, time.Duration, metrics.ResultLabel) {}
func (NoopObserver) OnBuildComplete(context.Context, *Report)                          {}

// Observers fans callbacks out to several observers in order.
type Observers []Observer

func (o Observers) OnStageComplete(stage Stage, version string, d time.Duration, result metrics.ResultLabel) {
	for _, obs := range o {
		obs.OnStageComplete(stage, version, d, result)
	}
}

func (o Observers) OnBuildComplete(ctx context.Context, report *Report) {
	for _, obs := range o {
		obs.OnBuildComplete(ctx, report)
	}
}

// BuildCompleteFunc adapts a function into an Observer that only listens for
// build completion.
type BuildCompleteFunc func(ctx context.Context, report *Report)

func (BuildCompleteFunc) OnStageComplete(Stage, string, time.Duration, metrics.ResultLabel) {}
func (f BuildCompleteFunc) OnBuildComplete(ctx context.Context, report *Report)             { f(ctx, report) }

// BuildLog persists build summaries.
type BuildLog interface {
	RecordBuild(ctx context.Context, finishedAt time.Time, payload []byte) error
}

// LogTo returns an Observer that appends every build summary to log.
// Failures are logged and otherwise ignored.
func LogTo(log BuildLog) Observer {
	return BuildCompleteFunc(func(ctx context.Context, r *Report) {
		payload, err := r.SummaryJSON()
		if err == nil {
			err = log.RecordBuild(context.WithoutCancel(ctx), r.End, payload)
		}
		if err != nil {
			slog.Warn("Failed to record build", logfields.Error(err))
		}
	})
}
