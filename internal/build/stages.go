package build

import (
	"context"
	"log/slog"
	"time"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// Stage is a strongly-typed identifier for a build stage.
type Stage string

// Canonical stages in execution order. The first five run once per docs
// version; the rest run once for the current docs.
const (
	StageDiscover           Stage = "discover"
	StageReadAll            Stage = "read_all"
	StageValidateLinks      Stage = "validate_links"
	StageBuildNav           Stage = "build_nav"
	StageRenderAll          Stage = "render_all"
	StageCopyAssets         Stage = "copy_assets"
	StageProcessImages      Stage = "process_images"
	StageWriteSearchIndex   Stage = "write_search_index"
	StageWriteIndexRedirect Stage = "write_index_redirect"
)

// Stages lists every stage in order.
var Stages = []Stage{
	StageDiscover, StageReadAll, StageValidateLinks, StageBuildNav, StageRenderAll,
	StageCopyAssets, StageProcessImages, StageWriteSearchIndex, StageWriteIndexRedirect,
}

// stageFunc executes one stage. A true warn result marks the stage as
// finished with advisory findings.
type stageFunc func(ctx context.Context) (warn bool, err error)

// runStage executes fn, recording timing and result. Errors that are not
// already classified are wrapped as build failures of the stage.
func (b *Builder) runStage(ctx context.Context, r *Report, stage Stage, version string, fn stageFunc) error {
	if err := ctx.Err(); err != nil {
		b.recorder.IncStageResult(string(stage), metrics.ResultCanceled)
		return err
	}

	t0 := time.Now()
	warn, err := fn(ctx)
	dur := time.Since(t0)
	r.StageDurations[stage] += dur
	b.recorder.ObserveStageDuration(string(stage), dur)

	result := metrics.ResultSuccess
	switch {
	case err != nil && isCanceled(err):
		result = metrics.ResultCanceled
	case err != nil:
		result = metrics.ResultFatal
	case warn:
		result = metrics.ResultWarning
	}
	b.recorder.IncStageResult(string(stage), result)
	b.observer.OnStageComplete(stage, version, dur, result)

	slog.Debug("Stage complete",
		logfields.Stage(string(stage)),
		logfields.Version(version),
		logfields.DurationMS(float64(dur.Microseconds())/1000),
		slog.String("result", string(result)))

	if err == nil {
		return nil
	}
	if result == metrics.ResultCanceled {
		return err
	}
	if _, ok := derrors.As(err); ok {
		return err
	}
	return derrors.BuildFailed(string(stage), err)
}
