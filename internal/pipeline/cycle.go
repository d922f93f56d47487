package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"habari/internal/feed"
	"habari/internal/history"
	"habari/internal/logging"
	"habari/internal/playlist"
	"habari/internal/render"
	"habari/internal/services"
)

// ErrEmptyCycle reports a cycle in which no segment rendered.
var ErrEmptyCycle = errors.New("no segments rendered")

// CycleReport summarizes one cycle.
type CycleReport struct {
	ID               string
	Items            int
	Rendered         int
	Failed           int
	Published        bool
	Empty            bool
	PlaylistDuration time.Duration
	Err              error
	Started          time.Time
	Finished         time.Time
}

// Status maps the report onto a persisted cycle status.
func (r CycleReport) Status() history.Status {
	switch {
	case r.Published:
		return history.StatusPublished
	case r.Empty:
		return history.StatusEmpty
	case errors.Is(r.Err, context.Canceled):
		return history.StatusInterrupted
	default:
		return history.StatusFailed
	}
}

// RunCycle performs one fetch, render, publish, cleanup pass. The returned
// error is non-nil only when the context was cancelled; every other failure is
// carried in CycleReport.Err.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{ID: o.newID(), Started: o.now()}
	ctx = services.WithCycleID(ctx, report.ID)
	logger := logging.WithContext(ctx, o.logger)

	o.record(logger, "begin cycle", func() error {
		return o.recorder.BeginCycle(ctx, report.ID, report.Started)
	})

	items := o.stages.News.Fetch(ctx)
	report.Items = len(items)
	logger.Info("cycle started",
		logging.String(logging.FieldEventType, "cycle_started"),
		logging.Int("items", len(items)),
	)

	manifest := playlist.NewManifest()
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			report.Err = err
			break
		}
		seg, err := o.processItem(ctx, i, item)
		if err != nil {
			if ctx.Err() != nil {
				report.Err = ctx.Err()
				break
			}
			report.Failed++
			continue
		}
		manifest.Add(seg)
		report.Rendered++
		if err := o.sleep(ctx, o.cfg.SegmentCooldown()); err != nil {
			report.Err = err
			break
		}
	}
	report.PlaylistDuration = manifest.Duration()

	if report.Err == nil {
		o.publishManifest(ctx, logger, manifest, &report)
	}

	// Every push has returned by now, so nothing still reads these files.
	o.clean(o.cfg.Paths.WorkDir, o.cfg.ManifestPath(), logger)

	report.Finished = o.now()
	o.finish(ctx, logger, report)
	if errors.Is(report.Err, context.Canceled) || errors.Is(report.Err, context.DeadlineExceeded) {
		return report, report.Err
	}
	return report, nil
}

func (o *Orchestrator) publishManifest(ctx context.Context, logger *slog.Logger, manifest *playlist.Manifest, report *CycleReport) {
	path := o.cfg.ManifestPath()
	if err := playlist.Write(path, manifest); err != nil {
		if errors.Is(err, playlist.ErrEmpty) {
			report.Empty = true
			report.Err = ErrEmptyCycle
			o.emptyStreak++
			logging.WarnWithContext(logger, "cycle produced no segments; skipping publish", "cycle_empty",
				logging.Int("items", report.Items),
				logging.Int("failed", report.Failed),
				logging.Duration("backoff", o.cfg.EmptyCycleBackoff()),
				logging.String(logging.FieldErrorHint, "check feed reachability, synthesis engines, and ffmpeg"),
				logging.String(logging.FieldImpact, "nothing streamed this cycle"),
			)
			if o.emptyStreak == 1 {
				o.notify(logger, o.notifier.NotifyEmptyCycle(ctx, report.Items, o.cfg.EmptyCycleBackoff()))
			}
			return
		}
		report.Err = err
		logging.ErrorWithContext(logger, "manifest write failed", "manifest_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "check work_dir permissions and free space"),
		)
		o.notify(logger, o.notifier.NotifyError(ctx, err, "manifest"))
		return
	}
	o.emptyStreak = 0

	pubCtx := services.WithStage(ctx, "publish")
	logging.WithContext(pubCtx, o.logger).Info("manifest written",
		logging.String(logging.FieldEventType, "manifest_written"),
		logging.String("path", path),
		logging.Int("segments", manifest.Len()),
		logging.Duration("playlist_duration", report.PlaylistDuration),
	)
	if _, err := o.stages.Publisher.Publish(pubCtx, path, report.PlaylistDuration); err != nil {
		report.Err = err
		if ctx.Err() == nil {
			o.notify(logger, o.notifier.NotifyError(ctx, err, "publish"))
		}
		return
	}
	report.Published = true
	o.notify(logger, o.notifier.NotifyCyclePublished(ctx, manifest.Len(), report.PlaylistDuration))
}

// processItem runs one item through narration, synthesis, image download
// and rendering. Any stage failure drops the item.
func (o *Orchestrator) processItem(ctx context.Context, index int, item feed.Item) (render.Segment, error) {
	ctx = services.WithSegment(ctx, index+1)
	started := o.now()
	seg := history.Segment{Index: index, Title: item.Title, Source: item.Source}
	if id, ok := services.CycleIDFromContext(ctx); ok {
		seg.CycleID = id
	}

	fail := func(stage string, err error) (render.Segment, error) {
		// A cancelled cycle is not the item's fault; nothing is recorded.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return render.Segment{}, ctxErr
		}
		stageCtx := services.WithStage(ctx, stage)
		logging.WarnWithContext(logging.WithContext(stageCtx, o.logger), "segment dropped", "segment_failed",
			logging.String("title", item.Title),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, stageHint(stage)),
			logging.String(logging.FieldImpact, "item omitted from this cycle's playlist"),
		)
		seg.Status = history.SegmentDropped
		seg.Stage = stage
		seg.Error = err.Error()
		o.recordSegment(ctx, seg)
		return render.Segment{}, fmt.Errorf("%s: %w", stage, err)
	}

	text := o.stages.Narrator.Narration(services.WithStage(ctx, "translate"), item)
	if err := ctx.Err(); err != nil {
		return render.Segment{}, err
	}

	audio, err := o.stages.Speech.Synthesize(services.WithStage(ctx, "tts"), text, index)
	if err != nil {
		return fail("tts", err)
	}
	seg.Engine = audio.Engine

	image, err := o.stages.Images.Fetch(services.WithStage(ctx, "image"), item.ImageURL, index)
	if err != nil {
		return fail("image", err)
	}

	rendered, err := o.stages.Renderer.Render(services.WithStage(ctx, "render"), index, image.Path, audio.Path)
	if err != nil {
		return fail("render", err)
	}

	seg.Status = history.SegmentRendered
	seg.Duration = rendered.Duration
	seg.Bytes = rendered.Bytes
	o.recordSegment(ctx, seg)
	logging.WithContext(ctx, o.logger).Info("segment rendered",
		logging.String(logging.FieldEventType, "segment_rendered"),
		logging.String("title", item.Title),
		logging.String("engine", audio.Engine),
		logging.Duration("duration", rendered.Duration),
		logging.Duration("elapsed", o.now().Sub(started)),
	)
	return rendered, nil
}

func stageHint(stage string) string {
	switch stage {
	case "tts":
		return "check edge-tts installation and network access to the speech services"
	case "image":
		return "image host unreachable or returned a non-image; the item will be retried next cycle"
	case "render":
		return "inspect the ffmpeg stderr tail logged by the render component"
	default:
		return "see error for details"
	}
}

func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, report CycleReport) {
	status := report.Status()
	errText := ""
	if report.Err != nil {
		errText = report.Err.Error()
	}
	// The cycle row is closed even when ctx was cancelled.
	recordCtx := context.WithoutCancel(ctx)
	o.record(logger, "finish cycle", func() error {
		return o.recorder.FinishCycle(recordCtx, history.Cycle{
			ID:               report.ID,
			Status:           status,
			StartedAt:        report.Started,
			FinishedAt:       report.Finished,
			Items:            report.Items,
			Rendered:         report.Rendered,
			Failed:           report.Failed,
			PlaylistDuration: report.PlaylistDuration,
			Error:            errText,
		})
	})

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "cycle_finished"),
		logging.String("status", string(status)),
		logging.Int("items", report.Items),
		logging.Int("rendered", report.Rendered),
		logging.Int("failed", report.Failed),
		logging.Duration("playlist_duration", report.PlaylistDuration),
		logging.Duration("elapsed", report.Finished.Sub(report.Started)),
	}
	if report.Err != nil && !report.Empty {
		attrs = append(attrs, logging.Error(report.Err))
	}
	logger.Info("cycle finished", logging.Args(attrs...)...)
}

func (o *Orchestrator) recordSegment(ctx context.Context, seg history.Segment) {
	recordCtx := context.WithoutCancel(ctx)
	o.record(logging.WithContext(ctx, o.logger), "record segment", func() error {
		return o.recorder.RecordSegment(recordCtx, seg)
	})
}

func (o *Orchestrator) record(logger *slog.Logger, op string, fn func() error) {
	if o.recorder == nil {
		return
	}
	if err := fn(); err != nil {
		logging.WarnWithContext(logger, "history write failed", "history_write_failed",
			logging.String("operation", op),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions; broadcasting continues"),
			logging.String(logging.FieldImpact, "habari history will miss this record"),
		)
	}
}

func (o *Orchestrator) notify(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	logger.Debug("notification failed",
		logging.String(logging.FieldEventType, "notification_failed"),
		logging.Error(err),
	)
}
