package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"habari/internal/config"
	"habari/internal/feed"
	"habari/internal/history"
	"habari/internal/imagefetch"
	"habari/internal/logging"
	"habari/internal/notifications"
	"habari/internal/publish"
	"habari/internal/render"
	"habari/internal/services"
	"habari/internal/staging"
	"habari/internal/tts"
)

// NewsSource yields the items of one cycle.
type NewsSource interface {
	Fetch(ctx context.Context) []feed.Item
}

// Narrator turns an item into narration text. It never fails.
type Narrator interface {
	Narration(ctx context.Context, item feed.Item) string
}

// Synthesizer produces the narration audio for one segment index.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, index int) (tts.Asset, error)
}

// ImageSource downloads the illustrative image for one segment index.
type ImageSource interface {
	Fetch(ctx context.Context, url string, index int) (imagefetch.Asset, error)
}

// SegmentRenderer composes image and audio into a segment.
type SegmentRenderer interface {
	Render(ctx context.Context, index int, image, audio string) (render.Segment, error)
}

// Publisher pushes a manifest to the live endpoint and blocks until done.
type Publisher interface {
	Publish(ctx context.Context, manifest string, playlist time.Duration) (publish.Outcome, error)
}

// Recorder persists cycle outcomes. *history.Store implements it.
type Recorder interface {
	BeginCycle(ctx context.Context, id string, started time.Time) error
	RecordSegment(ctx context.Context, seg history.Segment) error
	FinishCycle(ctx context.Context, c history.Cycle) error
}

// Stages bundles the per-cycle collaborators.
type Stages struct {
	News      NewsSource
	Narrator  Narrator
	Speech    Synthesizer
	Images    ImageSource
	Renderer  SegmentRenderer
	Publisher Publisher
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// CleanFunc sweeps transient files once a cycle is over.
type CleanFunc func(workDir, manifest string, logger *slog.Logger) staging.CleanResult

// Orchestrator runs broadcast cycles. It is not safe for concurrent use.
type Orchestrator struct {
	cfg      *config.Config
	stages   Stages
	recorder Recorder
	notifier notifications.Service
	logger   *slog.Logger

	sleep SleepFunc
	now   func() time.Time
	newID func() string
	clean CleanFunc

	emptyStreak int
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder persists every cycle through r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithNotifier sends cycle events through n.
func WithNotifier(n notifications.Service) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSleep replaces the wait used for cooldowns and back-off.
func WithSleep(fn SleepFunc) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// WithClock replaces the wall clock.
func WithClock(fn func() time.Time) Option {
	return func(o *Orchestrator) { o.now = fn }
}

// WithIDGenerator replaces the cycle id source.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// WithCleaner replaces the work directory sweep.
func WithCleaner(fn CleanFunc) Option {
	return func(o *Orchestrator) { o.clean = fn }
}

// New validates the configuration and assembles an Orchestrator. A missing
// stream key is a configuration error and no stage is touched.
func New(cfg *config.Config, stages Stages, opts ...Option) (*Orchestrator, error) {
	if err := CheckPreconditions(cfg); err != nil {
		return nil, err
	}
	if stages.News == nil || stages.Narrator == nil || stages.Speech == nil ||
		stages.Images == nil || stages.Renderer == nil || stages.Publisher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "all stages are required", nil)
	}

	o := &Orchestrator{
		cfg:      cfg,
		stages:   stages,
		notifier: nopNotifier{},
		sleep:    sleepContext,
		now:      time.Now,
		newID:    uuid.NewString,
		clean:    staging.CleanCycle,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "pipeline")
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	return o, nil
}

// CheckPreconditions reports the fatal startup conditions: a missing
// configuration or stream key.
func CheckPreconditions(cfg *config.Config) error {
	if cfg == nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "init", "configuration is required", nil)
	}
	if !cfg.HasStreamKey() {
		return services.Wrap(services.ErrConfiguration, "pipeline", "init",
			"stream key missing; set "+cfg.Stream.KeyEnv, nil)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nopNotifier struct{}

func (nopNotifier) NotifyCyclePublished(context.Context, int, time.Duration) error { return nil }
func (nopNotifier) NotifyEmptyCycle(context.Context, int, time.Duration) error     { return nil }
func (nopNotifier) NotifyError(context.Context, error, string) error               { return nil }
func (nopNotifier) TestNotification(context.Context) error                         { return nil }
