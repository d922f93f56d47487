package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"habari/internal/config"
	"habari/internal/feed"
	"habari/internal/history"
	"habari/internal/imagefetch"
	"habari/internal/publish"
	"habari/internal/render"
	"habari/internal/services"
	"habari/internal/staging"
	"habari/internal/testsupport"
	"habari/internal/toolexec"
	"habari/internal/tts"
)

type fakeNews struct {
	items []feed.Item
	calls int
}

func (f *fakeNews) Fetch(context.Context) []feed.Item {
	f.calls++
	return append([]feed.Item(nil), f.items...)
}

type fakeNarrator struct{}

func (fakeNarrator) Narration(_ context.Context, item feed.Item) string { return item.Title + "." }

type fakeSpeech struct {
	dir     string
	fail    map[int]bool
	onSpeak func(index int)
}

func (f *fakeSpeech) Synthesize(ctx context.Context, _ string, index int) (tts.Asset, error) {
	if f.onSpeak != nil {
		f.onSpeak(index)
		if err := ctx.Err(); err != nil {
			return tts.Asset{}, err
		}
	}
	if f.fail[index] {
		return tts.Asset{}, tts.ErrAllEnginesFailed
	}
	path := filepath.Join(f.dir, fmt.Sprintf("audio_%d.mp3", index))
	if err := os.WriteFile(path, make([]byte, 200), 0o644); err != nil {
		return tts.Asset{}, err
	}
	return tts.Asset{Path: path, Engine: "edge:sw-TZ-LughaNeural", Bytes: 200}, nil
}

type fakeImages struct{ dir string }

func (f *fakeImages) Fetch(_ context.Context, _ string, index int) (imagefetch.Asset, error) {
	path := filepath.Join(f.dir, fmt.Sprintf("image_%d.jpg", index))
	if err := os.WriteFile(path, make([]byte, 64), 0o644); err != nil {
		return imagefetch.Asset{}, err
	}
	return imagefetch.Asset{Path: path, Bytes: 64, ContentType: "image/jpeg"}, nil
}

type fakeRenderer struct {
	dir  string
	fail map[int]bool
}

func (f *fakeRenderer) Render(_ context.Context, index int, _, _ string) (render.Segment, error) {
	if f.fail[index] {
		return render.Segment{}, services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "exit status 1", nil)
	}
	path := filepath.Join(f.dir, fmt.Sprintf("segment_%d.mp4", index))
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		return render.Segment{}, err
	}
	return render.Segment{Index: index, Path: path, Duration: 5 * time.Second, Bytes: 2048}, nil
}

type fakePublisher struct {
	calls     int
	manifests []string
	err       error
	onPublish func(manifest string)
}

func (f *fakePublisher) Publish(_ context.Context, manifest string, playlist time.Duration) (publish.Outcome, error) {
	f.calls++
	data, _ := os.ReadFile(manifest)
	f.manifests = append(f.manifests, string(data))
	if f.onPublish != nil {
		f.onPublish(manifest)
	}
	return publish.Outcome{Elapsed: playlist}, f.err
}

type fakeNotifier struct {
	published, empty, errors int
}

func (f *fakeNotifier) NotifyCyclePublished(context.Context, int, time.Duration) error {
	f.published++
	return nil
}

func (f *fakeNotifier) NotifyEmptyCycle(context.Context, int, time.Duration) error {
	f.empty++
	return nil
}

func (f *fakeNotifier) NotifyError(context.Context, error, string) error {
	f.errors++
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

type harness struct {
	cfg       *config.Config
	news      *fakeNews
	speech    *fakeSpeech
	renderer  *fakeRenderer
	publisher *fakePublisher
	notifier  *fakeNotifier
	sleeps    []time.Duration
}

func newHarness(t *testing.T, items int) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		cfg:       cfg,
		news:      &fakeNews{},
		speech:    &fakeSpeech{dir: cfg.Paths.WorkDir, fail: map[int]bool{}},
		renderer:  &fakeRenderer{dir: cfg.Paths.WorkDir, fail: map[int]bool{}},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
	}
	for i := 0; i < items; i++ {
		h.news.items = append(h.news.items, feed.Item{
			Title:    fmt.Sprintf("Item %d", i+1),
			Summary:  "summary",
			ImageURL: fmt.Sprintf("https://img.example/%d.jpg", i),
		})
	}
	return h
}

func (h *harness) stages() Stages {
	return Stages{
		News:      h.news,
		Narrator:  fakeNarrator{},
		Speech:    h.speech,
		Images:    &fakeImages{dir: h.cfg.Paths.WorkDir},
		Renderer:  h.renderer,
		Publisher: h.publisher,
	}
}

func (h *harness) orchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	base := []Option{
		WithNotifier(h.notifier),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return ctx.Err()
		}),
	}
	o, err := New(h.cfg, h.stages(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestMissingStreamKeyFailsBeforeAnyStage(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStreamKey(""))
	runner := toolexec.RunnerFunc(func(context.Context, string, []string) (toolexec.Result, error) {
		t.Fatal("no subprocess may run without a stream key")
		return toolexec.Result{}, nil
	})

	_, err := Build(cfg, runner, slog.Default())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	h := newHarness(t, 2)
	h.cfg.Stream.Key = ""
	if _, err := New(h.cfg, h.stages()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error from New, got %v", err)
	}
	if h.news.calls != 0 || h.publisher.calls != 0 {
		t.Fatalf("stages touched: fetch=%d publish=%d", h.news.calls, h.publisher.calls)
	}
}

func TestManifestKeepsFetchOrderAndDropsFailedItems(t *testing.T) {
	h := newHarness(t, 4)
	h.renderer.fail[1] = true
	h.renderer.fail[2] = true

	report, err := h.orchestrator(t).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if h.publisher.calls != 1 {
		t.Fatalf("expected one publish, got %d", h.publisher.calls)
	}
	want := fmt.Sprintf("file '%s'\nfile '%s'\n",
		filepath.Join(h.cfg.Paths.WorkDir, "segment_0.mp4"),
		filepath.Join(h.cfg.Paths.WorkDir, "segment_3.mp4"))
	if h.publisher.manifests[0] != want {
		t.Fatalf("unexpected manifest:\n%s\nwant:\n%s", h.publisher.manifests[0], want)
	}
	if report.Rendered != 2 || report.Failed != 2 || !report.Published {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.PlaylistDuration != 10*time.Second {
		t.Fatalf("unexpected playlist duration %v", report.PlaylistDuration)
	}
	if h.notifier.published != 1 {
		t.Fatalf("expected published notification, got %d", h.notifier.published)
	}
}

func TestCooldownAfterEachRenderedSegment(t *testing.T) {
	h := newHarness(t, 3)
	h.speech.fail[1] = true

	if err := h.orchestrator(t).Run(context.Background(), RunOptions{Once: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []time.Duration{2 * time.Second, 2 * time.Second}
	if fmt.Sprint(h.sleeps) != fmt.Sprint(want) {
		t.Fatalf("sleeps = %v, want %v", h.sleeps, want)
	}
}

func TestEmptyCycleSkipsPublishAndWaitsBackoff(t *testing.T) {
	h := newHarness(t, 3)
	for i := 0; i < 3; i++ {
		h.speech.fail[i] = true
	}
	h.cfg.Workflow.EmptyCycleBackoff = 45

	stale := h.cfg.ManifestPath()
	if err := os.WriteFile(stale, []byte("file '/old.mp4'\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := h.orchestrator(t).Run(context.Background(), RunOptions{MaxCycles: 2}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.publisher.calls != 0 {
		t.Fatalf("publisher invoked %d times for empty cycles", h.publisher.calls)
	}
	if h.news.calls != 2 {
		t.Fatalf("expected re-fetch after back-off, got %d fetches", h.news.calls)
	}
	if len(h.sleeps) != 1 || h.sleeps[0] != 45*time.Second {
		t.Fatalf("expected exactly one 45s back-off, got %v", h.sleeps)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale manifest should be removed, stat err = %v", err)
	}
	if h.notifier.empty != 1 {
		t.Fatalf("expected one empty-cycle notification per streak, got %d", h.notifier.empty)
	}
}

func TestNoItemsIsAnEmptyCycle(t *testing.T) {
	h := newHarness(t, 0)
	report, err := h.orchestrator(t).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !report.Empty || !errors.Is(report.Err, ErrEmptyCycle) || report.Status() != history.StatusEmpty {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestCleanupRunsOnlyAfterPublisherReturns(t *testing.T) {
	h := newHarness(t, 2)
	var events []string
	h.publisher.onPublish = func(manifest string) {
		events = append(events, "publish")
		for _, name := range []string{"segment_0.mp4", "segment_1.mp4", "audio_0.mp3", "image_1.jpg"} {
			if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, name)); err != nil {
				t.Errorf("%s missing while publishing: %v", name, err)
			}
		}
		if _, err := os.Stat(manifest); err != nil {
			t.Errorf("manifest missing while publishing: %v", err)
		}
	}
	cleaner := func(dir, manifest string, logger *slog.Logger) staging.CleanResult {
		events = append(events, "clean")
		return staging.CleanCycle(dir, manifest, logger)
	}

	if _, err := h.orchestrator(t, WithCleaner(cleaner)).RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if strings.Join(events, ",") != "publish,clean" {
		t.Fatalf("unexpected ordering: %v", events)
	}
	left, err := staging.ListTransient(h.cfg.Paths.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Fatalf("transient files left after cycle: %+v", left)
	}
	if _, err := os.Stat(h.cfg.ManifestPath()); !os.IsNotExist(err) {
		t.Fatalf("manifest should be removed after cycle, stat err = %v", err)
	}
}

func TestPublishFailureIsRecordedAndBacksOff(t *testing.T) {
	h := newHarness(t, 1)
	h.publisher.err = services.Wrap(services.ErrExternalTool, "toolexec", "ffmpeg", "exit status 1", nil)
	h.cfg.Workflow.PublishFailureBackoff = 7
	store := testsupport.MustOpenHistory(t, h.cfg)
	ids := []string{"cycle-1", "cycle-2"}
	next := 0
	o := h.orchestrator(t, WithRecorder(store), WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	if err := o.Run(context.Background(), RunOptions{MaxCycles: 2}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.publisher.calls != 2 {
		t.Fatalf("expected a publish attempt per cycle, got %d", h.publisher.calls)
	}
	want := []time.Duration{2 * time.Second, 7 * time.Second, 2 * time.Second}
	if fmt.Sprint(h.sleeps) != fmt.Sprint(want) {
		t.Fatalf("sleeps = %v, want %v", h.sleeps, want)
	}
	if h.notifier.errors != 2 {
		t.Fatalf("expected error notifications, got %d", h.notifier.errors)
	}

	cycle, err := store.GetCycle(context.Background(), "cycle-1")
	if err != nil || cycle == nil {
		t.Fatalf("GetCycle: %v %v", cycle, err)
	}
	if cycle.Status != history.StatusFailed || cycle.Rendered != 1 || cycle.Error == "" {
		t.Fatalf("unexpected cycle record: %+v", cycle)
	}
	segs, err := store.Segments(context.Background(), "cycle-1")
	if err != nil || len(segs) != 1 || segs[0].Status != history.SegmentRendered {
		t.Fatalf("unexpected segments: %+v %v", segs, err)
	}
}

func TestDroppedSegmentRecordsFailingStage(t *testing.T) {
	h := newHarness(t, 2)
	h.speech.fail[0] = true
	store := testsupport.MustOpenHistory(t, h.cfg)
	o := h.orchestrator(t, WithRecorder(store), WithIDGenerator(func() string { return "c" }))

	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	segs, err := store.Segments(context.Background(), "c")
	if err != nil || len(segs) != 2 {
		t.Fatalf("Segments: %+v %v", segs, err)
	}
	if segs[0].Status != history.SegmentDropped || segs[0].Stage != "tts" {
		t.Fatalf("expected tts drop, got %+v", segs[0])
	}
	if segs[1].Status != history.SegmentRendered || segs[1].Engine == "" {
		t.Fatalf("expected rendered segment with engine, got %+v", segs[1])
	}
}

func TestConfigurationErrorStopsLoop(t *testing.T) {
	h := newHarness(t, 1)
	h.publisher.err = services.Wrap(services.ErrConfiguration, "toolexec", "ffmpeg", "binary not found", nil)

	err := h.orchestrator(t).Run(context.Background(), RunOptions{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if h.news.calls != 1 {
		t.Fatalf("loop should stop after the first cycle, fetched %d times", h.news.calls)
	}
}

func TestCancellationDuringBackoffStopsLoop(t *testing.T) {
	h := newHarness(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o := h.orchestrator(t, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	if err := o.Run(ctx, RunOptions{}); err != nil {
		t.Fatalf("Run returned %v on cancellation", err)
	}
	if h.news.calls != 1 {
		t.Fatalf("expected a single cycle, got %d", h.news.calls)
	}
}

func TestCancellationMidCycleSkipsPublishAndCleansUp(t *testing.T) {
	h := newHarness(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := testsupport.MustOpenHistory(t, h.cfg)
	o := h.orchestrator(t, WithRecorder(store), WithIDGenerator(func() string { return "x" }),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}))

	report, err := o.RunCycle(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if h.publisher.calls != 0 || report.Rendered != 1 {
		t.Fatalf("unexpected progress: publish=%d report=%+v", h.publisher.calls, report)
	}
	left, _ := staging.ListTransient(h.cfg.Paths.WorkDir)
	if len(left) != 0 {
		t.Fatalf("transient files left: %+v", left)
	}
	cycle, _ := store.GetCycle(context.Background(), "x")
	if cycle == nil || cycle.Status != history.StatusInterrupted {
		t.Fatalf("expected interrupted cycle, got %+v", cycle)
	}
}

func TestCancelledSpeechIsNotRecordedAsDropped(t *testing.T) {
	h := newHarness(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.speech.onSpeak = func(int) { cancel() }
	store := testsupport.MustOpenHistory(t, h.cfg)
	o := h.orchestrator(t, WithRecorder(store), WithIDGenerator(func() string { return "k" }))

	report, err := o.RunCycle(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if report.Failed != 0 || report.Rendered != 0 {
		t.Fatalf("cancelled item counted: %+v", report)
	}
	segs, err := store.Segments(context.Background(), "k")
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("cancelled item should leave no segment rows, got %+v", segs)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
