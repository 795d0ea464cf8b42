package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/config"
	"github.com/khaledhikmat/yawn-go/service/data"
	"github.com/khaledhikmat/yawn-go/service/landmark"
	"github.com/khaledhikmat/yawn-go/service/storage"
	"github.com/khaledhikmat/yawn-go/yawn"
)

type fakeCamera struct {
	mu      sync.Mutex
	openErr error
	readErr error
	opened  bool
	closed  bool
	reads   int
}

func (c *fakeCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened = c.openErr == nil
	return c.openErr
}

func (c *fakeCamera) Read(_ context.Context) (model.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.readErr != nil {
		return model.Frame{}, c.readErr
	}
	return model.Frame{
		Seq:       int64(c.reads),
		Data:      []byte{0xff, 0xd8, 0xff, 0xd9},
		Width:     640,
		Height:    480,
		Timestamp: time.Now(),
	}, nil
}

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeCamera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// concurrencyProbe records how many detections ran at the same time.
type concurrencyProbe struct {
	inner     landmark.IService
	active    atomic.Int32
	maxActive atomic.Int32
	calls     atomic.Int32
}

func (p *concurrencyProbe) Detect(ctx context.Context, frame model.Frame) (yawn.MouthShape, bool, error) {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	p.calls.Add(1)
	for {
		m := p.maxActive.Load()
		if n <= m || p.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	return p.inner.Detect(ctx, frame)
}

// stuckLandmark ignores its context and answers an open mouth once released.
type stuckLandmark struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newStuckLandmark() *stuckLandmark {
	return &stuckLandmark{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *stuckLandmark) Detect(_ context.Context, _ model.Frame) (yawn.MouthShape, bool, error) {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return yawn.MouthWithGap(320, 300, 80, 80), true, nil
}

// partialFace answers with a face the landmark service cannot cut a mouth
// out of.
type partialFace struct{}

func (partialFace) Detect(_ context.Context, _ model.Frame) (yawn.MouthShape, bool, error) {
	mouth, err := yawn.MouthFromFace68(make([]yawn.LandmarkPoint, 5))
	return mouth, true, err
}

type fakeWebhook struct {
	mu       sync.Mutex
	payloads []map[string]interface{}
	posted   chan struct{}
}

func newFakeWebhook() *fakeWebhook {
	return &fakeWebhook{posted: make(chan struct{}, 100)}
}

func (w *fakeWebhook) Post(_ context.Context, payload map[string]interface{}) error {
	w.mu.Lock()
	w.payloads = append(w.payloads, payload)
	w.mu.Unlock()
	select {
	case w.posted <- struct{}{}:
	default:
	}
	return nil
}

func (w *fakeWebhook) all() []map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]map[string]interface{}{}, w.payloads...)
}

type fakeWeb struct {
	mu      sync.Mutex
	events  []interface{}
	state   interface{}
	clients int
}

func (w *fakeWeb) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (w *fakeWeb) Broadcast(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, v)
	return nil
}

func (w *fakeWeb) SetState(v interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = v
}

func (w *fakeWeb) Clients() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clients
}

func (w *fakeWeb) snapshot() (interface{}, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, len(w.events)
}

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	root := t.TempDir()
	settings := config.Defaults()
	settings.PollPeriodMs = 2
	settings.DetectTimeoutMs = 500
	settings.SessionHeartbeatSecs = 60
	settings.DataFolder = filepath.Join(root, "data")
	settings.RecordingsFolder = filepath.Join(root, "recordings")
	settings.LogsFolder = filepath.Join(root, "logs")
	return settings
}

func testServices(settings config.Settings, cam *fakeCamera, lm landmark.IService) ServicesFactory {
	cfgSvc := config.NewHardCoded(settings)
	return ServicesFactory{
		CfgSvc:      cfgSvc,
		DataSvc:     data.NewFilesDB(cfgSvc),
		CameraSvc:   cam,
		LandmarkSvc: lm,
		StorageSvc:  storage.NewLocal(cfgSvc),
		WebhookSvc:  newFakeWebhook(),
	}
}

// streams drains the error and stats streams the way a mode processor does.
type streams struct {
	errorStream chan interface{}
	statsStream chan interface{}

	mu    sync.Mutex
	errs  []interface{}
	stats []interface{}
}

func newStreams(t *testing.T) *streams {
	t.Helper()
	s := &streams{
		errorStream: make(chan interface{}),
		statsStream: make(chan interface{}),
	}

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	go func() {
		for {
			select {
			case <-done:
				return
			case e := <-s.errorStream:
				s.mu.Lock()
				s.errs = append(s.errs, e)
				s.mu.Unlock()
			case st := <-s.statsStream:
				s.mu.Lock()
				s.stats = append(s.stats, st)
				s.mu.Unlock()
			}
		}
	}()
	return s
}

func (s *streams) errors() []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interface{}{}, s.errs...)
}

func (s *streams) pollerStats() (model.PollerStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.stats) - 1; i >= 0; i-- {
		if ps, ok := s.stats[i].(model.PollerStats); ok {
			return ps, true
		}
	}
	return model.PollerStats{}, false
}

func (s *streams) sinkStats(name string) (model.SinkStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.stats) - 1; i >= 0; i-- {
		if ss, ok := s.stats[i].(model.SinkStats); ok && ss.Name == name {
			return ss, true
		}
	}
	return model.SinkStats{}, false
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// collect reads sink events until stop returns true.
func collect(t *testing.T, in chan EventData, stop func(EventData) bool) []EventData {
	t.Helper()
	timer := time.NewTimer(5 * time.Second)
	defer timer.Stop()

	var out []EventData
	for {
		select {
		case ed := <-in:
			out = append(out, ed)
			if stop(ed) {
				return out
			}
		case <-timer.C:
			t.Fatalf("timed out after %d events: %+v", len(out), out)
			return out
		}
	}
}

// startPoll runs Poll in the background and returns its cancel function and
// result channel.
func startPoll(svcs ServicesFactory, detector *yawn.Detector, s *streams, sinks ...chan EventData) (context.CancelFunc, chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- Poll(ctx, svcs, "test-session", detector, s.errorStream, s.statsStream, sinks)
	}()
	return cancel, result
}

func waitPoll(t *testing.T, result chan error) error {
	t.Helper()
	select {
	case err := <-result:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("poller did not return")
		return nil
	}
}
