package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/camera"
	"github.com/khaledhikmat/yawn-go/service/lgr"
	"github.com/khaledhikmat/yawn-go/yawn"
	"golang.org/x/xerrors"
)

const (
	maxConsecutiveCameraErrors = 50
	waitOnReport               = 2 * time.Second
)

// ErrCameraFailed is returned by Poll once the camera failed too many times in a row.
var ErrCameraFailed = xerrors.New("camera keeps failing")

type sampleResult struct {
	seq    int64
	frame  model.Frame
	mouth  yawn.MouthShape
	found  bool
	camErr error
	err    error
	took   time.Duration
}

// Poll samples the camera once per poll period and feeds the landmarks of each
// frame to the detector until the context is cancelled.
//
// At most one read+detect is in flight. Ticks that fire while it runs are
// skipped. A sample that outlives the detect timeout counts as a frame without
// a face and its late result is dropped. The detector is only touched from
// the calling goroutine.
func Poll(canxCtx context.Context,
	svcs ServicesFactory,
	session string,
	detector *yawn.Detector,
	errorStream chan interface{},
	statsStream chan interface{},
	sinkChannels []chan EventData) error {
	period := svcs.CfgSvc.GetPollPeriod()
	timeout := svcs.CfgSvc.GetDetectTimeout()
	heartbeat := time.Duration(svcs.CfgSvc.GetSessionHeartbeatPeriod()) * time.Second
	if heartbeat <= 0 {
		heartbeat = time.Minute
	}

	lgr.Logger.InfoContext(canxCtx,
		"poller starting....",
		slog.String("session", session),
		slog.Duration("period", period),
		slog.Duration("timeout", timeout),
		slog.Int("sinks", len(sinkChannels)),
	)

	var startTime = time.Now()
	var totalDetectTime time.Duration
	stats := model.PollerStats{
		Name:    "poller",
		Session: session,
	}

	snapshotStats := func() model.PollerStats {
		s := stats
		uptime := time.Since(startTime).Seconds()
		s.Uptime = int64(uptime)
		if uptime > 0 {
			s.FPS = int(float64(s.Frames) / uptime)
		}
		if s.Frames > 0 {
			s.AvgDetectTime = totalDetectTime.Seconds() / float64(s.Frames)
		}
		s.Timestamp = time.Now().Unix()
		return s
	}

	defer func() {
		report(statsStream, snapshotStats())
	}()

	emit := func(ed EventData) bool {
		for _, sinkChan := range sinkChannels {
			select {
			case <-canxCtx.Done():
				return false
			case sinkChan <- ed:
			}
		}
		return true
	}

	publish := func(outcome yawn.FrameOutcome, frame model.Frame) {
		snapshot := yawn.SnapshotOf(outcome.State)
		for i := range outcome.Events {
			event := outcome.Events[i]
			stats.Events++
			ed := EventData{
				Type:      event.Kind,
				Session:   session,
				Event:     &event,
				Snapshot:  snapshot,
				Timestamp: event.At,
			}
			if ed.IsAlert() {
				ed.Frame = frame.Data
			}
			if !emit(ed) {
				return
			}
		}

		if len(outcome.Events) == 0 && outcome.Changed {
			emit(EventData{
				Type:      StateChanged,
				Session:   session,
				Snapshot:  snapshot,
				Timestamp: time.Now(),
			})
		}
	}

	fail := func(err error, seq int64, messagef string) {
		stats.Errors++
		report(errorStream, model.GenError("poller",
			err,
			map[string]interface{}{
				"session": session,
				"seq":     seq,
			},
			messagef))
	}

	var cameraErrors int

	handle := func(r sampleResult) error {
		if r.camErr != nil {
			if xerrors.Is(r.camErr, camera.ErrNotReady) {
				stats.EmptyFrames++
				return nil
			}
			if canxCtx.Err() != nil {
				return nil
			}

			cameraErrors++
			fail(r.camErr, r.seq, "camera read failed")
			if cameraErrors >= maxConsecutiveCameraErrors {
				return xerrors.Errorf("%d consecutive read errors: %w", cameraErrors, ErrCameraFailed)
			}
			return nil
		}
		cameraErrors = 0

		stats.Frames++
		totalDetectTime += r.took

		switch {
		case r.err != nil:
			if canxCtx.Err() != nil {
				return nil
			}
			if xerrors.Is(r.err, yawn.ErrMalformedShape) {
				stats.Malformed++
				fail(r.err, r.seq, "detector rejected the mouth shape")
				return nil
			}
			if xerrors.Is(r.err, context.DeadlineExceeded) {
				stats.Timeouts++
			} else {
				fail(r.err, r.seq, "landmark detection failed")
			}
			publish(detector.Miss(), r.frame)

		case !r.found:
			stats.NoFace++
			publish(detector.Miss(), r.frame)

		default:
			outcome, err := detector.Observe(r.mouth)
			if err != nil {
				stats.Malformed++
				fail(err, r.seq, "detector rejected the mouth shape")
				return nil
			}
			if outcome.Measured {
				stats.Measured++
			} else {
				stats.Degenerate++
			}
			publish(outcome, r.frame)
		}
		return nil
	}

	// Sinks start from the current state
	if !emit(EventData{
		Type:      StateChanged,
		Session:   session,
		Snapshot:  detector.Snapshot(),
		Timestamp: time.Now(),
	}) {
		return nil
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	heartbeatTicker := time.NewTicker(heartbeat)
	defer heartbeatTicker.Stop()

	// One slot is enough since only one sample is ever in flight, so the
	// sampler never blocks even after the poller is gone
	results := make(chan sampleResult, 1)

	var (
		seq       int64
		pending   int64
		inFlight  bool
		deadline  *time.Timer
		deadlineC <-chan time.Time
	)

	stopDeadline := func() {
		if deadline != nil {
			deadline.Stop()
			deadline = nil
		}
		deadlineC = nil
	}
	defer stopDeadline()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.InfoContext(canxCtx,
				"poller context cancelled",
				slog.String("session", session),
			)
			return nil

		case <-heartbeatTicker.C:
			report(statsStream, snapshotStats())

		case <-ticker.C:
			stats.Ticks++
			if inFlight {
				stats.SkippedTicks++
				continue
			}

			seq++
			pending = seq
			inFlight = true
			deadline = time.NewTimer(timeout)
			deadlineC = deadline.C
			go sample(canxCtx, svcs, seq, timeout, results)

		case <-deadlineC:
			// The sample overran its budget. Treat it as a frame without a
			// face and forget about its result.
			stopDeadline()
			lgr.Logger.DebugContext(canxCtx,
				"sample timed out",
				slog.Int64("seq", pending),
			)
			pending = 0
			stats.Timeouts++
			publish(detector.Miss(), model.Frame{})

		case r := <-results:
			inFlight = false
			if r.seq != pending {
				continue
			}
			stopDeadline()
			pending = 0

			if err := handle(r); err != nil {
				return err
			}
		}
	}
}

func sample(canxCtx context.Context, svcs ServicesFactory, seq int64, timeout time.Duration, results chan<- sampleResult) {
	ctx, cancel := context.WithTimeout(canxCtx, timeout)
	defer cancel()

	r := sampleResult{seq: seq}

	frame, err := svcs.CameraSvc.Read(ctx)
	if err == nil && frame.Empty() {
		err = camera.ErrNotReady
	}
	if err != nil {
		r.camErr = err
		results <- r
		return
	}
	r.frame = frame

	begin := time.Now()
	r.mouth, r.found, r.err = svcs.LandmarkSvc.Detect(ctx, frame)
	r.took = time.Since(begin)

	results <- r
}

// report hands v to a stream, giving up if nobody drains it in time.
func report(stream chan interface{}, v interface{}) {
	timer := time.NewTimer(waitOnReport)
	defer timer.Stop()

	select {
	case stream <- v:
	case <-timer.C:
		lgr.Logger.Warn(
			"report dropped",
			slog.String("type", fmt.Sprintf("%T", v)),
		)
	}
}
