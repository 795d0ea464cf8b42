package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/lgr"
	"github.com/khaledhikmat/yawn-go/yawn"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

// RunSession opens the camera, starts the sinks and polls until the context is
// cancelled or the camera gives up. The finished session is persisted and
// returned. The detector belongs to the poller while the session runs.
func RunSession(canxCtx context.Context,
	svcs ServicesFactory,
	mode string,
	detector *yawn.Detector,
	sinks []Sink,
	errorStream chan interface{},
	statsStream chan interface{}) (model.Session, error) {
	id := uuid.New()
	sessionCtx, sessionCanxFn := context.WithCancel(withSessionTrace(canxCtx, id))
	defer sessionCanxFn()

	var sessionStartTime = time.Now()
	session := model.Session{
		ID:        id.String(),
		Mode:      mode,
		StartedAt: sessionStartTime.Unix(),
	}

	lgr.Logger.InfoContext(sessionCtx,
		"session starting....",
		slog.String("session", session.ID),
		slog.String("mode", mode),
		slog.Int("count", detector.State().Count),
		slog.Int("sinks", len(sinks)),
	)

	err := svcs.CameraSvc.Open()
	if err != nil {
		return session, xerrors.Errorf("error opening camera: %w", err)
	}
	defer func() {
		if err := svcs.CameraSvc.Close(); err != nil {
			lgr.Logger.WarnContext(sessionCtx, "error closing camera", slog.Any("error", err))
		}
	}()

	// The session tracks the latest snapshot through its own channel so it
	// never reads the detector while the poller owns it
	tracker := make(chan EventData, 100)
	sinkChannels := []chan EventData{tracker}
	for _, sink := range sinks {
		sinkChannels = append(sinkChannels, sink(sessionCtx, svcs, session.ID, errorStream, statsStream))
	}

	snapshot := detector.Snapshot()
	pollResult := make(chan error, 1)
	go func() {
		pollResult <- Poll(sessionCtx, svcs, session.ID, detector, errorStream, statsStream, sinkChannels)
	}()

	track := func(ed EventData) {
		snapshot = ed.Snapshot
		if ed.IsAlert() {
			session.Alerts++
		}
	}

	heartbeat := time.Duration(svcs.CfgSvc.GetSessionHeartbeatPeriod()) * time.Second
	if heartbeat <= 0 {
		heartbeat = time.Minute
	}
	heartbeatTicker := time.NewTicker(heartbeat)
	defer heartbeatTicker.Stop()

	var pollErr error
	for {
		select {
		case ed := <-tracker:
			track(ed)

		case <-heartbeatTicker.C:
			report(statsStream, sessionStats(session, snapshot, sessionStartTime))

		case pollErr = <-pollResult:
			goto resume
		}
	}

resume:
	for len(tracker) > 0 {
		track(<-tracker)
	}
	sessionCanxFn()

	// The poller is gone so the detector is ours again
	state := detector.State()
	mood := yawn.MoodFor(state.Count)
	session.EndedAt = time.Now().Unix()
	session.Yawns = state.Count
	session.Mood = mood.Label()

	if err := svcs.DataSvc.NewSession(session); err != nil {
		report(errorStream, model.GenError("session",
			err,
			map[string]interface{}{
				"session": session.ID,
			},
			"error storing session"))
	}

	report(statsStream, sessionStats(session, yawn.SnapshotOf(state), sessionStartTime))

	lgr.Logger.InfoContext(sessionCtx,
		"session ended",
		slog.String("session", session.ID),
		slog.Int("yawns", session.Yawns),
		slog.Int("alerts", session.Alerts),
		slog.String("mood", session.Mood),
		slog.Any("error", pollErr),
	)

	return session, pollErr
}

func sessionStats(session model.Session, snapshot yawn.Snapshot, startTime time.Time) model.SessionStats {
	return model.SessionStats{
		ID:        session.ID,
		Mode:      session.Mode,
		Yawns:     snapshot.Count,
		Yawning:   snapshot.Yawning,
		Mood:      snapshot.MoodLabel,
		Uptime:    int64(time.Since(startTime).Seconds()),
		Timestamp: time.Now().Unix(),
	}
}

// withSessionTrace derives a span context from the session id so every log
// line of the session carries the same trace id.
func withSessionTrace(ctx context.Context, id uuid.UUID) context.Context {
	var traceID trace.TraceID
	copy(traceID[:], id[:])

	var spanID trace.SpanID
	copy(spanID[:], id[8:])

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(ctx, sc)
}
