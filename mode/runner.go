package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/pipeline"
	"github.com/khaledhikmat/yawn-go/service/lgr"
	"github.com/khaledhikmat/yawn-go/yawn"
)

// How long to wait before a failed session is started again
var restartDelay = 2 * time.Second

// run keeps one detection session going until the context is cancelled. A
// session that ends on its own (the camera gave up) is restarted after
// restartDelay.
func run(canxCtx context.Context, name string, svcs pipeline.ServicesFactory, sinks []pipeline.Sink) error {
	detector, err := newDetector(svcs)
	if err != nil {
		return err
	}

	// Create the error and stats streams shared by every session
	errorStream := make(chan interface{})
	statsStream := make(chan interface{})

	sessionResult := make(chan error, 1)
	startSession := func() {
		go func() {
			_, err := pipeline.RunSession(canxCtx, svcs, name, detector, sinks, errorStream, statsStream)
			sessionResult <- err
		}()
	}

	sessions := 1
	startSession()

	var restart <-chan time.Time

	// Wait for cancellation, session end, stats or error
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"mode context cancelled",
				slog.String("mode", name),
			)
			goto resume

		case err := <-sessionResult:
			if canxCtx.Err() != nil {
				goto resume
			}
			if err != nil {
				procError(svcs.DataSvc, model.GenError(name,
					err,
					map[string]interface{}{
						"sessions": sessions,
					},
					"session ended"))
			}

			lgr.Logger.Info(
				"session will restart",
				slog.String("mode", name),
				slog.Duration("delay", restartDelay),
			)
			restart = time.After(restartDelay)

		case <-restart:
			restart = nil
			// No session is running so the detector is safe to touch
			if svcs.CfgSvc.GetResetOnRestart() {
				detector.Reset()
			}
			sessions++
			startSession()

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Wait in a non-blocking way for the shutdown period so the pipeline
	// go routines can report their final stats and errors
resume:
	lgr.Logger.Info(
		"mode is waiting for all go routines to exit",
		slog.String("mode", name),
		slog.Int("sessions", sessions),
	)

	period := time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"mode shutdown waiting period expired. Exiting now",
				slog.String("mode", name),
				slog.Duration("period", period),
			)
			return nil

		case <-sessionResult:

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}

// newDetector builds the session detector from configuration. Unless a
// restart resets the count, it picks up where the last stored session ended.
func newDetector(svcs pipeline.ServicesFactory) (*yawn.Detector, error) {
	opts := []yawn.Option{
		yawn.WithThreshold(svcs.CfgSvc.GetYawnThreshold()),
		yawn.WithAlertThreshold(svcs.CfgSvc.GetAlertThreshold()),
	}

	if !svcs.CfgSvc.GetResetOnRestart() {
		last, ok, err := svcs.DataSvc.RetrieveLastSession()
		if err != nil {
			return nil, err
		}
		if ok {
			lgr.Logger.Info(
				"resuming yawn count from last session",
				slog.String("session", last.ID),
				slog.Int("count", last.Yawns),
			)
			opts = append(opts, yawn.WithCount(last.Yawns))
		}
	}

	return yawn.NewDetector(opts...), nil
}
