package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/lgr"
	"github.com/khaledhikmat/yawn-go/yawn"
)

// LogSink logs every event. Alerts also keep the triggering frame in the
// recordings folder and go out to the webhook.
func LogSink(canx context.Context, svcs ServicesFactory, session string, errorStream chan interface{}, statsStream chan interface{}) chan EventData {
	in := make(chan EventData, 100)

	go func() {
		var startTime = time.Now()
		stats := model.SinkStats{
			Name:    "logSink",
			Session: session,
		}

		defer func() {
			stats.Uptime = int64(time.Since(startTime).Seconds())
			stats.Timestamp = time.Now().Unix()
			report(statsStream, stats)
		}()

		fail := func(err error, messagef string) {
			stats.Errors++
			report(errorStream, model.GenError("log_sink",
				err,
				map[string]interface{}{
					"session": session,
				},
				messagef))
		}

		proc := func(ctx context.Context, ed EventData) {
			stats.Events++
			logEvent(ctx, ed)
			if !ed.IsAlert() {
				return
			}
			stats.Alerts++

			snapshot, err := saveAlertFrame(svcs, ed)
			if err != nil {
				fail(err, "error saving alert frame")
			}

			payload := alertPayload(ed, snapshot)
			lgr.Logger.DebugContext(ctx,
				"alert payload",
				slog.Any("payload", payload),
			)

			if err := svcs.WebhookSvc.Post(ctx, payload); err != nil {
				fail(err, "error posting alert to webhook")
			}
		}

		for {
			select {
			case <-canx.Done():
				// Flush what the poller already handed over
				flushCtx, flushCanxFn := context.WithTimeout(context.WithoutCancel(canx), waitOnReport)
				for len(in) > 0 {
					proc(flushCtx, <-in)
				}
				flushCanxFn()

				lgr.Logger.InfoContext(canx,
					"log sink context cancelled",
				)
				return

			case ed := <-in:
				proc(canx, ed)
			}
		}
	}()

	return in
}

func logEvent(ctx context.Context, ed EventData) {
	snapshot := ed.Snapshot
	switch ed.Type {
	case yawn.YawnStarted:
		lgr.Logger.InfoContext(ctx,
			"yawn detected",
			slog.Int("count", ed.Event.Count),
			slog.Float64("mar", ed.Event.MAR),
			slog.String("mood", snapshot.MoodLabel),
			slog.Float64("sleepiness", snapshot.SleepinessPercent),
		)
	case yawn.AlertTriggered:
		lgr.Logger.WarnContext(ctx,
			ed.Event.Message,
			slog.Int("count", ed.Event.Count),
			slog.String("mood", snapshot.MoodLabel),
		)
	default:
		lgr.Logger.DebugContext(ctx,
			"state changed",
			slog.Bool("yawning", snapshot.Yawning),
			slog.Int("count", snapshot.Count),
			slog.String("mood", snapshot.MoodLabel),
		)
	}
}

// saveAlertFrame stores the alert frame as <session>_alert_<unix>.jpg and
// returns where it went. Alerts without a frame store nothing.
func saveAlertFrame(svcs ServicesFactory, ed EventData) (string, error) {
	if len(ed.Frame) == 0 {
		return "", nil
	}
	return svcs.StorageSvc.StoreFile(fmt.Sprintf("%s_alert_%d.jpg", ed.Session, ed.Timestamp.Unix()), ed.Frame)
}

func alertPayload(ed EventData, snapshot string) map[string]interface{} {
	return map[string]interface{}{
		"source":    "yawn-go",
		"session":   ed.Session,
		"count":     ed.Event.Count,
		"mood":      ed.Snapshot.MoodLabel,
		"message":   ed.Event.Message,
		"snapshot":  snapshot,
		"timestamp": ed.Timestamp.Format(time.RFC3339),
	}
}
