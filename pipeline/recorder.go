package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/lgr"
	"github.com/natefinch/lumberjack"
)

const journalFile = "yawns.log"

// RecorderSink appends every event to a rotated JSON lines journal in the
// logs folder.
func RecorderSink(canx context.Context, svcs ServicesFactory, session string, errorStream chan interface{}, statsStream chan interface{}) chan EventData {
	in := make(chan EventData, 100)

	journal := &lumberjack.Logger{
		Filename:   filepath.Join(svcs.CfgSvc.GetLogsFolder(), journalFile),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30,   // days
		Compress:   true, // compress old journals
	}

	go func() {
		var startTime = time.Now()
		stats := model.SinkStats{
			Name:    "recorderSink",
			Session: session,
		}

		defer func() {
			if err := journal.Close(); err != nil {
				lgr.Logger.Warn("error closing journal", slog.Any("error", err))
			}

			stats.Uptime = int64(time.Since(startTime).Seconds())
			stats.Timestamp = time.Now().Unix()
			report(statsStream, stats)
		}()

		proc := func(ed EventData) {
			stats.Events++
			if ed.IsAlert() {
				stats.Alerts++
			}

			err := writeJournal(journal, ed)
			if err != nil {
				stats.Errors++
				report(errorStream, model.GenError("recorder_sink",
					err,
					map[string]interface{}{
						"session": session,
						"type":    ed.Type,
					},
					"error writing journal entry"))
			}
		}

		for {
			select {
			case <-canx.Done():
				for len(in) > 0 {
					proc(<-in)
				}
				lgr.Logger.InfoContext(canx,
					"recorder sink context cancelled",
				)
				return

			case ed := <-in:
				proc(ed)
			}
		}
	}()

	return in
}

func writeJournal(journal *lumberjack.Logger, ed EventData) error {
	line, err := json.Marshal(ed)
	if err != nil {
		return err
	}

	_, err = journal.Write(append(line, '\n'))
	return err
}
