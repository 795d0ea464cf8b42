package pipeline

import (
	"context"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/lgr"
)

// BroadcastSink keeps the web surface state current and pushes every event
// to the connected websocket clients.
func BroadcastSink(canx context.Context, svcs ServicesFactory, session string, errorStream chan interface{}, statsStream chan interface{}) chan EventData {
	in := make(chan EventData, 100)

	go func() {
		var startTime = time.Now()
		stats := model.SinkStats{
			Name:    "broadcastSink",
			Session: session,
		}

		defer func() {
			if svcs.WebSvc != nil {
				stats.Clients = svcs.WebSvc.Clients()
			}
			stats.Uptime = int64(time.Since(startTime).Seconds())
			stats.Timestamp = time.Now().Unix()
			report(statsStream, stats)
		}()

		if svcs.WebSvc == nil {
			lgr.Logger.WarnContext(canx, "broadcast sink has no web service, events are discarded")
		}

		proc := func(ed EventData) {
			stats.Events++
			if ed.IsAlert() {
				stats.Alerts++
			}
			if svcs.WebSvc == nil {
				return
			}

			// Late clients and the state endpoint get the same shape as the stream
			svcs.WebSvc.SetState(EventData{
				Type:      StateChanged,
				Session:   ed.Session,
				Snapshot:  ed.Snapshot,
				Timestamp: ed.Timestamp,
			})
			err := svcs.WebSvc.Broadcast(ed)
			if err != nil {
				stats.Errors++
				report(errorStream, model.GenError("broadcast_sink",
					err,
					map[string]interface{}{
						"session": session,
						"type":    ed.Type,
					},
					"error broadcasting event"))
			}
		}

		for {
			select {
			case <-canx.Done():
				for len(in) > 0 {
					proc(<-in)
				}
				lgr.Logger.InfoContext(canx,
					"broadcast sink context cancelled",
				)
				return

			case ed := <-in:
				proc(ed)
			}
		}
	}()

	return in
}
