package pipeline

import (
	"context"
	"time"

	"github.com/khaledhikmat/yawn-go/service/camera"
	"github.com/khaledhikmat/yawn-go/service/config"
	"github.com/khaledhikmat/yawn-go/service/data"
	"github.com/khaledhikmat/yawn-go/service/landmark"
	"github.com/khaledhikmat/yawn-go/service/storage"
	"github.com/khaledhikmat/yawn-go/service/web"
	"github.com/khaledhikmat/yawn-go/service/webhook"
	"github.com/khaledhikmat/yawn-go/yawn"
)

type ServicesFactory struct {
	CfgSvc      config.IService
	DataSvc     data.IService
	CameraSvc   camera.IService
	LandmarkSvc landmark.IService
	StorageSvc  storage.IService
	WebhookSvc  webhook.IService
	// WebSvc is nil when the web surface is disabled
	WebSvc web.IService
}

// StateChanged marks event data that carries only a new snapshot.
const StateChanged yawn.EventKind = "stateChanged"

// EventData is what the poller hands to every sink: either a detector event
// or a bare state change, always with the snapshot after the frame.
type EventData struct {
	Type     yawn.EventKind `json:"type"`
	Session  string         `json:"session"`
	Event    *yawn.Event    `json:"event,omitempty"`
	Snapshot yawn.Snapshot  `json:"snapshot"`
	// Frame is the JPEG that triggered an alert
	Frame     []byte    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (ed EventData) IsAlert() bool {
	return ed.Type == yawn.AlertTriggered
}

// Signature of sink function
type Sink func(canx context.Context, svcs ServicesFactory, session string, errorStream chan interface{}, statsStream chan interface{}) chan EventData
