package model

import (
	"fmt"
	"runtime/debug"
	"time"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Frame is one captured camera frame, JPEG encoded.
type Frame struct {
	Seq       int64     `json:"seq"`
	Data      []byte    `json:"-"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Timestamp time.Time `json:"timestamp"`
}

func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

type Session struct {
	ID        string `json:"id"`
	Mode      string `json:"mode"`
	StartedAt int64  `json:"startedAt"`
	EndedAt   int64  `json:"endedAt"`
	Yawns     int    `json:"yawns"`
	Alerts    int    `json:"alerts"`
	Mood      string `json:"mood"`
}

type PollerStats struct {
	Name          string  `json:"name"`
	Session       string  `json:"session"`
	Ticks         int     `json:"ticks"`
	Frames        int     `json:"frames"`
	SkippedTicks  int     `json:"skippedTicks"`
	EmptyFrames   int     `json:"emptyFrames"`
	NoFace        int     `json:"noFace"`
	Measured      int     `json:"measured"`
	Degenerate    int     `json:"degenerate"`
	Malformed     int     `json:"malformed"`
	Timeouts      int     `json:"timeouts"`
	Errors        int     `json:"errors"`
	Events        int     `json:"events"`
	FPS           int     `json:"fps"`
	Uptime        int64   `json:"uptime"`
	AvgDetectTime float64 `json:"avgDetectTime"`
	Timestamp     int64   `json:"timestamp"`
}

type SinkStats struct {
	Name      string `json:"name"`
	Session   string `json:"session"`
	Events    int    `json:"events"`
	Alerts    int    `json:"alerts"`
	Errors    int    `json:"errors"`
	// Clients is the websocket client count seen by the broadcast sink
	Clients   int    `json:"clients,omitempty"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type SessionStats struct {
	ID        string `json:"id"`
	Mode      string `json:"mode"`
	Yawns     int    `json:"yawns"`
	Yawning   bool   `json:"yawning"`
	Mood      string `json:"mood"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}
