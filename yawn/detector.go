// Package yawn decides, frame by frame, whether a mouth is yawning and counts
// the yawns of a detection session.
package yawn

import (
	"time"

	"golang.org/x/xerrors"
)

// YawnThreshold is the mouth aspect ratio above which the mouth counts as yawning.
const YawnThreshold = 0.6

type EventKind string

const (
	YawnStarted    EventKind = "yawnStarted"
	AlertTriggered EventKind = "alertTriggered"
)

type Event struct {
	Kind    EventKind `json:"kind"`
	Count   int       `json:"count"`
	MAR     float64   `json:"mar"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

type State struct {
	Yawning bool `json:"yawning"`
	Count   int  `json:"count"`
}

// Snapshot is the state plus everything a presentation layer derives from it.
type Snapshot struct {
	State
	Mood              Mood    `json:"mood"`
	MoodLabel         string  `json:"moodLabel"`
	MoodColor         string  `json:"moodColor"`
	SleepinessPercent float64 `json:"sleepinessPercent"`
	SleepinessMessage string  `json:"sleepinessMessage"`
}

func SnapshotOf(s State) Snapshot {
	mood := MoodFor(s.Count)
	percent := SleepinessPercent(s.Count)
	return Snapshot{
		State:             s,
		Mood:              mood,
		MoodLabel:         mood.Label(),
		MoodColor:         mood.Color(),
		SleepinessPercent: percent,
		SleepinessMessage: SleepinessMessage(percent),
	}
}

type FrameOutcome struct {
	FacePresent bool    `json:"facePresent"`
	Measured    bool    `json:"measured"`
	MAR         float64 `json:"mar"`
	Changed     bool    `json:"changed"`
	State       State   `json:"state"`
	Events      []Event `json:"events,omitempty"`
}

type Option func(*Detector)

func WithThreshold(threshold float64) Option {
	return func(d *Detector) {
		d.threshold = threshold
	}
}

func WithAlertThreshold(count int) Option {
	return func(d *Detector) {
		d.alertThreshold = count
	}
}

// WithCount starts the detector from an earlier yawn count.
func WithCount(count int) Option {
	return func(d *Detector) {
		if count > 0 {
			d.state.Count = count
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// Detector is the per-session yawn state machine. It is not safe for
// concurrent use; a single polling loop owns it.
type Detector struct {
	threshold      float64
	alertThreshold int
	now            func() time.Time
	state          State
}

func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		threshold:      YawnThreshold,
		alertThreshold: AlertThreshold,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Detector) State() State {
	return d.state
}

func (d *Detector) Snapshot() Snapshot {
	return SnapshotOf(d.state)
}

func (d *Detector) Reset() {
	d.state = State{}
}

// Observe processes a frame in which a face was detected.
func (d *Detector) Observe(mouth MouthShape) (FrameOutcome, error) {
	return d.ProcessFrame(mouth, true)
}

// Miss processes a frame in which no face was detected.
func (d *Detector) Miss() FrameOutcome {
	outcome, _ := d.ProcessFrame(nil, false)
	return outcome
}

// ProcessFrame advances the state machine by one frame. A missing face and a
// degenerate shape leave the state untouched. A malformed shape is rejected
// with ErrMalformedShape.
func (d *Detector) ProcessFrame(mouth MouthShape, present bool) (FrameOutcome, error) {
	outcome := FrameOutcome{
		FacePresent: present,
		State:       d.state,
	}
	if !present {
		return outcome, nil
	}

	mar, err := ComputeMouthAspectRatio(mouth)
	if xerrors.Is(err, ErrDegenerateShape) {
		return outcome, nil
	}
	if err != nil {
		return outcome, err
	}

	outcome.Measured = true
	outcome.MAR = mar

	prev := d.state
	if mar > d.threshold {
		if !d.state.Yawning {
			d.state.Count++
			d.state.Yawning = true

			at := d.now()
			outcome.Events = append(outcome.Events, Event{
				Kind:  YawnStarted,
				Count: d.state.Count,
				MAR:   mar,
				At:    at,
			})
			if shouldAlertAbove(d.state.Count, d.alertThreshold) {
				outcome.Events = append(outcome.Events, Event{
					Kind:    AlertTriggered,
					Count:   d.state.Count,
					MAR:     mar,
					Message: AlertMessage,
					At:      at,
				})
			}
		}
	} else {
		d.state.Yawning = false
	}

	outcome.State = d.state
	outcome.Changed = prev != d.state
	return outcome, nil
}
