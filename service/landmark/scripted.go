package landmark

import (
	"context"
	"sync"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/yawn"
	"golang.org/x/xerrors"
)

type StepKind string

const (
	Open      StepKind = "open"
	Closed    StepKind = "closed"
	Missing   StepKind = "missing"
	Malformed StepKind = "malformed"
	Fail      StepKind = "fail"
)

// ErrScriptedFailure is returned by Fail steps.
var ErrScriptedFailure = xerrors.New("scripted detector failure")

// Step is one scripted detector answer, repeated Repeat times (at least once).
// Delay simulates detector latency and honours the context.
type Step struct {
	Kind   StepKind
	Repeat int
	Delay  time.Duration
}

type scriptedService struct {
	mu     sync.Mutex
	script []Step
	loop   bool
	step   int
	served int
}

// NewScripted answers from a fixed script. When loop is false the last step
// repeats forever once the script is exhausted.
func NewScripted(script []Step, loop bool) IService {
	if len(script) == 0 {
		script = []Step{{Kind: Missing}}
	}
	return &scriptedService{
		script: script,
		loop:   loop,
	}
}

// YawnScript is the default simulation: a few seconds of closed mouth,
// a yawn, and a flicker of missed detections in between.
func YawnScript() []Step {
	return []Step{
		{Kind: Closed, Repeat: 30},
		{Kind: Open, Repeat: 15},
		{Kind: Missing, Repeat: 3},
		{Kind: Open, Repeat: 5},
		{Kind: Closed, Repeat: 20},
		{Kind: Missing, Repeat: 10},
	}
}

func (svc *scriptedService) next() Step {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	s := svc.script[svc.step]
	svc.served++

	repeat := s.Repeat
	if repeat < 1 {
		repeat = 1
	}
	if svc.served >= repeat {
		svc.served = 0
		switch {
		case svc.step+1 < len(svc.script):
			svc.step++
		case svc.loop:
			svc.step = 0
		default:
			// Stay on the last step
			svc.served = repeat
		}
	}
	return s
}

func (svc *scriptedService) Detect(ctx context.Context, frame model.Frame) (yawn.MouthShape, bool, error) {
	s := svc.next()

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-timer.C:
		}
	}

	// Centre the synthetic mouth in the frame when the size is known
	cx, cy, width := 320.0, 300.0, 80.0
	if frame.Width > 0 && frame.Height > 0 {
		cx, cy = float64(frame.Width)/2, float64(frame.Height)*0.65
		width = float64(frame.Width) / 8
	}

	switch s.Kind {
	case Open:
		return yawn.MouthWithGap(cx, cy, width, width), true, nil
	case Closed:
		return yawn.MouthWithGap(cx, cy, width, width/20), true, nil
	case Malformed:
		return yawn.MouthWithGap(cx, cy, width, 0)[:12], true, nil
	case Fail:
		return nil, false, ErrScriptedFailure
	default:
		return nil, false, nil
	}
}
