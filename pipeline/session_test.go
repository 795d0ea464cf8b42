package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/landmark"
	"github.com/khaledhikmat/yawn-go/yawn"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

func TestRunSession(t *testing.T) {
	settings := testSettings(t)
	script := []landmark.Step{
		{Kind: landmark.Open, Repeat: 2},
		{Kind: landmark.Closed, Repeat: 2},
	}
	cam := &fakeCamera{}
	svcs := testServices(settings, cam, landmark.NewScripted(script, true))
	webhook := newFakeWebhook()
	svcs.WebhookSvc = webhook
	web := &fakeWeb{}
	svcs.WebSvc = web
	s := newStreams(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type sessionResult struct {
		session model.Session
		err     error
	}
	result := make(chan sessionResult, 1)
	go func() {
		session, err := RunSession(ctx, svcs, "simulate",
			yawn.NewDetector(yawn.WithAlertThreshold(1)),
			[]Sink{LogSink, RecorderSink, BroadcastSink},
			s.errorStream, s.statsStream)
		result <- sessionResult{session, err}
	}()

	select {
	case <-webhook.posted:
	case <-time.After(5 * time.Second):
		t.Fatalf("no alert reached the webhook")
	}
	cancel()

	var r sessionResult
	select {
	case r = <-result:
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not end")
	}
	if r.err != nil {
		t.Fatalf("session: %v", r.err)
	}

	session := r.session
	if session.ID == "" || session.Mode != "simulate" {
		t.Errorf("session: got %+v", session)
	}
	if session.Yawns < 2 || session.Alerts < 1 {
		t.Errorf("counts: got yawns=%d alerts=%d", session.Yawns, session.Alerts)
	}
	if session.Mood != yawn.MoodFor(session.Yawns).Label() {
		t.Errorf("mood: got %q", session.Mood)
	}
	if session.EndedAt < session.StartedAt {
		t.Errorf("ended before it started: %+v", session)
	}
	if !cam.isClosed() {
		t.Errorf("camera left open")
	}

	stored, ok, err := svcs.DataSvc.RetrieveLastSession()
	if err != nil || !ok {
		t.Fatalf("stored session: ok=%v err=%v", ok, err)
	}
	if stored.ID != session.ID || stored.Yawns != session.Yawns {
		t.Errorf("stored: got %+v, want %+v", stored, session)
	}

	payload := webhook.all()[0]
	if payload["session"] != session.ID || payload["message"] != yawn.AlertMessage {
		t.Errorf("payload: got %v", payload)
	}
	snapshot, _ := payload["snapshot"].(string)
	if !strings.HasPrefix(filepath.Base(snapshot), session.ID+"_alert_") {
		t.Errorf("snapshot path: got %q", snapshot)
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Errorf("snapshot file: %v", err)
	}

	journal := filepath.Join(settings.LogsFolder, journalFile)
	if !eventually(t, 2*time.Second, func() bool {
		b, err := os.ReadFile(journal)
		return err == nil && strings.Contains(string(b), `"type":"alertTriggered"`)
	}) {
		t.Errorf("journal has no alert")
	}

	if !eventually(t, 2*time.Second, func() bool {
		state, n := web.snapshot()
		ed, ok := state.(EventData)
		return ok && ed.Type == StateChanged && n > 0
	}) {
		t.Errorf("web surface never received events")
	}

	for _, name := range []string{"logSink", "recorderSink", "broadcastSink"} {
		if !eventually(t, 2*time.Second, func() bool {
			stats, ok := s.sinkStats(name)
			return ok && stats.Session == session.ID && stats.Events > 0
		}) {
			t.Errorf("%s stats missing", name)
		}
	}
}

func TestRunSession_CameraOpenFails(t *testing.T) {
	cam := &fakeCamera{openErr: errors.New("no device")}
	svcs := testServices(testSettings(t), cam, landmark.NewScripted(nil, false))
	s := newStreams(t)

	_, err := RunSession(context.Background(), svcs, "detect", yawn.NewDetector(), nil, s.errorStream, s.statsStream)
	if err == nil {
		t.Fatalf("expected an error")
	}

	sessions, err := svcs.DataSvc.RetrieveSessions()
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions: got %d, want 0", len(sessions))
	}
}

func TestRunSession_CameraGivesUp(t *testing.T) {
	settings := testSettings(t)
	settings.PollPeriodMs = 1
	cam := &fakeCamera{readErr: errors.New("device unplugged")}
	svcs := testServices(settings, cam, landmark.NewScripted(nil, false))
	s := newStreams(t)

	session, err := RunSession(context.Background(), svcs, "detect", yawn.NewDetector(), nil, s.errorStream, s.statsStream)
	if !xerrors.Is(err, ErrCameraFailed) {
		t.Fatalf("session: got %v, want ErrCameraFailed", err)
	}

	stored, ok, err := svcs.DataSvc.RetrieveLastSession()
	if err != nil || !ok || stored.ID != session.ID {
		t.Errorf("stored: got %+v ok=%v err=%v", stored, ok, err)
	}
}

func TestWithSessionTrace(t *testing.T) {
	id := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	sc := trace.SpanContextFromContext(withSessionTrace(context.Background(), id))
	if !sc.IsValid() {
		t.Fatalf("span context is not valid")
	}
	if got := sc.TraceID().String(); got != "0102030405060708090a0b0c0d0e0f10" {
		t.Errorf("trace id: got %s", got)
	}
	if got := sc.SpanID().String(); got != "090a0b0c0d0e0f10" {
		t.Errorf("span id: got %s", got)
	}
}
