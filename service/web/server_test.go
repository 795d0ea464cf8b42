package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/config"
	"github.com/khaledhikmat/yawn-go/service/data"
)

func newTestServer(t *testing.T) (*fiberService, data.IService) {
	t.Helper()
	settings := config.Defaults()
	settings.DataFolder = t.TempDir()
	cfgSvc := config.NewHardCoded(settings)
	dataSvc := data.NewFilesDB(cfgSvc)
	return NewFiber(cfgSvc, dataSvc).(*fiberService), dataSvc
}

func TestServer_State(t *testing.T) {
	svc, _ := newTestServer(t)

	resp, err := svc.app.Test(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("empty state: got %d, want 204", resp.StatusCode)
	}

	svc.SetState(map[string]interface{}{"count": 2, "mood": "MildlySleepy"})

	resp, err = svc.app.Test(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	var got map[string]interface{}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal %s: %v", body, err)
	}
	if got["mood"] != "MildlySleepy" {
		t.Errorf("state: got %v", got)
	}
}

func TestServer_Sessions(t *testing.T) {
	svc, dataSvc := newTestServer(t)
	if err := dataSvc.NewSession(model.Session{ID: "s1", Yawns: 4}); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.app.Test(httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var sessions []model.Session
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" || sessions[0].Yawns != 4 {
		t.Errorf("sessions: got %+v", sessions)
	}
}

func TestServer_WebsocketRequiresUpgrade(t *testing.T) {
	svc, _ := newTestServer(t)

	resp, err := svc.app.Test(httptest.NewRequest(http.MethodGet, "/ws/events", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("plain GET: got %d, want 426", resp.StatusCode)
	}
}
