package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*cognitive.Core, *httptest.Server) {
	t.Helper()
	cfg := cognitive.DefaultConfig()
	cfg.LoopInterval = 2 * time.Millisecond
	core := cognitive.New(cfg, zap.NewNop())
	t.Cleanup(func() {
		core.Sleep()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		core.WaitIdle(ctx)
	})

	h := NewHandler(core, nil, zap.NewNop())
	ts := httptest.NewServer(h.Router())
	t.Cleanup(ts.Close)
	return core, ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func putJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPut, ts.URL+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s: %v", path, err)
	}
	return resp
}

func getJSON(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHealthCheck(t *testing.T) {
	_, ts := newTestHandler(t)

	resp := getJSON(t, ts, "/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" || body["state"] != "awaiting" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestWakeAndSleep(t *testing.T) {
	core, ts := newTestHandler(t)

	resp := postJSON(t, ts, "/api/wake", nil)
	var body map[string]string
	decodeJSON(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "aware" {
		t.Fatalf("wake: %d %v", resp.StatusCode, body)
	}

	resp = postJSON(t, ts, "/api/sleep", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sleep: %d", resp.StatusCode)
	}
	waitFor(t, "awaiting", func() bool { return core.State() == cognitive.Awaiting })
}

func TestEventLifecycleTypes(t *testing.T) {
	core, ts := newTestHandler(t)

	resp := postJSON(t, ts, "/api/events", eventRequest{Type: EventWakeUp})
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if core.State() != cognitive.Aware {
		t.Fatalf("expected aware, got %s", core.State())
	}

	resp = postJSON(t, ts, "/api/events", eventRequest{Type: EventSleep})
	resp.Body.Close()
	waitFor(t, "awaiting", func() bool { return core.State() == cognitive.Awaiting })
}

func TestReceiveEventReachesWorkingMemory(t *testing.T) {
	core, ts := newTestHandler(t)
	core.RegisterPlugin(cognitive.SlotUnderstanding, cognitive.UnderstanderFunc(
		func(ctx context.Context, in cognitive.UnderstandInput) (*cognitive.UnderstoodData, error) {
			return &cognitive.UnderstoodData{
				EventType:        "chat",
				MainContent:      in.Event.Data,
				CurrentSituation: "conversation",
				ImportanceScore:  50,
			}, nil
		}))
	core.WakeUp()

	resp := postJSON(t, ts, "/api/events", eventRequest{Type: "user_message", Data: "hi", Source: "user"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	waitFor(t, "event in working memory", func() bool { return len(core.RecentEvents()) == 1 })

	var events []cognitive.CognitiveEvent
	decodeJSON(t, getJSON(t, ts, "/api/events"), &events)
	if len(events) != 1 || events[0].Source != "user" {
		t.Fatalf("unexpected events: %+v", events)
	}

	var status cognitive.SystemStatus
	decodeJSON(t, getJSON(t, ts, "/api/status"), &status)
	if status.Status != "aware" || status.CurrentSituation != "conversation" {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.WorkingMemoryCount != 1 {
		t.Errorf("working memory count = %d", status.WorkingMemoryCount)
	}
}

func TestReceiveEventValidation(t *testing.T) {
	_, ts := newTestHandler(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing type", eventRequest{Data: "hi"}},
		{"missing data", eventRequest{Type: "user_message"}},
		{"not json", "just a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts, "/api/events", tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestListPlugins(t *testing.T) {
	core, ts := newTestHandler(t)
	core.RegisterPlugin(cognitive.SlotBehaviorExecution, cognitive.ExecutorFunc(
		func(ctx context.Context, a cognitive.Action) error { return nil }))

	var body map[string][]string
	decodeJSON(t, getJSON(t, ts, "/api/plugins"), &body)
	if len(body["slots"]) != len(cognitive.SlotNames()) {
		t.Errorf("slots = %v", body["slots"])
	}
	if len(body["registered"]) != 1 || body["registered"][0] != cognitive.SlotBehaviorExecution {
		t.Errorf("registered = %v", body["registered"])
	}
}

func TestSetGoals(t *testing.T) {
	core, ts := newTestHandler(t)
	core.WakeUp()

	goals := []cognitive.Goal{{ID: "g1", Type: "social", Description: "greet visitors", Priority: 3, Status: "active"}}
	resp := putJSON(t, ts, "/api/goals", goals)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	waitFor(t, "goals applied", func() bool { return len(core.ActiveGoals()) == 1 })
	var got []cognitive.Goal
	decodeJSON(t, getJSON(t, ts, "/api/goals"), &got)
	if len(got) != 1 || got[0].ID != "g1" {
		t.Errorf("unexpected goals: %+v", got)
	}

	resp = putJSON(t, ts, "/api/goals", map[string]string{"id": "g2"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for non-array body, got %d", resp.StatusCode)
	}
}

func TestGatewayStatusWithoutGateway(t *testing.T) {
	_, ts := newTestHandler(t)

	resp := getJSON(t, ts, "/api/gateway/status")
	var statuses []map[string]interface{}
	decodeJSON(t, resp, &statuses)
	if len(statuses) != 0 {
		t.Errorf("expected no adapters, got %v", statuses)
	}
}
