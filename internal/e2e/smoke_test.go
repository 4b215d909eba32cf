//go:build e2e

package e2e

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL string

func TestMain(m *testing.M) {
	baseURL = os.Getenv("LLL_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Wait for server readiness (up to 30s)
	ready := false
	for i := 0; i < 30; i++ {
		resp, err := http.Get(baseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				ready = true
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	if !ready {
		fmt.Fprintf(os.Stderr, "server at %s not ready after 30s\n", baseURL)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// TestSmokeLifecycle drives a running server through one wake cycle. It
// needs real model credentials in the server config.
func TestSmokeLifecycle(t *testing.T) {
	post(t, baseURL+"/api/wake", nil)
	if s := status(t, baseURL); s.Status != "aware" {
		t.Fatalf("expected aware after wake, got %s", s.Status)
	}

	before := status(t, baseURL).ProcessingStats.EventsProcessed
	post(t, baseURL+"/api/events", map[string]string{
		"type":   "speech-in",
		"data":   "Hello, this is the smoke test. What day is it?",
		"source": "smoke-test",
	})

	deadline := time.Now().Add(90 * time.Second)
	for status(t, baseURL).ProcessingStats.EventsProcessed == before {
		if time.Now().After(deadline) {
			t.Fatal("event not processed within 90s")
		}
		time.Sleep(time.Second)
	}

	s := status(t, baseURL)
	t.Logf("situation=%q load=%.2f working=%d", s.CurrentSituation, s.CognitiveLoad, s.WorkingMemoryCount)
	if s.WorkingMemoryCount == 0 {
		t.Error("expected the event in working memory")
	}

	post(t, baseURL+"/api/sleep", nil)
	deadline = time.Now().Add(3 * time.Minute)
	for status(t, baseURL).Status != "awaiting" {
		if time.Now().After(deadline) {
			t.Fatal("core did not return to awaiting after sleep")
		}
		time.Sleep(time.Second)
	}
	if s := status(t, baseURL); s.WorkingMemoryCount != 0 {
		t.Errorf("working memory not cleared: %d", s.WorkingMemoryCount)
	}
}
