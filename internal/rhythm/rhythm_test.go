package rhythm

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingLifecycle struct{ wakes, sleeps int }

func (c *countingLifecycle) WakeUp() { c.wakes++ }
func (c *countingLifecycle) Sleep()  { c.sleeps++ }

func TestOnTickFiresOncePerMinute(t *testing.T) {
	lc := &countingLifecycle{}
	s, err := New("0 7 * * *", "30 23 * * *", time.Second, lc, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	morning := time.Date(2024, 3, 1, 7, 0, 5, 0, time.Local)
	s.OnTick(morning)
	s.OnTick(morning.Add(20 * time.Second))
	s.OnTick(morning.Add(50 * time.Second))
	if lc.wakes != 1 || lc.sleeps != 0 {
		t.Fatalf("expected 1 wake, got wakes=%d sleeps=%d", lc.wakes, lc.sleeps)
	}

	s.OnTick(morning.Add(time.Minute))
	if lc.wakes != 1 {
		t.Fatalf("wake should not fire at 07:01, got %d", lc.wakes)
	}

	night := time.Date(2024, 3, 1, 23, 30, 0, 0, time.Local)
	s.OnTick(night)
	s.OnTick(night.Add(30 * time.Second))
	if lc.sleeps != 1 {
		t.Fatalf("expected 1 sleep, got %d", lc.sleeps)
	}

	s.OnTick(morning.Add(24 * time.Hour))
	if lc.wakes != 2 {
		t.Errorf("expected wake on the next day, got %d", lc.wakes)
	}
}

func TestNewValidation(t *testing.T) {
	lc := &countingLifecycle{}
	if _, err := New("not a cron", "", time.Second, lc, zap.NewNop()); err == nil {
		t.Fatal("expected error for invalid expression")
	}
	s, err := New("", "", 0, lc, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.OnTick(time.Now())
	if lc.wakes != 0 || lc.sleeps != 0 {
		t.Errorf("empty expressions must never fire")
	}
	if s.interval != 15*time.Second {
		t.Errorf("expected default interval, got %v", s.interval)
	}
}
