package cognitive

import "time"

// WorkingMemory is the loop goroutine's short-term state. It is never
// shared with other goroutines.
type WorkingMemory struct {
	CurrentSituation string
	ActiveGoals      []Goal
	RecentEvents     []CognitiveEvent
	CognitiveLoad    float64
	LastUpdate       time.Time
	ActiveDuration   time.Duration
}

func (w *WorkingMemory) append(ev CognitiveEvent) {
	w.RecentEvents = append(w.RecentEvents, ev)
	w.LastUpdate = ev.Timestamp
}

func (w *WorkingMemory) setSituation(s string) {
	if s != "" {
		w.CurrentSituation = s
	}
}

// trim keeps the last n events in chronological order.
func (w *WorkingMemory) trim(n int) bool {
	if n < 0 || len(w.RecentEvents) <= n {
		return false
	}
	kept := make([]CognitiveEvent, n)
	copy(kept, w.RecentEvents[len(w.RecentEvents)-n:])
	w.RecentEvents = kept
	return true
}

// find returns the event with the given id.
func (w *WorkingMemory) find(id string) (CognitiveEvent, bool) {
	for _, ev := range w.RecentEvents {
		if ev.ID == id {
			return ev, true
		}
	}
	return CognitiveEvent{}, false
}

// recent returns a copy of the event window so collaborators cannot
// alias loop-owned state.
func (w *WorkingMemory) recent() []CognitiveEvent {
	out := make([]CognitiveEvent, len(w.RecentEvents))
	copy(out, w.RecentEvents)
	return out
}

func (w *WorkingMemory) goals() []Goal {
	out := make([]Goal, len(w.ActiveGoals))
	copy(out, w.ActiveGoals)
	return out
}

func (w *WorkingMemory) clear() {
	w.RecentEvents = nil
	w.CognitiveLoad = 0
}

// CognitiveLoad weighs recent events, goals and cached memories into [0,1].
func CognitiveLoad(events, goals, cached int) float64 {
	load := 0.02*float64(events) + 0.1*float64(goals) + 0.01*float64(cached)
	if load < 0 {
		return 0
	}
	if load > 1 {
		return 1
	}
	return load
}
