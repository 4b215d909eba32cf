// Package cognitive implements the always-on cognitive orchestrator: event
// ingestion, working memory, the per-event reasoning pipeline and memory
// consolidation across wake cycles.
package cognitive

import (
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
)

// Status is the orchestrator lifecycle state.
type Status int32

const (
	Awaiting Status = iota
	Aware
	WindingDown
	Dreaming
)

func (s Status) String() string {
	switch s {
	case Awaiting:
		return "awaiting"
	case Aware:
		return "aware"
	case WindingDown:
		return "winding_down"
	case Dreaming:
		return "dreaming"
	default:
		return "unknown"
	}
}

// Well-known modalities. Callers may use any other type string.
const (
	ModalitySpeechIn  = "speech-in"
	ModalitySpeechOut = "speech-out"
	ModalityMotion    = "motion"
	ModalityVision    = "vision"
	ModalitySensor    = "sensor"
	ModalitySystem    = "system"
)

// SourceSelf marks events produced by the agent's own actions.
const SourceSelf = "self"

// Memory query plan types.
const (
	QueryNone           = "none"
	QueryLongTermFresh  = "long_term_fresh"
	QueryLongTermCached = "long_term_cached"
)

// RawEvent is an event as handed in by a producer.
type RawEvent struct {
	Type      string    `json:"type"`
	Data      string    `json:"data"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// MemoryQueryPlan tells the behavior pipeline which episodic memories to load.
type MemoryQueryPlan struct {
	QueryType     string   `json:"query_type"`
	TimeRange     []string `json:"time_range,omitempty"`
	QueryTriggers []string `json:"query_triggers,omitempty"`
	Associations  []string `json:"associations,omitempty"`
	ImportanceMin float64  `json:"importance_min,omitempty"`
}

// Query converts the plan to a memory query.
func (p *MemoryQueryPlan) Query() memory.Query {
	return memory.Query{
		DateRange:     p.TimeRange,
		ImportanceMin: p.ImportanceMin,
		Keywords:      p.QueryTriggers,
		Associations:  p.Associations,
	}
}

// UnderstoodData is the structured result of event understanding.
type UnderstoodData struct {
	EventType        string           `json:"event_type"`
	MainContent      string           `json:"main_content"`
	CurrentSituation string           `json:"current_situation,omitempty"`
	EventEntity      string           `json:"event_entity,omitempty"`
	KeyEntities      []string         `json:"key_entities,omitempty"`
	ImportanceScore  float64          `json:"importance_score"`
	ResponsePriority string           `json:"response_priority,omitempty"`
	ExpectedResponse string           `json:"expected_response,omitempty"`
	MemoryQueryPlan  *MemoryQueryPlan `json:"memory_query_plan,omitempty"`
}

// CognitiveEvent is an understood event held in working memory.
// It is never modified after creation.
type CognitiveEvent struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Source     string          `json:"source"`
	Modality   string          `json:"modality"`
	Raw        RawEvent        `json:"raw"`
	Understood *UnderstoodData `json:"understood,omitempty"`
	Importance float64         `json:"importance"`
}

// Goal is an active objective of the agent.
type Goal struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	Description     string     `json:"description"`
	Priority        int        `json:"priority"`
	Status          string     `json:"status"`
	Subgoals        []string   `json:"subgoals,omitempty"`
	Constraints     []string   `json:"constraints,omitempty"`
	SuccessCriteria []string   `json:"success_criteria,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Deadline        *time.Time `json:"deadline,omitempty"`
}

// Action is one step of a behavior plan.
type Action struct {
	Type   string         `json:"type"`
	Data   string         `json:"data"`
	Target string         `json:"target,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// BehaviorPlan is the output of behavior generation.
type BehaviorPlan struct {
	CurrentSituation string   `json:"current_situation,omitempty"`
	Plan             []Action `json:"plan"`
}

// RecallResult is the output of associative recall.
type RecallResult struct {
	RecalledEpisode  string `json:"recalled_episode"`
	CurrentSituation string `json:"current_situation,omitempty"`
}

// ProcessingStats are running counters of the orchestrator.
type ProcessingStats struct {
	EventsProcessed        int64         `json:"events_processed"`
	EventsDropped          int64         `json:"events_dropped"`
	MemoryConsolidations   int64         `json:"memory_consolidations"`
	AverageProcessingTime  time.Duration `json:"average_processing_time"`
	LastDeepConsolidation  time.Time     `json:"last_deep_consolidation,omitempty"`
	LastLightConsolidation time.Time     `json:"last_light_consolidation,omitempty"`
	SessionStart           time.Time     `json:"session_start,omitempty"`
}

// SystemStatus is an immutable snapshot of the orchestrator.
type SystemStatus struct {
	Status             string          `json:"status"`
	CurrentSituation   string          `json:"current_situation"`
	CognitiveLoad      float64         `json:"cognitive_load"`
	WorkingMemoryCount int             `json:"working_memory_count"`
	EpisodicCacheCount int             `json:"episodic_cache_count"`
	ActiveGoals        int             `json:"active_goals"`
	ProcessingStats    ProcessingStats `json:"processing_stats"`
}
