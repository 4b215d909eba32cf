package cognitive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
	"github.com/Lang-lll/lll-cognitive-core/internal/recall"
)

// Slot names accepted by RegisterPlugin.
const (
	SlotUnderstanding      = "event_understanding"
	SlotAssociativeRecall  = "associative_recall"
	SlotBehaviorGeneration = "behavior_generation"
	SlotMemoryExtraction   = "memory_extraction"
	SlotMemoryManager      = "memory_manager"
	SlotRecallTruncation   = "recall_truncation"
	SlotBehaviorExecution  = "behavior_execution"
)

var (
	ErrUnknownSlot = errors.New("unknown plugin slot")
	ErrSlotType    = errors.New("plugin does not implement slot interface")
)

// UnderstandInput is handed to the understanding stage.
type UnderstandInput struct {
	Event        RawEvent
	RecentEvents []CognitiveEvent
	ActiveGoals  []Goal
}

// RecallInput is handed to the associative-recall stage. TooMany reports
// that Memories was truncated.
type RecallInput struct {
	Situation    string
	RecentEvents []CognitiveEvent
	Memories     []memory.Record
	ActiveGoals  []Goal
	TooMany      bool
}

// BehaviorInput is handed to behavior generation.
type BehaviorInput struct {
	Situation    string
	RecentEvents []CognitiveEvent
	Memories     []memory.Record
	RecallText   string
	ActiveGoals  []Goal
}

// ExtractionInput is handed to memory extraction at deep consolidation.
type ExtractionInput struct {
	Situation    string
	RecentEvents []CognitiveEvent
	ActiveGoals  []Goal
}

// Understander turns a raw event into structured data. A nil result with a
// nil error means the event is not worth keeping.
type Understander interface {
	Understand(ctx context.Context, in UnderstandInput) (*UnderstoodData, error)
}

// Recaller condenses a memory set into a recalled episode.
type Recaller interface {
	Recall(ctx context.Context, in RecallInput) (*RecallResult, error)
}

// BehaviorGenerator plans the agent's next actions.
type BehaviorGenerator interface {
	Generate(ctx context.Context, in BehaviorInput) (*BehaviorPlan, error)
}

// MemoryExtractor picks the events worth remembering long term.
type MemoryExtractor interface {
	Extract(ctx context.Context, in ExtractionInput) ([]memory.ExtractedMemory, error)
}

// BehaviorExecutor carries out a single action.
type BehaviorExecutor interface {
	Execute(ctx context.Context, action Action) error
}

// UnderstanderFunc adapts a function to Understander.
type UnderstanderFunc func(ctx context.Context, in UnderstandInput) (*UnderstoodData, error)

func (f UnderstanderFunc) Understand(ctx context.Context, in UnderstandInput) (*UnderstoodData, error) {
	return f(ctx, in)
}

// ExecutorFunc adapts a function to BehaviorExecutor.
type ExecutorFunc func(ctx context.Context, action Action) error

func (f ExecutorFunc) Execute(ctx context.Context, action Action) error {
	return f(ctx, action)
}

// Plugins is the set of optional collaborators. A nil field means the
// stage is skipped.
type Plugins struct {
	Understanding      Understander
	AssociativeRecall  Recaller
	BehaviorGeneration BehaviorGenerator
	MemoryExtraction   MemoryExtractor
	MemoryManager      memory.Manager
	RecallTruncation   recall.Policy
	BehaviorExecution  BehaviorExecutor
}

// registry guards Plugins so slots can be filled while the loop runs.
type registry struct {
	mu      sync.RWMutex
	plugins Plugins
}

func (r *registry) register(slot string, impl any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &r.plugins
	var ok bool
	switch slot {
	case SlotUnderstanding:
		p.Understanding, ok = assign[Understander](p.Understanding, impl)
	case SlotAssociativeRecall:
		p.AssociativeRecall, ok = assign[Recaller](p.AssociativeRecall, impl)
	case SlotBehaviorGeneration:
		p.BehaviorGeneration, ok = assign[BehaviorGenerator](p.BehaviorGeneration, impl)
	case SlotMemoryExtraction:
		p.MemoryExtraction, ok = assign[MemoryExtractor](p.MemoryExtraction, impl)
	case SlotMemoryManager:
		p.MemoryManager, ok = assign[memory.Manager](p.MemoryManager, impl)
	case SlotRecallTruncation:
		p.RecallTruncation, ok = assign[recall.Policy](p.RecallTruncation, impl)
	case SlotBehaviorExecution:
		p.BehaviorExecution, ok = assign[BehaviorExecutor](p.BehaviorExecution, impl)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	if !ok {
		return fmt.Errorf("%w: %q got %T", ErrSlotType, slot, impl)
	}
	return nil
}

// assign returns impl as T, or the current value and false when impl does
// not implement T.
func assign[T any](current T, impl any) (T, bool) {
	v, ok := impl.(T)
	if !ok {
		return current, false
	}
	return v, true
}

func (r *registry) snapshot() Plugins {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plugins
}

// filled lists the slot names that currently hold a collaborator.
func (r *registry) filled() []string {
	p := r.snapshot()
	set := map[string]bool{
		SlotUnderstanding:      p.Understanding != nil,
		SlotAssociativeRecall:  p.AssociativeRecall != nil,
		SlotBehaviorGeneration: p.BehaviorGeneration != nil,
		SlotMemoryExtraction:   p.MemoryExtraction != nil,
		SlotMemoryManager:      p.MemoryManager != nil,
		SlotRecallTruncation:   p.RecallTruncation != nil,
		SlotBehaviorExecution:  p.BehaviorExecution != nil,
	}
	var out []string
	for name, ok := range set {
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// SlotNames returns every valid slot name.
func SlotNames() []string {
	return []string{
		SlotUnderstanding, SlotAssociativeRecall, SlotBehaviorGeneration,
		SlotMemoryExtraction, SlotMemoryManager, SlotRecallTruncation,
		SlotBehaviorExecution,
	}
}
