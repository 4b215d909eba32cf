package plugins

import (
	"context"

	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
	"go.uber.org/zap"
)

// Understanding is the LLM-backed event understanding stage.
type Understanding struct{ stage *llmStage }

func NewUnderstanding(chat Chatter, opts Options, logger *zap.Logger) *Understanding {
	return &Understanding{newStage(cognitive.SlotUnderstanding, understandSystem, understandTask, chat, opts, logger)}
}

func (u *Understanding) Understand(ctx context.Context, in cognitive.UnderstandInput) (*cognitive.UnderstoodData, error) {
	var out cognitive.UnderstoodData
	if err := u.stage.ask(ctx, in, &out); err != nil {
		return nil, err
	}
	if out.MainContent == "" {
		out.MainContent = in.Event.Data
	}
	return &out, nil
}

// Recall is the LLM-backed associative recall stage.
type Recall struct{ stage *llmStage }

func NewRecall(chat Chatter, opts Options, logger *zap.Logger) *Recall {
	return &Recall{newStage(cognitive.SlotAssociativeRecall, recallSystem, recallTask, chat, opts, logger)}
}

func (r *Recall) Recall(ctx context.Context, in cognitive.RecallInput) (*cognitive.RecallResult, error) {
	var out cognitive.RecallResult
	if err := r.stage.ask(ctx, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Behavior is the LLM-backed behavior generation stage.
type Behavior struct{ stage *llmStage }

func NewBehavior(chat Chatter, opts Options, logger *zap.Logger) *Behavior {
	return &Behavior{newStage(cognitive.SlotBehaviorGeneration, behaviorSystem, behaviorTask, chat, opts, logger)}
}

func (b *Behavior) Generate(ctx context.Context, in cognitive.BehaviorInput) (*cognitive.BehaviorPlan, error) {
	var out cognitive.BehaviorPlan
	if err := b.stage.ask(ctx, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Extraction is the LLM-backed memory extraction stage.
type Extraction struct{ stage *llmStage }

func NewExtraction(chat Chatter, opts Options, logger *zap.Logger) *Extraction {
	return &Extraction{newStage(cognitive.SlotMemoryExtraction, extractionSystem, extractionTask, chat, opts, logger)}
}

func (e *Extraction) Extract(ctx context.Context, in cognitive.ExtractionInput) ([]memory.ExtractedMemory, error) {
	if len(in.RecentEvents) == 0 {
		return nil, nil
	}
	var out struct {
		Memories []memory.ExtractedMemory `json:"memories"`
	}
	if err := e.stage.ask(ctx, in, &out); err != nil {
		return nil, err
	}
	return out.Memories, nil
}

// LLMPlugins builds all four reasoning stages on one router.
func LLMPlugins(chat Chatter, opts Options, logger *zap.Logger) cognitive.Plugins {
	return cognitive.Plugins{
		Understanding:      NewUnderstanding(chat, opts, logger),
		AssociativeRecall:  NewRecall(chat, opts, logger),
		BehaviorGeneration: NewBehavior(chat, opts, logger),
		MemoryExtraction:   NewExtraction(chat, opts, logger),
	}
}
