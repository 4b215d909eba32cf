package cognitive

import (
	"context"
	"sort"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
	"github.com/Lang-lll/lll-cognitive-core/internal/recall"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// selfImportance is the importance given to events fed back from the
// agent's own actions.
const selfImportance = 50

// safeCall runs one collaborator stage with its own timeout. Errors and
// panics are logged and reported as false.
func (c *Core) safeCall(stage string, fn func(ctx context.Context) error) (ok bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StageTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("plugin panicked", zap.String("stage", stage), zap.Any("panic", r))
			ok = false
		}
	}()

	if err := fn(ctx); err != nil {
		c.logger.Warn("plugin failed", zap.String("stage", stage), zap.Error(err))
		return false
	}
	return true
}

func (c *Core) processEvent(raw RawEvent) {
	start := time.Now()
	defer func() {
		c.stats.EventsProcessed++
		c.recordTiming(time.Since(start))
	}()

	p := c.plugins.snapshot()
	if p.Understanding == nil {
		c.logger.Debug("no understanding plugin, event skipped", zap.String("type", raw.Type))
		return
	}

	var understood *UnderstoodData
	c.safeCall(SlotUnderstanding, func(ctx context.Context) error {
		u, err := p.Understanding.Understand(ctx, UnderstandInput{
			Event:        raw,
			RecentEvents: c.wm.recent(),
			ActiveGoals:  c.wm.goals(),
		})
		if err != nil {
			return err
		}
		understood = u
		return nil
	})
	if understood == nil {
		c.logger.Debug("event not understood", zap.String("type", raw.Type), zap.String("source", raw.Source))
		return
	}

	ev := CognitiveEvent{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Source:     raw.Source,
		Modality:   raw.Type,
		Raw:        raw,
		Understood: understood,
		Importance: understood.ImportanceScore,
	}
	c.wm.append(ev)
	c.wm.setSituation(understood.CurrentSituation)
	c.updateLoad()

	c.generateBehavior(p, understood)
}

func (c *Core) recordTiming(d time.Duration) {
	if c.stats.AverageProcessingTime == 0 {
		c.stats.AverageProcessingTime = d
		return
	}
	c.stats.AverageProcessingTime = time.Duration(0.9*float64(c.stats.AverageProcessingTime) + 0.1*float64(d))
}

func (c *Core) generateBehavior(p Plugins, understood *UnderstoodData) {
	if p.BehaviorGeneration == nil {
		return
	}

	memories := c.resolveMemories(p, understood.MemoryQueryPlan)

	var recallText string
	if len(memories) > c.cfg.DirectMemoryThreshold {
		var truncated bool
		memories, truncated = c.truncate(p, memories)
		if p.AssociativeRecall != nil {
			var res *RecallResult
			c.safeCall(SlotAssociativeRecall, func(ctx context.Context) error {
				r, err := p.AssociativeRecall.Recall(ctx, RecallInput{
					Situation:    c.wm.CurrentSituation,
					RecentEvents: c.wm.recent(),
					Memories:     memories,
					ActiveGoals:  c.wm.goals(),
					TooMany:      truncated,
				})
				if err != nil {
					return err
				}
				res = r
				return nil
			})
			if res != nil {
				recallText = res.RecalledEpisode
				c.wm.setSituation(res.CurrentSituation)
			}
		}
	}

	var plan *BehaviorPlan
	c.safeCall(SlotBehaviorGeneration, func(ctx context.Context) error {
		bp, err := p.BehaviorGeneration.Generate(ctx, BehaviorInput{
			Situation:    c.wm.CurrentSituation,
			RecentEvents: c.wm.recent(),
			Memories:     memories,
			RecallText:   recallText,
			ActiveGoals:  c.wm.goals(),
		})
		if err != nil {
			return err
		}
		plan = bp
		return nil
	})
	if plan == nil {
		return
	}

	c.wm.setSituation(plan.CurrentSituation)
	for _, action := range plan.Plan {
		c.executeAction(p, action)
	}
	c.updateLoad()
}

// resolveMemories loads the memories a query plan asks for, oldest first.
func (c *Core) resolveMemories(p Plugins, plan *MemoryQueryPlan) []memory.Record {
	if plan == nil {
		return nil
	}

	var records []memory.Record
	switch plan.QueryType {
	case QueryLongTermFresh:
		if p.MemoryManager == nil {
			c.logger.Debug("fresh memory query without memory manager")
			return nil
		}
		c.safeCall(SlotMemoryManager, func(ctx context.Context) error {
			r, err := p.MemoryManager.Query(ctx, plan.Query())
			if err != nil {
				return err
			}
			records = r
			return nil
		})
		c.cache.Save(records)
	case QueryLongTermCached:
		records = c.cache.Query(plan.Query())
	default:
		return nil
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records
}

func (c *Core) truncate(p Plugins, records []memory.Record) ([]memory.Record, bool) {
	if p.RecallTruncation != nil {
		var (
			out       []memory.Record
			truncated bool
		)
		ok := c.safeCall(SlotRecallTruncation, func(ctx context.Context) error {
			out, truncated = p.RecallTruncation.Truncate(ctx, records, c.cfg.RecallTruncateLimit, c.cfg.RecallTruncateMode)
			return nil
		})
		if ok {
			return out, truncated
		}
	}
	return recall.Truncate(records, c.cfg.RecallTruncateLimit, c.cfg.RecallTruncateMode)
}

// executeAction forwards an action to the executor and records it as a
// self event.
func (c *Core) executeAction(p Plugins, action Action) {
	if p.BehaviorExecution != nil {
		c.safeCall(SlotBehaviorExecution, func(ctx context.Context) error {
			return p.BehaviorExecution.Execute(ctx, action)
		})
	}

	now := time.Now()
	c.wm.append(CognitiveEvent{
		ID:        uuid.NewString(),
		Timestamp: now,
		Source:    SourceSelf,
		Modality:  action.Type,
		Raw: RawEvent{
			Type:      action.Type,
			Data:      action.Data,
			Source:    SourceSelf,
			Timestamp: now,
		},
		Understood: &UnderstoodData{
			EventType:       action.Type,
			MainContent:     action.Data,
			ImportanceScore: selfImportance,
		},
		Importance: selfImportance,
	})
}
