package cognitive

import (
	"context"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
	"go.uber.org/zap"
)

// lightConsolidate trims working memory to the most recent events. The
// episodic cache is left alone.
func (c *Core) lightConsolidate() {
	before := len(c.wm.RecentEvents)
	if !c.wm.trim(c.cfg.WorkingMemoryTrimSize) {
		return
	}
	c.stats.LastLightConsolidation = time.Now()
	c.logger.Debug("light consolidation",
		zap.Int("before", before),
		zap.Int("after", len(c.wm.RecentEvents)))
}

// deepConsolidate extracts long-term memories from working memory, saves
// them and clears all transient state. Failures are logged; transient
// state is cleared regardless.
func (c *Core) deepConsolidate() {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("deep consolidation panicked", zap.Any("panic", r))
		}
		c.wm.clear()
		c.cache.Clear()
		c.stats.LastDeepConsolidation = time.Now()
		c.stats.MemoryConsolidations++
		c.logger.Info("deep consolidation finished",
			zap.Duration("took", time.Since(start)),
			zap.Int64("consolidations", c.stats.MemoryConsolidations))
	}()

	p := c.plugins.snapshot()
	if p.MemoryExtraction == nil {
		c.logger.Debug("no memory extraction plugin, clearing working memory")
		return
	}

	var extracted []memory.ExtractedMemory
	ok := c.safeCall(SlotMemoryExtraction, func(ctx context.Context) error {
		ex, err := p.MemoryExtraction.Extract(ctx, ExtractionInput{
			Situation:    c.wm.CurrentSituation,
			RecentEvents: c.wm.recent(),
			ActiveGoals:  c.wm.goals(),
		})
		if err != nil {
			return err
		}
		extracted = ex
		return nil
	})
	if !ok {
		return
	}

	records := c.buildRecords(extracted)
	c.logger.Info("memories extracted",
		zap.Int("extracted", len(extracted)),
		zap.Int("matched", len(records)))
	if len(records) == 0 || p.MemoryManager == nil {
		return
	}
	c.safeCall(SlotMemoryManager, func(ctx context.Context) error {
		return p.MemoryManager.Save(ctx, records)
	})
}

// buildRecords matches extraction results to working-memory events.
// Results without a matching event are dropped.
func (c *Core) buildRecords(extracted []memory.ExtractedMemory) []memory.Record {
	var records []memory.Record
	for _, ex := range extracted {
		ev, ok := c.wm.find(ex.ID)
		if !ok {
			c.logger.Debug("extracted memory has no matching event", zap.String("id", ex.ID))
			continue
		}
		var entities []string
		if ev.Understood != nil {
			entities = ev.Understood.KeyEntities
		}
		records = append(records, memory.Record{
			ID:           ev.ID,
			Content:      ex.Content,
			Importance:   ex.Importance,
			Keywords:     ex.Keywords,
			Associations: ex.Associations,
			Timestamp:    ev.Timestamp,
			Entities:     entities,
			Source:       ev.Source,
		})
	}
	return records
}
