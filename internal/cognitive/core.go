package cognitive

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
	"github.com/Lang-lll/lll-cognitive-core/internal/recall"
	"go.uber.org/zap"
)

// Config holds the orchestrator knobs. Zero values take defaults.
type Config struct {
	MaxEventsPerIteration       int
	LightConsolidationThreshold int
	WorkingMemoryTrimSize       int
	DirectMemoryThreshold       int
	RecallTruncateLimit         int
	RecallTruncateMode          recall.Mode
	KeywordPolicy               memory.KeywordPolicy
	QueueSize                   int
	LoopInterval                time.Duration
	WindDownTimeout             time.Duration
	StageTimeout                time.Duration
}

// DefaultConfig returns the stock orchestrator settings.
func DefaultConfig() Config {
	return Config{
		MaxEventsPerIteration:       10,
		LightConsolidationThreshold: 50,
		WorkingMemoryTrimSize:       25,
		DirectMemoryThreshold:       5,
		RecallTruncateLimit:         30,
		RecallTruncateMode:          recall.KeepLast,
		KeywordPolicy:               memory.PolicyIntersect,
		QueueSize:                   1024,
		LoopInterval:                20 * time.Millisecond,
		WindDownTimeout:             5 * time.Second,
		StageTimeout:                2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxEventsPerIteration <= 0 {
		c.MaxEventsPerIteration = d.MaxEventsPerIteration
	}
	if c.LightConsolidationThreshold <= 0 {
		c.LightConsolidationThreshold = d.LightConsolidationThreshold
	}
	if c.WorkingMemoryTrimSize <= 0 {
		c.WorkingMemoryTrimSize = d.WorkingMemoryTrimSize
	}
	if c.DirectMemoryThreshold <= 0 {
		c.DirectMemoryThreshold = d.DirectMemoryThreshold
	}
	if c.RecallTruncateLimit <= 0 {
		c.RecallTruncateLimit = d.RecallTruncateLimit
	}
	if c.RecallTruncateMode == "" {
		c.RecallTruncateMode = d.RecallTruncateMode
	}
	if c.KeywordPolicy == "" {
		c.KeywordPolicy = d.KeywordPolicy
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.LoopInterval <= 0 {
		c.LoopInterval = d.LoopInterval
	}
	if c.WindDownTimeout <= 0 {
		c.WindDownTimeout = d.WindDownTimeout
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = d.StageTimeout
	}
	return c
}

type snapshot struct {
	status SystemStatus
	recent []CognitiveEvent
	goals  []Goal
}

// Core is the cognitive orchestrator. Working memory, the episodic cache
// and the processing stats belong to the loop goroutine; every exported
// method is safe for concurrent use.
type Core struct {
	cfg     Config
	logger  *zap.Logger
	plugins registry

	status  atomic.Int32
	stateMu sync.RWMutex // held for writing on every status transition
	queue   chan RawEvent
	wake    chan struct{}
	done    chan struct{}
	dream   chan struct{}

	pendingGoals atomic.Pointer[[]Goal]
	dropped      atomic.Int64
	published    atomic.Pointer[snapshot]

	// loop-owned
	wm    WorkingMemory
	cache *memory.Cache
	stats ProcessingStats
}

// New creates an orchestrator in the Awaiting state.
func New(cfg Config, logger *zap.Logger) *Core {
	cfg = cfg.withDefaults()
	c := &Core{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan RawEvent, cfg.QueueSize),
		wake:   make(chan struct{}, 1),
		cache:  memory.NewCache(cfg.KeywordPolicy),
	}
	c.publish()
	return c
}

// Config returns the effective configuration.
func (c *Core) Config() Config { return c.cfg }

// RegisterPlugin fills a collaborator slot. Unknown slots and values that
// do not implement the slot's interface are rejected without changing state.
func (c *Core) RegisterPlugin(slot string, impl any) error {
	if err := c.plugins.register(slot, impl); err != nil {
		c.logger.Error("plugin registration rejected", zap.String("slot", slot), zap.Error(err))
		return err
	}
	c.logger.Info("plugin registered", zap.String("slot", slot))
	return nil
}

// RegisterPlugins fills every non-nil slot of p.
func (c *Core) RegisterPlugins(p Plugins) {
	if p.Understanding != nil {
		c.RegisterPlugin(SlotUnderstanding, p.Understanding)
	}
	if p.AssociativeRecall != nil {
		c.RegisterPlugin(SlotAssociativeRecall, p.AssociativeRecall)
	}
	if p.BehaviorGeneration != nil {
		c.RegisterPlugin(SlotBehaviorGeneration, p.BehaviorGeneration)
	}
	if p.MemoryExtraction != nil {
		c.RegisterPlugin(SlotMemoryExtraction, p.MemoryExtraction)
	}
	if p.MemoryManager != nil {
		c.RegisterPlugin(SlotMemoryManager, p.MemoryManager)
	}
	if p.RecallTruncation != nil {
		c.RegisterPlugin(SlotRecallTruncation, p.RecallTruncation)
	}
	if p.BehaviorExecution != nil {
		c.RegisterPlugin(SlotBehaviorExecution, p.BehaviorExecution)
	}
}

// Plugins lists the filled slot names.
func (c *Core) Plugins() []string {
	return c.plugins.filled()
}

// State returns the current lifecycle state.
func (c *Core) State() Status {
	return Status(c.status.Load())
}

// WakeUp moves Awaiting to Aware and starts the loop. It is a no-op in any
// other state.
func (c *Core) WakeUp() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.State() != Awaiting {
		return
	}
	c.status.Store(int32(Aware))
	c.done = make(chan struct{})
	c.dream = make(chan struct{})
	start := time.Now()
	go c.loop(start, c.dream, c.done)
	c.logger.Info("cognitive core awake", zap.Time("session_start", start))
}

// Sleep moves Aware to WindingDown and waits until the queue is drained
// and consolidation has begun, or until the wind-down timeout elapses.
// It is a no-op in any other state.
func (c *Core) Sleep() {
	c.stateMu.Lock()
	if c.State() != Aware {
		c.stateMu.Unlock()
		return
	}
	c.status.Store(int32(WindingDown))
	dream, done := c.dream, c.done
	c.stateMu.Unlock()

	c.logger.Info("cognitive core winding down", zap.Int("queued", len(c.queue)))
	c.signal()

	timer := time.NewTimer(c.cfg.WindDownTimeout)
	defer timer.Stop()
	select {
	case <-dream:
	case <-done:
	case <-timer.C:
		c.logger.Warn("wind-down still draining after timeout",
			zap.Duration("timeout", c.cfg.WindDownTimeout),
			zap.Int("queued", len(c.queue)))
	}
}

// WaitIdle blocks until the current loop, if any, has exited.
func (c *Core) WaitIdle(ctx context.Context) error {
	c.stateMu.RLock()
	done := c.done
	c.stateMu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReceiveEvent enqueues a raw event. Events without a type or data, events
// arriving outside Aware and events hitting a full queue are dropped.
func (c *Core) ReceiveEvent(eventType, data, source string) {
	if eventType == "" || data == "" {
		c.drop("malformed", eventType, source)
		return
	}

	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if c.State() != Aware {
		c.drop("not aware", eventType, source)
		return
	}
	select {
	case c.queue <- RawEvent{Type: eventType, Data: data, Source: source, Timestamp: time.Now()}:
		c.signal()
	default:
		c.drop("queue full", eventType, source)
	}
}

// SetGoals replaces the active goals. They are applied by the loop before
// its next iteration.
func (c *Core) SetGoals(goals []Goal) {
	cp := make([]Goal, len(goals))
	copy(cp, goals)
	c.pendingGoals.Store(&cp)
	c.signal()
}

// Status returns the latest published snapshot.
func (c *Core) Status() SystemStatus {
	s := c.published.Load().status
	s.Status = c.State().String()
	s.ProcessingStats.EventsDropped = c.dropped.Load()
	return s
}

// RecentEvents returns the working-memory events as of the last snapshot.
func (c *Core) RecentEvents() []CognitiveEvent {
	return c.published.Load().recent
}

// ActiveGoals returns the goals as of the last snapshot.
func (c *Core) ActiveGoals() []Goal {
	return c.published.Load().goals
}

func (c *Core) drop(reason, eventType, source string) {
	c.dropped.Add(1)
	c.logger.Debug("event dropped",
		zap.String("reason", reason),
		zap.String("type", eventType),
		zap.String("source", source))
}

func (c *Core) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Core) loop(start time.Time, dream, done chan struct{}) {
	c.stats.SessionStart = start
	timer := time.NewTimer(c.cfg.LoopInterval)
	defer timer.Stop()

	for {
		c.applyGoals()
		c.processBatch()
		if len(c.wm.RecentEvents) > c.cfg.LightConsolidationThreshold {
			c.lightConsolidate()
		}
		c.wm.ActiveDuration = time.Since(start)
		c.updateLoad()
		c.publish()

		if c.readyToDream() {
			break
		}

		timer.Reset(c.cfg.LoopInterval)
		select {
		case <-c.wake:
		case <-timer.C:
		}
	}

	close(dream)
	c.publish()
	c.deepConsolidate()

	c.logger.Info("cognitive core awaiting",
		zap.Int64("events_processed", c.stats.EventsProcessed),
		zap.Int64("memory_consolidations", c.stats.MemoryConsolidations))

	// Nothing loop-owned may be touched after Awaiting is visible: the next
	// WakeUp starts a new loop on the same state.
	c.stateMu.Lock()
	c.status.Store(int32(Awaiting))
	c.publish()
	c.stateMu.Unlock()
	close(done)
}

func (c *Core) applyGoals() {
	if g := c.pendingGoals.Swap(nil); g != nil {
		c.wm.ActiveGoals = *g
	}
}

func (c *Core) processBatch() {
	for i := 0; i < c.cfg.MaxEventsPerIteration; i++ {
		select {
		case raw := <-c.queue:
			c.processEvent(raw)
		default:
			return
		}
	}
}

// readyToDream moves WindingDown to Dreaming once the queue is empty.
func (c *Core) readyToDream() bool {
	if c.State() != WindingDown {
		return false
	}
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if len(c.queue) > 0 {
		return false
	}
	c.status.Store(int32(Dreaming))
	c.logger.Info("cognitive core dreaming", zap.Int("recent_events", len(c.wm.RecentEvents)))
	return true
}

func (c *Core) updateLoad() {
	c.wm.CognitiveLoad = CognitiveLoad(len(c.wm.RecentEvents), len(c.wm.ActiveGoals), c.cache.Len())
}

func (c *Core) publish() {
	c.published.Store(&snapshot{
		status: SystemStatus{
			Status:             c.State().String(),
			CurrentSituation:   c.wm.CurrentSituation,
			CognitiveLoad:      c.wm.CognitiveLoad,
			WorkingMemoryCount: len(c.wm.RecentEvents),
			EpisodicCacheCount: c.cache.Len(),
			ActiveGoals:        len(c.wm.ActiveGoals),
			ProcessingStats:    c.stats,
		},
		recent: c.wm.recent(),
		goals:  c.wm.goals(),
	})
}
