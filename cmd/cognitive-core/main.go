package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/api"
	"github.com/Lang-lll/lll-cognitive-core/internal/bus"
	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"github.com/Lang-lll/lll-cognitive-core/internal/config"
	"github.com/Lang-lll/lll-cognitive-core/internal/gateway"
	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
	"github.com/Lang-lll/lll-cognitive-core/internal/plugins"
	"github.com/Lang-lll/lll-cognitive-core/internal/provider"
	"github.com/Lang-lll/lll-cognitive-core/internal/rhythm"
	pgstore "github.com/Lang-lll/lll-cognitive-core/internal/store"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer func() { logger.Sync() }()

	logger.Info("Starting cognitive core...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/cognitive.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	if l, err := newLogger(cfg.Server.LogLevel); err != nil {
		logger.Warn("invalid log level, keeping development logger", zap.String("level", cfg.Server.LogLevel), zap.Error(err))
	} else {
		logger.Sync()
		logger = l
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core := cognitive.New(cfg.CoreConfig(), logger)

	// Initialize provider router and the model-backed stages
	router := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		p, err := provider.New(pc.ProviderConfig(), logger)
		if err != nil {
			logger.Warn("skipping provider", zap.String("id", pc.ID), zap.Error(err))
			continue
		}
		router.Register(p)
		if pc.Default {
			router.SetDefault(pc.ID)
		}
	}
	for stage, b := range cfg.Stages {
		router.Bind(stage, b)
	}
	if len(router.ProviderIDs()) > 0 {
		var opts plugins.Options
		if cfg.Persona != "" {
			opts.PreMessages = []provider.Message{{Role: "system", Content: cfg.Persona}}
		}
		core.RegisterPlugins(plugins.LLMPlugins(router, opts, logger))
	} else {
		logger.Warn("no providers configured, running without model stages")
	}

	// Initialize memory manager
	var closers []func()
	switch cfg.Memory.Backend {
	case "file":
		fs, err := memory.NewFileStore(cfg.Memory.Dir, logger)
		if err != nil {
			logger.Fatal("file memory store", zap.String("dir", cfg.Memory.Dir), zap.Error(err))
		}
		core.RegisterPlugin(cognitive.SlotMemoryManager, fs)
	case "postgres":
		ps, err := pgstore.New(ctx, cfg.Database.Postgres.DSN, logger)
		if err != nil {
			logger.Warn("PostgreSQL unavailable, running without long-term memory", zap.Error(err))
			break
		}
		if err := ps.Migrate(ctx, pgstore.Migrations); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		core.RegisterPlugin(cognitive.SlotMemoryManager, ps)
		closers = append(closers, ps.Close)
	case "neo4j":
		gs, err := memory.NewGraphStore(cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if err == nil {
			err = gs.Ping(ctx)
		}
		if err != nil {
			logger.Warn("Neo4j unavailable, running without long-term memory", zap.Error(err))
			break
		}
		if err := gs.EnsureSchema(ctx); err != nil {
			logger.Warn("neo4j schema setup failed", zap.Error(err))
		}
		core.RegisterPlugin(cognitive.SlotMemoryManager, gs)
		closers = append(closers, func() { gs.Close(context.Background()) })
	}

	// Initialize gateway
	gw := gateway.NewGateway(core, logger)
	persona := &gateway.Persona{Name: cfg.Gateway.Name, IconURL: cfg.Gateway.IconURL, Emoji: cfg.Gateway.Emoji}
	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, persona, logger))
	}
	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, persona, logger))
	}
	if err := gw.ConnectAll(ctx); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	// Behavior executors
	executors := plugins.MultiExecutor{}
	if len(gw.Adapters()) > 0 {
		executors = append(executors, gw)
	}
	if cfg.Executor.HTTPURL != "" {
		executors = append(executors, plugins.NewHTTPExecutor(cfg.Executor.HTTPURL, logger))
	}

	// Initialize event bus
	var eventBus *bus.Bus
	if cfg.Bus.Enabled {
		b, err := bus.New(cfg.Database.Redis.URL, cfg.Bus.Inbound, cfg.Bus.Outbound, logger)
		if err != nil {
			logger.Warn("Redis unavailable, running without event bus", zap.Error(err))
		} else {
			eventBus = b
			executors = append(executors, b)
			go b.Run(ctx, core)
			logger.Info("Event bus started")
		}
	}
	if len(executors) > 0 {
		core.RegisterPlugin(cognitive.SlotBehaviorExecution, executors)
	}

	// Daily rhythm
	var sched *rhythm.Scheduler
	if cfg.Rhythm.WakeCron != "" || cfg.Rhythm.SleepCron != "" {
		s, err := rhythm.New(cfg.Rhythm.WakeCron, cfg.Rhythm.SleepCron, cfg.Rhythm.Tick.Std(), core, logger)
		if err != nil {
			logger.Fatal("invalid rhythm", zap.Error(err))
		}
		s.Start(ctx)
		sched = s
	}

	if cfg.Core.AutoWake {
		core.WakeUp()
	}

	handler := api.NewHandler(core, gw, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Cognitive core listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down cognitive core...")
	if sched != nil {
		sched.Stop()
	}

	// Let the final consolidation reach the memory manager before stores close.
	core.Sleep()
	idleCtx, idleCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := core.WaitIdle(idleCtx); err != nil {
		logger.Warn("consolidation did not finish before shutdown", zap.Error(err))
	}
	idleCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	srv.Shutdown(shutdownCtx)
	shutdownCancel()

	cancel()
	if eventBus != nil {
		eventBus.Close()
	}
	gw.Close()
	for _, c := range closers {
		c()
	}
}

// newLogger keeps the development logger at debug level and switches to
// the production encoder otherwise.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	return zc.Build()
}
