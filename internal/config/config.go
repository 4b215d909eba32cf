package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"github.com/Lang-lll/lll-cognitive-core/internal/memory"
	"github.com/Lang-lll/lll-cognitive-core/internal/provider"
	"github.com/Lang-lll/lll-cognitive-core/internal/recall"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig                `json:"server"`
	Core      CoreConfig                  `json:"core"`
	Persona   string                      `json:"persona"`
	Providers []ProviderConfig            `json:"providers"`
	Stages    map[string]provider.Binding `json:"stages"`
	Memory    MemoryConfig                `json:"memory"`
	Database  DatabaseConfig              `json:"database"`
	Bus       BusConfig                   `json:"bus"`
	Gateway   GatewayConfig               `json:"gateway"`
	Executor  ExecutorConfig              `json:"executor"`
	Rhythm    RhythmConfig                `json:"rhythm"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

// CoreConfig mirrors cognitive.Config. Zero values take the core defaults.
type CoreConfig struct {
	MaxEventsPerIteration       int      `json:"max_events_per_iteration"`
	LightConsolidationThreshold int      `json:"light_consolidation_threshold"`
	WorkingMemoryTrimSize       int      `json:"working_memory_trim_size"`
	DirectMemoryThreshold       int      `json:"direct_memory_threshold"`
	RecallTruncateLimit         int      `json:"recall_truncate_limit"`
	RecallTruncateMode          string   `json:"recall_truncate_mode"`
	QueueSize                   int      `json:"queue_size"`
	LoopInterval                Duration `json:"loop_interval"`
	WindDownTimeout             Duration `json:"wind_down_timeout"`
	StageTimeout                Duration `json:"stage_timeout"`
	AutoWake                    bool     `json:"auto_wake"`
}

type ProviderConfig struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Endpoint string            `json:"endpoint"`
	APIKey   string            `json:"api_key"`
	Extra    map[string]string `json:"extra,omitempty"`
	Timeout  Duration          `json:"timeout"`
	Default  bool              `json:"default"`
}

// MemoryConfig selects the durable memory manager.
type MemoryConfig struct {
	Backend       string `json:"backend"` // none|file|postgres|neo4j
	Dir           string `json:"dir"`
	KeywordPolicy string `json:"keyword_policy"` // intersect|union
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type BusConfig struct {
	Enabled  bool   `json:"enabled"`
	Inbound  string `json:"inbound"`
	Outbound string `json:"outbound"`
}

type GatewayConfig struct {
	Slack   SlackGatewayConfig   `json:"slack"`
	Discord DiscordGatewayConfig `json:"discord"`
	Name    string               `json:"name"`
	IconURL string               `json:"icon_url"`
	Emoji   string               `json:"emoji"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
}

type DiscordGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
}

type ExecutorConfig struct {
	HTTPURL string `json:"http_url"`
}

type RhythmConfig struct {
	WakeCron  string   `json:"wake_cron"`
	SleepCron string   `json:"sleep_cron"`
	Tick      Duration `json:"tick"`
}

// Duration is a time.Duration written as a string like "20ms" or "5s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err2 := json.Unmarshal(b, &n); err2 != nil {
			return fmt.Errorf("duration must be a string: %w", err)
		}
		*d = Duration(time.Duration(n) * time.Millisecond)
		return nil
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file, substitutes environment variable
// references and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config JSON after environment substitution.
func Parse(data []byte) (*Config, error) {
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "debug"
	}
	if c.Memory.Backend == "" {
		c.Memory.Backend = "none"
	}
	if c.Memory.Dir == "" {
		c.Memory.Dir = "memory"
	}
}

// Validate rejects values the components would otherwise misread.
func (c *Config) Validate() error {
	switch c.Memory.Backend {
	case "none", "file", "postgres", "neo4j":
	default:
		return fmt.Errorf("unknown memory backend %q", c.Memory.Backend)
	}
	switch c.Memory.KeywordPolicy {
	case "", string(memory.PolicyIntersect), string(memory.PolicyUnion):
	default:
		return fmt.Errorf("unknown keyword policy %q", c.Memory.KeywordPolicy)
	}
	switch c.Core.RecallTruncateMode {
	case "", string(recall.KeepFirst), string(recall.KeepLast):
	default:
		return fmt.Errorf("unknown recall truncate mode %q", c.Core.RecallTruncateMode)
	}
	if c.Memory.Backend == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("memory backend postgres needs database.postgres.dsn")
	}
	if c.Memory.Backend == "neo4j" && c.Database.Neo4j.URI == "" {
		return fmt.Errorf("memory backend neo4j needs database.neo4j.uri")
	}
	if c.Bus.Enabled && c.Database.Redis.URL == "" {
		return fmt.Errorf("bus needs database.redis.url")
	}
	valid := make(map[string]bool)
	for _, s := range cognitive.SlotNames() {
		valid[s] = true
	}
	for stage := range c.Stages {
		if !valid[stage] {
			return fmt.Errorf("stages: %w: %q", cognitive.ErrUnknownSlot, stage)
		}
	}
	return nil
}

// CoreConfig converts the core section to orchestrator settings.
func (c *Config) CoreConfig() cognitive.Config {
	return cognitive.Config{
		MaxEventsPerIteration:       c.Core.MaxEventsPerIteration,
		LightConsolidationThreshold: c.Core.LightConsolidationThreshold,
		WorkingMemoryTrimSize:       c.Core.WorkingMemoryTrimSize,
		DirectMemoryThreshold:       c.Core.DirectMemoryThreshold,
		RecallTruncateLimit:         c.Core.RecallTruncateLimit,
		RecallTruncateMode:          recall.ParseMode(c.Core.RecallTruncateMode),
		KeywordPolicy:               memory.ParseKeywordPolicy(c.Memory.KeywordPolicy),
		QueueSize:                   c.Core.QueueSize,
		LoopInterval:                c.Core.LoopInterval.Std(),
		WindDownTimeout:             c.Core.WindDownTimeout.Std(),
		StageTimeout:                c.Core.StageTimeout.Std(),
	}
}

// ProviderConfig converts a provider entry for provider.New.
func (p ProviderConfig) ProviderConfig() provider.Config {
	return provider.Config{
		ID:       p.ID,
		Type:     p.Type,
		Endpoint: p.Endpoint,
		APIKey:   p.APIKey,
		Extra:    p.Extra,
		Timeout:  p.Timeout.Std(),
	}
}
