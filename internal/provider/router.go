package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrNoProvider is returned when neither the stage binding nor the default
// resolves to a registered provider.
var ErrNoProvider = errors.New("no provider available")

// Binding pins a reasoning stage to a provider and model.
type Binding struct {
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature float64  `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Fallbacks   []string `json:"fallbacks,omitempty"`
}

// Router sends each stage's requests to its bound provider, falling back
// along the stage's chain on failure.
type Router struct {
	providers map[string]Provider
	bindings  map[string]Binding // stage -> binding
	defaults  string             // default provider ID
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRouter creates a new provider router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		providers: make(map[string]Provider),
		bindings:  make(map[string]Binding),
		logger:    logger,
	}
}

// Register adds a provider. The first one registered becomes the default.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
	if r.defaults == "" {
		r.defaults = p.ID()
	}
	r.logger.Info("registered provider", zap.String("id", p.ID()))
}

// SetDefault sets the default provider.
func (r *Router) SetDefault(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = providerID
}

// Bind associates a stage with a provider binding.
func (r *Router) Bind(stage string, b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[stage] = b
}

// Route sends req for stage. Empty model and sampling fields are filled
// from the stage binding.
func (r *Router) Route(ctx context.Context, stage string, req *ChatRequest) (*ChatResponse, error) {
	r.mu.RLock()
	b := r.bindings[stage]
	chain := r.chain(b)
	r.mu.RUnlock()

	if len(chain) == 0 {
		return nil, fmt.Errorf("%w for stage %s", ErrNoProvider, stage)
	}

	call := *req
	if call.Model == "" {
		call.Model = b.Model
	}
	if call.Temperature == 0 {
		call.Temperature = b.Temperature
	}
	if call.MaxTokens == 0 {
		call.MaxTokens = b.MaxTokens
	}

	var err error
	for i, p := range chain {
		var resp *ChatResponse
		resp, err = p.Chat(ctx, &call)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("stage %s: %w", stage, err)
		}
		if i < len(chain)-1 {
			r.logger.Warn("provider failed, trying fallback",
				zap.String("stage", stage),
				zap.String("provider", p.ID()),
				zap.Error(err))
		}
	}
	return nil, fmt.Errorf("all providers failed for stage %s: %w", stage, err)
}

// chain resolves the primary provider followed by its fallbacks. Caller
// holds r.mu.
func (r *Router) chain(b Binding) []Provider {
	var out []Provider
	primary := b.Provider
	if _, ok := r.providers[primary]; !ok {
		primary = r.defaults
	}
	if p, ok := r.providers[primary]; ok {
		out = append(out, p)
	}
	for _, id := range b.Fallbacks {
		if p, ok := r.providers[id]; ok && id != primary {
			out = append(out, p)
		}
	}
	return out
}

// GetProvider returns a provider by ID.
func (r *Router) GetProvider(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// ProviderIDs returns the registered provider IDs, sorted.
func (r *Router) ProviderIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
