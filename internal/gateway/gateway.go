package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"go.uber.org/zap"
)

// ErrNoConversation is returned when a reply has no target and nobody has
// spoken to the agent yet.
var ErrNoConversation = errors.New("no active conversation")

// Receiver accepts raw events. *cognitive.Core implements it.
type Receiver interface {
	ReceiveEvent(eventType, data, source string)
}

type conversation struct {
	platform  string
	channelID string
	replyTo   string
}

// Gateway turns chat messages into speech-in events and delivers the
// agent's speech back to the platform it came from.
type Gateway struct {
	adapters map[string]Adapter
	receiver Receiver
	last     *conversation
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewGateway creates a gateway feeding r.
func NewGateway(r Receiver, logger *zap.Logger) *Gateway {
	return &Gateway{
		adapters: make(map[string]Adapter),
		receiver: r,
		logger:   logger,
	}
}

// Register adds an adapter and wires its message handler.
func (g *Gateway) Register(adapter Adapter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	platform := adapter.Platform()
	g.adapters[platform] = adapter
	adapter.OnMessage(g.dispatch)
	g.logger.Info("registered gateway adapter", zap.String("platform", platform))
}

func (g *Gateway) dispatch(msg *InboundMessage) {
	if strings.TrimSpace(msg.Content) == "" {
		return
	}
	g.mu.Lock()
	g.last = &conversation{platform: msg.Platform, channelID: msg.ChannelID, replyTo: msg.ReplyTo}
	g.mu.Unlock()

	source := msg.Platform + ":" + msg.UserID
	g.logger.Debug("chat message received", zap.String("source", source), zap.String("channel", msg.ChannelID))
	g.receiver.ReceiveEvent(cognitive.ModalitySpeechIn, msg.Content, source)
}

// ConnectAll starts all registered adapters.
func (g *Gateway) ConnectAll(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for platform, adapter := range g.adapters {
		if err := adapter.Connect(ctx); err != nil {
			g.logger.Error("adapter connect failed",
				zap.String("platform", platform), zap.Error(err))
			return fmt.Errorf("connect %s: %w", platform, err)
		}
		g.logger.Info("adapter connected", zap.String("platform", platform))
	}
	return nil
}

// Execute delivers speech actions. Action.Target of the form
// "platform:channel" picks the destination; otherwise the reply goes to
// the last conversation. Other action types are ignored.
func (g *Gateway) Execute(ctx context.Context, action cognitive.Action) error {
	if action.Type != cognitive.ModalitySpeechOut && action.Type != "text" {
		return nil
	}

	out := &OutboundMessage{Content: action.Data}
	g.mu.RLock()
	if platform, channel, ok := strings.Cut(action.Target, ":"); ok && platform != "" && channel != "" {
		out.Platform, out.ChannelID = platform, channel
	} else if g.last != nil {
		out.Platform, out.ChannelID, out.ReplyTo = g.last.platform, g.last.channelID, g.last.replyTo
	}
	adapter, ok := g.adapters[out.Platform]
	g.mu.RUnlock()

	if out.Platform == "" {
		return ErrNoConversation
	}
	if !ok {
		return fmt.Errorf("no adapter for platform: %s", out.Platform)
	}
	return adapter.Send(ctx, out)
}

// Close shuts down all adapters.
func (g *Gateway) Close() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	for platform, adapter := range g.adapters {
		if err := adapter.Close(); err != nil {
			g.logger.Error("adapter close failed",
				zap.String("platform", platform), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Adapters returns the registered platform names, sorted.
func (g *Gateway) Adapters() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.adapters))
	for p := range g.adapters {
		names = append(names, p)
	}
	sort.Strings(names)
	return names
}

// Statuses reports every adapter's connection state.
func (g *Gateway) Statuses() []AdapterStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]AdapterStatus, 0, len(g.adapters))
	for p, a := range g.adapters {
		if r, ok := a.(statusReporter); ok {
			out = append(out, r.Status())
			continue
		}
		out = append(out, AdapterStatus{Platform: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}
