// Package plugins provides the default collaborators: LLM-backed reasoning
// stages and HTTP behavior execution.
package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/Lang-lll/lll-cognitive-core/internal/provider"
	"go.uber.org/zap"
)

// ErrEmptyAnswer is returned when a model answers with nothing usable.
var ErrEmptyAnswer = errors.New("empty model answer")

// Chatter routes a chat request for a named stage. *provider.Router
// implements it.
type Chatter interface {
	Route(ctx context.Context, stage string, req *provider.ChatRequest) (*provider.ChatResponse, error)
}

// Options configure every LLM stage.
type Options struct {
	// PreMessages are sent ahead of each stage prompt, e.g. a persona.
	PreMessages []provider.Message
}

// llmStage renders a prompt, asks the routed model and decodes its JSON
// answer.
type llmStage struct {
	name   string
	system string
	task   *template.Template
	chat   Chatter
	opts   Options
	logger *zap.Logger
}

func newStage(name, system, task string, chat Chatter, opts Options, logger *zap.Logger) *llmStage {
	return &llmStage{
		name:   name,
		system: system,
		task:   template.Must(template.New(name).Funcs(promptFuncs).Parse(task)),
		chat:   chat,
		opts:   opts,
		logger: logger,
	}
}

func (s *llmStage) ask(ctx context.Context, data any, out any) error {
	var prompt bytes.Buffer
	if err := s.task.Execute(&prompt, data); err != nil {
		return fmt.Errorf("render %s prompt: %w", s.name, err)
	}

	msgs := make([]provider.Message, 0, len(s.opts.PreMessages)+2)
	msgs = append(msgs, s.opts.PreMessages...)
	msgs = append(msgs,
		provider.Message{Role: "system", Content: s.system},
		provider.Message{Role: "user", Content: prompt.String()},
	)

	resp, err := s.chat.Route(ctx, s.name, &provider.ChatRequest{Messages: msgs, JSON: true})
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}

	answer := stripCodeFence(resp.Content)
	if answer == "" || answer == "null" {
		return fmt.Errorf("%s: %w", s.name, ErrEmptyAnswer)
	}
	if err := json.Unmarshal([]byte(answer), out); err != nil {
		s.logger.Debug("undecodable model answer", zap.String("stage", s.name), zap.String("answer", answer))
		return fmt.Errorf("%s: decode answer: %w", s.name, err)
	}
	return nil
}

// stripCodeFence removes a surrounding markdown code fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
