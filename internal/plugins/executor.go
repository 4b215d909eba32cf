package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"go.uber.org/zap"
)

// HTTPExecutor POSTs each action as JSON to a fixed URL.
type HTTPExecutor struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPExecutor creates an executor with a 30s request timeout.
func NewHTTPExecutor(url string, logger *zap.Logger) *HTTPExecutor {
	return &HTTPExecutor{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Execute implements cognitive.BehaviorExecutor.
func (e *HTTPExecutor) Execute(ctx context.Context, action cognitive.Action) error {
	body, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post action: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("executor returned %d: %s", resp.StatusCode, string(msg))
	}
	e.logger.Debug("action executed", zap.String("type", action.Type), zap.String("url", e.url))
	return nil
}

// MultiExecutor fans an action out to every executor and joins their errors.
type MultiExecutor []cognitive.BehaviorExecutor

// Execute implements cognitive.BehaviorExecutor.
func (m MultiExecutor) Execute(ctx context.Context, action cognitive.Action) error {
	var errs []error
	for _, ex := range m {
		if err := ex.Execute(ctx, action); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
