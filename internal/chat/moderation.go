package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"kidcoms-platform/internal/config"
)

// Verdict is the moderation collaborator's judgement on one message.
type Verdict struct {
	Flagged bool `json:"flagged"`

	// Rewritten is the replacement text when the collaborator rewrites a
	// flagged message. Empty means keep the original even if flagged.
	Rewritten string `json:"rewritten,omitempty"`
}

// Moderator reviews outgoing chat content. It is a black-box classifier; no
// toxicity analysis happens in this codebase.
type Moderator interface {
	Review(ctx context.Context, text string) (Verdict, error)
}

// ErrModerationTimeout marks a review that did not finish inside the
// configured bound. It is a policy signal, not a hard failure: callers
// deliver the message unmoderated and mark it.
var ErrModerationTimeout = errors.New("moderation timed out")

// ARIAClient calls the external ARIA moderation service over HTTP.
//
// Every review is bounded by the configured timeout so a slow or down
// service can never block message delivery indefinitely.
type ARIAClient struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewARIAClient(cfg config.ARIAConfig) *ARIAClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ARIAClient{
		url:     cfg.URL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *ARIAClient) Review(ctx context.Context, text string) (Verdict, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return Verdict{}, err
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.url+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() != nil {
			return Verdict{}, fmt.Errorf("%w: %v", ErrModerationTimeout, err)
		}
		return Verdict{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Verdict{}, fmt.Errorf("moderation service returned %d", resp.StatusCode)
	}

	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return Verdict{}, fmt.Errorf("moderation decode: %w", err)
	}
	return v, nil
}

// StaticModerator flags messages by exact lookup; useful for tests and local
// development without the external service.
type StaticModerator struct {
	// Rewrites maps offending text to its replacement.
	Rewrites map[string]string

	// Err forces Review to fail, for exercising fallback paths.
	Err error

	// Delay simulates a slow service.
	Delay time.Duration
}

func (m *StaticModerator) Review(ctx context.Context, text string) (Verdict, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return Verdict{}, fmt.Errorf("%w: %v", ErrModerationTimeout, ctx.Err())
		}
	}
	if m.Err != nil {
		return Verdict{}, m.Err
	}
	if rewritten, ok := m.Rewrites[text]; ok {
		return Verdict{Flagged: true, Rewritten: rewritten}, nil
	}
	return Verdict{}, nil
}
