package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"kidcoms-platform/internal/chat"
	"kidcoms-platform/internal/sessions"
)

// Fetcher supplies the three reads a poll tick is built from. The production
// implementation talks to the REST API; tests substitute a fake.
type Fetcher interface {
	FetchSession(ctx context.Context, sessionID string) (*sessions.Session, error)
	FetchMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
	FetchRinging(ctx context.Context) ([]sessions.IncomingCall, error)
}

// HTTPFetcher reads session state from the API over authenticated HTTP.
type HTTPFetcher struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPFetcher(baseURL, accessToken string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: baseURL,
		token:   accessToken,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *HTTPFetcher) FetchSession(ctx context.Context, sessionID string) (*sessions.Session, error) {
	var s sessions.Session
	if err := f.getJSON(ctx, "/v1/sessions/"+sessionID, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (f *HTTPFetcher) FetchMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := f.getJSON(ctx, "/v1/sessions/"+sessionID+"/messages", &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (f *HTTPFetcher) FetchRinging(ctx context.Context) ([]sessions.IncomingCall, error) {
	var out struct {
		Calls []sessions.IncomingCall `json:"calls"`
	}
	if err := f.getJSON(ctx, "/v1/incoming-calls", &out); err != nil {
		return nil, err
	}
	return out.Calls, nil
}

func (f *HTTPFetcher) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+f.token)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
