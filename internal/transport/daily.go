package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"kidcoms-platform/internal/config"
)

// DailyProvider talks to a Daily-style rooms REST API.
//
// Every request carries the API key as a bearer token and is bounded by the
// client timeout; a hung provider degrades to ErrTransport, never a hang.
type DailyProvider struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewDailyProvider(cfg config.RoomsConfig) *DailyProvider {
	return &DailyProvider{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *DailyProvider) Name() string { return "daily" }

func (p *DailyProvider) HealthCheck(ctx context.Context) error {
	var out struct{}
	return p.do(ctx, http.MethodGet, "/rooms?limit=1", nil, &out)
}

func (p *DailyProvider) CreateRoom(ctx context.Context, req CreateRoomRequest) (Room, error) {
	if req.SessionID == "" {
		return Room{}, fmt.Errorf("%w: session_id required", ErrTransport)
	}
	maxP := req.MaxParticipants
	if maxP <= 0 {
		maxP = 4
	}

	body := map[string]any{
		"privacy": "private",
		"properties": map[string]any{
			"max_participants": maxP,
			"enable_chat":      false, // chat goes through our moderated overlay
			"start_video_off":  req.SessionType == "voice_call",
			"exp":              time.Now().Add(4 * time.Hour).Unix(),
		},
	}

	var out struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := p.do(ctx, http.MethodPost, "/rooms", body, &out); err != nil {
		return Room{}, err
	}
	return Room{Name: out.Name, URL: out.URL, CreatedAt: time.Now().UTC()}, nil
}

func (p *DailyProvider) MintToken(ctx context.Context, req TokenRequest) (MeetingToken, error) {
	if req.RoomName == "" || req.UserID == "" {
		return MeetingToken{}, fmt.Errorf("%w: room_name and user_id required", ErrTransport)
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	exp := time.Now().Add(ttl)

	body := map[string]any{
		"properties": map[string]any{
			"room_name": req.RoomName,
			"user_id":   req.UserID,
			"user_name": req.DisplayName,
			"exp":       exp.Unix(),
		},
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := p.do(ctx, http.MethodPost, "/meeting-tokens", body, &out); err != nil {
		return MeetingToken{}, err
	}
	return MeetingToken{Token: out.Token, ExpiresAt: exp.UTC()}, nil
}

func (p *DailyProvider) ReleaseRoom(ctx context.Context, roomName string) error {
	if roomName == "" {
		return nil
	}
	var out struct{}
	err := p.do(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(roomName), nil, &out)
	// Releasing an already-deleted room is a success; End is idempotent.
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func (p *DailyProvider) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.apiURL+path, rd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %w", ErrTransport, &statusError{code: resp.StatusCode, body: string(raw)})
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode: %v", ErrTransport, err)
		}
	}
	return nil
}
