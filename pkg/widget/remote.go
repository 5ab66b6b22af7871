package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/aretw0/lessonkit/internal/logging"
)

// DescriptionResponse is the body of POST /widgets/interactive/{widgetId}.
type DescriptionResponse struct {
	Widget *Definition `json:"widget"`
}

// RemoteSource fetches widget definitions from a lessonkit server and
// caches them for the lifetime of the source.
type RemoteSource struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*Definition
}

// NewRemoteSource creates a source for the server at baseURL.
func NewRemoteSource(baseURL string, client *http.Client) *RemoteSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		Logger:  logging.NewNop(),
		cache:   make(map[string]*Definition),
	}
}

// Definition implements Source.
func (s *RemoteSource) Definition(ctx context.Context, widgetID string) (*Definition, error) {
	s.mu.Lock()
	if d, ok := s.cache[widgetID]; ok {
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()

	endpoint := s.BaseURL + "/widgets/interactive/" + url.PathEscape(widgetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	s.Logger.Debug("Fetching widget definition", "widget_id", widgetID, "url", endpoint)
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch widget %s: %w", widgetID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrUnknownWidget, widgetID)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch widget %s: %s: %s", widgetID, resp.Status, strings.TrimSpace(string(body)))
	}

	var out DescriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode widget %s: %w", widgetID, err)
	}
	if out.Widget == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWidget, widgetID)
	}
	if builtin, err := DefaultRegistry().Get(widgetID); err == nil {
		out.Widget.Normalize = builtin.Normalize
	}

	s.mu.Lock()
	s.cache[widgetID] = out.Widget
	s.mu.Unlock()
	return out.Widget, nil
}
