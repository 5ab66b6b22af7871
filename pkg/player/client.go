package player

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
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/frame"
	"github.com/aretw0/lessonkit/pkg/notify"
	"github.com/aretw0/lessonkit/pkg/ports"
)

// Client is the learner side of the reader routes. It tracks the current
// page and allows one submission in flight at a time.
type Client struct {
	baseURL       string
	explorationID string
	http          *http.Client
	notifier      ports.Notifier
	logger        *slog.Logger

	mu      sync.Mutex
	pending bool
	page    *domain.Page
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the transport.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithNotifier sets where failed submissions are reported.
func WithNotifier(n ports.Notifier) ClientOption {
	return func(cl *Client) {
		cl.notifier = n
	}
}

// WithClientLogger sets the structured logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a client for one exploration served at baseURL.
func NewClient(baseURL, explorationID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		explorationID: explorationID,
		http:          http.DefaultClient,
		notifier:      notify.Discard,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Page returns the last page received, or nil before Start.
func (c *Client) Page() *domain.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Pending reports whether a submission is in flight.
func (c *Client) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Start fetches the initial page.
func (c *Client) Start(ctx context.Context) (*domain.Page, error) {
	endpoint := c.baseURL + "/learn/" + url.PathEscape(c.explorationID) + "/data"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	page, err := c.do(req)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
	return page, nil
}

// Submit posts answer for the current state. A second call while the first
// is in flight returns domain.ErrSubmissionPending. On failure the pending
// flag is cleared and the notifier is warned.
func (c *Client) Submit(ctx context.Context, answer any) (*domain.Page, error) {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return nil, domain.ErrSubmissionPending
	}
	if c.page == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: call Start first", domain.ErrStateNotFound)
	}
	if c.page.Finished {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: exploration is finished", domain.ErrInvalidChange)
	}
	c.pending = true
	current := c.page
	c.mu.Unlock()

	page, err := c.post(ctx, current, answer)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	if err != nil {
		c.notifier.Warn("Error submitting answer: " + err.Error())
		return nil, err
	}
	c.page = page
	return page, nil
}

// SubmitFunc adapts the client to a frame.Bridge.
func (c *Client) SubmitFunc() frame.SubmitFunc {
	return func(ctx context.Context, answer any) error {
		_, err := c.Submit(ctx, answer)
		return err
	}
}

func (c *Client) post(ctx context.Context, current *domain.Page, answer any) (*domain.Page, error) {
	payload, err := json.Marshal(domain.Submission{
		Answer:      answer,
		BlockNumber: current.BlockNumber,
		Params:      current.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode answer: %w", err)
	}

	endpoint := c.baseURL + "/learn/" + url.PathEscape(c.explorationID) + "/" + url.PathEscape(current.StateID)
	form := url.Values{"payload": {string(payload)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.logger.Debug("Submitting answer", "exploration_id", c.explorationID, "state", current.StateID)
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*domain.Page, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrExplorationNotFound, msg)
		}
		return nil, fmt.Errorf("%s: %s", resp.Status, msg)
	}

	var page domain.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	return &page, nil
}
