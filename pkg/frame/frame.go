// Package frame implements the cross-frame answer channel between an
// embedded widget and the page hosting it. The child posts
// {"submit": answer}; the parent acts only on messages from its own origin.
package frame

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/aretw0/lessonkit/internal/logging"
	"github.com/aretw0/lessonkit/pkg/widget"
)

// Message is the payload posted by a child frame.
type Message struct {
	Submit any `json:"submit"`
}

// Encode serializes the message for posting.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Event is a message as received by the parent frame.
type Event struct {
	Origin string
	Data   []byte
}

// SubmitFunc receives answers accepted by a Bridge.
type SubmitFunc func(ctx context.Context, answer any) error

// Bridge is the parent side of the channel.
type Bridge struct {
	origin string
	submit SubmitFunc
	logger *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// NewBridge creates a bridge for a page served from ownOrigin.
func NewBridge(ownOrigin string, submit SubmitFunc, opts ...Option) (*Bridge, error) {
	origin, err := NormalizeOrigin(ownOrigin)
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		origin: origin,
		submit: submit,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Origin returns the normalized origin the bridge accepts.
func (b *Bridge) Origin() string { return b.origin }

// Receive handles one event. It reports whether the event was acted on;
// events from another origin and messages without a submit key are ignored.
func (b *Bridge) Receive(ctx context.Context, evt Event) (bool, error) {
	origin, err := NormalizeOrigin(evt.Origin)
	if err != nil || origin != b.origin {
		b.logger.Debug("Ignoring message from foreign origin", "origin", evt.Origin)
		return false, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(evt.Data, &raw); err != nil {
		b.logger.Debug("Ignoring malformed message", "err", err)
		return false, nil
	}
	payload, ok := raw["submit"]
	if !ok {
		return false, nil
	}

	var answer any
	if err := json.Unmarshal(payload, &answer); err != nil {
		return false, nil
	}
	if err := b.submit(ctx, answer); err != nil {
		return true, fmt.Errorf("submit failed: %w", err)
	}
	return true, nil
}

// NormalizeOrigin reduces s to scheme://host:port with the default port made
// explicit, so equivalent spellings compare equal.
func NormalizeOrigin(s string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", s, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid origin %q: scheme and host are required", s)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		}
	}
	if port == "" {
		return scheme + "://" + host, nil
	}
	return scheme + "://" + net.JoinHostPort(host, port), nil
}

// NumericInput is the child side of the embeddable numeric answer widget.
type NumericInput struct {
	Post func(data []byte) error
}

// Submit validates raw as a number and posts it to the parent.
func (n NumericInput) Submit(raw string) error {
	value, err := widget.ParseNumber(raw)
	if err != nil {
		return err
	}
	data, err := Message{Submit: value}.Encode()
	if err != nil {
		return err
	}
	return n.Post(data)
}
