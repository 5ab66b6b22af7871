package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/lessonkit/pkg/ports"
)

// Mask replaces masked fragments of a recorded answer.
const Mask = "***"

type piiMiddleware struct {
	next     ports.AnswerLog
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the parts of recorded
// answers matching any of the patterns before they reach the log.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.AnswerLog) ports.AnswerLog {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Record(ctx context.Context, explorationID, stateName, answer string) error {
	for _, p := range m.patterns {
		answer = p.ReplaceAllString(answer, Mask)
	}
	return m.next.Record(ctx, explorationID, stateName, answer)
}

func (m *piiMiddleware) Answers(ctx context.Context, explorationID, stateName string) ([]string, error) {
	return m.next.Answers(ctx, explorationID, stateName)
}
