package memory

import (
	"context"
	"sync"
)

// AnswerLog implements ports.AnswerLog in memory.
type AnswerLog struct {
	mu      sync.Mutex
	answers map[string][]string
}

// NewAnswerLog creates an empty answer log.
func NewAnswerLog() *AnswerLog {
	return &AnswerLog{answers: make(map[string][]string)}
}

func answerKey(explorationID, stateName string) string {
	return explorationID + "\x00" + stateName
}

// Record appends an answer for the state.
func (l *AnswerLog) Record(ctx context.Context, explorationID, stateName, answer string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := answerKey(explorationID, stateName)
	l.answers[k] = append(l.answers[k], answer)
	return nil
}

// Answers returns the answers recorded for the state in submission order.
func (l *AnswerLog) Answers(ctx context.Context, explorationID, stateName string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.answers[answerKey(explorationID, stateName)]...), nil
}
