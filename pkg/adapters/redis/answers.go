package redis

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// AnswerLog implements ports.AnswerLog on Redis lists, one list per state.
type AnswerLog struct {
	client *backend.Client
	prefix string
	limit  int64
}

// NewAnswerLog creates an answer log keeping at most limit answers per state
// (0 keeps everything).
func NewAnswerLog(client *backend.Client, prefix string, limit int64) *AnswerLog {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &AnswerLog{client: client, prefix: prefix, limit: limit}
}

func (l *AnswerLog) key(explorationID, stateName string) string {
	return l.prefix + "answers:" + explorationID + ":" + stateName
}

// Record appends an answer, trimming the oldest entries beyond the limit.
func (l *AnswerLog) Record(ctx context.Context, explorationID, stateName, answer string) error {
	k := l.key(explorationID, stateName)
	pipe := l.client.Pipeline()
	pipe.RPush(ctx, k, answer)
	if l.limit > 0 {
		pipe.LTrim(ctx, k, -l.limit, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record answer: %w", err)
	}
	return nil
}

// Answers returns answers in submission order.
func (l *AnswerLog) Answers(ctx context.Context, explorationID, stateName string) ([]string, error) {
	answers, err := l.client.LRange(ctx, l.key(explorationID, stateName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	return answers, nil
}
