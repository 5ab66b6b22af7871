package stats_test

import (
	"context"
	"testing"

	"github.com/aretw0/lessonkit/pkg/adapters/memory"
	"github.com/aretw0/lessonkit/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencies(t *testing.T) {
	got := stats.Frequencies([]string{"b", "a", "b", "c", "a", "b"})
	assert.Equal(t, []stats.Frequency{
		{Answer: "b", Frequency: 3},
		{Answer: "a", Frequency: 2},
		{Answer: "c", Frequency: 1},
	}, got)

	assert.Equal(t, []stats.Frequency{}, stats.Frequencies(nil))
}

func TestTop5(t *testing.T) {
	answers := []string{"1", "2", "3", "4", "5", "6", "6"}
	got := stats.Calculations[stats.Top5AnswerFrequencies](answers)
	require.Len(t, got, 5)
	assert.Equal(t, stats.Frequency{Answer: "6", Frequency: 2}, got[0])
}

func TestElementFrequencies(t *testing.T) {
	answers := []string{`["abc", "www"]`, "[abc]", "[xyz]", "[xyz, abc]"}
	got := stats.ElementFrequencies(answers)
	assert.Equal(t, []stats.Frequency{
		{Answer: "abc", Frequency: 3},
		{Answer: "xyz", Frequency: 2},
		{Answer: "www", Frequency: 1},
	}, got)
}

func TestCommonlySubmittedElements_KeepsTop10(t *testing.T) {
	answers := []string{"[a, b, c, d, e, f, g, h, i, j, k, l]"}
	got := stats.Calculations[stats.FrequencyCommonlySubmittedElements](answers)
	assert.Len(t, got, 10)
}

func TestCalculate(t *testing.T) {
	log := memory.NewAnswerLog()
	ctx := context.Background()
	require.NoError(t, log.Record(ctx, "exp", "Intro", "4"))
	require.NoError(t, log.Record(ctx, "exp", "Intro", "4"))

	res, err := stats.Calculate(ctx, log, "exp", "Intro", stats.AnswerFrequencies)
	require.NoError(t, err)
	assert.Equal(t, "Intro", res.StateName)
	assert.Equal(t, []stats.Frequency{{Answer: "4", Frequency: 2}}, res.Output)

	_, err = stats.Calculate(ctx, log, "exp", "Intro", "Median")
	assert.Error(t, err)
}
