// Package stats summarizes the answers learners submitted to a state.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/lessonkit/pkg/ports"
)

// Calculation IDs.
const (
	AnswerFrequencies                  = "AnswerFrequencies"
	Top5AnswerFrequencies              = "Top5AnswerFrequencies"
	FrequencyCommonlySubmittedElements = "FrequencyCommonlySubmittedElements"
)

// ErrUnknownCalculation is returned for a calculation ID not in Calculations.
var ErrUnknownCalculation = errors.New("unknown calculation")

// Frequency is how often one answer (or set element) was submitted.
type Frequency struct {
	Answer    string `json:"answer"`
	Frequency int    `json:"frequency"`
}

// Result is the output of a calculation over one state's answers.
type Result struct {
	ExplorationID string      `json:"exploration_id"`
	StateName     string      `json:"state_name"`
	CalculationID string      `json:"calculation_id"`
	Output        []Frequency `json:"calculation_output"`
}

// Calculation turns raw answers into frequencies.
type Calculation func(answers []string) []Frequency

// Calculations lists the available calculations by ID.
var Calculations = map[string]Calculation{
	AnswerFrequencies:                  Frequencies,
	Top5AnswerFrequencies:              func(a []string) []Frequency { return top(Frequencies(a), 5) },
	FrequencyCommonlySubmittedElements: func(a []string) []Frequency { return top(ElementFrequencies(a), 10) },
}

// Calculate loads a state's answers from log and runs the named calculation.
func Calculate(ctx context.Context, log ports.AnswerLog, explorationID, stateName, calculationID string) (*Result, error) {
	calc, ok := Calculations[calculationID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCalculation, calculationID)
	}
	answers, err := log.Answers(ctx, explorationID, stateName)
	if err != nil {
		return nil, err
	}
	return &Result{
		ExplorationID: explorationID,
		StateName:     stateName,
		CalculationID: calculationID,
		Output:        calc(answers),
	}, nil
}

// Frequencies counts each distinct answer, most frequent first. Ties keep
// the order in which answers were first seen.
func Frequencies(answers []string) []Frequency {
	return count(answers)
}

// ElementFrequencies counts elements across answers that are sets, written
// either as JSON arrays or as "[a, b]".
func ElementFrequencies(answers []string) []Frequency {
	var elements []string
	for _, a := range answers {
		elements = append(elements, splitSet(a)...)
	}
	return count(elements)
}

func splitSet(answer string) []string {
	var list []any
	if err := json.Unmarshal([]byte(answer), &list); err == nil {
		out := make([]string, len(list))
		for i, v := range list {
			out[i] = fmt.Sprint(v)
		}
		return out
	}
	trimmed := strings.NewReplacer("[", "", "]", "").Replace(answer)
	return strings.Split(trimmed, ", ")
}

func count(values []string) []Frequency {
	index := make(map[string]int)
	var out []Frequency
	for _, v := range values {
		if i, ok := index[v]; ok {
			out[i].Frequency++
			continue
		}
		index[v] = len(out)
		out = append(out, Frequency{Answer: v, Frequency: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Frequency > out[j].Frequency
	})
	if out == nil {
		out = []Frequency{}
	}
	return out
}

func top(f []Frequency, n int) []Frequency {
	if len(f) > n {
		return f[:n]
	}
	return f
}
