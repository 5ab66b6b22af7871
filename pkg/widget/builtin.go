package widget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/lessonkit/pkg/domain"
)

// Built-in widget IDs.
const (
	TextInput           = "TextInput"
	NumericInput        = "NumericInput"
	MultipleChoiceInput = "MultipleChoiceInput"
	Continue            = "Continue"
	EndExploration      = "EndExploration"
)

// TextInputArgs are the typed customization args of TextInput.
type TextInputArgs struct {
	Placeholder string `mapstructure:"placeholder"`
	Rows        int    `mapstructure:"rows"`
}

// MultipleChoiceArgs are the typed customization args of MultipleChoiceInput.
type MultipleChoiceArgs struct {
	Choices []string `mapstructure:"choices"`
}

// ContinueArgs are the typed customization args of Continue.
type ContinueArgs struct {
	ButtonText string `mapstructure:"buttonText"`
}

// EndExplorationArgs are the typed customization args of EndExploration.
type EndExplorationArgs struct {
	RecommendedExplorationIDs []string `mapstructure:"recommendedExplorationIds"`
}

// Builtins returns the definitions of the widgets shipped with lessonkit.
func Builtins() []*Definition {
	return []*Definition{
		{
			ID:          TextInput,
			Name:        "Text input",
			Description: "A single or multi line text box.",
			Params: []Param{
				{Name: "placeholder", Description: "Placeholder text", Type: BoundedString(200), Default: "Type your answer here."},
				{Name: "rows", Description: "Height in rows", Type: NonnegativeInt(), Default: 1},
			},
			Handlers:   []string{domain.SubmitHandler},
			AnswerType: "string",
			Normalize:  normalizeText,
		},
		{
			ID:          NumericInput,
			Name:        "Number",
			Description: "A box accepting a real number.",
			Params:      []Param{},
			Handlers:    []string{domain.SubmitHandler},
			AnswerType:  "float",
			Normalize:   normalizeNumber,
		},
		{
			ID:          MultipleChoiceInput,
			Name:        "Multiple choice",
			Description: "A list of choices, one of which is picked.",
			Params: []Param{
				{Name: "choices", Description: "The choices shown to the learner", Type: NonEmptySlice(HTML()), Default: []any{"Default choice"}, Required: true},
			},
			Handlers:   []string{domain.SubmitHandler},
			AnswerType: "nonnegative_int",
			Normalize:  normalizeChoice,
		},
		{
			ID:          Continue,
			Name:        "Continue button",
			Description: "A button that moves the learner on.",
			Params: []Param{
				{Name: "buttonText", Description: "Button label", Type: BoundedString(40), Default: "Continue"},
			},
			Handlers:   []string{domain.SubmitHandler},
			AnswerType: "string",
			Normalize: func(any, map[string]any) (any, error) {
				return "", nil
			},
		},
		{
			ID:          EndExploration,
			Name:        "End exploration",
			Description: "Ends the exploration.",
			Params: []Param{
				{Name: "recommendedExplorationIds", Description: "Explorations suggested next", Type: Slice(String()), Default: []any{}},
			},
			Handlers: []string{},
		},
	}
}

func normalizeText(answer any, _ map[string]any) (any, error) {
	switch v := answer.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case nil:
		return "", nil
	default:
		return strings.TrimSpace(fmt.Sprint(v)), nil
	}
}

// ParseNumber accepts numbers and numeric strings, tolerating surrounding
// spaces and a decimal comma.
func ParseNumber(answer any) (float64, error) {
	switch v := answer.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
		if s == "" {
			return 0, fmt.Errorf("%w: answer is empty", domain.ErrInvalidChange)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidChange, v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: expected a number, got %T", domain.ErrInvalidChange, answer)
}

func normalizeNumber(answer any, _ map[string]any) (any, error) {
	return ParseNumber(answer)
}

// normalizeChoice resolves an index or the text of a choice to its index.
func normalizeChoice(answer any, args map[string]any) (any, error) {
	var typed MultipleChoiceArgs
	if err := Decode(args, &typed); err != nil {
		return nil, err
	}

	idx := -1
	switch v := answer.(type) {
	case int:
		idx = v
	case float64:
		if v == float64(int(v)) {
			idx = int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			idx = n
		} else {
			for i, c := range typed.Choices {
				if c == v {
					idx = i
				}
			}
		}
	}
	if idx < 0 || idx >= len(typed.Choices) {
		return nil, fmt.Errorf("%w: %v is not one of the %d choices", domain.ErrInvalidChange, answer, len(typed.Choices))
	}
	return idx, nil
}
