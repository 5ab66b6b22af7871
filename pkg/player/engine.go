package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/aretw0/lessonkit/internal/logging"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/ports"
	"github.com/aretw0/lessonkit/pkg/widget"
)

// FinishedMessage is shown when a learner reaches END.
const FinishedMessage = "Congratulations, you have finished!"

// Engine is the stateless reader side of an exploration: every call carries
// the learner's position (state, block number, params) and returns the next
// page.
type Engine struct {
	loader     ports.ExplorationLoader
	widgets    widget.Source
	answers    ports.AnswerLog
	evaluator  *Evaluator
	generators map[string]Generator
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	maxAnswer  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWidgets sets where widget definitions come from.
func WithWidgets(src widget.Source) Option {
	return func(e *Engine) {
		e.widgets = src
	}
}

// WithAnswerLog records every classified answer.
func WithAnswerLog(log ports.AnswerLog) Option {
	return func(e *Engine) {
		e.answers = log
	}
}

// WithGenerator registers a param generator under id.
func WithGenerator(id string, g Generator) Option {
	return func(e *Engine) {
		e.generators[id] = g
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxAnswerSize sets the byte limit for text answers; 0 disables it.
func WithMaxAnswerSize(n int) Option {
	return func(e *Engine) {
		e.maxAnswer = n
	}
}

// NewEngine creates a player over loader.
func NewEngine(loader ports.ExplorationLoader, opts ...Option) *Engine {
	e := &Engine{
		loader:     loader,
		widgets:    widget.DefaultRegistry(),
		evaluator:  NewEvaluator(),
		generators: DefaultGenerators(),
		logger:     logging.NewNop(),
		maxAnswer:  DefaultMaxAnswerSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start returns the first page of an exploration.
func (e *Engine) Start(ctx context.Context, explorationID string) (*domain.Page, error) {
	exp, err := e.loader.Load(ctx, explorationID)
	if err != nil {
		return nil, err
	}
	st, ok := exp.States[exp.InitStateName]
	if !ok {
		return nil, fmt.Errorf("%w: init state %s", domain.ErrStateNotFound, exp.InitStateName)
	}

	params, err := applyParamChanges(e.generators, nil, exp.ParamChanges)
	if err != nil {
		return nil, err
	}
	params, err = applyParamChanges(e.generators, params, st.ParamChanges)
	if err != nil {
		return nil, err
	}

	page := &domain.Page{
		Title:   exp.Title,
		StateID: exp.InitStateName,
		Params:  params,
	}
	if err := e.fillState(ctx, page, st, params, ""); err != nil {
		return nil, err
	}
	return page, nil
}

// Submit classifies an answer given at stateID and returns the next page.
func (e *Engine) Submit(ctx context.Context, explorationID, stateID string, sub domain.Submission) (*domain.Page, error) {
	exp, err := e.loader.Load(ctx, explorationID)
	if err != nil {
		return nil, err
	}
	st, ok := exp.States[stateID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStateNotFound, stateID)
	}

	def, err := e.widgets.Definition(ctx, st.Widget.WidgetID)
	if err != nil {
		return nil, err
	}
	raw := sub.Answer
	if text, ok := raw.(string); ok {
		clean, err := SanitizeAnswer(text, e.maxAnswer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidChange, err)
		}
		raw = clean
	}
	answer, err := def.NormalizeAnswer(raw, st.Widget.CustomizationArgs)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidChange) {
			err = fmt.Errorf("%w: %v", domain.ErrInvalidChange, err)
		}
		return nil, err
	}

	channel := sub.Channel
	if channel == "" {
		channel = domain.SubmitHandler
	}
	handler, ok := st.Widget.Handler(channel)
	if !ok {
		return nil, fmt.Errorf("%w: state %s has no %q handler", domain.ErrInvalidChange, stateID, channel)
	}

	rule, err := e.classify(handler, answer, sub.Params)
	if err != nil {
		return nil, err
	}

	e.record(ctx, explorationID, stateID, answer, rule)

	params, err := applyParamChanges(e.generators, sub.Params, rule.ParamChanges)
	if err != nil {
		return nil, err
	}

	feedbackHTML, err := renderFeedback(pickFeedback(rule.Feedback), params)
	if err != nil {
		return nil, err
	}

	page := &domain.Page{
		Title:       exp.Title,
		StateID:     rule.Dest,
		BlockNumber: sub.BlockNumber + 1,
	}

	if rule.Dest == domain.EndDest {
		page.Finished = true
		page.Params = params
		page.HTML = feedbackHTML + "<p>" + FinishedMessage + "</p>"
		page.Widgets = []domain.WidgetInstance{}
		return page, nil
	}

	dest, ok := exp.States[rule.Dest]
	if !ok {
		return nil, fmt.Errorf("%w: rule %s points at %s", domain.ErrStateNotFound, rule.Name, rule.Dest)
	}
	if rule.Dest != stateID {
		if params, err = applyParamChanges(e.generators, params, dest.ParamChanges); err != nil {
			return nil, err
		}
	}
	page.Params = params

	// Looping back to the same state only shows feedback.
	if rule.Dest == stateID {
		page.HTML = feedbackHTML
		page.Widgets = []domain.WidgetInstance{}
		if !st.Widget.Sticky {
			page.InteractiveWidgetHTML, err = renderWidget(def, st.Widget.CustomizationArgs)
		}
		return page, err
	}

	if err := e.fillState(ctx, page, dest, params, feedbackHTML); err != nil {
		return nil, err
	}
	if dest.Widget.Sticky && dest.Widget.WidgetID == st.Widget.WidgetID {
		page.InteractiveWidgetHTML = ""
	}
	return page, nil
}

// classify returns the first rule of h whose condition holds.
func (e *Engine) classify(h *domain.Handler, answer any, params map[string]any) (domain.RuleSpec, error) {
	if params == nil {
		params = map[string]any{}
	}
	for _, r := range h.RuleSpecs {
		inputs := r.Inputs
		if inputs == nil {
			inputs = map[string]any{}
		}
		env := map[string]any{
			"answer": answer,
			"inputs": inputs,
			"params": params,
		}
		matched, err := e.evaluator.Match(r.Condition, env)
		if err != nil {
			e.logger.Warn("Rule condition failed", "rule", r.Name, "err", err)
			continue
		}
		if matched {
			return r, nil
		}
	}
	return domain.RuleSpec{}, fmt.Errorf("%w: no rule matched and no default rule is defined", domain.ErrInvalidChange)
}

func (e *Engine) record(ctx context.Context, explorationID, stateID string, answer any, rule domain.RuleSpec) {
	text := AnswerString(answer)
	if e.answers != nil {
		if err := e.answers.Record(ctx, explorationID, stateID, text); err != nil {
			e.logger.Warn("Failed to record answer", "exploration_id", explorationID, "state", stateID, "err", err)
		}
	}
	e.logger.Debug("Answer classified", "exploration_id", explorationID, "state", stateID, "rule", rule.Name, "dest", rule.Dest)
	if e.hooks.OnAnswerSubmitted != nil {
		e.hooks.OnAnswerSubmitted(ctx, &domain.AnswerEvent{
			EventBase: domain.EventBase{
				Timestamp:     time.Now(),
				Type:          domain.EventAnswerSubmitted,
				ExplorationID: explorationID,
			},
			StateName: stateID,
			Answer:    text,
			Dest:      rule.Dest,
			Rule:      rule.Name,
		})
	}
}

func (e *Engine) fillState(ctx context.Context, page *domain.Page, st *domain.State, params map[string]any, prefix string) error {
	html, widgets, err := renderContent(st.Content, params)
	if err != nil {
		return err
	}
	page.HTML = prefix + html
	page.Widgets = widgets

	def, err := e.widgets.Definition(ctx, st.Widget.WidgetID)
	if err != nil {
		return err
	}
	page.InteractiveWidgetHTML, err = renderWidget(def, st.Widget.CustomizationArgs)
	return err
}

func pickFeedback(feedback []string) []string {
	if len(feedback) <= 1 {
		return feedback
	}
	i := rand.IntN(len(feedback))
	return feedback[i : i+1]
}

// AnswerString is the form answers are logged in: strings verbatim, numbers
// in their shortest form, anything else as JSON.
func AnswerString(answer any) string {
	switch v := answer.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	b, err := json.Marshal(answer)
	if err != nil {
		return fmt.Sprint(answer)
	}
	return string(b)
}
