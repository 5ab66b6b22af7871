package player

import (
	"fmt"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// Evaluator runs rule conditions written in expr. Compiled programs are
// cached by source text.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*exprvm.Program
}

// NewEvaluator creates an evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]*exprvm.Program)}
}

// Match evaluates condition against env, which exposes `answer`, `inputs`
// and `params`. Empty conditions always match.
func (e *Evaluator) Match(condition string, env map[string]any) (bool, error) {
	if condition == "" {
		return true, nil
	}
	program, err := e.loadOrCompile(condition)
	if err != nil {
		return false, err
	}
	out, err := exprlang.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", condition, err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q returned %T, want bool", condition, out)
	}
	return matched, nil
}

func (e *Evaluator) loadOrCompile(condition string) (*exprvm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[condition]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := exprlang.Compile(condition,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", condition, err)
	}

	e.mu.Lock()
	e.cache[condition] = program
	e.mu.Unlock()
	return program, nil
}
