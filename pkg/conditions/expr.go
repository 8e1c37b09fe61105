// Package conditions evaluates branch-rule expressions against the visitor
// scope using expr-lang. Compiled programs are cached per expression.
package conditions

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEvaluator implements protocol.ConditionEvaluator. Thread-safe: cached
// *vm.Program objects are reused across goroutines.
type ExprEvaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Evaluate compiles (or retrieves from cache) the expression and runs it
// against the scope. The scope keys are available as top-level variables;
// a non-boolean result is an error, not a truthiness coercion.
func (e *ExprEvaluator) Evaluate(_ context.Context, expression string, scope map[string]any) (bool, error) {
	if expression == "" {
		return false, fmt.Errorf("empty condition expression")
	}

	program, err := e.getOrCompile(expression)
	if err != nil {
		return false, err
	}

	env := scope
	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("condition %q evaluation failed: %w", expression, err)
	}

	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q returned %T, want bool", expression, out)
	}

	return result, nil
}

func (e *ExprEvaluator) getOrCompile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if program, ok := e.cache[expression]; ok {
		e.mu.RUnlock()

		return program, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.cache[expression]; ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("condition %q does not compile: %w", expression, err)
	}

	e.cache[expression] = program

	return program, nil
}
