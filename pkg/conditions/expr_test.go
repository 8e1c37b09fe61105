package conditions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprEvaluator(t *testing.T) {
	evaluator := NewExprEvaluator()
	ctx := context.Background()

	scope := map[string]any{
		"visitor": map[string]any{
			"plan":       "pro",
			"page_views": 12,
		},
		"event": map[string]any{
			"name": "checkout_completed",
		},
	}

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{"attribute equality", `visitor.plan == "pro"`, true},
		{"numeric comparison", `visitor.page_views > 10`, true},
		{"event name check", `event.name == "signup"`, false},
		{"boolean combination", `visitor.plan == "pro" && visitor.page_views < 5`, false},
		{"undefined variable is nil", `missing == nil`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evaluator.Evaluate(ctx, tt.expression, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestExprEvaluatorErrors(t *testing.T) {
	evaluator := NewExprEvaluator()
	ctx := context.Background()

	_, err := evaluator.Evaluate(ctx, "", nil)
	assert.ErrorContains(t, err, "empty condition")

	_, err = evaluator.Evaluate(ctx, "1 +", nil)
	assert.ErrorContains(t, err, "does not compile")

	_, err = evaluator.Evaluate(ctx, `"not a bool"`, nil)
	assert.ErrorContains(t, err, "want bool")
}

func TestExprEvaluatorCachesPrograms(t *testing.T) {
	evaluator := NewExprEvaluator()
	ctx := context.Background()

	_, err := evaluator.Evaluate(ctx, "1 == 1", nil)
	require.NoError(t, err)

	evaluator.mu.RLock()
	_, cached := evaluator.cache["1 == 1"]
	evaluator.mu.RUnlock()

	assert.True(t, cached)
}
