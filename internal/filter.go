package internal

import (
	"encoding/json"

	"github.com/Knetic/govaluate"
)

// Filter gates inbound webhook events. The expression is evaluated against
// the flattened payload, so the default `ref == 'refs/heads/main'` matches
// pushes to the main branch and nothing else.
type Filter struct {
	expr *govaluate.EvaluableExpression
}

// CompileFilter compiles a filter expression. An empty expression yields a
// filter that matches everything.
func CompileFilter(expression string) (*Filter, error) {
	if expression == "" {
		return &Filter{}, nil
	}
	expr, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, err
	}
	return &Filter{expr: expr}, nil
}

// Match reports whether the raw JSON payload passes the filter. Evaluation
// failures, typically a field absent from the payload, count as no match.
func (f *Filter) Match(raw []byte) bool {
	if f == nil || f.expr == nil {
		return true
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false
	}
	result, err := f.expr.Evaluate(FlattenPayload(payload))
	if err != nil {
		return false
	}
	matched, _ := result.(bool)
	return matched
}
