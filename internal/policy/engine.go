package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Input is the evaluation input for one message event.
type Input struct {
	OptOut          bool
	Text            string
	RequestedTarget string
	KnownLabels     []string
	Origin          string
	Hop             int
}

// Decision is the outcome of evaluating the relay policy for one message.
type Decision struct {
	Allow  bool
	Target string
}

// Engine is the rego policy engine gating relays.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from the given rego policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.relay_policy.decision"),
		rego.Module("relay_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the policy against one message. Evaluation problems degrade
// to the permissive default so a misconfigured policy never stalls a session.
func (e *Engine) Evaluate(ctx context.Context, input Input) Decision {
	permissive := Decision{Allow: true}

	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{
		"opt_out":          input.OptOut,
		"text":             input.Text,
		"requested_target": input.RequestedTarget,
		"known_labels":     input.KnownLabels,
		"origin":           input.Origin,
		"hop":              input.Hop,
	}))
	if err != nil || len(results) == 0 || len(results[0].Expressions) == 0 {
		return permissive
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return permissive
	}

	decision := permissive
	if allow, ok := obj["allow"].(bool); ok {
		decision.Allow = allow
	}
	if target, ok := obj["target"].(string); ok {
		decision.Target = target
	}
	return decision
}

// DefaultPolicy implements relay-by-default: a relay proceeds unless the
// speaker opted out or produced no text, and an explicit target is honored
// only when it names a configured endpoint. Opt-out wins over a target.
const DefaultPolicy = `
package relay_policy

import rego.v1

default allow := true

allow := false if {
	input.opt_out
}

allow := false if {
	trim_space(input.text) == ""
}

default target := ""

target := input.requested_target if {
	input.requested_target != ""
	input.requested_target in input.known_labels
}

decision := {"allow": allow, "target": target}
`
