package policy

import (
	"context"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return engine
}

func TestDefaultPolicyAllowsByDefault(t *testing.T) {
	engine := newTestEngine(t)
	d := engine.Evaluate(context.Background(), Input{
		Text:        "hello",
		KnownLabels: []string{"A", "B"},
		Origin:      "A",
	})
	if !d.Allow {
		t.Fatalf("expected relay to be allowed by default")
	}
	if d.Target != "" {
		t.Fatalf("expected no target override, got %q", d.Target)
	}
}

func TestDefaultPolicyDeniesOptOut(t *testing.T) {
	engine := newTestEngine(t)
	d := engine.Evaluate(context.Background(), Input{
		OptOut:      true,
		Text:        "hello",
		KnownLabels: []string{"A", "B"},
	})
	if d.Allow {
		t.Fatalf("opt-out must deny the relay")
	}
}

func TestDefaultPolicyDeniesEmptyText(t *testing.T) {
	engine := newTestEngine(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		d := engine.Evaluate(context.Background(), Input{
			Text:        text,
			KnownLabels: []string{"A", "B"},
		})
		if d.Allow {
			t.Fatalf("text %q must deny the relay", text)
		}
	}
}

func TestDefaultPolicyTargetValidation(t *testing.T) {
	engine := newTestEngine(t)

	d := engine.Evaluate(context.Background(), Input{
		Text:            "hello",
		RequestedTarget: "B",
		KnownLabels:     []string{"A", "B"},
	})
	if !d.Allow || d.Target != "B" {
		t.Fatalf("known target must be honored, got %+v", d)
	}

	d = engine.Evaluate(context.Background(), Input{
		Text:            "hello",
		RequestedTarget: "C",
		KnownLabels:     []string{"A", "B"},
	})
	if !d.Allow {
		t.Fatalf("unknown target must not deny the relay")
	}
	if d.Target != "" {
		t.Fatalf("unknown target must be dropped, got %q", d.Target)
	}
}

func TestDefaultPolicyOptOutWinsOverTarget(t *testing.T) {
	engine := newTestEngine(t)
	d := engine.Evaluate(context.Background(), Input{
		OptOut:          true,
		Text:            "hello",
		RequestedTarget: "B",
		KnownLabels:     []string{"A", "B"},
	})
	if d.Allow {
		t.Fatalf("opt-out must win over an explicit target")
	}
}

// A policy that yields no decision document degrades to the permissive
// default instead of stalling the session.
func TestEvaluateDegradesPermissive(t *testing.T) {
	engine, err := NewEngine(context.Background(), `
package relay_policy

import rego.v1

helper := 1
`)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	d := engine.Evaluate(context.Background(), Input{Text: "hello"})
	if !d.Allow || d.Target != "" {
		t.Fatalf("expected permissive fallback, got %+v", d)
	}
}
