// Package policy decides whether and where an extracted message may be
// relayed. Metadata is parsed once into typed directives, then a rego policy
// produces the final decision.
package policy

import "strings"

// offValues are the recognized string spellings that disable relaying,
// matched case-insensitively.
var offValues = map[string]struct{}{
	"0": {}, "false": {}, "no": {}, "off": {}, "never": {},
}

// Directives is the typed relay configuration carried on a message. Defaults
// are permissive: relay allowed, no target override.
type Directives struct {
	AllowRelay bool
	Target     string
}

// ParseDirectives reads the recognized metadata vocabulary. Malformed values
// never fail: an unexpected type falls back to the field's default so a bad
// peer cannot crash or hang a session.
func ParseDirectives(metadata map[string]any) Directives {
	d := Directives{AllowRelay: true}
	if metadata == nil {
		return d
	}

	if v, ok := metadata["relay"]; ok && !truthy(v) {
		d.AllowRelay = false
	}
	for _, key := range []string{"doNotRelay", "do_not_relay"} {
		if v, ok := metadata[key]; ok {
			if b, ok := v.(bool); ok && b {
				d.AllowRelay = false
			}
		}
	}
	for _, key := range []string{"delegateTo", "targetAgent", "target_agent"} {
		if v, ok := metadata[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				d.Target = strings.TrimSpace(s)
				break
			}
		}
	}
	return d
}

// truthy interprets a relay flag value. Booleans are literal; strings are
// compared against the recognized off set; anything else defaults to true.
func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		if trimmed == "" {
			return false
		}
		_, off := offValues[trimmed]
		return !off
	}
	return true
}
