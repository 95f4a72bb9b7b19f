package export

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/RaphaelK12/blospray/pkg/scene"
)

// SubstitutionPolicy decides what happens to a property that references an
// undefined ${NAME} variable.
type SubstitutionPolicy uint8

const (
	// SubstituteKeep leaves the token unexpanded.
	SubstituteKeep SubstitutionPolicy = iota
	// SubstituteFail drops the property.
	SubstituteFail
)

func (p SubstitutionPolicy) String() string {
	switch p {
	case SubstituteKeep:
		return "keep"
	case SubstituteFail:
		return "fail"
	default:
		return fmt.Sprintf("SubstitutionPolicy(%d)", uint8(p))
	}
}

// UnmarshalText parses "keep" or "fail".
func (p *SubstitutionPolicy) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "keep", "":
		*p = SubstituteKeep
	case "fail":
		*p = SubstituteFail
	default:
		return fmt.Errorf("export: unknown substitution policy %q", b)
	}
	return nil
}

// MarshalText returns the policy name.
func (p SubstitutionPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// DeclaredPrefix marks properties that address an element's own fields.
const DeclaredPrefix = "_"

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituter expands ${NAME} tokens against a small variable set.
type substituter struct {
	vars   map[string]string
	policy SubstitutionPolicy
}

func newSubstituter(frame int, policy SubstitutionPolicy) *substituter {
	return &substituter{
		vars:   map[string]string{"frame": strconv.Itoa(frame)},
		policy: policy,
	}
}

// expand returns s with every known variable replaced. The first undefined
// variable is returned as missing; under SubstituteKeep its token stays as is.
func (s *substituter) expand(str string) (out, missing string) {
	out = varPattern.ReplaceAllStringFunc(str, func(tok string) string {
		name := tok[2 : len(tok)-1]
		if v, ok := s.vars[name]; ok {
			return v
		}
		if missing == "" {
			missing = name
		}
		return tok
	})
	return out, missing
}

// value expands strings anywhere inside v.
func (s *substituter) value(v any) (any, string) {
	switch v := v.(type) {
	case string:
		return s.expand(v)
	case []any:
		out := make([]any, len(v))
		var missing string
		for i, e := range v {
			var m string
			out[i], m = s.value(e)
			if missing == "" {
				missing = m
			}
		}
		return out, missing
	case map[string]any:
		out := make(map[string]any, len(v))
		var missing string
		for k, e := range v {
			var m string
			out[k], m = s.value(e)
			if missing == "" {
				missing = m
			}
		}
		return out, missing
	default:
		return v, ""
	}
}

// properties is the result of splitting an element's custom properties.
type properties struct {
	// declared holds underscore properties with the prefix stripped.
	declared map[string]any
	// params holds every other property, forwarded verbatim.
	params map[string]any
	// errs are substitution diagnostics.
	errs []error
}

// expandAll expands variables in every value of m, visiting keys in sorted
// order so diagnostics are deterministic. Under SubstituteFail an entry
// with an undefined variable is left out of the result.
func (s *substituter) expandAll(owner string, m map[string]any) (map[string]any, []error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	var errs []error
	for _, k := range keys {
		v, missing := s.value(m[k])
		if missing != "" {
			errs = append(errs, &SubstitutionError{Owner: owner, Property: k, Variable: missing})
			if s.policy == SubstituteFail {
				continue
			}
		}
		out[k] = v
	}
	return out, errs
}

// split separates declared properties from opaque parameters and expands
// variables in both.
func (s *substituter) split(owner string, props scene.Properties) properties {
	out := properties{declared: map[string]any{}, params: map[string]any{}}
	expanded, errs := s.expandAll(owner, props)
	out.errs = errs
	for k, v := range expanded {
		if name, ok := strings.CutPrefix(k, DeclaredPrefix); ok && name != "" {
			out.declared[name] = v
		} else {
			out.params[k] = v
		}
	}
	return out
}

// takeFloat removes a declared numeric field and stores it in dst.
func (p *properties) takeFloat(name string, dst *float32) {
	v, ok := p.declared[name]
	if !ok {
		return
	}
	if f, ok := toFloat32(v); ok {
		*dst = f
		delete(p.declared, name)
	}
}

// takeBool removes a declared boolean field and stores it in dst.
func (p *properties) takeBool(name string, dst *bool) {
	if b, ok := p.declared[name].(bool); ok {
		*dst = b
		delete(p.declared, name)
	}
}

// merged returns params with the remaining declared fields laid over them.
func (p *properties) merged() map[string]any {
	m := make(map[string]any, len(p.params)+len(p.declared))
	for k, v := range p.params {
		m[k] = v
	}
	for k, v := range p.declared {
		m[k] = v
	}
	return m
}

func toFloat32(v any) (float32, bool) {
	switch n := v.(type) {
	case float64:
		return float32(n), true
	case float32:
		return n, true
	case int:
		return float32(n), true
	case int64:
		return float32(n), true
	case uint64:
		return float32(n), true
	default:
		return 0, false
	}
}

// encodeJSON serializes an opaque property map. encoding/json sorts map
// keys, so the output is stable.
func encodeJSON(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
