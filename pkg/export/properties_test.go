package export

import (
	"reflect"
	"testing"

	"github.com/RaphaelK12/blospray/pkg/scene"
)

func TestSubstituterExpand(t *testing.T) {
	s := newSubstituter(12, SubstituteKeep)
	tests := []struct {
		in, out, missing string
	}{
		{"plain", "plain", ""},
		{"f${frame}.raw", "f12.raw", ""},
		{"${frame}-${frame}", "12-12", ""},
		{"${nope}/${frame}", "${nope}/12", "nope"},
		{"$frame {frame}", "$frame {frame}", ""},
	}
	for _, tc := range tests {
		out, missing := s.expand(tc.in)
		if out != tc.out || missing != tc.missing {
			t.Errorf("expand(%q) = %q, %q; want %q, %q", tc.in, out, missing, tc.out, tc.missing)
		}
	}
}

func TestSubstituterNested(t *testing.T) {
	s := newSubstituter(3, SubstituteKeep)
	v, missing := s.value(map[string]any{
		"files": []any{"a${frame}", "b"},
		"n":     1.5,
	})
	if missing != "" {
		t.Errorf("missing = %q, want none", missing)
	}
	want := map[string]any{"files": []any{"a3", "b"}, "n": 1.5}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("value() = %v, want %v", v, want)
	}
}

func TestExpandAll(t *testing.T) {
	in := map[string]any{"b": "${x}", "a": "${y}", "c": "f${frame}"}
	tests := []struct {
		name   string
		policy SubstitutionPolicy
		want   map[string]any
	}{
		{"keep", SubstituteKeep, map[string]any{"a": "${y}", "b": "${x}", "c": "f2"}},
		{"fail", SubstituteFail, map[string]any{"c": "f2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, errs := newSubstituter(2, tc.policy).expandAll("Mesh", in)
			if !reflect.DeepEqual(out, tc.want) {
				t.Errorf("expandAll() = %v, want %v", out, tc.want)
			}
			if len(errs) != 2 {
				t.Fatalf("got %d errors, want 2", len(errs))
			}
			// Sorted by key.
			if se := errs[0].(*SubstitutionError); se.Property != "a" || se.Variable != "y" || se.Owner != "Mesh" {
				t.Errorf("errs[0] = %+v", se)
			}
		})
	}
}

func TestSplitProperties(t *testing.T) {
	s := newSubstituter(1, SubstituteFail)
	p := s.split("Obj", scene.Properties{
		"_":       "bare underscore",
		"_radius": 0.5,
		"_flag":   true,
		"_bad":    "${x}",
		"file":    "f${frame}",
	})
	if len(p.errs) != 1 {
		t.Errorf("got %d errors, want 1", len(p.errs))
	}
	if want := map[string]any{"radius": 0.5, "flag": true}; !reflect.DeepEqual(p.declared, want) {
		t.Errorf("declared = %v, want %v", p.declared, want)
	}
	if want := map[string]any{"_": "bare underscore", "file": "f1"}; !reflect.DeepEqual(p.params, want) {
		t.Errorf("params = %v, want %v", p.params, want)
	}

	var r float32
	var f bool
	p.takeFloat("radius", &r)
	p.takeBool("flag", &f)
	p.takeFloat("missing", &r)
	if r != 0.5 || !f {
		t.Errorf("took radius %v, flag %v", r, f)
	}
	if len(p.declared) != 0 {
		t.Errorf("declared not consumed: %v", p.declared)
	}

	js, err := encodeJSON(nil)
	if err != nil || js != "{}" {
		t.Errorf("encodeJSON(nil) = %q, %v", js, err)
	}
}
