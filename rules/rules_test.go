package rules

import (
	"testing"

	"github.com/hazyhaar/fiche/change"
)

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	a := ExplainFunc("same", func(change.FieldChange, []change.FieldChange) (change.FieldChange, float64, bool) {
		return change.FieldChange{}, 0, false
	})
	b := ExplainFunc("same", func(change.FieldChange, []change.FieldChange) (change.FieldChange, float64, bool) {
		return change.FieldChange{}, 0, false
	})
	if _, err := NewRegistry(a, b); err == nil {
		t.Fatal("expected duplicate-name error")
	}
}

func TestRegistry_Resolve(t *testing.T) {
	reg := DefaultRegistry()

	got, err := reg.Resolve([]string{"feature_resource", "level_hit_points"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name() != "feature_resource" || got[1].Name() != "level_hit_points" {
		t.Fatalf("order not preserved: %v", got)
	}

	if _, err := reg.Resolve([]string{"no_such_rule"}); err == nil {
		t.Fatal("expected unknown-rule error")
	}
}

func TestDefaultRegistry_CoversBuiltins(t *testing.T) {
	reg := DefaultRegistry()
	for _, r := range Default() {
		if _, ok := reg[r.Name()]; !ok {
			t.Errorf("builtin %q missing from registry", r.Name())
		}
	}
}

func TestExplainFunc_Name(t *testing.T) {
	r := ExplainFunc("probe", func(change.FieldChange, []change.FieldChange) (change.FieldChange, float64, bool) {
		return change.FieldChange{}, 0, false
	})
	if r.Name() != "probe" {
		t.Fatalf("name: %q", r.Name())
	}
}
