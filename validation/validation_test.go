package validation

import (
	"strings"
	"testing"
)

type sample struct {
	Name   string   `json:"name" validate:"required,max=8"`
	Kind   string   `json:"kind" validate:"required,oneof=a b"`
	Labels []string `json:"labels,omitempty" validate:"omitempty,max=2,dive,required"`
}

func TestValidateStruct_Valid(t *testing.T) {
	errs := ValidateStruct(&sample{Name: "n", Kind: "a"})
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateStruct_JSONKeyedErrors(t *testing.T) {
	errs := ValidateStruct(&sample{Kind: "c"})
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
	if _, ok := errs["name"]; !ok {
		t.Error("errors must be keyed by json tag, missing 'name'")
	}
	if msg, ok := errs["kind"]; !ok || !strings.Contains(msg, "a b") {
		t.Errorf("oneof message should list allowed values, got %q", msg)
	}
}

func TestValidateStruct_SliceLimits(t *testing.T) {
	errs := ValidateStruct(&sample{Name: "n", Kind: "a", Labels: []string{"x", "y", "z"}})
	if _, ok := errs["labels"]; !ok {
		t.Errorf("expected error on labels, got %v", errs)
	}
}
