package validator

import (
	"errors"
	"strings"
	"testing"
)

type item struct {
	Value        float64 `json:"value" validate:"gt=0"`
	EmissionDate string  `json:"emissionDate" validate:"required,date"`
	Assignor     string  `json:"assignor" validate:"required,uuid4"`
}

type request struct {
	Name  string `json:"name" validate:"max=5"`
	Items []item `json:"payables" validate:"required,min=1,dive"`
}

func TestValidateStruct(t *testing.T) {
	ok := &request{Items: []item{{Value: 10, EmissionDate: "2024-05-01", Assignor: "0b8a3f2e-5b1c-4c6e-9a57-2f7f3a6b1c21"}}}
	if errs := ValidateStruct(ok); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	bad := &request{
		Name:  "too long",
		Items: []item{{Value: 0, EmissionDate: "01/05/2024", Assignor: "nope"}},
	}
	errs := ValidateStruct(bad)
	for _, field := range []string{"name", "payables[0].value", "payables[0].emissionDate", "payables[0].assignor"} {
		if _, found := errs[field]; !found {
			t.Errorf("missing error for %s in %v", field, errs)
		}
	}
	if !strings.Contains(errs["payables[0].value"], "greater than 0") {
		t.Errorf("value message = %q", errs["payables[0].value"])
	}
}

func TestValidateEmptyList(t *testing.T) {
	errs := ValidateStruct(&request{Items: []item{}})
	if _, found := errs["payables"]; !found {
		t.Errorf("expected payables error, got %v", errs)
	}
}

func TestValidateReturnsError(t *testing.T) {
	err := Validate(&item{})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if len(verr.Fields) != 3 {
		t.Errorf("fields = %v", verr.Fields)
	}
	if !strings.HasPrefix(verr.Error(), "validation failed:") {
		t.Errorf("Error() = %q", verr.Error())
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-05-01", "2024-05-01T10:00:00Z"} {
		if _, err := ParseDate(s); err != nil {
			t.Errorf("ParseDate(%q): %v", s, err)
		}
	}
	if _, err := ParseDate("yesterday"); err == nil {
		t.Error("expected error")
	}
}
