package review

import (
	"strings"
	"testing"
)

// TestParseMissingField tests option detection in missing-field prompts
func TestParseMissingField(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		wantLabel   string
		wantOptions []string
	}{
		{
			"comma separated",
			"Ejection fraction (normal, reduced, unknown)",
			"Ejection fraction",
			[]string{"normal", "reduced", "unknown"},
		},
		{
			"or separated",
			"Symptom status (new or worsening or stable)",
			"Symptom status",
			[]string{"new", "worsening", "stable"},
		},
		{
			"mixed separators",
			"Symptom status (new, worsening, or stable)",
			"Symptom status",
			[]string{"new", "worsening", "stable"},
		},
		{
			"no parenthetical is free text",
			"Referring physician NPI",
			"Referring physician NPI",
			nil,
		},
		{
			"single option is not a choice",
			"Prior imaging (if any)",
			"Prior imaging (if any)",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, options := ParseMissingField(tt.field)
			if label != tt.wantLabel {
				t.Errorf("label = %q, want %q", label, tt.wantLabel)
			}
			if len(options) != len(tt.wantOptions) {
				t.Fatalf("options = %v, want %v", options, tt.wantOptions)
			}
			for i := range options {
				if options[i] != tt.wantOptions[i] {
					t.Errorf("option[%d] = %q, want %q", i, options[i], tt.wantOptions[i])
				}
			}
		})
	}
}

// TestSpliceAddendum tests the whole-word label replacement
func TestSpliceAddendum(t *testing.T) {
	tests := []struct {
		name      string
		rationale string
		label     string
		choice    string
		want      string
	}{
		{
			"first match replaced",
			"The ejection fraction was not documented.",
			"ejection fraction",
			"reduced",
			"The reduced ejection fraction was not documented.",
		},
		{
			"case insensitive",
			"Ejection Fraction unclear from chart.",
			"ejection fraction",
			"normal",
			"normal Ejection Fraction unclear from chart.",
		},
		{
			"only first occurrence",
			"The symptom status is unclear; symptom status must be confirmed.",
			"symptom status",
			"worsening",
			"The worsening symptom status is unclear; symptom status must be confirmed.",
		},
		{
			"no whole-word match falls back",
			"Chart documents cardiomyopathy.",
			"ejection fraction",
			"reduced",
			"Chart documents cardiomyopathy. The ejection fraction is reduced.",
		},
		{
			"substring is not a whole word",
			"Refractional analysis pending.",
			"fraction",
			"reduced",
			"Refractional analysis pending. The fraction is reduced.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SpliceAddendum(tt.rationale, tt.label, tt.choice); got != tt.want {
				t.Errorf("SpliceAddendum = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestApplyAddenda tests splicing the stored "Label: choice" records
func TestApplyAddenda(t *testing.T) {
	rationale := "The ejection fraction was not documented and symptom status is unknown."
	addenda := []string{
		"ejection fraction: reduced",
		"symptom status: worsening",
		"not a record",
	}

	got := ApplyAddenda(rationale, addenda)
	if !strings.Contains(got, "reduced ejection fraction") {
		t.Errorf("Expected ejection fraction splice, got %q", got)
	}
	if !strings.Contains(got, "worsening symptom status") {
		t.Errorf("Expected symptom status splice, got %q", got)
	}
}
