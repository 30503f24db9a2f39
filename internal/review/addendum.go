package review

import (
	"fmt"
	"regexp"
	"strings"
)

// optionsPattern captures a trailing parenthetical in a missing-field
// string, e.g. "Symptom status (new, worsening, or stable)".
var optionsPattern = regexp.MustCompile(`^(.*?)\s*\(([^)]+)\)\s*$`)

// ParseMissingField splits a missing-field prompt into its label and any
// implicit multiple-choice options. A trailing parenthetical of comma or
// "or"-separated items encodes the options; without one the field is
// free text.
func ParseMissingField(field string) (label string, options []string) {
	m := optionsPattern.FindStringSubmatch(strings.TrimSpace(field))
	if m == nil {
		return strings.TrimSpace(field), nil
	}

	label = strings.TrimSpace(m[1])

	raw := strings.ReplaceAll(m[2], " or ", ",")
	for _, part := range strings.Split(raw, ",") {
		if opt := strings.TrimSpace(part); opt != "" {
			options = append(options, opt)
		}
	}

	if len(options) < 2 {
		return strings.TrimSpace(field), nil
	}
	return label, options
}

// FormatAddendum renders the stored addendum text for a label and the
// physician's chosen or typed answer.
func FormatAddendum(label, choice string) string {
	return fmt.Sprintf("%s: %s", label, choice)
}

// SpliceAddendum patches one addendum into rationale prose. The first
// case-insensitive whole-word occurrence of the label is replaced with
// "<choice> <label>"; when the label does not occur, the fallback
// sentence "The <label> is <choice>." is appended. Best-effort text
// surgery only, no re-evaluation of the decision.
func SpliceAddendum(rationale, label, choice string) string {
	if label == "" || choice == "" {
		return rationale
	}

	pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(label) + `\b`)
	if err != nil {
		return rationale
	}

	loc := pattern.FindStringIndex(rationale)
	if loc == nil {
		appended := strings.TrimRight(rationale, " ")
		if appended != "" && !strings.HasSuffix(appended, ".") {
			appended += "."
		}
		return strings.TrimRight(appended+fmt.Sprintf(" The %s is %s.", label, choice), " ")
	}

	matched := rationale[loc[0]:loc[1]]
	return rationale[:loc[0]] + choice + " " + matched + rationale[loc[1]:]
}

// ApplyAddenda splices each stored "Label: choice" addendum into the
// rationale in order.
func ApplyAddenda(rationale string, addenda []string) string {
	out := rationale
	for _, a := range addenda {
		label, choice, ok := strings.Cut(a, ":")
		if !ok {
			continue
		}
		out = SpliceAddendum(out, strings.TrimSpace(label), strings.TrimSpace(choice))
	}
	return out
}
