package qualification

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/cardion-health/precert/internal/patient"
)

// recencyWindow excludes a study type when the same type was performed
// within this period before the date of service.
const recencyWindow = 365 * 24 * time.Hour

// maxSuggestions caps the result set.
const maxSuggestions = 2

// Suggestion proposes an upgrade path for a denied or empty outcome:
// confirm the required symptom and the study becomes clinically indicated.
type Suggestion struct {
	Study             patient.Study `json:"study"`
	MatchingDiagnosis string        `json:"matching_diagnosis"`
	RequiredSymptom   string        `json:"required_symptom"`
}

// Input carries the patient fields the engine evaluates.
type Input struct {
	Diagnoses         []string
	PriorStudies      []string
	DateOfService     time.Time
	AdditionalContext []string // symptoms + clinical notes
}

// GetSuggestions evaluates the pattern tables against the input and
// returns at most two suggestions in hierarchy order. Pure and
// deterministic: no lookups, no clock reads.
func GetSuggestions(in Input) []Suggestion {
	excluded := excludedStudies(in.PriorStudies, in.DateOfService)

	matches := make(map[patient.Study]string)
	for _, set := range studyPatterns {
		if excluded[set.Study] {
			continue
		}
		if diag, ok := firstMatch(set.Patterns, in.Diagnoses); ok {
			// First matching diagnosis wins for display.
			matches[set.Study] = diag
		}
	}

	// Nuclear upgrade: conditions that invalidate an exercise echo promote
	// a STRESS_ECHO suggestion to NUCLEAR, keeping the original diagnosis.
	if diag, ok := matches[patient.StudyStressEcho]; ok && !excluded[patient.StudyNuclear] {
		if matchesAny(nuclearUpgradePatterns, in.Diagnoses) || matchesAny(nuclearUpgradePatterns, in.AdditionalContext) {
			if _, has := matches[patient.StudyNuclear]; !has {
				matches[patient.StudyNuclear] = diag
			}
			delete(matches, patient.StudyStressEcho)
		}
	}

	// Same-tier exclusivity: never offer both top-tier stress modalities.
	if _, hasNuclear := matches[patient.StudyNuclear]; hasNuclear {
		delete(matches, patient.StudyStressEcho)
	}

	var result []Suggestion
	for _, set := range studyPatterns {
		diag, ok := matches[set.Study]
		if !ok {
			continue
		}
		result = append(result, Suggestion{
			Study:             set.Study,
			MatchingDiagnosis: diag,
			RequiredSymptom:   set.RequiredSymptom,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return patient.HierarchyRank(result[i].Study) < patient.HierarchyRank(result[j].Study)
	})

	if len(result) > maxSuggestions {
		result = result[:maxSuggestions]
	}

	return result
}

// excludedStudies returns the study types performed within the recency
// window before the date of service. Entries without a parseable date
// never exclude.
func excludedStudies(priorStudies []string, dateOfService time.Time) map[patient.Study]bool {
	excluded := make(map[patient.Study]bool)

	for _, entry := range priorStudies {
		study, ok := classifyPriorStudy(entry)
		if !ok {
			continue
		}

		date, ok := parseStudyDate(entry)
		if !ok {
			continue
		}

		age := dateOfService.Sub(date)
		if age >= 0 && age < recencyWindow {
			excluded[study] = true
		}
	}

	return excluded
}

// classifyPriorStudy maps a free-text prior-study entry to a study type
func classifyPriorStudy(entry string) (patient.Study, bool) {
	for _, set := range priorStudyPatterns {
		for _, re := range set.Patterns {
			if re.MatchString(entry) {
				return set.Study, true
			}
		}
	}
	return "", false
}

// dateTokens are tried in order; the first token that parses wins.
var dateTokens = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), "2006-01-02"},
	{regexp.MustCompile(`\d{2}-\d{2}-\d{4}`), "01-02-2006"},
	{regexp.MustCompile(`\d{2}-\d{2}-\d{2}`), "01-02-06"},
}

// parseStudyDate finds the first date-shaped token in a prior-study entry
func parseStudyDate(entry string) (time.Time, bool) {
	for _, tok := range dateTokens {
		if m := tok.re.FindString(entry); m != "" {
			if t, err := time.Parse(tok.layout, m); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// firstMatch returns the first candidate string matched by any pattern
func firstMatch(patterns []*regexp.Regexp, candidates []string) (string, bool) {
	for _, c := range candidates {
		for _, re := range patterns {
			if re.MatchString(c) {
				return c, true
			}
		}
	}
	return "", false
}

func matchesAny(patterns []*regexp.Regexp, candidates []string) bool {
	_, ok := firstMatch(patterns, candidates)
	return ok
}

// DetectScheduled scans clinical notes for phrases indicating a study of
// the given type is already booked. Returns the matched excerpt for
// display; the suggestion set itself is never altered.
func DetectScheduled(notes string, study patient.Study) (bool, string) {
	for _, re := range scheduledPatterns[study] {
		if m := re.FindString(notes); m != "" {
			return true, m
		}
	}
	return false, ""
}

// BuildRationale synthesizes the qualification rationale sentence.
func BuildRationale(symptom, diagnosis string, study patient.Study) string {
	name := studyDisplayNames[study]
	return fmt.Sprintf("Patient reports %s. Given history of %s and no %s in over 1 year, %s is clinically indicated for evaluation.",
		symptom, diagnosis, name, name)
}
