package qualification

import (
	"testing"
	"time"

	"github.com/cardion-health/precert/internal/patient"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad test date %q: %v", value, err)
	}
	return d
}

// TestSuggestionForBypassHistory tests that a bypass history with no
// recent studies suggests a nuclear stress test
func TestSuggestionForBypassHistory(t *testing.T) {
	got := GetSuggestions(Input{
		Diagnoses:     []string{"CABG 2019"},
		PriorStudies:  []string{},
		DateOfService: mustDate(t, "2025-06-01"),
	})

	if len(got) != 1 {
		t.Fatalf("Expected 1 suggestion, got %d", len(got))
	}
	if got[0].Study != patient.StudyNuclear {
		t.Errorf("Expected NUCLEAR, got %s", got[0].Study)
	}
	if got[0].MatchingDiagnosis != "CABG 2019" {
		t.Errorf("Expected matching diagnosis to be the original string, got %q", got[0].MatchingDiagnosis)
	}
}

// TestNuclearExcludesStressEcho tests that the result set never contains
// both top-tier stress modalities
func TestNuclearExcludesStressEcho(t *testing.T) {
	got := GetSuggestions(Input{
		Diagnoses:     []string{"stable angina", "coronary artery disease"},
		DateOfService: mustDate(t, "2025-06-01"),
	})

	var hasNuclear, hasStressEcho bool
	for _, s := range got {
		switch s.Study {
		case patient.StudyNuclear:
			hasNuclear = true
		case patient.StudyStressEcho:
			hasStressEcho = true
		}
	}

	if !hasNuclear {
		t.Error("Expected a NUCLEAR suggestion")
	}
	if hasStressEcho {
		t.Error("Expected STRESS_ECHO to be dropped when NUCLEAR is suggested")
	}
}

// TestNuclearUpgrade tests that exercise-limiting conditions promote a
// stress echo suggestion to nuclear
func TestNuclearUpgrade(t *testing.T) {
	tests := []struct {
		name      string
		diagnoses []string
		context   []string
	}{
		{"LBBB in diagnoses", []string{"exertional angina", "LBBB"}, nil},
		{"mobility in context", []string{"chest pain"}, []string{"patient is wheelchair bound"}},
		{"unable to exercise", []string{"chest pain"}, []string{"unable to walk on treadmill"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetSuggestions(Input{
				Diagnoses:         tt.diagnoses,
				AdditionalContext: tt.context,
				DateOfService:     mustDate(t, "2025-06-01"),
			})

			if len(got) == 0 {
				t.Fatal("Expected at least one suggestion")
			}
			if got[0].Study != patient.StudyNuclear {
				t.Errorf("Expected NUCLEAR after upgrade, got %s", got[0].Study)
			}
			if got[0].MatchingDiagnosis != tt.diagnoses[0] {
				t.Errorf("Expected original diagnosis preserved, got %q", got[0].MatchingDiagnosis)
			}
		})
	}
}

// TestRecencyExclusionBoundary tests the one-year exclusion window edges
func TestRecencyExclusionBoundary(t *testing.T) {
	dos := mustDate(t, "2025-06-01")

	tests := []struct {
		name        string
		priorDate   string
		wantNuclear bool
	}{
		{"364 days ago excludes", dos.AddDate(0, 0, -364).Format("2006-01-02"), false},
		{"366 days ago does not exclude", dos.AddDate(0, 0, -366).Format("2006-01-02"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetSuggestions(Input{
				Diagnoses:     []string{"coronary artery disease"},
				PriorStudies:  []string{"Nuclear stress test " + tt.priorDate},
				DateOfService: dos,
			})

			hasNuclear := false
			for _, s := range got {
				if s.Study == patient.StudyNuclear {
					hasNuclear = true
				}
			}
			if hasNuclear != tt.wantNuclear {
				t.Errorf("hasNuclear = %v, want %v", hasNuclear, tt.wantNuclear)
			}
		})
	}
}

// TestUnparseableDateNeverExcludes tests that a prior study without a
// recognizable date does not trigger the exclusion
func TestUnparseableDateNeverExcludes(t *testing.T) {
	got := GetSuggestions(Input{
		Diagnoses:     []string{"coronary artery disease"},
		PriorStudies:  []string{"Nuclear stress test last spring"},
		DateOfService: mustDate(t, "2025-06-01"),
	})

	if len(got) == 0 || got[0].Study != patient.StudyNuclear {
		t.Error("Expected NUCLEAR suggestion when prior study date is unparseable")
	}
}

// TestDateFormats tests the supported prior-study date formats
func TestDateFormats(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"ISO", "Echocardiogram 2025-03-01"},
		{"US long year", "Echocardiogram 03-01-2025"},
		{"US short year", "Echocardiogram 03-01-25"},
	}

	dos := mustDate(t, "2025-06-01")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetSuggestions(Input{
				Diagnoses:     []string{"heart failure"},
				PriorStudies:  []string{tt.entry},
				DateOfService: dos,
			})

			for _, s := range got {
				if s.Study == patient.StudyEcho {
					t.Errorf("Expected ECHO excluded for entry %q", tt.entry)
				}
			}
		})
	}
}

// TestSuggestionCapAndOrder tests the two-suggestion cap in hierarchy
// order
func TestSuggestionCapAndOrder(t *testing.T) {
	got := GetSuggestions(Input{
		Diagnoses: []string{
			"coronary artery disease",
			"heart failure",
			"carotid stenosis",
		},
		DateOfService: mustDate(t, "2025-06-01"),
	})

	if len(got) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(got))
	}
	if got[0].Study != patient.StudyNuclear {
		t.Errorf("Expected NUCLEAR first, got %s", got[0].Study)
	}
	if got[1].Study != patient.StudyEcho {
		t.Errorf("Expected ECHO second, got %s", got[1].Study)
	}
}

// TestNoMatchesReturnsEmpty tests that unrelated diagnoses produce no
// suggestions
func TestNoMatchesReturnsEmpty(t *testing.T) {
	got := GetSuggestions(Input{
		Diagnoses:     []string{"type 2 diabetes", "hypothyroidism"},
		DateOfService: mustDate(t, "2025-06-01"),
	})

	if len(got) != 0 {
		t.Errorf("Expected no suggestions, got %d", len(got))
	}
}

// TestDetectScheduled tests the scheduled-study detector
func TestDetectScheduled(t *testing.T) {
	notes := "Discussed options. Nuclear stress test scheduled for next month."

	found, excerpt := DetectScheduled(notes, patient.StudyNuclear)
	if !found {
		t.Fatal("Expected scheduled nuclear study to be detected")
	}
	if excerpt == "" {
		t.Error("Expected a non-empty excerpt")
	}

	found, _ = DetectScheduled(notes, patient.StudyVascular)
	if found {
		t.Error("Did not expect a scheduled vascular study")
	}
}

// TestBuildRationale tests the synthesized rationale sentence
func TestBuildRationale(t *testing.T) {
	got := BuildRationale("chest pain", "CABG 2019", patient.StudyNuclear)
	want := "Patient reports chest pain. Given history of CABG 2019 and no nuclear stress test in over 1 year, nuclear stress test is clinically indicated for evaluation."
	if got != want {
		t.Errorf("BuildRationale = %q, want %q", got, want)
	}
}
