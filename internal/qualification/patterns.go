package qualification

import (
	"regexp"

	"github.com/cardion-health/precert/internal/patient"
)

// studyPatternSet maps diagnosis regexes to a study type. The table is
// ordered by the study hierarchy and never mutated after init; matching
// is first-match-wins within a set.
type studyPatternSet struct {
	Study patient.Study
	// RequiredSymptom is the patient-reported symptom a physician must
	// confirm before applying the upgrade.
	RequiredSymptom string
	Patterns        []*regexp.Regexp
}

var studyPatterns = []studyPatternSet{
	{
		Study:           patient.StudyNuclear,
		RequiredSymptom: "chest pain or exertional shortness of breath",
		Patterns: compile(
			`(?i)\bCABG\b`,
			`(?i)coronary artery bypass`,
			`(?i)\bPCI\b`,
			`(?i)\bstent\b`,
			`(?i)myocardial infarction`,
			`(?i)\bMI\b`,
			`(?i)\bNSTEMI\b|\bSTEMI\b`,
			`(?i)coronary artery disease`,
			`(?i)\bCAD\b`,
			`(?i)ischemic (heart disease|cardiomyopathy)`,
		),
	},
	{
		Study:           patient.StudyStressEcho,
		RequiredSymptom: "exertional chest discomfort",
		Patterns: compile(
			`(?i)angina`,
			`(?i)chest pain`,
			`(?i)abnormal (ekg|ecg|stress)`,
			`(?i)dyspnea on exertion`,
		),
	},
	{
		Study:           patient.StudyEcho,
		RequiredSymptom: "shortness of breath or palpitations",
		Patterns: compile(
			`(?i)heart failure`,
			`(?i)\bCHF\b|\bHFrEF\b|\bHFpEF\b`,
			`(?i)cardiomyopathy`,
			`(?i)murmur`,
			`(?i)valve|valvular|stenosis|regurgitation`,
			`(?i)atrial fibrillation|\bafib\b|\ba-fib\b`,
			`(?i)syncope`,
		),
	},
	{
		Study:           patient.StudyVascular,
		RequiredSymptom: "leg pain with walking or new neurologic symptoms",
		Patterns: compile(
			`(?i)carotid`,
			`(?i)\bTIA\b|transient ischemic`,
			`(?i)\bstroke\b|\bCVA\b`,
			`(?i)claudication`,
			`(?i)peripheral (artery|arterial|vascular) disease`,
			`(?i)\bPAD\b|\bPVD\b`,
			`(?i)\bDVT\b|deep vein`,
		),
	},
}

// nuclearUpgradePatterns force a STRESS_ECHO suggestion up to NUCLEAR:
// conditions that make an exercise echo unreliable or infeasible.
var nuclearUpgradePatterns = compile(
	`(?i)\bLBBB\b`,
	`(?i)left bundle branch block`,
	`(?i)paced rhythm|pacemaker`,
	`(?i)wheelchair`,
	`(?i)unable to (walk|exercise|ambulate)`,
	`(?i)cannot (walk|exercise|ambulate)`,
	`(?i)mobility (impair|limit)`,
	`(?i)amputat`,
)

// scheduledPatterns detect free-text mentions that a study of the given
// type is already booked.
var scheduledPatterns = map[patient.Study][]*regexp.Regexp{
	patient.StudyNuclear: compile(
		`(?i)nuclear (stress )?(test|study|scan)[^.]{0,40}(scheduled|booked|planned|ordered)`,
		`(?i)(scheduled|booked|planned|ordered)[^.]{0,40}nuclear`,
	),
	patient.StudyStressEcho: compile(
		`(?i)stress echo[^.]{0,40}(scheduled|booked|planned|ordered)`,
		`(?i)(scheduled|booked|planned|ordered)[^.]{0,40}stress echo`,
	),
	patient.StudyEcho: compile(
		`(?i)\becho(cardiogram)?\b[^.]{0,40}(scheduled|booked|planned|ordered)`,
		`(?i)(scheduled|booked|planned|ordered)[^.]{0,40}\becho(cardiogram)?\b`,
	),
	patient.StudyVascular: compile(
		`(?i)(carotid|vascular|arterial|venous) (duplex|ultrasound|doppler)[^.]{0,40}(scheduled|booked|planned|ordered)`,
		`(?i)(scheduled|booked|planned|ordered)[^.]{0,40}(carotid|vascular) (duplex|ultrasound|doppler)`,
	),
}

// priorStudyPatterns classify a prior-study free-text entry to a study
// type for the recency exclusion.
var priorStudyPatterns = []struct {
	Study    patient.Study
	Patterns []*regexp.Regexp
}{
	{patient.StudyNuclear, compile(`(?i)nuclear`, `(?i)myocardial perfusion`, `(?i)\bMPI\b`, `(?i)spect`)},
	{patient.StudyStressEcho, compile(`(?i)stress echo`)},
	{patient.StudyEcho, compile(`(?i)\becho(cardiogram)?\b`, `(?i)\bTTE\b`)},
	{patient.StudyVascular, compile(`(?i)carotid`, `(?i)vascular`, `(?i)duplex`, `(?i)doppler`)},
}

// studyDisplayNames are used in synthesized rationale sentences.
var studyDisplayNames = map[patient.Study]string{
	patient.StudyNuclear:    "nuclear stress test",
	patient.StudyStressEcho: "stress echocardiogram",
	patient.StudyEcho:       "echocardiogram",
	patient.StudyVascular:   "vascular ultrasound",
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
