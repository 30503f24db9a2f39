package rules

import (
	"time"

	"github.com/cardion-health/precert/internal/shared/types"
)

// AuthorizationRule is a named free-text criteria document. The decision
// engine embeds the criteria text verbatim in its grounding prompt.
type AuthorizationRule struct {
	ID        types.ID  `json:"id"`
	Name      string    `json:"name"`
	Criteria  string    `json:"criteria"`
	UpdatedBy string    `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RulePerformance holds running agreement counters for one rule, updated
// whenever a reviewer approves or holds a decision citing it.
type RulePerformance struct {
	ID             types.ID  `json:"id"`
	RuleName       string    `json:"rule_name"`
	TimesApplied   int       `json:"times_applied"`
	TimesAgreed    int       `json:"times_agreed"`
	TimesDisagreed int       `json:"times_disagreed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// defaultRules seed the repository on first startup.
var defaultRules = []struct {
	Name     string
	Criteria string
}{
	{
		Name: "Medicare Coverage",
		Criteria: `Traditional Medicare (Part A/B) covers cardiology diagnostic studies ordered by a treating physician without prior authorization. Approve automatically when the insurance is traditional Medicare.
Medicare Advantage plans are commercial plans and must meet the commercial medical-necessity criteria below.`,
	},
	{
		Name: "Nuclear Stress Test Criteria",
		Criteria: `Nuclear myocardial perfusion imaging is indicated for:
- Known coronary artery disease (prior MI, CABG, PCI/stent) with new or worsening symptoms
- Intermediate or high pre-test probability of CAD with inability to exercise
- Left bundle branch block or ventricular paced rhythm (exercise echo unreliable)
- Abnormal prior stress imaging requiring reassessment after intervention
A nuclear study within the prior 12 months for the same indication is not covered absent new symptoms.`,
	},
	{
		Name: "Stress Echocardiography Criteria",
		Criteria: `Stress echocardiography is indicated for:
- Intermediate pre-test probability of CAD in patients able to exercise
- Evaluation of exertional chest pain, dyspnea, or syncope
- Valvular disease severity assessment under stress
Not indicated when LBBB or paced rhythm is present; use nuclear imaging instead.`,
	},
	{
		Name: "Transthoracic Echocardiogram Criteria",
		Criteria: `Resting echocardiography is indicated for:
- New murmur, heart failure symptoms, or suspected cardiomyopathy
- Follow-up of known valvular disease or reduced ejection fraction
- Syncope or palpitations with suspected structural cause
Repeat echo within 12 months requires a documented change in clinical status.`,
	},
	{
		Name: "Vascular Ultrasound Criteria",
		Criteria: `Vascular duplex ultrasound is indicated for:
- Carotid bruit, TIA, or stroke symptoms (carotid duplex)
- Claudication or diminished pulses (arterial duplex)
- Suspected DVT or venous insufficiency (venous duplex)`,
	},
	{
		Name: "Documentation Requirements",
		Criteria: `Every authorization request must document: patient name, date of birth, ordering physician, relevant diagnoses, and current symptoms. When a critical field cannot be determined from the chart, flag the request for manual review rather than denying it.`,
	},
}
