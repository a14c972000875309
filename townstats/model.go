// Package townstats computes ADU permit statistics and town scorecards from
// per-town permit counts, individual permit records and bylaw compliance data.
//
// Every function in this package is a pure computation over its arguments.
// Missing data degrades to sentinel results (a false ok flag, a nil pointer or
// zero) rather than an error.
package townstats

// TownRecord holds the aggregate ADU permit counts for one municipality.
type TownRecord struct {
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	County string `json:"county"`

	Population int `json:"population"`
	// SingleFamilyParcels is nil when the parcel count is unknown. Absent
	// parcel data is never treated as zero.
	SingleFamilyParcels *int `json:"singleFamilyParcels,omitempty"`

	Submitted int `json:"submitted"`
	Approved  int `json:"approved"`
	Denied    int `json:"denied"`
	Pending   int `json:"pending"`

	// ApprovalRate is the published percentage. It is the display value and
	// is not re-derived from Approved/Submitted.
	ApprovalRate float64 `json:"approvalRate"`
	ByRight      bool    `json:"byRight"`

	AvgRent         *int `json:"avgRent,omitempty"`
	MedianHomeValue *int `json:"medianHomeValue,omitempty"`
	// VarianceRate is the share (0-1) of ADU applications that needed a
	// variance or special permit.
	VarianceRate *float64 `json:"varianceRate,omitempty"`

	Source string `json:"source"`
}

// Inconsistencies reports count combinations that break the expected
// approved+denied+pending <= submitted relationship. Scoring does not depend
// on these holding.
func (t TownRecord) Inconsistencies() []string {
	var out []string
	if sum := t.Approved + t.Denied + t.Pending; sum > t.Submitted {
		out = append(out, "approved+denied+pending exceeds submitted")
	}
	if t.Submitted < 0 || t.Approved < 0 || t.Denied < 0 || t.Pending < 0 {
		out = append(out, "negative permit count")
	}
	return out
}

// PermitRecord is one building permit from a town's permit log. Dates are
// kept as published (MM/DD/YY or MM/DD/YYYY). A zero Cost or Sqft means the
// value was not reported.
type PermitRecord struct {
	Permit     string  `json:"permit"`
	Address    string  `json:"address"`
	Applied    string  `json:"applied"`
	Issued     string  `json:"issued"`
	Status     string  `json:"status"`
	Cost       float64 `json:"cost"`
	Sqft       float64 `json:"sqft"`
	Type       string  `json:"type"`
	Contractor string  `json:"contractor"`
	Notes      string  `json:"notes"`
}

// IssuedStatus is the only permit status counted toward review timelines.
const IssuedStatus = "Issued"

// ProvisionStatus classifies a bylaw provision against state ADU law.
type ProvisionStatus string

const (
	StatusCompliant    ProvisionStatus = "compliant"
	StatusInconsistent ProvisionStatus = "inconsistent"
	StatusReview       ProvisionStatus = "review"
)

// ComplianceProvision is one analyzed bylaw clause.
type ComplianceProvision struct {
	Provision string          `json:"provision"`
	Status    ProvisionStatus `json:"status"`
}

// StatusCounts tallies provisions by status for one town.
type StatusCounts struct {
	Compliant    int `json:"compliant"`
	Inconsistent int `json:"inconsistent"`
	Review       int `json:"review"`
}

// TownCompliance groups a town's analyzed provisions with the number of
// Attorney General bylaw disapprovals it has received.
type TownCompliance struct {
	Slug           string                `json:"slug"`
	Provisions     []ComplianceProvision `json:"provisions"`
	AGDisapprovals int                   `json:"agDisapprovals"`
}

// Grade is a letter grade A through F.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// FrictionLabel buckets a friction sub-score. A higher score means less
// friction, so Low is the favorable label.
type FrictionLabel string

const (
	FrictionLow    FrictionLabel = "Low"
	FrictionMedium FrictionLabel = "Medium"
	FrictionHigh   FrictionLabel = "High"
)

// TownScorecard is the derived composite grade for a town. It is recomputed
// on demand and never stored.
type TownScorecard struct {
	Overall      Grade `json:"overall"`
	OverallScore int   `json:"overallScore"`

	RulesFriction FrictionLabel `json:"rulesFriction"`
	RulesScore    int           `json:"rulesScore"`
	RulesGrade    Grade         `json:"rulesGrade"`

	OperationalFriction FrictionLabel `json:"operationalFriction"`
	OpsScore            int           `json:"opsScore"`
	OpsGrade            Grade         `json:"opsGrade"`

	Factors []string `json:"factors"`
}
