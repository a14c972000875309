package townstats

// ReviewInputs feeds the points-based review grade. MedianReviewDays and
// VarianceRate are nil when unknown.
type ReviewInputs struct {
	ApprovalRate     float64
	MedianReviewDays *int
	VarianceRate     *float64
}

// ReviewScorecard is the result of the points-based review grade. It is a
// separate scheme from TownScorecard and the two can disagree for the same
// town.
type ReviewScorecard struct {
	Grade          Grade `json:"grade"`
	Points         int   `json:"points"`
	ApprovalPoints int   `json:"approvalPoints"`
	SpeedPoints    int   `json:"speedPoints"`
	VariancePoints int   `json:"variancePoints"`
}

// MaxReviewPoints is the best possible ReviewScorecard.Points.
const MaxReviewPoints = 9

// ReviewInputsFor builds ReviewInputs from a town and its optional timeline.
func ReviewInputsFor(t TownRecord, timeline *TimelineStats) ReviewInputs {
	in := ReviewInputs{
		ApprovalRate: t.ApprovalRate,
		VarianceRate: t.VarianceRate,
	}
	if timeline != nil {
		d := timeline.MedianDays
		in.MedianReviewDays = &d
	}
	return in
}

// ComputeReviewGrade awards 0-3 points each for approval rate, median review
// speed and variance rate, then maps the 0-9 total to A (>=8), B (>=6),
// C (>=4) or D. Unknown speed or variance inputs earn no points.
func ComputeReviewGrade(in ReviewInputs) ReviewScorecard {
	sc := ReviewScorecard{
		ApprovalPoints: approvalPoints(in.ApprovalRate),
		SpeedPoints:    speedPoints(in.MedianReviewDays),
		VariancePoints: variancePoints(in.VarianceRate),
	}
	sc.Points = sc.ApprovalPoints + sc.SpeedPoints + sc.VariancePoints

	switch {
	case sc.Points >= 8:
		sc.Grade = GradeA
	case sc.Points >= 6:
		sc.Grade = GradeB
	case sc.Points >= 4:
		sc.Grade = GradeC
	default:
		sc.Grade = GradeD
	}
	return sc
}

func approvalPoints(rate float64) int {
	switch {
	case rate >= 90:
		return 3
	case rate >= 75:
		return 2
	case rate >= 50:
		return 1
	default:
		return 0
	}
}

func speedPoints(days *int) int {
	if days == nil {
		return 0
	}
	switch {
	case *days <= 30:
		return 3
	case *days <= 60:
		return 2
	case *days <= 90:
		return 1
	default:
		return 0
	}
}

func variancePoints(rate *float64) int {
	if rate == nil {
		return 0
	}
	switch {
	case *rate <= 0.05:
		return 3
	case *rate <= 0.15:
		return 2
	case *rate <= 0.30:
		return 1
	default:
		return 0
	}
}
