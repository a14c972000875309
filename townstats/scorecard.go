package townstats

import "fmt"

// Score thresholds shared by every letter grade and friction label.
const (
	gradeAThreshold = 80
	gradeBThreshold = 65
	gradeCThreshold = 50
	gradeDThreshold = 35

	frictionLowThreshold    = 65
	frictionMediumThreshold = 40

	maxScore = 100
)

// Volume at or above which a town counts as high permit volume.
const highVolumeSubmitted = 15

// GradeFor maps a 0-100 score to a letter grade.
func GradeFor(score int) Grade {
	switch {
	case score >= gradeAThreshold:
		return GradeA
	case score >= gradeBThreshold:
		return GradeB
	case score >= gradeCThreshold:
		return GradeC
	case score >= gradeDThreshold:
		return GradeD
	default:
		return GradeF
	}
}

// FrictionFor maps a 0-100 sub-score to a friction label.
func FrictionFor(score int) FrictionLabel {
	switch {
	case score >= frictionLowThreshold:
		return FrictionLow
	case score >= frictionMediumThreshold:
		return FrictionMedium
	default:
		return FrictionHigh
	}
}

// ComputeScorecard grades a town on rules friction (what the bylaw allows)
// and operational friction (how the permit office performs). timeline may be
// nil, in which case the review-speed component is estimated from the
// pending rate.
func ComputeScorecard(t TownRecord, timeline *TimelineStats) TownScorecard {
	var factors []string

	rules, rf := rulesScore(t)
	factors = append(factors, rf...)
	ops, of := opsScore(t, timeline)
	factors = append(factors, of...)

	overall := roundInt(float64(rules+ops) / 2)
	return TownScorecard{
		Overall:             GradeFor(overall),
		OverallScore:        overall,
		RulesFriction:       FrictionFor(rules),
		RulesScore:          rules,
		RulesGrade:          GradeFor(rules),
		OperationalFriction: FrictionFor(ops),
		OpsScore:            ops,
		OpsGrade:            GradeFor(ops),
		Factors:             factors,
	}
}

func rulesScore(t TownRecord) (int, []string) {
	score := 0
	var factors []string

	if t.ByRight {
		score += 40
		factors = append(factors, "ADUs allowed by right")
	} else {
		factors = append(factors, "ADUs require discretionary review")
	}

	rate := formatPct(t.ApprovalRate)
	switch {
	case t.ApprovalRate >= 80:
		score += 40
		factors = append(factors, "High approval rate ("+rate+")")
	case t.ApprovalRate >= 60:
		score += 25
		factors = append(factors, "Moderate approval rate ("+rate+")")
	case t.ApprovalRate >= 40:
		score += 15
		factors = append(factors, "Low approval rate ("+rate+")")
	default:
		score += 5
		factors = append(factors, "Very low approval rate ("+rate+")")
	}

	switch {
	case t.Denied == 0:
		score += 20
		factors = append(factors, "No denials")
	case t.Denied <= 2:
		score += 10
		factors = append(factors, fmt.Sprintf("Few denials (%d)", t.Denied))
	default:
		factors = append(factors, fmt.Sprintf("Frequent denials (%d)", t.Denied))
	}

	return min(score, maxScore), factors
}

func opsScore(t TownRecord, timeline *TimelineStats) (int, []string) {
	score := 0
	var factors []string

	pendingRate := 0.0
	if t.Submitted > 0 {
		pendingRate = float64(t.Pending) / float64(t.Submitted)
	}
	pending := formatPct(pendingRate * 100)
	switch {
	case pendingRate <= 0.10:
		score += 30
		factors = append(factors, "Small pending backlog ("+pending+")")
	case pendingRate <= 0.25:
		score += 20
		factors = append(factors, "Moderate pending backlog ("+pending+")")
	case pendingRate <= 0.40:
		score += 10
		factors = append(factors, "Large pending backlog ("+pending+")")
	default:
		factors = append(factors, "Severe pending backlog ("+pending+")")
	}

	if timeline != nil {
		d := timeline.MedianDays
		switch {
		case d <= 30:
			score += 40
			factors = append(factors, fmt.Sprintf("Fast median review (%d days)", d))
		case d <= 60:
			score += 30
			factors = append(factors, fmt.Sprintf("Typical median review (%d days)", d))
		case d <= 90:
			score += 20
			factors = append(factors, fmt.Sprintf("Slow median review (%d days)", d))
		default:
			score += 10
			factors = append(factors, fmt.Sprintf("Very slow median review (%d days)", d))
		}
	} else {
		// Estimate only; not on the same scale as measured timelines.
		if pendingRate <= 0.15 {
			score += 25
		} else {
			score += 15
		}
		factors = append(factors, "Review speed estimated from pending rate")
	}

	switch {
	case t.Submitted >= highVolumeSubmitted:
		score += 30
		factors = append(factors, fmt.Sprintf("High application volume (%d)", t.Submitted))
	case t.Submitted >= 8:
		score += 20
		factors = append(factors, fmt.Sprintf("Moderate application volume (%d)", t.Submitted))
	default:
		score += 10
		factors = append(factors, fmt.Sprintf("Low application volume (%d)", t.Submitted))
	}

	return min(score, maxScore), factors
}

func formatPct(v float64) string {
	return fmt.Sprintf("%g%%", roundTo(v, 1))
}
