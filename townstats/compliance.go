package townstats

import "fmt"

// Rules-score deductions for bylaw compliance findings.
const (
	penaltyInconsistent  = 8
	penaltyReview        = 3
	penaltyAGDisapproval = 5
)

// CountStatuses tallies provisions by status. Unknown statuses are ignored.
func CountStatuses(provisions []ComplianceProvision) StatusCounts {
	var c StatusCounts
	for _, p := range provisions {
		switch p.Status {
		case StatusCompliant:
			c.Compliant++
		case StatusInconsistent:
			c.Inconsistent++
		case StatusReview:
			c.Review++
		}
	}
	return c
}

// CompliancePenalty deducts 8 points per inconsistent provision, 3 per
// provision under review and 5 per Attorney General disapproval from a rules
// score, flooring at 0.
func CompliancePenalty(rulesScore int, counts StatusCounts, agDisapprovals int) int {
	adjusted := rulesScore -
		penaltyInconsistent*counts.Inconsistent -
		penaltyReview*counts.Review -
		penaltyAGDisapproval*agDisapprovals
	return max(adjusted, 0)
}

// ApplyCompliance returns a copy of card with the rules score reduced by
// CompliancePenalty. The rules label and grade and the overall score and grade
// are recomputed from the reduced rules score and the unchanged ops score.
func ApplyCompliance(card TownScorecard, counts StatusCounts, agDisapprovals int) TownScorecard {
	out := card
	out.Factors = append([]string(nil), card.Factors...)

	out.RulesScore = CompliancePenalty(card.RulesScore, counts, agDisapprovals)
	out.RulesFriction = FrictionFor(out.RulesScore)
	out.RulesGrade = GradeFor(out.RulesScore)
	out.OverallScore = roundInt(float64(out.RulesScore+out.OpsScore) / 2)
	out.Overall = GradeFor(out.OverallScore)

	if counts.Inconsistent > 0 {
		out.Factors = append(out.Factors, fmt.Sprintf("%d bylaw provision(s) inconsistent with state law", counts.Inconsistent))
	}
	if counts.Review > 0 {
		out.Factors = append(out.Factors, fmt.Sprintf("%d bylaw provision(s) under review", counts.Review))
	}
	if agDisapprovals > 0 {
		out.Factors = append(out.Factors, fmt.Sprintf("%d Attorney General disapproval(s)", agDisapprovals))
	}
	return out
}
