package townstats

import "testing"

func floatPtr(v float64) *float64 { return &v }

func TestComputeReviewGrade(t *testing.T) {
	tests := []struct {
		name       string
		in         ReviewInputs
		wantPoints int
		want       Grade
	}{
		{"top marks", ReviewInputs{ApprovalRate: 95, MedianReviewDays: intPtr(25), VarianceRate: floatPtr(0)}, 9, GradeA},
		{"eight points", ReviewInputs{ApprovalRate: 80, MedianReviewDays: intPtr(20), VarianceRate: floatPtr(0.02)}, 8, GradeA},
		{"six points", ReviewInputs{ApprovalRate: 76, MedianReviewDays: intPtr(45), VarianceRate: floatPtr(0.10)}, 6, GradeB},
		{"four points", ReviewInputs{ApprovalRate: 60, MedianReviewDays: intPtr(85), VarianceRate: floatPtr(0.10)}, 4, GradeC},
		{"unknown inputs", ReviewInputs{ApprovalRate: 92}, 3, GradeD},
		{"upper cut-offs", ReviewInputs{ApprovalRate: 90, MedianReviewDays: intPtr(30), VarianceRate: floatPtr(0.05)}, 9, GradeA},
		{"middle cut-offs", ReviewInputs{ApprovalRate: 75, MedianReviewDays: intPtr(60), VarianceRate: floatPtr(0.15)}, 6, GradeB},
		{"lower cut-offs", ReviewInputs{ApprovalRate: 50, MedianReviewDays: intPtr(90), VarianceRate: floatPtr(0.30)}, 3, GradeD},
		{"poor", ReviewInputs{ApprovalRate: 30, MedianReviewDays: intPtr(200), VarianceRate: floatPtr(0.5)}, 0, GradeD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeReviewGrade(tt.in)
			if got.Points != tt.wantPoints || got.Grade != tt.want {
				t.Errorf("got %d points / %s, want %d / %s", got.Points, got.Grade, tt.wantPoints, tt.want)
			}
		})
	}
}

func TestReviewGradeDivergesFromScorecard(t *testing.T) {
	// By-right town with a clean record but slow reviews and frequent variances.
	town := TownRecord{ByRight: true, ApprovalRate: 85, Submitted: 20, VarianceRate: floatPtr(0.4)}
	timeline := &TimelineStats{MedianDays: 100}

	card := ComputeScorecard(town, timeline)
	review := ComputeReviewGrade(ReviewInputsFor(town, timeline))

	if card.Overall != GradeA {
		t.Fatalf("scorecard grade = %s, want A", card.Overall)
	}
	if review.Grade != GradeD {
		t.Errorf("review grade = %s, want D", review.Grade)
	}
}
