package townstats

// Quadrant places a town on the permit-volume / bylaw-quality grid.
type Quadrant string

const (
	QuadrantGreenLight Quadrant = "Green Light"
	QuadrantPaperTiger Quadrant = "Paper Tiger"
	QuadrantUntapped   Quadrant = "Untapped"
	QuadrantWalledOff  Quadrant = "Walled Off"
)

// Rules score at or above which a bylaw counts as clean.
const cleanBylawRulesScore = 65

// ClassifyQuadrant buckets a town by whether it has high permit volume
// (submitted >= 15) and clean bylaws (rulesScore >= 65).
func ClassifyQuadrant(submitted, rulesScore int) Quadrant {
	highPermits := submitted >= highVolumeSubmitted
	cleanBylaws := rulesScore >= cleanBylawRulesScore
	switch {
	case highPermits && cleanBylaws:
		return QuadrantGreenLight
	case highPermits:
		return QuadrantPaperTiger
	case cleanBylaws:
		return QuadrantUntapped
	default:
		return QuadrantWalledOff
	}
}
