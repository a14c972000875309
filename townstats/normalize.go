package townstats

import "math"

// ApprovalsPerThousandParcels returns approvals per 1,000 single-family
// parcels rounded to two decimals. ok is false when the parcel count is
// unknown or zero.
func ApprovalsPerThousandParcels(t TownRecord) (rate float64, ok bool) {
	return perThousandParcels(t.Approved, t.SingleFamilyParcels)
}

// SubmittedPerThousandParcels is ApprovalsPerThousandParcels for submitted
// applications.
func SubmittedPerThousandParcels(t TownRecord) (rate float64, ok bool) {
	return perThousandParcels(t.Submitted, t.SingleFamilyParcels)
}

func perThousandParcels(count int, parcels *int) (float64, bool) {
	if parcels == nil || *parcels == 0 {
		return 0, false
	}
	return roundTo(float64(count)/float64(*parcels)*1000, 2), true
}

// ApprovalsPerTenThousandResidents returns approvals per 10,000 residents
// rounded to one decimal, or 0 when population is 0.
func ApprovalsPerTenThousandResidents(t TownRecord) float64 {
	if t.Population == 0 {
		return 0
	}
	return roundTo(float64(t.Approved)/float64(t.Population)*10000, 1)
}

// StatewidePerCapitaAverage returns approvals per 10,000 residents across all
// towns with at least one approval and a known population. It is weighted by
// population (total approvals over total residents), not a mean of per-town
// rates, so small towns do not dominate.
func StatewidePerCapitaAverage(towns []TownRecord) float64 {
	var approved, population int
	for _, t := range towns {
		if t.Approved <= 0 || t.Population <= 0 {
			continue
		}
		approved += t.Approved
		population += t.Population
	}
	if population == 0 {
		return 0
	}
	return roundTo(float64(approved)/float64(population)*10000, 1)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// roundInt rounds to the nearest integer, halves away from zero.
func roundInt(v float64) int {
	return int(math.Round(v))
}
