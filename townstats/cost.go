package townstats

import (
	"math"
	"sort"
)

// TypeCost is the cost breakdown for one ADU type.
type TypeCost struct {
	Type  string  `json:"type"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   int     `json:"avg"`
	Count int     `json:"count"`
}

// CostStats summarizes reported construction costs.
type CostStats struct {
	Min    float64    `json:"min"`
	Max    float64    `json:"max"`
	Median int        `json:"median"`
	Avg    int        `json:"avg"`
	Count  int        `json:"count"`
	ByType []TypeCost `json:"byType"`
}

// ComputeCostStats summarizes permits with a reported cost. A zero cost means
// "not reported" and is excluded, as are negative and non-finite costs. ByType lists types in the order they first
// appear. ok is false when no permit has a cost.
func ComputeCostStats(permits []PermitRecord) (stats CostStats, ok bool) {
	type running struct {
		min, max, avg float64
		count         int
	}
	var costs []float64
	var order []string
	byType := make(map[string]*running)

	for _, p := range permits {
		if !(p.Cost > 0) || math.IsInf(p.Cost, 1) {
			continue
		}
		costs = append(costs, p.Cost)

		r, seen := byType[p.Type]
		if !seen {
			byType[p.Type] = &running{min: p.Cost, max: p.Cost, avg: p.Cost, count: 1}
			order = append(order, p.Type)
			continue
		}
		if p.Cost < r.min {
			r.min = p.Cost
		}
		if p.Cost > r.max {
			r.max = p.Cost
		}
		r.avg = (r.avg*float64(r.count) + p.Cost) / float64(r.count+1)
		r.count++
	}
	if len(costs) == 0 {
		return CostStats{}, false
	}

	sort.Float64s(costs)
	var sum float64
	for _, c := range costs {
		sum += c
	}

	stats = CostStats{
		Min:    costs[0],
		Max:    costs[len(costs)-1],
		Median: roundInt(median(costs)),
		Avg:    roundInt(sum / float64(len(costs))),
		Count:  len(costs),
	}
	for _, typ := range order {
		r := byType[typ]
		stats.ByType = append(stats.ByType, TypeCost{
			Type:  typ,
			Min:   r.min,
			Max:   r.max,
			Avg:   roundInt(r.avg),
			Count: r.count,
		})
	}
	return stats, true
}
