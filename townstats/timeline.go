package townstats

import (
	"math"
	"sort"
)

// TimelineEntry is one issued permit with its review duration.
type TimelineEntry struct {
	Address string `json:"address"`
	Days    int    `json:"days"`
	Applied string `json:"applied"`
	Issued  string `json:"issued"`
}

// TimelineStats summarizes review durations in days.
type TimelineStats struct {
	MedianDays int             `json:"medianDays"`
	MinDays    int             `json:"minDays"`
	MaxDays    int             `json:"maxDays"`
	AvgDays    int             `json:"avgDays"`
	Count      int             `json:"count"`
	Entries    []TimelineEntry `json:"entries"`
}

const secondsPerDay = 86400

// ComputeTimelines returns review-duration statistics for permits whose
// status is exactly "Issued" and whose applied and issued dates both parse.
// Durations use the absolute difference, so an issued date entered before the
// applied date still yields a positive duration. Entries with a zero-day
// duration are dropped. ok is false when nothing remains.
func ComputeTimelines(permits []PermitRecord) (stats TimelineStats, ok bool) {
	var entries []TimelineEntry
	for _, p := range permits {
		if p.Applied == "" || p.Issued == "" || p.Status != IssuedStatus {
			continue
		}
		applied := ParsePermitDate(p.Applied)
		issued := ParsePermitDate(p.Issued)
		if !applied.Valid || !issued.Valid {
			continue
		}
		// Unix seconds, since time.Duration saturates at about 292 years.
		secs := math.Abs(float64(issued.Time.Unix() - applied.Time.Unix()))
		days := roundInt(secs / secondsPerDay)
		if days <= 0 {
			continue
		}
		entries = append(entries, TimelineEntry{
			Address: p.Address,
			Days:    days,
			Applied: p.Applied,
			Issued:  p.Issued,
		})
	}
	if len(entries) == 0 {
		return TimelineStats{}, false
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Days < entries[j].Days
	})

	days := make([]float64, len(entries))
	sum := 0
	for i, e := range entries {
		days[i] = float64(e.Days)
		sum += e.Days
	}

	return TimelineStats{
		MedianDays: roundInt(median(days)),
		MinDays:    entries[0].Days,
		MaxDays:    entries[len(entries)-1].Days,
		AvgDays:    roundInt(float64(sum) / float64(len(entries))),
		Count:      len(entries),
		Entries:    entries,
	}, true
}

// median expects sorted input. An even count averages the two middle values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
