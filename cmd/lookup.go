package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/zalepa/aduscore/townstats"
)

// Massachusetts municipal designations, longest first so "TOWN OF" is tried
// before "TOWN".
var (
	designationPrefixes = []string{"CITY OF ", "TOWN OF "}
	designationSuffixes = []string{" TOWNSHIP", " TOWN", " CITY"}
)

// maxTypoDistance bounds how far a query may be from a town name and still
// resolve to it without an exact match.
const maxTypoDistance = 2

// normalizeTownName uppercases name, strips a municipal designation and
// collapses whitespace: "Town of  North Reading" becomes "NORTH READING".
func normalizeTownName(name string) string {
	upper := strings.Join(strings.Fields(strings.ToUpper(name)), " ")
	for _, p := range designationPrefixes {
		if rest, ok := strings.CutPrefix(upper, p); ok {
			return rest
		}
	}
	for _, s := range designationSuffixes {
		if rest, ok := strings.CutSuffix(upper, s); ok && rest != "" {
			return rest
		}
	}
	return upper
}

// lookupTown resolves a user-typed name or slug to a town. Exact matches on
// slug or normalized name win; otherwise a single closest name within
// maxTypoDistance is accepted. On failure the error lists the nearest names.
func lookupTown(towns []townstats.TownRecord, query string) (townstats.TownRecord, error) {
	q := normalizeTownName(query)
	slug := strings.ToLower(strings.TrimSpace(query))
	for _, t := range towns {
		if t.Slug == slug || normalizeTownName(t.Name) == q {
			return t, nil
		}
	}

	type candidate struct {
		town townstats.TownRecord
		dist int
	}
	candidates := make([]candidate, 0, len(towns))
	for _, t := range towns {
		candidates = append(candidates, candidate{t, levenshtein.ComputeDistance(q, normalizeTownName(t.Name))})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].town.Name < candidates[j].town.Name
	})

	if len(candidates) > 0 && candidates[0].dist <= maxTypoDistance &&
		(len(candidates) == 1 || candidates[1].dist > candidates[0].dist) {
		return candidates[0].town, nil
	}

	var near []string
	for i := 0; i < len(candidates) && i < 3; i++ {
		near = append(near, candidates[i].town.Name)
	}
	if len(near) == 0 {
		return townstats.TownRecord{}, fmt.Errorf("no town matches %q", query)
	}
	return townstats.TownRecord{}, fmt.Errorf("no town matches %q; closest: %s", query, strings.Join(near, ", "))
}
