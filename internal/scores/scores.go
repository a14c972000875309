// Package scores assembles per-town reports from a data source: permit
// rates, review timelines, construction costs, the compliance-adjusted
// scorecard, the volume/bylaw quadrant and the points-based review grade.
package scores

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zalepa/aduscore/internal/logger"
	"github.com/zalepa/aduscore/internal/metrics"
	"github.com/zalepa/aduscore/townstats"
)

// ErrTownNotFound is returned by Builder.Town for an unknown slug.
var ErrTownNotFound = errors.New("town not found")

// Source provides town data. It is implemented by dataset.Dir and
// database.Repository.
type Source interface {
	Towns(ctx context.Context) ([]townstats.TownRecord, error)
	// Permits returns nil when the town has no permit log.
	Permits(ctx context.Context, slug string) ([]townstats.PermitRecord, error)
	// Compliance reports ok=false when the town's bylaw has not been analyzed.
	Compliance(ctx context.Context, slug string) (townstats.TownCompliance, bool, error)
}

// TownReport is everything shown for one town.
type TownReport struct {
	Town townstats.TownRecord `json:"town"`

	ApprovalsPerThousandParcels      *float64 `json:"approvalsPerThousandParcels"`
	SubmittedPerThousandParcels      *float64 `json:"submittedPerThousandParcels"`
	ApprovalsPerTenThousandResidents float64  `json:"approvalsPerTenThousandResidents"`

	Timeline *townstats.TimelineStats `json:"timeline"`
	Costs    *townstats.CostStats     `json:"costs"`

	// Base is the scorecard before compliance adjustments; Scorecard is the
	// one to display.
	Base           townstats.TownScorecard   `json:"baseScorecard"`
	Compliance     *townstats.StatusCounts   `json:"compliance"`
	AGDisapprovals int                       `json:"agDisapprovals"`
	Scorecard      townstats.TownScorecard   `json:"scorecard"`
	Quadrant       townstats.Quadrant        `json:"quadrant"`
	Review         townstats.ReviewScorecard `json:"review"`

	Issues []string `json:"issues,omitempty"`
}

// Statewide aggregates all towns.
type Statewide struct {
	Towns            int     `json:"towns"`
	Submitted        int     `json:"submitted"`
	Approved         int     `json:"approved"`
	Denied           int     `json:"denied"`
	Pending          int     `json:"pending"`
	ByRightTowns     int     `json:"byRightTowns"`
	TownsWithParcels int     `json:"townsWithParcels"`
	PerCapitaAverage float64 `json:"approvalsPerTenThousandResidents"`
}

// Builder computes reports on demand. Nothing is cached.
type Builder struct {
	src     Source
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewBuilder returns a Builder. m may be nil.
func NewBuilder(src Source, log logger.Logger, m *metrics.Metrics) *Builder {
	return &Builder{src: src, log: log, metrics: m}
}

// Towns returns the raw town records from the source.
func (b *Builder) Towns(ctx context.Context) ([]townstats.TownRecord, error) {
	towns, err := b.src.Towns(ctx)
	if err != nil {
		b.metrics.SourceError("towns")
		return nil, fmt.Errorf("load towns: %w", err)
	}
	return towns, nil
}

// Permits returns one town's permit log, or ErrTownNotFound.
func (b *Builder) Permits(ctx context.Context, slug string) ([]townstats.PermitRecord, error) {
	if _, err := b.Find(ctx, slug); err != nil {
		return nil, err
	}
	permits, err := b.src.Permits(ctx, slug)
	if err != nil {
		b.metrics.SourceError("permits")
		return nil, fmt.Errorf("load permits for %s: %w", slug, err)
	}
	return permits, nil
}

// Find returns the town record for slug, or ErrTownNotFound.
func (b *Builder) Find(ctx context.Context, slug string) (townstats.TownRecord, error) {
	towns, err := b.Towns(ctx)
	if err != nil {
		return townstats.TownRecord{}, err
	}
	for _, t := range towns {
		if t.Slug == slug {
			return t, nil
		}
	}
	return townstats.TownRecord{}, fmt.Errorf("%w: %s", ErrTownNotFound, slug)
}

// Town builds the report for one town.
func (b *Builder) Town(ctx context.Context, slug string) (TownReport, error) {
	t, err := b.Find(ctx, slug)
	if err != nil {
		return TownReport{}, err
	}
	return b.build(ctx, t)
}

// All builds every town's report, best adjusted overall score first and
// ties broken by name.
func (b *Builder) All(ctx context.Context) ([]TownReport, error) {
	towns, err := b.Towns(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]TownReport, 0, len(towns))
	for _, t := range towns {
		r, err := b.build(ctx, t)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		a, c := reports[i].Scorecard.OverallScore, reports[j].Scorecard.OverallScore
		if a != c {
			return a > c
		}
		return reports[i].Town.Name < reports[j].Town.Name
	})
	return reports, nil
}

// Statewide totals the counts of every town.
func (b *Builder) Statewide(ctx context.Context) (Statewide, error) {
	towns, err := b.Towns(ctx)
	if err != nil {
		return Statewide{}, err
	}
	s := Statewide{Towns: len(towns), PerCapitaAverage: townstats.StatewidePerCapitaAverage(towns)}
	for _, t := range towns {
		s.Submitted += t.Submitted
		s.Approved += t.Approved
		s.Denied += t.Denied
		s.Pending += t.Pending
		if t.ByRight {
			s.ByRightTowns++
		}
		if t.SingleFamilyParcels != nil && *t.SingleFamilyParcels > 0 {
			s.TownsWithParcels++
		}
	}
	return s, nil
}

func (b *Builder) build(ctx context.Context, t townstats.TownRecord) (TownReport, error) {
	permits, err := b.src.Permits(ctx, t.Slug)
	if err != nil {
		b.metrics.SourceError("permits")
		return TownReport{}, fmt.Errorf("load permits for %s: %w", t.Slug, err)
	}
	compliance, hasCompliance, err := b.src.Compliance(ctx, t.Slug)
	if err != nil {
		b.metrics.SourceError("compliance")
		return TownReport{}, fmt.Errorf("load compliance for %s: %w", t.Slug, err)
	}

	r := TownReport{
		Town:                             t,
		ApprovalsPerTenThousandResidents: townstats.ApprovalsPerTenThousandResidents(t),
		Issues:                           t.Inconsistencies(),
	}
	if v, ok := townstats.ApprovalsPerThousandParcels(t); ok {
		r.ApprovalsPerThousandParcels = &v
	}
	if v, ok := townstats.SubmittedPerThousandParcels(t); ok {
		r.SubmittedPerThousandParcels = &v
	}
	if tl, ok := townstats.ComputeTimelines(permits); ok {
		r.Timeline = &tl
	}
	if cs, ok := townstats.ComputeCostStats(permits); ok {
		r.Costs = &cs
	}

	r.Base = townstats.ComputeScorecard(t, r.Timeline)
	r.Scorecard = r.Base
	if hasCompliance {
		counts := townstats.CountStatuses(compliance.Provisions)
		r.Compliance = &counts
		r.AGDisapprovals = compliance.AGDisapprovals
		r.Scorecard = townstats.ApplyCompliance(r.Base, counts, compliance.AGDisapprovals)
	}
	r.Quadrant = townstats.ClassifyQuadrant(t.Submitted, r.Scorecard.RulesScore)
	r.Review = townstats.ComputeReviewGrade(townstats.ReviewInputsFor(t, r.Timeline))

	b.metrics.ObserveScorecard(string(r.Scorecard.Overall))
	b.log.Debug("Built town report",
		logger.String("town", t.Slug),
		logger.Int("overall_score", r.Scorecard.OverallScore),
		logger.Int("permits", len(permits)))
	return r, nil
}
