package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/zalepa/aduscore/townstats"
)

// Repository reads and writes town data. Read methods satisfy the source
// interface used by the scorecard builder.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type townRow struct {
	Slug                string          `db:"slug"`
	Name                string          `db:"name"`
	County              string          `db:"county"`
	Population          int             `db:"population"`
	SingleFamilyParcels sql.NullInt64   `db:"single_family_parcels"`
	Submitted           int             `db:"submitted"`
	Approved            int             `db:"approved"`
	Denied              int             `db:"denied"`
	Pending             int             `db:"pending"`
	ApprovalRate        float64         `db:"approval_rate"`
	ByRight             bool            `db:"by_right"`
	AvgRent             sql.NullInt64   `db:"avg_rent"`
	MedianHomeValue     sql.NullInt64   `db:"median_home_value"`
	VarianceRate        sql.NullFloat64 `db:"variance_rate"`
	Source              string          `db:"source"`
}

func (r townRow) record() townstats.TownRecord {
	return townstats.TownRecord{
		Slug:                r.Slug,
		Name:                r.Name,
		County:              r.County,
		Population:          r.Population,
		SingleFamilyParcels: intPtr(r.SingleFamilyParcels),
		Submitted:           r.Submitted,
		Approved:            r.Approved,
		Denied:              r.Denied,
		Pending:             r.Pending,
		ApprovalRate:        r.ApprovalRate,
		ByRight:             r.ByRight,
		AvgRent:             intPtr(r.AvgRent),
		MedianHomeValue:     intPtr(r.MedianHomeValue),
		VarianceRate:        floatPtr(r.VarianceRate),
		Source:              r.Source,
	}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

const townColumns = `slug, name, county, population, single_family_parcels,
	submitted, approved, denied, pending, approval_rate, by_right,
	avg_rent, median_home_value, variance_rate, source`

func (r *Repository) Towns(ctx context.Context) ([]townstats.TownRecord, error) {
	var rows []townRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+townColumns+` FROM towns ORDER BY name`); err != nil {
		return nil, fmt.Errorf("select towns: %w", err)
	}
	towns := make([]townstats.TownRecord, len(rows))
	for i, row := range rows {
		towns[i] = row.record()
	}
	return towns, nil
}

// UpsertTown inserts t or replaces the stored counts for its slug.
func (r *Repository) UpsertTown(ctx context.Context, t townstats.TownRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO towns (`+townColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			county = EXCLUDED.county,
			population = EXCLUDED.population,
			single_family_parcels = EXCLUDED.single_family_parcels,
			submitted = EXCLUDED.submitted,
			approved = EXCLUDED.approved,
			denied = EXCLUDED.denied,
			pending = EXCLUDED.pending,
			approval_rate = EXCLUDED.approval_rate,
			by_right = EXCLUDED.by_right,
			avg_rent = EXCLUDED.avg_rent,
			median_home_value = EXCLUDED.median_home_value,
			variance_rate = EXCLUDED.variance_rate,
			source = EXCLUDED.source,
			updated_at = NOW()`,
		t.Slug, t.Name, t.County, t.Population, nullInt(t.SingleFamilyParcels),
		t.Submitted, t.Approved, t.Denied, t.Pending, t.ApprovalRate, t.ByRight,
		nullInt(t.AvgRent), nullInt(t.MedianHomeValue), nullFloat(t.VarianceRate), t.Source,
	)
	if err != nil {
		return fmt.Errorf("upsert town %s: %w", t.Slug, err)
	}
	return nil
}

type permitRow struct {
	Permit     string  `db:"permit"`
	Address    string  `db:"address"`
	Applied    string  `db:"applied"`
	Issued     string  `db:"issued"`
	Status     string  `db:"status"`
	Cost       float64 `db:"cost"`
	Sqft       float64 `db:"sqft"`
	Type       string  `db:"type"`
	Contractor string  `db:"contractor"`
	Notes      string  `db:"notes"`
}

// Permits returns the town's permits in log order.
func (r *Repository) Permits(ctx context.Context, slug string) ([]townstats.PermitRecord, error) {
	var rows []permitRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT permit, address, applied, issued, status, cost, sqft, type, contractor, notes
		FROM permits WHERE town_slug = $1 ORDER BY position`, slug)
	if err != nil {
		return nil, fmt.Errorf("select permits for %s: %w", slug, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	permits := make([]townstats.PermitRecord, len(rows))
	for i, p := range rows {
		permits[i] = townstats.PermitRecord(p)
	}
	return permits, nil
}

// ReplacePermits swaps the town's whole permit log in one transaction.
func (r *Repository) ReplacePermits(ctx context.Context, slug string, permits []townstats.PermitRecord) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM permits WHERE town_slug = $1`, slug); err != nil {
			return fmt.Errorf("delete permits: %w", err)
		}
		for i, p := range permits {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO permits (town_slug, position, permit, address, applied, issued, status, cost, sqft, type, contractor, notes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				slug, i, p.Permit, p.Address, p.Applied, p.Issued, p.Status, p.Cost, p.Sqft, p.Type, p.Contractor, p.Notes)
			if err != nil {
				return fmt.Errorf("insert permit %s: %w", p.Permit, err)
			}
		}
		return nil
	})
}

type provisionRow struct {
	Provision string `db:"provision"`
	Status    string `db:"status"`
}

// Compliance returns the town's provisions; ok is false when the town has
// not been analyzed.
func (r *Repository) Compliance(ctx context.Context, slug string) (townstats.TownCompliance, bool, error) {
	c := townstats.TownCompliance{Slug: slug}
	err := r.db.GetContext(ctx, &c.AGDisapprovals,
		`SELECT ag_disapprovals FROM town_compliance WHERE town_slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return townstats.TownCompliance{}, false, nil
	}
	if err != nil {
		return townstats.TownCompliance{}, false, fmt.Errorf("select compliance for %s: %w", slug, err)
	}

	var rows []provisionRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT provision, status FROM compliance_provisions
		WHERE town_slug = $1 ORDER BY position`, slug)
	if err != nil {
		return townstats.TownCompliance{}, false, fmt.Errorf("select provisions for %s: %w", slug, err)
	}
	for _, p := range rows {
		c.Provisions = append(c.Provisions, townstats.ComplianceProvision{
			Provision: p.Provision,
			Status:    townstats.ProvisionStatus(p.Status),
		})
	}
	return c, true, nil
}

// ReplaceCompliance stores c, replacing any previous analysis for the town.
func (r *Repository) ReplaceCompliance(ctx context.Context, c townstats.TownCompliance) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO town_compliance (town_slug, ag_disapprovals) VALUES ($1, $2)
			ON CONFLICT (town_slug) DO UPDATE SET ag_disapprovals = EXCLUDED.ag_disapprovals`,
			c.Slug, c.AGDisapprovals)
		if err != nil {
			return fmt.Errorf("upsert compliance: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM compliance_provisions WHERE town_slug = $1`, c.Slug); err != nil {
			return fmt.Errorf("delete provisions: %w", err)
		}
		for i, p := range c.Provisions {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO compliance_provisions (town_slug, position, provision, status)
				VALUES ($1, $2, $3, $4)`,
				c.Slug, i, p.Provision, string(p.Status))
			if err != nil {
				return fmt.Errorf("insert provision %q: %w", p.Provision, err)
			}
		}
		return nil
	})
}

func (r *Repository) inTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
