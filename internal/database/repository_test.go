package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/aduscore/townstats"
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewRepository(sqlx.NewDb(db, "postgres")), mock
}

var townCols = []string{
	"slug", "name", "county", "population", "single_family_parcels",
	"submitted", "approved", "denied", "pending", "approval_rate", "by_right",
	"avg_rent", "median_home_value", "variance_rate", "source",
}

func TestRepository_Towns(t *testing.T) {
	repo, mock := newMock(t)
	rows := sqlmock.NewRows(townCols).
		AddRow("hull", "Hull", "Plymouth", 10000, nil, 2, 1, 0, 1, 50.0, false, nil, nil, nil, "").
		AddRow("lexington", "Lexington", "Middlesex", 34000, 8000, 20, 16, 1, 3, 80.0, true, 3100, 1200000, 0.1, "Town clerk")
	mock.ExpectQuery("SELECT (.+) FROM towns ORDER BY name").WillReturnRows(rows)

	towns, err := repo.Towns(context.Background())
	require.NoError(t, err)
	require.Len(t, towns, 2)

	assert.Nil(t, towns[0].SingleFamilyParcels)
	assert.Nil(t, towns[0].VarianceRate)
	require.NotNil(t, towns[1].SingleFamilyParcels)
	assert.Equal(t, 8000, *towns[1].SingleFamilyParcels)
	assert.Equal(t, 3100, *towns[1].AvgRent)
	assert.InDelta(t, 0.1, *towns[1].VarianceRate, 1e-9)
	assert.True(t, towns[1].ByRight)
}

func TestRepository_TownsError(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM towns").WillReturnError(sql.ErrConnDone)

	_, err := repo.Towns(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestRepository_UpsertTown(t *testing.T) {
	repo, mock := newMock(t)
	parcels := 8000
	town := townstats.TownRecord{
		Slug: "lexington", Name: "Lexington", County: "Middlesex", Population: 34000,
		SingleFamilyParcels: &parcels, Submitted: 20, Approved: 16, Denied: 1, Pending: 3,
		ApprovalRate: 80, ByRight: true, Source: "Town clerk",
	}
	mock.ExpectExec("INSERT INTO towns").
		WithArgs("lexington", "Lexington", "Middlesex", 34000, int64(8000),
			20, 16, 1, 3, 80.0, true, nil, nil, nil, "Town clerk").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertTown(context.Background(), town))
}

func TestRepository_Permits(t *testing.T) {
	repo, mock := newMock(t)
	cols := []string{"permit", "address", "applied", "issued", "status", "cost", "sqft", "type", "contractor", "notes"}
	mock.ExpectQuery("SELECT (.+) FROM permits WHERE town_slug").
		WithArgs("lexington").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("B-1", "12 Oak St", "01/02/24", "02/01/24", "Issued", 185000.0, 850.0, "Detached", "Acme", ""))

	permits, err := repo.Permits(context.Background(), "lexington")
	require.NoError(t, err)
	require.Len(t, permits, 1)
	assert.Equal(t, townstats.PermitRecord{
		Permit: "B-1", Address: "12 Oak St", Applied: "01/02/24", Issued: "02/01/24",
		Status: "Issued", Cost: 185000, Sqft: 850, Type: "Detached", Contractor: "Acme",
	}, permits[0])

	mock.ExpectQuery("SELECT (.+) FROM permits WHERE town_slug").
		WithArgs("hull").
		WillReturnRows(sqlmock.NewRows(cols))
	permits, err = repo.Permits(context.Background(), "hull")
	require.NoError(t, err)
	assert.Nil(t, permits)
}

func TestRepository_ReplacePermits(t *testing.T) {
	repo, mock := newMock(t)
	permits := []townstats.PermitRecord{
		{Permit: "H-1", Status: "Issued", Cost: 140000},
		{Permit: "H-2", Status: "Pending"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM permits").WithArgs("hull").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO permits").
		WithArgs("hull", 0, "H-1", "", "", "", "Issued", 140000.0, 0.0, "", "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO permits").
		WithArgs("hull", 1, "H-2", "", "", "", "Pending", 0.0, 0.0, "", "", "").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplacePermits(context.Background(), "hull", permits))
}

func TestRepository_ReplacePermitsRollsBack(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM permits").WithArgs("hull").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO permits").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.ReplacePermits(context.Background(), "hull", []townstats.PermitRecord{{Permit: "H-1"}})
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestRepository_Compliance(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT ag_disapprovals FROM town_compliance").
		WithArgs("lexington").
		WillReturnRows(sqlmock.NewRows([]string{"ag_disapprovals"}).AddRow(2))
	mock.ExpectQuery("SELECT provision, status FROM compliance_provisions").
		WithArgs("lexington").
		WillReturnRows(sqlmock.NewRows([]string{"provision", "status"}).
			AddRow("Owner occupancy", "inconsistent").
			AddRow("Parking", "review"))

	c, ok, err := repo.Compliance(context.Background(), "lexington")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, c.AGDisapprovals)
	assert.Equal(t, townstats.StatusCounts{Inconsistent: 1, Review: 1}, townstats.CountStatuses(c.Provisions))

	mock.ExpectQuery("SELECT ag_disapprovals FROM town_compliance").
		WithArgs("hull").
		WillReturnError(sql.ErrNoRows)
	_, ok, err = repo.Compliance(context.Background(), "hull")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_ReplaceCompliance(t *testing.T) {
	repo, mock := newMock(t)
	c := townstats.TownCompliance{
		Slug:           "lexington",
		AGDisapprovals: 1,
		Provisions: []townstats.ComplianceProvision{
			{Provision: "Owner occupancy", Status: townstats.StatusInconsistent},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO town_compliance").WithArgs("lexington", 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM compliance_provisions").WithArgs("lexington").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO compliance_provisions").
		WithArgs("lexington", 0, "Owner occupancy", "inconsistent").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceCompliance(context.Background(), c))
}
