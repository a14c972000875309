package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zalepa/aduscore/internal/dataset"
	"github.com/zalepa/aduscore/internal/logger"
	"github.com/zalepa/aduscore/internal/scores"
	"github.com/zalepa/aduscore/townstats"
)

func intPtr(v int) *int { return &v }

var fixtureTowns = []townstats.TownRecord{
	{Slug: "hull", Name: "Hull", County: "Plymouth", Population: 10000, Submitted: 2, Approved: 1, Pending: 1, ApprovalRate: 50},
	{
		Slug: "lexington", Name: "Lexington", County: "Middlesex", Population: 34000, SingleFamilyParcels: intPtr(8000),
		Submitted: 20, Approved: 16, Denied: 1, Pending: 3, ApprovalRate: 80, ByRight: true,
		Source: "Town clerk, 2024 survey",
	},
	{Slug: "acton", Name: "Acton", County: "Middlesex", Population: 6000, Submitted: 2, Approved: 1, Pending: 1, ApprovalRate: 50},
}

var fixturePermits = []townstats.PermitRecord{
	{Permit: "B-1", Address: "12 Oak St", Applied: "01/02/24", Issued: "02/01/24", Status: "Issued", Cost: 185000, Sqft: 850, Type: "Detached"},
	{Permit: "B-2", Address: "3 Elm Rd", Applied: "03/05/24", Issued: "03/25/24", Status: "Issued", Cost: 95000, Sqft: 600, Type: "Attached"},
	{Permit: "B-3", Address: "9 Pine Ln", Applied: "04/01/24", Status: "Pending", Type: "Detached", Notes: `owner said "soon"`},
}

// writeFixtureData lays out a data directory with the fixture towns,
// Lexington's permit log and its compliance review.
func writeFixtureData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "towns.json"), fixtureTowns)
	writeJSON(t, filepath.Join(dir, "compliance.json"), []townstats.TownCompliance{{
		Slug:           "lexington",
		Provisions:     []townstats.ComplianceProvision{{Provision: "Owner occupancy", Status: townstats.StatusInconsistent}},
		AGDisapprovals: 1,
	}})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "permits"), 0o755))
	writeJSON(t, filepath.Join(dir, "permits", "lexington.json"), fixturePermits)
	return dir
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func fixtureBuilder(t *testing.T) (*scores.Builder, *dataset.Dir) {
	t.Helper()
	d, err := dataset.Open(writeFixtureData(t), logger.NewNop())
	require.NoError(t, err)
	return scores.NewBuilder(d, logger.NewNop(), nil), d
}
