// Package export writes town and permit data as CSV and XLSX.
package export

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/zalepa/aduscore/townstats"
)

// TownColumns is the fixed column order of the town-level export.
var TownColumns = []string{
	"Town", "County", "Population", "Single Family Parcels (est.)",
	"Applications Submitted", "Approved", "Denied", "Pending",
	"Approval Rate (%)", "Approvals per 1K Parcels", "By Right",
	"Avg Rent", "Median Home Value", "Source",
}

// PermitColumns is the column order of the permit-level export.
var PermitColumns = []string{
	"Permit", "Address", "Applied", "Issued", "Status",
	"Cost", "Sq Ft", "Type", "Contractor", "Notes",
}

const notAvailable = "N/A"

// TownRow formats one town in TownColumns order.
func TownRow(t townstats.TownRecord) []string {
	parcels := notAvailable
	if t.SingleFamilyParcels != nil {
		parcels = strconv.Itoa(*t.SingleFamilyParcels)
	}
	perParcel := notAvailable
	if rate, ok := townstats.ApprovalsPerThousandParcels(t); ok {
		perParcel = formatFloat(rate)
	}
	byRight := "No"
	if t.ByRight {
		byRight = "Yes"
	}
	return []string{
		t.Name,
		t.County,
		strconv.Itoa(t.Population),
		parcels,
		strconv.Itoa(t.Submitted),
		strconv.Itoa(t.Approved),
		strconv.Itoa(t.Denied),
		strconv.Itoa(t.Pending),
		formatFloat(t.ApprovalRate),
		perParcel,
		byRight,
		optionalInt(t.AvgRent),
		optionalInt(t.MedianHomeValue),
		t.Source,
	}
}

// WriteTownsCSV writes the town-level export. Fields containing a comma are
// wrapped in quotes; embedded quotes are written as-is, unlike
// WritePermitsCSV.
func WriteTownsCSV(w io.Writer, towns []townstats.TownRecord) error {
	bw := bufio.NewWriter(w)
	if err := writeMinimalRow(bw, TownColumns); err != nil {
		return err
	}
	for _, t := range towns {
		if err := writeMinimalRow(bw, TownRow(t)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeMinimalRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if strings.Contains(f, ",") {
			f = `"` + f + `"`
		}
		if _, err := w.WriteString(f); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

// PermitRow formats one permit in PermitColumns order.
func PermitRow(p townstats.PermitRecord) []string {
	return []string{
		p.Permit,
		p.Address,
		p.Applied,
		p.Issued,
		p.Status,
		formatFloat(p.Cost),
		formatFloat(p.Sqft),
		p.Type,
		p.Contractor,
		p.Notes,
	}
}

// WritePermitsCSV writes the permit-level export with standard CSV quoting,
// so embedded quotes are doubled.
func WritePermitsCSV(w io.Writer, permits []townstats.PermitRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PermitColumns); err != nil {
		return err
	}
	for _, p := range permits {
		if err := cw.Write(PermitRow(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalInt(v *int) string {
	if v == nil {
		return notAvailable
	}
	return strconv.Itoa(*v)
}
