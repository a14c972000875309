package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/zalepa/aduscore/internal/scores"
	"github.com/zalepa/aduscore/townstats"
)

// Score implements the "score" subcommand: print the town scorecard ranking,
// or one town's full report with -town.
func Score(args []string) {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	town := fs.String("town", "", "show one town's report (name or slug; \"Town of\" and typos are tolerated)")
	format := fs.String("format", "table", "output format: table or json")
	cf := addCommonFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aduscore score [-town name] [-format table|json]\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(args))

	if *format != "table" && *format != "json" {
		fatalf("invalid -format %q; valid options: table, json", *format)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cf, nil)
	if err != nil {
		fatalf("error: %v", err)
	}
	defer a.Close()

	if *town != "" {
		towns, err := a.builder.Towns(ctx)
		if err != nil {
			fatalf("error: %v", err)
		}
		t, err := lookupTown(towns, *town)
		if err != nil {
			fatalf("error: %v", err)
		}
		r, err := a.builder.Town(ctx, t.Slug)
		if err != nil {
			fatalf("error: %v", err)
		}
		if *format == "json" {
			writeJSONTo(os.Stdout, r)
			return
		}
		renderTownReport(os.Stdout, r)
		return
	}

	reports, err := a.builder.All(ctx)
	if err != nil {
		fatalf("error: %v", err)
	}
	statewide, err := a.builder.Statewide(ctx)
	if err != nil {
		fatalf("error: %v", err)
	}
	if *format == "json" {
		writeJSONTo(os.Stdout, map[string]any{"statewide": statewide, "towns": reports})
		return
	}
	renderScoreTable(os.Stdout, reports, statewide)
}

func writeJSONTo(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatalf("error encoding JSON: %v", err)
	}
}

func optionalRate(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// renderScoreTable prints one row per town in ranking order with a
// statewide footer.
func renderScoreTable(w io.Writer, reports []scores.TownReport, s scores.Statewide) {
	style := table.StyleLight
	style.Format.Footer = text.FormatDefault
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(style)
	t.AppendHeader(table.Row{"#", "Town", "Overall", "Rules", "Ops", "Quadrant", "Review", "Approved/Submitted", "Per 10K", "Per 1K Parcels"})
	for i, r := range reports {
		sc := r.Scorecard
		t.AppendRow(table.Row{
			i + 1,
			r.Town.Name,
			fmt.Sprintf("%s (%d)", sc.Overall, sc.OverallScore),
			fmt.Sprintf("%s %d", sc.RulesFriction, sc.RulesScore),
			fmt.Sprintf("%s %d", sc.OperationalFriction, sc.OpsScore),
			r.Quadrant,
			fmt.Sprintf("%s (%d/%d)", r.Review.Grade, r.Review.Points, townstats.MaxReviewPoints),
			fmt.Sprintf("%d/%d", r.Town.Approved, r.Town.Submitted),
			strconv.FormatFloat(r.ApprovalsPerTenThousandResidents, 'f', -1, 64),
			optionalRate(r.ApprovalsPerThousandParcels),
		})
	}
	t.AppendFooter(table.Row{
		"", fmt.Sprintf("Statewide (%d towns)", s.Towns), "", "", "", "",
		fmt.Sprintf("%d by right", s.ByRightTowns),
		fmt.Sprintf("%d/%d", s.Approved, s.Submitted),
		strconv.FormatFloat(s.PerCapitaAverage, 'f', -1, 64),
		"",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
		{Number: 10, Align: text.AlignRight},
	})
	t.Render()
}

// renderTownReport prints one town's scorecards, factors, timeline and
// costs.
func renderTownReport(w io.Writer, r scores.TownReport) {
	town := r.Town
	fmt.Fprintf(w, "%s (%s County)\n", town.Name, town.County)
	if town.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", town.Source)
	}
	for _, issue := range r.Issues {
		fmt.Fprintf(w, "Warning: %s\n", issue)
	}
	fmt.Fprintln(w)

	sc := r.Scorecard
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "Grade", "Score", "Friction"})
	t.AppendRow(table.Row{"Overall", sc.Overall, sc.OverallScore, ""})
	t.AppendRow(table.Row{"Rules", sc.RulesGrade, sc.RulesScore, sc.RulesFriction})
	t.AppendRow(table.Row{"Operations", sc.OpsGrade, sc.OpsScore, sc.OperationalFriction})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Review grade", r.Review.Grade, fmt.Sprintf("%d/%d", r.Review.Points, townstats.MaxReviewPoints), ""})
	t.Render()

	fmt.Fprintf(w, "\nQuadrant: %s\n", r.Quadrant)
	fmt.Fprintf(w, "Applications: %d submitted, %d approved, %d denied, %d pending (%g%% approved)\n",
		town.Submitted, town.Approved, town.Denied, town.Pending, town.ApprovalRate)
	fmt.Fprintf(w, "Approvals per 10K residents: %g\n", r.ApprovalsPerTenThousandResidents)
	fmt.Fprintf(w, "Approvals per 1K parcels: %s\n", optionalRate(r.ApprovalsPerThousandParcels))
	if r.Compliance != nil {
		fmt.Fprintf(w, "Bylaw review: %d compliant, %d inconsistent, %d need review; %d AG disapprovals\n",
			r.Compliance.Compliant, r.Compliance.Inconsistent, r.Compliance.Review, r.AGDisapprovals)
	}

	fmt.Fprintln(w, "\nFactors:")
	for _, f := range sc.Factors {
		fmt.Fprintf(w, "  - %s\n", f)
	}

	if tl := r.Timeline; tl != nil {
		fmt.Fprintf(w, "\nReview time: median %d days, average %d, range %d-%d (%d permits)\n",
			tl.MedianDays, tl.AvgDays, tl.MinDays, tl.MaxDays, tl.Count)
	}
	if cs := r.Costs; cs != nil {
		fmt.Fprintf(w, "\nConstruction cost: median $%s, average $%s, range $%s-$%s (%d permits)\n",
			formatInt(int64(cs.Median)), formatInt(int64(cs.Avg)),
			formatNum(cs.Min), formatNum(cs.Max), cs.Count)
		ct := table.NewWriter()
		ct.SetOutputMirror(w)
		ct.SetStyle(table.StyleLight)
		ct.AppendHeader(table.Row{"Type", "Permits", "Min", "Avg", "Max"})
		for _, tc := range cs.ByType {
			ct.AppendRow(table.Row{tc.Type, tc.Count, "$" + formatNum(tc.Min), "$" + formatInt(int64(tc.Avg)), "$" + formatNum(tc.Max)})
		}
		ct.Render()
	}
}
