package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/zalepa/aduscore/internal/scores"
	"github.com/zalepa/aduscore/townstats"
)

type dataPoint struct {
	date  string // YYYY-MM
	value float64
}

// rankRow is one town in a ranking: the chosen metric plus the monthly
// median review duration series behind its trend column.
type rankRow struct {
	name   string
	slug   string
	grade  string
	value  float64
	points []dataPoint
}

var validMetrics = []string{"overall", "rules", "ops", "review", "per-capita", "per-parcel"}

// Viz implements the "viz" subcommand.
func Viz(args []string) {
	fs := flag.NewFlagSet("viz", flag.ExitOnError)
	metric := fs.String("metric", "overall", "ranking metric")
	town := fs.String("town", "", "show one town's review-duration chart")
	pdfOut := fs.String("pdf", "", "output PDF file path (omit for terminal output)")
	cf := addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: aduscore viz [flags]

Rank towns by score and chart ADU permit review durations by month.

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Metrics: %s

Examples:
  aduscore viz -metric rules
  aduscore viz -town "Town of Lexington"
  aduscore viz -metric per-capita -pdf ranking.pdf
`, strings.Join(validMetrics, ", "))
	}
	fs.Parse(reorderArgs(args))

	if !contains(validMetrics, *metric) {
		fatalf("invalid -metric %q; valid options: %s", *metric, strings.Join(validMetrics, ", "))
	}

	ctx := context.Background()
	a, err := newApp(ctx, cf, nil)
	if err != nil {
		fatalf("error: %v", err)
	}
	defer a.Close()

	reports, err := a.builder.All(ctx)
	if err != nil {
		fatalf("error loading data: %v", err)
	}
	if len(reports) == 0 {
		fatalf("no towns in data source")
	}

	if *town != "" {
		towns := make([]townstats.TownRecord, len(reports))
		for i, r := range reports {
			towns[i] = r.Town
		}
		t, err := lookupTown(towns, *town)
		if err != nil {
			fatalf("error: %v", err)
		}
		reports = filterReports(reports, t.Slug)
	}

	rows := buildRanking(reports, *metric)
	months := sortDates(reviewMonths(rows))
	title := metricLabel(*metric) + " - review days by month"

	if *pdfOut != "" {
		if err := renderPDF(*pdfOut, title, rows, months); err != nil {
			fatalf("error writing PDF: %v", err)
		}
		fmt.Printf("wrote %s\n", *pdfOut)
		return
	}

	if *town != "" {
		r := rows[0]
		fmt.Printf("%s: %s %s (grade %s)\n\n", r.name, metricLabel(*metric), formatNum(r.value), r.grade)
		renderChart(os.Stdout, "Median review days - "+r.name, r.points)
		return
	}
	renderRanking(os.Stdout, title, rows, months)
}

func filterReports(reports []scores.TownReport, slug string) []scores.TownReport {
	for _, r := range reports {
		if r.Town.Slug == slug {
			return []scores.TownReport{r}
		}
	}
	return nil
}

// metricValue reads metric from a report. Rates that cannot be computed are
// NaN.
func metricValue(r scores.TownReport, metric string) (value float64, grade string) {
	switch metric {
	case "rules":
		return float64(r.Scorecard.RulesScore), string(r.Scorecard.RulesGrade)
	case "ops":
		return float64(r.Scorecard.OpsScore), string(r.Scorecard.OpsGrade)
	case "review":
		return float64(r.Review.Points), string(r.Review.Grade)
	case "per-capita":
		return r.ApprovalsPerTenThousandResidents, string(r.Scorecard.Overall)
	case "per-parcel":
		if r.ApprovalsPerThousandParcels == nil {
			return math.NaN(), string(r.Scorecard.Overall)
		}
		return *r.ApprovalsPerThousandParcels, string(r.Scorecard.Overall)
	}
	return float64(r.Scorecard.OverallScore), string(r.Scorecard.Overall)
}

// buildRanking orders towns by metric, highest first. NaN values sort last
// and ties keep name order.
func buildRanking(reports []scores.TownReport, metric string) []rankRow {
	rows := make([]rankRow, 0, len(reports))
	for _, r := range reports {
		v, g := metricValue(r, metric)
		rows = append(rows, rankRow{
			name:   r.Town.Name,
			slug:   r.Town.Slug,
			grade:  g,
			value:  v,
			points: monthlyReviewDays(r.Timeline),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].value, rows[j].value
		switch {
		case math.IsNaN(a) != math.IsNaN(b):
			return !math.IsNaN(a)
		case a != b && !math.IsNaN(a):
			return a > b
		}
		return rows[i].name < rows[j].name
	})
	return rows
}

// monthlyReviewDays groups issued permits by the month they were applied for
// and returns the median review duration of each month in date order.
func monthlyReviewDays(tl *townstats.TimelineStats) []dataPoint {
	if tl == nil {
		return nil
	}
	byMonth := make(map[string][]float64)
	for _, e := range tl.Entries {
		d := townstats.ParsePermitDate(e.Applied)
		if !d.Valid {
			continue
		}
		key := d.Time.Format("2006-01")
		byMonth[key] = append(byMonth[key], float64(e.Days))
	}

	points := make([]dataPoint, 0, len(byMonth))
	for month, days := range byMonth {
		points = append(points, dataPoint{date: month, value: medianOf(days)})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].date < points[j].date
	})
	return points
}

func medianOf(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func reviewMonths(rows []rankRow) map[string]bool {
	months := make(map[string]bool)
	for _, r := range rows {
		for _, p := range r.points {
			months[p.date] = true
		}
	}
	return months
}

const barWidth = 30

func renderRanking(w io.Writer, title string, rows []rankRow, sortedDates []string) {
	maxName := 10
	maxVal := 0.0
	for _, r := range rows {
		if len(r.name) > maxName {
			maxName = len(r.name)
		}
		if !math.IsNaN(r.value) && r.value > maxVal {
			maxVal = r.value
		}
	}

	nPeriods := len(sortedDates)
	fmt.Fprintln(w, title)
	if nPeriods > 0 {
		fmt.Fprintf(w, "Trend: %s to %s (%d months)\n", sortedDates[0], sortedDates[nPeriods-1], nPeriods)
	}
	fmt.Fprintln(w)

	rowFmt := fmt.Sprintf("%%-%ds  %%8s  %%-5s  %%-%ds  %%s\n", maxName, barWidth)
	fmt.Fprintf(w, rowFmt, "Town", "Value", "Grade", "", "Review days")
	fmt.Fprintln(w, strings.Repeat("─", maxName+2+8+2+5+2+barWidth+2+nPeriods))
	for _, r := range rows {
		vals := alignValues(r.points, sortedDates)
		fmt.Fprintf(w, rowFmt, r.name, formatNum(r.value), r.grade, bar(r.value, maxVal), sparkline(vals))
	}
}

// bar draws value as a horizontal bar scaled so max fills barWidth cells.
func bar(value, max float64) string {
	if math.IsNaN(value) || max <= 0 || value <= 0 {
		return ""
	}
	n := int(math.Round(value / max * barWidth))
	if n < 1 {
		n = 1
	}
	return strings.Repeat("█", n)
}

// alignValues maps dataPoints to a slice aligned with sortedDates, filling gaps with NaN.
func alignValues(pts []dataPoint, sortedDates []string) []float64 {
	lookup := make(map[string]float64, len(pts))
	for _, p := range pts {
		lookup[p.date] = p.value
	}
	vals := make([]float64, len(sortedDates))
	for i, d := range sortedDates {
		if v, ok := lookup[d]; ok {
			vals[i] = v
		} else {
			vals[i] = math.NaN()
		}
	}
	return vals
}

func lastNonNaN(vals []float64) float64 {
	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) {
			return vals[i]
		}
	}
	return math.NaN()
}

func sparkline(values []float64) string {
	blocks := []rune("▁▂▃▄▅▆▇█")
	n := len(blocks)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return strings.Repeat(" ", len(values))
	}

	spread := hi - lo
	var sb strings.Builder
	for _, v := range values {
		if math.IsNaN(v) {
			sb.WriteRune(' ')
			continue
		}
		idx := n / 2
		if spread > 0 {
			idx = min(int((v-lo)/spread*float64(n-1)), n-1)
		}
		sb.WriteRune(blocks[idx])
	}
	return sb.String()
}

func renderChart(w io.Writer, title string, points []dataPoint) {
	var filtered []dataPoint
	for _, p := range points {
		if !math.IsNaN(p.value) {
			filtered = append(filtered, p)
		}
	}
	fmt.Fprintln(w, title)
	if len(filtered) == 0 {
		fmt.Fprintln(w, "(no data)")
		return
	}
	points = filtered
	sort.Slice(points, func(i, j int) bool {
		return points[i].date < points[j].date
	})
	fmt.Fprintln(w)

	height := 15
	nPoints := len(points)

	// Fit the data area in ~90 columns.
	colWidth := max(min(90/nPoints, 8), 3)

	minVal, maxVal := points[0].value, points[0].value
	for _, p := range points {
		minVal = math.Min(minVal, p.value)
		maxVal = math.Max(maxVal, p.value)
	}
	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1
		minVal -= 0.5
	}

	toRow := func(v float64) int {
		r := int(math.Round(v))
		return max(0, min(r, height-1))
	}
	pointRows := make([]int, nPoints)
	for i, p := range points {
		pointRows[i] = toRow((p.value - minVal) / valRange * float64(height-1))
	}

	totalWidth := nPoints * colWidth
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", totalWidth))
	}

	for i := 0; i < nPoints; i++ {
		col := i*colWidth + colWidth/2
		grid[pointRows[i]][col] = '●'
		if i == nPoints-1 {
			continue
		}
		endCol := (i+1)*colWidth + colWidth/2
		startRow, endRow := pointRows[i], pointRows[i+1]
		for c := col + 1; c < endCol; c++ {
			t := float64(c-col) / float64(endCol-col)
			r := toRow(float64(startRow) + t*float64(endRow-startRow))
			if grid[r][c] == ' ' {
				grid[r][c] = '·'
			}
		}
	}

	yLabels := make(map[int]string)
	for i := 0; i < 5; i++ {
		row := int(math.Round(float64(i) / 4.0 * float64(height-1)))
		yLabels[row] = formatCompact(minVal + float64(row)/float64(height-1)*valRange)
	}
	for r := height - 1; r >= 0; r-- {
		fmt.Fprintf(w, "%8s │%s\n", yLabels[r], string(grid[r]))
	}
	fmt.Fprintf(w, "%8s └%s\n", "", strings.Repeat("─", totalWidth))

	labelEvery := 1
	if colWidth < 8 {
		labelEvery = (8 + colWidth - 1) / colWidth
	}
	xLine := []byte(strings.Repeat(" ", totalWidth))
	for i := 0; i < nPoints; i += labelEvery {
		label := points[i].date
		pos := max(i*colWidth+colWidth/2-len(label)/2, 0)
		for j := 0; j < len(label) && pos+j < totalWidth; j++ {
			xLine[pos+j] = label[j]
		}
	}
	fmt.Fprintf(w, "%8s  %s\n", "", string(xLine))
}

func formatNum(v float64) string {
	if math.IsNaN(v) {
		return "N/A"
	}
	if v == float64(int64(v)) && math.Abs(v) < 1e15 {
		return formatInt(int64(v))
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatInt(v int64) string {
	s := strconv.FormatInt(v, 10)
	if v < 0 {
		return "-" + addCommas(s[1:])
	}
	return addCommas(s)
}

func addCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var sb strings.Builder
	pre := n % 3
	if pre > 0 {
		sb.WriteString(s[:pre])
		sb.WriteByte(',')
	}
	for i := pre; i < n; i += 3 {
		sb.WriteString(s[i : i+3])
		if i+3 < n {
			sb.WriteByte(',')
		}
	}
	return sb.String()
}

func formatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 0, 64) + "k"
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}

func metricLabel(m string) string {
	labels := map[string]string{
		"overall":    "Overall score",
		"rules":      "Rules score",
		"ops":        "Operations score",
		"review":     "Review points",
		"per-capita": "Approvals per 10K residents",
		"per-parcel": "Approvals per 1K parcels",
	}
	return labels[m]
}

func sortDates(dates map[string]bool) []string {
	sorted := make([]string, 0, len(dates))
	for d := range dates {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	return sorted
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
