// Package parser reads building permit logs published by towns as PDF files
// and maps the rows of their permit table to townstats.PermitRecord values.
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zalepa/aduscore/townstats"
)

// permitColumns is the header of the permit table, in column order.
var permitColumns = []string{
	"Permit", "Address", "Applied", "Issued", "Status",
	"Cost", "Sq Ft", "Type", "Contractor", "Notes",
}

const (
	numColumns = 10
	costColumn = 5
	sqftColumn = 6
	notesIndex = numColumns - 1
)

// PermitPage is the result of parsing one page of a permit log.
type PermitPage struct {
	Title   string // first line above the table header, if any
	Permits []townstats.PermitRecord
	Skipped []RowError
}

// RowError describes a table row that could not be mapped to a permit.
type RowError struct {
	Page   int // set by ParseFile; 0 when parsing a single page
	Line   int // 0-based line index within the page
	Text   string
	Reason string
}

func (e RowError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("page %d line %d %q: %s", e.Page, e.Line, e.Text, e.Reason)
	}
	return fmt.Sprintf("line %d %q: %s", e.Line, e.Text, e.Reason)
}

// groupIntoLines splits text items into lines at the empty line-break
// markers. Runs of markers collapse into one break; whitespace-only items are
// dropped.
func groupIntoLines(items []string) [][]string {
	var (
		lines   [][]string
		current []string
	)
	for _, item := range items {
		if item != "" {
			if s := strings.TrimSpace(item); s != "" {
				current = append(current, s)
			}
			continue
		}
		if len(current) > 0 {
			lines = append(lines, current)
			current = nil
		}
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}
	return lines
}

func compact(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

// isHeaderLine reports whether a line is the permit table header. Spaces are
// ignored so kerning splits such as "Con" + "tractor" still match.
func isHeaderLine(line []string) bool {
	want := compact(strings.Join(permitColumns, ""))
	return compact(strings.Join(line, "")) == want
}

// ContainsPermitTable reports whether the page items include the permit table
// header. Cover sheets and summary pages return false.
func ContainsPermitTable(items []string) bool {
	for _, line := range groupIntoLines(items) {
		if isHeaderLine(line) {
			return true
		}
	}
	return false
}

// isFooterLine matches page footers and totals rows printed under the table.
func isFooterLine(line []string) bool {
	first := strings.ToLower(line[0])
	return strings.HasPrefix(first, "page ") || first == "page" ||
		strings.HasPrefix(first, "total")
}

// mergeCommaSplitNumbers rejoins numbers that wide kerning split into two
// items, e.g. ["$185", "000"] back to "$185,000". It only runs while the line
// is longer than expectedLen. Pairs whose right half has a leading zero are
// merged first, then pairs with a one-digit left half, then two-digit ones.
// A complete value such as "$60,000" next to "450" is never extended.
func mergeCommaSplitNumbers(line []string, expectedLen int) []string {
	for len(line) > expectedLen {
		bestIdx, bestPriority := -1, 0
		for i := 0; i < len(line)-1; i++ {
			if !looksLikeCommaSplit(line[i], line[i+1]) {
				continue
			}
			if p := mergePriority(line[i], line[i+1]); p > bestPriority {
				bestIdx, bestPriority = i, p
			}
		}
		if bestIdx < 0 {
			break
		}

		merged := make([]string, 0, len(line)-1)
		merged = append(merged, line[:bestIdx]...)
		merged = append(merged, line[bestIdx]+","+line[bestIdx+1])
		merged = append(merged, line[bestIdx+2:]...)
		line = merged
	}
	return line
}

func mergePriority(left, right string) int {
	if right[0] == '0' {
		return 3
	}
	if strings.Contains(left, ",") {
		return 0
	}
	if strings.HasPrefix(left, "$") {
		return 2
	}
	switch len(left) {
	case 1:
		return 2
	case 2:
		return 1
	}
	return 0
}

// looksLikeCommaSplit reports whether left and right look like the two halves
// of a thousands-separated number. right must be three digits. left must be
// an already merged value ending in a three-digit group, a dollar amount of up
// to three digits, or a bare one- or two-digit prefix. Bare three-digit values
// are left alone since they are ambiguous with a standalone Sq Ft cell.
func looksLikeCommaSplit(left, right string) bool {
	if !isDigits(right, 3) || left == "" {
		return false
	}
	if idx := strings.LastIndex(left, ","); idx >= 0 {
		return isDigits(left[idx+1:], 3)
	}
	if rest, ok := strings.CutPrefix(left, "$"); ok {
		return len(rest) >= 1 && len(rest) <= 3 && isDigits(rest, len(rest))
	}
	return (len(left) == 1 || len(left) == 2) && isDigits(left, len(left))
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// parseAmount reads a cost or area cell. Blank and "-" cells are zero.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "N/A" {
		return 0, nil
	}
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	return v, nil
}

// normalizeRow coerces a line to exactly numColumns cells: split numbers are
// merged, short rows padded with blanks and surplus cells folded into Notes.
func normalizeRow(line []string) []string {
	line = mergeCommaSplitNumbers(line, numColumns)
	row := make([]string, numColumns)
	copy(row, line)
	if len(line) > numColumns {
		row[notesIndex] = strings.Join(line[notesIndex:], " ")
	}
	return row
}

// ParsePermitPage maps the text items of one page to permits. It returns an
// error only when the page has no permit table; rows that cannot be read are
// collected in Skipped and parsing continues.
func ParsePermitPage(items []string) (PermitPage, error) {
	var page PermitPage
	lines := groupIntoLines(items)

	start := -1
	for i, line := range lines {
		if isHeaderLine(line) {
			start = i + 1
			break
		}
		if page.Title == "" {
			page.Title = strings.Join(line, " ")
		}
	}
	if start < 0 {
		return page, fmt.Errorf("no permit table header on page")
	}

	for i := start; i < len(lines); i++ {
		line := lines[i]
		if isHeaderLine(line) || isFooterLine(line) {
			continue
		}
		row := normalizeRow(line)
		if row[0] == "" {
			continue
		}
		if len(line) < 5 {
			page.Skipped = append(page.Skipped, RowError{
				Line: i, Text: strings.Join(line, " "),
				Reason: fmt.Sprintf("expected %d columns, got %d", numColumns, len(line)),
			})
			continue
		}

		cost, err := parseAmount(row[costColumn])
		if err != nil {
			page.Skipped = append(page.Skipped, RowError{Line: i, Text: strings.Join(line, " "), Reason: "cost: " + err.Error()})
			continue
		}
		sqft, err := parseAmount(row[sqftColumn])
		if err != nil {
			page.Skipped = append(page.Skipped, RowError{Line: i, Text: strings.Join(line, " "), Reason: "sq ft: " + err.Error()})
			continue
		}

		page.Permits = append(page.Permits, townstats.PermitRecord{
			Permit:     row[0],
			Address:    row[1],
			Applied:    row[2],
			Issued:     row[3],
			Status:     row[4],
			Cost:       cost,
			Sqft:       sqft,
			Type:       row[7],
			Contractor: row[8],
			Notes:      row[9],
		})
	}

	return page, nil
}

// ParseFile extracts every page of a permit log PDF and parses the pages that
// carry the permit table. Pages without a table are skipped silently.
func ParseFile(path string) ([]townstats.PermitRecord, []RowError, error) {
	pages, err := ExtractPages(path)
	if err != nil {
		return nil, nil, err
	}

	var (
		permits []townstats.PermitRecord
		skipped []RowError
	)
	for _, p := range pages {
		items := p.Items()
		if !ContainsPermitTable(items) {
			continue
		}
		page, err := ParsePermitPage(items)
		if err != nil {
			return nil, nil, fmt.Errorf("page %d: %w", p.Number, err)
		}
		permits = append(permits, page.Permits...)
		for _, re := range page.Skipped {
			re.Page = p.Number
			skipped = append(skipped, re)
		}
	}
	return permits, skipped, nil
}
