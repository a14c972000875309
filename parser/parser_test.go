package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/zalepa/aduscore/townstats"
)

// lines builds page items from rows, inserting a line-break marker before
// each row the way ExtractTextItems does.
func lines(rows ...[]string) []string {
	var items []string
	for _, r := range rows {
		items = append(items, "")
		items = append(items, r...)
	}
	return items
}

var header = []string{"Permit", "Address", "Applied", "Issued", "Status", "Cost", "Sq Ft", "Type", "Contractor", "Notes"}

func TestGroupIntoLines(t *testing.T) {
	items := []string{"", "A", "B", "", "C", "", "", "D", " ", "E", ""}
	got := groupIntoLines(items)
	want := [][]string{{"A", "B"}, {"C"}, {"D", "E"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestIsHeaderLine(t *testing.T) {
	tests := []struct {
		line []string
		want bool
	}{
		{header, true},
		{[]string{"PERMIT", "ADDRESS", "APPLIED", "ISSUED", "STATUS", "COST", "SQ FT", "TYPE", "CONTRACTOR", "NOTES"}, true},
		{[]string{"Permit", "Address", "Applied", "Issued", "Status", "Cost", "Sq", "Ft", "Type", "Con", "tractor", "Notes"}, true},
		{[]string{"Permit", "Address", "Status"}, false},
		{[]string{"Town of Lexington"}, false},
	}
	for _, tt := range tests {
		if got := isHeaderLine(tt.line); got != tt.want {
			t.Errorf("isHeaderLine(%v) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestMergeCommaSplitNumbers(t *testing.T) {
	tests := []struct {
		name string
		line []string
		want []string
	}{
		{
			name: "no merge needed",
			line: []string{"B-1", "1 Elm St", "01/02/24", "", "Issued", "$185,000", "850", "Detached", "Acme", "x"},
			want: []string{"B-1", "1 Elm St", "01/02/24", "", "Issued", "$185,000", "850", "Detached", "Acme", "x"},
		},
		{
			name: "dollar amount split",
			line: []string{"B-1", "1 Elm St", "01/02/24", "02/01/24", "Issued", "$185", "000", "850", "Detached", "Acme", "x"},
			want: []string{"B-1", "1 Elm St", "01/02/24", "02/01/24", "Issued", "$185,000", "850", "Detached", "Acme", "x"},
		},
		{
			name: "cost and area both split",
			line: []string{"B-1", "1 Elm St", "01/02/24", "02/01/24", "Issued", "$1", "250", "000", "1", "200", "Detached", "Acme", "x"},
			want: []string{"B-1", "1 Elm St", "01/02/24", "02/01/24", "Issued", "$1,250,000", "1,200", "Detached", "Acme", "x"},
		},
		{
			name: "bare three digit values are not merged",
			line: []string{"B-1", "1 Elm St", "01/02/24", "02/01/24", "Issued", "950", "850", "Detached", "Acme", "x", "extra"},
			want: []string{"B-1", "1 Elm St", "01/02/24", "02/01/24", "Issued", "950", "850", "Detached", "Acme", "x", "extra"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeCommaSplitNumbers(tt.line, numColumns)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"$185,000", 185000, false},
		{"1,200", 1200, false},
		{"850.5", 850.5, false},
		{"", 0, false},
		{"-", 0, false},
		{"N/A", 0, false},
		{"TBD", 0, true},
		{"-5", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"$-infinity", 0, true},
		{"+INF", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmount(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsePermitPage(t *testing.T) {
	items := lines(
		[]string{"Town of Lexington"},
		[]string{"ADU Permit Log"},
		header,
		[]string{"B-24-101", "12 Oak St", "01/02/24", "02/01/24", "Issued", "$185", "000", "850", "Detached", "Acme Builders", "carriage house"},
		[]string{"B-24-102", "4 Elm Rd", "03/15/24", "", "Pending", "$92,500", "600", "Internal"},
		[]string{"B-24-103", "9 Pine Ln", "04/01/24", "05/20/24", "Issued", "$60,000", "450", "Attached", "Smith & Co", "abutter", "appeal", "withdrawn"},
		[]string{"B-24-104", "1 Main St", "04/03/24", "", "Review", "TBD", "500", "Detached", "", ""},
		[]string{"B-24-105", "oops"},
		[]string{"Total", "$337,500"},
		[]string{"Page 1 of 2"},
	)

	page, err := ParsePermitPage(items)
	if err != nil {
		t.Fatalf("ParsePermitPage: %v", err)
	}
	if page.Title != "Town of Lexington" {
		t.Errorf("Title = %q", page.Title)
	}

	want := []townstats.PermitRecord{
		{Permit: "B-24-101", Address: "12 Oak St", Applied: "01/02/24", Issued: "02/01/24", Status: "Issued", Cost: 185000, Sqft: 850, Type: "Detached", Contractor: "Acme Builders", Notes: "carriage house"},
		{Permit: "B-24-102", Address: "4 Elm Rd", Applied: "03/15/24", Issued: "", Status: "Pending", Cost: 92500, Sqft: 600, Type: "Internal"},
		{Permit: "B-24-103", Address: "9 Pine Ln", Applied: "04/01/24", Issued: "05/20/24", Status: "Issued", Cost: 60000, Sqft: 450, Type: "Attached", Contractor: "Smith & Co", Notes: "abutter appeal withdrawn"},
	}
	if !reflect.DeepEqual(page.Permits, want) {
		t.Errorf("Permits =\n%+v\nwant\n%+v", page.Permits, want)
	}

	if len(page.Skipped) != 2 {
		t.Fatalf("Skipped = %v, want 2 rows", page.Skipped)
	}
	if !strings.HasPrefix(page.Skipped[0].Reason, "cost:") {
		t.Errorf("Skipped[0] = %v", page.Skipped[0])
	}
	if !strings.Contains(page.Skipped[1].Error(), "B-24-105") {
		t.Errorf("Skipped[1] = %v", page.Skipped[1])
	}
}

func TestParsePermitPageNoTable(t *testing.T) {
	items := lines([]string{"Town of Hull"}, []string{"Summary of ADU activity"})
	if ContainsPermitTable(items) {
		t.Error("ContainsPermitTable = true for a cover page")
	}
	if _, err := ParsePermitPage(items); err == nil {
		t.Error("expected an error for a page without a permit table")
	}
}

func TestParsePermitPageFromStream(t *testing.T) {
	stream := []byte(`BT
/F1 10 Tf
1 0 0 1 40 760 Tm
(Town of Hull Building Department)Tj
1 0 0 1 40 730 Tm
[(Permit)-4000(Address)-4000(Applied)-4000(Issued)-4000(Status)-4000(Cost)-4000(Sq Ft)-4000(Type)-4000(Contractor)-4000(Notes)]TJ
1 0 0 1 40 716 Tm
[(H-101)-4000(3 Nantasket Ave)-4000(06/01/2023)-4000(07/15/2023)-4000(Issued)-4000($140)-2600(000)-4000(700)-4000(Detached)-4000(Coastal Homes)-4000(-)]TJ
ET`)

	items := ExtractTextItems(stream)
	if !ContainsPermitTable(items) {
		t.Fatal("permit table not detected")
	}
	page, err := ParsePermitPage(items)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Permits) != 1 {
		t.Fatalf("got %d permits, want 1", len(page.Permits))
	}
	p := page.Permits[0]
	if p.Cost != 140000 || p.Sqft != 700 || p.Contractor != "Coastal Homes" {
		t.Errorf("permit = %+v", p)
	}
	if page.Title != "Town of Hull Building Department" {
		t.Errorf("Title = %q", page.Title)
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, _, err := ParseFile("testdata/does-not-exist.pdf"); err == nil {
		t.Error("expected error for missing file")
	}
}
