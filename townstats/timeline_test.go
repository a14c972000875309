package townstats

import (
	"testing"
	"time"
)

func TestParsePermitDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		valid bool
	}{
		{"01/31/24", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), true},
		{"1/5/2023", time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{" 12/01/99 ", time.Date(2099, 12, 1, 0, 0, 0, 0, time.UTC), true},
		{"02/29/24", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), true},
		{"02/30/24", time.Time{}, false},
		{"13/01/24", time.Time{}, false},
		{"00/10/24", time.Time{}, false},
		{"2024-01-31", time.Time{}, false},
		{"01/31/024", time.Time{}, false},
		{"Jan/31/24", time.Time{}, false},
		{"+1/+5/24", time.Time{}, false},
		{"01/-5/24", time.Time{}, false},
		{"01/05/+024", time.Time{}, false},
		{"1 /05/24", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got := ParsePermitDate(tt.input)
		if got.Valid != tt.valid {
			t.Errorf("ParsePermitDate(%q).Valid = %v, want %v", tt.input, got.Valid, tt.valid)
			continue
		}
		if tt.valid && !got.Time.Equal(tt.want) {
			t.Errorf("ParsePermitDate(%q) = %v, want %v", tt.input, got.Time, tt.want)
		}
	}
}

func issued(address, applied, issuedOn string) PermitRecord {
	return PermitRecord{Address: address, Applied: applied, Issued: issuedOn, Status: "Issued"}
}

func TestComputeTimelines_SinglePermit(t *testing.T) {
	got, ok := ComputeTimelines([]PermitRecord{issued("1 Main St", "01/01/24", "01/31/24")})
	if !ok {
		t.Fatal("expected stats, got none")
	}
	if got.MedianDays != 30 || got.MinDays != 30 || got.MaxDays != 30 || got.AvgDays != 30 || got.Count != 1 {
		t.Errorf("got %+v, want all 30 days with count 1", got)
	}
}

func TestComputeTimelines_IssuedBeforeApplied(t *testing.T) {
	// Data-entry error: issued precedes applied. Duration is still positive.
	got, ok := ComputeTimelines([]PermitRecord{issued("2 Elm St", "03/15/24", "03/05/24")})
	if !ok {
		t.Fatal("expected stats, got none")
	}
	if got.MedianDays != 10 {
		t.Errorf("MedianDays = %d, want 10", got.MedianDays)
	}
}

func TestComputeTimelines_DistantYear(t *testing.T) {
	// A year typo far outside the range of time.Duration.
	got, ok := ComputeTimelines([]PermitRecord{issued("7 Ash St", "01/01/0001", "01/01/2024")})
	if !ok {
		t.Fatal("expected stats, got none")
	}
	if got.MaxDays != 738885 {
		t.Errorf("MaxDays = %d, want 738885", got.MaxDays)
	}
}

func TestComputeTimelines_Filters(t *testing.T) {
	permits := []PermitRecord{
		{Address: "a", Applied: "01/01/24", Issued: "02/01/24", Status: "issued"},
		{Address: "b", Applied: "01/01/24", Issued: "02/01/24", Status: "Issued "},
		{Address: "c", Applied: "01/01/24", Issued: "02/01/24", Status: "Pending"},
		{Address: "d", Applied: "", Issued: "02/01/24", Status: "Issued"},
		{Address: "e", Applied: "01/01/24", Issued: "not a date", Status: "Issued"},
		{Address: "f", Applied: "01/01/24", Issued: "01/01/24", Status: "Issued"},
	}
	if got, ok := ComputeTimelines(permits); ok {
		t.Errorf("expected no stats, got %+v", got)
	}
	if _, ok := ComputeTimelines(nil); ok {
		t.Error("expected no stats for empty input")
	}
}

func TestComputeTimelines_Median(t *testing.T) {
	permits := []PermitRecord{
		issued("a", "01/01/24", "01/11/24"),     // 10
		issued("b", "01/01/24", "02/10/24"),     // 40
		issued("c", "01/01/24", "01/21/24"),     // 20
		issued("d", "01/01/2024", "01/26/2024"), // 25
	}
	got, ok := ComputeTimelines(permits)
	if !ok {
		t.Fatal("expected stats")
	}
	// Even count: (20+25)/2 = 22.5 rounds to 23.
	if got.MedianDays != 23 {
		t.Errorf("MedianDays = %d, want 23", got.MedianDays)
	}
	if got.MinDays != 10 || got.MaxDays != 40 {
		t.Errorf("min/max = %d/%d, want 10/40", got.MinDays, got.MaxDays)
	}
	// (10+40+20+25)/4 = 23.75
	if got.AvgDays != 24 {
		t.Errorf("AvgDays = %d, want 24", got.AvgDays)
	}
	wantOrder := []string{"a", "c", "d", "b"}
	for i, e := range got.Entries {
		if e.Address != wantOrder[i] {
			t.Errorf("Entries[%d].Address = %q, want %q", i, e.Address, wantOrder[i])
		}
	}

	odd, _ := ComputeTimelines(permits[:3])
	if odd.MedianDays != 20 {
		t.Errorf("odd MedianDays = %d, want 20", odd.MedianDays)
	}
}
