package reconcile

import (
	"testing"
	"time"

	"osprey-cad/core/cad"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		sec  int
		want bool
	}{
		{"14:32:10", 14*3600 + 32*60 + 10, true},
		{"00:00:00", 0, true},
		{"23:59", 23*3600 + 59*60, true},
		{" 08:15:00 ", 8*3600 + 15*60, true},
		{"24:00:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		sec, ok := parseTimeOfDay(tc.in)
		if ok != tc.want || (ok && sec != tc.sec) {
			t.Errorf("parseTimeOfDay(%q) = %d,%v, want %d,%v", tc.in, sec, ok, tc.sec, tc.want)
		}
	}
}

func TestResolveTimeOfDayRollover(t *testing.T) {
	date := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	anchor := 23*3600 + 58*60 // dispatched 23:58:00

	after := resolveTimeOfDay("00:10:00", date, anchor, time.UTC)
	if after == nil {
		t.Fatal("00:10:00 did not resolve")
	}
	want := time.Date(2025, time.March, 8, 0, 10, 0, 0, time.UTC)
	if !after.Equal(want) {
		t.Fatalf("00:10:00 resolved to %s, want %s", after, want)
	}

	same := resolveTimeOfDay("23:59:59", date, anchor, time.UTC)
	if same == nil {
		t.Fatal("23:59:59 did not resolve")
	}
	want = time.Date(2025, time.March, 7, 23, 59, 59, 0, time.UTC)
	if !same.Equal(want) {
		t.Fatalf("23:59:59 resolved to %s, want %s", same, want)
	}

	if resolveTimeOfDay("garbage", date, anchor, time.UTC) != nil {
		t.Fatal("unparsable time-of-day must resolve to nil")
	}
}

func TestResolveTimeOfDayConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	date := time.Date(2025, time.March, 7, 0, 0, 0, 0, loc)
	got := resolveTimeOfDay("14:32:10", date, 0, loc)
	if got == nil {
		t.Fatal("did not resolve")
	}
	want := time.Date(2025, time.March, 7, 19, 32, 10, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("resolved to %s, want %s UTC", got, want)
	}
}

func TestIncidentDateFromReportTime(t *testing.T) {
	rpt := &cad.ParsedReport{IncidentNumber: "F25066673", ReportTime: "03/07/2025 14:32:10"}
	got := incidentDate(rpt, time.UTC)
	want := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("incident date = %s, want %s", got, want)
	}
}

func TestIncidentDateFallsBackToNumberYear(t *testing.T) {
	rpt := &cad.ParsedReport{IncidentNumber: "F25066673", ReportTime: "unknown"}
	got := incidentDate(rpt, time.UTC)
	want := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("incident date = %s, want %s", got, want)
	}
}

func TestAnchorSecondsPrefersExistingDispatch(t *testing.T) {
	early := time.Date(2025, time.March, 7, 23, 58, 0, 0, time.UTC)
	agg := &IncidentAggregate{Units: map[string]*UnitTimelineEntry{
		"ENGINE-48-1": {CanonicalID: "ENGINE-48-1", Dispatched: &early},
	}}
	rpt := &cad.ParsedReport{Units: []cad.UnitObservation{{RawUnit: "TWR48", Dispatched: "00:05:00"}}}
	got := anchorSeconds(agg, rpt, time.UTC)
	if want := 23*3600 + 58*60; got != want {
		t.Fatalf("anchor = %d, want %d", got, want)
	}
}

func TestAnchorSecondsFromReport(t *testing.T) {
	rpt := &cad.ParsedReport{Units: []cad.UnitObservation{
		{RawUnit: "TWR48", Dispatched: "14:35:00"},
		{RawUnit: "ENG481", Dispatched: "14:32:10"},
	}}
	got := anchorSeconds(nil, rpt, time.UTC)
	if want := 14*3600 + 32*60 + 10; got != want {
		t.Fatalf("anchor = %d, want %d", got, want)
	}
	if anchorSeconds(nil, &cad.ParsedReport{}, time.UTC) != 0 {
		t.Fatal("anchor without any dispatch must be 0")
	}
}
