package reconcile

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"osprey-cad/core/cad"
)

// Status timestamps on the wire are time-of-day only. They are resolved
// against the incident date with a rollover rule: a time-of-day earlier than
// the anchor dispatch time-of-day belongs to the following calendar day.
// This handles incidents that start before midnight and clear after it.

// parseTimeOfDay accepts "15:04:05" and "15:04", returning seconds since
// local midnight.
func parseTimeOfDay(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		nums[i] = n
	}
	h, m, sec := nums[0], nums[1], nums[2]
	if h > 23 || m > 59 || sec > 59 {
		return 0, false
	}
	return h*3600 + m*60 + sec, true
}

// resolveTimeOfDay converts a wire time-of-day to a UTC instant on the
// incident date (or the next day, per the rollover rule). date must be local
// midnight in loc. Returns nil for unparsable input.
func resolveTimeOfDay(tod string, date time.Time, anchorSec int, loc *time.Location) *time.Time {
	sec, ok := parseTimeOfDay(tod)
	if !ok {
		return nil
	}
	day := date
	if sec < anchorSec {
		day = day.AddDate(0, 0, 1)
	}
	t := time.Date(day.Year(), day.Month(), day.Day(), sec/3600, (sec/60)%60, sec%60, 0, loc).UTC()
	return &t
}

var reportTimeLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/06 15:04:05",
	"01/02/06 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006",
	"2006-01-02",
}

// incidentDate derives the incident's calendar date (local midnight in loc)
// from the report's own time field. If that is unparsable it falls back to
// January 1 of the year encoded in the incident number's positional year
// digits (for example "F25066673" encodes 2025).
func incidentDate(rpt *cad.ParsedReport, loc *time.Location) time.Time {
	raw := strings.TrimSpace(rpt.ReportTime)
	for _, layout := range reportTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		}
	}
	return time.Date(incidentNumberYear(rpt.IncidentNumber), time.January, 1, 0, 0, 0, 0, loc)
}

// incidentNumberYear reads the two year digits that follow the leading
// letters of an incident number.
func incidentNumberYear(number string) int {
	digits := strings.TrimLeftFunc(strings.TrimSpace(number), unicode.IsLetter)
	if len(digits) >= 2 {
		if yy, err := strconv.Atoi(digits[:2]); err == nil {
			return 2000 + yy
		}
	}
	return time.Now().UTC().Year()
}

// anchorSeconds picks the rollover anchor: the incident's first dispatch
// time-of-day. Existing resolved entries win; otherwise the earliest
// dispatch time in the incoming report is used. Zero means no rollover.
func anchorSeconds(agg *IncidentAggregate, rpt *cad.ParsedReport, loc *time.Location) int {
	if agg != nil {
		var first *time.Time
		for _, e := range agg.Units {
			first = earlierOf(first, e.Dispatched)
		}
		if first != nil {
			local := first.In(loc)
			return local.Hour()*3600 + local.Minute()*60 + local.Second()
		}
	}
	anchor := -1
	for i := range rpt.Units {
		if sec, ok := parseTimeOfDay(rpt.Units[i].Dispatched); ok {
			if anchor < 0 || sec < anchor {
				anchor = sec
			}
		}
	}
	if anchor < 0 {
		return 0
	}
	return anchor
}
