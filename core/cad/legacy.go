package cad

import (
	"bufio"
	"strings"
)

// The legacy flat-text format is line oriented. Top-level fields are
// "Label: value" lines; bare header lines ("Address:", "Caller Information:",
// "Units:", "Event Comments:") open a section that runs until the next
// header. Unit rows are tab-separated: unit, status code, time.

var legacySections = map[string]string{
	"Address:":             "address",
	"Caller Information:":  "caller",
	"Units:":               "units",
	"Event Comments:":      "comments",
	"Responding Units:":    "units",
	"Unit Times:":          "units",
	"Additional Comments:": "comments",
}

func decodeLegacy(text string) (*ParsedReport, error) {
	rpt := &ParsedReport{Kind: ReportDispatch}
	if strings.Contains(text, "Clear Report") {
		rpt.Kind = ReportClear
	}

	section := ""
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if next, ok := legacySections[strings.TrimSpace(line)]; ok {
			section = next
			continue
		}
		switch section {
		case "units":
			parseLegacyUnitRow(rpt, line)
		case "comments":
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				rpt.Comments = append(rpt.Comments, trimmed)
			}
		default:
			parseLegacyField(rpt, section, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &DecodeError{Reason: "legacy scan: " + err.Error()}
	}
	if rpt.IncidentNumber == "" {
		return nil, &DecodeError{Reason: "legacy report missing incident number"}
	}
	return rpt, nil
}

// parseLegacyUnitRow reads "unit \t status \t time". Rows with extra trailing
// columns keep their first three fields; short rows are skipped.
func parseLegacyUnitRow(rpt *ParsedReport, line string) {
	fields := strings.Split(line, "\t")
	var parts []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) < 3 {
		return
	}
	ob := rpt.unit(parts[0])
	ob.setStatus(parts[1], parts[2])
}

func parseLegacyField(rpt *ParsedReport, section, line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if label, value, ok := strings.Cut(trimmed, ":"); ok {
		applyField(rpt, label, value)
		return
	}
	// The address section carries the street line bare, with no label.
	if section == "address" && rpt.Address == "" {
		rpt.Address = trimmed
	}
}
