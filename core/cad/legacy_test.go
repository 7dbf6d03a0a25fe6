package cad

import (
	"strings"
	"testing"
)

const legacyDispatch = `Dispatch Report
Call Time: 03/07/2025 14:32:10
Event: F25066673
Event Type Code: STRUCT
Event Subtype Code: RES
ESZ: 0405
Beat: 12
Address:
123 MAIN ST
Cross Streets: OAK AVE / ELM ST
Caller Information:
Caller Name: JANE DOE
Caller Phone Number: 555-0142
Caller Source: E911
Units:
ENG481	DP	14:32:10
TWR48	DP	14:32:12
Event Comments:
CALLER REPORTS SMOKE FROM SECOND FLOOR
`

const legacyClear = `Clear Report
Call Time: 03/07/2025 14:32:10
Event: F25066673
Event Type Code: STRUCT
Units:
ENG481	DP	14:32:10
ENG481	ER	14:33:05
ENG481	OS	14:41:00
ENG481	AK	15:20:00
ENG481	AQ	15:25:00
TWR48	DP	14:32:12
TWR48	ER	14:34:00
Event Comments:
FIRE UNDER CONTROL 1455
`

func TestDecodeLegacyDispatch(t *testing.T) {
	rpt, err := decodeLegacy(legacyDispatch)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rpt.Kind != ReportDispatch {
		t.Fatalf("kind = %s, want dispatch", rpt.Kind)
	}
	if rpt.IncidentNumber != "F25066673" {
		t.Fatalf("incident number = %q", rpt.IncidentNumber)
	}
	if rpt.TypeCode != "STRUCT" || rpt.SubtypeCode != "RES" {
		t.Fatalf("type codes = %q/%q", rpt.TypeCode, rpt.SubtypeCode)
	}
	if rpt.Address != "123 MAIN ST" {
		t.Fatalf("address = %q", rpt.Address)
	}
	if rpt.CrossStreets != "OAK AVE / ELM ST" {
		t.Fatalf("cross streets = %q", rpt.CrossStreets)
	}
	if rpt.Municipality != "0405" || rpt.Zone != "12" {
		t.Fatalf("municipality/zone = %q/%q", rpt.Municipality, rpt.Zone)
	}
	if rpt.CallerName != "JANE DOE" || rpt.CallerPhone != "555-0142" || rpt.CallerSource != "E911" {
		t.Fatalf("caller fields = %q/%q/%q", rpt.CallerName, rpt.CallerPhone, rpt.CallerSource)
	}
	if rpt.ReportTime != "03/07/2025 14:32:10" {
		t.Fatalf("report time = %q", rpt.ReportTime)
	}
	if len(rpt.Units) != 2 {
		t.Fatalf("units = %d, want 2", len(rpt.Units))
	}
	if rpt.Units[0].RawUnit != "ENG481" || rpt.Units[0].Dispatched != "14:32:10" {
		t.Fatalf("unit 0 = %+v", rpt.Units[0])
	}
	if len(rpt.Comments) != 1 || !strings.Contains(rpt.Comments[0], "SMOKE") {
		t.Fatalf("comments = %v", rpt.Comments)
	}
}

func TestDecodeLegacyClear(t *testing.T) {
	rpt, err := decodeLegacy(legacyClear)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rpt.Kind != ReportClear {
		t.Fatalf("kind = %s, want clear", rpt.Kind)
	}
	if len(rpt.Units) != 2 {
		t.Fatalf("units = %d, want 2", len(rpt.Units))
	}
	eng := rpt.Units[0]
	if eng.RawUnit != "ENG481" {
		t.Fatalf("unit 0 = %q", eng.RawUnit)
	}
	// OS maps to arrived, AK maps to available.
	if eng.Dispatched != "14:32:10" || eng.Enroute != "14:33:05" || eng.Arrived != "14:41:00" ||
		eng.Available != "15:20:00" || eng.Cleared != "15:25:00" {
		t.Fatalf("unit 0 times = %+v", eng)
	}
	twr := rpt.Units[1]
	if twr.Dispatched != "14:32:12" || twr.Enroute != "14:34:00" || twr.Arrived != "" {
		t.Fatalf("unit 1 times = %+v", twr)
	}
}

func TestDecodeLegacyMissingIncidentNumber(t *testing.T) {
	payload := "Dispatch Report\nCall Time: 03/07/2025 14:32:10\nEvent Type Code: STRUCT\n"
	_, err := decodeLegacy(payload)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if _, ok := err.(*DecodeError); !ok {
		t.Fatalf("error type = %T", err)
	}
}
