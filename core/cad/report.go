// Package cad decodes raw dispatch-center payloads into normalized reports.
//
// Two wire formats are supported: a markup (HTML table) format and a legacy
// flat-text format. Both decode to the same ParsedReport shape; everything
// downstream is format-agnostic.
package cad

import "strings"

type ReportKind string

const (
	ReportDispatch ReportKind = "dispatch"
	ReportClear    ReportKind = "clear"
)

// Wire status codes. The legacy format uses AK where the markup format uses
// AV, and OS where the markup format uses AR; both normalize to the same
// fields.
const (
	codeDispatched      = "DP"
	codeEnroute         = "ER"
	codeArrived         = "AR"
	codeOnScene         = "OS"
	codeTransportStart  = "TR"
	codeTransportArrive = "TA"
	codeAvailable       = "AV"
	codeAvailableLegacy = "AK"
	codeAtQuarters      = "AQ"
)

// UnitObservation holds the per-unit status times seen in a single report.
// Values are raw time-of-day strings (for example "14:32:10"); they carry no
// date and are resolved against the incident date by the reconciler.
type UnitObservation struct {
	RawUnit         string
	Dispatched      string
	Enroute         string
	Arrived         string
	TransportStart  string
	TransportArrive string
	Available       string
	Cleared         string
}

// setStatus records a wire status time on the matching field. Unknown codes
// are ignored so a vendor adding a status does not break decoding.
func (o *UnitObservation) setStatus(code, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case codeDispatched:
		o.Dispatched = value
	case codeEnroute:
		o.Enroute = value
	case codeArrived, codeOnScene:
		o.Arrived = value
	case codeTransportStart:
		o.TransportStart = value
	case codeTransportArrive:
		o.TransportArrive = value
	case codeAvailable, codeAvailableLegacy:
		o.Available = value
	case codeAtQuarters:
		o.Cleared = value
	}
}

func (o *UnitObservation) empty() bool {
	return o.Dispatched == "" && o.Enroute == "" && o.Arrived == "" &&
		o.TransportStart == "" && o.TransportArrive == "" &&
		o.Available == "" && o.Cleared == ""
}

// ParsedReport is the immutable output of the decoder.
type ParsedReport struct {
	Kind           ReportKind
	IncidentNumber string
	TypeCode       string
	SubtypeCode    string
	Address        string
	CrossStreets   string
	Municipality   string
	Zone           string
	CallerName     string
	CallerPhone    string
	CallerAddress  string
	CallerSource   string

	// ReportTime is the raw report/call time string, not yet
	// timezone-resolved. CLEAR reports may arrive long after the event,
	// so the incident date is derived from this field rather than from
	// processing wall-clock time.
	ReportTime string

	Units    []UnitObservation
	Comments []string
}

// unit returns the observation for a raw unit token, creating it on first
// sight. Tokens are matched verbatim here; canonicalization happens in the
// resolver, not the decoder.
func (r *ParsedReport) unit(raw string) *UnitObservation {
	raw = strings.TrimSpace(raw)
	for i := range r.Units {
		if r.Units[i].RawUnit == raw {
			return &r.Units[i]
		}
	}
	r.Units = append(r.Units, UnitObservation{RawUnit: raw})
	return &r.Units[len(r.Units)-1]
}
