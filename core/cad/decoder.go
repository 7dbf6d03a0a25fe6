package cad

import (
	"regexp"
	"strings"
)

// DecodeError marks a payload that matched neither wire format or that was
// missing its natural key. It is non-fatal: the message is dropped and the
// raw bytes stay archived.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "cad decode: " + e.Reason
}

var markupTagRe = regexp.MustCompile(`<[A-Za-z!/]`)

// Decode detects the wire format of a raw payload and parses it. The legacy
// flat-text format is identified by a literal "Call Time:" label with no
// markup tags; anything with markup tags goes through the markup decoder.
func Decode(raw []byte) (*ParsedReport, error) {
	text := string(raw)
	hasMarkup := markupTagRe.MatchString(text)
	if strings.Contains(text, "Call Time:") && !hasMarkup {
		return decodeLegacy(text)
	}
	if hasMarkup {
		return decodeMarkup(raw)
	}
	return nil, &DecodeError{Reason: "unrecognized payload format"}
}

// applyField maps a normalized label to a report field. Shared between both
// decoders so the formats cannot drift apart. Unknown labels are ignored.
func applyField(r *ParsedReport, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	switch normalizeLabel(label) {
	case "event", "event no", "event number", "incident no", "incident number":
		r.IncidentNumber = value
	case "call time", "report time":
		r.ReportTime = value
	case "event type code", "type code":
		r.TypeCode = value
	case "event subtype code", "subtype code":
		r.SubtypeCode = value
	case "esz":
		r.Municipality = value
	case "beat", "zone":
		r.Zone = value
	case "address", "location":
		r.Address = value
	case "cross street", "cross streets":
		r.CrossStreets = value
	case "municipality":
		r.Municipality = value
	case "caller name", "name":
		r.CallerName = value
	case "caller phone number", "caller phone", "phone":
		r.CallerPhone = value
	case "caller address":
		r.CallerAddress = value
	case "caller source", "source":
		r.CallerSource = value
	}
}

func normalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	label = strings.TrimSuffix(label, ":")
	label = strings.Join(strings.Fields(label), " ")
	return strings.ToLower(label)
}
