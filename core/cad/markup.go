package cad

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// The markup format is a sequence of tables. A cell with a "Title" role names
// the report kind; a cell with a "Header" role names a section whose data
// lives in the *next* table, never in the same one. Everything else is
// label/value rows.

func decodeMarkup(raw []byte) (*ParsedReport, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Reason: "markup parse: " + err.Error()}
	}
	rpt := &ParsedReport{Kind: ReportDispatch}
	tables := collectTables(doc)
	consumed := make(map[int]bool)
	for i, tb := range tables {
		if consumed[i] {
			continue
		}
		role, lead := tableLead(tb)
		switch {
		case roleIs(role, "title"):
			if strings.Contains(lead, "Clear Report") {
				rpt.Kind = ReportClear
			}
		case roleIs(role, "header"):
			if i+1 >= len(tables) {
				continue
			}
			consumed[i+1] = true
			readSection(rpt, normalizeLabel(lead), tables[i+1])
		default:
			for _, row := range tableRows(tb) {
				if len(row) >= 2 {
					applyField(rpt, row[0], strings.Join(row[1:], " "))
				}
			}
		}
	}
	if rpt.IncidentNumber == "" {
		return nil, &DecodeError{Reason: "markup report missing incident number"}
	}
	return rpt, nil
}

func readSection(rpt *ParsedReport, name string, data *html.Node) {
	rows := tableRows(data)
	switch name {
	case "location", "caller information":
		for _, row := range rows {
			if len(row) >= 2 {
				applyField(rpt, row[0], strings.Join(row[1:], " "))
			}
		}
	case "responding units":
		// Dispatch rows: Unit, Station, Agency, Status, Time.
		for _, row := range rows {
			if len(row) < 5 || normalizeLabel(row[0]) == "unit" {
				continue
			}
			ob := rpt.unit(row[0])
			ob.setStatus(codeDispatched, row[4])
		}
	case "unit times":
		// Clear rows: Unit, DP, ER, AR, TR, TA, AV, AQ.
		for _, row := range rows {
			if len(row) < 8 || normalizeLabel(row[0]) == "unit" {
				continue
			}
			ob := rpt.unit(row[0])
			ob.setStatus(codeDispatched, row[1])
			ob.setStatus(codeEnroute, row[2])
			ob.setStatus(codeArrived, row[3])
			ob.setStatus(codeTransportStart, row[4])
			ob.setStatus(codeTransportArrive, row[5])
			ob.setStatus(codeAvailable, row[6])
			ob.setStatus(codeAtQuarters, row[7])
		}
	case "event comments":
		for _, row := range rows {
			text := strings.TrimSpace(strings.Join(row, " "))
			if text != "" {
				rpt.Comments = append(rpt.Comments, text)
			}
		}
	}
}

// collectTables returns tables in document order without descending into
// nested tables, so the header/data adjacency rule holds at one level.
func collectTables(n *html.Node) []*html.Node {
	var tables []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "table" {
			tables = append(tables, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return tables
}

// tableLead returns the role attribute and text of the table's first cell.
func tableLead(table *html.Node) (role, text string) {
	rows := findElements(table, "tr")
	if len(rows) == 0 {
		return "", ""
	}
	cells := rowCells(rows[0])
	if len(cells) == 0 {
		return "", ""
	}
	return cellRole(cells[0]), strings.TrimSpace(nodeText(cells[0]))
}

// cellRole reads the role-bearing attribute of a cell. Vendor documents mark
// roles via class (occasionally id).
func cellRole(cell *html.Node) string {
	for _, attr := range cell.Attr {
		if attr.Key == "class" || attr.Key == "id" {
			if attr.Val != "" {
				return attr.Val
			}
		}
	}
	return ""
}

func roleIs(role, want string) bool {
	return strings.Contains(strings.ToLower(role), want)
}

// tableRows flattens a table into rows of trimmed cell texts.
func tableRows(table *html.Node) [][]string {
	var out [][]string
	for _, tr := range findElements(table, "tr") {
		var row []string
		for _, cell := range rowCells(tr) {
			row = append(row, strings.TrimSpace(nodeText(cell)))
		}
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out
}

func rowCells(tr *html.Node) []*html.Node {
	cells := findElements(tr, "td")
	if len(cells) == 0 {
		cells = findElements(tr, "th")
	}
	return cells
}

func findElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag && node != n {
			out = append(out, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
