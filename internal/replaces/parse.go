package replaces

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"replaces-backend/internal/components/assert"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

const (
	report_parser_parse          = "parser.parse"
	report_parser_parse_header   = "parser.parse-header"
	report_parser_parse_section  = "parser.parse-section"
	report_parser_parse_row      = "parser.parse-row"
	report_parser_column_headers = "parser.column-headers"
)

// css classes of the first cell of a row in the replacements table
const (
	markerHeader  = "header"
	markerFooter  = "footer"
	markerSection = "section"
	markerContent = "content"
)

// ColumnHeaderLabel is the text of the first cell of the column header row
// that follows every section row.
const ColumnHeaderLabel = "№ пары"

var ErrMalformedDocument = errors.New("malformed replacements document")

var (
	tableMatcher = cascadia.MustCompile("table")
	rowMatcher   = cascadia.MustCompile("tr")
)

// group numbers may carry a parenthesized subgroup like `121(1)`, which is folded into `121`
var sectionSuffix = regexp.MustCompile(`\(.*\)`)

type Parser struct {
	tel telemetry.API
}

func NewParser(tel telemetry.API) Parser {
	assert.NotNil(tel)
	return Parser{tel: telemetry.NewScopedAPI("replaces", tel)}
}

// ParseGroupNumber parses the text of a section cell into a group number.
func ParseGroupNumber(text string) (int, error) {
	cleaned := strings.TrimSpace(sectionSuffix.ReplaceAllString(text, ""))
	return strconv.Atoi(cleaned)
}

type parseState struct {
	doc                    *Replaces
	headerSet              bool
	current                *GroupReplaces
	expectingColumnHeaders bool
}

// Parse parses a replacements page. Only a page without any table is an error,
// rows and sections that do not have the expected shape are reported, skipped
// and mark the document as degraded.
func (p Parser) Parse(page []byte) (*Replaces, error) {
	html, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		p.tel.ReportBroken(report_parser_parse, fmt.Errorf("parse html: %w", err))
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	table := html.FindMatcher(tableMatcher).First()
	if table.Length() == 0 {
		p.tel.ReportBroken(report_parser_parse, "no table found")
		return nil, fmt.Errorf("%w: no table found", ErrMalformedDocument)
	}

	state := &parseState{doc: NewReplaces("")}
	table.FindMatcher(rowMatcher).
		FilterFunction(func(_ int, row *goquery.Selection) bool {
			// rows of nested tables are not part of this table
			return row.Closest("table").IsSelection(table)
		}).
		Each(func(_ int, row *goquery.Selection) {
			p.parseRow(state, row)
		})

	if !state.headerSet {
		p.tel.ReportWarning(report_parser_parse_header, "document has no header row")
	}
	if state.doc.Degraded {
		p.tel.ReportWarning(report_parser_parse, "incorrect structure detected")
	}
	p.tel.ReportCount("parser.groups", int64(len(state.doc.order)))

	return state.doc, nil
}

func (p Parser) parseRow(state *parseState, row *goquery.Selection) {
	first := row.Children().First()
	if first.Length() == 0 {
		return
	}

	switch htmlutil.FirstClass(first) {
	case markerHeader:
		header := htmlutil.Text(first.Get(0))
		if state.headerSet {
			p.tel.ReportWarning(report_parser_parse_header, "met second header", header)
			return
		}
		p.tel.ReportDebug("header", header)
		state.doc.Header = header
		state.headerSet = true

	case markerFooter:
		p.tel.ReportDebug("footer", htmlutil.Text(first.Get(0)))

	case markerSection:
		text := htmlutil.Text(first.Get(0))
		group, err := ParseGroupNumber(text)
		if err != nil {
			state.doc.Degraded = true
			p.tel.ReportWarning(report_parser_parse_section, err, text)
			// rows of an unreadable section must not end up in the previous group
			state.current = nil
			state.expectingColumnHeaders = true
			return
		}
		state.current = &GroupReplaces{Group: group}
		state.doc.SetGroup(state.current)
		state.expectingColumnHeaders = true

	case markerContent:
		if state.expectingColumnHeaders {
			state.expectingColumnHeaders = false
			label := htmlutil.Text(first.Get(0))
			if label != ColumnHeaderLabel {
				p.tel.ReportWarning(report_parser_column_headers, "expected column headers", label)
			}
			return
		}

		cells := htmlutil.CellTexts(row)
		replace, err := ReplaceFromCells(cells)
		if err != nil {
			state.doc.Degraded = true
			p.tel.ReportWarning(report_parser_parse_row, err, cells)
			return
		}
		if state.current == nil {
			state.doc.Degraded = true
			p.tel.ReportWarning(report_parser_parse_row, "content row outside of any section", cells)
			return
		}
		state.current.Replaces = append(state.current.Replaces, replace)

	default:
		state.doc.Degraded = true
		p.tel.ReportWarning(report_parser_parse_row, "row has no known marker", htmlutil.FirstClass(first))
	}
}
