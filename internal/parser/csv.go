package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// CSVParser handles CSV files. The header row is rendered as a bold caption
// and every record as one body line, paginated in fixed-size groups.
type CSVParser struct{}

const (
	csvFamily      = "csv"
	csvHeaderPt    = 12
	csvRowsPerPage = 50
)

func (p *CSVParser) Parse(r io.Reader, filename string) ([]doctree.Block, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := doctree.FontSpan{Size: doctree.SizeFromPoints(csvHeaderPt), Family: csvFamily, Flags: doctree.FlagBold}
	body := doctree.FontSpan{Size: doctree.SizeFromPoints(bodyPt), Family: csvFamily}

	var blocks []doctree.Block
	add := func(record []string, span doctree.FontSpan, page int) {
		text := collapseSpace(strings.Join(record, ", "))
		if strings.Trim(text, ", ") == "" {
			return
		}
		blocks = append(blocks, doctree.Block{Text: text, Fonts: []doctree.FontSpan{span}, Page: page})
	}

	add(records[0], header, 1)
	for i, record := range records[1:] {
		add(record, body, i/csvRowsPerPage+1)
	}
	return blocks, nil
}
