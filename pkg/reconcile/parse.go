// Package reconcile merges externally sourced record sets into an existing
// corpus. Every function here is pure and stateless: parsing, column mapping,
// duplicate detection, and merging are composed by a caller-held session (see
// pkg/session), which owns all transient state.
package reconcile

import (
	"encoding/csv"
	"strings"

	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/records"
)

// ParseInput parses pasted CSV or TSV text into headers and records. The
// delimiter is auto-detected from the first line: a tab anywhere in it means
// TSV, otherwise comma. Rows shorter than the header are padded with empty
// values; extra cells beyond the header are dropped. Returns empty results
// for blank input.
func ParseInput(content string) ([]string, []*records.Record, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil, nil
	}

	firstLine, _, _ := strings.Cut(content, "\n")
	delimiter := ','
	if strings.Contains(firstLine, "\t") {
		delimiter = '\t'
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.WrapParse("csv", "pasted input", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	recs := make([]*records.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		r := records.New()
		for i, h := range headers {
			if i < len(row) {
				r.Set(h, row[i])
			} else {
				r.Set(h, "")
			}
		}
		recs = append(recs, r)
	}
	return headers, recs, nil
}
