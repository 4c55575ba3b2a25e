package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// RosterRow maps raw column headers to trimmed cell values for one sheet row.
type RosterRow map[string]string

// RosterSheet is the parsed tabular payload of one upload. Headers keeps the
// original column order so label matching stays deterministic.
type RosterSheet struct {
	Headers []string
	Rows    []RosterRow
}

// parseRosterSheet sniffs the payload type and extracts header-keyed rows.
// Excel workbooks are read from their first sheet; anything text-like is
// treated as UTF-8 CSV.
func parseRosterSheet(payload []byte) (RosterSheet, error) {
	kind := mimetype.Detect(payload)

	switch {
	case kind.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return parseExcelSheet(payload)
	case kind.Is("text/csv"), kind.Is("text/plain"):
		return parseCSVSheet(payload)
	default:
		return RosterSheet{}, fmt.Errorf("unsupported sheet format %q", kind.String())
	}
}

func parseExcelSheet(payload []byte) (RosterSheet, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return RosterSheet{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return RosterSheet{}, fmt.Errorf("workbook contains no sheets")
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return RosterSheet{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return rowsToSheet(rows), nil
}

func parseCSVSheet(payload []byte) (RosterSheet, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return RosterSheet{}, fmt.Errorf("failed to read csv: %w", err)
		}
		rows = append(rows, record)
	}

	return rowsToSheet(rows), nil
}

func rowsToSheet(rows [][]string) RosterSheet {
	if len(rows) == 0 {
		return RosterSheet{}
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	records := make([]RosterRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		record := make(RosterRow, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			record[header] = value
		}
		records = append(records, record)
	}

	return RosterSheet{Headers: headers, Rows: records}
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// resolveColumns matches each expected semantic label against the sheet's
// headers by substring, since the upstream spreadsheets vary their exact
// header text. Returns label → actual header plus the labels with no
// matching column.
func (s RosterSheet) resolveColumns(labels []string) (map[string]string, []string) {
	resolved := make(map[string]string, len(labels))
	var missing []string

	for _, label := range labels {
		found := ""
		for _, header := range s.Headers {
			if header != "" && strings.Contains(header, label) {
				found = header
				break
			}
		}
		if found == "" {
			missing = append(missing, label)
			continue
		}
		resolved[label] = found
	}

	return resolved, missing
}
