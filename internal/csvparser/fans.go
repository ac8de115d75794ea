// Package csvparser reads fan lists from uploaded CSVs for import into
// the fan directory.
package csvparser

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// FanRow is one fan extracted from a CSV. Email is taken from the
// "email" column (case-insensitive); name and tracking preference
// columns are optional and default to consenting.
type FanRow struct {
	Email              string
	Name               string
	AllowOpenTracking  bool
	AllowClickTracking bool
}

// ParseFanRows parses a fan CSV. The header row must contain an "email"
// column; "name", "allow_open_tracking" and "allow_click_tracking" are
// recognized when present. maxRows caps how many data rows are read.
func ParseFanRows(r io.Reader, maxRows int) ([]FanRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, errors.New("csv header row is empty")
	}

	emailIdx, nameIdx, openIdx, clickIdx := -1, -1, -1, -1
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "email":
			emailIdx = i
		case "name":
			nameIdx = i
		case "allow_open_tracking":
			openIdx = i
		case "allow_click_tracking":
			clickIdx = i
		}
	}
	if emailIdx == -1 {
		return nil, errors.New("csv must contain an email column")
	}

	if maxRows <= 0 {
		maxRows = 10000
	}

	rows := make([]FanRow, 0)
	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(headers) {
			// skip malformed row
			continue
		}

		email := strings.TrimSpace(record[emailIdx])
		if email == "" || !strings.Contains(email, "@") {
			continue
		}

		row := FanRow{
			Email:              strings.ToLower(email),
			AllowOpenTracking:  true,
			AllowClickTracking: true,
		}
		if nameIdx >= 0 {
			row.Name = strings.TrimSpace(record[nameIdx])
		}
		if openIdx >= 0 {
			row.AllowOpenTracking = truthy(record[openIdx])
		}
		if clickIdx >= 0 {
			row.AllowClickTracking = truthy(record[clickIdx])
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.New("csv must contain at least one data row")
	}
	return rows, nil
}

// truthy accepts the usual spreadsheet spellings of a boolean. An empty
// cell counts as consent not withdrawn.
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "0", "no", "n", "f":
		return false
	}
	return true
}
