// Package ingest loads delimited text files into tables. The schema is
// fixed from the header row; column types are coerced by scanning values
// (int, then float, then date, falling back to string).
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	qerrors "github.com/arkilian/quarry/internal/errors"
	"github.com/arkilian/quarry/pkg/types"
)

// ReadCSV parses CSV content with a header row into a table.
func ReadCSV(r io.Reader) (*types.Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, qerrors.NewValidationError(qerrors.CodeInvalidCSV, "malformed CSV: "+err.Error())
	}
	if len(records) == 0 {
		return nil, qerrors.NewValidationError(qerrors.CodeInvalidCSV, "missing header row")
	}

	header := records[0]
	data := records[1:]

	schema := inferSchema(header, data)

	rows := make([]types.Row, len(data))
	for i, record := range data {
		row := make(types.Row, len(header))
		for j, col := range schema.Columns {
			// An empty cell is a missing value for every column type,
			// including string.
			if record[j] == "" {
				row[col.Name] = nil
				continue
			}
			v, err := types.Parse(record[j], col.Type)
			if err != nil {
				return nil, qerrors.NewValidationError(qerrors.CodeInvalidCSV, err.Error())
			}
			row[col.Name] = v
		}
		rows[i] = row
	}

	return types.NewTable(schema, rows)
}

// LoadFile reads a CSV file from disk into a table.
func LoadFile(path string) (*types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, qerrors.NewIOError("failed to open CSV file "+path, err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// inferSchema picks the narrowest type every non-empty value of a column
// satisfies. Columns with no values default to string.
func inferSchema(header []string, data [][]string) types.Schema {
	cols := make([]types.ColumnDef, len(header))
	for j, name := range header {
		cols[j] = types.ColumnDef{Name: name, Type: inferColumnType(data, j)}
	}
	return types.Schema{Columns: cols}
}

func inferColumnType(data [][]string, col int) types.ColumnType {
	isInt, isFloat, isDate := true, true, true
	seen := false

	for _, record := range data {
		if col >= len(record) || record[col] == "" {
			continue
		}
		seen = true
		s := record[col]

		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				isFloat = false
			}
		}
		if isDate {
			if _, err := time.Parse(types.DateFormat, s); err != nil {
				isDate = false
			}
		}
		if !isInt && !isFloat && !isDate {
			break
		}
	}

	switch {
	case !seen:
		return types.TypeString
	case isInt:
		return types.TypeInt
	case isFloat:
		return types.TypeFloat
	case isDate:
		return types.TypeDate
	default:
		return types.TypeString
	}
}
