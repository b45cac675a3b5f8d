package rowstore

import (
	"context"
	"strconv"
)

// Row is one row of a sheet. Index is the 1-based append-order position and
// includes the header row, so data rows start at index 2. The index is stable
// for the lifetime of the row and doubles as the row's identifier.
type Row struct {
	Index int
	Cells []string
}

// Store is the contract with the backing row-oriented table store. Column
// positions are a fixed contract per sheet (see Schema); cells are plain
// strings. Implementations are expected to serialize concurrent updates to
// the same cell.
type Store interface {
	// Append adds a row at the end of the sheet and returns its index.
	Append(ctx context.Context, sheet string, cells []string) (int, error)

	// Rows returns all rows of the sheet in append order, header included.
	Rows(ctx context.Context, sheet string) ([]Row, error)

	// UpdateCell overwrites a single cell. col is zero-based.
	UpdateCell(ctx context.Context, sheet string, rowIndex, col int, value string) error
}

// Cell returns the cell at col, or "" when the row is shorter than expected.
// Sheets edited by hand routinely have ragged rows.
func (r Row) Cell(col int) string {
	if col < 0 || col >= len(r.Cells) {
		return ""
	}
	return r.Cells[col]
}

// IntCell parses the cell as an integer, returning 0 for empty or malformed
// values.
func (r Row) IntCell(col int) int {
	n, err := strconv.Atoi(r.Cell(col))
	if err != nil {
		return 0
	}
	return n
}

// FindLast scans the sheet newest-first and returns the first data row
// matching pred. The reverse order gives last-write-wins semantics: when a
// user somehow has several candidate rows, only the most recent is acted on.
func FindLast(ctx context.Context, s Store, sheet string, pred func(Row) bool) (Row, bool, error) {
	rows, err := s.Rows(ctx, sheet)
	if err != nil {
		return Row{}, false, err
	}
	for i := len(rows) - 1; i >= 1; i-- { // rows[0] is the header
		if pred(rows[i]) {
			return rows[i], true, nil
		}
	}
	return Row{}, false, nil
}

// FindAll returns all data rows matching pred in append order.
func FindAll(ctx context.Context, s Store, sheet string, pred func(Row) bool) ([]Row, error) {
	rows, err := s.Rows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	var out []Row
	for i := 1; i < len(rows); i++ {
		if pred(rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

// RowAt returns the data row at the given index.
func RowAt(ctx context.Context, s Store, sheet string, rowIndex int) (Row, bool, error) {
	rows, err := s.Rows(ctx, sheet)
	if err != nil {
		return Row{}, false, err
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Index == rowIndex {
			return rows[i], true, nil
		}
	}
	return Row{}, false, nil
}
