package rowstore

import (
	"context"
	"fmt"
)

// Schema fixes the column layout of one sheet. Columns are addressed by name
// in code and resolved to positions once, so a shifted column fails fast at
// startup instead of silently misreading data.
type Schema struct {
	Sheet   string
	Version int
	Columns []string

	index map[string]int
}

func NewSchema(sheet string, version int, columns ...string) Schema {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return Schema{Sheet: sheet, Version: version, Columns: columns, index: idx}
}

// Col resolves a column name to its zero-based position. Unknown names are a
// programming error, not a runtime condition.
func (s Schema) Col(name string) int {
	i, ok := s.index[name]
	if !ok {
		panic(fmt.Sprintf("rowstore: sheet %q has no column %q", s.Sheet, name))
	}
	return i
}

// Ensure validates the sheet's header row against the schema, creating the
// header when the sheet is empty. A mismatched header is a breaking schema
// change and returns an error.
func Ensure(ctx context.Context, store Store, s Schema) error {
	rows, err := store.Rows(ctx, s.Sheet)
	if err != nil {
		return fmt.Errorf("rowstore: reading sheet %q: %w", s.Sheet, err)
	}

	if len(rows) == 0 {
		if _, err := store.Append(ctx, s.Sheet, s.Columns); err != nil {
			return fmt.Errorf("rowstore: writing header for sheet %q: %w", s.Sheet, err)
		}
		return nil
	}

	header := rows[0]
	if len(header.Cells) < len(s.Columns) {
		return fmt.Errorf("rowstore: sheet %q header has %d columns, schema v%d expects %d",
			s.Sheet, len(header.Cells), s.Version, len(s.Columns))
	}
	for i, want := range s.Columns {
		if header.Cells[i] != want {
			return fmt.Errorf("rowstore: sheet %q column %d is %q, schema v%d expects %q",
				s.Sheet, i, header.Cells[i], s.Version, want)
		}
	}
	return nil
}
