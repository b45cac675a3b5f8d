package rowstore

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store used by tests and local development. A single
// mutex serializes all access, mirroring the serialization the real backing
// store provides for cell updates.
type Memory struct {
	mu     sync.Mutex
	sheets map[string][][]string
}

func NewMemory() *Memory {
	return &Memory{sheets: make(map[string][][]string)}
}

func (m *Memory) Append(_ context.Context, sheet string, cells []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row := make([]string, len(cells))
	copy(row, cells)
	m.sheets[sheet] = append(m.sheets[sheet], row)
	return len(m.sheets[sheet]), nil
}

func (m *Memory) Rows(_ context.Context, sheet string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw := m.sheets[sheet]
	rows := make([]Row, len(raw))
	for i, cells := range raw {
		c := make([]string, len(cells))
		copy(c, cells)
		rows[i] = Row{Index: i + 1, Cells: c}
	}
	return rows, nil
}

func (m *Memory) UpdateCell(_ context.Context, sheet string, rowIndex, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.sheets[sheet]
	if rowIndex < 1 || rowIndex > len(rows) {
		return fmt.Errorf("rowstore: sheet %q has no row %d", sheet, rowIndex)
	}
	row := rows[rowIndex-1]
	for len(row) <= col {
		row = append(row, "")
	}
	row[col] = value
	rows[rowIndex-1] = row
	return nil
}
