package rowstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores sheets as one generic table keyed by (sheet, row_index),
// with cells as a text array. The table layout is deliberately identical to
// the row/cell contract: entities never leak into SQL, only schemas do.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgresPool(databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Init creates the backing table.
func (p *Postgres) Init(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sheet_rows (
			sheet TEXT NOT NULL,
			row_index INT NOT NULL,
			cells TEXT[] NOT NULL,
			PRIMARY KEY (sheet, row_index)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sheet_rows table: %w", err)
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, sheet string, cells []string) (int, error) {
	var index int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO sheet_rows (sheet, row_index, cells)
		SELECT $1, COALESCE(MAX(row_index), 0) + 1, $2::TEXT[]
		FROM sheet_rows WHERE sheet = $1
		RETURNING row_index
	`, sheet, cells).Scan(&index)
	if err != nil {
		return 0, fmt.Errorf("failed to append to sheet %q: %w", sheet, err)
	}
	return index, nil
}

func (p *Postgres) Rows(ctx context.Context, sheet string) ([]Row, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT row_index, cells FROM sheet_rows WHERE sheet = $1 ORDER BY row_index
	`, sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Index, &r.Cells); err != nil {
			return nil, fmt.Errorf("failed to scan row of sheet %q: %w", sheet, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sheet %q: %w", sheet, err)
	}
	return out, nil
}

func (p *Postgres) UpdateCell(ctx context.Context, sheet string, rowIndex, col int, value string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin update of sheet %q: %w", sheet, err)
	}
	defer tx.Rollback(ctx)

	var cells []string
	err = tx.QueryRow(ctx, `
		SELECT cells FROM sheet_rows WHERE sheet = $1 AND row_index = $2 FOR UPDATE
	`, sheet, rowIndex).Scan(&cells)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("sheet %q has no row %d", sheet, rowIndex)
	}
	if err != nil {
		return fmt.Errorf("failed to read row %d of sheet %q: %w", rowIndex, sheet, err)
	}

	for len(cells) <= col {
		cells = append(cells, "")
	}
	cells[col] = value

	if _, err := tx.Exec(ctx, `
		UPDATE sheet_rows SET cells = $3 WHERE sheet = $1 AND row_index = $2
	`, sheet, rowIndex, cells); err != nil {
		return fmt.Errorf("failed to update row %d of sheet %q: %w", rowIndex, sheet, err)
	}

	return tx.Commit(ctx)
}
