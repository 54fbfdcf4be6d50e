// Package storage is the SQLite implementation of records.Store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/records"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	path   string
	logger *log.Logger
}

var (
	_ records.Store  = (*SQLiteRepository)(nil)
	_ records.Pinger = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; Save replaces the table inside a transaction.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		path:   dbPath,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping sqlite: %v", core.ErrPersistence, err)
	}
	return nil
}

// Load returns all rows ordered by position. Rows that no longer parse are
// logged and skipped, like the CSV store does.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT position, date, amount, category, description FROM expenses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query expenses: %v", core.ErrPersistence, err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var pos int64
		var date, amount, category, desc string
		if err := rows.Scan(&pos, &date, &amount, &category, &desc); err != nil {
			return nil, fmt.Errorf("%w: scan expense: %v", core.ErrPersistence, err)
		}
		e, err := records.ParseRow(date, amount, category, desc)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping malformed expense row",
				log.FieldFile, r.path,
				log.FieldLine, pos,
				log.FieldRow, fmt.Sprintf("%s,%s,%s,%s", date, amount, category, desc),
				log.FieldError, err)
			continue
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate expenses: %v", core.ErrPersistence, err)
	}

	r.logger.InfoContext(ctx, "Expenses loaded", log.FieldFile, r.path, log.FieldLedgerSize, len(out))
	return out, nil
}

// Save replaces the table contents with recs in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, recs []core.Expense) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", core.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("%w: clear expenses: %v", core.ErrPersistence, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expenses (position, date, amount, category, description) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", core.ErrPersistence, err)
	}
	defer stmt.Close()

	for i, e := range recs {
		f := records.FormatRow(e)
		if _, err = stmt.ExecContext(ctx, i+1, f[0], f[1], f[2], f[3]); err != nil {
			return fmt.Errorf("%w: insert expense %d: %v", core.ErrPersistence, i+1, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", core.ErrPersistence, err)
	}

	r.logger.DebugContext(ctx, "Expenses saved", log.FieldFile, r.path, log.FieldLedgerSize, len(recs))
	return nil
}
