// Package csvfile stores the expense ledger as a comma-separated text file.
//
// Layout:
//
//	date,amount,category,description
//	2024-01-15,42.5,food,Lunch with client
//
// The whole file is rewritten on every Save through a temp file and rename.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/records"
)

// Store implements records.Store on a single CSV file.
type Store struct {
	path   string
	logger *log.Logger
}

var _ records.Store = (*Store)(nil)

func New(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{path: path, logger: logger.WithComponent(log.ComponentStorage)}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks that the directory holding the file exists.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", core.ErrPersistence, filepath.Dir(s.path))
	}
	return nil
}

// Load reads every parseable row. A missing file yields an empty ledger.
// Rows that cannot be parsed are logged and skipped.
func (s *Store) Load(ctx context.Context) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.InfoContext(ctx, "No expense file yet, starting empty", log.FieldFile, s.path)
		return []core.Expense{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrPersistence, s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []core.Expense{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %v", core.ErrPersistence, s.path, err)
	}
	cols := columnIndex(header)
	for _, name := range records.Columns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s: header %q has no %q column",
				core.ErrPersistence, s.path, strings.Join(header, ","), name)
		}
	}

	out := []core.Expense{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			s.skip(ctx, perr.Line, row, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", core.ErrPersistence, s.path, err)
		}

		line := 0
		if len(row) > 0 {
			line, _ = r.FieldPos(0)
		}
		e, err := parseRecord(cols, row)
		if err != nil {
			s.skip(ctx, line, row, err)
			continue
		}
		out = append(out, e)
	}

	s.logger.InfoContext(ctx, "Expenses loaded", log.FieldFile, s.path, log.FieldLedgerSize, len(out))
	return out, nil
}

// Save overwrites the file with a header followed by one row per record.
func (s *Store) Save(ctx context.Context, recs []core.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := make([][]string, 0, len(recs)+1)
	rows = append(rows, records.Columns)
	for _, e := range recs {
		rows = append(rows, records.FormatRow(e))
	}
	if err := atomicWriteCSV(s.path, rows); err != nil {
		return fmt.Errorf("%w: write %s: %v", core.ErrPersistence, s.path, err)
	}
	s.logger.DebugContext(ctx, "Expenses saved", log.FieldFile, s.path, log.FieldLedgerSize, len(recs))
	return nil
}

func (s *Store) skip(ctx context.Context, line int, row []string, err error) {
	s.logger.WarnContext(ctx, "Skipping malformed expense row",
		log.FieldFile, s.path,
		log.FieldLine, line,
		log.FieldRow, strings.Join(row, ","),
		log.FieldError, err)
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func parseRecord(cols map[string]int, row []string) (core.Expense, error) {
	fields := make([]string, len(records.Columns))
	for i, name := range records.Columns {
		j := cols[name]
		if j >= len(row) {
			return core.Expense{}, fmt.Errorf("%w: missing field %q", core.ErrMalformedRecord, name)
		}
		fields[i] = row[j]
	}
	return records.ParseRow(fields[0], fields[1], fields[2], fields[3])
}

func atomicWriteCSV(path string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "tmp-*.csv")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
