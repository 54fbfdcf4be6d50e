package csvfile

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"expensetracker/internal/core"
	"expensetracker/internal/log"

	"github.com/shopspring/decimal"
)

func sample() []core.Expense {
	return []core.Expense{
		{Date: core.NewDate(2024, 1, 15), Amount: decimal.RequireFromString("42.5"), Category: core.Food, Description: "Lunch, with client"},
		{Date: core.NewDate(2024, 2, 1), Amount: decimal.RequireFromString("0.1"), Category: core.Books, Description: `Say "hi"`},
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope.csv"), nil)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "expenses.csv")
	s := New(path, nil)
	ctx := context.Background()

	if err := s.Save(ctx, sample()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := sample()
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Date != want[i].Date || !got[i].Amount.Equal(want[i].Amount) ||
			got[i].Category != want[i].Category || got[i].Description != want[i].Description {
			t.Fatalf("record %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestSaveWritesHeaderAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	s := New(path, nil)
	ctx := context.Background()

	if err := s.Save(ctx, sample()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, sample()[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "date,amount,category,description\n2024-01-15,42.5,food,\"Lunch, with client\"\n"
	if string(raw) != want {
		t.Fatalf("file content:\n%q\nwant:\n%q", raw, want)
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "tmp-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	content := strings.Join([]string{
		"date,amount,category,description",
		"2024-01-15,42.50,food,Lunch",
		"2024-01-16,abc,food,Bad amount",
		"not-a-date,10,food,Bad date",
		"2024-01-17,10,spaceships,Bad category",
		"2024-01-18,-3,food,Negative",
		"2024-01-19,5,travel",
		"2024-01-20,7,Travel,Bus",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf})
	got, err := New(path, logger).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid records, got %d: %+v", len(got), got)
	}
	if got[1].Category != core.Travel {
		t.Fatalf("category not normalized: %q", got[1].Category)
	}
	if n := strings.Count(buf.String(), "Skipping malformed expense row"); n != 5 {
		t.Fatalf("expected 5 skip warnings, got %d:\n%s", n, buf.String())
	}
}

func TestLoadSkipsUnparsableCSVRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	content := strings.Join([]string{
		"date,amount,category,description",
		"2024-01-15,42.50,food,Lunch",
		`2024"01-16,5,food,Bad`,
		"2024-01-17,7,travel,Bus",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf})
	got, err := New(path, logger).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Description != "Lunch" || got[1].Description != "Bus" {
		t.Fatalf("expected the rows around the broken one, got %+v", got)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || strings.Count(out, "Skipping malformed expense row") != 1 {
		t.Fatalf("expected one skip warning, got:\n%s", out)
	}
}

func TestLoadIgnoresHeaderBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	content := "\ufeffdate,amount,category,description\n2024-03-02,12.30,travel,Taxi\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := New(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Description != "Taxi" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestLoadMatchesHeaderByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	content := "description,category,amount,date\nTaxi,travel,12.30,2024-03-02\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := New(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Description != "Taxi" || got[0].Date != core.NewDate(2024, 3, 2) {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestLoadHeaderMissingColumnFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	if err := os.WriteFile(path, []byte("date,amount,category\n2024-03-02,12,travel\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New(path, nil).Load(context.Background())
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(filepath.Join(blocker, "expenses.csv"), nil)
	err := s.Save(context.Background(), sample())
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}
