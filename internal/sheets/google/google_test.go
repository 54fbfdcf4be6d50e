package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"expensetracker/internal/core"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
)

// fakeSheets serves the two Values endpoints the client uses.
type fakeSheets struct {
	mu       sync.Mutex
	refs     [][]any
	appended [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		json.NewEncoder(w).Encode(map[string]any{"range": "Expenses!E:E", "values": f.refs})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, body.Values...)
		for _, row := range body.Values {
			f.refs = append(f.refs, []any{row[4]})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "Expenses!A2:E2"},
		})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), "sheet-id", "Expenses", nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func expense() core.Expense {
	return core.Expense{Date: core.NewDate(2024, 1, 15), Amount: decimal.RequireFromString("42.50"), Category: core.Food, Description: "Lunch"}
}

func TestAppendWritesRowWithRef(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	row, err := c.Append(context.Background(), "msg-1", expense())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if row != "Expenses!A2:E2" {
		t.Fatalf("row = %q", row)
	}
	if len(fake.appended) != 1 {
		t.Fatalf("appended = %v", fake.appended)
	}
	got := fake.appended[0]
	if got[0] != "2024-01-15" || got[1] != "42.5" || got[2] != "food" || got[3] != "Lunch" || got[4] != "msg-1" {
		t.Fatalf("row values = %v", got)
	}
}

func TestAppendSkipsKnownRef(t *testing.T) {
	fake := &fakeSheets{refs: [][]any{{"ref"}, {"msg-1"}}}
	c := newTestClient(t, fake)

	row, err := c.Append(context.Background(), "msg-1", expense())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if row != "Expenses!A2:E2" || len(fake.appended) != 0 {
		t.Fatalf("duplicate written: row=%q appended=%v", row, fake.appended)
	}
}

func TestAppendValidatesExpense(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	bad := expense()
	bad.Category = "spaceships"
	_, err := c.Append(context.Background(), "x", bad)
	if !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := c.Append(context.Background(), "x", expense()); err == nil {
		t.Fatal("expected error for uninitialized service")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := NewFromEnv(context.Background(), "", "Expenses", nil); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewFromEnv(context.Background(), "id", "Expenses", nil); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", filepath.Join(t.TempDir(), "missing.json"))
	if _, err := NewFromEnv(context.Background(), "id", "Expenses", nil); err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentialsFromEnvPrefersInlineJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"from":"env"}`)
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", file)

	got, err := credentialsFromEnv()
	if err != nil || string(got) != `{"from":"env"}` {
		t.Fatalf("got %s, %v", got, err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	got, err = credentialsFromEnv()
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("got %s, %v", got, err)
	}
}
