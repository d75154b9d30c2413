package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/t262/internal/engine"
	"github.com/roach88/t262/internal/verdict"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)

// createTestReport builds a report with one result of each reported status.
func createTestReport(id string, started time.Time) *engine.Report {
	return &engine.Report{
		ID:          id,
		Interpreter: "./es --strict",
		Root:        "../test262/test/suite",
		StartedAt:   started,
		FinishedAt:  started.Add(3 * time.Second),
		Results: []engine.Result{
			{Path: "suite/ch08/b.js", Status: verdict.StatusPass, Duration: 10 * time.Millisecond},
			{Path: "suite/ch07/a.js", Negative: true, Status: verdict.StatusFail, Reason: verdict.ReasonNoError, Duration: 20 * time.Millisecond},
			{Path: "suite/ch09/c.js", Status: verdict.StatusFail, Reason: verdict.ReasonUnexpectedOutput, Output: "oops\n", Duration: 5 * time.Millisecond},
			{Path: "suite/ch07/7.8/7.8.1/S7.8.1_A1_T2.js", Status: verdict.StatusSkipped, Reason: verdict.ReasonNotFixed, Note: "RegExp"},
		},
		Passed:  1,
		Failed:  2,
		Skipped: 1,
		Ignored: 4,
		Total:   4,
	}
}

// getTableColumns returns column names for a table.
func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("table_info(%s) failed: %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			t.Fatalf("scan table_info: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

// getTableIndexes returns index names for a table.
func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("index query failed: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index name: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
