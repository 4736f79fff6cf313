package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Julian1897/smart-data-qa/internal/model/dataset"
	"github.com/Julian1897/smart-data-qa/internal/model/qa"
	"github.com/Julian1897/smart-data-qa/internal/service/engine"
)

func loadedStore(t *testing.T) (*engine.Store, string) {
	t.Helper()

	table := &dataset.Table{
		SourceName: "people.csv",
		Columns: []dataset.Column{
			{Name: "dept", Type: dataset.Text},
			{Name: "salary", Type: dataset.Number},
		},
		Rows: [][]string{
			{"A", "100"},
			{"B", "300"},
			{"A", "200"},
		},
	}

	store := engine.NewStore()
	if err := store.Load(context.Background(), "s1", table); err != nil {
		t.Fatalf("Load err: %v", err)
	}
	t.Cleanup(func() { store.Drop("s1") })
	return store, "s1"
}

func TestExecuteCount(t *testing.T) {
	store, sessionID := loadedStore(t)

	result, err := store.Execute(context.Background(), sessionID, "SELECT COUNT(*) AS total FROM data_table")
	if err != nil {
		t.Fatalf("Execute err: %v", err)
	}
	if len(result.Rows) != 1 || len(result.Rows[0]) != 1 {
		t.Fatalf("unexpected result shape: %+v", result)
	}
	if count, ok := result.Rows[0][0].(int64); !ok || count != 3 {
		t.Fatalf("unexpected count value: %v", result.Rows[0][0])
	}
}

func TestExecuteAggregate(t *testing.T) {
	store, sessionID := loadedStore(t)

	result, err := store.Execute(context.Background(), sessionID, "SELECT AVG(salary) FROM data_table")
	if err != nil {
		t.Fatalf("Execute err: %v", err)
	}
	if avg, ok := result.Rows[0][0].(float64); !ok || avg != 200 {
		t.Fatalf("unexpected average: %v", result.Rows[0][0])
	}
}

func TestExecuteGroupBy(t *testing.T) {
	store, sessionID := loadedStore(t)

	result, err := store.Execute(context.Background(), sessionID,
		"SELECT dept, COUNT(*) AS c FROM data_table GROUP BY dept ORDER BY c DESC")
	if err != nil {
		t.Fatalf("Execute err: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Rows))
	}
	if dept, _ := result.Rows[0][0].(string); dept != "A" {
		t.Fatalf("expected dept A first, got %v", result.Rows[0][0])
	}
}

func TestExecuteRejectsWrites(t *testing.T) {
	store, sessionID := loadedStore(t)

	_, err := store.Execute(context.Background(), sessionID, "DELETE FROM data_table")
	var execErr *engine.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError for write statement, got %v", err)
	}
}

func TestExecuteRejectsCompoundWrites(t *testing.T) {
	store, sessionID := loadedStore(t)
	ctx := context.Background()

	// WITH 前缀合法，但语句主体仍是写操作，必须被拒绝。
	_, err := store.Execute(ctx, sessionID,
		"WITH x AS (SELECT 1) INSERT INTO data_table SELECT 'C', 999 FROM x")
	var execErr *engine.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError for WITH-prefixed write, got %v", err)
	}

	result, err := store.Execute(ctx, sessionID, "SELECT COUNT(*) FROM data_table")
	if err != nil {
		t.Fatalf("Execute err: %v", err)
	}
	if count, _ := result.Rows[0][0].(int64); count != 3 {
		t.Fatalf("dataset mutated, got %d rows", count)
	}
}

func TestExecuteMalformedQuery(t *testing.T) {
	store, sessionID := loadedStore(t)

	_, err := store.Execute(context.Background(), sessionID, "SELECT nope FROM data_table")
	var execErr *engine.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError for unknown column, got %v", err)
	}
}

func TestExecuteUnknownSession(t *testing.T) {
	store := engine.NewStore()

	_, err := store.Execute(context.Background(), "missing", "SELECT 1")
	if !errors.Is(err, qa.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDropInvalidatesSession(t *testing.T) {
	store, sessionID := loadedStore(t)
	store.Drop(sessionID)

	if _, err := store.Execute(context.Background(), sessionID, "SELECT 1"); !errors.Is(err, qa.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after drop, got %v", err)
	}
}
