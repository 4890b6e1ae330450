package acsqe

import (
	"reflect"
	"testing"
)

func validCols(names ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func TestBuildSelectLiteralScenario(t *testing.T) {
	q := SelectQuery{
		TableName: "users",
		Filters: []Filter{
			{Column: "age", Op: OpGte, Value: int64(18)},
			{Column: "status", Op: OpEq, Value: "active"},
		},
		Sort:         []Sort{{Column: "name", Direction: SortAsc}},
		PageSize:     20,
		Offset:       40,
		Columns:      []string{"id", "name", "age"},
		ValidColumns: validCols("id", "name", "age", "status", "email"),
	}

	built, err := BuildSelect(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSQL := `SELECT "id", "name", "age", rowid AS _rowid FROM "users" WHERE "age" >= ? AND "status" = ? ORDER BY "name" ASC LIMIT ? OFFSET ?`
	if built.SQL != wantSQL {
		t.Fatalf("SQL = %q, want %q", built.SQL, wantSQL)
	}

	wantParams := []any{int64(18), "active", 21, 40}
	if !reflect.DeepEqual(built.Params, wantParams) {
		t.Fatalf("params = %v, want %v", built.Params, wantParams)
	}
}

func TestBuildSelectDefaultsToStar(t *testing.T) {
	built, err := BuildSelect(SelectQuery{TableName: "users", PageSize: 10, ValidColumns: validCols()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `SELECT *, rowid AS _rowid FROM "users" LIMIT ? OFFSET ?`
	if built.SQL != want {
		t.Fatalf("SQL = %q, want %q", built.SQL, want)
	}
	if built.Params[0] != 11 {
		t.Fatalf("expected LIMIT param pageSize+1=11, got %v", built.Params[0])
	}
}

func TestBuildSelectInvalidTableName(t *testing.T) {
	_, err := BuildSelect(SelectQuery{TableName: "bad name!", PageSize: 10, ValidColumns: validCols()})
	assertErrorKind(t, err, KindInvalidIdentifier)
}

func TestBuildSelectUnknownColumn(t *testing.T) {
	_, err := BuildSelect(SelectQuery{TableName: "users", PageSize: 10, Columns: []string{"ghost"}, ValidColumns: validCols("id")})
	assertErrorKind(t, err, KindUnknownColumn)
}

func TestBuildSelectRowIdentityAlwaysAllowed(t *testing.T) {
	_, err := BuildSelect(SelectQuery{
		TableName:    "users",
		PageSize:     10,
		Filters:      []Filter{{Column: "_rowid_", Op: OpEq, Value: int64(5)}},
		ValidColumns: validCols(),
	})
	if err != nil {
		t.Fatalf("unexpected error for _rowid_ filter: %v", err)
	}
}

func TestBuildSelectPlaceholderCountMatchesParams(t *testing.T) {
	built, err := BuildSelect(SelectQuery{
		TableName: "users",
		Filters: []Filter{
			{Column: "status", Op: OpIn, Value: []string{"active", "pending"}},
		},
		PageSize:     5,
		ValidColumns: validCols("status"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count := 0
	for _, c := range built.SQL {
		if c == '?' {
			count++
		}
	}
	if count != len(built.Params) {
		t.Fatalf("placeholder count %d != param count %d", count, len(built.Params))
	}
}

func TestBuildSelectInEmptyListRejected(t *testing.T) {
	_, err := BuildSelect(SelectQuery{
		TableName:    "users",
		Filters:      []Filter{{Column: "status", Op: OpIn, Value: []string{}}},
		PageSize:     5,
		ValidColumns: validCols("status"),
	})
	assertErrorKind(t, err, KindInvalidFilter)
}

func TestBuildUpdateGuards(t *testing.T) {
	_, err := BuildUpdate(UpdateQuery{TableName: "users", Set: nil, Where: []Filter{{Column: "id", Op: OpEq, Value: int64(1)}}, ValidColumns: validCols("id")})
	assertErrorKind(t, err, KindGuardViolation)

	_, err = BuildUpdate(UpdateQuery{TableName: "users", Set: map[string]any{"name": "x"}, Where: nil, ValidColumns: validCols("name")})
	assertErrorKind(t, err, KindGuardViolation)
}

func TestBuildUpdateEmitsReturning(t *testing.T) {
	built, err := BuildUpdate(UpdateQuery{
		TableName:    "users",
		Set:          map[string]any{"name": "x"},
		Where:        []Filter{{Column: "id", Op: OpEq, Value: int64(1)}},
		ValidColumns: validCols("id", "name"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `UPDATE "users" SET "name" = ? WHERE "id" = ? RETURNING *, rowid AS _rowid`
	if built.SQL != want {
		t.Fatalf("SQL = %q, want %q", built.SQL, want)
	}
}

func TestBuildDeleteRequiresRowIDs(t *testing.T) {
	_, err := BuildDelete(DeleteQuery{TableName: "users", RowIDs: nil})
	assertErrorKind(t, err, KindGuardViolation)
}

func TestBuildDeleteSQL(t *testing.T) {
	built, err := BuildDelete(DeleteQuery{TableName: "users", RowIDs: []int64{1, 2, 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `DELETE FROM "users" WHERE rowid IN (?, ?, ?)`
	if built.SQL != want {
		t.Fatalf("SQL = %q, want %q", built.SQL, want)
	}
	if len(built.Params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(built.Params))
	}
}

func TestBuildInsertRequiresUniformRows(t *testing.T) {
	_, _, err := BuildInsert(InsertQuery{
		TableName: "users",
		Rows: []map[string]any{
			{"name": "a", "age": 1},
			{"name": "b"},
		},
		ValidColumns: validCols("name", "age"),
	})
	if err == nil {
		t.Fatalf("expected error for mismatched row key sets")
	}
}

func TestBuildInsertSQL(t *testing.T) {
	stmt, params, err := BuildInsert(InsertQuery{
		TableName:    "users",
		Rows:         []map[string]any{{"name": "a", "age": int64(1)}},
		ValidColumns: validCols("name", "age"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `INSERT INTO "users" ("age", "name") VALUES (?, ?)`
	if stmt.SQL != want {
		t.Fatalf("SQL = %q, want %q", stmt.SQL, want)
	}
	if len(params) != 1 || len(params[0]) != 2 {
		t.Fatalf("unexpected params shape: %v", params)
	}
}

func assertErrorKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %v, got nil", want)
	}
	acsqeErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if acsqeErr.Kind != want {
		t.Fatalf("expected kind %v, got %v", want, acsqeErr.Kind)
	}
}
