package reflector

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/acsqe/acsqe"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReflectExcludesSystemTables(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `CREATE TABLE foo (_id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)`); err != nil {
		t.Fatalf("creating table: %v", err)
	}

	schema, err := Reflect(ctx, db)
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}

	if _, ok := schema["sqlite_sequence"]; ok {
		t.Fatalf("sqlite_sequence should never appear in the canonical schema")
	}

	table, ok := schema["foo"]
	if !ok {
		t.Fatalf("expected table foo in schema")
	}

	idCol, ok := table["_id"]
	if !ok {
		t.Fatalf("expected column _id")
	}
	if !idCol.AutoIncrement {
		t.Fatalf("expected _id to be detected as autoincrement")
	}
	if idCol.Order != 0 {
		t.Fatalf("expected _id at ordinal 0, got %d", idCol.Order)
	}

	nameCol, ok := table["name"]
	if !ok {
		t.Fatalf("expected column name")
	}
	if !nameCol.NotNull {
		t.Fatalf("expected name to be NOT NULL")
	}
	if nameCol.Order != 1 {
		t.Fatalf("expected name at ordinal 1, got %d", nameCol.Order)
	}
}

func TestReflectForeignKeys(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	statements := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT)`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER REFERENCES users(id))`,
	}
	for _, s := range statements {
		if _, err := db.ExecContext(ctx, s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}

	schema, err := Reflect(ctx, db)
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}

	col := schema["orders"]["user_id"]
	if col.ForeignKey == nil {
		t.Fatalf("expected foreign key on orders.user_id")
	}
	if col.ForeignKey.Table != "users" || col.ForeignKey.Column != "id" {
		t.Fatalf("unexpected foreign key: %+v", col.ForeignKey)
	}
}

func TestReflectEmptyTypeDefaultsToText(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE t (x)`); err != nil {
		t.Fatalf("creating table: %v", err)
	}

	schema, err := Reflect(ctx, db)
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	if schema["t"]["x"].DBType != acsqe.TypeText {
		t.Fatalf("expected default TEXT affinity, got %v", schema["t"]["x"].DBType)
	}
}
