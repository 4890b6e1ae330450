package acsqe

import "testing"

func TestBuildDDLAddColumnWithForeignKey(t *testing.T) {
	ddl, err := BuildDDL(SchemaChangeOperation{
		Kind:       ChangeAddColumn,
		Table:      "orders",
		Column:     "user_id",
		DBType:     TypeInteger,
		ForeignKey: &ForeignKey{Table: "users", Column: "id"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantForward := `ALTER TABLE "orders" ADD COLUMN "user_id" INTEGER REFERENCES "users"(id);`
	if ddl.Forward != wantForward {
		t.Fatalf("forward = %q, want %q", ddl.Forward, wantForward)
	}
	wantRollback := `ALTER TABLE "orders" DROP COLUMN "user_id";`
	if ddl.Rollback != wantRollback {
		t.Fatalf("rollback = %q, want %q", ddl.Rollback, wantRollback)
	}
}

func TestBuildDDLDropColumnHasNoRollback(t *testing.T) {
	ddl, err := BuildDDL(SchemaChangeOperation{Kind: ChangeDropColumn, Table: "orders", Column: "note"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ddl.Rollback != "" {
		t.Fatalf("expected no rollback for DropColumn, got %q", ddl.Rollback)
	}
}

func TestBuildDDLReservedTableName(t *testing.T) {
	if _, err := BuildDDL(SchemaChangeOperation{Kind: ChangeDropTable, Table: ReservedTableName}); err == nil {
		t.Fatalf("expected error dropping sqlite_sequence")
	} else if acsqeErr, ok := err.(*Error); !ok || acsqeErr.Kind != KindReservedIdentifier {
		t.Fatalf("expected KindReservedIdentifier, got %v", err)
	}

	if _, err := BuildDDL(SchemaChangeOperation{Kind: ChangeRenameTable, Table: "x", NewName: ReservedTableName}); err == nil {
		t.Fatalf("expected error renaming to sqlite_sequence")
	} else if acsqeErr, ok := err.(*Error); !ok || acsqeErr.Kind != KindReservedIdentifier {
		t.Fatalf("expected KindReservedIdentifier, got %v", err)
	}
}

func TestBuildDDLAddTable(t *testing.T) {
	ddl, err := BuildDDL(SchemaChangeOperation{Kind: ChangeAddTable, Table: "widgets"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantForward := `CREATE TABLE "widgets" (_id INTEGER PRIMARY KEY AUTOINCREMENT);`
	if ddl.Forward != wantForward {
		t.Fatalf("forward = %q, want %q", ddl.Forward, wantForward)
	}
	wantRollback := `DROP TABLE "widgets";`
	if ddl.Rollback != wantRollback {
		t.Fatalf("rollback = %q, want %q", ddl.Rollback, wantRollback)
	}
}

func TestBuildDDLRenameColumnRoundTrip(t *testing.T) {
	forward, err := BuildDDL(SchemaChangeOperation{Kind: ChangeRenameColumn, Table: "users", Column: "nm", NewName: "name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forward.Rollback != `ALTER TABLE "users" RENAME COLUMN "name" TO "nm";` {
		t.Fatalf("unexpected rollback: %q", forward.Rollback)
	}
}
