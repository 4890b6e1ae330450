package acsqe

import "testing"

func TestAuthorizeUpdateFilterColumnDeny(t *testing.T) {
	idx := BuildIndex([]PermissionRow{
		{TargetID: "datastore:D.table:users", ActionID: ActionRowUpdate},
		{TargetID: "datastore:D.table:users.column:name", ActionID: ActionColumnUpdate},
	})

	results, err := Authorize("UPDATE users SET name = 'x' WHERE age > 18", idx, "D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Allowed {
		t.Fatalf("expected denial without select on age, got %+v", results)
	}

	results, err = Authorize("UPDATE users SET name='x' WHERE name <> 'y'", idx, "D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || !results[0].Allowed {
		t.Fatalf("expected allow when WHERE only touches a granted column, got %+v", results)
	}
}

func TestAuthorizeDeleteWithSubquery(t *testing.T) {
	sql := "DELETE FROM users WHERE id IN (SELECT user_id FROM banned)"

	full := BuildIndex([]PermissionRow{
		{TargetID: "datastore:D.table:users", ActionID: ActionRowDelete},
		{TargetID: "datastore:D.table:banned", ActionID: ActionRowSelect},
		{TargetID: "datastore:D.table:users.column:id", ActionID: ActionColumnSelect},
		{TargetID: "datastore:D.table:banned.column:user_id", ActionID: ActionColumnSelect},
	})
	results, err := Authorize(sql, full, "D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || !results[0].Allowed {
		t.Fatalf("expected allow with full grant set, got %+v", results)
	}

	missingBannedSelect := BuildIndex([]PermissionRow{
		{TargetID: "datastore:D.table:users", ActionID: ActionRowDelete},
		{TargetID: "datastore:D.table:users.column:id", ActionID: ActionColumnSelect},
		{TargetID: "datastore:D.table:banned.column:user_id", ActionID: ActionColumnSelect},
	})
	results, err = Authorize(sql, missingBannedSelect, "D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Allowed {
		t.Fatalf("expected denial without row.select on banned")
	}
}

func TestAuthorizeSelectProducesNoOperation(t *testing.T) {
	idx := BuildIndex([]PermissionRow{
		{TargetID: "datastore:D.table:users", ActionID: ActionRowSelect},
		{TargetID: "datastore:D.table:users.column:id", ActionID: ActionColumnSelect},
	})
	results, err := Authorize("SELECT id FROM users", idx, "D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !results[0].Allowed || results[0].IsDDL || results[0].Operation != nil {
		t.Fatalf("unexpected result: %+v", results[0])
	}
}

func TestAuthorizeCreateTableNormalizesOperation(t *testing.T) {
	idx := BuildIndex([]PermissionRow{
		{TargetID: "datastore:D", ActionID: ActionDatastoreTableCreate},
	})
	results, err := Authorize("CREATE TABLE widgets (_id INTEGER PRIMARY KEY)", idx, "D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !results[0].Allowed || !results[0].IsDDL {
		t.Fatalf("expected allowed DDL result, got %+v", results[0])
	}
	if results[0].Operation == nil || results[0].Operation.Kind != ChangeAddTable || results[0].Operation.Table != "widgets" {
		t.Fatalf("unexpected operation: %+v", results[0].Operation)
	}
}

func TestAuthorizeAlterTableRenameColumn(t *testing.T) {
	idx := BuildIndex([]PermissionRow{
		{TargetID: "datastore:D.table:users", ActionID: ActionTableSchemaChange},
		{TargetID: "datastore:D.table:users.column:nm", ActionID: ActionColumnRename},
	})
	results, err := Authorize(`ALTER TABLE users RENAME COLUMN nm TO name`, idx, "D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !results[0].Allowed || results[0].Operation == nil {
		t.Fatalf("expected allowed rename, got %+v", results[0])
	}
	if results[0].Operation.Kind != ChangeRenameColumn || results[0].Operation.Column != "nm" || results[0].Operation.NewName != "name" {
		t.Fatalf("unexpected operation: %+v", results[0].Operation)
	}
}

func TestAuthorizeUnparseableSQLDenied(t *testing.T) {
	idx := BuildIndex(nil)
	_, err := Authorize("not even close to SQL $$$", idx, "D")
	if err == nil {
		t.Fatalf("expected an error for unparseable SQL")
	}
}

func TestAuthorizePure(t *testing.T) {
	idx := BuildIndex([]PermissionRow{
		{TargetID: "datastore:D.table:users", ActionID: ActionRowSelect},
		{TargetID: "datastore:D.table:users.column:id", ActionID: ActionColumnSelect},
	})
	first, err := Authorize("SELECT id FROM users", idx, "D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Authorize("SELECT id FROM users", idx, "D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first[0].Allowed != second[0].Allowed {
		t.Fatalf("authorizer is not pure: %v vs %v", first[0].Allowed, second[0].Allowed)
	}
}
