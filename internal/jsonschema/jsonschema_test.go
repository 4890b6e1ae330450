package jsonschema

import (
	"testing"

	"github.com/acsqe/acsqe"
)

func TestValidatePermissionRowAccepts(t *testing.T) {
	doc := []byte(`{"target_id": "datastore:D.table:foo.column:id", "action_id": "datastore.table.column.select"}`)
	if err := ValidatePermissionRow(doc); err != nil {
		t.Fatalf("expected valid row, got %v", err)
	}
}

func TestValidatePermissionRowRejectsUnknownAction(t *testing.T) {
	doc := []byte(`{"target_id": "datastore:D", "action_id": "datastore.teleport"}`)
	if err := ValidatePermissionRow(doc); err == nil {
		t.Fatalf("expected validation error for unknown action")
	}
}

func TestValidatePermissionRowRejectsMalformedTarget(t *testing.T) {
	doc := []byte(`{"target_id": "not-a-target", "action_id": "datastore.list"}`)
	if err := ValidatePermissionRow(doc); err == nil {
		t.Fatalf("expected validation error for malformed target")
	}
}

func TestDecodeSchemaChangeRequestAddColumn(t *testing.T) {
	doc := []byte(`{
		"type": "add-column",
		"table": "orders",
		"column": "user_id",
		"db_type": "INTEGER",
		"foreign_key": {"table": "users", "column": "id"}
	}`)

	op, err := DecodeSchemaChangeRequest(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Kind != acsqe.ChangeAddColumn || op.Table != "orders" || op.Column != "user_id" {
		t.Fatalf("unexpected operation: %+v", op)
	}
	if op.ForeignKey == nil || op.ForeignKey.Table != "users" {
		t.Fatalf("expected foreign key, got %+v", op.ForeignKey)
	}
}

func TestDecodeSchemaChangeRequestMissingRequiredField(t *testing.T) {
	doc := []byte(`{"type": "add-column", "table": "orders"}`)
	if _, err := DecodeSchemaChangeRequest(doc); err == nil {
		t.Fatalf("expected error: add-column requires column and db_type")
	}
}

func TestDecodeSchemaChangeRequestDropTable(t *testing.T) {
	doc := []byte(`{"type": "drop-table", "table": "widgets"}`)
	op, err := DecodeSchemaChangeRequest(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Kind != acsqe.ChangeDropTable || op.Table != "widgets" {
		t.Fatalf("unexpected operation: %+v", op)
	}
}
