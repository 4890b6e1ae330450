// Package jsonschema validates the two JSON shapes that cross the wire
// verbatim: permission rows and schema-change request bodies, and decodes
// the latter into the engine's typed schema-change variant.
package jsonschema

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/acsqe/acsqe"
)

//go:embed schemas/permission_row.schema.json schemas/schema_change_request.schema.json
var schemaFiles embed.FS

var (
	permissionRowSchema       = mustLoader("schemas/permission_row.schema.json")
	schemaChangeRequestSchema = mustLoader("schemas/schema_change_request.schema.json")
)

func mustLoader(path string) gojsonschema.JSONLoader {
	data, err := schemaFiles.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("jsonschema: embedded schema %s missing: %v", path, err))
	}
	return gojsonschema.NewBytesLoader(data)
}

// ValidationError collects every JSON Schema violation found in one
// document, so callers can surface all of them at once rather than
// one-at-a-time.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("JSON Schema validation failed: %s", strings.Join(e.Violations, "; "))
}

func validate(schemaLoader gojsonschema.JSONLoader, doc []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validating document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return &ValidationError{Violations: violations}
}

// ValidatePermissionRow validates one raw (target_id, action_id) JSON
// object against the permission row schema.
func ValidatePermissionRow(doc []byte) error {
	return validate(permissionRowSchema, doc)
}

// ValidateSchemaChangeRequest validates a schema-change request body
// against the fixed six-variant schema.
func ValidateSchemaChangeRequest(doc []byte) error {
	return validate(schemaChangeRequestSchema, doc)
}

// schemaChangeRequest mirrors the external wire shape described in the
// engine's schema-change request body contract: lowercase kebab-case
// discriminators with type-specific fields.
type schemaChangeRequest struct {
	Type       string  `json:"type"`
	Table      string  `json:"table"`
	Column     string  `json:"column"`
	NewName    string  `json:"new_name"`
	DBType     string  `json:"db_type"`
	ForeignKey *struct {
		Table  string `json:"table"`
		Column string `json:"column"`
	} `json:"foreign_key"`
}

var requestKinds = map[string]acsqe.SchemaChangeKind{
	"add-column":    acsqe.ChangeAddColumn,
	"drop-column":   acsqe.ChangeDropColumn,
	"rename-column": acsqe.ChangeRenameColumn,
	"add-table":     acsqe.ChangeAddTable,
	"drop-table":    acsqe.ChangeDropTable,
	"rename-table":  acsqe.ChangeRenameTable,
}

// DecodeSchemaChangeRequest validates doc and decodes it into the engine's
// SchemaChangeOperation variant consumed by the DDL Builder.
func DecodeSchemaChangeRequest(doc []byte) (acsqe.SchemaChangeOperation, error) {
	if err := ValidateSchemaChangeRequest(doc); err != nil {
		return acsqe.SchemaChangeOperation{}, err
	}

	var req schemaChangeRequest
	if err := json.Unmarshal(doc, &req); err != nil {
		return acsqe.SchemaChangeOperation{}, fmt.Errorf("decoding schema change request: %w", err)
	}

	kind, ok := requestKinds[req.Type]
	if !ok {
		return acsqe.SchemaChangeOperation{}, fmt.Errorf("unknown schema change type %q", req.Type)
	}

	op := acsqe.SchemaChangeOperation{
		Kind:    kind,
		Table:   req.Table,
		Column:  req.Column,
		NewName: req.NewName,
		DBType:  acsqe.DBType(req.DBType),
	}
	if req.ForeignKey != nil {
		op.ForeignKey = &acsqe.ForeignKey{Table: req.ForeignKey.Table, Column: req.ForeignKey.Column}
	}
	return op, nil
}
