package acsqe

import "fmt"

// SchemaChangeKind discriminates the six-operation DDL vocabulary.
type SchemaChangeKind int

const (
	ChangeAddColumn SchemaChangeKind = iota
	ChangeDropColumn
	ChangeRenameColumn
	ChangeAddTable
	ChangeDropTable
	ChangeRenameTable
)

// SchemaChangeOperation is the typed variant consumed by the DDL Builder and
// produced by the SQL Authorizer when normalizing DDL statements. Only the
// fields relevant to Kind are populated.
type SchemaChangeOperation struct {
	Kind SchemaChangeKind

	Table   string
	Column  string
	NewName string

	DBType     DBType
	ForeignKey *ForeignKey
}

// DDL is the forward and, where invertible, rollback SQL for one schema
// change. DROP COLUMN and DROP TABLE have no rollback: SQLite's own DROP is
// destructive and cannot be inverted from the statement alone.
type DDL struct {
	Forward  string
	Rollback string
}

// BuildDDL renders a SchemaChangeOperation into forward/rollback SQL.
// Identifiers are double-quoted verbatim; quoting is the sole injection
// barrier here. Charset validation of identifiers is left to callers (C6 or
// the authorizer) since schema edits are already gated by
// datastore.table.schema.change and legitimate names may contain characters
// a stricter regex would reject.
func BuildDDL(op SchemaChangeOperation) (DDL, error) {
	switch op.Kind {
	case ChangeAddColumn:
		colDef := quoteIdent(op.Column) + " " + string(op.DBType)
		if op.ForeignKey != nil {
			colDef += fmt.Sprintf(" REFERENCES %s(%s)", quoteIdent(op.ForeignKey.Table), op.ForeignKey.Column)
		}
		return DDL{
			Forward:  fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", quoteIdent(op.Table), colDef),
			Rollback: fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", quoteIdent(op.Table), quoteIdent(op.Column)),
		}, nil

	case ChangeDropColumn:
		return DDL{
			Forward: fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", quoteIdent(op.Table), quoteIdent(op.Column)),
		}, nil

	case ChangeRenameColumn:
		return DDL{
			Forward:  fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", quoteIdent(op.Table), quoteIdent(op.Column), quoteIdent(op.NewName)),
			Rollback: fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", quoteIdent(op.Table), quoteIdent(op.NewName), quoteIdent(op.Column)),
		}, nil

	case ChangeAddTable:
		if op.Table == ReservedTableName {
			return DDL{}, newError(KindReservedIdentifier, "cannot create reserved table %q", op.Table)
		}
		return DDL{
			Forward:  fmt.Sprintf("CREATE TABLE %s (_id INTEGER PRIMARY KEY AUTOINCREMENT);", quoteIdent(op.Table)),
			Rollback: fmt.Sprintf("DROP TABLE %s;", quoteIdent(op.Table)),
		}, nil

	case ChangeDropTable:
		if op.Table == ReservedTableName {
			return DDL{}, newError(KindReservedIdentifier, "cannot drop reserved table %q", op.Table)
		}
		return DDL{
			Forward: fmt.Sprintf("DROP TABLE %s;", quoteIdent(op.Table)),
		}, nil

	case ChangeRenameTable:
		if op.Table == ReservedTableName || op.NewName == ReservedTableName {
			return DDL{}, newError(KindReservedIdentifier, "cannot rename to/from reserved table %q", ReservedTableName)
		}
		return DDL{
			Forward:  fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", quoteIdent(op.Table), quoteIdent(op.NewName)),
			Rollback: fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", quoteIdent(op.NewName), quoteIdent(op.Table)),
		}, nil

	default:
		return DDL{}, newError(KindInvalidIdentifier, "unsupported schema change kind")
	}
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
