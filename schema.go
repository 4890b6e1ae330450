package acsqe

// DBType is the fixed SQLite storage class vocabulary the canonical schema
// uses. The reflector maps declared catalog types onto it by name (for
// example BIGINT to TypeInteger, VARCHAR to TypeText); an empty or
// unrecognized declared type maps to TypeText.
type DBType string

const (
	TypeText    DBType = "TEXT"
	TypeInteger DBType = "INTEGER"
	TypeReal    DBType = "REAL"
	TypeBlob    DBType = "BLOB"
)

// ForeignKey describes the referential target of a column.
type ForeignKey struct {
	Table    string
	Column   string
	OnUpdate string
	OnDelete string
}

// ColumnMeta is one column's catalog metadata, as reflected from SQLite or
// as declared on a DDL operation.
type ColumnMeta struct {
	Name          string
	Order         int
	DBType        DBType
	DefaultValue  *string
	NotNull       bool
	AutoIncrement bool
	ForeignKey    *ForeignKey
}

// Table is a table's columns, keyed by column name.
type Table map[string]ColumnMeta

// Schema is the canonical schema document: every user table in a datastore,
// keyed by table name. Tables named sqlite_* are never present.
type Schema map[string]Table

// ReservedTableName is the one SQLite system table the DDL Builder refuses
// to ever create, drop, or rename.
const ReservedTableName = "sqlite_sequence"
