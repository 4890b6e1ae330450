package acsqe

// Action is an opaque string drawn from a closed enumeration. Every action
// belongs to exactly one Level (its scope): the only target depth at which
// granting it means anything.
type Action = string

// Closed action vocabulary, grouped by scope. Unknown actions are dropped
// during indexing (see Index.add) and must never be able to cause
// authorization to succeed elsewhere.
const (
	ActionDatastoreCreate = "datastore.create"

	ActionDatastoreList       = "datastore.list"
	ActionDatastoreRename     = "datastore.rename"
	ActionDatastoreDrop       = "datastore.drop"
	ActionDatastoreTableCreate = "datastore.table.create"

	ActionTableList         = "datastore.table.list"
	ActionTableRename       = "datastore.table.rename"
	ActionTableDrop         = "datastore.table.drop"
	ActionTableSchemaChange = "datastore.table.schema.change"
	ActionRowInsert         = "datastore.table.row.insert"
	ActionRowUpdate         = "datastore.table.row.update"
	ActionRowDelete         = "datastore.table.row.delete"
	ActionRowSelect         = "datastore.table.row.select"

	ActionColumnRename = "datastore.table.column.rename"
	ActionColumnDrop   = "datastore.table.column.drop"
	ActionColumnInsert = "datastore.table.column.insert"
	ActionColumnUpdate = "datastore.table.column.update"
	ActionColumnDelete = "datastore.table.column.delete"
	ActionColumnSelect = "datastore.table.column.select"
)

// actionScopes is the frozen action -> scope mapping.
var actionScopes = map[string]Level{
	ActionDatastoreCreate: LevelGlobal,

	ActionDatastoreList:        LevelDatastore,
	ActionDatastoreRename:      LevelDatastore,
	ActionDatastoreDrop:        LevelDatastore,
	ActionDatastoreTableCreate: LevelDatastore,

	ActionTableList:         LevelTable,
	ActionTableRename:       LevelTable,
	ActionTableDrop:         LevelTable,
	ActionTableSchemaChange: LevelTable,
	ActionRowInsert:         LevelTable,
	ActionRowUpdate:         LevelTable,
	ActionRowDelete:         LevelTable,
	ActionRowSelect:         LevelTable,

	ActionColumnRename: LevelColumn,
	ActionColumnDrop:   LevelColumn,
	ActionColumnInsert: LevelColumn,
	ActionColumnUpdate: LevelColumn,
	ActionColumnDelete: LevelColumn,
	ActionColumnSelect: LevelColumn,
}

// ActionScope returns the scope level an action was declared at. The second
// return value is false for any string outside the closed vocabulary.
func ActionScope(action string) (Level, bool) {
	scope, ok := actionScopes[action]
	return scope, ok
}
