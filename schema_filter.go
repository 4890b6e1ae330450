package acsqe

// FilterSchema projects a Schema down to what a caller holding idx may see
// in datastoreID. A table is visible iff the caller holds
// datastore.table.list on it; within a visible table a column is visible
// iff the caller holds datastore.table.column.select on it. A visible table
// with no visible columns still appears, with an empty column map, so its
// existence remains discoverable.
func FilterSchema(schema Schema, idx *Index, datastoreID string) Schema {
	out := make(Schema)
	for tableName, table := range schema {
		if !idx.HasTable(datastoreID, tableName, ActionTableList) {
			continue
		}
		visible := make(Table)
		for colName, meta := range table {
			if idx.HasColumn(datastoreID, tableName, colName, ActionColumnSelect) {
				visible[colName] = meta
			}
		}
		out[tableName] = visible
	}
	return out
}
