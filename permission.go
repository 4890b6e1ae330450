package acsqe

// PermissionRow is a raw (target_id, action_id) pair as stored by the host's
// relational layer. Rows are tolerant input: a row whose target or action
// does not parse/resolve is silently dropped, never surfaced as an error.
type PermissionRow struct {
	TargetID string `json:"target_id"`
	ActionID string `json:"action_id"`
}

type actionSet map[string]struct{}

func (s actionSet) has(action string) bool {
	_, ok := s[action]
	return ok
}

func (s actionSet) add(action string) {
	s[action] = struct{}{}
}

func newActionSet() actionSet {
	return make(actionSet)
}

type tableEntry struct {
	actions    actionSet
	allColumns actionSet
	columns    map[string]actionSet
}

func newTableEntry() *tableEntry {
	return &tableEntry{
		actions:    newActionSet(),
		allColumns: newActionSet(),
		columns:    make(map[string]actionSet),
	}
}

func (t *tableEntry) columnSet(name string) actionSet {
	set, ok := t.columns[name]
	if !ok {
		set = newActionSet()
		t.columns[name] = set
	}
	return set
}

type datastoreEntry struct {
	actions   actionSet
	allTables actionSet
	tables    map[string]*tableEntry
}

func newDatastoreEntry() *datastoreEntry {
	return &datastoreEntry{
		actions:   newActionSet(),
		allTables: newActionSet(),
		tables:    make(map[string]*tableEntry),
	}
}

func (d *datastoreEntry) tableEntry(name string) *tableEntry {
	t, ok := d.tables[name]
	if !ok {
		t = newTableEntry()
		d.tables[name] = t
	}
	return t
}

// Index is the immutable, indexed union of every (target, action) row
// granted to one caller. It is a join-semilattice under "most permissive
// wins": building from a superset of rows can only add grants, never remove
// them, and the build is idempotent and order-independent.
type Index struct {
	global        actionSet
	allDatastores actionSet
	allTables     actionSet
	allColumns    actionSet
	datastores    map[string]*datastoreEntry
}

func newIndex() *Index {
	return &Index{
		global:        newActionSet(),
		allDatastores: newActionSet(),
		allTables:     newActionSet(),
		allColumns:    newActionSet(),
		datastores:    make(map[string]*datastoreEntry),
	}
}

func (idx *Index) datastoreEntry(id string) *datastoreEntry {
	d, ok := idx.datastores[id]
	if !ok {
		d = newDatastoreEntry()
		idx.datastores[id] = d
	}
	return d
}

// BuildIndex constructs a Permission Index from raw rows. Malformed targets,
// unknown actions, and actions whose scope is incompatible with the parsed
// target's depth are dropped rather than rejected. The specific target
// "datastore:id.table:*.column:*" is deliberately not stored: it has no
// dedicated bucket in this model (see spec Open Questions) and is treated
// the same as any other depth/scope mismatch.
func BuildIndex(rows []PermissionRow) *Index {
	idx := newIndex()
	for _, row := range rows {
		idx.add(row)
	}
	return idx
}

func (idx *Index) add(row PermissionRow) {
	target, ok := ParseTarget(row.TargetID)
	if !ok {
		return
	}
	scope, ok := ActionScope(row.ActionID)
	if !ok {
		return
	}

	if scope == LevelGlobal {
		// Global actions are not anchored to any datastore; whatever target
		// string accompanied the row is irrelevant once it parses at all.
		idx.global.add(row.ActionID)
		return
	}

	if target.Level != scope {
		// Action scope must match the target's depth exactly; a Column-scope
		// action attached to a Table target (or vice versa) is dropped.
		return
	}

	switch scope {
	case LevelDatastore:
		if target.DatastoreID == Wildcard {
			idx.allDatastores.add(row.ActionID)
			return
		}
		idx.datastoreEntry(target.DatastoreID).actions.add(row.ActionID)

	case LevelTable:
		switch {
		case target.DatastoreID == Wildcard && target.Table == Wildcard:
			idx.allTables.add(row.ActionID)
		case target.DatastoreID == Wildcard:
			// "datastore:*.table:NAME" has no defined bucket: a specific
			// table name with no owning datastore can't be resolved to any
			// per-datastore structure. Dropped, same rationale as the
			// documented column:* exclusion.
			return
		case target.Table == Wildcard:
			idx.datastoreEntry(target.DatastoreID).allTables.add(row.ActionID)
		default:
			idx.datastoreEntry(target.DatastoreID).tableEntry(target.Table).actions.add(row.ActionID)
		}

	case LevelColumn:
		switch {
		case target.DatastoreID == Wildcard && target.Table == Wildcard && target.Column == Wildcard:
			idx.allColumns.add(row.ActionID)
		case target.DatastoreID == Wildcard:
			// "datastore:*.table:..." (any column combination) has no defined
			// bucket: a column under an unspecified datastore can't be
			// resolved to any per-datastore structure.
			return
		case target.Table == Wildcard && target.Column == Wildcard:
			// "datastore:id.table:*.column:*" is the documented not-stored
			// case: not written to any bucket, including the per-datastore
			// wildcard-table one, so it is never consulted by the evaluator.
			return
		case target.Table == Wildcard:
			// "datastore:id.table:*.column:NAME" has no defined bucket for
			// the same reason as above.
			return
		case target.Column == Wildcard:
			idx.datastoreEntry(target.DatastoreID).tableEntry(target.Table).allColumns.add(row.ActionID)
		default:
			t := idx.datastoreEntry(target.DatastoreID).tableEntry(target.Table)
			t.columnSet(target.Column).add(row.ActionID)
		}
	}
}

// HasGlobal reports whether the global-scope action was granted.
func (idx *Index) HasGlobal(action string) bool {
	return idx.global.has(action)
}

// HasDatastore reports whether a datastore-scope action was granted for the
// given datastore, either directly or via the "datastore:*" wildcard.
func (idx *Index) HasDatastore(datastoreID, action string) bool {
	if idx.allDatastores.has(action) {
		return true
	}
	d, ok := idx.datastores[datastoreID]
	return ok && d.actions.has(action)
}

// HasTable reports whether a table-scope action was granted for the given
// table, via any of: the global "datastore:*.table:*" wildcard, the
// per-datastore "datastore:id.table:*" wildcard, or a specific grant.
func (idx *Index) HasTable(datastoreID, table, action string) bool {
	if idx.allTables.has(action) {
		return true
	}
	d, ok := idx.datastores[datastoreID]
	if !ok {
		return false
	}
	if d.allTables.has(action) {
		return true
	}
	t, ok := d.tables[table]
	return ok && t.actions.has(action)
}

// HasColumn reports whether a column-scope action was granted for the given
// column, via any of: the global "datastore:*.table:*.column:*" wildcard,
// the per-table "datastore:id.table:t.column:*" wildcard, or a specific
// grant.
func (idx *Index) HasColumn(datastoreID, table, column, action string) bool {
	if idx.allColumns.has(action) {
		return true
	}
	d, ok := idx.datastores[datastoreID]
	if !ok {
		return false
	}
	t, ok := d.tables[table]
	if !ok {
		return false
	}
	if t.allColumns.has(action) {
		return true
	}
	cols, ok := t.columns[column]
	return ok && cols.has(action)
}
