package acsqe

import (
	"reflect"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// StatementKind classifies one parsed SQL statement.
type StatementKind string

const (
	StmtSelect StatementKind = "select"
	StmtInsert StatementKind = "insert"
	StmtUpdate StatementKind = "update"
	StmtDelete StatementKind = "delete"
	StmtAlter  StatementKind = "alter"
	StmtCreate StatementKind = "create"
	StmtDrop   StatementKind = "drop"
)

// AuthorizedStatement is the per-statement authorization result.
type AuthorizedStatement struct {
	Kind      StatementKind
	Allowed   bool
	IsDDL     bool
	Operation *SchemaChangeOperation
}

// role is the part a table or column plays in a statement, used to pick
// which action must be granted.
type role string

const (
	roleSelect role = "select"
	roleInsert role = "insert"
	roleUpdate role = "update"
	roleDelete role = "delete"
	roleAlter  role = "alter"
	roleCreate role = "create"
	roleDrop   role = "drop"

	// roleFilter marks a column read in an UPDATE's own WHERE clause or SET
	// value expressions: a grant to write the column already implies the
	// caller may reference its current value to filter or recompute it, so
	// this role accepts either the select or the update grant.
	roleFilter role = "filter"
)

type tableRef struct {
	name string
	role role
}

type columnRef struct {
	qualifier string // empty if unqualified
	name      string
	role      role
}

// Authorize parses raw SQL text and authorizes each statement against idx
// for datastoreID. Denial and unsupported SQL are not errors: any statement
// that cannot be classified or normalized is reported {Allowed: false}.
// Text that fails to parse at all yields no results and a KindInvalidFilter
// error. SQL text that parses to multiple statements yields one result per
// statement, in order.
func Authorize(sqlText string, idx *Index, datastoreID string) ([]AuthorizedStatement, error) {
	tree, err := pg_query.Parse(sqlText)
	if err != nil {
		return nil, wrapError(KindInvalidFilter, "could not parse SQL", err)
	}

	results := make([]AuthorizedStatement, 0, len(tree.Stmts))
	for _, rawStmt := range tree.Stmts {
		if rawStmt.Stmt == nil {
			results = append(results, AuthorizedStatement{Allowed: false})
			continue
		}
		results = append(results, authorizeStatement(rawStmt.Stmt, idx, datastoreID))
	}
	return results, nil
}

func authorizeStatement(node *pg_query.Node, idx *Index, datastoreID string) AuthorizedStatement {
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return authorizeDML(StmtSelect, selectRefs(n.SelectStmt), idx, datastoreID)

	case *pg_query.Node_InsertStmt:
		return authorizeDML(StmtInsert, insertRefs(n.InsertStmt), idx, datastoreID)

	case *pg_query.Node_UpdateStmt:
		return authorizeDML(StmtUpdate, updateRefs(n.UpdateStmt), idx, datastoreID)

	case *pg_query.Node_DeleteStmt:
		return authorizeDML(StmtDelete, deleteRefs(n.DeleteStmt), idx, datastoreID)

	case *pg_query.Node_CreateStmt:
		return authorizeCreateTable(n.CreateStmt, idx, datastoreID)

	case *pg_query.Node_DropStmt:
		return authorizeDropTable(n.DropStmt, idx, datastoreID)

	case *pg_query.Node_AlterTableStmt:
		return authorizeAlterTable(n.AlterTableStmt, idx, datastoreID)

	case *pg_query.Node_RenameStmt:
		return authorizeRename(n.RenameStmt, idx, datastoreID)

	default:
		return AuthorizedStatement{Allowed: false}
	}
}

// statementRefs is the set of table and column references extracted from
// one DML statement, already tagged with the role they play.
type statementRefs struct {
	tables  []tableRef
	columns []columnRef
}

func dmlActionForRole(r role) (tableAction, columnAction string) {
	switch r {
	case roleSelect:
		return ActionRowSelect, ActionColumnSelect
	case roleInsert:
		return ActionRowInsert, ActionColumnInsert
	case roleUpdate:
		return ActionRowUpdate, ActionColumnUpdate
	case roleDelete:
		return ActionRowDelete, ActionColumnSelect
	case roleFilter:
		// Row-level, a filter reference is still just a read of the row
		// being updated. Column-level is handled separately in authorizeDML,
		// which also accepts the update grant.
		return ActionRowSelect, ActionColumnSelect
	default:
		return "", ""
	}
}

// authorizeDML checks every table and column reference against idx. Columns
// are checked against the action matching their own role; unqualified
// columns are authorized if accessible in at least one table referenced by
// the statement (the documented permissive policy for disambiguation).
func authorizeDML(kind StatementKind, refs statementRefs, idx *Index, datastoreID string) AuthorizedStatement {
	tableNames := make([]string, 0, len(refs.tables))
	for _, tr := range refs.tables {
		tableAction, _ := dmlActionForRole(tr.role)
		if tableAction == "" {
			continue
		}
		if !idx.HasTable(datastoreID, tr.name, tableAction) {
			return AuthorizedStatement{Kind: kind, Allowed: false}
		}
		tableNames = append(tableNames, tr.name)
	}

	for _, cr := range refs.columns {
		_, columnAction := dmlActionForRole(cr.role)
		if columnAction == "" {
			continue
		}
		// A filter reference (an UPDATE's own WHERE clause or SET value
		// expressions) is satisfied by either the select grant or the
		// update grant: writing a column already implies the caller may
		// reference its current value.
		actions := []string{columnAction}
		if cr.role == roleFilter {
			actions = []string{ActionColumnSelect, ActionColumnUpdate}
		}

		if cr.qualifier != "" {
			if !hasAnyColumnGrant(idx, datastoreID, cr.qualifier, cr.name, actions) {
				return AuthorizedStatement{Kind: kind, Allowed: false}
			}
			continue
		}
		if !anyTableGrantsAny(idx, datastoreID, tableNames, cr.name, actions) {
			return AuthorizedStatement{Kind: kind, Allowed: false}
		}
	}

	return AuthorizedStatement{Kind: kind, Allowed: true}
}

func hasAnyColumnGrant(idx *Index, datastoreID, table, column string, actions []string) bool {
	for _, a := range actions {
		if idx.HasColumn(datastoreID, table, column, a) {
			return true
		}
	}
	return false
}

func anyTableGrantsAny(idx *Index, datastoreID string, tables []string, column string, actions []string) bool {
	for _, a := range actions {
		if anyTableGrants(idx, datastoreID, tables, column, a) {
			return true
		}
	}
	return false
}

func anyTableGrants(idx *Index, datastoreID string, tables []string, column, action string) bool {
	for _, t := range tables {
		if idx.HasColumn(datastoreID, t, column, action) {
			return true
		}
	}
	return false
}

// selectRefs walks an entire SELECT (including any nested subqueries) and
// tags every table and column found anywhere in it with the select role.
// This mirrors the Safe Query Builder's own treatment of unrestricted
// projections: a statement with no explicit per-clause column semantics to
// separate gets one uniform role.
func selectRefs(stmt *pg_query.SelectStmt) statementRefs {
	var refs statementRefs
	walkAST(&pg_query.Node{Node: &pg_query.Node_SelectStmt{SelectStmt: stmt}}, func(n *pg_query.Node) {
		collectRef(n, roleSelect, &refs)
	})
	return refs
}

func insertRefs(stmt *pg_query.InsertStmt) statementRefs {
	var refs statementRefs
	if stmt.Relation != nil {
		refs.tables = append(refs.tables, tableRef{name: stmt.Relation.Relname, role: roleInsert})
	}
	for _, col := range stmt.Cols {
		if rt, ok := col.Node.(*pg_query.Node_ResTarget); ok && rt.ResTarget.Name != "" {
			refs.columns = append(refs.columns, columnRef{name: rt.ResTarget.Name, role: roleInsert})
		}
	}
	if stmt.SelectStmt != nil {
		if sel, ok := stmt.SelectStmt.Node.(*pg_query.Node_SelectStmt); ok {
			sub := selectRefs(sel.SelectStmt)
			refs.tables = append(refs.tables, sub.tables...)
			refs.columns = append(refs.columns, sub.columns...)
		}
	}
	return refs
}

func updateRefs(stmt *pg_query.UpdateStmt) statementRefs {
	var refs statementRefs
	if stmt.Relation != nil {
		refs.tables = append(refs.tables, tableRef{name: stmt.Relation.Relname, role: roleUpdate})
	}
	for _, tgt := range stmt.TargetList {
		rt, ok := tgt.Node.(*pg_query.Node_ResTarget)
		if !ok {
			continue
		}
		if rt.ResTarget.Name != "" {
			refs.columns = append(refs.columns, columnRef{name: rt.ResTarget.Name, role: roleUpdate})
		}
		// Anything the new value expression itself reads is a read, not a
		// write, of whatever column/table it references. A grant to update
		// this row already covers reading the row's own current values, so
		// this is tagged roleFilter rather than roleSelect.
		walkFilterAST(rt.ResTarget.Val, &refs)
	}
	// Other tables pulled in via UPDATE ... FROM are genuine reads, not
	// covered by the update grant on the target table.
	for _, n := range stmt.FromClause {
		walkAST(n, func(n *pg_query.Node) { collectRef(n, roleSelect, &refs) })
	}
	if stmt.WhereClause != nil {
		walkFilterAST(stmt.WhereClause, &refs)
	}
	return refs
}

// walkFilterAST walks a WHERE clause or SET value expression of an UPDATE,
// tagging references with roleFilter. Any nested subquery is handed off to
// selectRefs instead, so a SELECT buried in the filter still requires plain
// select grants rather than inheriting the surrounding statement's update
// grant.
func walkFilterAST(node *pg_query.Node, refs *statementRefs) {
	if node == nil {
		return
	}
	if sel, ok := node.Node.(*pg_query.Node_SelectStmt); ok {
		sub := selectRefs(sel.SelectStmt)
		refs.tables = append(refs.tables, sub.tables...)
		refs.columns = append(refs.columns, sub.columns...)
		return
	}
	collectRef(node, roleFilter, refs)
	walkFilterReflect(reflect.ValueOf(node.Node), refs)
}

func walkFilterReflect(v reflect.Value, refs *statementRefs) {
	if !v.IsValid() {
		return
	}
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return
		}
		if n, ok := v.Interface().(*pg_query.Node); ok {
			walkFilterAST(n, refs)
			return
		}
		walkFilterReflect(v.Elem(), refs)
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		walkFilterReflect(v.Elem(), refs)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanInterface() {
				continue
			}
			walkFilterReflect(field, refs)
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			walkFilterReflect(v.Index(i), refs)
		}
	}
}

func deleteRefs(stmt *pg_query.DeleteStmt) statementRefs {
	var refs statementRefs
	if stmt.Relation != nil {
		refs.tables = append(refs.tables, tableRef{name: stmt.Relation.Relname, role: roleDelete})
	}
	for _, n := range stmt.UsingClause {
		walkAST(n, func(n *pg_query.Node) { collectRef(n, roleSelect, &refs) })
	}
	if stmt.WhereClause != nil {
		walkAST(stmt.WhereClause, func(n *pg_query.Node) { collectRef(n, roleSelect, &refs) })
	}
	return refs
}

// collectRef inspects a single AST node during a walk and, if it is a
// ColumnRef or RangeVar, appends it to refs with the given role.
func collectRef(n *pg_query.Node, r role, refs *statementRefs) {
	switch v := n.Node.(type) {
	case *pg_query.Node_RangeVar:
		refs.tables = append(refs.tables, tableRef{name: v.RangeVar.Relname, role: r})
	case *pg_query.Node_ColumnRef:
		qualifier, name, ok := splitColumnRef(v.ColumnRef)
		if ok {
			refs.columns = append(refs.columns, columnRef{qualifier: qualifier, name: name, role: r})
		}
	}
}

// splitColumnRef resolves a ColumnRef's Fields into (qualifier, name). A
// trailing A_Star field (bare "*" or "t.*") carries no column name and is
// not reportable as a column reference.
func splitColumnRef(ref *pg_query.ColumnRef) (qualifier, name string, ok bool) {
	var parts []string
	for _, f := range ref.Fields {
		switch fv := f.Node.(type) {
		case *pg_query.Node_String_:
			parts = append(parts, fv.String_.Sval)
		case *pg_query.Node_AStar:
			return "", "", false
		}
	}
	switch len(parts) {
	case 0:
		return "", "", false
	case 1:
		return "", parts[0], true
	default:
		return parts[len(parts)-2], parts[len(parts)-1], true
	}
}

// walkAST visits node and every node reachable from it, regardless of which
// field holds the reference, so callers don't need to enumerate every
// clause shape pg_query_go's grammar can produce.
func walkAST(node *pg_query.Node, visit func(*pg_query.Node)) {
	if node == nil {
		return
	}
	visit(node)
	walkReflect(reflect.ValueOf(node.Node), visit)
}

func walkReflect(v reflect.Value, visit func(*pg_query.Node)) {
	if !v.IsValid() {
		return
	}
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return
		}
		if n, ok := v.Interface().(*pg_query.Node); ok {
			walkAST(n, visit)
			return
		}
		walkReflect(v.Elem(), visit)
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		walkReflect(v.Elem(), visit)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanInterface() {
				continue
			}
			walkReflect(field, visit)
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			walkReflect(v.Index(i), visit)
		}
	}
}

func authorizeCreateTable(stmt *pg_query.CreateStmt, idx *Index, datastoreID string) AuthorizedStatement {
	if stmt.Relation == nil {
		return AuthorizedStatement{Kind: StmtCreate, Allowed: false}
	}
	tableName := stmt.Relation.Relname
	allowed := idx.HasDatastore(datastoreID, ActionDatastoreTableCreate)
	result := AuthorizedStatement{Kind: StmtCreate, Allowed: allowed, IsDDL: true}
	if allowed {
		result.Operation = &SchemaChangeOperation{Kind: ChangeAddTable, Table: tableName}
	}
	return result
}

func authorizeDropTable(stmt *pg_query.DropStmt, idx *Index, datastoreID string) AuthorizedStatement {
	if stmt.RemoveType != pg_query.ObjectType_OBJECT_TABLE || len(stmt.Objects) != 1 {
		return AuthorizedStatement{Kind: StmtDrop, Allowed: false}
	}
	tableName, ok := objectName(stmt.Objects[0])
	if !ok {
		return AuthorizedStatement{Kind: StmtDrop, Allowed: false}
	}
	allowed := idx.HasTable(datastoreID, tableName, ActionTableDrop)
	result := AuthorizedStatement{Kind: StmtDrop, Allowed: allowed, IsDDL: true}
	if allowed {
		result.Operation = &SchemaChangeOperation{Kind: ChangeDropTable, Table: tableName}
	}
	return result
}

func objectName(n *pg_query.Node) (string, bool) {
	listNode, ok := n.Node.(*pg_query.Node_List)
	if !ok || len(listNode.List.Items) == 0 {
		return "", false
	}
	last := listNode.List.Items[len(listNode.List.Items)-1]
	strNode, ok := last.Node.(*pg_query.Node_String_)
	if !ok {
		return "", false
	}
	return strNode.String_.Sval, true
}

// authorizeAlterTable handles ADD COLUMN / DROP COLUMN forms; RENAME TO and
// RENAME COLUMN parse as a separate RenameStmt node (see authorizeRename).
func authorizeAlterTable(stmt *pg_query.AlterTableStmt, idx *Index, datastoreID string) AuthorizedStatement {
	if stmt.Relation == nil || len(stmt.Cmds) != 1 {
		return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
	}
	tableName := stmt.Relation.Relname
	cmdNode, ok := stmt.Cmds[0].Node.(*pg_query.Node_AlterTableCmd)
	if !ok {
		return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
	}
	cmd := cmdNode.AlterTableCmd

	if !idx.HasTable(datastoreID, tableName, ActionTableSchemaChange) {
		return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
	}

	switch cmd.Subtype {
	case pg_query.AlterTableType_AT_AddColumn:
		colDefNode, ok := cmd.Def.Node.(*pg_query.Node_ColumnDef)
		if !ok {
			return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
		}
		colName := colDefNode.ColumnDef.Colname
		if !idx.HasColumn(datastoreID, tableName, colName, ActionColumnInsert) {
			return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
		}
		dbType, fk := columnDefType(colDefNode.ColumnDef)
		return AuthorizedStatement{
			Kind: StmtAlter, Allowed: true, IsDDL: true,
			Operation: &SchemaChangeOperation{Kind: ChangeAddColumn, Table: tableName, Column: colName, DBType: dbType, ForeignKey: fk},
		}

	case pg_query.AlterTableType_AT_DropColumn:
		colName := cmd.Name
		if !idx.HasColumn(datastoreID, tableName, colName, ActionColumnDrop) {
			return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
		}
		return AuthorizedStatement{
			Kind: StmtAlter, Allowed: true, IsDDL: true,
			Operation: &SchemaChangeOperation{Kind: ChangeDropColumn, Table: tableName, Column: colName},
		}

	default:
		return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
	}
}

func columnDefType(def *pg_query.ColumnDef) (DBType, *ForeignKey) {
	dbType := TypeText
	if def.TypeName != nil && len(def.TypeName.Names) > 0 {
		if s, ok := def.TypeName.Names[len(def.TypeName.Names)-1].Node.(*pg_query.Node_String_); ok {
			dbType = sqlTypeToDBType(s.String_.Sval)
		}
	}

	var fk *ForeignKey
	for _, c := range def.Constraints {
		cons, ok := c.Node.(*pg_query.Node_Constraint)
		if !ok || cons.Constraint.Contype != pg_query.ConstrType_CONSTR_FOREIGN {
			continue
		}
		if cons.Constraint.Pktable == nil {
			continue
		}
		fk = &ForeignKey{Table: cons.Constraint.Pktable.Relname}
		if len(cons.Constraint.PkAttrs) > 0 {
			if s, ok := cons.Constraint.PkAttrs[0].Node.(*pg_query.Node_String_); ok {
				fk.Column = s.String_.Sval
			}
		}
	}
	return dbType, fk
}

func sqlTypeToDBType(name string) DBType {
	switch name {
	case "int", "int4", "int8", "integer", "bigint", "smallint", "serial", "bigserial":
		return TypeInteger
	case "float4", "float8", "real", "double", "numeric", "decimal":
		return TypeReal
	case "bytea", "blob":
		return TypeBlob
	default:
		return TypeText
	}
}

// authorizeRename handles both "ALTER TABLE t RENAME TO new" and
// "ALTER TABLE t RENAME COLUMN c TO new", which pg_query_go parses into a
// single RenameStmt rather than an AlterTableCmd.
func authorizeRename(stmt *pg_query.RenameStmt, idx *Index, datastoreID string) AuthorizedStatement {
	if stmt.Relation == nil {
		return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
	}
	tableName := stmt.Relation.Relname
	if !idx.HasTable(datastoreID, tableName, ActionTableSchemaChange) {
		return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
	}

	switch stmt.RenameType {
	case pg_query.ObjectType_OBJECT_TABLE:
		if !idx.HasTable(datastoreID, tableName, ActionTableRename) {
			return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
		}
		return AuthorizedStatement{
			Kind: StmtAlter, Allowed: true, IsDDL: true,
			Operation: &SchemaChangeOperation{Kind: ChangeRenameTable, Table: tableName, NewName: stmt.Newname},
		}

	case pg_query.ObjectType_OBJECT_COLUMN:
		oldName := stmt.Subname
		if !idx.HasColumn(datastoreID, tableName, oldName, ActionColumnRename) {
			return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
		}
		return AuthorizedStatement{
			Kind: StmtAlter, Allowed: true, IsDDL: true,
			Operation: &SchemaChangeOperation{Kind: ChangeRenameColumn, Table: tableName, Column: oldName, NewName: stmt.Newname},
		}

	default:
		return AuthorizedStatement{Kind: StmtAlter, Allowed: false}
	}
}
