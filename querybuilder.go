package acsqe

import (
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// RowIdentityColumn is the synthetic projection of SQLite's rowid used as a
// stable row identity in CRUD responses.
const RowIdentityColumn = "_rowid"

// rowIdentityWireAlias is the alternate spelling accepted on the wire for
// the same logical column, used in filter/sort/set expressions.
const rowIdentityWireAlias = "_rowid_"

func normalizeRowIdentity(column string) string {
	if column == RowIdentityColumn || column == rowIdentityWireAlias {
		return "rowid"
	}
	return column
}

func isRowIdentity(column string) bool {
	return column == RowIdentityColumn || column == rowIdentityWireAlias
}

// SelectQuery is the input to BuildSelect.
type SelectQuery struct {
	TableName   string
	Filters     []Filter
	Sort        []Sort
	PageSize    int
	Offset      int
	Columns     []string
	ValidColumns map[string]struct{}
}

// BuiltQuery is the parameterized output of any C6 entrypoint.
type BuiltQuery struct {
	SQL    string
	Params []any
}

func validateTableName(name string) error {
	if !identRe.MatchString(name) {
		return newError(KindInvalidIdentifier, "invalid table name %q", name)
	}
	return nil
}

func validateColumn(column string, whitelist map[string]struct{}) error {
	if isRowIdentity(column) {
		return nil
	}
	if _, ok := whitelist[column]; !ok {
		return newError(KindUnknownColumn, "unknown column %q", column)
	}
	return nil
}

var filterOpSQL = map[FilterOp]string{
	OpEq: "=", OpNe: "<>", OpGt: ">", OpGte: ">=", OpLt: "<", OpLte: "<=",
}

// BuildSelect builds a parameterized SELECT. Emits "SELECT *, rowid AS
// _rowid" when Columns is empty, otherwise the listed columns plus the
// rowid alias. LIMIT is always PageSize+1 (the has-more probe): the
// executor looks at the returned row count and truncates to PageSize if it
// exceeds it.
func BuildSelect(q SelectQuery) (BuiltQuery, error) {
	if err := validateTableName(q.TableName); err != nil {
		return BuiltQuery{}, err
	}

	var sb strings.Builder
	var params []any

	sb.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		sb.WriteString("*, rowid AS _rowid")
	} else {
		for i, col := range q.Columns {
			if err := validateColumn(col, q.ValidColumns); err != nil {
				return BuiltQuery{}, err
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteIdent(col))
		}
		sb.WriteString(", rowid AS _rowid")
	}

	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(q.TableName))

	if len(q.Filters) > 0 {
		sb.WriteString(" WHERE ")
		for i, f := range q.Filters {
			if err := validateColumn(f.Column, q.ValidColumns); err != nil {
				return BuiltQuery{}, err
			}
			if i > 0 {
				sb.WriteString(" AND ")
			}
			clause, clauseParams, err := renderFilter(f)
			if err != nil {
				return BuiltQuery{}, err
			}
			sb.WriteString(clause)
			params = append(params, clauseParams...)
		}
	}

	if len(q.Sort) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, s := range q.Sort {
			if err := validateColumn(s.Column, q.ValidColumns); err != nil {
				return BuiltQuery{}, err
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteSortColumn(s.Column))
			sb.WriteString(" ")
			sb.WriteString(string(s.Direction))
		}
	}

	pageSize := q.PageSize
	sb.WriteString(" LIMIT ? OFFSET ?")
	params = append(params, pageSize+1, q.Offset)

	return BuiltQuery{SQL: sb.String(), Params: params}, nil
}

func quoteSortColumn(column string) string {
	if isRowIdentity(column) {
		return "rowid"
	}
	return quoteIdent(column)
}

func renderFilter(f Filter) (string, []any, error) {
	column := quoteSortColumn(f.Column)

	switch f.Op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		return column + " " + filterOpSQL[f.Op] + " ?", []any{f.Value}, nil
	case OpLike:
		return column + " LIKE ?", []any{f.Value}, nil
	case OpIlike:
		return column + " LIKE ? COLLATE NOCASE", []any{f.Value}, nil
	case OpIn:
		values, ok := f.Value.([]string)
		if !ok || len(values) == 0 {
			return "", nil, newError(KindInvalidFilter, "IN requires a non-empty value list")
		}
		placeholders := make([]string, len(values))
		params := make([]any, len(values))
		for i, v := range values {
			placeholders[i] = "?"
			params[i] = v
		}
		return column + " IN (" + strings.Join(placeholders, ", ") + ")", params, nil
	case OpIs:
		switch f.Value {
		case nil:
			return column + " IS NULL", nil, nil
		case true:
			return column + " IS TRUE", nil, nil
		case false:
			return column + " IS FALSE", nil, nil
		default:
			return "", nil, newError(KindInvalidFilter, "unsupported IS value")
		}
	default:
		return "", nil, newError(KindInvalidFilter, "unsupported operator %q", f.Op)
	}
}

// UpdateQuery is the input to BuildUpdate.
type UpdateQuery struct {
	TableName    string
	Set          map[string]any
	Where        []Filter
	ValidColumns map[string]struct{}
}

// BuildUpdate builds a parameterized UPDATE ... RETURNING. Requires a
// non-empty Set and a non-empty Where (guards against mass updates); SET
// columns validate against ValidColumns ∪ {"_rowid", "_rowid_"}, the latter
// being the PostgREST convention used on the wire.
func BuildUpdate(q UpdateQuery) (BuiltQuery, error) {
	if err := validateTableName(q.TableName); err != nil {
		return BuiltQuery{}, err
	}
	if len(q.Set) == 0 {
		return BuiltQuery{}, newError(KindGuardViolation, "UPDATE requires a non-empty SET")
	}
	if len(q.Where) == 0 {
		return BuiltQuery{}, newError(KindGuardViolation, "UPDATE requires a non-empty WHERE")
	}

	var sb strings.Builder
	var params []any

	sb.WriteString("UPDATE ")
	sb.WriteString(quoteIdent(q.TableName))
	sb.WriteString(" SET ")

	setCols := sortedKeys(q.Set)
	for i, col := range setCols {
		if err := validateColumn(col, q.ValidColumns); err != nil {
			return BuiltQuery{}, err
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quoteSortColumn(col))
		sb.WriteString(" = ?")
		params = append(params, q.Set[col])
	}

	sb.WriteString(" WHERE ")
	for i, f := range q.Where {
		if err := validateColumn(f.Column, q.ValidColumns); err != nil {
			return BuiltQuery{}, err
		}
		if i > 0 {
			sb.WriteString(" AND ")
		}
		clause, clauseParams, err := renderFilter(f)
		if err != nil {
			return BuiltQuery{}, err
		}
		sb.WriteString(clause)
		params = append(params, clauseParams...)
	}

	sb.WriteString(" RETURNING *, rowid AS _rowid")

	return BuiltQuery{SQL: sb.String(), Params: params}, nil
}

// DeleteQuery is the input to BuildDelete. Deletion is always by explicit
// rowid list, never by arbitrary filter, to keep the guard simple and the
// caller's intent unambiguous.
type DeleteQuery struct {
	TableName string
	RowIDs    []int64
}

// BuildDelete builds a parameterized "DELETE ... WHERE rowid IN (...)".
func BuildDelete(q DeleteQuery) (BuiltQuery, error) {
	if err := validateTableName(q.TableName); err != nil {
		return BuiltQuery{}, err
	}
	if len(q.RowIDs) == 0 {
		return BuiltQuery{}, newError(KindGuardViolation, "DELETE requires a non-empty rowid list")
	}

	placeholders := make([]string, len(q.RowIDs))
	params := make([]any, len(q.RowIDs))
	for i, id := range q.RowIDs {
		placeholders[i] = "?"
		params[i] = id
	}

	sql := "DELETE FROM " + quoteIdent(q.TableName) + " WHERE rowid IN (" + strings.Join(placeholders, ", ") + ")"
	return BuiltQuery{SQL: sql, Params: params}, nil
}

// InsertQuery is the input to BuildInsert. All rows must share the same key
// set, derived from the first row.
type InsertQuery struct {
	TableName    string
	Rows         []map[string]any
	ValidColumns map[string]struct{}
}

// InsertStatement is one prepared INSERT statement; the caller executes it
// once per row inside a single write transaction.
type InsertStatement struct {
	SQL     string
	Columns []string
}

// BuildInsert validates identifiers and rows, then returns the single
// prepared INSERT statement shape plus the per-row parameter lists in
// order. Execution (including the transaction and the post-insert
// last_inserted_rowid lookup) is the caller's responsibility.
func BuildInsert(q InsertQuery) (InsertStatement, [][]any, error) {
	if err := validateTableName(q.TableName); err != nil {
		return InsertStatement{}, nil, err
	}
	if len(q.Rows) == 0 {
		return InsertStatement{}, nil, newError(KindGuardViolation, "INSERT requires at least one row")
	}

	columns := sortedKeys(q.Rows[0])
	for _, col := range columns {
		if err := validateColumn(col, q.ValidColumns); err != nil {
			return InsertStatement{}, nil, err
		}
	}

	quotedCols := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quotedCols[i] = quoteIdent(col)
		placeholders[i] = "?"
	}

	allParams := make([][]any, len(q.Rows))
	for i, row := range q.Rows {
		if len(row) != len(columns) {
			return InsertStatement{}, nil, newError(KindInvalidFilter, "row %d has a different key set than the first row", i)
		}
		params := make([]any, len(columns))
		for j, col := range columns {
			v, ok := row[col]
			if !ok {
				return InsertStatement{}, nil, newError(KindInvalidFilter, "row %d missing column %q present in the first row", i, col)
			}
			params[j] = v
		}
		allParams[i] = params
	}

	sql := "INSERT INTO " + quoteIdent(q.TableName) + " (" + strings.Join(quotedCols, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	return InsertStatement{SQL: sql, Columns: columns}, allParams, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
