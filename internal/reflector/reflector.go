// Package reflector reads a live SQLite catalog and projects it into the
// engine's canonical schema document.
package reflector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/acsqe/acsqe"
)

// autoincrementRe matches a CREATE TABLE column line declaring
// "<col> <type> PRIMARY KEY AUTOINCREMENT", which is the only way SQLite
// exposes AUTOINCREMENT (it is invisible to PRAGMA table_info).
var autoincrementRe = regexp.MustCompile(`(?i)^\s*(\w+)\s+\w+\s+PRIMARY\s+KEY\s+AUTOINCREMENT`)

// Reflect builds the canonical Schema document for the database opened on
// db. Tables named sqlite_* are excluded.
func Reflect(ctx context.Context, db *sql.DB) (acsqe.Schema, error) {
	tableNames, tableSQL, err := listTables(ctx, db)
	if err != nil {
		return nil, &acsqe.Error{Kind: acsqe.KindExecutionFailed, Message: "failed to reflect schema", Err: err}
	}

	schema := make(acsqe.Schema, len(tableNames))
	for _, name := range tableNames {
		autoIncCols := autoincrementColumns(tableSQL[name])

		columns, err := reflectColumns(ctx, db, name, autoIncCols)
		if err != nil {
			return nil, &acsqe.Error{Kind: acsqe.KindExecutionFailed, Message: "failed to reflect schema", Err: fmt.Errorf("reflecting columns for %q: %w", name, err)}
		}

		foreignKeys, err := reflectForeignKeys(ctx, db, name)
		if err != nil {
			return nil, &acsqe.Error{Kind: acsqe.KindExecutionFailed, Message: "failed to reflect schema", Err: fmt.Errorf("reflecting foreign keys for %q: %w", name, err)}
		}
		for col, fk := range foreignKeys {
			if meta, ok := columns[col]; ok {
				meta.ForeignKey = fk
				columns[col] = meta
			}
		}

		schema[name] = columns
	}

	return schema, nil
}

func listTables(ctx context.Context, db *sql.DB) ([]string, map[string]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, sql FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	sqlByName := make(map[string]string)
	for rows.Next() {
		var name string
		var createSQL sql.NullString
		if err := rows.Scan(&name, &createSQL); err != nil {
			return nil, nil, fmt.Errorf("scanning table row: %w", err)
		}
		names = append(names, name)
		sqlByName[name] = createSQL.String
	}
	return names, sqlByName, rows.Err()
}

func autoincrementColumns(createSQL string) map[string]struct{} {
	cols := make(map[string]struct{})
	// Drop the "CREATE TABLE name (" prefix so the first column definition
	// starts its own segment like every other column.
	if i := strings.Index(createSQL, "("); i >= 0 {
		createSQL = createSQL[i+1:]
	}
	for _, line := range strings.Split(createSQL, ",") {
		if m := autoincrementRe.FindStringSubmatch(line); m != nil {
			cols[m[1]] = struct{}{}
		}
	}
	return cols
}

func reflectColumns(ctx context.Context, db *sql.DB, table string, autoIncCols map[string]struct{}) (acsqe.Table, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(acsqe.Table)
	for rows.Next() {
		var cid int
		var name string
		var declType sql.NullString
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}

		meta := acsqe.ColumnMeta{
			Name:    name,
			Order:   cid,
			DBType:  columnAffinity(declType.String),
			NotNull: notNull != 0,
		}
		if dflt.Valid {
			v := dflt.String
			meta.DefaultValue = &v
		}
		if _, ok := autoIncCols[name]; ok {
			meta.AutoIncrement = true
		}
		columns[name] = meta
	}
	return columns, rows.Err()
}

// columnAffinity maps a declared SQLite type to the canonical DBType
// vocabulary. An empty or unrecognized declared type defaults to TEXT,
// SQLite's own affinity default.
func columnAffinity(declared string) acsqe.DBType {
	switch strings.ToUpper(strings.TrimSpace(declared)) {
	case "":
		return acsqe.TypeText
	case "INTEGER", "INT":
		return acsqe.TypeInteger
	case "REAL", "FLOAT", "DOUBLE":
		return acsqe.TypeReal
	case "BLOB":
		return acsqe.TypeBlob
	default:
		if strings.Contains(strings.ToUpper(declared), "INT") {
			return acsqe.TypeInteger
		}
		if strings.Contains(strings.ToUpper(declared), "CHAR") || strings.Contains(strings.ToUpper(declared), "TEXT") || strings.Contains(strings.ToUpper(declared), "CLOB") {
			return acsqe.TypeText
		}
		if strings.Contains(strings.ToUpper(declared), "REAL") || strings.Contains(strings.ToUpper(declared), "FLOA") || strings.Contains(strings.ToUpper(declared), "DOUB") {
			return acsqe.TypeReal
		}
		if strings.Contains(strings.ToUpper(declared), "BLOB") {
			return acsqe.TypeBlob
		}
		return acsqe.TypeText
	}
}

func reflectForeignKeys(ctx context.Context, db *sql.DB, table string) (map[string]*acsqe.ForeignKey, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA foreign_key_list(%q)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]*acsqe.ForeignKey)
	for rows.Next() {
		var id, seq int
		var refTable, from, to string
		var onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		result[from] = &acsqe.ForeignKey{
			Table:    refTable,
			Column:   to,
			OnUpdate: onUpdate,
			OnDelete: onDelete,
		}
	}
	return result, rows.Err()
}
