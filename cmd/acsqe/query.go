package main

import (
	"database/sql"
	"fmt"

	"github.com/acsqe/acsqe"
	"github.com/acsqe/acsqe/internal/config"
	"github.com/acsqe/acsqe/internal/reflector"
	"github.com/spf13/cobra"
)

var (
	queryDatastore   string
	queryTable       string
	queryPermissions string
	queryFilters     []string
	querySelect      string
	queryOrder       string
	queryLimit       int
	queryOffset      int
)

func init() {
	queryCmd.Flags().StringVar(&queryDatastore, "datastore", "", "datastore id (required)")
	queryCmd.Flags().StringVar(&queryTable, "table", "", "table name (required)")
	queryCmd.Flags().StringVar(&queryPermissions, "permissions", "", "path to a permission-row JSON fixture; omit to skip authorization")
	queryCmd.Flags().StringArrayVar(&queryFilters, "filter", nil, "PostgREST-style filter, e.g. age=gte.18 (repeatable)")
	queryCmd.Flags().StringVar(&querySelect, "select", "", "PostgREST-style select list, e.g. id,name:full_name")
	queryCmd.Flags().StringVar(&queryOrder, "order", "", "PostgREST-style order list, e.g. created_at.desc")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "page size (0 uses the configured default)")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "row offset")
	queryCmd.MarkFlagRequired("datastore")
	queryCmd.MarkFlagRequired("table")
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a PostgREST-style SELECT against a datastore table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDatastore(ctx, queryDatastore)
		if err != nil {
			return err
		}
		defer db.Close()

		schema, err := reflector.Reflect(ctx, db)
		if err != nil {
			return fmt.Errorf("reflecting %s: %w", queryDatastore, err)
		}

		var idx *acsqe.Index
		if queryPermissions != "" {
			idx, err = loadPermissionIndex(queryPermissions)
			if err != nil {
				return err
			}
			schema = acsqe.FilterSchema(schema, idx, queryDatastore)
			if !idx.HasTable(queryDatastore, queryTable, acsqe.ActionTableList) {
				return fmt.Errorf("table %q is not accessible", queryTable)
			}
		}

		table, ok := schema[queryTable]
		if !ok {
			return fmt.Errorf("table %q not found", queryTable)
		}

		validColumns := make(map[string]struct{}, len(table))
		for col := range table {
			if idx != nil && !idx.HasColumn(queryDatastore, queryTable, col, acsqe.ActionColumnSelect) {
				continue
			}
			validColumns[col] = struct{}{}
		}

		params := map[string][]string{}
		for _, f := range queryFilters {
			if eq := indexOfEquals(f); eq >= 0 {
				col := f[:eq]
				params[col] = append(params[col], f[eq+1:])
			}
		}
		if querySelect != "" {
			params["select"] = []string{querySelect}
		}
		if queryOrder != "" {
			params["order"] = []string{queryOrder}
		}

		parsed := acsqe.ParseQuery(params)
		pageSize := queryLimit
		if pageSize <= 0 {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading acsqe.toml: %w", err)
			}
			pageSize = cfg.DefaultPageSize
		}
		if parsed.Paging.Limit > 0 {
			pageSize = parsed.Paging.Limit
		}
		offset := queryOffset
		if parsed.Paging.Offset > 0 {
			offset = parsed.Paging.Offset
		}

		built, err := acsqe.BuildSelect(acsqe.SelectQuery{
			TableName:    queryTable,
			Filters:      parsed.Filters,
			Sort:         parsed.Sort,
			Columns:      parsed.Select,
			PageSize:     pageSize,
			Offset:       offset,
			ValidColumns: validColumns,
		})
		if err != nil {
			return err
		}

		rows, err := db.QueryContext(ctx, built.SQL, built.Params...)
		if err != nil {
			return fmt.Errorf("executing query: %w", err)
		}
		defer rows.Close()

		results, err := scanRows(rows)
		if err != nil {
			return err
		}

		if len(results) > pageSize {
			results = results[:pageSize]
		}

		return printJSON(results)
	},
}

func indexOfEquals(s string) int {
	for i, r := range s {
		if r == '=' {
			return i
		}
	}
	return -1
}

// scanRows decodes a *sql.Rows into column-name-keyed maps, since the
// query builder works against tables whose column sets aren't known at
// compile time.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
