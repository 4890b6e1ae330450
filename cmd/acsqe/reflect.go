package main

import (
	"fmt"

	"github.com/acsqe/acsqe"
	"github.com/acsqe/acsqe/internal/reflector"
	"github.com/spf13/cobra"
)

var (
	reflectDatastore   string
	reflectPermissions string
)

func init() {
	reflectCmd.Flags().StringVar(&reflectDatastore, "datastore", "", "datastore id (required)")
	reflectCmd.Flags().StringVar(&reflectPermissions, "permissions", "", "path to a permission-row JSON fixture; omit to see the unfiltered catalog")
	reflectCmd.MarkFlagRequired("datastore")
	rootCmd.AddCommand(reflectCmd)
}

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Reflect a datastore's schema from SQLite, optionally filtered by permission",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDatastore(ctx, reflectDatastore)
		if err != nil {
			return err
		}
		defer db.Close()

		schema, err := reflector.Reflect(ctx, db)
		if err != nil {
			return fmt.Errorf("reflecting %s: %w", reflectDatastore, err)
		}

		if reflectPermissions != "" {
			idx, err := loadPermissionIndex(reflectPermissions)
			if err != nil {
				return err
			}
			schema = acsqe.FilterSchema(schema, idx, reflectDatastore)
		}

		return printJSON(schema)
	},
}
