package main

import (
	"fmt"
	"os"

	"github.com/acsqe/acsqe"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	authorizeDatastore   string
	authorizePermissions string
	authorizeSQL         string
)

func init() {
	authorizeCmd.Flags().StringVar(&authorizeDatastore, "datastore", "", "datastore id (required)")
	authorizeCmd.Flags().StringVar(&authorizePermissions, "permissions", "", "path to a permission-row JSON fixture (required)")
	authorizeCmd.Flags().StringVar(&authorizeSQL, "sql", "", "raw SQL text to authorize (required)")
	authorizeCmd.MarkFlagRequired("datastore")
	authorizeCmd.MarkFlagRequired("permissions")
	authorizeCmd.MarkFlagRequired("sql")
	rootCmd.AddCommand(authorizeCmd)
}

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Authorize raw SQL text against a permission set without executing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadPermissionIndex(authorizePermissions)
		if err != nil {
			return err
		}

		statements, err := acsqe.Authorize(authorizeSQL, idx, authorizeDatastore)
		if err != nil {
			return fmt.Errorf("parsing SQL: %w", err)
		}

		denied := false
		for _, s := range statements {
			if !s.Allowed {
				denied = true
			}
		}

		if jsonOutput {
			if err := printJSON(statements); err != nil {
				return err
			}
		} else {
			for _, s := range statements {
				label := color.New(color.FgGreen).Sprint("ALLOW")
				if !s.Allowed {
					label = color.New(color.FgRed).Sprint("DENY")
				}
				fmt.Fprintf(os.Stdout, "%s %s\n", label, s.Kind)
			}
		}

		if denied {
			os.Exit(1)
		}
		return nil
	},
}
