package main

import (
	"fmt"
	"os"

	"github.com/acsqe/acsqe"
	"github.com/acsqe/acsqe/internal/jsonschema"
	"github.com/spf13/cobra"
)

var ddlRequestPath string

func init() {
	ddlCmd.Flags().StringVar(&ddlRequestPath, "request", "", "path to a schema-change-request JSON document (required)")
	ddlCmd.MarkFlagRequired("request")
	rootCmd.AddCommand(ddlCmd)
}

var ddlCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Render forward and rollback SQL for a schema-change request",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := os.ReadFile(ddlRequestPath)
		if err != nil {
			return fmt.Errorf("reading request %s: %w", ddlRequestPath, err)
		}

		op, err := jsonschema.DecodeSchemaChangeRequest(doc)
		if err != nil {
			return err
		}

		built, err := acsqe.BuildDDL(op)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(built)
		}

		fmt.Println("-- forward")
		fmt.Println(built.Forward)
		if built.Rollback != "" {
			fmt.Println("-- rollback")
			fmt.Println(built.Rollback)
		}
		return nil
	},
}
