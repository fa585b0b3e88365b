package cli

import (
	"fmt"

	"github.com/fabricworks/fabric/engine"
	"github.com/fabricworks/fabric/store"
	"github.com/spf13/cobra"
)

var validateCatalog string

var validateCmd = &cobra.Command{
	Use:   "validate [workflow file]",
	Short: "Check a workflow's readiness without executing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := store.Load(args[0])
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(validateCatalog)
		if err != nil {
			return err
		}

		issues := engine.Validate(wf, catalog, nil, nil)
		if len(issues) == 0 {
			fmt.Printf("%s %s is ready to run (%d nodes, %d connections)\n",
				successStyle.Sprint("✔"), wf.Name, len(wf.Nodes), len(wf.Connections))
			return nil
		}
		for _, issue := range issues {
			fmt.Printf("%s [%s] %s\n", errorStyle.Sprint("✘"), issue.Kind, issue.Message)
		}
		return fmt.Errorf("%d validation issue(s)", len(issues))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateCatalog, "catalog", "", "Tool catalog file (defaults to the built-in catalog)")
}
