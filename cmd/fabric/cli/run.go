package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/fabricworks/fabric"
	"github.com/fabricworks/fabric/engine"
	"github.com/fabricworks/fabric/store"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

var (
	runNodeID    string
	runModeFlag  string
	runEventsDir string
	runCatalog   string
	runNoSave    bool
)

var runCmd = &cobra.Command{
	Use:   "run [workflow file]",
	Short: "Execute a workflow and record the run in its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		logger := newLogger()

		wf, err := store.Load(path)
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(runCatalog)
		if err != nil {
			return err
		}
		mode, err := parseRunMode(runModeFlag)
		if err != nil {
			return err
		}
		if mode != engine.RunFull && runNodeID == "" {
			return fmt.Errorf("--node is required for mode %q", runModeFlag)
		}

		adapters, err := buildAdapters(cmd.Context(), logger)
		if err != nil {
			return err
		}

		opts := engine.Options{
			Workflow: wf,
			Catalog:  catalog,
			Adapters: adapters,
			Logger:   logger,
			OnNodeStatus: func(nodeID string, status fabric.NodeStatus, errorMessage string) {
				switch status {
				case fabric.StatusRunning:
					fmt.Printf("%s %s\n", warnStyle.Sprint("▸"), nodeID)
				case fabric.StatusSuccess:
					fmt.Printf("%s %s\n", successStyle.Sprint("✔"), nodeID)
				case fabric.StatusError:
					fmt.Printf("%s %s: %s\n", errorStyle.Sprint("✘"), nodeID, errorMessage)
				}
			},
		}
		if runEventsDir != "" {
			opts.EventStore = engine.NewFileEventStore(runEventsDir)
		}
		runner, err := engine.New(opts)
		if err != nil {
			return err
		}

		run, err := runner.Run(cmd.Context(), runNodeID, mode)
		if err != nil {
			var validationErr *engine.ValidationError
			if errors.As(err, &validationErr) {
				fmt.Println(errorStyle.Sprint("Workflow is not ready to run:"))
				for _, issue := range validationErr.Issues {
					fmt.Printf("  [%s] %s\n", issue.Kind, issue.Message)
				}
				return fmt.Errorf("%d validation issue(s)", len(validationErr.Issues))
			}
			// The workflow keeps node error states even though the failed
			// run is not committed; persist them for inspection.
			if !runNoSave {
				if saveErr := store.Save(wf, path); saveErr != nil {
					logger.Warn("failed to save workflow", "error", saveErr)
				}
			}
			return err
		}

		printRunSummary(run)
		if !runNoSave {
			if err := store.Save(wf, path); err != nil {
				return fmt.Errorf("run completed but saving failed: %w", err)
			}
		}
		return nil
	},
}

func parseRunMode(mode string) (engine.RunMode, error) {
	switch mode {
	case "", "full":
		return engine.RunFull, nil
	case "this-only":
		return engine.RunThisOnly, nil
	case "from-here":
		return engine.RunFromHere, nil
	default:
		return "", fmt.Errorf("unknown run mode: %s (use full, this-only, or from-here)", mode)
	}
}

func loadCatalog(path string) (*fabric.Catalog, error) {
	if path == "" {
		return fabric.DefaultCatalog(), nil
	}
	return fabric.LoadCatalog(path)
}

func printRunSummary(run *fabric.GenerationRun) {
	fmt.Println()
	fmt.Println(boldStyle.Sprintf("Run %s completed in %s", run.ID, run.TotalTime.Round(time.Millisecond)))
	for _, node := range run.NodesSnapshot {
		value, ok := run.Outputs[node.ID]
		if !ok {
			continue
		}
		fmt.Printf("  %s (%s)\n", boldStyle.Sprint(node.ID), node.ExecutionTime.Round(time.Millisecond))
		if value.Fields != nil {
			for field, text := range value.Fields {
				fmt.Printf("    %s: %s\n", field, truncate(text))
			}
		} else {
			fmt.Printf("    %s\n", truncate(value.Scalar))
		}
	}
}

func truncate(s string) string {
	return runewidth.Truncate(s, 80, "…")
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runNodeID, "node", "n", "", "Target node id for partial run modes")
	runCmd.Flags().StringVarP(&runModeFlag, "mode", "m", "full", "Run mode: full, this-only, or from-here")
	runCmd.Flags().StringVar(&runEventsDir, "events-dir", "", "Directory for run event logs (JSON Lines, one file per run)")
	runCmd.Flags().StringVar(&runCatalog, "catalog", "", "Tool catalog file (defaults to the built-in catalog)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not write the updated workflow back to disk")
}
