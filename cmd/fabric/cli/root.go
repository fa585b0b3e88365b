// Package cli implements the fabric command line interface.
package cli

import (
	"os"

	"github.com/fabricworks/fabric/slogger"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	logLevel string

	boldStyle    = color.New(color.Bold)
	successStyle = color.New(color.FgGreen)
	errorStyle   = color.New(color.FgRed)
	warnStyle    = color.New(color.FgYellow)
)

var rootCmd = &cobra.Command{
	Use:           "fabric",
	Short:         "Fabric runs generative AI workflows",
	Long:          "Fabric validates and executes node-based generative AI workflows: text, image, speech, and video generation steps wired together on a canvas.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func newLogger() slogger.Logger {
	return slogger.New(slogger.LevelFromString(logLevel))
}

// Execute runs the CLI.
func Execute() {
	// A .env file in the working directory supplies provider credentials.
	godotenv.Load()

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(errorStyle.Sprint(err.Error()) + "\n")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level to use (none, debug, info, warn, error)")
}
