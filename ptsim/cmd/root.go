// Package cmd provides the command-line interface of ptsim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ptsim",
	Short: "ptsim replays memory access traces against a simulated page table.",
	Long: `ptsim replays memory access traces against a simulated page ` +
		`table. Page faults are resolved by a built-in handler, and the ` +
		`activity of the table can be logged, recorded into SQLite, and ` +
		`inspected through a web monitor.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		return loadEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env",
		"File to load PTSIM_* variables from, if it exists.")
	rootCmd.PersistentFlags().String("log-level", "",
		"Log level: debug, info, warn or error.")
	rootCmd.PersistentFlags().String("log-format", "",
		"Log format: console or json.")
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
