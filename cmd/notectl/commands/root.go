package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"talknote-go/internal/app"
	"talknote-go/internal/config"
	"talknote-go/internal/logger"
)

var (
	// Global flags
	verbose bool
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "notectl",
	Short: "Admin CLI for the talknote service",
	Long: `notectl - process recordings and manage notes and styles offline.

Configuration comes from the environment (and .env), the same way the API
server reads it. Set USE_MOCK_TRANSCRIBE=true and USE_MOCK_LLM=true to run
without cloud credentials.

Examples:
  notectl styles import styles.xlsx
  notectl process standup.m4a --style Minutes
  notectl notes export -o notes.xlsx`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			return godotenv.Load(envFile)
		}
		_ = godotenv.Load()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment from this file instead of .env")

	rootCmd.AddCommand(processCmd, transcribeCmd, stylesCmd, notesCmd)
}

// openApp wires the application the way the server does. Callers must Close it.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New()
	if verbose {
		log.Logger.SetLevel(logrus.DebugLevel)
	}
	return app.New(ctx, cfg, log)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}
