package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-narrate/internal/config"
	"github.com/loqalabs/loqa-narrate/internal/runtime"
)

var (
	// Global flags
	cfgFile string

	// Convert flags
	voiceName string
	noPrompt  bool
)

// errReported marks failures whose message was already shown to the user.
var errReported = errors.New("conversion failed")

// rootCmd converts a document when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "narrate [pdf]",
	Short: "Turn a PDF into narrated audio files",
	Long: `narrate extracts the text of a PDF, splits it into chunks and sends each
chunk to a speech service, writing one audio file per chunk.

Examples:
  # Prompt for the document and the voice
  narrate

  # Convert a file with a given voice
  narrate convert book.pdf --voice nova

  # Dry run without calling the speech service
  NARRATE_SYNTH_MODE=mock narrate book.pdf
`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runConvert,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "config file")
	addConvertFlags(rootCmd)

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(voicesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

const defaultConfigFile = "narrate.yaml"

// loadConfig reads the config file, which is optional unless --config was
// given explicitly. tolerateCredential lets commands that never synthesize
// run without an API key.
func loadConfig(cmd *cobra.Command, tolerateCredential bool) (config.Config, *slog.Logger, error) {
	required := cmd.Flags().Changed("config")
	cfg, err := config.Load(cfgFile, required)
	if err != nil && !(tolerateCredential && errors.Is(err, config.ErrMissingCredential)) {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, runtime.NewLogger(cfg.Telemetry, os.Stderr), nil
}
