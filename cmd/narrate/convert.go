package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-narrate/internal/prompt"
	"github.com/loqalabs/loqa-narrate/internal/runtime"
	"github.com/loqalabs/loqa-narrate/internal/tts"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdf]",
	Short: "Convert a PDF into audio files (default command)",
	Long: `Convert extracts the text of a PDF and narrates it chunk by chunk.

The document path and the voice are asked interactively unless they are given
as argument and flag. Files are written as part_1.mp3, part_2.mp3, ... into the
configured output directory. A chunk that fails is reported and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	addConvertFlags(convertCmd)
}

func addConvertFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&voiceName, "voice", "", "voice name (alloy, echo, fable, onyx, nova, shimmer); prompts when empty")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "never prompt; use the configured default voice when --voice is empty")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	ask := prompt.New(cmd.InOrStdin(), out)

	path, err := resolvePath(ctx, ask, args)
	if err != nil {
		return err
	}

	voice, err := resolveVoice(ctx, ask, cfg.Synth.DefaultVoice)
	if err != nil {
		return err
	}

	rt, err := runtime.New(ctx, cfg, logger, runtime.Options{Progress: out})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			logger.Warn("runtime shutdown", slog.String("error", err.Error()))
		}
	}()

	report, err := rt.Convert(ctx, path, voice)
	if err != nil {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	if len(report.Failures) > 0 {
		fmt.Fprintf(out, "%d of %d chunks failed\n", len(report.Failures), report.Chunks)
	}
	return nil
}

func resolvePath(ctx context.Context, ask prompt.Prompter, args []string) (string, error) {
	if len(args) == 1 {
		return prompt.CleanPath(args[0]), nil
	}
	if noPrompt {
		return "", errors.New("a PDF path is required with --no-prompt")
	}
	return ask.DocumentPath(ctx)
}

func resolveVoice(ctx context.Context, ask prompt.Prompter, configured string) (tts.Voice, error) {
	if voiceName != "" {
		return tts.ParseVoice(voiceName)
	}
	if noPrompt {
		if voice, err := tts.ParseVoice(configured); err == nil {
			return voice, nil
		}
		return tts.DefaultVoice, nil
	}
	return ask.Voice(ctx)
}
