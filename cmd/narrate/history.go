package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-narrate/internal/eventstore"
	"github.com/loqalabs/loqa-narrate/internal/protocol"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled conversions",
	Long: `History lists past conversions, newest first. With --run it shows the
event timeline of one conversion instead, including which chunks failed and
why.

Runs are only journaled when event_store.retention_mode is session or
persistent; the default ephemeral mode keeps nothing.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs or events to show")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show the events of the run with this ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	store, err := eventstore.Open(cmd.Context(), cfg.EventStore, logger)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close event store", slog.String("error", err.Error()))
		}
	}()

	if !store.Enabled() {
		fmt.Fprintln(out, "Run journal disabled (event_store.retention_mode is ephemeral).")
		return nil
	}

	r := lipgloss.NewRenderer(out)
	if historyRun != "" {
		return printRunEvents(cmd, store, r, historyRun)
	}

	runs, err := store.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No conversions recorded yet.")
		return nil
	}

	header := r.NewStyle().Bold(true)
	failed := r.NewStyle().Foreground(lipgloss.Color("9"))
	ok := r.NewStyle().Foreground(lipgloss.Color("10"))

	fmt.Fprintln(out, header.Render(fmt.Sprintf("%-36s  %-19s  %-11s  %-7s  %6s  %s", "RUN", "STARTED", "STATUS", "VOICE", "FILES", "DOCUMENT")))
	for _, run := range runs {
		style := ok
		if run.Status != "completed" || run.Failed > 0 {
			style = failed
		}
		fmt.Fprintf(out, "%-36s  %-19s  %s  %-7s  %6s  %s\n",
			run.RunID,
			run.CreatedAt.Local().Format(time.DateTime),
			style.Render(fmt.Sprintf("%-11s", run.Status)),
			run.Voice,
			fmt.Sprintf("%d/%d", run.Written, run.Chunks),
			run.Document,
		)
	}
	return nil
}

func printRunEvents(cmd *cobra.Command, store *eventstore.Store, r *lipgloss.Renderer, runID string) error {
	out := cmd.OutOrStdout()
	events, err := store.ListRunEvents(cmd.Context(), runID, historyLimit)
	if err != nil {
		return fmt.Errorf("list run events: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("no events recorded for run %q", runID)
	}

	header := r.NewStyle().Bold(true)
	failed := r.NewStyle().Foreground(lipgloss.Color("9"))

	fmt.Fprintln(out, header.Render(fmt.Sprintf("%-19s  %-18s  %5s  %s", "TIME", "EVENT", "CHUNK", "DETAIL")))
	for _, e := range events {
		chunk := "-"
		if e.ChunkIndex > 0 {
			chunk = fmt.Sprintf("%d", e.ChunkIndex)
		}
		typ := fmt.Sprintf("%-18s", e.Type)
		detail := ""
		if evt, err := protocol.Decode(e.Payload); err == nil {
			detail = eventDetail(evt)
			if evt.Error != "" {
				typ = failed.Render(typ)
			}
		}
		fmt.Fprintf(out, "%-19s  %s  %5s  %s\n", e.CreatedAt.Local().Format(time.DateTime), typ, chunk, detail)
	}
	return nil
}

func eventDetail(evt protocol.Event) string {
	switch {
	case evt.Error != "" && evt.Stage != "":
		return fmt.Sprintf("%s: %s", evt.Stage, evt.Error)
	case evt.Error != "":
		return evt.Error
	case evt.Type == protocol.EventRunStarted:
		return fmt.Sprintf("%s (voice %s)", evt.Document, evt.Voice)
	case evt.Type == protocol.EventTextChunked:
		return fmt.Sprintf("%d characters in %d chunks", evt.Chars, evt.ChunkCount)
	case evt.File != "":
		return fmt.Sprintf("%s (%d bytes)", evt.File, evt.Bytes)
	}
	return ""
}
