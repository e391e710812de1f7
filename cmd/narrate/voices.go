package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-narrate/internal/tts"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the available voices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		r := lipgloss.NewRenderer(out)
		number := r.NewStyle().Bold(true).Width(3)
		name := r.NewStyle().Foreground(lipgloss.Color("12")).Width(8)
		desc := r.NewStyle().Faint(true)

		for i, info := range tts.Voices {
			fmt.Fprintln(out, lipgloss.JoinHorizontal(lipgloss.Top,
				number.Render(fmt.Sprintf("%d.", i+1)),
				name.Render(info.Voice.String()),
				desc.Render(info.Description),
			))
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}
