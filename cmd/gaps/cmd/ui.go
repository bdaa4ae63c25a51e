package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/theakshaypant/gaps/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Browse your free time interactively",
	Long:  `Launch a terminal UI that shows each day's events and free time side by side.`,
	RunE:  runUI,
}

func init() {
	uiCmd.Flags().Bool("freebusy", false, "Use the provider's free/busy query (Google only)")
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	window, err := buildWindow(time.Now())
	if err != nil {
		return err
	}
	filter, err := buildFetchOptions(adapter.Calendars())
	if err != nil {
		return err
	}
	useFreeBusy, _ := cmd.Flags().GetBool("freebusy")

	m := tui.NewModel(planLoader(window, filter, useFreeBusy), window.Reference, window.HorizonDays)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
