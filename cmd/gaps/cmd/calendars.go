package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

var calendarsCmd = &cobra.Command{
	Use:     "calendars",
	Aliases: []string{"cal", "cals"},
	Short:   "List available calendars",
	Long:    `List the calendars the provider can read. Pass names or IDs to --calendars to limit which ones count as busy.`,
	RunE:    runCalendars,
}

func init() {
	rootCmd.AddCommand(calendarsCmd)
}

func runCalendars(cmd *cobra.Command, args []string) error {
	printCalendars(cmd.OutOrStdout(), adapter.Calendars())
	return nil
}

func printCalendars(w io.Writer, calendars map[string]string) {
	ids := make([]string, 0, len(calendars))
	for id := range calendars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return calendars[ids[i]] < calendars[ids[j]] })

	fmt.Fprintln(w, "📅 Available calendars:")
	fmt.Fprintln(w, separator)

	for _, id := range ids {
		fmt.Fprintf(w, "\n  • %s\n", calendars[id])
		fmt.Fprintf(w, "    ID: %s\n", id)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d calendars\n", len(calendars))
	fmt.Fprintln(w, "\nTip: Use 'gaps -c \"calendar name\"' to count only some calendars as busy")
}
