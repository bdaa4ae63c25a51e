package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/gaps/internal/core"
	"github.com/theakshaypant/gaps/internal/util"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"ls"},
	Short:   "List the events read for the planning window",
	Long: `List every event the free-time calculation reads, in start order.
Events that never block time (declined, all-day, working location) are marked.`,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	window, err := buildWindow(time.Now())
	if err != nil {
		return err
	}
	opts, err := buildFetchOptions(adapter.Calendars())
	if err != nil {
		return err
	}
	opts.Start, opts.End, err = core.WindowRange(window)
	if err != nil {
		return err
	}
	// Show what the calculator drops too; it is marked below.
	opts.ExcludeAllDay = false
	opts.IncludeTypes = nil
	if !viper.GetBool("accepted") {
		opts.IncludeStatuses = nil
	}

	events, err := adapter.FetchEvents(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	printEvents(cmd.OutOrStdout(), events, opts.Start, opts.End)
	return nil
}

func printEvents(w io.Writer, events []core.Event, start, end time.Time) {
	fmt.Fprintf(w, "📅 Events from %s to %s:\n", start.Format("Jan 2"), end.Add(-time.Minute).Format("Jan 2"))
	fmt.Fprintln(w, separator)

	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	busy := 0
	for _, event := range events {
		_, blocks := event.Busy()
		if blocks {
			busy++
		}
		printEvent(w, event, blocks)
	}

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Total: %d events, %d busy\n", len(events), busy)
}

func printEvent(w io.Writer, event core.Event, blocks bool) {
	title := event.Title
	if title == "" {
		title = "(no title)"
	}
	if label := formatEventType(event.Type); label != "" {
		title = fmt.Sprintf("[%s] %s", label, title)
	}
	if event.URL != "" {
		title = util.MakeHyperlink(event.URL, title)
	}
	fmt.Fprintf(w, "\n%s\n", title)

	fmt.Fprintf(w, "  🕐 %s", formatEventTime(event.Start, event.End, event.IsAllDay))
	if !event.IsAllDay && !event.Start.IsZero() && !event.End.IsZero() {
		fmt.Fprintf(w, " (%s)", formatDurationCompact(event.Duration()))
	}
	fmt.Fprintln(w)

	if event.Calendar.Name != "" {
		fmt.Fprintf(w, "  📅 %s\n", event.Calendar.Name)
	}
	fmt.Fprintf(w, "  📊 %s", formatStatus(event.Status))
	if !blocks {
		fmt.Fprint(w, "  (not busy)")
	}
	fmt.Fprintln(w)
}

func formatEventTime(start, end time.Time, isAllDay bool) string {
	if start.IsZero() || end.IsZero() {
		return "time unknown"
	}

	if isAllDay {
		if end.Sub(start) <= 24*time.Hour {
			return start.Format("Mon, Jan 2") + " (all day)"
		}
		return fmt.Sprintf("%s - %s (all day)", start.Format("Mon, Jan 2"), end.AddDate(0, 0, -1).Format("Mon, Jan 2"))
	}

	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return fmt.Sprintf("%s, %s - %s", start.Format("Mon, Jan 2"), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format("Mon, Jan 2 15:04"), end.Format("Mon, Jan 2 15:04"))
}

func formatStatus(status core.EventStatus) string {
	switch status {
	case core.StatusAccepted:
		return "Accepted ✓"
	case core.StatusRejected:
		return "Declined ✗"
	case core.StatusTentative:
		return "Tentative ?"
	case core.StatusAwaiting:
		return "Awaiting response"
	case core.StatusNoResponse:
		return "No response needed"
	default:
		return "Unknown"
	}
}

func formatEventType(t core.EventType) string {
	switch t {
	case core.TypeOutOfOffice:
		return "🏖️ OOO"
	case core.TypeFocusTime:
		return "🎯 Focus"
	case core.TypeWorkLocation:
		return "🏠 Location"
	default:
		return ""
	}
}
