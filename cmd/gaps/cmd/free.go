package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/theakshaypant/gaps/internal/core"
	"github.com/theakshaypant/gaps/internal/freetime"
)

const separator = "─────────────────────────────────────────────────"

var freeCmd = &cobra.Command{
	Use:   "free",
	Short: "Show the free time between your events",
	Long: `Show the gaps between busy events inside your active hours.

Only events that start within the planning window are read. Declined events,
all-day events and working-location entries never count as busy.

Examples:
  gaps free                         # Next 7 days, 07:00-21:00
  gaps free --days 3 --day-end 18   # Shorter days, shorter horizon
  gaps free --from monday --json    # Machine-readable output
  gaps free --freebusy              # Google free/busy only, no event details`,
	RunE: runFree,
}

// freeBusySource is implemented by adapters that can answer a free/busy query
// without reading event details.
type freeBusySource interface {
	FreeBusy(ctx context.Context, calendarIDs []string, start, end time.Time) ([]freetime.BusyEvent, error)
}

func init() {
	freeCmd.Flags().Bool("freebusy", false, "Use the provider's free/busy query (Google only)")
	freeCmd.Flags().Bool("json", false, "Print the free intervals as JSON")

	rootCmd.Flags().AddFlagSet(freeCmd.Flags())
	rootCmd.AddCommand(freeCmd)
}

func runFree(cmd *cobra.Command, args []string) error {
	window, err := buildWindow(time.Now())
	if err != nil {
		return err
	}
	filter, err := buildFetchOptions(adapter.Calendars())
	if err != nil {
		return err
	}

	useFreeBusy, _ := cmd.Flags().GetBool("freebusy")
	plan, err := loadPlan(cmd.Context(), window, filter, useFreeBusy)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeFreeJSON(cmd.OutOrStdout(), plan.Free)
	}
	printPlan(cmd.OutOrStdout(), plan)
	return nil
}

func loadPlan(ctx context.Context, window freetime.PlanningWindow, filter core.FetchOptions, useFreeBusy bool) (*core.Plan, error) {
	if !useFreeBusy {
		plan, err := core.FetchPlan(ctx, adapter, filter, window, calcOptions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to compute free time: %w", err)
		}
		return plan, nil
	}

	fb, ok := adapter.(freeBusySource)
	if !ok {
		return nil, errors.New("--freebusy needs the google provider")
	}
	start, end, err := core.WindowRange(window)
	if err != nil {
		return nil, err
	}
	busy, err := fb.FreeBusy(ctx, filter.CalendarIDs, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}
	return core.ComputePlan(window, nil, busy, calcOptions()...)
}

func writeFreeJSON(w io.Writer, free []freetime.FreeInterval) error {
	if free == nil {
		free = []freetime.FreeInterval{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"freeTime": free})
}

func printPlan(w io.Writer, plan *core.Plan) {
	days := plan.Days()
	window := plan.Window

	if len(days) > 0 {
		fmt.Fprintf(w, "🕳  Free time %s – %s (%02d:00-%02d:00 %s)\n",
			days[0].Date.Format("Mon Jan 2"), days[len(days)-1].Date.Format("Mon Jan 2"),
			window.DayStartHour, window.DayEndHour, days[0].Date.Location())
	}
	fmt.Fprintln(w, separator)

	if len(plan.Free) == 0 {
		fmt.Fprintln(w, "No free time in this window.")
	}

	for _, day := range days {
		if len(day.Free) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s  (%s free)\n", day.Date.Format("Mon, Jan 2"), formatDurationCompact(minutes(day.FreeMinutes())))
		for _, f := range day.Free {
			fmt.Fprintf(w, "  %-22s %s\n", formatFreeSpan(f.Start, f.End), formatDurationCompact(minutes(f.Duration)))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Total: %s free in %d gaps\n", formatDurationCompact(minutes(freetime.Total(plan.Free))), len(plan.Free))

	if n := len(plan.Skipped); n > 0 {
		fmt.Fprintf(w, "⚠️  %d events had no usable time and were ignored\n", n)
	}
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

// formatFreeSpan prints an interval's clock times, adding the weekday to the
// end when the interval runs past midnight.
func formatFreeSpan(start, end time.Time) string {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy == ey && sm == em && sd == ed {
		return fmt.Sprintf("%s - %s", start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format("15:04"), end.Format("Mon 15:04"))
}

func formatDurationCompact(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	}
	if hours > 0 {
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", mins)
}

// planLoader returns a loader that recomputes the plan from config around a
// new reference date.
func planLoader(base freetime.PlanningWindow, filter core.FetchOptions, useFreeBusy bool) func(context.Context, time.Time) (*core.Plan, error) {
	return func(ctx context.Context, reference time.Time) (*core.Plan, error) {
		window := base
		window.Reference = reference
		return loadPlan(ctx, window, filter, useFreeBusy)
	}
}
