package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/theakshaypant/gaps/internal/adapter/google"
	"github.com/theakshaypant/gaps/internal/adapter/outlook"
	"github.com/theakshaypant/gaps/internal/adapter/snapshot"
	"github.com/theakshaypant/gaps/internal/core"
	"github.com/theakshaypant/gaps/internal/freetime"
	"github.com/theakshaypant/gaps/internal/logging"
)

// CalendarAdapter extends core.Provider with login and calendar listing.
// The Google, Outlook and snapshot adapters all implement it.
type CalendarAdapter interface {
	core.Provider
	Login(ctx context.Context) error
	Calendars() map[string]string
}

var (
	cfgFile string
	profile string
	adapter CalendarAdapter
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Find the free time between your calendar events",
	Long: `gaps reads your calendar and lists the gaps between events inside your
active hours, day by day, for the days ahead.

Run without a subcommand it behaves like 'gaps free'.`,
	PersistentPreRunE: initAdapter,
	RunE:              runFree,
	SilenceUsage:      true,
}

func Execute() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/gaps/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "config profile to use (e.g., work, personal)")

	// Planning window
	rootCmd.PersistentFlags().IntP("days", "d", 7, "Number of days to plan")
	rootCmd.PersistentFlags().String("from", "", "First day of the plan (YYYY-MM-DD, 'today', 'tomorrow', 'monday', etc.)")
	rootCmd.PersistentFlags().StringP("timezone", "z", "", "IANA timezone for the active hours (e.g. Asia/Jerusalem)")
	rootCmd.PersistentFlags().Int("day-start", 7, "Hour the active day starts (0-23)")
	rootCmd.PersistentFlags().Int("day-end", 21, "Hour the active day ends (0-23)")
	rootCmd.PersistentFlags().Bool("bounds-duration", false, "Measure free time between the clipped start and end")

	// Event filters
	rootCmd.PersistentFlags().StringP("calendars", "c", "", "Comma-separated list of calendar names to read")
	rootCmd.PersistentFlags().Bool("accepted", false, "Only count accepted events (and ones needing no response) as busy")

	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	viper.BindPFlag("days", rootCmd.PersistentFlags().Lookup("days"))
	viper.BindPFlag("from", rootCmd.PersistentFlags().Lookup("from"))
	viper.BindPFlag("timezone", rootCmd.PersistentFlags().Lookup("timezone"))
	viper.BindPFlag("day_start", rootCmd.PersistentFlags().Lookup("day-start"))
	viper.BindPFlag("day_end", rootCmd.PersistentFlags().Lookup("day-end"))
	viper.BindPFlag("bounds_duration", rootCmd.PersistentFlags().Lookup("bounds-duration"))
	viper.BindPFlag("calendars", rootCmd.PersistentFlags().Lookup("calendars"))
	viper.BindPFlag("accepted", rootCmd.PersistentFlags().Lookup("accepted"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "gaps"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// GAPS_DAY_START, GAPS_SERVER_ADDR, ...
	viper.SetEnvPrefix("GAPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	applyProfile()
}

func setDefaults() {
	viper.SetDefault("provider", "google")
	viper.SetDefault("credentials_file", "credentials.json")
	viper.SetDefault("token_file", "token.json")
	viper.SetDefault("timezone", "Asia/Jerusalem")
	viper.SetDefault("day_start", 7)
	viper.SetDefault("day_end", 21)
	viper.SetDefault("days", 7)
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("server.addr", ":3000")
	viper.SetDefault("server.users_file", "users.json")
	viper.SetDefault("server.groups_file", "groups.json")
	viper.SetDefault("server.rate_per_minute", 200)
	viper.SetDefault("server.log_level", "info")
}

// profileSettings are the keys a profile may override.
var profileSettings = []string{
	"provider",
	"credentials_file",
	"token_file",
	"client_id",
	"tenant_id",
	"snapshot_file",
	"calendars",
	"timezone",
	"day_start",
	"day_end",
	"days",
	"from",
	"accepted",
	"bounds_duration",
	"log_level",
	"server.addr",
	"server.users_file",
	"server.groups_file",
	"server.rate_per_minute",
	"server.log_level",
}

// applyProfile merges profile-specific settings over defaults
func applyProfile() {
	activeProfile := profile
	if activeProfile == "" {
		activeProfile = viper.GetString("default_profile")
	}
	if activeProfile == "" {
		return
	}

	profileKey := "profiles." + activeProfile
	if !viper.IsSet(profileKey) {
		fmt.Fprintf(os.Stderr, "Warning: profile '%s' not found in config\n", activeProfile)
		return
	}

	fmt.Fprintf(os.Stderr, "Using profile: %s\n", activeProfile)

	// A flag given on the command line wins over the profile.
	for _, key := range profileSettings {
		profileSettingKey := profileKey + "." + key
		if viper.IsSet(profileSettingKey) && !isFlagExplicitlySet(key) {
			viper.Set(key, viper.Get(profileSettingKey))
		}
	}
}

func isFlagExplicitlySet(viperKey string) bool {
	flagName := strings.ReplaceAll(viperKey, "_", "-")
	f := rootCmd.PersistentFlags().Lookup(flagName)
	if f == nil {
		f = serveCmd.Flags().Lookup(strings.TrimPrefix(flagName, "server."))
	}
	return f != nil && f.Changed
}

func initLogger(development bool) error {
	l, err := logging.New(viper.GetString("log_level"), development)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func initAdapter(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "profile" ||
		cmd.Parent() != nil && cmd.Parent().Name() == "profile" {
		return nil
	}

	if err := initLogger(true); err != nil {
		return err
	}

	switch provider := viper.GetString("provider"); provider {
	case "google", "":
		return initGoogleAdapter(cmd)
	case "outlook":
		return initOutlookAdapter(cmd)
	case "snapshot":
		return initSnapshotAdapter(cmd)
	default:
		return fmt.Errorf("unknown provider: %s (supported: google, outlook, snapshot)", provider)
	}
}

func initGoogleAdapter(cmd *cobra.Command) error {
	credsFile := expandPath(viper.GetString("credentials_file"))
	tokenFile := expandPath(viper.GetString("token_file"))

	if _, err := os.Stat(credsFile); os.IsNotExist(err) {
		return fmt.Errorf("credentials file not found: %s\n\nDownload an OAuth client (Desktop app) from the Google Cloud console", credsFile)
	}
	if _, err := os.Stat(tokenFile); os.IsNotExist(err) {
		return fmt.Errorf("token file not found: %s\n\nRun 'gaps auth' to authenticate", tokenFile)
	}

	adapter = google.NewGoogleAdapter("google", "Google Calendar", credsFile, tokenFile)
	if err := adapter.Login(cmd.Context()); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

func initOutlookAdapter(cmd *cobra.Command) error {
	clientID := viper.GetString("client_id")
	if clientID == "" {
		return fmt.Errorf("client_id not configured for Outlook provider\n\nAdd it to your profile config:\n  client_id: \"your-azure-app-client-id\"")
	}

	tokenFile := expandPath(viper.GetString("token_file"))
	if _, err := os.Stat(tokenFile); os.IsNotExist(err) {
		return fmt.Errorf("token file not found: %s\n\nRun 'gaps auth' to authenticate with Microsoft", tokenFile)
	}

	adapter = outlook.NewOutlookAdapter("outlook", "Outlook Calendar", clientID, viper.GetString("tenant_id"), tokenFile)
	if err := adapter.Login(cmd.Context()); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

func initSnapshotAdapter(cmd *cobra.Command) error {
	path := expandPath(viper.GetString("snapshot_file"))
	if path == "" {
		return fmt.Errorf("snapshot_file not configured for the snapshot provider")
	}

	adapter = snapshot.NewAdapter("snapshot", path)
	if err := adapter.Login(cmd.Context()); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	return nil
}

// buildWindow reads the planning window from config. now is the reference
// unless --from names another day.
func buildWindow(now time.Time) (freetime.PlanningWindow, error) {
	window := freetime.PlanningWindow{
		Reference:    now,
		HorizonDays:  viper.GetInt("days"),
		DayStartHour: viper.GetInt("day_start"),
		DayEndHour:   viper.GetInt("day_end"),
		Timezone:     viper.GetString("timezone"),
	}

	if from := viper.GetString("from"); from != "" {
		loc, err := window.Location()
		if err != nil {
			return window, err
		}
		ref, err := parseDate(from, now.In(loc))
		if err != nil {
			return window, err
		}
		window.Reference = ref
	}
	return window, nil
}

// buildFetchOptions applies the calendar and status filters from config.
// The range is filled in by the caller.
func buildFetchOptions(calendars map[string]string) (core.FetchOptions, error) {
	opts := core.DefaultFetchOptions(time.Time{}, time.Time{})

	if names := viper.GetString("calendars"); names != "" {
		ids := resolveCalendarNames(strings.Split(names, ","), calendars)
		if len(ids) == 0 {
			return opts, fmt.Errorf("no matching calendars found for: %s\nUse 'gaps calendars' to see available calendars", names)
		}
		opts.CalendarIDs = ids
	}

	if viper.GetBool("accepted") {
		opts.IncludeStatuses = []core.EventStatus{core.StatusAccepted, core.StatusNoResponse}
	}
	return opts, nil
}

// calcOptions returns the calculator options from config. Skipped events are logged.
func calcOptions() []freetime.Option {
	opts := []freetime.Option{
		freetime.WithSkipHandler(func(e *freetime.MalformedEventError) {
			logger.Debug("skipping busy event", zap.Int("index", e.Index), zap.String("reason", e.Reason))
		}),
	}
	if viper.GetBool("bounds_duration") {
		opts = append(opts, freetime.WithBoundsDuration())
	}
	return opts
}

// parseDate parses a date relative to now.
// Supports: YYYY-MM-DD, "today", "tomorrow", "yesterday", weekday names
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch s {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	weekdays := map[string]time.Weekday{
		"sunday": time.Sunday, "sun": time.Sunday,
		"monday": time.Monday, "mon": time.Monday,
		"tuesday": time.Tuesday, "tue": time.Tuesday,
		"wednesday": time.Wednesday, "wed": time.Wednesday,
		"thursday": time.Thursday, "thu": time.Thursday,
		"friday": time.Friday, "fri": time.Friday,
		"saturday": time.Saturday, "sat": time.Saturday,
	}

	// "monday" and "next monday" both mean the coming one
	if wd, ok := weekdays[strings.TrimPrefix(s, "next ")]; ok {
		daysUntil := int(wd - today.Weekday())
		if daysUntil <= 0 {
			daysUntil += 7
		}
		return today.AddDate(0, 0, daysUntil), nil
	}

	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("01/02/2006", s, now.Location()); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s (use YYYY-MM-DD, 'today', 'tomorrow', or weekday names)", s)
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// resolveCalendarNames maps IDs or case-insensitive name fragments to calendar IDs.
func resolveCalendarNames(names []string, calendars map[string]string) []string {
	var ids []string

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, exists := calendars[name]; exists {
			ids = append(ids, name)
			continue
		}

		nameLower := strings.ToLower(name)
		for id, calName := range calendars {
			if strings.Contains(strings.ToLower(calName), nameLower) {
				ids = append(ids, id)
				break
			}
		}
	}

	return ids
}
