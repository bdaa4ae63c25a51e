package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage configuration profiles",
	Long: `Manage configuration profiles for different accounts and working hours.

A profile can switch the calendar provider and account, the active hours and
timezone, and which calendars count as busy.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileShow,
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileAdd,
}

var profileSetDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileSetDefault,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a profile's settings",
	Long: `Edit a profile's settings using flags.

Example:
  gaps profile edit work --day-start=9 --day-end=18 --timezone=Europe/Berlin
  gaps profile edit personal --calendars=Family --accepted=false`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileEdit,
}

type flagKind int

const (
	stringFlag flagKind = iota
	intFlag
	boolFlag
)

// profileFlag maps a profile command flag to its config key.
type profileFlag struct {
	name    string
	key     string
	kind    flagKind
	usage   string
	section string
}

var profileFlags = []profileFlag{
	{"provider", "provider", stringFlag, "Calendar provider (google, outlook, snapshot)", "📁 Provider"},
	{"credentials-file", "credentials_file", stringFlag, "Path to the Google OAuth client file", "📁 Provider"},
	{"token-file", "token_file", stringFlag, "Path to the token file", "📁 Provider"},
	{"client-id", "client_id", stringFlag, "Azure app client ID (outlook)", "📁 Provider"},
	{"tenant-id", "tenant_id", stringFlag, "Azure tenant ID (outlook)", "📁 Provider"},
	{"snapshot-file", "snapshot_file", stringFlag, "Path to a JSON event snapshot (snapshot)", "📁 Provider"},
	{"days", "days", intFlag, "Number of days to plan", "🕐 Active hours"},
	{"timezone", "timezone", stringFlag, "IANA timezone for the active hours", "🕐 Active hours"},
	{"day-start", "day_start", intFlag, "Hour the active day starts", "🕐 Active hours"},
	{"day-end", "day_end", intFlag, "Hour the active day ends", "🕐 Active hours"},
	{"bounds-duration", "bounds_duration", boolFlag, "Measure free time between clipped bounds", "🕐 Active hours"},
	{"calendars", "calendars", stringFlag, "Calendar filter", "🔍 Filters"},
	{"accepted", "accepted", boolFlag, "Only accepted events count as busy", "🔍 Filters"},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileSetDefaultCmd)
	profileCmd.AddCommand(profileEditCmd)

	addProfileFlags(profileAddCmd)
	addProfileFlags(profileEditCmd)
}

// addProfileFlags registers the profile flags on a local flag set. The names
// shadow the root's persistent flags for this command only.
func addProfileFlags(cmd *cobra.Command) {
	for _, f := range profileFlags {
		switch f.kind {
		case stringFlag:
			cmd.Flags().String(f.name, "", f.usage)
		case intFlag:
			cmd.Flags().Int(f.name, 0, f.usage)
		case boolFlag:
			cmd.Flags().Bool(f.name, false, f.usage)
		}
	}
}

// collectProfileFlags copies every flag set on cmd into profile and reports
// whether anything was copied.
func collectProfileFlags(cmd *cobra.Command, profile map[string]any) bool {
	changed := false
	for _, f := range profileFlags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		switch f.kind {
		case stringFlag:
			profile[f.key], _ = cmd.Flags().GetString(f.name)
		case intFlag:
			profile[f.key], _ = cmd.Flags().GetInt(f.name)
		case boolFlag:
			profile[f.key], _ = cmd.Flags().GetBool(f.name)
		}
		changed = true
	}
	return changed
}

func runProfileList(cmd *cobra.Command, args []string) error {
	profiles := viper.GetStringMap("profiles")
	defaultProfile := viper.GetString("default_profile")

	if len(profiles) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("\nAdd one with: gaps profile add <name> --provider=google --credentials-file=<path>")
		return nil
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available profiles:")
	fmt.Println(separator)
	for _, name := range names {
		marker := "  "
		if name == defaultProfile {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, name)
	}
	fmt.Println(separator)

	if defaultProfile != "" {
		fmt.Printf("Default: %s\n", defaultProfile)
	}
	fmt.Println("\nUse 'gaps profile show <name>' for details")
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	var profileName string
	if len(args) > 0 {
		profileName = args[0]
	} else {
		profileName = viper.GetString("default_profile")
		if profileName == "" {
			return fmt.Errorf("no profile specified and no default profile set")
		}
	}

	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found", profileName)
	}

	fmt.Printf("Profile: %s\n", profileName)
	if profileName == viper.GetString("default_profile") {
		fmt.Println("(default)")
	}
	fmt.Println(separator)

	printProfile(cmd.OutOrStdout(), viper.GetStringMap(profileKey))
	return nil
}

// printProfile prints the known settings grouped by section, skipping unset ones.
func printProfile(w io.Writer, settings map[string]any) {
	section := ""
	for _, f := range profileFlags {
		val, ok := settings[f.key]
		if !ok {
			continue
		}
		if f.section != section {
			section = f.section
			fmt.Fprintf(w, "\n%s:\n", section)
		}
		fmt.Fprintf(w, "  %s: %v\n", f.name, val)
	}

	if srv, ok := settings["server"].(map[string]any); ok && len(srv) > 0 {
		keys := make([]string, 0, len(srv))
		for k := range srv {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(w, "\n🌐 Server:")
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %v\n", k, srv[k])
		}
	}
	fmt.Fprintln(w)
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	if viper.IsSet("profiles." + profileName) {
		return fmt.Errorf("profile '%s' already exists. Use 'gaps profile edit %s' to modify it", profileName, profileName)
	}

	profile := make(map[string]any)
	collectProfileFlags(cmd, profile)

	if err := saveProfileToConfig(profileName, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("✓ Profile '%s' created\n", profileName)
	fmt.Printf("\nUse it with: gaps -p %s\n", profileName)
	fmt.Printf("Set as default: gaps profile default %s\n", profileName)
	return nil
}

func runProfileSetDefault(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	if !viper.IsSet("profiles." + profileName) {
		return fmt.Errorf("profile '%s' not found", profileName)
	}

	if err := setDefaultProfileInConfig(profileName); err != nil {
		return fmt.Errorf("failed to set default profile: %w", err)
	}

	fmt.Printf("✓ Default profile set to '%s'\n", profileName)
	return nil
}

func runProfileEdit(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found. Use 'gaps profile add %s' to create it", profileName, profileName)
	}

	profile := make(map[string]any)
	for k, v := range viper.GetStringMap(profileKey) {
		profile[k] = v
	}

	if !collectProfileFlags(cmd, profile) {
		fmt.Println("No changes specified. Use flags to update settings:")
		fmt.Println("  gaps profile edit", profileName, "--day-start=9 --day-end=18")
		return nil
	}

	if err := saveProfileToConfig(profileName, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("✓ Profile '%s' updated\n", profileName)
	return nil
}

// Config file manipulation functions

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gaps", "config.yaml")
}

func readConfigFile() (map[string]any, error) {
	data, err := os.ReadFile(getConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, err
	}

	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if config == nil {
		config = make(map[string]any)
	}
	return config, nil
}

func writeConfigFile(config map[string]any) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	// Profiles may hold OAuth client IDs.
	return os.WriteFile(configPath, data, 0o600)
}

func saveProfileToConfig(name string, profile map[string]any) error {
	config, err := readConfigFile()
	if err != nil {
		return err
	}

	profiles, ok := config["profiles"].(map[string]any)
	if !ok {
		profiles = make(map[string]any)
	}

	profiles[name] = profile
	config["profiles"] = profiles

	return writeConfigFile(config)
}

func setDefaultProfileInConfig(name string) error {
	config, err := readConfigFile()
	if err != nil {
		return err
	}

	config["default_profile"] = name
	return writeConfigFile(config)
}
