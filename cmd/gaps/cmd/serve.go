package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/gaps/internal/logging"
	"github.com/theakshaypant/gaps/internal/server"
	"github.com/theakshaypant/gaps/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API for accounts, groups and free-time calculation.

Users and groups are kept in two JSON files. Logging in fetches the upcoming
events from the configured provider and stores them on the user.

Endpoints:
  POST /register                       {username, email, password}
  POST /login                          {username, password}
  GET  /events
  POST /calculate-free-time            {username, dayStartHour?, dayEndHour?, horizonDays?, timezone?}
  POST /groups                         {groupName}
  POST /groups/:groupName/users        {username}
  GET  /health, GET /metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", server.DefaultAddr, "Address to listen on")
	serveCmd.Flags().String("users-file", "users.json", "Path of the users file")
	serveCmd.Flags().String("groups-file", "groups.json", "Path of the groups file")
	serveCmd.Flags().Int("rate-per-minute", server.DefaultRatePerMinute, "Requests allowed per client IP per minute (0 disables)")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.users_file", serveCmd.Flags().Lookup("users-file"))
	viper.BindPFlag("server.groups_file", serveCmd.Flags().Lookup("groups-file"))
	viper.BindPFlag("server.rate_per_minute", serveCmd.Flags().Lookup("rate-per-minute"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	level := viper.GetString("server.log_level")
	if cmd.Flags().Changed("log-level") {
		level = viper.GetString("log_level")
	}
	log, err := logging.New(level, false)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := store.Open(expandPath(viper.GetString("server.users_file")), expandPath(viper.GetString("server.groups_file")))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	srv, err := server.New(server.Config{
		Addr:     viper.GetString("server.addr"),
		Storage:  st,
		Provider: adapter,
		Window: server.WindowDefaults{
			Timezone:     viper.GetString("timezone"),
			DayStartHour: viper.GetInt("day_start"),
			DayEndHour:   viper.GetInt("day_end"),
			HorizonDays:  viper.GetInt("days"),
		},
		BoundsDuration: viper.GetBool("bounds_duration"),
		RatePerMinute:  viper.GetInt("server.rate_per_minute"),
		Logger:         log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
