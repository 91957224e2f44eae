package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/rally-backend/internal/config"
	"github.com/DoyleJ11/rally-backend/internal/engine"
)

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("RALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "rally-server",
		Short:   "Turn-based badminton rooms over websockets.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rules := engine.DefaultRules()

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: RALLY_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8000, "port to listen on (env: RALLY_PORT)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", []string{"*"}, "origins allowed for CORS and websockets (env: RALLY_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.ProfileStore, "profile-store", config.StoreFile, "where profiles live: memory, file, postgres or dynamodb (env: RALLY_PROFILE_STORE)")
	fs.StringVar(&cfg.DataDir, "data-dir", "data/players", "directory for the file profile store (env: RALLY_DATA_DIR)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres DSN for the postgres profile store (env: RALLY_DATABASE_URL)")
	fs.StringVar(&cfg.DynamoTable, "dynamo-table", "", "table for the dynamodb profile store (env: RALLY_DYNAMO_TABLE)")
	fs.DurationVar(&cfg.RoomIdleTimeout, "room-idle-timeout", 30*time.Minute, "time before empty rooms are closed (env: RALLY_ROOM_IDLE_TIMEOUT)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", time.Minute, "how often empty rooms are checked (env: RALLY_SWEEP_INTERVAL)")
	fs.IntVar(&cfg.WinScore, "win-score", rules.WinScore, "points needed to win a match (env: RALLY_WIN_SCORE)")
	fs.IntVar(&cfg.WinMargin, "win-margin", rules.WinMargin, "lead needed to win below the cap (env: RALLY_WIN_MARGIN)")
	fs.IntVar(&cfg.ScoreCap, "score-cap", rules.ScoreCap, "score that wins outright (env: RALLY_SCORE_CAP)")
	fs.IntVar(&cfg.LowQualityBonus, "low-quality-bonus", rules.LowQualityBonus, "roll bonus against a low quality shot (env: RALLY_LOW_QUALITY_BONUS)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: RALLY_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("rally-server v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
