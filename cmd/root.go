package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "Project scheduling engine",
	Long: "Gantry computes critical-path schedules with typed dependencies and lag, " +
		"PERT three-point estimates, and resource overallocation conflicts.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .gantry.yaml)")
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.Bool("json", false, "emit JSON instead of tables")
	pf.String("db", "", "run history database (default .gantry/runs.db)")
	pf.Int("workers", 0, "parallel workers for multi-project and per-resource analysis")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("start", "", "project start date (YYYY-MM-DD), overrides the project file")

	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("db_path", pf.Lookup("db"))
	_ = viper.BindPFlag("workers", pf.Lookup("workers"))
	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", pf.Lookup("log-format"))
	_ = viper.BindPFlag("project_start", pf.Lookup("start"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".gantry")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("GANTRY")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
