// Package cmd provides the command structure for the corral CLI.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corralhq/corral/cmd/corral/app"
)

var application *app.App

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "corral",
	Short: "Project catalog reconciliation CLI",
	Long: `Corral maintains per-bucket project catalogs: it deduplicates
corpora, imports fresh data with staged column mapping and duplicate
review, links records to a reference catalog, and runs multi-step
enrichment pipelines with rollback.

Corpora live as CSV files under the data directory; every destructive
operation takes a timestamped backup first.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute(version, commit, date string) {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("corral {{.Version}} (" + commit + ", " + date + ")\n")

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if application != nil {
			application.Logger().Error().Err(err).Msg("command failed")
		} else {
			cobra.CheckErr(err)
		}
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default ~/.corral.yaml)")
	flags.String("data-dir", "", "corpus CSV directory (default \"data\")")
	flags.String("buckets", "", "bucket definitions YAML file")
	flags.String("catalog-url", "", "reference catalog GraphQL endpoint")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.BoolP("quiet", "q", false, "warnings and errors only")
	flags.String("log-format", "", "log format: auto, console, json")
}

// setup builds the application context, letting parsed flags override the
// config file and environment.
func setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if v, _ := flags.GetString("config"); v != "" {
		// Viper reads the config file path from the environment.
		_ = os.Setenv("CORRAL_CONFIG", v)
	}

	a, err := app.New(cmd.Root().Version, "", "")
	if err != nil {
		return err
	}

	config := a.Config()
	if v, _ := flags.GetString("data-dir"); v != "" {
		config.DataDir = v
	}
	if v, _ := flags.GetString("buckets"); v != "" {
		config.BucketsFile = v
	}
	if v, _ := flags.GetString("catalog-url"); v != "" {
		config.CatalogURL = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		config.LogFormat = v
	}
	verbose, _ := flags.GetBool("verbose")
	quiet, _ := flags.GetBool("quiet")
	if verbose || quiet {
		config.Verbose = verbose
		config.Quiet = quiet
		app.NewLogger(config)
	}

	application = a
	return nil
}
