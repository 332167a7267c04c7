// Package cmd implements the command-line interface for eventcrawl.
// It provides the root command and subcommands for running crawls, the
// scheduler loop, source registry management and administrative views.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdadmin "github.com/jonesrussell/eventcrawl/cmd/admin"
	"github.com/jonesrussell/eventcrawl/cmd/crawl"
	"github.com/jonesrussell/eventcrawl/cmd/schedule"
	"github.com/jonesrussell/eventcrawl/cmd/seed"
	cmdsources "github.com/jonesrussell/eventcrawl/cmd/sources"
	"github.com/jonesrussell/eventcrawl/internal/config"
)

// version is set at build time via -ldflags.
var version = "1.0.0"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "eventcrawl",
		Short: "A web crawler for events, festivals and sports listings",
		Long: `eventcrawl fetches listing pages from a registry of sources, extracts
structured entities via JSON-LD and CSS rules, validates them against JSON
Schemas and persists them across bronze, silver and gold storage tiers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	_ = godotenv.Load()

	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("eventcrawl version %s\n", version)
		},
	})

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(schedule.Command())
	rootCmd.AddCommand(cmdsources.Command())
	rootCmd.AddCommand(cmdadmin.Command())
	rootCmd.AddCommand(seed.Command())
}

// initConfig reads the config file and environment variables into Viper.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Config file is optional: defaults plus environment cover a bare
	// checkout.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v (using defaults)\n", err)
	}

	if debug || viper.GetBool("app.debug") {
		viper.Set("logger.level", "debug")
		viper.Set("logger.development", true)
		viper.Set("logger.encoding", "console")
	}
	return nil
}

// setDefaults registers the default configuration values.
func setDefaults() {
	config.SetDefaults(viper.GetViper())

	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})
}
