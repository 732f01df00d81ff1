// Command fuelsite runs the fuel site analysis MCP server and its companion CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/NERVsystems/fuelsite/pkg/config"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	envFile    string
	debug      bool
	logger     *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "fuelsite",
		Short:         "Analyze candidate fuel station sites from OpenStreetMap data",
		Long:          "fuelsite evaluates candidate fuel station sites: competing stations, land use and population around a point. It runs as an MCP server over stdio or as a command line tool.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Configure logging
			logLevel := slog.LevelInfo
			if opts.debug {
				logLevel = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: logLevel,
			}))
			slog.SetDefault(opts.logger)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Path to a .env file with API keys")
	root.PersistentFlags().BoolVarP(&opts.debug, "debug", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newAnalyzeCmd(opts),
		newReportCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newGenerateConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration selected by the root flags.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return config.Config{}, err
	}
	if o.logger != nil {
		o.logger.Debug("configuration loaded",
			"config", o.configPath,
			"store", cfg.Store.Path,
			"routing_keys", cfg.HasRoutingKeys())
	}
	return cfg, nil
}
