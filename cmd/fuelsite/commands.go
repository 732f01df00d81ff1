package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/NERVsystems/fuelsite/pkg/config"
	"github.com/NERVsystems/fuelsite/pkg/geo"
	"github.com/NERVsystems/fuelsite/pkg/server"
	"github.com/NERVsystems/fuelsite/pkg/site"
	"github.com/NERVsystems/fuelsite/pkg/store"
	"github.com/NERVsystems/fuelsite/pkg/version"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			opts.logger.Info("starting fuel site MCP server", "version", version.BuildVersion)
			srv, err := server.NewServer(cmd.Context(), cfg, opts.logger)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			defer srv.Close()

			opts.logger.Info("server initialized, waiting for requests")
			return srv.Run()
		},
	}
}

// withServices builds the services for one command and closes them afterwards.
func withServices(cmd *cobra.Command, opts *rootOptions, fn func(*server.Services) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	svc, err := server.NewServices(cmd.Context(), cfg, opts.logger)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(w io.Writer, report *site.Report, asJSON bool) error {
	if asJSON {
		return writeJSON(w, report)
	}
	_, err := fmt.Fprint(w, report.Text)
	return err
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		req      site.Request
		lat, lon float64
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a candidate site and print its report",
		Example: `  fuelsite analyze --address "Gloucester Road, Bristol, UK" --radius 3000
  fuelsite analyze --lat 51.4545 --lon -2.5879 --label "Depot"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			latSet := cmd.Flags().Changed("lat")
			lonSet := cmd.Flags().Changed("lon")
			switch {
			case latSet != lonSet:
				return errors.New("--lat and --lon must be given together")
			case latSet:
				req.Location = &geo.Location{Latitude: lat, Longitude: lon}
			case req.Address == "":
				return errors.New("either --address or --lat/--lon is required")
			}

			return withServices(cmd, opts, func(svc *server.Services) error {
				if err := applyAnalysisDefaults(cmd.Flags(), &req, svc.Config.Analysis); err != nil {
					return err
				}
				a, err := svc.Site.Analyze(cmd.Context(), req)
				if err != nil {
					return err
				}
				for section, msg := range a.SectionErrors() {
					opts.logger.Warn("section incomplete", "section", section, "error", msg)
				}

				report, err := svc.Site.Report(cmd.Context(), a.ID)
				if err != nil {
					return err
				}
				return writeReport(cmd.OutOrStdout(), report, asJSON)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.Address, "address", "a", "", "Address of the site")
	f.Float64Var(&lat, "lat", 0, "Latitude of the site")
	f.Float64Var(&lon, "lon", 0, "Longitude of the site")
	f.Float64VarP(&req.RadiusMeters, "radius", "r", 0, "Catchment radius in meters (default analysis.default_radius_m)")
	f.StringVarP(&req.Label, "label", "l", "", "Name for the analysis")
	f.BoolVar(&req.RoadDistances, "road", true, "Compute driving distances to the nearest competitors")
	f.IntVar(&req.MaxRoutedStations, "max-routed", 0, "How many competitors get a driving distance (default analysis.max_routed_stations)")
	f.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// applyAnalysisDefaults fills the radius and routed-station count from the
// configuration unless the flags were given.
func applyAnalysisDefaults(flags *pflag.FlagSet, req *site.Request, cfg config.AnalysisConfig) error {
	if !flags.Changed("radius") {
		req.RadiusMeters = cfg.DefaultRadius
	}
	if !flags.Changed("max-routed") {
		req.MaxRoutedStations = cfg.MaxRoutedStations
	} else if req.MaxRoutedStations < 1 {
		return errors.New("--max-routed must be at least 1")
	}
	return nil
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report <analysis-id>",
		Short: "Print the report of a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(svc *server.Services) error {
				report, err := svc.Site.Report(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeReport(cmd.OutOrStdout(), report, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(svc *server.Services) error {
				entries, err := svc.Site.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no analyses stored")
					return nil
				}
				writeEntries(cmd.OutOrStdout(), entries, time.Now())
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "Maximum number of analyses")
	return cmd
}

func writeEntries(w io.Writer, entries []store.Entry, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tLOCATION\tRADIUS\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%.5f, %.5f\t%s m\t%s\n",
			e.ID, e.Label, e.Latitude, e.Longitude,
			humanize.Comma(int64(e.RadiusMeters)),
			humanize.RelTime(e.CreatedAt, now, "ago", "from now"))
	}
	tw.Flush()
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <analysis-id>",
		Short: "Delete a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(svc *server.Services) error {
				if err := svc.Site.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newGenerateConfigCmd(opts *rootOptions) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "generate-config <path>",
		Short: "Write an MCP client config entry, or a default fuelsite YAML config with --yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if asYAML {
				if err := writeDefaultConfig(args[0]); err != nil {
					return err
				}
				opts.logger.Info("wrote default configuration", "path", args[0])
				return nil
			}

			if err := generateClientConfig(args[0], opts.configPath); err != nil {
				return err
			}
			opts.logger.Info("successfully generated MCP client config", "path", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Write the default fuelsite configuration instead")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), version.Info())
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version information as JSON")
	return cmd
}
