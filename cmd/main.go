package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/rainfall-cli/internal/config"
	"github.com/forest-guardian/rainfall-cli/internal/delivery"
	"github.com/forest-guardian/rainfall-cli/internal/notification"
	"github.com/forest-guardian/rainfall-cli/internal/period"
	"github.com/forest-guardian/rainfall-cli/internal/ui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg *config.Config

func printBanner() {
	figure1 := figure.NewFigure("Rainfall", "isometric1", true)
	figure2 := figure.NewFigure("CLI", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func reportPanic() {
	if r := recover(); r != nil {
		pc, file, line, ok := runtime.Caller(3)
		var location string
		if ok {
			fn := runtime.FuncForPC(pc)
			location = fmt.Sprintf("%s:%d in %s", file, line, fn.Name())
		} else {
			location = "Unknown location"
		}

		fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
		fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
		fmt.Printf("\033[31mExiting...\033[0m\n")

		errMessage := fmt.Sprintf("Rainfall CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
		if err := notification.SendDiscordErrorNotification(errMessage); err != nil {
			fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
		}
		os.Exit(2)
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.NewConfig()
	if err != nil {
		return err
	}
	c.ConfigureLogging()
	if os.Getenv("ROOT_PATH") == "" {
		os.Setenv("ROOT_PATH", c.App.RootPath)
	}
	cfg = c
	return nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	a := &cfg.Analysis
	if flags.Changed("country") {
		a.Country, _ = flags.GetString("country")
	}
	if flags.Changed("boundary-file") {
		a.BoundaryFile, _ = flags.GetString("boundary-file")
	}
	if flags.Changed("start-year") {
		a.StartYear, _ = flags.GetInt("start-year")
	}
	if flags.Changed("end-year") {
		a.EndYear, _ = flags.GetInt("end-year")
	}
	if flags.Changed("workers") {
		a.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("scale") {
		a.Scale, _ = flags.GetInt("scale")
	}
	if flags.Changed("map-width") {
		a.MapWidth, _ = flags.GetInt("map-width")
	}
	if flags.Changed("no-cache") {
		a.NoCache, _ = flags.GetBool("no-cache")
	}
	if flags.Changed("station") {
		cfg.Station.Enabled, _ = flags.GetBool("station")
	}
	return cfg.Validate()
}

func addRegionFlags(cmd *cobra.Command) {
	cmd.Flags().String("country", "", "country name in the boundary table (RAINFALL_COUNTRY)")
	cmd.Flags().String("boundary-file", "", "local GeoJSON boundary, path or name under data/geojsons (RAINFALL_BOUNDARY_FILE)")
}

func addPeriodFlags(cmd *cobra.Command) {
	cmd.Flags().Int("start-year", 0, "first year of the period (RAINFALL_START_YEAR)")
	cmd.Flags().Int("end-year", 0, "last year of the period (RAINFALL_END_YEAR)")
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute the monthly rainfall series and mean rainfall map of a region",
		Long: `Compute the monthly rainfall series and mean rainfall map of a region.

Every month covers its whole calendar range, so the period runs from 1 January of
the start year up to, but excluding, 1 January after the end year. The last day of
December is therefore included in the December total. Months that have not started
yet are reported without data.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyFlags(cmd); err != nil {
				return err
			}
			platform, err := delivery.NewPlatformClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			quiet, _ := cmd.Flags().GetBool("quiet")

			result, err := delivery.RunRainfallAnalysis(cmd.Context(), cfg, delivery.Deps{
				Platform:     platform,
				Station:      delivery.NewStationSource(cfg),
				ShowProgress: !quiet,
			})
			if err != nil {
				if nerr := notification.SendDiscordErrorNotification(fmt.Sprintf("Rainfall CLI\n\nError analyzing rainfall for %s: %s", cfg.Analysis.Country, err.Error())); nerr != nil {
					logrus.Warnf("failed to send notification: %v", nerr)
				}
				return err
			}

			summary := delivery.Summary(result)
			ui.PrintSuccess("Successful analysis!\n" + summary)
			if err := notification.SendDiscordSuccessNotification("Rainfall CLI\n\n" + summary); err != nil {
				logrus.Warnf("failed to send notification: %v", err)
			}
			return nil
		},
	}
	addRegionFlags(cmd)
	addPeriodFlags(cmd)
	cmd.Flags().Int("workers", 0, "concurrent monthly requests (RAINFALL_WORKERS)")
	cmd.Flags().Int("scale", 0, "reduction scale in metres (RAINFALL_SCALE)")
	cmd.Flags().Int("map-width", 0, "mean rainfall map width in pixels (RAINFALL_MAP_WIDTH)")
	cmd.Flags().Bool("no-cache", false, "bypass the on-disk cache (RAINFALL_NO_CACHE)")
	cmd.Flags().Bool("station", false, "add the Open-Meteo station comparison (STATION_COMPARE_ENABLED)")
	cmd.Flags().BoolP("quiet", "q", false, "hide the progress bar")
	return cmd
}

func newMonthsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "months",
		Short: "Print the calendar month ranges of the period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyFlags(cmd); err != nil {
				return err
			}
			months, err := period.MonthRanges(cfg.Analysis.StartYear, cfg.Analysis.EndYear)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d months in %s\n", len(months), period.Label(months))
			for _, m := range months {
				fmt.Fprintln(cmd.OutOrStdout(), m.String())
			}
			return nil
		},
	}
	addPeriodFlags(cmd)
	return cmd
}

func newBoundaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boundary",
		Short: "Fetch a region boundary and print its extent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyFlags(cmd); err != nil {
				return err
			}
			var evaluator delivery.Platform
			if cfg.Analysis.BoundaryFile == "" {
				platform, err := delivery.NewPlatformClient(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				evaluator = platform
			}
			b, err := delivery.LoadBoundary(cmd.Context(), cfg, evaluator)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), delivery.DescribeBoundary(b))
			return nil
		},
	}
	addRegionFlags(cmd)
	cmd.Flags().Bool("no-cache", false, "bypass the on-disk cache (RAINFALL_NO_CACHE)")
	return cmd
}

func newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Start the interactive menu",
		Run: func(cmd *cobra.Command, _ []string) {
			printBanner()
			ui.ShowMenu(ui.NewSession(cmd.Context(), cfg))
		},
	}
}

func newRootCmd() *cobra.Command {
	menu := newMenuCmd()
	root := &cobra.Command{
		Use:               "rainfall",
		Short:             "Monthly rainfall analysis over Earth Engine CHIRPS data",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		Run:               menu.Run,
	}
	root.AddCommand(newAnalyzeCmd(), newMonthsCmd(), newBoundaryCmd(), menu)
	return root
}

func main() {
	defer reportPanic()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Printf("\033[31mError: %s\033[0m\n", err.Error())
		stop()
		os.Exit(1)
	}
}
