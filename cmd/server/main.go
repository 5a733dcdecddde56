package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shiftrota/internal/app/server"
	"shiftrota/internal/domain/allowance"
	"shiftrota/internal/domain/rota"
	"shiftrota/internal/platform/config"
	"shiftrota/internal/platform/db"
	"shiftrota/internal/platform/jobs"
	"shiftrota/internal/platform/logging"
)

var cfg config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "shiftrota",
		Short: "Shift Rota - monthly department shift schedules",
		Long:  `Serves the shift rota API and offers maintenance commands for seeding and exporting rota data.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load()
			logging.Setup(os.Stderr, cfg.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(allowancesCmd())
	rootCmd.AddCommand(cleanupTokensCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx, cfg)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

// openApp opens storage without seeding so maintenance commands never write
// unless they mean to.
func openApp(ctx context.Context) (*server.App, error) {
	c := cfg
	c.RunSeed = false
	return server.New(ctx, c)
}

func seedCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the seed department configuration to the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			dir, err := db.LoadSeed(cfg.SeedFile)
			if err != nil {
				return err
			}
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if force {
				if err := app.Departments.Save(ctx, dir); err != nil {
					return fmt.Errorf("seed departments: %w", err)
				}
				fmt.Printf("Wrote %d departments\n", dir.Len())
				return nil
			}
			wrote, err := db.Seed(ctx, app.Departments, dir)
			if err != nil {
				return err
			}
			if !wrote {
				fmt.Println("Department configuration already present, nothing written (use --force to overwrite)")
				return nil
			}
			fmt.Printf("Wrote %d departments\n", dir.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing department configuration")
	return cmd
}

type periodFlags struct {
	dept  string
	month int
	year  int
}

func (p *periodFlags) register(cmd *cobra.Command) {
	now := time.Now()
	cmd.Flags().StringVarP(&p.dept, "dept", "d", "", "Department name (required)")
	cmd.Flags().IntVarP(&p.month, "month", "m", int(now.Month()), "Month 1-12")
	cmd.Flags().IntVarP(&p.year, "year", "y", now.Year(), "Year")
	_ = cmd.MarkFlagRequired("dept")
}

func (p *periodFlags) validate() error {
	return rota.ValidatePeriod(time.Month(p.month), p.year)
}

func exportCmd() *cobra.Command {
	var (
		period    periodFlags
		processes []string
		shifts    []string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the rota grid of one department and month as CSV to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := period.validate(); err != nil {
				return err
			}
			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			grid, err := app.Rota.BuildGrid(ctx, rota.GridQuery{
				Department: period.dept,
				Month:      time.Month(period.month),
				Year:       period.year,
				Processes:  processes,
				Shifts:     shifts,
			})
			if err != nil {
				return err
			}
			return rota.WriteCSV(cmd.OutOrStdout(), grid)
		},
	}
	period.register(cmd)
	cmd.Flags().StringSliceVar(&processes, "process", nil, "Only include these processes")
	cmd.Flags().StringSliceVar(&shifts, "shift", nil, "Only include rows that use these shift codes")
	return cmd
}

func allowancesCmd() *cobra.Command {
	var (
		period     periodFlags
		reportType string
	)
	cmd := &cobra.Command{
		Use:   "allowances",
		Short: "Write an allowance report as CSV to stdout",
		Long:  `Writes the EST or PST night shift report, or the weekend report when --type is weekend.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := period.validate(); err != nil {
				return err
			}
			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			month := time.Month(period.month)
			if strings.EqualFold(reportType, "weekend") {
				report, err := app.Allowances.Weekend(ctx, period.dept, month, period.year)
				if err != nil {
					return err
				}
				return allowance.WriteWeekendCSV(cmd.OutOrStdout(), report)
			}

			shiftType, err := allowance.ParseShiftType(reportType)
			if err != nil {
				return fmt.Errorf("--type must be EST, PST or weekend: %w", err)
			}
			report, err := app.Allowances.NightShift(ctx, period.dept, month, period.year, shiftType)
			if err != nil {
				return err
			}
			return allowance.WriteNightShiftCSV(cmd.OutOrStdout(), report)
		},
	}
	period.register(cmd)
	cmd.Flags().StringVarP(&reportType, "type", "t", "EST", "EST, PST or weekend")
	return cmd
}

func cleanupTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-tokens",
		Short: "Remove expired password reset tokens and OTP codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			details, err := app.Jobs.RunNow(ctx, jobs.JobTokenCleanup, app.CleanupTokens)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired tokens\n", details.(map[string]int)["removed"])
			return nil
		},
	}
}
