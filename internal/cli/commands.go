package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/artifacts"
	"github.com/adyen/marketprobe/internal/browser/htmldoc"
	"github.com/adyen/marketprobe/internal/config"
	"github.com/adyen/marketprobe/internal/database"
	"github.com/adyen/marketprobe/internal/handlers"
	"github.com/adyen/marketprobe/internal/models"
	"github.com/adyen/marketprobe/internal/related"
	"github.com/adyen/marketprobe/internal/scenario"
)

// RunCommand executes scenarios against the live site
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run scenarios against the live site",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "scenario", Aliases: []string{"s"}, Usage: "scenario to run, repeatable (default: all)"},
			&cli.StringFlag{Name: "term", Usage: "search term (default: profile search_term)"},
			&cli.StringFlag{Name: "engine", Usage: "browser engine: playwright or rod"},
			&cli.BoolFlag{Name: "headless", Usage: "run the browser without a window"},
			&cli.BoolFlag{Name: "record", Usage: "store run outcomes in the Postgres ledger"},
			&cli.IntFlag{Name: "parallel", Value: 1, Usage: "scenarios to run at once, each in its own browser context"},
		},
		Action: func(c *cli.Context) error {
			env, err := loadEnvironment(getenv)
			if err != nil {
				return err
			}
			defer env.logger.Sync()

			if c.IsSet("engine") {
				engine := c.String("engine")
				if engine != config.EnginePlaywright && engine != config.EngineRod {
					return fmt.Errorf("--engine must be %q or %q, got %q", config.EnginePlaywright, config.EngineRod, engine)
				}
				env.browser.Engine = engine
			}
			if c.IsSet("headless") {
				env.browser.Headless = c.Bool("headless")
			}

			names := c.StringSlice("scenario")
			if len(names) == 0 {
				names = scenario.Names()
			}
			for _, name := range names {
				if _, err := scenario.Lookup(name); err != nil {
					return err
				}
			}

			opts := scenario.Options{
				SearchTerm: c.String("term"),
				Artifacts:  artifacts.NewWriter(env.browser.ArtifactsDir, env.logger),
			}
			if c.Bool("record") {
				ledger, closeLedger, err := connectLedger(env.logger)
				if err != nil {
					return err
				}
				defer closeLedger()
				opts.Recorder = ledger
			}

			session, err := launchSession(env.browser)
			if err != nil {
				return fmt.Errorf("failed to launch %s: %w", env.browser.Engine, err)
			}
			defer func() {
				if err := session.Close(); err != nil {
					env.logger.Warn("Failed to close browser", zap.Error(err))
				}
			}()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := scenario.NewRunner(session, env.profile, opts, env.logger)
			runs, err := runner.RunAll(ctx, names, c.Int("parallel"))
			printRuns(c.App.Writer, runs)
			if err != nil {
				return err
			}
			if scenario.Failed(runs) {
				return cli.Exit("one or more scenarios failed", 1)
			}
			return nil
		},
	}
}

// ScenariosCommand lists the catalog
func ScenariosCommand() *cli.Command {
	return &cli.Command{
		Name:  "scenarios",
		Usage: "List available scenarios",
		Action: func(c *cli.Context) error {
			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			for _, sc := range scenario.Catalog() {
				fmt.Fprintf(w, "%s\t%s\n", sc.Name, sc.Description)
			}
			return w.Flush()
		},
	}
}

// MigrateCommand creates the run ledger table
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the run ledger tables",
		Action: func(c *cli.Context) error {
			if err := database.Connect(); err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			if err := database.RunMigrations(); err != nil {
				return fmt.Errorf("failed to run database migrations: %w", err)
			}
			fmt.Fprintln(c.App.Writer, "Migrations applied")
			return nil
		},
	}
}

// RunsCommand prints recorded runs
func RunsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Print recorded runs, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.StringFlag{Name: "scenario"},
			&cli.StringFlag{Name: "status", Usage: "pending, passed, skipped or failed"},
		},
		Action: func(c *cli.Context) error {
			env, err := loadEnvironment(getenv)
			if err != nil {
				return err
			}
			ledger, closeLedger, err := connectLedger(env.logger)
			if err != nil {
				return err
			}
			defer closeLedger()

			runs, err := ledger.ListRuns(models.RunFilter{
				Scenario: c.String("scenario"),
				Status:   models.RunStatus(c.String("status")),
				Limit:    c.Int("limit"),
			})
			if err != nil {
				return err
			}
			printRuns(c.App.Writer, runs)

			summary, err := ledger.Summary()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "\n%d runs: %d passed, %d skipped, %d failed, %d pending\n",
				summary.Total, summary.Passed, summary.Skipped, summary.Failed, summary.Pending)
			return nil
		},
	}
}

// ReportCommand serves the run report
func ReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Serve the run report over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "templates", Value: "templates", Usage: "directory holding runs.html and run.html"},
		},
		Action: func(c *cli.Context) error {
			env, err := loadEnvironment(getenv)
			if err != nil {
				return err
			}
			defer env.logger.Sync()

			ledger, closeLedger, err := connectLedger(env.logger)
			if err != nil {
				return err
			}
			defer closeLedger()

			dir := c.String("templates")
			runsHandler, err := handlers.NewRunsHandler(dir+"/runs.html", ledger, env.logger)
			if err != nil {
				return fmt.Errorf("failed to create runs handler: %w", err)
			}
			runHandler, err := handlers.NewRunHandler(dir+"/run.html", ledger, env.logger)
			if err != nil {
				return fmt.Errorf("failed to create run handler: %w", err)
			}

			return RunServe(ServerDependencies{
				ServerConfig: config.LoadServerConfig(),
				Logger:       env.logger,
				RunsHandler:  runsHandler,
				RunHandler:   runHandler,
				APIHandler:   handlers.NewRunsAPIHandler(ledger, env.logger),
			})
		},
	}
}

// InspectSnapshotCommand runs the related-items inspector on a saved page
func InspectSnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect-snapshot",
		Usage:     "Inspect the Similar items panel of a saved HTML page",
		ArgsUsage: "<file.html>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("inspect-snapshot needs exactly one HTML file", 2)
			}
			env, err := loadEnvironment(getenv)
			if err != nil {
				return err
			}

			page, err := htmldoc.Open(c.Args().First())
			if err != nil {
				return err
			}

			// nothing loads lazily in a snapshot
			profile := *env.profile
			profile.Timeouts.RelatedSettle = 0

			report, err := related.NewInspector(&profile, env.logger).Inspect(c.Context, page)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(c.App.Writer, report)
			}

			if err := report.Check(related.ExpectationFromProfile(env.profile)); err != nil {
				return cli.Exit(fmt.Sprintf("snapshot does not meet expectations:\n%v", err), 1)
			}
			return nil
		},
	}
}

// ProfileCommand manages site profiles
func ProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage site profiles",
		Subcommands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Write the default site profile",
				ArgsUsage: "[path]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
				},
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						path = "site-profile.yaml"
					}
					if _, err := os.Stat(path); err == nil && !c.Bool("force") {
						return fmt.Errorf("%s already exists, use --force to overwrite", path)
					} else if err != nil && !errors.Is(err, os.ErrNotExist) {
						return err
					}
					if err := config.DefaultSiteProfile().Save(path); err != nil {
						return fmt.Errorf("failed to write site profile: %w", err)
					}
					fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
					return nil
				},
			},
		},
	}
}

func printRuns(out io.Writer, runs []*models.Run) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tSTATUS\tDURATION\tRUN\tREASON")
	for _, run := range runs {
		if run == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			run.Scenario, run.Status, run.GetFormattedDuration(), shortID(run.ID), oneLine(run.Reason))
	}
	w.Flush()
}

func printReport(out io.Writer, report related.Report) {
	if !report.Visible {
		fmt.Fprintln(out, "Similar items panel not found")
		return
	}
	fmt.Fprintf(out, "%s: %d items, %d images\n", report.SectionTitle, report.ItemCount, report.ImageCount)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, item := range report.Items() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, item.Title, item.Price, item.Category)
	}
	w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
