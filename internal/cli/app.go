package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/browser/pwengine"
	"github.com/adyen/marketprobe/internal/browser/rodengine"
	"github.com/adyen/marketprobe/internal/config"
	"github.com/adyen/marketprobe/internal/database"
	"github.com/adyen/marketprobe/internal/observability"
	"github.com/adyen/marketprobe/internal/repository"
	"github.com/adyen/marketprobe/internal/services"
)

// NewApp builds the marketprobe command line
func NewApp(version string) *cli.App {
	return &cli.App{
		Name:    "marketprobe",
		Usage:   "Live end-to-end checks against the marketplace storefront",
		Version: version,
		Commands: []*cli.Command{
			RunCommand(),
			ScenariosCommand(),
			MigrateCommand(),
			RunsCommand(),
			ReportCommand(),
			InspectSnapshotCommand(),
			ProfileCommand(),
		},
	}
}

// environment is the configuration every command starts from
type environment struct {
	logger  *zap.Logger
	browser *config.BrowserConfig
	profile *config.SiteProfile
}

func loadEnvironment(getenv func(string) string) (*environment, error) {
	logCfg, err := config.LoadLoggerConfig(getenv)
	if err != nil {
		return nil, fmt.Errorf("invalid logger configuration: %w", err)
	}
	browserCfg, err := config.LoadBrowserConfig(getenv)
	if err != nil {
		return nil, fmt.Errorf("invalid browser configuration: %w", err)
	}
	profile, err := config.LoadSiteProfile(browserCfg.ProfilePath)
	if err != nil {
		return nil, err
	}
	if v := getenv("BASE_URL"); v != "" {
		profile.BaseURL = v
	}
	if v := getenv("SEARCH_TERM"); v != "" {
		profile.SearchTerm = v
	}

	return &environment{
		logger:  observability.NewLogger(logCfg),
		browser: browserCfg,
		profile: profile,
	}, nil
}

// launchSession starts the configured engine; tests swap it for a fake
var launchSession = func(cfg *config.BrowserConfig) (browser.Session, error) {
	if cfg.Engine == config.EngineRod {
		session, err := rodengine.Launch(rodengine.Options{
			Headless:  cfg.Headless,
			UserAgent: cfg.UserAgent,
			Width:     cfg.Width,
			Height:    cfg.Height,
		})
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	session, err := pwengine.Launch(pwengine.Options{
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
		Width:     cfg.Width,
		Height:    cfg.Height,
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// connectLedger opens the run ledger, creating its table when missing
var connectLedger = func(logger *zap.Logger) (services.RunService, func(), error) {
	if err := database.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Connected to run ledger")

	closeFn := func() {
		if err := database.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	return services.NewRunService(repository.NewRunRepository()), closeFn, nil
}

// getenv reads configuration; tests point it at a map
var getenv = os.Getenv
