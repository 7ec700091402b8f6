package scenario

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adyen/marketprobe/internal/artifacts"
	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/challenge"
	"github.com/adyen/marketprobe/internal/config"
	"github.com/adyen/marketprobe/internal/models"
	"github.com/adyen/marketprobe/internal/observability"
	"github.com/adyen/marketprobe/internal/pages"
	"github.com/adyen/marketprobe/internal/purchase"
	"github.com/adyen/marketprobe/internal/related"
	"github.com/adyen/marketprobe/internal/selector"
)

// Recorder persists runs. services.RunService satisfies it.
type Recorder interface {
	StartRun(run *models.Run) error
	FinishRun(run *models.Run) error
}

// Options configures a Runner
type Options struct {
	// SearchTerm overrides the profile's search term
	SearchTerm string
	// Recorder, when set, stores every run
	Recorder Recorder
	// Artifacts, when set, captures a screenshot and HTML on skip or failure
	Artifacts *artifacts.Writer
}

// Runner executes catalog scenarios against the live site
type Runner struct {
	session   browser.Session
	profile   *config.SiteProfile
	term      string
	recorder  Recorder
	artifacts *artifacts.Writer
	logger    *zap.Logger
}

// NewRunner creates a runner that opens one isolated page per run
func NewRunner(session browser.Session, profile *config.SiteProfile, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	term := opts.SearchTerm
	if term == "" {
		term = profile.SearchTerm
	}
	return &Runner{
		session:   session,
		profile:   profile,
		term:      term,
		recorder:  opts.Recorder,
		artifacts: opts.Artifacts,
		logger:    logger,
	}
}

// Run executes one scenario. The returned error covers setup problems only
// (unknown scenario, ledger unavailable); what happened on the site is in the
// run's status and reason.
func (r *Runner) Run(ctx context.Context, name string) (*models.Run, error) {
	sc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	run, err := models.NewRun(sc.Name, r.term, r.session.Engine())
	if err != nil {
		return nil, err
	}
	log := observability.ForRun(r.logger, run.ID, run.Scenario, run.CorrelationID)

	if r.recorder != nil {
		if err := r.recorder.StartRun(run); err != nil {
			return run, fmt.Errorf("failed to record run start: %w", err)
		}
	}

	log.Info("Starting scenario", zap.String("term", r.term), zap.String("engine", run.Engine))

	root, err := r.session.NewPage()
	var page browser.Page
	if err != nil {
		err = fmt.Errorf("failed to open page: %w", err)
	} else {
		page, err = r.execute(ctx, sc, root, run, log)
	}
	r.conclude(run, page, err, log)
	if root != nil {
		if err := root.Close(); err != nil {
			log.Warn("Could not close page", zap.Error(err))
		}
	}

	if r.recorder != nil {
		if err := r.recorder.FinishRun(run); err != nil {
			return run, fmt.Errorf("failed to record run outcome: %w", err)
		}
	}
	return run, nil
}

// RunAll runs the named scenarios with at most parallel of them in flight.
// Runs come back in the order of names.
func (r *Runner) RunAll(ctx context.Context, names []string, parallel int) ([]*models.Run, error) {
	for _, name := range names {
		if _, err := Lookup(name); err != nil {
			return nil, err
		}
	}
	if parallel < 1 {
		parallel = 1
	}

	runs := make([]*models.Run, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, name := range names {
		g.Go(func() error {
			run, err := r.Run(gctx, name)
			runs[i] = run
			return err
		})
	}
	err := g.Wait()
	return runs, err
}

// execute walks home, search, first result, challenge and product page, then
// hands over to the scenario body. It returns the page that was current when
// it stopped.
func (r *Runner) execute(ctx context.Context, sc Scenario, page browser.Page, run *models.Run, log *zap.Logger) (browser.Page, error) {
	if err := page.ClearCookies(); err != nil {
		log.Warn("Could not clear cookies", zap.Error(err))
	}

	home := pages.NewHomePage(page, r.profile, log)
	if err := home.Goto(); err != nil {
		return page, err
	}
	if err := home.SearchFor(r.term); err != nil {
		return page, err
	}

	results := pages.NewSearchResultsPage(page, r.profile, log)
	product, title, err := results.OpenFirstResult(ctx)
	if err != nil {
		return page, err
	}
	page = product
	run.ProductTitle = title

	resolver := selector.NewResolver(log)
	bypass := challenge.NewBypasser(challenge.OptionsFromProfile(r.profile), resolver, log).Bypass(ctx, page)
	run.ChallengeOutcome = string(bypass.Outcome)

	productPage := pages.NewProductPage(page, r.profile, log)
	if err := productPage.WaitForProduct(ctx); err != nil {
		if errors.Is(err, pages.ErrChallengePersisted) {
			return page, Skip("challenge page did not clear")
		}
		return page, err
	}
	run.ProductURL = page.URL()

	productPage.DismissCookieBanner()
	heading, err := productPage.WaitForTitle()
	if err != nil {
		return page, err
	}
	if heading != "" {
		run.ProductTitle = heading
	}

	env := &Env{
		Page:      page,
		Product:   productPage,
		Title:     heading,
		Profile:   r.profile,
		Purchase:  purchase.NewDriver(r.profile, resolver, log),
		Inspector: related.NewInspector(r.profile, log),
		Logger:    log,
	}
	err = sc.Run(ctx, env)
	return env.Page, err
}

func (r *Runner) conclude(run *models.Run, page browser.Page, err error, log *zap.Logger) {
	var skip *SkipError
	switch {
	case err == nil:
		logTransition(log, run, run.Pass())
		log.Info("Scenario passed", zap.Duration("duration", run.Duration()))
		return
	case errors.As(err, &skip):
		logTransition(log, run, run.Skip(orDefault(skip.Reason, "skipped without a reason")))
		log.Info("Scenario skipped", zap.String("reason", run.Reason))
	default:
		logTransition(log, run, run.Fail(orDefault(err.Error(), "failed without a reason")))
		log.Error("Scenario failed", zap.Error(err))
	}

	if r.artifacts == nil || page == nil {
		return
	}
	capture, cerr := r.artifacts.Capture(page, run.Scenario)
	if cerr != nil {
		log.Warn("Artifact capture incomplete", zap.Error(cerr))
	}
	run.ScreenshotPath = capture.Screenshot
	run.HTMLPath = capture.HTML
}

// Failed reports whether any of runs failed
func Failed(runs []*models.Run) bool {
	for _, run := range runs {
		if run != nil && run.IsFailed() {
			return true
		}
	}
	return false
}

func logTransition(log *zap.Logger, run *models.Run, err error) {
	if err != nil {
		log.Warn("Could not record scenario outcome", zap.Error(err), zap.String("status", string(run.Status)))
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
