package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/adyen/marketprobe/internal/browser"
	"github.com/adyen/marketprobe/internal/browser/testutil"
	"github.com/adyen/marketprobe/internal/config"
)

// testApp returns an app writing to a buffer that never calls os.Exit
func testApp(t *testing.T, env map[string]string) (*cli.App, *bytes.Buffer) {
	t.Helper()
	env["LOG_LEVEL"] = "error"
	prev := getenv
	getenv = func(k string) string { return env[k] }
	t.Cleanup(func() { getenv = prev })

	var out bytes.Buffer
	app := NewApp("test")
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app, &out
}

func TestScenariosCommand(t *testing.T) {
	app, out := testApp(t, map[string]string{})
	require.NoError(t, app.Run([]string{"marketprobe", "scenarios"}))

	assert.Contains(t, out.String(), "add-to-cart")
	assert.Contains(t, out.String(), "related-wishlist")
}

func TestProfileInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	app, out := testApp(t, map[string]string{})

	require.NoError(t, app.Run([]string{"marketprobe", "profile", "init", path}))
	assert.Contains(t, out.String(), "Wrote "+path)

	profile, err := config.LoadSiteProfile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSiteProfile(), profile)

	assert.Error(t, app.Run([]string{"marketprobe", "profile", "init", path}), "refuses to overwrite")
	assert.NoError(t, app.Run([]string{"marketprobe", "profile", "init", "--force", path}))
}

func TestInspectSnapshotCommand(t *testing.T) {
	app, out := testApp(t, map[string]string{})

	require.NoError(t, app.Run([]string{"marketprobe", "inspect-snapshot", "../related/testdata/similar_items.html"}))
	assert.Contains(t, out.String(), "Similar items: 4 items, 4 images")
	assert.Contains(t, out.String(), "Mens Leather Wallet Brown")
}

func TestInspectSnapshotCommand_FailsExpectations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body><h1>Wallet</h1></body></html>"), 0644))
	app, out := testApp(t, map[string]string{})

	err := app.Run([]string{"marketprobe", "inspect-snapshot", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not visible")
	assert.Contains(t, out.String(), "panel not found")

	assert.Error(t, app.Run([]string{"marketprobe", "inspect-snapshot"}), "needs a file")
}

func TestRunCommand(t *testing.T) {
	session := &testutil.FakeSession{}
	prev := launchSession
	launchSession = func(cfg *config.BrowserConfig) (browser.Session, error) {
		assert.Equal(t, config.EngineRod, cfg.Engine)
		assert.False(t, cfg.Headless)
		return session, nil
	}
	t.Cleanup(func() { launchSession = prev })

	app, out := testApp(t, map[string]string{"ARTIFACTS_DIR": t.TempDir()})

	// a blank page has no search box, so the run fails on the home page
	err := app.Run([]string{"marketprobe", "run", "--engine", "rod", "--headless=false", "-s", "buy-now", "-s", "add-to-cart"})
	require.Error(t, err)
	exit, ok := err.(cli.ExitCoder)
	require.True(t, ok)
	assert.Equal(t, 1, exit.ExitCode())

	assert.Contains(t, out.String(), "buy-now")
	assert.Contains(t, out.String(), "failed")
	assert.Equal(t, 2, session.Opened)
	assert.True(t, session.Closed)
}

func TestRunCommand_RejectsBadInput(t *testing.T) {
	prev := launchSession
	launchSession = func(*config.BrowserConfig) (browser.Session, error) {
		t.Fatal("browser must not start")
		return nil, nil
	}
	t.Cleanup(func() { launchSession = prev })

	app, _ := testApp(t, map[string]string{})
	assert.Error(t, app.Run([]string{"marketprobe", "run", "-s", "checkout-everything"}))
	assert.Error(t, app.Run([]string{"marketprobe", "run", "--engine", "netscape"}))
}
