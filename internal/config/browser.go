package config

import (
	"fmt"
	"strconv"
)

// Browser engines
const (
	EnginePlaywright = "playwright"
	EngineRod        = "rod"
)

// BrowserConfig holds configuration for the browser that drives the suite
type BrowserConfig struct {
	Engine       string
	Headless     bool
	UserAgent    string
	Width        int
	Height       int
	ArtifactsDir string
	ProfilePath  string
}

// LoadBrowserConfig loads browser configuration from environment variables
func LoadBrowserConfig(getenv func(string) string) (*BrowserConfig, error) {
	config := &BrowserConfig{
		Engine:       getenv("BROWSER_ENGINE"),
		UserAgent:    getenv("BROWSER_USER_AGENT"),
		ArtifactsDir: getenv("ARTIFACTS_DIR"),
		ProfilePath:  getenv("SITE_PROFILE"),
		Headless:     true,
		Width:        1920,
		Height:       1080,
	}

	if config.Engine == "" {
		config.Engine = EnginePlaywright
	}
	if config.Engine != EnginePlaywright && config.Engine != EngineRod {
		return nil, fmt.Errorf("BROWSER_ENGINE must be %q or %q, got %q", EnginePlaywright, EngineRod, config.Engine)
	}
	if config.ArtifactsDir == "" {
		config.ArtifactsDir = "screenshots"
	}

	if v := getenv("HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("HEADLESS must be a boolean: %w", err)
		}
		config.Headless = headless
	}

	var err error
	if config.Width, err = intOrDefault(getenv, "VIEWPORT_WIDTH", config.Width); err != nil {
		return nil, err
	}
	if config.Height, err = intOrDefault(getenv, "VIEWPORT_HEIGHT", config.Height); err != nil {
		return nil, err
	}

	return config, nil
}

func intOrDefault(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
