package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/blang/semver"
)

type (
	//RunningCfg holds configuration options that are parsed at run time
	RunningCfg struct {
		API     APIRunningCfg
		Version semver.Version
	}

	//APIRunningCfg holds the parsed backend settings
	APIRunningCfg struct {
		BaseURL *url.URL
		// zero means requests never time out
		Timeout time.Duration
	}
)

// initRunningConfig uses the static config to initialize the running config
func initRunningConfig(static *StaticCfg, running *RunningCfg) error {
	base, err := url.Parse(static.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API BaseURL %q: %w", static.API.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return fmt.Errorf("invalid API BaseURL %q: scheme must be http or https", static.API.BaseURL)
	}
	running.API.BaseURL = base

	if static.API.Timeout < 0 {
		return errors.New("API Timeout must not be negative")
	}
	running.API.Timeout = time.Duration(static.API.Timeout) * time.Second

	if static.Display.InitialLimit <= 0 {
		return errors.New("Display InitialLimit must be positive")
	}
	if static.Display.RevealStep <= 0 {
		return errors.New("Display RevealStep must be positive")
	}

	running.Version, err = semver.ParseTolerant(static.Version)
	return err
}
