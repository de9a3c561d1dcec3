// Package config holds all linkharvest configuration, loaded from a YAML
// file with defaults filled in for anything unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all linkharvest configuration.
type Config struct {
	DBPath  string `yaml:"db_path"`
	LogsDir string `yaml:"logs_dir"`
	// MetricsListen exposes the Prometheus registry on this address during a
	// batch. Empty = no metrics listener.
	MetricsListen string          `yaml:"metrics_listen"`
	Browser       BrowserConfig   `yaml:"browser"`
	Navigator     NavigatorConfig `yaml:"navigator"`
	Captcha       CaptchaConfig   `yaml:"captcha"`
	Harvester     HarvesterConfig `yaml:"harvester"`
	Scrape        ScrapeConfig    `yaml:"scrape"`
	Search        SearchConfig    `yaml:"search"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string `yaml:"remote_url"`
	Headless  bool   `yaml:"headless"`
	// Stealth applies the stealth page setup and fingerprint randomization.
	Stealth bool `yaml:"stealth"`
	// Proxy server URL, e.g. http://proxy:8080.
	Proxy string `yaml:"proxy"`
	// ResourceBlocking lists resource types to block (images, fonts, media).
	ResourceBlocking []string `yaml:"resource_blocking"`
	// CookiesFile persists the session cookie jar between runs. Empty =
	// no persistence.
	CookiesFile string `yaml:"cookies_file"`
}

// NavigatorConfig controls navigation retries and timeouts.
type NavigatorConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// CaptchaConfig controls the CAPTCHA handling protocol.
type CaptchaConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	// LocalSolveTime bounds the in-page solver's polling.
	LocalSolveTime time.Duration `yaml:"local_solve_time"`
	// RelayTimeout bounds polling the harvester for a token.
	RelayTimeout time.Duration `yaml:"relay_timeout"`
	// ContinueOnExhaustion lets navigation proceed after every solving
	// strategy fails, on the assumption that the challenge is not always
	// enforced. Policy, not a guarantee.
	ContinueOnExhaustion *bool `yaml:"continue_on_exhaustion"`
}

// HarvesterConfig locates the CAPTCHA relay service.
type HarvesterConfig struct {
	URL          string        `yaml:"url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	AutoSolve    *bool         `yaml:"auto_solve"`
	// Listen is the bind address when running the relay service itself.
	Listen string `yaml:"listen"`
}

// SearchConfig controls people-search candidate discovery.
type SearchConfig struct {
	// MaxPages caps result-page pagination.
	MaxPages int `yaml:"max_pages"`
	// MaxResults caps collected profile URLs per query. Zero = unlimited.
	MaxResults int `yaml:"max_results"`
}

// ScrapeConfig controls batch orchestration.
type ScrapeConfig struct {
	// DelayMin/DelayMax bound the randomized pause between profiles.
	DelayMin time.Duration `yaml:"delay_min"`
	DelayMax time.Duration `yaml:"delay_max"`
	// MaxProfileRetries caps automatic re-queueing of failed profiles.
	MaxProfileRetries int `yaml:"max_profile_retries"`
}

// Defaults fills every unset field.
func (c *Config) Defaults() {
	if c.DBPath == "" {
		c.DBPath = "data/linkharvest.db"
	}
	if c.LogsDir == "" {
		c.LogsDir = "logs"
	}
	if c.Navigator.Timeout <= 0 {
		c.Navigator.Timeout = 30 * time.Second
	}
	if c.Navigator.MaxRetries <= 0 {
		c.Navigator.MaxRetries = 3
	}
	if c.Captcha.MaxAttempts <= 0 {
		c.Captcha.MaxAttempts = 3
	}
	if c.Captcha.LocalSolveTime <= 0 {
		c.Captcha.LocalSolveTime = 20 * time.Second
	}
	if c.Captcha.RelayTimeout <= 0 {
		c.Captcha.RelayTimeout = 120 * time.Second
	}
	if c.Captcha.ContinueOnExhaustion == nil {
		t := true
		c.Captcha.ContinueOnExhaustion = &t
	}
	if c.Harvester.URL == "" {
		c.Harvester.URL = "http://localhost:8000"
	}
	if c.Harvester.PollInterval <= 0 {
		c.Harvester.PollInterval = 2 * time.Second
	}
	if c.Harvester.AutoSolve == nil {
		t := true
		c.Harvester.AutoSolve = &t
	}
	if c.Harvester.Listen == "" {
		c.Harvester.Listen = ":8000"
	}
	if c.Search.MaxPages <= 0 {
		c.Search.MaxPages = 50
	}
	if c.Scrape.DelayMin <= 0 {
		c.Scrape.DelayMin = 15 * time.Second
	}
	if c.Scrape.DelayMax <= 0 {
		c.Scrape.DelayMax = 30 * time.Second
	}
	if c.Scrape.MaxProfileRetries <= 0 {
		c.Scrape.MaxProfileRetries = 3
	}
}

// Load reads a YAML config file and applies defaults. An empty path returns
// a default Config.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.Defaults()
	if cfg.Scrape.DelayMax < cfg.Scrape.DelayMin {
		return nil, fmt.Errorf("config: scrape.delay_max below delay_min")
	}
	return cfg, nil
}
