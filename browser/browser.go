// Package browser owns the Chrome session used for scraping: launch with
// anti-detection flags, one stealth page with a randomized fingerprint, and
// teardown. The scraper is strictly single-session, single-page; concurrent
// tabs would multiply challenge exposure and DOM-state races.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures the Session.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless runs Chrome without a window. Headed mode survives more
	// challenge flows; headless is fine for bulk runs.
	Headless bool

	// Stealth applies the stealth page setup and the fingerprint init script.
	Stealth bool

	// Proxy server URL, e.g. http://proxy:8080.
	Proxy string

	// ResourceBlocking lists resource types to block (images, fonts, media).
	ResourceBlocking []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is the live browser plus its single scraping page.
type Session struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	closed  bool
}

// NewSession creates a Session. Call Start to launch Chrome.
func NewSession(cfg Config) *Session {
	cfg.defaults()
	return &Session{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance) and opens the
// scraping page with stealth and fingerprint applied.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("browser: session is closed")
	}

	log := s.cfg.Logger

	var wsURL string
	if s.cfg.RemoteURL != "" {
		wsURL = s.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := applyLaunchFlags(launcher.New().Headless(s.cfg.Headless))
		if s.cfg.Proxy != "" {
			l = l.Proxy(s.cfg.Proxy)
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		log.Info("browser: launched local chrome", "headless", s.cfg.Headless)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	page, err := s.openPage(ctx)
	if err != nil {
		s.cleanupLocked()
		return err
	}
	s.page = page

	return nil
}

// Page returns the scraping page. Nil until Start succeeds.
func (s *Session) Page() *rod.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Close shuts down the page, Chrome, and the launcher.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cleanupLocked()
	return nil
}

func (s *Session) openPage(ctx context.Context) (*rod.Page, error) {
	var page *rod.Page
	var err error

	if s.cfg.Stealth {
		page, err = stealth.Page(s.browser)
	} else {
		page, err = s.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	fp := RandomFingerprint()
	if err := ApplyFingerprint(page, fp); err != nil {
		s.cfg.Logger.Warn("browser: fingerprint apply failed", "error", err)
	}

	if len(s.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, s.cfg.ResourceBlocking); err != nil {
			s.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	s.cfg.Logger.Info("browser: page ready",
		"viewport", fmt.Sprintf("%dx%d", fp.Width, fp.Height),
		"locale", fp.Locale, "timezone", fp.Timezone)
	_ = ctx
	return page, nil
}

func (s *Session) cleanupLocked() {
	if s.page != nil {
		s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}

// Cookies returns the session's cookies, for persistence across runs.
func (s *Session) Cookies() ([]*proto.NetworkCookie, error) {
	s.mu.Lock()
	b := s.browser
	s.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	cookies, err := b.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("browser: get cookies: %w", err)
	}
	return cookies, nil
}

// SetCookies restores cookies saved by a previous run.
func (s *Session) SetCookies(cookies []*proto.NetworkCookieParam) error {
	s.mu.Lock()
	b := s.browser
	s.mu.Unlock()
	if b == nil {
		return fmt.Errorf("browser: no active browser")
	}
	if err := b.SetCookies(cookies); err != nil {
		return fmt.Errorf("browser: set cookies: %w", err)
	}
	return nil
}

type launchFlag struct {
	name  flags.Flag
	value string
}

// applyLaunchFlags sets the anti-detection flags on a launcher.
func applyLaunchFlags(l *launcher.Launcher) *launcher.Launcher {
	for _, f := range launchFlags {
		if f.value == "" {
			l = l.Set(f.name)
		} else {
			l = l.Set(f.name, f.value)
		}
	}
	return l
}

// Anti-detection flags carried by every local launch.
var launchFlags = []launchFlag{
	{"disable-blink-features", "AutomationControlled"},
	{"disable-dev-shm-usage", ""},
	{"no-sandbox", ""},
	{"disable-site-isolation-trials", ""},
	{"disable-background-timer-throttling", ""},
	{"disable-backgrounding-occluded-windows", ""},
	{"disable-ipc-flooding-protection", ""},
	{"disable-popup-blocking", ""},
	{"disable-default-apps", ""},
	{"disable-sync", ""},
	{"disable-client-side-phishing-detection", ""},
}
