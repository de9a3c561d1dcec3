package browser

import (
	"fmt"
	"math/rand/v2"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Fingerprint is one randomized browser identity: user agent, viewport,
// locale, and timezone drawn from pools of realistic values.
type Fingerprint struct {
	UserAgent string
	Width     int
	Height    int
	Locale    string
	Timezone  string
	Scale     float64
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

var timezones = []string{
	"America/New_York", "America/Chicago", "America/Los_Angeles",
	"Europe/London", "Europe/Paris", "Asia/Tokyo", "Australia/Sydney",
}

var locales = []string{"en-US", "en-GB", "en-CA", "en-AU", "en-NZ"}

var resolutions = [][2]int{
	{1920, 1080},
	{1366, 768},
	{1440, 900},
	{2560, 1440},
}

var scaleFactors = []float64{1, 1.25, 1.5, 2}

// RandomFingerprint draws one identity from the pools.
func RandomFingerprint() Fingerprint {
	res := resolutions[rand.IntN(len(resolutions))]
	return Fingerprint{
		UserAgent: userAgents[rand.IntN(len(userAgents))],
		Width:     res[0],
		Height:    res[1],
		Locale:    locales[rand.IntN(len(locales))],
		Timezone:  timezones[rand.IntN(len(timezones))],
		Scale:     scaleFactors[rand.IntN(len(scaleFactors))],
	}
}

// ApplyFingerprint sets the user agent, viewport, timezone and locale on the
// page and injects the anti-detection init script so it runs before every
// document's own scripts.
func ApplyFingerprint(page *rod.Page, fp Fingerprint) error {
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      fp.UserAgent,
		AcceptLanguage: fp.Locale,
	}); err != nil {
		return fmt.Errorf("browser: set user agent: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             fp.Width,
		Height:            fp.Height,
		DeviceScaleFactor: fp.Scale,
	}); err != nil {
		return fmt.Errorf("browser: set viewport: %w", err)
	}

	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: fp.Timezone}).Call(page); err != nil {
		return fmt.Errorf("browser: set timezone: %w", err)
	}

	if _, err := page.EvalOnNewDocument(stealthInitScript); err != nil {
		return fmt.Errorf("browser: init script: %w", err)
	}
	return nil
}

// stealthInitScript removes the usual automation tells. Runs in every new
// document before page scripts.
const stealthInitScript = `
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
	Object.defineProperty(navigator, 'vendor', { get: () => 'Google Inc.' });

	window.chrome = window.chrome || {
		runtime: {},
		loadTimes: function() {},
		csi: function() {},
	};

	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications' ?
			Promise.resolve({ state: Notification.permission }) :
			originalQuery(parameters)
	);
`
