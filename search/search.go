// Package search discovers candidate profile URLs from people-search result
// pages: one query, paginated results, every profile link collected and
// deduplicated.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/maksud51/linkharvest/humanize"
	"github.com/maksud51/linkharvest/navigator"
)

// DefaultBaseURL is the search host when none is configured.
const DefaultBaseURL = "https://www.linkedin.com"

// Navigator is the navigation surface the searcher needs.
type Navigator interface {
	Navigate(ctx context.Context, url string, wait navigator.WaitStrategy, timeout time.Duration, maxRetries int) bool
}

// Page is the in-page scripting surface the searcher needs.
type Page interface {
	EvalString(ctx context.Context, js string) (string, error)
}

var _ Navigator = (*navigator.Navigator)(nil)

// Query is one people search.
type Query struct {
	Keywords string
	// Location is an optional free-text location filter.
	Location string
}

// Config wires a Searcher.
type Config struct {
	Navigator Navigator
	Page      Page
	Logger    *slog.Logger

	// BaseURL overrides the search host, for testing.
	BaseURL string
	// MaxPages caps result-page pagination. Defaults to 50.
	MaxPages int
	// MaxResults caps collected URLs. Zero = unlimited.
	MaxResults int
	// NavTimeout/NavRetries govern each result-page navigation. Search
	// pages render slowly, so the defaults are generous: 60s, 5 retries.
	NavTimeout time.Duration
	NavRetries int
}

// Searcher walks people-search result pages for a query.
type Searcher struct {
	nav    Navigator
	page   Page
	logger *slog.Logger

	baseURL    string
	maxPages   int
	maxResults int
	navTimeout time.Duration
	navRetries int

	delay func(ctx context.Context, min, max time.Duration)
}

// New creates a Searcher from cfg.
func New(cfg Config) *Searcher {
	s := &Searcher{
		nav:        cfg.Navigator,
		page:       cfg.Page,
		logger:     cfg.Logger,
		baseURL:    cfg.BaseURL,
		maxPages:   cfg.MaxPages,
		maxResults: cfg.MaxResults,
		navTimeout: cfg.NavTimeout,
		navRetries: cfg.NavRetries,
		delay:      humanize.Pause,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if s.maxPages <= 0 {
		s.maxPages = 50
	}
	if s.navTimeout <= 0 {
		s.navTimeout = 60 * time.Second
	}
	if s.navRetries <= 0 {
		s.navRetries = 5
	}
	return s
}

// Run executes one query and returns the deduplicated profile URLs found
// across the result pages, in discovery order.
func (s *Searcher) Run(ctx context.Context, q Query) ([]string, error) {
	if strings.TrimSpace(q.Keywords) == "" {
		return nil, fmt.Errorf("search: empty keywords")
	}

	target := s.searchURL(q)
	if !s.nav.Navigate(ctx, target, navigator.WaitDOMReady, s.navTimeout, s.navRetries) {
		return nil, fmt.Errorf("search: could not open results for %q", q.Keywords)
	}

	seen := make(map[string]struct{})
	var found []string
	stalled := 0

	for page := 1; page <= s.maxPages; page++ {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}

		s.settlePage(ctx)

		links, err := s.collectLinks(ctx)
		if err != nil {
			s.logger.Warn("result page yielded no links", "page", page, "error", err)
		}

		added := 0
		for _, link := range links {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			found = append(found, link)
			added++
			if s.maxResults > 0 && len(found) >= s.maxResults {
				s.logger.Info("result cap reached", "count", len(found), "page", page)
				return found, nil
			}
		}
		s.logger.Info("result page collected", "page", page, "new", added, "total", len(found))

		// Three consecutive pages with nothing new means the result set
		// has been walked past its end.
		if added == 0 {
			stalled++
			if stalled >= 3 {
				break
			}
		} else {
			stalled = 0
		}

		if !s.nextPage(ctx) {
			break
		}
		s.delay(ctx, 2*time.Second, 4*time.Second)
	}

	return found, nil
}

// searchURL builds the people-search URL for q.
func (s *Searcher) searchURL(q Query) string {
	u := s.baseURL + "/search/results/people/?keywords=" + url.QueryEscape(q.Keywords)
	if q.Location != "" {
		u += "&location=" + url.QueryEscape(q.Location)
	}
	return u
}

const scrollBottomJS = `() => {
	window.scrollTo(0, document.body.scrollHeight);
	return '';
}`

const scrollTopJS = `() => {
	window.scrollTo(0, 0);
	return '';
}`

// settlePage scrolls the result page to the bottom in a few passes so lazy
// result cards render, then returns to the top.
func (s *Searcher) settlePage(ctx context.Context) {
	for i := 0; i < 3; i++ {
		s.page.EvalString(ctx, scrollBottomJS)
		s.delay(ctx, 500*time.Millisecond, 1200*time.Millisecond)
	}
	s.page.EvalString(ctx, scrollTopJS)
}

const resultLinksJS = `() => {
	const hrefs = [];
	for (const a of document.querySelectorAll('a[href*="/in/"]')) {
		const href = a.getAttribute('href');
		if (href) hrefs.push(href);
	}
	return JSON.stringify(hrefs);
}`

// collectLinks reads every profile anchor off the current page and
// normalizes them: tracking params stripped, relative paths absolutized.
func (s *Searcher) collectLinks(ctx context.Context) ([]string, error) {
	raw, err := s.page.EvalString(ctx, resultLinksJS)
	if err != nil {
		return nil, err
	}
	var hrefs []string
	if err := json.Unmarshal([]byte(raw), &hrefs); err != nil {
		return nil, fmt.Errorf("search: parse result links: %w", err)
	}

	var links []string
	for _, href := range hrefs {
		link, ok := normalizeProfileURL(href, s.baseURL)
		if !ok {
			continue
		}
		links = append(links, link)
	}
	return links, nil
}

// normalizeProfileURL turns a result-page href into a canonical profile URL.
func normalizeProfileURL(href, base string) (string, bool) {
	href, _, _ = strings.Cut(href, "?")
	href, _, _ = strings.Cut(href, "#")
	if !strings.Contains(href, "/in/") {
		return "", false
	}
	if strings.HasPrefix(href, "/") {
		href = base + href
	}
	u, err := url.Parse(href)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	if !strings.HasPrefix(u.Path, "/in/") || u.Path == "/in" {
		return "", false
	}
	return u.String(), true
}

const nextPageJS = `() => {
	const btn = document.querySelector('button[aria-label*="Next"]');
	if (!btn || btn.disabled) return '';
	btn.scrollIntoView();
	btn.click();
	return '1';
}`

// nextPage clicks the pagination control, reporting whether there was one.
func (s *Searcher) nextPage(ctx context.Context) bool {
	res, err := s.page.EvalString(ctx, nextPageJS)
	return err == nil && res == "1"
}
