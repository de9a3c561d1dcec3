// Package scrape orchestrates a batch run: it walks the pending URL pool,
// drives navigation and extraction per profile, and persists each outcome.
// One profile failing never aborts the batch.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maksud51/linkharvest/extract"
	"github.com/maksud51/linkharvest/humanize"
	"github.com/maksud51/linkharvest/metrics"
	"github.com/maksud51/linkharvest/navigator"
	"github.com/maksud51/linkharvest/profile"
	"github.com/maksud51/linkharvest/store"
)

// Navigator is the navigation surface the orchestrator needs.
type Navigator interface {
	Navigate(ctx context.Context, url string, wait navigator.WaitStrategy, timeout time.Duration, maxRetries int) bool
}

// Extractor is the per-profile extraction surface.
type Extractor interface {
	AccessRestricted(ctx context.Context) bool
	DismissUpsell(ctx context.Context)
	ExpandSections(ctx context.Context)
	TopCard(ctx context.Context, rec *profile.Record)
	Experiences(ctx context.Context, profileURL string) []profile.Experience
	Educations(ctx context.Context, profileURL string) []profile.Education
	TopSkills(ctx context.Context) []string
	Certifications(ctx context.Context) []profile.Certification
	Projects(ctx context.Context) []profile.Project
	Languages(ctx context.Context) []string
	Recommendations(ctx context.Context) []profile.Recommendation
	Contact(ctx context.Context, profileURL string) *profile.ContactInfo
}

var _ Extractor = (*extract.Extractor)(nil)
var _ Navigator = (*navigator.Navigator)(nil)

// Config wires a Session.
type Config struct {
	Navigator Navigator
	Extractor Extractor
	Store     *store.Store
	Tracker   *navigator.Tracker
	Logger    *slog.Logger
	Metrics   *metrics.Metrics

	// NavTimeout is the initial per-navigation timeout; NavRetries the
	// retry budget per URL.
	NavTimeout time.Duration
	NavRetries int
	// DelayMin/DelayMax bound the pause between profiles before adaptive
	// scaling.
	DelayMin time.Duration
	DelayMax time.Duration

	// Settle runs after each successful navigation, before extraction.
	// Meant for reader-like scrolling over the fresh page.
	Settle func(ctx context.Context)
}

// Session runs scrape batches.
type Session struct {
	nav     Navigator
	ext     Extractor
	store   *store.Store
	tracker *navigator.Tracker
	logger  *slog.Logger
	metrics *metrics.Metrics

	navTimeout time.Duration
	navRetries int
	delayMin   time.Duration
	delayMax   time.Duration

	delay  func(ctx context.Context, current, total int, min, max time.Duration) error
	settle func(ctx context.Context)
}

// New creates a Session from cfg.
func New(cfg Config) *Session {
	s := &Session{
		nav:        cfg.Navigator,
		ext:        cfg.Extractor,
		store:      cfg.Store,
		tracker:    cfg.Tracker,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		navTimeout: cfg.NavTimeout,
		navRetries: cfg.NavRetries,
		delayMin:   cfg.DelayMin,
		delayMax:   cfg.DelayMax,
		delay:      humanize.AdaptiveDelay,
		settle:     cfg.Settle,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.navTimeout <= 0 {
		s.navTimeout = 30 * time.Second
	}
	if s.navRetries <= 0 {
		s.navRetries = 3
	}
	if s.delayMin <= 0 {
		s.delayMin = 15 * time.Second
	}
	if s.delayMax < s.delayMin {
		s.delayMax = 2 * s.delayMin
	}
	return s
}

// Stats summarizes one batch run.
type Stats struct {
	Processed int
	Scraped   int
	Failed    int
	Skipped   int
	Captcha   navigator.Summary
}

// Run scrapes every pending URL. Stops early only when ctx is done; the
// partial stats are still returned.
func (s *Session) Run(ctx context.Context) (Stats, error) {
	urls, err := s.store.GetPending(ctx, 0)
	if err != nil {
		return Stats{}, fmt.Errorf("scrape: list pending: %w", err)
	}
	return s.run(ctx, urls)
}

// RunURLs scrapes the given URLs, registering them as pending first.
func (s *Session) RunURLs(ctx context.Context, urls []string) (Stats, error) {
	for _, u := range urls {
		if err := s.store.AddPending(ctx, u); err != nil {
			return Stats{}, err
		}
	}
	return s.run(ctx, urls)
}

func (s *Session) run(ctx context.Context, urls []string) (Stats, error) {
	var stats Stats
	total := len(urls)
	s.logger.Info("batch started", "profiles", total)

	for i, url := range urls {
		if ctx.Err() != nil {
			s.finish(&stats)
			return stats, ctx.Err()
		}

		done, err := s.store.IsCompleted(ctx, url)
		if err != nil {
			return stats, fmt.Errorf("scrape: check %s: %w", url, err)
		}
		if done {
			stats.Skipped++
			s.metrics.IncProfile("skipped")
			continue
		}

		stats.Processed++
		rec, err := s.scrapeOne(ctx, url)
		if err != nil {
			stats.Failed++
			s.metrics.IncProfile("failed")
			s.logger.Warn("profile failed", "url", url, "error", err)
			if serr := s.store.MarkFailed(ctx, url, err.Error()); serr != nil {
				s.logger.Error("could not record failure", "url", url, "error", serr)
			}
		} else {
			stats.Scraped++
			s.metrics.IncProfile("scraped")
			s.logger.Info("profile scraped",
				"url", url,
				"completeness", fmt.Sprintf("%.0f%%", rec.Completeness()),
				"experience", len(rec.Experience), "education", len(rec.Education),
				"skills", len(rec.Skills))
			if serr := s.store.Save(ctx, url, rec); serr != nil {
				s.logger.Error("could not persist profile", "url", url, "error", serr)
			}
		}

		if i < total-1 {
			if err := s.delay(ctx, i+1, total, s.delayMin, s.delayMax); err != nil {
				s.finish(&stats)
				return stats, err
			}
		}
	}

	s.finish(&stats)
	return stats, nil
}

func (s *Session) finish(stats *Stats) {
	if s.tracker != nil {
		stats.Captcha = s.tracker.Summarize()
	}
	s.logger.Info("batch finished",
		"processed", stats.Processed, "scraped", stats.Scraped,
		"failed", stats.Failed, "skipped", stats.Skipped,
		"captcha_challenged", stats.Captcha.Challenged,
		"captcha_solved", stats.Captcha.Solved,
		"blocked_urls", stats.Captcha.Blocked)
}

// scrapeOne extracts a single profile. The recover guard keeps a panicking
// browser call from taking the whole batch down.
func (s *Session) scrapeOne(ctx context.Context, url string) (rec *profile.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("scrape: panic on %s: %v", url, r)
		}
	}()

	if !s.nav.Navigate(ctx, url, navigator.WaitDOMReady, s.navTimeout, s.navRetries) {
		return nil, fmt.Errorf("scrape: navigation failed for %s", url)
	}

	if s.settle != nil {
		s.settle(ctx)
	}

	s.ext.DismissUpsell(ctx)
	if s.ext.AccessRestricted(ctx) {
		return nil, fmt.Errorf("scrape: profile not accessible: %s", url)
	}

	rec = &profile.Record{URL: url, Contact: profile.NewContactInfo(), ScrapedAt: time.Now().UTC()}
	s.ext.TopCard(ctx, rec)
	s.ext.ExpandSections(ctx)

	rec.Experience = s.ext.Experiences(ctx, url)
	rec.Education = s.ext.Educations(ctx, url)
	rec.Skills = s.ext.TopSkills(ctx)
	rec.Certifications = s.ext.Certifications(ctx)
	rec.Projects = s.ext.Projects(ctx)
	rec.Languages = s.ext.Languages(ctx)
	rec.Recommendations = s.ext.Recommendations(ctx)

	if info := s.ext.Contact(ctx, url); info != nil {
		rec.Contact.Merge(*info)
	}
	extract.ScanRecordText(&rec.Contact, rec)

	if rec.Name == "" && len(rec.Experience) == 0 && len(rec.Education) == 0 {
		return nil, fmt.Errorf("scrape: nothing extracted from %s", url)
	}
	return rec, nil
}
