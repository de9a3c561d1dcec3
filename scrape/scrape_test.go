package scrape

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/maksud51/linkharvest/internal/dbopen"
	"github.com/maksud51/linkharvest/navigator"
	"github.com/maksud51/linkharvest/profile"
	"github.com/maksud51/linkharvest/store"
)

type fakeNav struct {
	fail map[string]bool
	seen []string
}

func (f *fakeNav) Navigate(ctx context.Context, url string, wait navigator.WaitStrategy, timeout time.Duration, maxRetries int) bool {
	f.seen = append(f.seen, url)
	return !f.fail[url]
}

type fakeExt struct {
	restricted map[string]bool
	panicOn    string
	current    string
}

func (f *fakeExt) AccessRestricted(ctx context.Context) bool { return f.restricted[f.current] }
func (f *fakeExt) DismissUpsell(ctx context.Context)         {}
func (f *fakeExt) ExpandSections(ctx context.Context)        {}

func (f *fakeExt) TopCard(ctx context.Context, rec *profile.Record) {
	if f.current == f.panicOn {
		panic("page detached")
	}
	rec.Name = "Profile " + f.current
	rec.Headline = "Engineer"
}

func (f *fakeExt) Experiences(ctx context.Context, profileURL string) []profile.Experience {
	return []profile.Experience{{Title: "Engineer", Organization: "Acme Ltd"}}
}

func (f *fakeExt) Educations(ctx context.Context, profileURL string) []profile.Education {
	return nil
}

func (f *fakeExt) TopSkills(ctx context.Context) []string { return []string{"Go"} }

func (f *fakeExt) Certifications(ctx context.Context) []profile.Certification { return nil }
func (f *fakeExt) Projects(ctx context.Context) []profile.Project             { return nil }
func (f *fakeExt) Languages(ctx context.Context) []string                     { return nil }
func (f *fakeExt) Recommendations(ctx context.Context) []profile.Recommendation {
	return nil
}

func (f *fakeExt) Contact(ctx context.Context, profileURL string) *profile.ContactInfo {
	info := profile.NewContactInfo()
	info.Add(profile.ChannelEmail, "someone@example.com")
	return &info
}

// trackingExt routes the current URL into the fake so per-URL behavior works.
type trackingExt struct {
	*fakeExt
	nav *fakeNav
}

func (t *trackingExt) AccessRestricted(ctx context.Context) bool {
	t.current = t.nav.seen[len(t.nav.seen)-1]
	return t.fakeExt.AccessRestricted(ctx)
}

func newTestSession(t *testing.T, nav *fakeNav, ext Extractor) (*Session, *store.Store) {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	st := store.NewWithDB(db)
	s := New(Config{
		Navigator: nav,
		Extractor: ext,
		Store:     st,
		Tracker:   navigator.NewTracker(3),
		Logger:    slog.New(slog.DiscardHandler),
	})
	s.delay = func(ctx context.Context, current, total int, min, max time.Duration) error {
		return nil
	}
	return s, st
}

func TestRunScrapesPendingAndPersists(t *testing.T) {
	ctx := context.Background()
	nav := &fakeNav{}
	ext := &trackingExt{fakeExt: &fakeExt{}, nav: nav}
	s, st := newTestSession(t, nav, ext)

	urls := []string{"https://example.com/in/a/", "https://example.com/in/b/"}
	for _, u := range urls {
		if err := st.AddPending(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Scraped != 2 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	for _, u := range urls {
		done, _ := st.IsCompleted(ctx, u)
		if !done {
			t.Errorf("%s not completed", u)
		}
		rec, err := st.Record(ctx, u)
		if err != nil || rec == nil {
			t.Fatalf("Record(%s) = %v, %v", u, rec, err)
		}
		if len(rec.Contact[profile.ChannelEmail]) == 0 {
			t.Errorf("contact info not persisted for %s", u)
		}
	}
}

func TestSettleRunsPerNavigatedProfile(t *testing.T) {
	ctx := context.Background()
	nav := &fakeNav{fail: map[string]bool{"https://example.com/in/down/": true}}
	ext := &trackingExt{fakeExt: &fakeExt{}, nav: nav}
	s, st := newTestSession(t, nav, ext)

	settled := 0
	s.settle = func(ctx context.Context) { settled++ }

	urls := []string{"https://example.com/in/a/", "https://example.com/in/down/", "https://example.com/in/b/"}
	for _, u := range urls {
		if err := st.AddPending(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	// Only pages that actually loaded get the reader-like pass.
	if settled != 2 {
		t.Errorf("settle ran %d times, want 2", settled)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	nav := &fakeNav{fail: map[string]bool{"https://example.com/in/bad/": true}}
	ext := &trackingExt{fakeExt: &fakeExt{}, nav: nav}
	s, st := newTestSession(t, nav, ext)

	urls := []string{
		"https://example.com/in/bad/",
		"https://example.com/in/good/",
	}
	for _, u := range urls {
		st.AddPending(ctx, u)
	}

	stats, err := s.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Scraped != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if done, _ := st.IsCompleted(ctx, "https://example.com/in/good/"); !done {
		t.Error("good profile not completed after bad one failed")
	}
	// The failed URL goes back to pending for the next run.
	pending, _ := st.GetPending(ctx, 0)
	if len(pending) != 1 || pending[0] != "https://example.com/in/bad/" {
		t.Errorf("pending = %v", pending)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	nav := &fakeNav{}
	ext := &trackingExt{fakeExt: &fakeExt{panicOn: "https://example.com/in/crash/"}, nav: nav}
	s, st := newTestSession(t, nav, ext)

	st.AddPending(ctx, "https://example.com/in/crash/")
	st.AddPending(ctx, "https://example.com/in/ok/")

	stats, err := s.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failed != 1 || stats.Scraped != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRunSkipsCompleted(t *testing.T) {
	ctx := context.Background()
	nav := &fakeNav{}
	ext := &trackingExt{fakeExt: &fakeExt{}, nav: nav}
	s, st := newTestSession(t, nav, ext)

	done := "https://example.com/in/done/"
	st.Save(ctx, done, &profile.Record{URL: done, Name: "Done"})

	stats, err := s.RunURLs(ctx, []string{done, "https://example.com/in/new/"})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 1 || stats.Scraped != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(nav.seen) != 1 || strings.Contains(nav.seen[0], "/done/") {
		t.Errorf("navigated to completed url: %v", nav.seen)
	}
}

func TestRunRestrictedProfileFails(t *testing.T) {
	ctx := context.Background()
	nav := &fakeNav{}
	url := "https://example.com/in/private/"
	ext := &trackingExt{fakeExt: &fakeExt{restricted: map[string]bool{url: true}}, nav: nav}
	s, st := newTestSession(t, nav, ext)

	st.AddPending(ctx, url)
	stats, err := s.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failed != 1 || stats.Scraped != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
