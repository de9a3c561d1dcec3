package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerServesCollectors(t *testing.T) {
	m := New()
	m.IncNavigation("success")
	m.IncNavigation("success")
	m.IncCaptcha("solved")
	m.SetBlockedURLs(2)
	m.IncProfile("scraped")
	m.AddEntries("experience", 5)
	m.IncRelayPoll()
	m.ObserveNavigation(3 * time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	text := string(body)
	for _, want := range []string{
		`linkharvest_navigations_total{outcome="success"} 2`,
		`linkharvest_captcha_events_total{event="solved"} 1`,
		`linkharvest_blocked_urls 2`,
		`linkharvest_profiles_total{outcome="scraped"} 1`,
		`linkharvest_section_entries_total{section="experience"} 5`,
		`linkharvest_relay_polls_total 1`,
		`linkharvest_navigation_duration_seconds_count 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncNavigation("success")
	m.IncCaptcha("solved")
	m.SetBlockedURLs(1)
	m.IncProfile("failed")
	m.AddEntries("education", 1)
	m.IncRelayPoll()
	m.ObserveNavigation(time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code == 0 {
		t.Error("nil handler did not respond")
	}
}
