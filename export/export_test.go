package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/maksud51/linkharvest/profile"
)

func sampleRecord() *profile.Record {
	contact := profile.NewContactInfo()
	contact.Add(profile.ChannelEmail, "alice@example.com")
	contact.Add(profile.ChannelGitHub, "github.com/alice-dev")
	return &profile.Record{
		URL:      "https://example.com/in/alice/",
		Name:     "Alice Rahman",
		Headline: "Backend Engineer",
		Location: "Dhaka, Bangladesh",
		About:    "I build <b>distributed</b> systems.",
		Experience: []profile.Experience{{
			Title:        "Senior Engineer",
			Organization: "Acme Ltd",
			Dates:        profile.DateRange{Start: "Jan 2020", End: "Present"},
			Skills:       []string{"Go", "Rust"},
		}},
		Education: []profile.Education{{
			School: "North South University",
			Degree: "BSc", FieldOfStudy: "CS",
			Dates: profile.DateRange{Start: "2016", End: "2020"},
		}},
		Skills:  []string{"Go", "Docker"},
		Contact: contact,
	}
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	e := New()
	if err := e.JSON(&buf, []*profile.Record{sampleRecord()}); err != nil {
		t.Fatal(err)
	}

	var env struct {
		Count    int               `json:"count"`
		Profiles []*profile.Record `json:"profiles"`
	}
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("dump not valid json: %v", err)
	}
	if env.Count != 1 || len(env.Profiles) != 1 {
		t.Fatalf("count = %d, profiles = %d", env.Count, len(env.Profiles))
	}
	if env.Profiles[0].Name != "Alice Rahman" {
		t.Errorf("Name = %q", env.Profiles[0].Name)
	}
	// Absent fields stay empty in the JSON dump, no sentinel.
	if strings.Contains(buf.String(), "N/A") {
		t.Error("sentinel leaked into JSON export")
	}
}

func TestMarkdownReport(t *testing.T) {
	var buf bytes.Buffer
	e := New()
	rec := sampleRecord()
	rec.Headline = ""
	if err := e.Markdown(&buf, []*profile.Record{rec}); err != nil {
		t.Fatal(err)
	}
	report := buf.String()

	for _, want := range []string{
		"## Alice Rahman",
		"**Headline**: N/A",
		"**Senior Engineer** at Acme Ltd (Jan 2020 - Present)",
		"Skills: Go, Rust",
		"**North South University**, BSc in CS",
		"**email**: alice@example.com",
		"**github**: github.com/alice-dev",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
	// HTML in the about field is rendered to Markdown emphasis.
	if strings.Contains(report, "<b>") {
		t.Error("raw HTML leaked into the report")
	}
	if !strings.Contains(report, "**distributed**") {
		t.Error("about field not converted to markdown")
	}
}

func TestOrNA(t *testing.T) {
	if got := orNA(""); got != "N/A" {
		t.Errorf("orNA(\"\") = %q", got)
	}
	if got := orNA("value"); got != "value" {
		t.Errorf("orNA(value) = %q", got)
	}
}
