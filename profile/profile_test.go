package profile

import (
	"reflect"
	"testing"
)

func TestCollapseDuplicateText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"CEOCEO", "CEO"},
		{"Senior Developer Senior Developer", "Senior Developer"},
		{"CEO CEO", "CEO"},
		{"Backend Engineer", "Backend Engineer"},
		{"", ""},
		{"aa", "a"},
		{"Data Analyst at Acme", "Data Analyst at Acme"},
	}
	for _, tc := range cases {
		if got := CollapseDuplicateText(tc.in); got != tc.want {
			t.Errorf("CollapseDuplicateText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDedupeExperience(t *testing.T) {
	entries := []Experience{
		{Title: "EngineerEngineer", Organization: "Acme", Dates: DateRange{Start: "2020"}},
		{Title: "Engineer", Organization: "Acme", Dates: DateRange{Start: "2020"}},
		{Title: "Engineer", Organization: "Acme", Dates: DateRange{Start: "2018"}},
	}
	got := DedupeExperience(entries)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(got), got)
	}
	if got[0].Title != "Engineer" {
		t.Errorf("title not collapsed before keying: %q", got[0].Title)
	}
}

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{"Go", "go", " Docker ", "", "Docker"})
	want := []string{"Go", "Docker"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DedupeStrings = %v, want %v", got, want)
	}
}

func TestCompleteness(t *testing.T) {
	empty := &Record{URL: "u"}
	if got := empty.Completeness(); got != 0 {
		t.Errorf("empty record completeness = %v, want 0", got)
	}

	full := &Record{
		URL: "u", Name: "N", Headline: "H", Location: "L", About: "A",
		Experience: []Experience{{Title: "T"}},
		Education:  []Education{{School: "S"}},
		Skills:     []string{"Go"},
	}
	if got := full.Completeness(); got != 100 {
		t.Errorf("full record completeness = %v, want 100", got)
	}

	half := &Record{URL: "u", Name: "N", Headline: "H", Location: "L"}
	got := half.Completeness()
	if got <= 40 || got >= 50 {
		t.Errorf("3/7 record completeness = %v, want ~42.9", got)
	}
}

func TestContactInfoAddNormalizes(t *testing.T) {
	c := NewContactInfo()
	c.Add(ChannelPhone, "+880 1712-345678")
	c.Add(ChannelPhone, "8801712345678")
	if got := c[ChannelPhone]; len(got) != 1 || got[0] != "+880 1712-345678" {
		t.Errorf("phone = %v, want single original form", got)
	}

	c.Add(ChannelWebsite, "https://www.alice.dev/")
	c.Add(ChannelWebsite, "http://alice.dev")
	if got := c[ChannelWebsite]; len(got) != 1 {
		t.Errorf("website = %v, want url-normalized single entry", got)
	}

	c.Add(ChannelEmail, "")
	if len(c[ChannelEmail]) != 0 {
		t.Error("empty value stored")
	}
}

func TestContactInfoEmpty(t *testing.T) {
	c := NewContactInfo()
	if !c.Empty() {
		t.Error("fresh ContactInfo not empty")
	}
	c.Add(ChannelEmail, "a@x.com")
	if c.Empty() {
		t.Error("populated ContactInfo reported empty")
	}
}

func TestExperienceKey(t *testing.T) {
	e := Experience{Title: "Engineer", Organization: "Acme", Dates: DateRange{Start: "Jan 2020"}}
	if got := e.Key(); got != "Engineer|Acme|Jan 2020" {
		t.Errorf("Key = %q", got)
	}
}
