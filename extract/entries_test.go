package extract

import (
	"reflect"
	"testing"
)

func TestBuildExperienceBasic(t *testing.T) {
	raw := rawEntry{
		Title:    "Senior Software Engineer",
		Meta:     []string{"Acme Technologies · Full-time"},
		Caption:  "Jan 2020 - Present · 3 yrs 2 mos",
		Light:    []string{"Dhaka, Bangladesh · Remote"},
		FullText: "Senior Software Engineer Acme Technologies Full-time Jan 2020 - Present",
	}
	exp, ok := buildExperience(raw)
	if !ok {
		t.Fatal("buildExperience vetoed a valid entry")
	}
	if exp.Title != "Senior Software Engineer" {
		t.Errorf("Title = %q", exp.Title)
	}
	if exp.Organization != "Acme Technologies" {
		t.Errorf("Organization = %q", exp.Organization)
	}
	if exp.EmploymentType != "Full-time" {
		t.Errorf("EmploymentType = %q", exp.EmploymentType)
	}
	if exp.Dates.Start != "Jan 2020" || exp.Dates.End != "Present" {
		t.Errorf("Dates = %+v", exp.Dates)
	}
	if exp.Location != "Dhaka, Bangladesh · Remote" || exp.WorkMode != "Remote" {
		t.Errorf("Location = %q WorkMode = %q", exp.Location, exp.WorkMode)
	}
}

func TestBuildExperienceLocationMistakenForOrg(t *testing.T) {
	// No org link text to recover from: the place moves to the location
	// field and the organization is cleared.
	raw := rawEntry{
		Title:    "Freelance Designer",
		Meta:     []string{"Dhaka, Bangladesh"},
		Caption:  "2021 - 2022",
		FullText: "Freelance Designer Dhaka, Bangladesh 2021 - 2022",
	}
	exp, ok := buildExperience(raw)
	if !ok {
		t.Fatal("entry vetoed")
	}
	if exp.Organization != "" {
		t.Errorf("Organization = %q, want empty", exp.Organization)
	}
	if exp.Location != "Dhaka, Bangladesh" {
		t.Errorf("Location = %q, want Dhaka, Bangladesh", exp.Location)
	}
}

func TestBuildExperienceOrgLinkTextRecovery(t *testing.T) {
	raw := rawEntry{
		Title:       "Engineer",
		Meta:        []string{"Singapore"},
		OrgLinkText: "Acme Pte Ltd",
		Caption:     "2019 - 2020",
		FullText:    "Engineer Singapore 2019 - 2020",
	}
	exp, ok := buildExperience(raw)
	if !ok {
		t.Fatal("entry vetoed")
	}
	if exp.Organization != "Acme Pte Ltd" {
		t.Errorf("Organization = %q, want Acme Pte Ltd", exp.Organization)
	}
}

func TestBuildExperienceParentInheritance(t *testing.T) {
	raw := rawEntry{
		Title:        "Backend Engineer",
		ParentOrg:    "Globex Corporation",
		ParentOrgURL: "https://example.com/company/globex",
		Caption:      "Jun 2022 - Present · 1 yr",
		FullText:     "Backend Engineer Jun 2022 - Present 1 yr",
	}
	exp, ok := buildExperience(raw)
	if !ok {
		t.Fatal("entry vetoed")
	}
	if exp.Organization != "Globex Corporation" {
		t.Errorf("Organization = %q, want Globex Corporation", exp.Organization)
	}
	if exp.OrganizationURL != "https://example.com/company/globex" {
		t.Errorf("OrganizationURL = %q", exp.OrganizationURL)
	}
}

func TestBuildExperiencePersonNameVeto(t *testing.T) {
	raw := rawEntry{
		Title:    "Rahim Uddin",
		Meta:     []string{"Talks about #golang"},
		FullText: "Rahim Uddin Talks about #golang",
	}
	// The meta line becomes an organization candidate only if it survives
	// the location check; a sidebar card has no dates or duration.
	raw.Meta = nil
	if _, ok := buildExperience(raw); ok {
		t.Error("sidebar person card accepted as experience")
	}
}

func TestBuildExperienceEducationVeto(t *testing.T) {
	raw := rawEntry{
		Title:    "North South University",
		Meta:     []string{"Bachelor of Science, Computer Science"},
		FullText: "North South University Bachelor of Science, Computer Science GPA 3.8",
	}
	if _, ok := buildExperience(raw); ok {
		t.Error("pure-education entry accepted as experience")
	}
}

func TestBuildExperienceDuplicatedTitle(t *testing.T) {
	raw := rawEntry{
		Title:    "Product ManagerProduct Manager",
		Meta:     []string{"Initech · Contract"},
		Caption:  "Feb 2021 - Mar 2023",
		FullText: "Product Manager Initech Contract Feb 2021 - Mar 2023",
	}
	exp, ok := buildExperience(raw)
	if !ok {
		t.Fatal("entry vetoed")
	}
	if exp.Title != "Product Manager" {
		t.Errorf("Title = %q, want collapsed duplicate", exp.Title)
	}
}

func TestBuildExperienceInlineSkills(t *testing.T) {
	raw := rawEntry{
		Title:      "Engineer",
		Meta:       []string{"Acme Ltd"},
		Caption:    "2020 - 2021",
		FullText:   "Engineer Acme Ltd 2020 - 2021 Skills: Go · Rust",
		SkillsHref: "/in/someone/details/experience/urn/skill-associations/",
	}
	exp, ok := buildExperience(raw)
	if !ok {
		t.Fatal("entry vetoed")
	}
	if !reflect.DeepEqual(exp.Skills, []string{"Go", "Rust"}) {
		t.Errorf("Skills = %v, want [Go Rust]", exp.Skills)
	}
}

func TestBuildEducationBasic(t *testing.T) {
	raw := rawEntry{
		Title:    "North South University",
		Meta:     []string{"Bachelor of Science, Computer Science"},
		Caption:  "2016 - 2020",
		Light:    []string{"Grade: 3.85 CGPA"},
		FullText: "North South University Bachelor of Science, Computer Science 2016 - 2020",
	}
	edu, ok := buildEducation(raw)
	if !ok {
		t.Fatal("buildEducation vetoed a valid entry")
	}
	if edu.School != "North South University" {
		t.Errorf("School = %q", edu.School)
	}
	if edu.Degree != "Bachelor of Science" || edu.FieldOfStudy != "Computer Science" {
		t.Errorf("Degree = %q Field = %q", edu.Degree, edu.FieldOfStudy)
	}
	if edu.Dates.Start != "2016" || edu.Dates.End != "2020" {
		t.Errorf("Dates = %+v", edu.Dates)
	}
	if edu.Grade != "Grade: 3.85 CGPA" {
		t.Errorf("Grade = %q", edu.Grade)
	}
}

func TestBuildEducationRejectsEmployment(t *testing.T) {
	raw := rawEntry{
		Title:    "Acme Technologies",
		Meta:     []string{"Software Engineer"},
		FullText: "Acme Technologies Software Engineer Full-time Jan 2020 - Present",
	}
	if _, ok := buildEducation(raw); ok {
		t.Error("employment entry accepted as education")
	}
}

func TestBuildEducationRejectsNoise(t *testing.T) {
	raw := rawEntry{
		Title:    "12,345 followers",
		FullText: "12,345 followers some sidebar widget text here",
	}
	if _, ok := buildEducation(raw); ok {
		t.Error("follower-count noise accepted as education")
	}
}

func TestIsDateLike(t *testing.T) {
	if !isDateLike("Jan 2020 - Dec 2021") {
		t.Error("date range not recognized")
	}
	if isDateLike("Acme - the best company") {
		t.Error("non-date dash string recognized as date")
	}
}
