package extract

import (
	"context"
	"reflect"
	"testing"

	"github.com/maksud51/linkharvest/profile"
)

func TestTopCard(t *testing.T) {
	f := &fakeBrowser{
		topCard: `{"name":"Alice RahmanAlice Rahman","headline":"Backend Engineer",` +
			`"location":"Dhaka, Bangladesh","about":"I build distributed systems."}`,
	}
	e := newTestExtractor(f)

	var rec profile.Record
	e.TopCard(context.Background(), &rec)

	if rec.Name != "Alice Rahman" {
		t.Errorf("Name = %q, want collapsed duplicate", rec.Name)
	}
	if rec.Headline != "Backend Engineer" || rec.Location != "Dhaka, Bangladesh" {
		t.Errorf("Headline = %q Location = %q", rec.Headline, rec.Location)
	}
	if rec.About != "I build distributed systems." {
		t.Errorf("About = %q", rec.About)
	}
}

func TestTopSkills(t *testing.T) {
	f := &fakeBrowser{sectionTitles: `["Go","Docker","Go","Kubernetes"]`}
	e := newTestExtractor(f)

	got := e.TopSkills(context.Background())
	want := []string{"Go", "Docker", "Kubernetes"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopSkills = %v, want %v", got, want)
	}
}

func TestCertifications(t *testing.T) {
	f := &fakeBrowser{
		certs: `[{"name":"CKA","issuer":"CNCF","issueDate":"Issued Mar 2023","credentialId":"LF-abc123"},` +
			`{"name":"CKA","issuer":"CNCF"}]`,
	}
	e := newTestExtractor(f)

	got := e.Certifications(context.Background())
	if len(got) != 1 {
		t.Fatalf("got %d certifications, want deduped 1", len(got))
	}
	want := profile.Certification{
		Name: "CKA", Issuer: "CNCF", IssueDate: "Issued Mar 2023", CredentialID: "LF-abc123",
	}
	if got[0] != want {
		t.Errorf("cert = %+v, want %+v", got[0], want)
	}
}

func TestAccessRestricted(t *testing.T) {
	f := &fakeBrowser{html: `<html><body><h1>This profile is not available</h1></body></html>`}
	e := newTestExtractor(f)
	if !e.AccessRestricted(context.Background()) {
		t.Error("restricted page not detected")
	}

	f.html = `<html><body><main><h1>Alice Rahman</h1></main></body></html>`
	if e.AccessRestricted(context.Background()) {
		t.Error("normal page flagged as restricted")
	}

	f.html = `<html><body><script>track("404 error")</script><main><h1>Alice Rahman</h1></main></body></html>`
	if e.AccessRestricted(context.Background()) {
		t.Error("script payload triggered restriction check")
	}
}

func TestVisibleText(t *testing.T) {
	markup := `<html><body>
		<nav>Home Jobs Network</nav>
		<div role="navigation">More chrome</div>
		<script>var x = "hidden";</script>
		<style>.a { color: red }</style>
		<main><h1>Alice Rahman</h1><p>Platform engineer</p></main>
		<footer>About Accessibility</footer>
	</body></html>`
	got := visibleText(markup)
	if got != "Alice Rahman Platform engineer" {
		t.Errorf("visibleText = %q", got)
	}
}
