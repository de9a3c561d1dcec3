package extract

import (
	"reflect"
	"testing"

	"github.com/maksud51/linkharvest/profile"
)

const overlayFixture = `<html><body><div role="dialog">
<h1>Alice Rahman</h1>
<section>
  <h3>Email</h3>
  <a href="mailto:alice@example.com">alice@example.com</a>
</section>
<section>
  <h3>Phone</h3>
  <span>+880 1712-345678</span>
</section>
<section>
  <h3>Websites</h3>
  <a href="https://alice.dev/blog">alice.dev/blog</a>
  <a href="https://gmail.com">gmail.com</a>
  <a href="https://www.linkedin.com/in/alice-rahman">profile</a>
</section>
<section>
  <h3>Connected</h3>
  <span>March 12, 2021</span>
</section>
<section>
  <h3>Birthday</h3>
  <span>June 4</span>
</section>
</div></body></html>`

func TestParseOverlayFixture(t *testing.T) {
	info := ParseOverlay(overlayFixture, "https://www.linkedin.com/in/alice-rahman/")

	if got := info[profile.ChannelEmail]; !reflect.DeepEqual(got, []string{"alice@example.com"}) {
		t.Errorf("email = %v", got)
	}
	if got := info[profile.ChannelPhone]; len(got) != 1 || got[0] != "+880 1712-345678" {
		t.Errorf("phone = %v", got)
	}
	if got := info[profile.ChannelWebsite]; !reflect.DeepEqual(got, []string{"https://alice.dev/blog"}) {
		t.Errorf("website = %v, want personal site only", got)
	}
	if got := info[profile.ChannelConnected]; !reflect.DeepEqual(got, []string{"March 12, 2021"}) {
		t.Errorf("connected = %v", got)
	}
	if got := info[profile.ChannelBirthday]; !reflect.DeepEqual(got, []string{"June 4"}) {
		t.Errorf("birthday = %v", got)
	}
}

func TestParseOverlayBirthdayNotFromConnected(t *testing.T) {
	// No Birthday section at all: the Connected date must not leak in.
	markup := `<html><body>
<section><h3>Connected</h3><span>March 12, 2021</span></section>
</body></html>`
	info := ParseOverlay(markup, "https://www.linkedin.com/in/alice/")
	if got := info[profile.ChannelBirthday]; len(got) != 0 {
		t.Errorf("birthday = %v, want none", got)
	}
	if got := info[profile.ChannelConnected]; !reflect.DeepEqual(got, []string{"March 12, 2021"}) {
		t.Errorf("connected = %v", got)
	}
}

func TestScanChannels(t *testing.T) {
	text := "Reach me at a@x.com or github.com/alice-dev, DM on t.me/alice_dev " +
		"or call +8801712345678. Skype: alice.r"
	info := profile.NewContactInfo()
	scanChannels(&info, text)

	if got := info[profile.ChannelEmail]; !reflect.DeepEqual(got, []string{"a@x.com"}) {
		t.Errorf("email = %v", got)
	}
	if got := info[profile.ChannelGitHub]; !reflect.DeepEqual(got, []string{"github.com/alice-dev"}) {
		t.Errorf("github = %v", got)
	}
	if got := info[profile.ChannelTelegram]; !reflect.DeepEqual(got, []string{"t.me/alice_dev"}) {
		t.Errorf("telegram = %v", got)
	}
	if got := info[profile.ChannelSkype]; !reflect.DeepEqual(got, []string{"alice.r"}) {
		t.Errorf("skype = %v", got)
	}
	if got := info[profile.ChannelPhone]; len(got) == 0 {
		t.Error("phone not found")
	}
}

func TestMergeKeepsFirstCasing(t *testing.T) {
	info := profile.NewContactInfo()
	info.Add(profile.ChannelEmail, "a@x.com")

	second := profile.NewContactInfo()
	second.Add(profile.ChannelEmail, "A@X.com")
	second.Add(profile.ChannelEmail, "b@y.com")

	info.Merge(second)

	want := []string{"a@x.com", "b@y.com"}
	if got := info[profile.ChannelEmail]; !reflect.DeepEqual(got, want) {
		t.Errorf("emails = %v, want %v", got, want)
	}
}

func TestScanRecordTextSecondPass(t *testing.T) {
	rec := &profile.Record{
		About: "Open source at github.com/alice-dev. Mail: alice@example.com",
		Experience: []profile.Experience{
			{Description: "Shipped the billing system. Contact b@y.com for references."},
		},
	}
	info := profile.NewContactInfo()
	info.Add(profile.ChannelEmail, "alice@example.com")

	ScanRecordText(&info, rec)

	want := []string{"alice@example.com", "b@y.com"}
	if got := info[profile.ChannelEmail]; !reflect.DeepEqual(got, want) {
		t.Errorf("emails = %v, want %v", got, want)
	}
	if got := info[profile.ChannelGitHub]; !reflect.DeepEqual(got, []string{"github.com/alice-dev"}) {
		t.Errorf("github = %v", got)
	}
}

func TestFilterWebsites(t *testing.T) {
	raw := []string{
		"https://gmail.com",                    // generic provider
		"https://someuniversity.edu",           // academic root
		"https://randomcompany.com",            // bare root, not a platform
		"https://alice.github.io",              // platform subdomain root, kept
		"https://portfolio.example.com/work",   // specific path, kept
		"https://portfolio.example.com",        // root shadowed by the above
		"https://portfolio.example.com/work",   // duplicate
		"https://someuniversity.edu/~alice/cv", // academic with a path, kept
	}
	got := FilterWebsites(raw)
	want := []string{
		"https://alice.github.io",
		"https://portfolio.example.com/work",
		"https://someuniversity.edu/~alice/cv",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterWebsites = %v, want %v", got, want)
	}
}

func TestOverlayText(t *testing.T) {
	markup := `<div><script>var x = 1;</script><p>Email: a@x.com &amp; more</p></div>`
	text := OverlayText(markup)
	if !reflect.DeepEqual(emailRE.FindAllString(text, -1), []string{"a@x.com"}) {
		t.Errorf("text = %q", text)
	}
}
