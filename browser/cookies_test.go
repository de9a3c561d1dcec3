package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestDecodeCookiesRoundTrip(t *testing.T) {
	data := []byte(`[
		{"name": "li_at", "value": "tok", "domain": ".linkedin.com", "path": "/", "secure": true, "httpOnly": true},
		{"name": "lang", "value": "en-US", "domain": ".linkedin.com", "path": "/"}
	]`)
	cookies, err := decodeCookies(data)
	if err != nil {
		t.Fatalf("decodeCookies: %v", err)
	}
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(cookies))
	}
	if cookies[0].Name != "li_at" || cookies[0].Value != "tok" {
		t.Errorf("cookie[0] = %s=%s", cookies[0].Name, cookies[0].Value)
	}
	if !cookies[0].Secure || !cookies[0].HTTPOnly {
		t.Error("cookie[0] lost its secure/httpOnly flags")
	}

	params := proto.CookiesToParams(cookies)
	if len(params) != 2 {
		t.Fatalf("got %d params, want 2", len(params))
	}
	if params[1].Domain != ".linkedin.com" {
		t.Errorf("params[1].Domain = %q", params[1].Domain)
	}
}

func TestDecodeCookiesRejectsGarbage(t *testing.T) {
	if _, err := decodeCookies([]byte(`{"not": "a list"}`)); err == nil {
		t.Error("want error for non-array cookie file")
	}
}

func TestLoadCookiesMissingFile(t *testing.T) {
	s := NewSession(Config{})
	if err := s.LoadCookies(t.TempDir() + "/absent.json"); err != nil {
		t.Errorf("missing cookie file should be a no-op, got %v", err)
	}
}
