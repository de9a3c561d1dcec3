package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// canonicalResource maps config block-list names to CDP resource types.
var canonicalResource = map[string]string{
	"images":      "image",
	"fonts":       "font",
	"media":       "media",
	"stylesheets": "stylesheet",
}

// newBlockSet normalizes a config block list into lowercase CDP resource
// type names.
func newBlockSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		name := strings.ToLower(t)
		if canon, ok := canonicalResource[name]; ok {
			name = canon
		}
		set[name] = true
	}
	return set
}

// applyResourceBlocking fails intercepted requests whose resource type is in
// the block list. Cuts bandwidth and render time on media-heavy pages.
func applyResourceBlocking(page *rod.Page, types []string) error {
	blocked := newBlockSet(types)

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked[strings.ToLower(string(h.Request.Type()))] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()

	return nil
}
