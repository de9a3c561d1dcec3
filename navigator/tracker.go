package navigator

import (
	"sort"
	"sync"
	"time"
)

// challengeState tracks one URL's CAPTCHA history for the session.
type challengeState struct {
	DetectedCount int
	Attempts      int
	Solved        bool
	LastSeenAt    time.Time
}

// Tracker holds per-URL CAPTCHA state and the session blocklist. State is
// in-memory only; a restart forgets which URLs were blocked.
type Tracker struct {
	mu          sync.Mutex
	maxAttempts int
	states      map[string]*challengeState
	blocked     map[string]struct{}
}

// NewTracker creates a tracker that blocks a URL after maxAttempts failed
// handling rounds.
func NewTracker(maxAttempts int) *Tracker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Tracker{
		maxAttempts: maxAttempts,
		states:      make(map[string]*challengeState),
		blocked:     make(map[string]struct{}),
	}
}

// IsBlocked reports whether url is on the session blocklist.
func (t *Tracker) IsBlocked(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.blocked[url]
	return ok
}

// Block adds url to the blocklist.
func (t *Tracker) Block(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blocked[url] = struct{}{}
}

// RecordDetection notes a CAPTCHA sighting at url and returns the total
// sighting count for it.
func (t *Tracker) RecordDetection(url string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(url)
	st.DetectedCount++
	st.LastSeenAt = time.Now()
	return st.DetectedCount
}

// MarkAbsent records that a previously challenged URL now renders without a
// CAPTCHA, which counts as solved for the session.
func (t *Tracker) MarkAbsent(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[url]; ok {
		st.Solved = true
	}
}

// BeginAttempt registers one handling round for url. It returns false, and
// moves the URL to the blocklist, when the attempt budget is already spent.
func (t *Tracker) BeginAttempt(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(url)
	if st.Attempts >= t.maxAttempts {
		t.blocked[url] = struct{}{}
		return false
	}
	st.Attempts++
	return true
}

// FailAttempt records that a handling round ended unsolved. When that round
// consumed the last of the budget the URL goes on the blocklist right away,
// so the cap never costs an extra navigation, and the return is true.
func (t *Tracker) FailAttempt(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(url)
	if st.Attempts >= t.maxAttempts {
		t.blocked[url] = struct{}{}
		return true
	}
	return false
}

// MarkSolved records a successful solve for url.
func (t *Tracker) MarkSolved(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(url).Solved = true
}

// IsSolved reports whether url's challenge was solved this session.
func (t *Tracker) IsSolved(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[url]
	return ok && st.Solved
}

// Attempts returns url's handling-round count.
func (t *Tracker) Attempts(url string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[url]; ok {
		return st.Attempts
	}
	return 0
}

// BlockedURLs lists the blocklist, sorted for stable reporting.
func (t *Tracker) BlockedURLs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.blocked))
	for url := range t.blocked {
		out = append(out, url)
	}
	sort.Strings(out)
	return out
}

// Summary describes the tracker for session reports.
type Summary struct {
	Challenged int
	Solved     int
	Blocked    int
}

// Summarize counts challenged, solved, and blocked URLs.
func (t *Tracker) Summarize() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Summary{Challenged: len(t.states), Blocked: len(t.blocked)}
	for _, st := range t.states {
		if st.Solved {
			s.Solved++
		}
	}
	return s
}

func (t *Tracker) state(url string) *challengeState {
	st, ok := t.states[url]
	if !ok {
		st = &challengeState{}
		t.states[url] = st
	}
	return st
}
