package harvester

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maksud51/linkharvest/internal/idgen"
)

// Challenge lifecycle statuses.
const (
	StatusPending = "pending"
	StatusSolving = "solving"
	StatusSolved  = "solved"
	StatusFailed  = "failed"
	StatusExpired = "expired"
)

// challengeTTL is how long an unsolved challenge stays actionable.
const challengeTTL = 5 * time.Minute

// minTokenLength rejects obviously truncated submissions.
const minTokenLength = 10

// Challenge is one queued CAPTCHA awaiting a response token.
type Challenge struct {
	ID          string    `json:"challenge_id"`
	SiteKey     string    `json:"sitekey"`
	PageURL     string    `json:"page_url"`
	CaptchaType string    `json:"captcha_type"`
	AutoSolve   bool      `json:"auto_solve"`
	Status      string    `json:"status"`
	Token       string    `json:"token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	SolvedAt    time.Time `json:"solved_at,omitempty"`
}

func (c *Challenge) expired(now time.Time) bool {
	return c.Status != StatusSolved && now.Sub(c.CreatedAt) > challengeTTL
}

// Queue holds challenges in memory. Solved challenges survive until the
// client collects them; everything else expires after challengeTTL.
type Queue struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
	gen        idgen.Generator
}

// NewQueue returns an empty challenge queue.
func NewQueue() *Queue {
	return &Queue{
		challenges: make(map[string]*Challenge),
		gen:        idgen.Short(12),
	}
}

// Add queues a new challenge and returns it.
func (q *Queue) Add(siteKey, pageURL, captchaType string, autoSolve bool) *Challenge {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := &Challenge{
		ID:          q.gen(),
		SiteKey:     siteKey,
		PageURL:     pageURL,
		CaptchaType: captchaType,
		AutoSolve:   autoSolve,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
	q.challenges[ch.ID] = ch
	return ch
}

// Get returns the challenge with the given ID, marking it expired when stale.
func (q *Queue) Get(id string) (*Challenge, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch, ok := q.challenges[id]
	if !ok {
		return nil, false
	}
	if ch.expired(time.Now()) {
		ch.Status = StatusExpired
	}
	return ch, true
}

// Submit records a token for a pending challenge. It returns false when the
// challenge is unknown, already terminal, or the token is too short.
func (q *Queue) Submit(id, token string) bool {
	if len(token) < minTokenLength {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	ch, ok := q.challenges[id]
	if !ok {
		return false
	}
	if ch.expired(time.Now()) {
		ch.Status = StatusExpired
		return false
	}
	if ch.Status != StatusPending && ch.Status != StatusSolving {
		return false
	}
	ch.Token = token
	ch.Status = StatusSolved
	ch.SolvedAt = time.Now()
	return true
}

// Fail marks a challenge as failed.
func (q *Queue) Fail(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ch, ok := q.challenges[id]; ok && ch.Status != StatusSolved {
		ch.Status = StatusFailed
	}
}

// Pending returns challenges still waiting for a token, oldest first.
func (q *Queue) Pending() []*Challenge {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var out []*Challenge
	for _, ch := range q.challenges {
		if ch.expired(now) {
			ch.Status = StatusExpired
			continue
		}
		if ch.Status == StatusPending || ch.Status == StatusSolving {
			out = append(out, ch)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Stats summarizes the queue by status.
type Stats struct {
	Pending int `json:"pending"`
	Solved  int `json:"solved"`
	Failed  int `json:"failed"`
	Expired int `json:"expired"`
	Total   int `json:"total"`
}

// Stats counts challenges per status.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Stats
	now := time.Now()
	for _, ch := range q.challenges {
		if ch.expired(now) {
			ch.Status = StatusExpired
		}
		switch ch.Status {
		case StatusPending, StatusSolving:
			s.Pending++
		case StatusSolved:
			s.Solved++
		case StatusFailed:
			s.Failed++
		case StatusExpired:
			s.Expired++
		}
		s.Total++
	}
	return s
}

// sweep drops expired and collected challenges older than twice the TTL.
func (q *Queue) sweep() {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-2 * challengeTTL)
	for id, ch := range q.challenges {
		if ch.CreatedAt.Before(cutoff) {
			delete(q.challenges, id)
		}
	}
}

// Server is the relay HTTP service.
type Server struct {
	queue  *Queue
	logger *slog.Logger
}

// NewServer creates a relay service around the given queue.
func NewServer(queue *Queue, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{queue: queue, logger: logger}
}

// Handler returns the relay's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/challenge/create", s.handleCreate)
	r.Get("/api/challenge/{id}/solution", s.handleSolution)
	r.Post("/api/challenge/{id}/submit", s.handleSubmit)
	r.Get("/api/challenge/pending", s.handlePending)
	r.Get("/api/stats", s.handleStats)

	return r
}

// Run serves the relay on addr until ctx is canceled, sweeping stale
// challenges in the background.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.queue.sweep()
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("harvester: relay listening", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if req.SiteKey == "" || req.PageURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "sitekey and page_url required"})
		return
	}
	if req.CaptchaType == "" {
		req.CaptchaType = TypeRecaptchaV2
	}

	ch := s.queue.Add(req.SiteKey, req.PageURL, req.CaptchaType, req.AutoSolve)
	s.logger.Info("harvester: challenge queued",
		"id", ch.ID, "type", ch.CaptchaType, "auto_solve", ch.AutoSolve)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"challenge_id": ch.ID,
		"status":       ch.Status,
	})
}

func (s *Server) handleSolution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ch, ok := s.queue.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "challenge not found"})
		return
	}

	resp := map[string]any{"status": ch.Status}
	if ch.Status == StatusSolved {
		resp["token"] = ch.Token
	} else {
		resp["token"] = nil
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if len(req.Token) < minTokenLength {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "token too short"})
		return
	}

	if _, ok := s.queue.Get(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "challenge not found"})
		return
	}
	if !s.queue.Submit(id, req.Token) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "challenge not accepting tokens"})
		return
	}

	s.logger.Info("harvester: token submitted", "id", id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": StatusSolved})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending := s.queue.Pending()
	if pending == nil {
		pending = []*Challenge{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": pending})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
