package store

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/maksud51/linkharvest/internal/dbopen"
	"github.com/maksud51/linkharvest/profile"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return NewWithDB(db, opts...)
}

func TestAddPendingAndComplete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddPending(ctx, "https://example.com/in/alice/"); err != nil {
		t.Fatal(err)
	}
	done, err := s.IsCompleted(ctx, "https://example.com/in/alice/")
	if err != nil || done {
		t.Fatalf("IsCompleted = %v, %v; want false, nil", done, err)
	}

	rec := &profile.Record{
		URL: "https://example.com/in/alice/", Name: "Alice",
		Headline: "Engineer", ScrapedAt: time.Now(),
	}
	if err := s.Save(ctx, rec.URL, rec); err != nil {
		t.Fatal(err)
	}

	done, err = s.IsCompleted(ctx, rec.URL)
	if err != nil || !done {
		t.Fatalf("IsCompleted after save = %v, %v; want true, nil", done, err)
	}

	got, err := s.Record(ctx, rec.URL)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "Alice" {
		t.Errorf("Record = %+v", got)
	}

	// AddPending must not demote a completed row.
	if err := s.AddPending(ctx, rec.URL); err != nil {
		t.Fatal(err)
	}
	if done, _ := s.IsCompleted(ctx, rec.URL); !done {
		t.Error("completed row demoted by AddPending")
	}
}

func TestMarkFailedRetryCap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithMaxRetries(3))
	url := "https://example.com/in/bob/"
	if err := s.AddPending(ctx, url); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := s.MarkFailed(ctx, url, "timeout"); err != nil {
			t.Fatal(err)
		}
		pending, _ := s.GetPending(ctx, 0)
		if len(pending) != 1 {
			t.Fatalf("after failure %d: pending = %v, want the url back", i+1, pending)
		}
	}

	if err := s.MarkFailed(ctx, url, "timeout"); err != nil {
		t.Fatal(err)
	}
	pending, _ := s.GetPending(ctx, 0)
	if len(pending) != 0 {
		t.Errorf("pending after retry cap = %v, want empty", pending)
	}
	failed, _ := s.GetFailed(ctx, 0)
	if len(failed) != 1 || failed[0] != url {
		t.Errorf("failed = %v, want [%s]", failed, url)
	}
}

func TestResetFailedToPending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithMaxRetries(1))

	for _, url := range []string{"https://a.example/in/x/", "https://a.example/in/y/"} {
		if err := s.MarkFailed(ctx, url, "blocked"); err != nil {
			t.Fatal(err)
		}
	}
	if failed, _ := s.GetFailed(ctx, 0); len(failed) != 2 {
		t.Fatalf("failed = %v, want 2 rows", failed)
	}

	n, err := s.ResetFailedToPending(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ResetFailedToPending = %d, %v; want 2, nil", n, err)
	}
	if pending, _ := s.GetPending(ctx, 0); len(pending) != 2 {
		t.Errorf("pending after reset = %v", pending)
	}
	if failed, _ := s.GetFailed(ctx, 0); len(failed) != 0 {
		t.Errorf("failed after reset = %v", failed)
	}
}

func TestGetPendingLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, url := range []string{"u1", "u2", "u3"} {
		if err := s.AddPending(ctx, url); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.GetPending(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("GetPending(2) = %v", got)
	}
}

func TestCompletedRecordsMinCompleteness(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	full := &profile.Record{
		URL: "u-full", Name: "A", Headline: "B", Location: "C", About: "D",
		Experience: []profile.Experience{{Title: "T"}},
		Education:  []profile.Education{{School: "S"}},
		Skills:     []string{"Go"},
	}
	sparse := &profile.Record{URL: "u-sparse", Name: "A"}
	if err := s.Save(ctx, full.URL, full); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, sparse.URL, sparse); err != nil {
		t.Fatal(err)
	}

	recs, err := s.CompletedRecords(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].URL != "u-full" {
		t.Errorf("CompletedRecords(50) = %v", urls(recs))
	}
	recs, err = s.CompletedRecords(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("CompletedRecords(0) = %v", urls(recs))
	}
}

func urls(recs []*profile.Record) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.URL)
	}
	return out
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithMaxRetries(1))

	s.AddPending(ctx, "p1")
	s.AddPending(ctx, "p2")
	s.Save(ctx, "c1", &profile.Record{URL: "c1", Name: "N"})
	s.MarkFailed(ctx, "f1", "boom")

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Pending != 2 || st.Completed != 1 || st.Failed != 1 || st.Total != 4 {
		t.Errorf("Stats = %+v", st)
	}
	if st.AvgScore <= 0 {
		t.Errorf("AvgScore = %v, want > 0", st.AvgScore)
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Save(ctx, "old", &profile.Record{URL: "old", Name: "N"}); err != nil {
		t.Fatal(err)
	}
	s.AddPending(ctx, "keep")

	n, err := s.Cleanup(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("Cleanup = %d, %v; want 1, nil", n, err)
	}
	if done, _ := s.IsCompleted(ctx, "old"); done {
		t.Error("cleaned row still reported completed")
	}
	if pending, _ := s.GetPending(ctx, 0); len(pending) != 1 {
		t.Errorf("pending rows swept: %v", pending)
	}
}
