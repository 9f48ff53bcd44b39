package events

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sortacle/sortacle/internal/waste"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEvent(label string, confidence float64, recyclable bool) waste.DisposalEvent {
	return waste.DisposalEvent{
		Timestamp:  time.Now(),
		Label:      label,
		Category:   waste.CategoryFor(label),
		Confidence: confidence,
		Recyclable: recyclable,
		BinID:      "bin_001",
		Location:   "test lab",
		BBox:       [4]float64{10, 20, 110, 220},
	}
}

func TestRecordAndQueryRecent(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.Record(testEvent("bottle", 0.91, true))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	id2, err := s.Record(testEvent("cup", 0.72, false))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("ids not increasing: %d then %d", id1, id2)
	}

	events, err := s.QueryRecent(10)
	if err != nil {
		t.Fatalf("QueryRecent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	// Newest first.
	if events[0].Label != "cup" || events[1].Label != "bottle" {
		t.Errorf("unexpected order: %q, %q", events[0].Label, events[1].Label)
	}

	got := events[1]
	if got.ID != id1 {
		t.Errorf("ID = %d, want %d", got.ID, id1)
	}
	if got.Category != waste.CategoryPlastic {
		t.Errorf("Category = %q", got.Category)
	}
	if !got.Recyclable || got.Confidence != 0.91 {
		t.Errorf("fields did not round-trip: %+v", got)
	}
	if got.BBox != [4]float64{10, 20, 110, 220} {
		t.Errorf("BBox = %v", got.BBox)
	}
	if got.BinID != "bin_001" || got.Location != "test lab" {
		t.Errorf("bin fields did not round-trip: %+v", got)
	}
}

func TestRecord_ConstraintViolation(t *testing.T) {
	s := newTestStore(t)

	ev := testEvent("bottle", 1.5, true) // confidence out of range
	_, err := s.Record(ev)
	if !errors.Is(err, ErrConstraint) {
		t.Errorf("err = %v, want ErrConstraint", err)
	}
}

func TestRecord_ZeroTimestampDefaultsToNow(t *testing.T) {
	s := newTestStore(t)

	ev := testEvent("can", 0.8, true)
	ev.Timestamp = time.Time{}
	if _, err := s.Record(ev); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events, err := s.QueryRecent(1)
	if err != nil {
		t.Fatalf("QueryRecent: %v", err)
	}
	if time.Since(events[0].Timestamp) > time.Minute {
		t.Errorf("timestamp not defaulted: %v", events[0].Timestamp)
	}
}

func TestQueryStats(t *testing.T) {
	s := newTestStore(t)

	fixtures := []struct {
		label      string
		confidence float64
		recyclable bool
	}{
		{"bottle", 0.9, true},
		{"bottle", 0.8, true},
		{"can", 0.7, true},
		{"cup", 0.6, false},
	}
	for _, f := range fixtures {
		if _, err := s.Record(testEvent(f.label, f.confidence, f.recyclable)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	stats, err := s.QueryStats()
	if err != nil {
		t.Fatalf("QueryStats: %v", err)
	}

	if stats.TotalDisposals != 4 {
		t.Errorf("TotalDisposals = %d, want 4", stats.TotalDisposals)
	}
	if stats.RecyclableCount != 3 || stats.TrashCount != 1 {
		t.Errorf("recyclable/trash = %d/%d, want 3/1", stats.RecyclableCount, stats.TrashCount)
	}
	if stats.RecyclingRate != 0.75 {
		t.Errorf("RecyclingRate = %v, want 0.75", stats.RecyclingRate)
	}
	if stats.TodayCount != 4 {
		t.Errorf("TodayCount = %d, want 4", stats.TodayCount)
	}
	if diff := stats.AvgConfidence - 0.75; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AvgConfidence = %v, want 0.75", stats.AvgConfidence)
	}
	if len(stats.TopLabels) == 0 || stats.TopLabels[0].Label != "bottle" || stats.TopLabels[0].Count != 2 {
		t.Errorf("TopLabels = %+v", stats.TopLabels)
	}
	if len(stats.CategoryBreakdown) == 0 || stats.CategoryBreakdown[0].Category != string(waste.CategoryPlastic) {
		t.Errorf("CategoryBreakdown = %+v", stats.CategoryBreakdown)
	}
}

func TestQueryStats_Empty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.QueryStats()
	if err != nil {
		t.Fatalf("QueryStats: %v", err)
	}
	if stats.TotalDisposals != 0 || stats.RecyclingRate != 0 || stats.AvgConfidence != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
}

func TestDailyCounts(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.Record(testEvent("bottle", 0.9, true)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	counts, err := s.DailyCounts(7)
	if err != nil {
		t.Fatalf("DailyCounts: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("got %d days, want 1", len(counts))
	}
	if counts[0].Count != 3 {
		t.Errorf("today's count = %d, want 3", counts[0].Count)
	}
}

func TestReadsConcurrentWithWrites(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := s.Record(testEvent("bottle", 0.9, true)); err != nil {
				t.Errorf("Record: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 20; i++ {
		if _, err := s.QueryRecent(5); err != nil {
			t.Fatalf("QueryRecent during writes: %v", err)
		}
		if _, err := s.QueryStats(); err != nil {
			t.Fatalf("QueryStats during writes: %v", err)
		}
	}
	wg.Wait()
}
