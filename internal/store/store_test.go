package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBatchRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.InsertBatch(&BatchRecord{ID: "b1", Format: "JPG", Quality: 90, Successes: 2, Failures: 1, OutputDir: "/tmp/out"}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	items := []ItemRecord{
		{BatchID: "b1", SourcePath: "/a.png", OutputPath: "/out/a.jpg", Status: StatusSuccess, DurationMs: 12},
		{BatchID: "b1", SourcePath: "/b.png", OutputPath: "/out/b.jpg", Status: StatusSuccess, DurationMs: 8},
		{BatchID: "b1", SourcePath: "/c.png", Status: StatusFailed, ErrorMessage: "decode failed"},
	}
	for i := range items {
		if err := s.InsertItem(&items[i]); err != nil {
			t.Fatalf("InsertItem: %v", err)
		}
	}

	batches, err := s.ListBatches(10)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(batches) != 1 || batches[0].ID != "b1" {
		t.Fatalf("batches = %+v", batches)
	}

	got, err := s.ListItems("b1")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("items = %d, expected 3", len(got))
	}
	if got[2].Status != StatusFailed || got[2].ErrorMessage == "" {
		t.Errorf("failed item not recorded: %+v", got[2])
	}
}

func TestGetStats(t *testing.T) {
	s := openTestStore(t)

	s.InsertBatch(&BatchRecord{ID: "b1", Successes: 1, Failures: 1})
	s.InsertItem(&ItemRecord{BatchID: "b1", Status: StatusSuccess})
	s.InsertItem(&ItemRecord{BatchID: "b1", Status: StatusFailed})

	st, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.TotalBatches != 1 || st.TotalItems != 2 || st.Successes != 1 || st.Failures != 1 {
		t.Errorf("stats = %+v", st)
	}
}
