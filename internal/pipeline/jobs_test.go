package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/doctree"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	// SHA-256 of empty input is well-known.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusExtracting, "extracting blocks"},
		{StatusOutlining, "building outline"},
		{StatusChunking, "splitting sections"},
		{StatusStoring, "storing results"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_SetStatusFailed(t *testing.T) {
	job := &Job{
		ID:        "test-fail",
		Status:    StatusExtracting,
		UpdatedAt: time.Now(),
	}
	job.SetStatus(StatusFailed, "extract error")
	if job.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, job.Status)
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("store sqlite: disk full")
	job.AddError("store pathstore: timeout")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "store sqlite: disk full" {
		t.Errorf("expected first error %q, got %q", "store sqlite: disk full", snap.Progress.Errors[0])
	}
}

func TestJob_IncrSinksStored(t *testing.T) {
	job := &Job{ID: "incr-test", UpdatedAt: time.Now()}
	job.SetSinksTotal(3)
	job.IncrSinksStored()
	job.IncrSinksStored()

	snap := job.Snapshot()
	if snap.Progress.SinksStored != 2 || snap.Progress.SinksTotal != 3 {
		t.Errorf("expected 2/3 sinks stored, got %d/%d", snap.Progress.SinksStored, snap.Progress.SinksTotal)
	}
}

func TestJob_SetBlocksCountsPages(t *testing.T) {
	job := &Job{ID: "blocks-test", UpdatedAt: time.Now()}
	job.SetBlocks([]doctree.Block{{Text: "a", Page: 1}, {Text: "b", Page: 4}, {Text: "c", Page: 2}})

	snap := job.Snapshot()
	if snap.Progress.Blocks != 3 || snap.Progress.Pages != 4 {
		t.Errorf("expected 3 blocks on 4 pages, got %d on %d", snap.Progress.Blocks, snap.Progress.Pages)
	}
}

func TestJob_ResultOnlyWhenDone(t *testing.T) {
	job := NewJob("a.md", nil, false)
	job.SetOutline(doctree.Outline{Title: "T"})

	if _, ok := job.Result(); ok {
		t.Error("expected no result while queued")
	}
	job.SetStatus(StatusPartial, "done")
	got, ok := job.Result()
	if !ok || got.Title != "T" {
		t.Errorf("expected result with title %q, got %+v %v", "T", got, ok)
	}
	job.SetStatus(StatusFailed, "storing")
	if _, ok := job.Result(); ok {
		t.Error("expected no result for failed job")
	}
}

func TestNewJob_UniqueIDs(t *testing.T) {
	a := NewJob("a.txt", []byte("x"), false)
	b := NewJob("a.txt", []byte("x"), true)
	if a.ID == b.ID || a.DocID == b.DocID || a.ID == a.DocID {
		t.Errorf("expected distinct ids, got %q/%q and %q/%q", a.ID, a.DocID, b.ID, b.DocID)
	}
	if a.Status != StatusQueued || !b.Force {
		t.Errorf("unexpected initial state %+v %+v", a.Snapshot(), b.Snapshot())
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	terminal := map[JobStatus]bool{
		StatusQueued: false, StatusExtracting: false, StatusOutlining: false,
		StatusChunking: false, StatusStoring: false, StatusCompleted: true,
		StatusFailed: true, StatusPartial: true, StatusDupSkipped: true,
	}
	for s, want := range terminal {
		if s.Terminal() != want {
			t.Errorf("%s: expected terminal=%v", s, want)
		}
	}
}

func TestJob_FileData(t *testing.T) {
	job := &Job{ID: "data-test"}
	data := []byte("file content here")
	job.SetFileData(data)
	got := job.FileData()
	if string(got) != string(data) {
		t.Errorf("expected file data %q, got %q", data, got)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
