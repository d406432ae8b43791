package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/chunker"
	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pathstore"
)

const sampleMarkdown = `# Annual Report

## Overview

the overview body.

## Results

the results body.
`

type fakeSink struct {
	name string
	mu   sync.Mutex
	docs []*doctree.Document
	// errs are returned by successive Save calls before succeeding.
	errs []error
	// calls counts every Save attempt.
	calls int
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Save(ctx context.Context, doc *doctree.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	s.docs = append(s.docs, doc)
	return nil
}

type fakeIndex map[string]string

func (f fakeIndex) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	id, ok := f[hash]
	return id, ok, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(sinks []Sink, index HashIndex) *Worker {
	w := NewWorker(sinks, index, testLogger(), chunker.Config{MinChunk: 1}, parser.Options{}, 2, NewLatencyStats(time.Hour))
	w.backoff = func(int) time.Duration { return 0 }
	return w
}

func TestWorker_ProcessCompletes(t *testing.T) {
	sink := &fakeSink{name: "mem"}
	w := newTestWorker([]Sink{sink}, nil)
	job := NewJob("report.md", []byte(sampleMarkdown), false)

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (errors %v)", StatusCompleted, snap.Status, snap.Progress.Errors)
	}
	got, ok := job.Result()
	if !ok {
		t.Fatal("expected a result")
	}
	if got.Title != "Annual Report" {
		t.Errorf("expected title %q, got %q", "Annual Report", got.Title)
	}
	if len(got.Entries) != 2 || got.Entries[0].Text != "Overview" || got.Entries[1].Text != "Results" {
		t.Errorf("unexpected entries %+v", got.Entries)
	}
	for _, e := range got.Entries {
		if e.Level != doctree.H1 {
			t.Errorf("expected %q to be H1, got %s", e.Text, e.Level)
		}
	}

	if snap.Progress.Blocks != 5 || snap.Progress.Headings != 2 || snap.Progress.SinksStored != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	sections, chunks := job.Sections()
	if len(sections) != 3 || len(chunks) != 3 {
		t.Errorf("expected 3 sections and 3 chunks, got %d and %d", len(sections), len(chunks))
	}

	if len(sink.docs) != 1 {
		t.Fatalf("expected 1 stored doc, got %d", len(sink.docs))
	}
	if sink.docs[0].ID != job.DocID || sink.docs[0].ContentHash == "" {
		t.Errorf("unexpected stored doc %+v", sink.docs[0])
	}
	if job.FileData() != nil {
		t.Error("expected upload bytes released after processing")
	}
	if w.stats.Snapshot(PhaseTotal).Count != 1 {
		t.Error("expected one total latency sample")
	}
}

func TestWorker_UnsupportedFormat(t *testing.T) {
	w := newTestWorker(nil, nil)
	job := NewJob("image.png", []byte("x"), false)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "extracting" {
		t.Errorf("expected failed/extracting, got %s/%s", snap.Status, snap.Phase)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", snap.Progress.Errors)
	}
}

func TestWorker_NoSinksCompletes(t *testing.T) {
	w := newTestWorker(nil, nil)
	job := NewJob("empty.txt", []byte(""), false)
	w.Process(context.Background(), job)

	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected completed, got %s", s)
	}
	got, ok := job.Result()
	if !ok || got.HasTitle() || len(got.Entries) != 0 {
		t.Errorf("expected empty outline, got %+v %v", got, ok)
	}
}

func TestWorker_DuplicateSkipped(t *testing.T) {
	probe := newTestWorker(nil, nil)
	first := NewJob("report.md", []byte(sampleMarkdown), false)
	probe.Process(context.Background(), first)
	hash := first.Snapshot().ContentHash

	sink := &fakeSink{name: "mem"}
	w := newTestWorker([]Sink{sink}, fakeIndex{hash: "existing-doc"})

	dup := NewJob("copy.md", []byte(sampleMarkdown), false)
	w.Process(context.Background(), dup)
	snap := dup.Snapshot()
	if snap.Status != StatusDupSkipped || snap.DuplicateOf != "existing-doc" {
		t.Errorf("expected duplicate of existing-doc, got %s %q", snap.Status, snap.DuplicateOf)
	}
	if len(sink.docs) != 0 {
		t.Errorf("expected nothing stored for duplicate, got %d", len(sink.docs))
	}

	forced := NewJob("copy.md", []byte(sampleMarkdown), true)
	w.Process(context.Background(), forced)
	if s := forced.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected forced job to complete, got %s", s)
	}
}

func TestWorker_RetriesTransientSinkErrors(t *testing.T) {
	transient := &pathstore.RetryableError{StatusCode: 503, Message: "busy"}
	sink := &fakeSink{name: "flaky", errs: []error{transient, transient}}
	w := newTestWorker([]Sink{sink}, nil)

	job := NewJob("report.md", []byte(sampleMarkdown), false)
	w.Process(context.Background(), job)

	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected completed after retries, got %s", s)
	}
	if sink.calls != 3 {
		t.Errorf("expected 3 save attempts, got %d", sink.calls)
	}
}

func TestWorker_PartialAndFailedStore(t *testing.T) {
	good := &fakeSink{name: "good"}
	bad := &fakeSink{name: "bad", errs: []error{errors.New("disk full")}}
	w := newTestWorker([]Sink{good, bad}, nil)

	job := NewJob("report.md", []byte(sampleMarkdown), false)
	w.Process(context.Background(), job)
	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Errorf("expected partial, got %s", snap.Status)
	}
	if bad.calls != 1 {
		t.Errorf("expected permanent error not retried, got %d calls", bad.calls)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", snap.Progress.Errors)
	}

	onlyBad := &fakeSink{name: "bad", errs: []error{errors.New("disk full")}}
	w = newTestWorker([]Sink{onlyBad}, nil)
	job = NewJob("report.md", []byte(sampleMarkdown), false)
	w.Process(context.Background(), job)
	if s := job.Snapshot().Status; s != StatusFailed {
		t.Errorf("expected failed, got %s", s)
	}
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	cfg := config.Config{
		WorkerCount:        2,
		MaxQueueSize:       10,
		MaxConcurrentStore: 2,
		JobTTL:             time.Hour,
	}
	sink := &fakeSink{name: "mem"}
	o := NewOrchestrator(cfg, []Sink{sink}, nil, testLogger())
	o.Start(context.Background())
	defer o.Stop()

	var jobs []*Job
	for i := 0; i < 4; i++ {
		job := NewJob("report.md", []byte(sampleMarkdown), false)
		if err := o.Submit(job); err != nil {
			t.Fatalf("submit: %v", err)
		}
		jobs = append(jobs, job)
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, job := range jobs {
		for !job.Snapshot().Status.Terminal() {
			if time.Now().After(deadline) {
				t.Fatalf("job %s did not finish", job.ID)
			}
			time.Sleep(5 * time.Millisecond)
		}
		if o.GetJob(job.ID) != job {
			t.Errorf("expected job %s to be tracked", job.ID)
		}
	}

	if n := o.JobCounts()[StatusCompleted]; n != 4 {
		t.Errorf("expected 4 completed jobs, got %d", n)
	}
	if o.Stats().Snapshot(PhaseTotal).Count != 4 {
		t.Errorf("expected 4 latency samples, got %d", o.Stats().Snapshot(PhaseTotal).Count)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, nil, nil, testLogger())
	// Workers are not started, so the queue never drains.
	if err := o.Submit(NewJob("a.txt", nil, false)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job := NewJob("b.txt", nil, false)
	if err := o.Submit(job); err == nil {
		t.Fatal("expected queue full error")
	}
	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("expected failed/queue_full, got %s/%s", snap.Status, snap.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}
