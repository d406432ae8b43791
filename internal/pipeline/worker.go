package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/docoutline/internal/chunker"
	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
)

// Sink persists a finished document.
type Sink interface {
	Name() string
	Save(ctx context.Context, doc *doctree.Document) error
}

// HashIndex looks up previously stored documents by content hash.
type HashIndex interface {
	FindByHash(ctx context.Context, hash string) (string, bool, error)
}

// Worker processes a single document job.
type Worker struct {
	builder    *outline.Builder
	sinks      []Sink
	index      HashIndex
	log        *slog.Logger
	chunkCfg   chunker.Config
	parserOpts parser.Options
	stats      *LatencyStats

	maxConcurrentStore int

	// backoff is replaced in tests.
	backoff func(attempt int) time.Duration
}

// NewWorker builds a worker. index may be nil to disable duplicate checks;
// stats may be nil.
func NewWorker(sinks []Sink, index HashIndex, log *slog.Logger, chunkCfg chunker.Config, opts parser.Options, maxStore int, stats *LatencyStats) *Worker {
	if maxStore <= 0 {
		maxStore = 1
	}
	return &Worker{
		builder:            outline.NewBuilder(outline.DefaultRules()),
		sinks:              sinks,
		index:              index,
		log:                log,
		chunkCfg:           chunkCfg,
		parserOpts:         opts,
		stats:              stats,
		maxConcurrentStore: maxStore,
		backoff:            Backoff,
	}
}

func (w *Worker) record(phase string, since time.Time) {
	if w.stats != nil {
		w.stats.Record(phase, time.Since(since))
	}
}

// Process runs the full outline pipeline for a job. The terminal status is
// set last, after stats are recorded and the upload is released.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	start := time.Now()
	status, phase := w.run(ctx, log, job)
	job.SetFileData(nil)
	w.record(PhaseTotal, start)
	job.SetStatus(status, phase)
}

func (w *Worker) run(ctx context.Context, log *slog.Logger, job *Job) (JobStatus, string) {
	start := time.Now()

	// Phase 1: Extract
	job.SetStatus(StatusExtracting, "extracting")
	p, err := parser.ForFile(job.Filename, w.parserOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		return StatusFailed, "extracting"
	}

	blocks, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("extract failed", "error", err)
		job.AddError(fmt.Sprintf("extract: %s", err))
		return StatusFailed, "extracting"
	}
	job.SetBlocks(blocks)
	w.record(PhaseExtract, start)
	log.Info("extracted blocks", "blocks", len(blocks))
	if len(blocks) == 0 {
		log.Warn("no text found")
	}

	// Phase 1.5: Dedup check
	hash := BlocksHash(blocks)
	job.SetContentHash(hash, "")
	if w.index != nil && !job.Force {
		existing, found, err := w.index.FindByHash(ctx, hash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if found {
			log.Info("duplicate document, skipping", "existing_doc_id", existing)
			job.SetContentHash(hash, existing)
			return StatusDupSkipped, "dedup"
		}
	}

	// Phase 2: Outline
	job.SetStatus(StatusOutlining, "outlining")
	outlineStart := time.Now()
	result := w.builder.Build(blocks)
	job.SetOutline(result)
	w.record(PhaseOutline, outlineStart)
	log.Info("outline built", "title", result.Title, "headings", len(result.Entries))

	// Phase 3: Sections
	job.SetStatus(StatusChunking, "chunking")
	sections := chunker.Sections(blocks, result)
	chunks := chunker.ChunkDocument(blocks, result, w.chunkCfg)
	job.SetSections(sections, chunks)

	// Phase 4: Store in every sink with bounded concurrency.
	if len(w.sinks) == 0 {
		return StatusCompleted, "done"
	}
	job.SetStatus(StatusStoring, "storing")
	job.SetSinksTotal(len(w.sinks))
	storeStart := time.Now()

	doc := &doctree.Document{
		ID:          job.DocID,
		Filename:    job.Filename,
		ContentHash: hash,
		Blocks:      blocks,
		Outline:     result,
		CreatedAt:   job.CreatedAt,
	}

	type storeResult struct {
		sink string
		err  error
	}
	results := make(chan storeResult, len(w.sinks))
	sem := make(chan struct{}, w.maxConcurrentStore)

	for _, sink := range w.sinks {
		sem <- struct{}{}
		go func(s Sink) {
			defer func() { <-sem }()
			results <- storeResult{sink: s.Name(), err: w.save(ctx, log, s, doc)}
		}(sink)
	}

	stored := 0
	for range w.sinks {
		r := <-results
		if r.err != nil {
			log.Error("store failed", "sink", r.sink, "error", r.err)
			job.AddError(fmt.Sprintf("store %s: %s", r.sink, r.err))
			continue
		}
		stored++
		job.IncrSinksStored()
	}
	w.record(PhaseStore, storeStart)
	log.Info("storage complete", "stored", stored, "sinks", len(w.sinks))

	switch {
	case stored == len(w.sinks):
		return StatusCompleted, "done"
	case stored > 0:
		return StatusPartial, "done"
	default:
		return StatusFailed, "storing"
	}
}

// save writes doc to one sink, retrying transient failures.
func (w *Worker) save(ctx context.Context, log *slog.Logger, s Sink, doc *doctree.Document) error {
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = s.Save(ctx, doc)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		log.Warn("retryable store error", "sink", s.Name(), "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// BlocksHash is the content hash used for duplicate detection. It covers the
// extracted text only, so re-encodings of the same content collide.
func BlocksHash(blocks []doctree.Block) string {
	return ContentHashHex([]byte(blocksText(blocks)))
}

func blocksText(blocks []doctree.Block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(b.Text)
	}
	return sb.String()
}
