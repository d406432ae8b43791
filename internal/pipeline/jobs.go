package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docoutline/internal/chunker"
	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/google/uuid"
)

// JobStatus represents the state of an outline job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusOutlining  JobStatus = "outlining"
	StatusChunking   JobStatus = "chunking"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// Job tracks the state of a single document.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	// Force skips the duplicate check.
	Force bool `json:"-"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	blocks   []doctree.Block
	outline  *doctree.Outline
	sections []chunker.Section
	chunks   []doctree.Chunk
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	Blocks      int      `json:"blocks"`
	Pages       int      `json:"pages"`
	Headings    int      `json:"headings"`
	Sections    int      `json:"sections"`
	Chunks      int      `json:"chunks"`
	SinksTotal  int      `json:"sinks_total"`
	SinksStored int      `json:"sinks_stored"`
	Errors      []string `json:"errors"`
}

// NewJob returns a queued job for the given upload.
func NewJob(filename string, data []byte, force bool) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		DocID:     uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Force:     force,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Counts returns the number of jobs per status.
func (s *JobStore) Counts() map[JobStatus]int {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	counts := make(map[JobStatus]int)
	for _, j := range jobs {
		j.mu.Lock()
		counts[j.Status]++
		j.mu.Unlock()
	}
	return counts
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetBlocks records the extracted blocks and the highest page seen.
func (j *Job) SetBlocks(blocks []doctree.Block) {
	pages := 0
	for _, b := range blocks {
		if b.Page > pages {
			pages = b.Page
		}
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.blocks = blocks
	j.Progress.Blocks = len(blocks)
	j.Progress.Pages = pages
	j.UpdatedAt = time.Now()
}

// Blocks returns the extracted blocks.
func (j *Job) Blocks() []doctree.Block {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.blocks
}

// SetOutline records the inferred outline.
func (j *Job) SetOutline(o doctree.Outline) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outline = &o
	j.Progress.Headings = len(o.Entries)
	j.UpdatedAt = time.Now()
}

// SetSections records the section split and its chunks.
func (j *Job) SetSections(sections []chunker.Section, chunks []doctree.Chunk) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sections = sections
	j.chunks = chunks
	j.Progress.Sections = len(sections)
	j.Progress.Chunks = len(chunks)
	j.UpdatedAt = time.Now()
}

// Sections returns the section split and its chunks.
func (j *Job) Sections() ([]chunker.Section, []doctree.Chunk) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sections, j.chunks
}

// Result returns the outline once the job completed, fully or partially.
func (j *Job) Result() (doctree.Outline, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.outline == nil || (j.Status != StatusCompleted && j.Status != StatusPartial) {
		return doctree.Outline{}, false
	}
	return *j.outline, true
}

// SetSinksTotal records how many sinks the document is written to.
func (j *Job) SetSinksTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SinksTotal = n
	j.UpdatedAt = time.Now()
}

// IncrSinksStored atomically increments successful sink writes.
func (j *Job) IncrSinksStored() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SinksStored++
	j.UpdatedAt = time.Now()
}

// SetContentHash records the content hash and, for skipped uploads, the
// document it duplicates.
func (j *Job) SetContentHash(hash, duplicateOf string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
	j.DuplicateOf = duplicateOf
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		DuplicateOf: j.DuplicateOf,
		Progress:    p,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
