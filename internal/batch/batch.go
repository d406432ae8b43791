// Package batch outlines every supported document in a directory and writes
// the raw block list and structured outline of each next to one another in
// an output directory.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dgallion1/docoutline/internal/artifact"
	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Saver receives each successfully outlined document. *store.Store
// satisfies it.
type Saver interface {
	Save(ctx context.Context, doc *doctree.Document) error
}

// Options configures a batch run.
type Options struct {
	InputDir  string
	OutputDir string
	Recursive bool
	// Workers bounds the number of documents processed at once. Zero means
	// GOMAXPROCS.
	Workers int
	// Workbook, when set, is the path of an XLSX summary written after the
	// run.
	Workbook string
	// Store, when set, also receives every outlined document.
	Store   Saver
	Parser  parser.Options
	Builder *outline.Builder
}

// FileResult describes the outcome for one input document.
type FileResult struct {
	Path           string        `json:"path"`
	RawPath        string        `json:"raw_path,omitempty"`
	StructuredPath string        `json:"structured_path,omitempty"`
	Title          string        `json:"title,omitempty"`
	Blocks         int           `json:"blocks"`
	Pages          int           `json:"pages"`
	Headings       int           `json:"headings"`
	Duration       time.Duration `json:"duration_ns"`
	Err            string        `json:"error,omitempty"`

	outline doctree.Outline
}

// OK reports whether the document was fully processed.
func (r FileResult) OK() bool { return r.Err == "" }

// Report summarizes a batch run. Files are in input path order.
type Report struct {
	Files     []FileResult  `json:"files"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Discover lists supported documents under dir, sorted by path. Hidden files
// and directories are skipped.
func Discover(dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && parser.IsSupportedExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Run outlines every document found under opts.InputDir. A failing document
// is recorded in the report and does not stop the run; only discovery,
// output directory and workbook errors, or cancellation, are returned.
func Run(ctx context.Context, opts Options, log *slog.Logger) (Report, error) {
	start := time.Now()
	if opts.Builder == nil {
		opts.Builder = outline.NewBuilder(outline.DefaultRules())
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	files, err := Discover(opts.InputDir, opts.Recursive)
	if err != nil {
		return Report{}, err
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("create output dir: %w", err)
	}
	log.Info("batch started", "input", opts.InputDir, "output", opts.OutputDir, "files", len(files), "workers", opts.Workers)

	names := artifact.Names(files)
	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = processFile(gctx, opts, path, names[path], log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	report := Report{Files: results, Elapsed: time.Since(start)}
	for _, r := range results {
		if r.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	if opts.Workbook != "" {
		entries := make([]artifact.WorkbookEntry, 0, len(results))
		for _, r := range results {
			entries = append(entries, artifact.WorkbookEntry{
				Filename: r.Path,
				Pages:    r.Pages,
				Blocks:   r.Blocks,
				Outline:  r.outline,
				Err:      r.Err,
			})
		}
		if err := artifact.WriteWorkbook(opts.Workbook, entries); err != nil {
			return report, err
		}
	}

	log.Info("batch finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)
	return report, nil
}

func processFile(ctx context.Context, opts Options, path, name string, log *slog.Logger) FileResult {
	start := time.Now()
	res := FileResult{Path: path}
	log = log.With("file", path)

	fail := func(err error) FileResult {
		res.Err = err.Error()
		res.Duration = time.Since(start)
		log.Error("document failed", "error", err)
		return res
	}

	outDir := opts.OutputDir
	if rel, err := filepath.Rel(opts.InputDir, filepath.Dir(path)); err == nil && rel != "." {
		outDir = filepath.Join(outDir, rel)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fail(fmt.Errorf("create output dir: %w", err))
		}
	}

	blocks, err := ParseFile(path, opts.Parser)
	if err != nil {
		return fail(err)
	}
	res.Blocks = len(blocks)
	res.Pages = pageCount(blocks)

	result := opts.Builder.Build(blocks)
	res.outline = result
	res.Title = result.Title
	res.Headings = len(result.Entries)

	if res.RawPath, err = artifact.WriteRaw(outDir, name, blocks); err != nil {
		return fail(err)
	}
	if res.StructuredPath, err = artifact.WriteStructured(outDir, name, result); err != nil {
		return fail(err)
	}

	if opts.Store != nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		doc := &doctree.Document{
			ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String(),
			Filename:    filepath.Base(path),
			ContentHash: pipeline.BlocksHash(blocks),
			Blocks:      blocks,
			Outline:     result,
			CreatedAt:   time.Now(),
		}
		if err := opts.Store.Save(ctx, doc); err != nil {
			return fail(fmt.Errorf("store: %w", err))
		}
	}

	res.Duration = time.Since(start)
	log.Info("document outlined", "blocks", res.Blocks, "headings", res.Headings, "duration_ms", res.Duration.Milliseconds())
	return res
}

// ParseFile extracts blocks from a document on disk.
func ParseFile(path string, opts parser.Options) ([]doctree.Block, error) {
	p, err := parser.ForFile(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	blocks, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	return blocks, nil
}

func pageCount(blocks []doctree.Block) int {
	pages := 0
	for _, b := range blocks {
		pages = max(pages, b.Page)
	}
	return pages
}

// IsCanceled reports whether err came from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
