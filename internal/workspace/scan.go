package workspace

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/dcache"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/parser"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/project"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/sema"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// ScanReport summarizes an initial indexing pass. A cancelled scan still
// reports whatever was indexed before the cutoff.
type ScanReport struct {
	Indexed   int
	FromCache int
	Failed    []string
}

// SetCache attaches an advisory analysis cache. Scan keys combine each
// file's content hash with salt, so a config change invalidates old
// payloads.
func (w *Workspace) SetCache(c *dcache.Cache, salt project.Digest) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cache = c
	w.cacheSalt = salt
}

// SetIgnore installs a filter applied to paths relative to the scan root.
func (w *Workspace) SetIgnore(fn func(rel string) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ignore = fn
}

// ScanEvent reports one file's outcome during IndexAll.
type ScanEvent struct {
	Path      string
	FromCache bool
	Failed    bool
}

// SetProgress installs a scan observer. It is called from worker
// goroutines and must be safe for concurrent use.
func (w *Workspace) SetProgress(fn func(ScanEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.progress = fn
}

// ListPerlFiles returns every *.pl, *.pm, and *.t file under dir, minus
// ignored ones, sorted for deterministic order.
func ListPerlFiles(dir string, ignore func(rel string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		if ignore != nil && ignore(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case strings.HasSuffix(path, ".pl"),
			strings.HasSuffix(path, ".pm"),
			strings.HasSuffix(path, ".t"):
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// IndexAll walks the workspace directory and indexes every Perl file:
// parallel parse and analyze, serialized index writes per file. Jobs <= 0
// uses GOMAXPROCS. Cancellation stops scheduling and returns the partial
// report alongside the context error.
func (w *Workspace) IndexAll(ctx context.Context, dir string, jobs int) (ScanReport, error) {
	w.mu.Lock()
	ignore := w.ignore
	cache := w.cache
	salt := w.cacheSalt
	progress := w.progress
	w.mu.Unlock()
	if progress == nil {
		progress = func(ScanEvent) {}
	}

	files, err := ListPerlFiles(dir, ignore)
	if err != nil {
		return ScanReport{}, err
	}
	if len(files) == 0 {
		return ScanReport{}, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Preload serially; the file set is not safe for concurrent writers.
	w.mu.Lock()
	ids := make(map[string]source.FileID, len(files))
	var report ScanReport
	for _, path := range files {
		id, err := w.fset.Load(path)
		if err != nil {
			report.Failed = append(report.Failed, path)
			progress(ScanEvent{Path: path, Failed: true})
			continue
		}
		ids[path] = id
	}
	w.mu.Unlock()

	var mu sync.Mutex // guards report counters

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for _, path := range files {
		path := path
		id, ok := ids[path]
		if !ok {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			file := w.fset.Get(id)

			key := project.Combine(project.Digest(file.Hash), salt)
			var payload dcache.Payload
			if hit, _ := cache.Get(key, &payload); hit && payload.Path == path {
				w.ix.IndexData(path, id, payload.ToData(id))
				mu.Lock()
				report.Indexed++
				report.FromCache++
				mu.Unlock()
				progress(ScanEvent{Path: path, FromCache: true})
				return nil
			}

			res := parser.ParseFile(file, parser.Options{})
			table := sema.Analyze(file, res.Tree, sema.Options{})
			w.ix.IndexFile(path, table)
			if cache != nil {
				_ = cache.Put(key, dcache.FromTable(path, table))
			}
			mu.Lock()
			report.Indexed++
			mu.Unlock()
			progress(ScanEvent{Path: path})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}
