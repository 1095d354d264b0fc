// Package scan builds snapshot trees from the live filesystem. A scan
// walks the tree first, collecting metadata for every entry in sorted
// order, then hashes regular files with a bounded worker pool. Files
// whose identity matches the prior snapshot keep its digest instead of
// being reread.
package scan

import (
	"context"
	"io"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gosure/gosure/internal/sure"
)

// HashCache supplies digests for files the prior snapshot does not
// cover, and records the ones computed during this scan.
// Implementations must be safe for concurrent use.
type HashCache interface {
	Lookup(path string, ino, size, ctime int64) (digest string, ok bool)
	Store(path string, ino, size, ctime int64, digest string) error
}

// Options control a scan. The zero value hashes with sha1 on all
// CPUs, without a prior snapshot, cache or progress output.
type Options struct {
	// Algo is the digest attribute to fill: sha1, sha256 or xxh3.
	Algo string
	// Workers bounds the hashing pool. Zero or negative means one
	// worker per CPU.
	Workers int
	// ForceRehash disregards Prior and Cache and rereads every file.
	ForceRehash bool
	// Prior is the snapshot digests can be carried over from.
	Prior *sure.Tree
	// Cache is an optional digest cache consulted after Prior.
	Cache HashCache
	// Progress, when non-nil, receives a live progress line
	// (normally stderr).
	Progress io.Writer
	// Source overrides directory iteration, for tests.
	Source DirSource
}

// Result is a finished scan: the tree plus any entries that had to be
// skipped.
type Result struct {
	Tree     *sure.Tree
	Warnings []Warning
}

type hashJob struct {
	path string
	file *sure.File
}

// Scan walks root and returns a fully hashed snapshot tree. The
// context aborts the hashing phase between files; entries that fail
// to stat or hash become warnings, not errors.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	algo := opts.Algo
	if algo == "" {
		algo = AlgoSHA1
	}
	hasher, err := NewHasher(algo)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	src := opts.Source
	if src == nil {
		src = OSDirSource()
	}

	w := &walker{src: src, sameDev: true}
	tree, err := w.walkRoot(root)
	if err != nil {
		return nil, err
	}

	if opts.Prior != nil && !opts.ForceRehash {
		tree.UpdateFrom(opts.Prior, algo)
	}

	jobs := collectJobs(tree, root, algo, nil)
	if opts.Cache != nil && !opts.ForceRehash {
		jobs = fillFromCache(jobs, opts.Cache, algo)
	}

	var progress *ProgressTracker
	if opts.Progress != nil {
		var total int64
		for _, j := range jobs {
			total += j.file.Size()
		}
		progress = NewProgress(opts.Progress, len(jobs), total, "hashing")
	}

	var mu sync.Mutex
	g := &errgroup.Group{}
	g.SetLimit(workers)
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		job := job
		g.Go(func() error {
			digest, err := hasher.Sum(job.path)
			if err != nil {
				mu.Lock()
				w.warnings = append(w.warnings, Warning{Path: job.path, Err: err})
				mu.Unlock()
				return nil
			}
			// Each job owns a distinct attribute map, so no lock
			// is needed for the write.
			job.file.Atts[algo] = digest
			if opts.Cache != nil {
				ino, size, ctime := identity(job.file)
				if err := opts.Cache.Store(job.path, ino, size, ctime, digest); err != nil {
					mu.Lock()
					w.warnings = append(w.warnings, Warning{Path: job.path, Err: err})
					mu.Unlock()
				}
			}
			if progress != nil {
				progress.Add(job.file.Size())
			}
			return nil
		})
	}
	g.Wait()
	if progress != nil {
		progress.Finish()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Result{Tree: tree, Warnings: w.warnings}, nil
}

// collectJobs gathers every regular file still missing its digest, in
// tree order. Paths are rebuilt from the unescaped entry names.
func collectJobs(tree *sure.Tree, dir, algo string, jobs []hashJob) []hashJob {
	for _, f := range tree.Files {
		if !f.NeedsHash(algo) {
			continue
		}
		name, err := sure.Unescape(f.Name)
		if err != nil {
			continue
		}
		jobs = append(jobs, hashJob{path: filepath.Join(dir, string(name)), file: f})
	}
	for _, child := range tree.Children {
		name, err := sure.Unescape(child.Name)
		if err != nil {
			continue
		}
		jobs = collectJobs(child, filepath.Join(dir, string(name)), algo, jobs)
	}
	return jobs
}

// fillFromCache satisfies jobs with cached digests and returns the
// ones that still need hashing.
func fillFromCache(jobs []hashJob, cache HashCache, algo string) []hashJob {
	remain := jobs[:0]
	for _, job := range jobs {
		ino, size, ctime := identity(job.file)
		if digest, ok := cache.Lookup(job.path, ino, size, ctime); ok && digest != "" {
			job.file.Atts[algo] = digest
			continue
		}
		remain = append(remain, job)
	}
	return remain
}

func identity(f *sure.File) (ino, size, ctime int64) {
	return sure.AttInt(f.Atts, "ino"), sure.AttInt(f.Atts, "size"), sure.AttInt(f.Atts, "ctime")
}
