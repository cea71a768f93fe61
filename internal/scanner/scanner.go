package scanner

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vncgregorio/videoteka-media-center/internal/logging"
	"github.com/vncgregorio/videoteka-media-center/internal/mediatypes"
	"github.com/vncgregorio/videoteka-media-center/internal/workers"
)

// FoundFile is one media file discovered during a walk.
type FoundFile struct {
	Path      string
	Root      string
	SizeBytes int64
}

// Scanner walks root folders and emits media files. Hidden directories
// (dot-prefixed) are pruned; unreadable entries are skipped, never
// fatal. Cancellation is observed between directory entries.
type Scanner struct {
	workerCount int
}

// New returns a Scanner sized for IO-bound walking.
func New() *Scanner {
	return &Scanner{workerCount: workers.ForIO(8)}
}

// WalkRoot walks a single root depth-first and calls fn for every
// media file found. Files with unrecognized extensions are skipped
// (discovery is strict even though classification of known files is
// permissive). Returns ctx.Err() when cancelled, nil otherwise;
// filesystem errors on individual entries are logged and swallowed.
func (s *Scanner) WalkRoot(ctx context.Context, root string, fn func(FoundFile) error) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logging.Warn("scan: skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !mediatypes.IsMediaFile(path) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			logging.Warn("scan: stat failed for %s: %v", path, infoErr)
			return nil
		}

		return fn(FoundFile{Path: path, Root: root, SizeBytes: info.Size()})
	})
	if err != nil {
		if isCancellation(err) {
			return err
		}
		// Root itself unreadable or missing; the scan over other
		// roots continues.
		logging.Warn("scan: walk of root %s failed: %v", root, err)
	}
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// WalkRoots walks every root concurrently, one worker per root up to
// the pool size, and sends discoveries to out in no particular order.
// out is closed when all walks finish. The first cancellation error is
// returned; per-entry errors never are.
func (s *Scanner) WalkRoots(ctx context.Context, roots []string, out chan<- FoundFile) error {
	defer close(out)

	sem := make(chan struct{}, s.workerCount)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var walkErr error

	for _, root := range roots {
		wg.Add(1)
		go func(root string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := s.WalkRoot(ctx, root, func(f FoundFile) error {
				select {
				case out <- f:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				mu.Lock()
				if walkErr == nil {
					walkErr = err
				}
				mu.Unlock()
			}
		}(root)
	}

	wg.Wait()
	return walkErr
}

// CountFiles walks every root and returns the total number of media
// files, used to size progress reporting before extraction begins.
func (s *Scanner) CountFiles(ctx context.Context, roots []string) (int, error) {
	total := 0
	for _, root := range roots {
		err := s.WalkRoot(ctx, root, func(FoundFile) error {
			total++
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
