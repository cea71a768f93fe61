package previews

import (
	"context"
	"errors"
	"sync"

	"github.com/vncgregorio/videoteka-media-center/internal/logging"
	"github.com/vncgregorio/videoteka-media-center/internal/mediatypes"
	"github.com/vncgregorio/videoteka-media-center/internal/workers"
)

// WarmItem is one candidate for preview pre-rendering.
type WarmItem struct {
	Path string
	Kind mediatypes.Kind
}

// Warm pre-renders previews for the given items on a bounded worker
// pool, skipping items that are already cached or unsupported. Render
// failures are logged and counted, never fatal. Returns the number of
// previews rendered; stops early when ctx is cancelled.
func (c *Cache) Warm(ctx context.Context, items []WarmItem) int {
	jobs := make(chan WarmItem)
	var rendered int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers.ForIO(4); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if c.Cached(item.Path) {
					continue
				}
				if _, err := c.Get(ctx, item.Path, item.Kind); err != nil {
					if !errors.Is(err, ErrUnsupported) && !errors.Is(err, context.Canceled) {
						logging.Debug("preview warm: %s: %v", item.Path, err)
					}
					continue
				}
				mu.Lock()
				rendered++
				mu.Unlock()
			}
		}()
	}

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		jobs <- item
	}
	close(jobs)
	wg.Wait()

	return rendered
}
