package source

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/accounting-ledger-sync/internal/domain/document"
)

// BatchPositions fetches the line items of many documents in one declared
// batch phase: requests go out back to back under the relaxed pacing
// interval, bounded by the worker pool so the source is never flooded.
// Failures are isolated per document; callers get the successes plus a
// per-id error map.
func (c *Client) BatchPositions(ctx context.Context, kind document.Kind, ids []string) (map[string][]*document.Position, map[string]error, error) {
	results := make(map[string][]*document.Position, len(ids))
	failures := make(map[string]error)
	if len(ids) == 0 {
		return results, failures, nil
	}

	pool, err := ants.NewPool(c.poolSize)
	if err != nil {
		return nil, nil, err
	}
	defer pool.Release()

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range ids {
		id := id
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			positions, err := c.getPositions(ctx, kind, id, true)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn("Position fetch failed", "kind", kind, "id", id, "error", err)
				failures[id] = err
				return
			}
			results[id] = positions
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			failures[id] = submitErr
			mu.Unlock()
		}
	}

	wg.Wait()

	return results, failures, nil
}
