package engine

import (
	"sync"

	"github.com/YuminosukeSato/grove/pkg/errors"
)

// Parallelize divides items across the engine's workers and executes fn
// for each half-open range [start, end). A panic inside fn is converted
// into an error instead of crashing the process; the first one observed
// is returned.
func (e *Engine) Parallelize(items int, fn func(start, end int)) error {
	if items == 0 {
		return nil
	}

	numWorkers := e.threads
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}
	if numWorkers <= 1 {
		return errors.SafeExecute("engine.Parallelize", func() error {
			fn(0, items)
			return nil
		})
	}

	// Calculate the number of items each worker handles (ceiling division)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e2 int) {
			defer wg.Done()
			err := errors.SafeExecute("engine.Parallelize", func() error {
				fn(s, e2)
				return nil
			})
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(start, end)
	}

	wg.Wait()
	return firstErr
}

// ParallelizeWithThreshold runs fn sequentially when items is at or below
// threshold, avoiding goroutine overhead for small workloads.
func (e *Engine) ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) error {
	if items <= threshold {
		return errors.SafeExecute("engine.Parallelize", func() error {
			fn(0, items)
			return nil
		})
	}
	return e.Parallelize(items, fn)
}
