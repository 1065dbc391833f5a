// Package parallel runs element-wise work over a flat index space on a
// fixed number of goroutines.
//
// The index range [0, count) is split into contiguous, disjoint partitions,
// one per thread. Each partition is handed to the worker on its own
// goroutine and Run returns only after every worker has finished. Workers
// share their inputs read-only and each writes only the outputs of its own
// partition, so no locking is needed and the result does not depend on
// scheduling.
package parallel

import (
	"runtime"
	"sync"
)

// Worker processes the half-open index range [start, end).
type Worker func(start, end int)

// Partition is one contiguous slice of the index space.
type Partition struct {
	Start, End int
}

// Threads resolves a requested thread count: zero or negative means one
// thread per available CPU.
func Threads(requested int) int {
	if requested <= 0 {
		return runtime.NumCPU()
	}
	return requested
}

// Partitions splits [0, count) into at most threads contiguous ranges of
// near-equal length. Fewer ranges are returned when count < threads.
func Partitions(count, threads int) []Partition {
	if count <= 0 {
		return nil
	}
	threads = Threads(threads)
	if threads > count {
		threads = count
	}
	perThread := (count + threads - 1) / threads
	parts := make([]Partition, 0, threads)
	for start := 0; start < count; start += perThread {
		end := start + perThread
		if end > count {
			end = count
		}
		parts = append(parts, Partition{Start: start, End: end})
	}
	return parts
}

// Run calls worker once per partition of [0, count) concurrently and blocks
// until all of them return.
func Run(count, threads int, worker Worker) {
	parts := Partitions(count, threads)
	if len(parts) == 1 {
		worker(parts[0].Start, parts[0].End)
		return
	}

	var wg sync.WaitGroup
	for _, p := range parts {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			worker(start, end)
		}(p.Start, p.End)
	}

	// Wait for all partitions to finish
	wg.Wait()
}
