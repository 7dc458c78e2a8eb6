package dynamo

import "sync"

// Range is a half-open interval [Start, End) of body indices.
type Range struct {
	Start, End int
}

// Partition splits [0, n) into at most workers contiguous ranges of
// ceil(n/workers) indices; the final range is clamped to n. Empty ranges are
// dropped, so fewer ranges than workers may be returned. workers <= 0 is
// treated as 1.
func Partition(n, workers int) []Range {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	chunkSize := (n + workers - 1) / workers
	ranges := make([]Range, 0, workers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// ParallelFor runs fn once per range of Partition(n, workers) and blocks
// until every call has returned. worker is the range's position, usable as a
// key into per-worker scratch. With a single range fn runs on the calling
// goroutine.
func ParallelFor(n, workers int, fn func(worker, start, end int)) {
	ranges := Partition(n, workers)
	if len(ranges) == 1 {
		fn(0, ranges[0].Start, ranges[0].End)
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(ranges))
	for w, r := range ranges {
		go func(worker int, r Range) {
			defer wg.Done()
			fn(worker, r.Start, r.End)
		}(w, r)
	}
	wg.Wait()
}
