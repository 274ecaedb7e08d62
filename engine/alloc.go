package engine

import "github.com/voxfs-go/voxfs/bitmap"

// findBlock returns the index of a single free data block via
// find-first-zero, or false if the data region is full.
func findBlock(data *bitmap.Bitmap, blockCount uint64) (uint64, bool) {
	idx, ok := data.FindFirstZeroUpTo(int(blockCount))
	if !ok {
		return 0, false
	}
	return uint64(idx), true
}

// findBlocks implements the largest-first extent search of spec §4.E:
// it returns a small set of extents covering at least needed blocks,
// biased toward fewer, longer runs to minimise indirect-inode
// pressure. It returns (nil, false) if the region doesn't have enough
// free blocks in total.
//
// Each chosen run is provisionally marked occupied in data before the
// next search, so a later pass never rediscovers blocks a prior pass
// already claimed for this same call; every provisional mark is undone
// before returning, since the caller (not findBlocks) owns committing
// the allocation to the real bitmap.
func findBlocks(data *bitmap.Bitmap, blockCount, minBytes, blockSize uint64) ([]Extent, bool) {
	needed := (minBytes + blockSize - 1) / blockSize
	if needed == 0 {
		return nil, true
	}

	zeros, err := data.CountZerosUpTo(int(blockCount))
	if err != nil || uint64(zeros) < needed {
		return nil, false
	}

	var result []Extent
	remaining := needed
	ok := true

	for remaining > 0 {
		start, found := findBlock(data, blockCount)
		if !found {
			ok = false
			break
		}
		run, found := longestRunFrom(data, start, blockCount, remaining)
		if !found {
			ok = false
			break
		}

		result = append(result, run)
		remaining -= run.Len()
		for i := run.Start; i <= run.End; i++ {
			_ = data.Set(int(i), true)
		}
	}

	for _, e := range result {
		for i := e.Start; i <= e.End; i++ {
			_ = data.Set(int(i), false)
		}
	}

	if !ok {
		return nil, false
	}
	return result, true
}

// longestRunFrom sweeps forward from start, tracking the current run
// of clear bits. A run ends either because a set bit is met (compare
// to the largest run seen so far and reset) or because the current
// run's length already covers the remaining need (short-circuit
// return). The first-found longest run wins ties.
func longestRunFrom(data *bitmap.Bitmap, start uint64, blockCount, remaining uint64) (Extent, bool) {
	var (
		haveBest  bool
		bestStart uint64
		bestEnd   uint64

		runStart uint64
		inRun    bool
	)

	for i := start; i < blockCount; i++ {
		if !data.Get(int(i)) {
			if !inRun {
				runStart = i
				inRun = true
			}
			runLen := i - runStart + 1
			if runLen >= remaining {
				return Extent{Start: runStart, End: i}, true
			}
			continue
		}
		if inRun {
			runLen := i - runStart
			if !haveBest || runLen > (bestEnd-bestStart+1) {
				bestStart, bestEnd = runStart, i-1
				haveBest = true
			}
			inRun = false
		}
	}
	if inRun {
		runLen := blockCount - runStart
		if !haveBest || runLen > (bestEnd-bestStart+1) {
			bestStart, bestEnd = runStart, blockCount-1
			haveBest = true
		}
	}
	if !haveBest {
		return Extent{}, false
	}
	return Extent{Start: bestStart, End: bestEnd}, true
}
