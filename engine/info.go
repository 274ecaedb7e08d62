package engine

// DiskInfo is a point-in-time snapshot of occupancy and capacity,
// computed from the bitmaps and caches rather than cached itself so
// it never goes stale between calls.
type DiskInfo struct {
	NumberOfTags      uint64
	FreeTagSlots      uint64
	NumberOfFiles     uint64
	FreeFileSlots     uint64
	BlockSize         uint64
	FreeBlockCount    uint64
	FreeBlockSpaceBytes uint64
}

// DiskInfo returns the current occupancy snapshot.
//
// The bitmaps are padded out to a whole number of 64-bit words (New)
// and, once loaded from disk, to a whole bitmap-block's worth of bits
// (loadBitmaps/FromBytes) — in both cases wider than the region's real
// slot count. Every count below is therefore bounded to the region's
// actual size (layout.tagCount/inodeCount/dataCount) rather than read
// off the padded bitmap length.
func (d *Disk) DiskInfo() DiskInfo {
	freeBlocks := d.AvailableDataBlocks()
	freeTags, err := d.bm.tag.CountZerosUpTo(int(d.layout.tagCount))
	if err != nil {
		freeTags = 0
	}
	freeInodes, err := d.bm.inode.CountZerosUpTo(int(d.layout.inodeCount))
	if err != nil {
		freeInodes = 0
	}
	return DiskInfo{
		NumberOfTags:        uint64(len(d.tags)),
		FreeTagSlots:        uint64(freeTags),
		NumberOfFiles:       uint64(len(d.inodes)),
		FreeFileSlots:       uint64(freeInodes),
		BlockSize:           d.sb.blockSize,
		FreeBlockCount:      freeBlocks,
		FreeBlockSpaceBytes: freeBlocks * d.sb.blockSize,
	}
}

// AvailableDataBlocks is a convenience accessor used by tests that
// want to snapshot free-space before/after a mutating call without
// building a full DiskInfo. It counts only the real data region (see
// DiskInfo), not the bitmap's padded length.
func (d *Disk) AvailableDataBlocks() uint64 {
	free, err := d.bm.data.CountZerosUpTo(int(d.layout.dataCount))
	if err != nil {
		return 0
	}
	return uint64(free)
}
