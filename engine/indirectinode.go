package engine

import "encoding/binary"

const (
	indirectHeaderSize = 20 // root(8) + checksum(1) + reserved(1) + next(8) + numExtents(2)

	iiOffRoot       = 0
	iiOffChecksum   = 8
	iiOffReserved   = 9
	iiOffNext       = 10
	iiOffNumExtents = 18
	iiOffExtents    = indirectHeaderSize
)

// indirectInodeCapacity returns how many extent records fit in one
// block of the given size, after the 20-byte header (spec §3).
func indirectInodeCapacity(blockSize uint64) int {
	return int((blockSize - indirectHeaderSize) / 16)
}

// IndirectInode is an overflow block of extents chained off an inode
// whose 5 inline extent slots were not enough. Root identifies the
// inode that owns the chain, mirroring IndirectTagBlock's root tag
// index; it is not otherwise interpreted by the chain-walk logic,
// which is always entered from the owning inode.
type IndirectInode struct {
	Root       uint64
	checksum   uint8
	Next       uint64 // address of the next IndirectInode, 0 = none
	Extents    []Extent
	maxCapacity int // derived from block size, not serialized
}

func newIndirectInode(root uint64, extents []Extent, next uint64, blockSize uint64) *IndirectInode {
	ii := &IndirectInode{
		Root:        root,
		Next:        next,
		Extents:     append([]Extent(nil), extents...),
		maxCapacity: indirectInodeCapacity(blockSize),
	}
	ii.setChecksum()
	return ii
}

// MaxCapacity returns the number of extent slots available in this
// block, derived from the block size it was constructed or loaded
// with.
func (ii *IndirectInode) MaxCapacity() int {
	return ii.maxCapacity
}

// SpareCapacity returns how many more extents can be appended before
// this block is full.
func (ii *IndirectInode) SpareCapacity() int {
	return ii.maxCapacity - len(ii.Extents)
}

func (ii *IndirectInode) setChecksum() {
	b := ii.toBytesUnpadded()
	setChecksum(b, iiOffChecksum)
	ii.checksum = b[iiOffChecksum]
}

func (ii *IndirectInode) toBytesUnpadded() []byte {
	b := make([]byte, indirectHeaderSize+len(ii.Extents)*16)
	binary.LittleEndian.PutUint64(b[iiOffRoot:], ii.Root)
	b[iiOffChecksum] = ii.checksum
	binary.LittleEndian.PutUint64(b[iiOffNext:], ii.Next)
	binary.LittleEndian.PutUint16(b[iiOffNumExtents:], uint16(len(ii.Extents)))
	off := iiOffExtents
	for _, e := range ii.Extents {
		binary.LittleEndian.PutUint64(b[off:], e.Start)
		binary.LittleEndian.PutUint64(b[off+8:], e.End)
		off += 16
	}
	return b
}

// ToBytesPadded serializes this block, zero-padded to exactly
// blockSize bytes, ready to write to disk.
func (ii *IndirectInode) ToBytesPadded(blockSize uint64) []byte {
	b := make([]byte, blockSize)
	copy(b, ii.toBytesUnpadded())
	return b
}

// indirectInodeFromBytes parses an on-disk block into an IndirectInode,
// deriving MaxCapacity from blockSize. Trailing zero padding does not
// affect the checksum: it contributes 0 to the wrapping sum either
// way, so validating the checksum over the full block read from disk
// is equivalent to validating it over just the header+extents.
func indirectInodeFromBytes(b []byte, blockSize uint64) (*IndirectInode, bool) {
	if uint64(len(b)) < blockSize || blockSize < indirectHeaderSize {
		return nil, false
	}
	numExtents := binary.LittleEndian.Uint16(b[iiOffNumExtents:])
	capacity := indirectInodeCapacity(blockSize)
	if int(numExtents) > capacity {
		return nil, false
	}
	needed := indirectHeaderSize + int(numExtents)*16
	if needed > len(b) {
		return nil, false
	}

	ii := &IndirectInode{
		Root:        binary.LittleEndian.Uint64(b[iiOffRoot:]),
		checksum:    b[iiOffChecksum],
		Next:        binary.LittleEndian.Uint64(b[iiOffNext:]),
		Extents:     make([]Extent, numExtents),
		maxCapacity: capacity,
	}
	off := iiOffExtents
	for i := 0; i < int(numExtents); i++ {
		ii.Extents[i].Start = binary.LittleEndian.Uint64(b[off:])
		ii.Extents[i].End = binary.LittleEndian.Uint64(b[off+8:])
		off += 16
	}

	if !checksumValid(b[:blockSize]) {
		return nil, false
	}
	return ii, true
}
