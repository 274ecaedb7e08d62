package engine

import "encoding/binary"

const (
	itOffRoot       = 0
	itOffChecksum   = 8
	itOffReserved   = 9
	itOffNext       = 10
	itOffNumMembers = 18
	itOffMembers    = indirectHeaderSize // 20, same header size as IndirectInode
)

// indirectTagCapacity returns how many member inode indices fit in one
// block of the given size, after the 20-byte header (spec §3).
func indirectTagCapacity(blockSize uint64) int {
	return int((blockSize - indirectHeaderSize) / 8)
}

// IndirectTagBlock is an overflow block of member inode indices
// chained off a tag whose 12 inline member slots were not enough.
type IndirectTagBlock struct {
	RootTagIndex uint64
	checksum     uint8
	Next         uint64 // address of the next IndirectTagBlock, 0 = none
	Members      []uint64
	maxCapacity  int // derived from block size, not serialized
}

func newIndirectTagBlock(rootTagIndex uint64, members []uint64, next uint64, blockSize uint64) *IndirectTagBlock {
	it := &IndirectTagBlock{
		RootTagIndex: rootTagIndex,
		Next:         next,
		Members:      append([]uint64(nil), members...),
		maxCapacity:  indirectTagCapacity(blockSize),
	}
	it.setChecksum()
	return it
}

// MaxCapacity returns the number of member slots available in this
// block, derived from the block size it was constructed or loaded
// with.
func (it *IndirectTagBlock) MaxCapacity() int {
	return it.maxCapacity
}

// SpareCapacity returns how many more members can be appended before
// this block is full.
func (it *IndirectTagBlock) SpareCapacity() int {
	return it.maxCapacity - len(it.Members)
}

func (it *IndirectTagBlock) setChecksum() {
	b := it.toBytesUnpadded()
	setChecksum(b, itOffChecksum)
	it.checksum = b[itOffChecksum]
}

func (it *IndirectTagBlock) toBytesUnpadded() []byte {
	b := make([]byte, indirectHeaderSize+len(it.Members)*8)
	binary.LittleEndian.PutUint64(b[itOffRoot:], it.RootTagIndex)
	b[itOffChecksum] = it.checksum
	binary.LittleEndian.PutUint64(b[itOffNext:], it.Next)
	binary.LittleEndian.PutUint16(b[itOffNumMembers:], uint16(len(it.Members)))
	off := itOffMembers
	for _, m := range it.Members {
		binary.LittleEndian.PutUint64(b[off:], m)
		off += 8
	}
	return b
}

// ToBytesPadded serializes this block, zero-padded to exactly
// blockSize bytes, ready to write to disk.
func (it *IndirectTagBlock) ToBytesPadded(blockSize uint64) []byte {
	b := make([]byte, blockSize)
	copy(b, it.toBytesUnpadded())
	return b
}

func indirectTagBlockFromBytes(b []byte, blockSize uint64) (*IndirectTagBlock, bool) {
	if uint64(len(b)) < blockSize || blockSize < indirectHeaderSize {
		return nil, false
	}
	numMembers := binary.LittleEndian.Uint16(b[itOffNumMembers:])
	capacity := indirectTagCapacity(blockSize)
	if int(numMembers) > capacity {
		return nil, false
	}
	needed := indirectHeaderSize + int(numMembers)*8
	if needed > len(b) {
		return nil, false
	}

	it := &IndirectTagBlock{
		RootTagIndex: binary.LittleEndian.Uint64(b[itOffRoot:]),
		checksum:     b[itOffChecksum],
		Next:         binary.LittleEndian.Uint64(b[itOffNext:]),
		Members:      make([]uint64, numMembers),
		maxCapacity:  capacity,
	}
	off := itOffMembers
	for i := 0; i < int(numMembers); i++ {
		it.Members[i] = binary.LittleEndian.Uint64(b[off:])
		off += 8
	}

	if !checksumValid(b[:blockSize]) {
		return nil, false
	}
	return it, true
}

// hasMember reports whether inodeIndex appears among this block's
// members.
func (it *IndirectTagBlock) hasMember(inodeIndex uint64) bool {
	for _, m := range it.Members {
		if m == inodeIndex {
			return true
		}
	}
	return false
}

// removeMemberAt shift-removes the member at position i, preserving
// the relative order of the remaining entries.
func (it *IndirectTagBlock) removeMemberAt(i int) {
	it.Members = append(it.Members[:i], it.Members[i+1:]...)
}
