package engine

import "encoding/binary"

const (
	tagBlockSize    = 256
	tagNameSize     = 132
	maxLocalMembers = 12

	tbOffIndex          = 0
	tbOffName           = 8
	tbOffChecksum       = tbOffName + tagNameSize // 140
	tbOffFlags          = tbOffChecksum + 1       // 141
	tbOffCreationTime   = tbOffFlags + 1          // 142
	tbOffIndirect       = tbOffCreationTime + 8   // 150
	tbOffNumLocal       = tbOffIndirect + 8       // 158
	tbOffLocalMembers   = tbOffNumLocal + 2       // 160
)

// TagFlags are the advisory permission bits carried on a tag.
type TagFlags struct {
	Read  bool
	Write bool
}

func (f TagFlags) toByte() byte {
	var b byte
	if f.Read {
		b |= 1 << 7
	}
	if f.Write {
		b |= 1 << 6
	}
	return b
}

func tagFlagsFromByte(b byte) TagFlags {
	return TagFlags{
		Read:  (b>>7)&1 == 1,
		Write: (b>>6)&1 == 1,
	}
}

// TagBlock is the 256-byte fixed tag record. Callers receive value
// copies; the tag engine is the exclusive owner of the mutable state.
type TagBlock struct {
	Index uint64
	Name  [tagNameSize]byte

	checksum uint8

	Flags        TagFlags
	CreationTime uint64

	Indirect uint64 // address of first IndirectTagBlock, 0 = none

	NumLocalMembers uint16
	LocalMembers    [maxLocalMembers]uint64
}

// NameString returns the NUL-stripped name as a Go string.
func (t TagBlock) NameString() string {
	return stripNul(t.Name[:])
}

func newTagBlock(index uint64, name string, flags TagFlags, creationTime uint64) *TagBlock {
	t := &TagBlock{
		Index:        index,
		Flags:        flags,
		CreationTime: creationTime,
	}
	copy(t.Name[:], name)
	t.setChecksum()
	return t
}

func (t *TagBlock) setChecksum() {
	b := t.toBytes()
	setChecksum(b, tbOffChecksum)
	t.checksum = b[tbOffChecksum]
}

func (t TagBlock) toBytes() []byte {
	b := make([]byte, tagBlockSize)
	binary.LittleEndian.PutUint64(b[tbOffIndex:], t.Index)
	copy(b[tbOffName:tbOffName+tagNameSize], t.Name[:])
	b[tbOffChecksum] = t.checksum
	b[tbOffFlags] = t.Flags.toByte()
	binary.LittleEndian.PutUint64(b[tbOffCreationTime:], t.CreationTime)
	binary.LittleEndian.PutUint64(b[tbOffIndirect:], t.Indirect)
	binary.LittleEndian.PutUint16(b[tbOffNumLocal:], t.NumLocalMembers)
	off := tbOffLocalMembers
	for i := 0; i < maxLocalMembers; i++ {
		binary.LittleEndian.PutUint64(b[off:], t.LocalMembers[i])
		off += 8
	}
	return b
}

func tagBlockFromBytes(b []byte) (*TagBlock, bool) {
	if len(b) < tagBlockSize {
		return nil, false
	}
	t := &TagBlock{}
	t.Index = binary.LittleEndian.Uint64(b[tbOffIndex:])
	copy(t.Name[:], b[tbOffName:tbOffName+tagNameSize])
	t.checksum = b[tbOffChecksum]
	t.Flags = tagFlagsFromByte(b[tbOffFlags])
	t.CreationTime = binary.LittleEndian.Uint64(b[tbOffCreationTime:])
	t.Indirect = binary.LittleEndian.Uint64(b[tbOffIndirect:])
	t.NumLocalMembers = binary.LittleEndian.Uint16(b[tbOffNumLocal:])
	off := tbOffLocalMembers
	for i := 0; i < maxLocalMembers; i++ {
		t.LocalMembers[i] = binary.LittleEndian.Uint64(b[off:])
		off += 8
	}
	if !checksumValid(b[:tagBlockSize]) {
		return nil, false
	}
	return t, true
}

// hasLocalMember reports whether inodeIndex appears among the tag's
// local (inline) members.
func (t *TagBlock) hasLocalMember(inodeIndex uint64) bool {
	for i := 0; i < int(t.NumLocalMembers); i++ {
		if t.LocalMembers[i] == inodeIndex {
			return true
		}
	}
	return false
}

// removeLocalMemberAt shift-removes the member at position i,
// preserving the relative order of the remaining entries (spec Design
// Note 3: never swap-remove).
func (t *TagBlock) removeLocalMemberAt(i int) {
	for j := i; j < int(t.NumLocalMembers)-1; j++ {
		t.LocalMembers[j] = t.LocalMembers[j+1]
	}
	t.LocalMembers[t.NumLocalMembers-1] = 0
	t.NumLocalMembers--
}
