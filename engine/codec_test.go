package engine

import "testing"

func TestINodeRoundTrip(t *testing.T) {
	n := &INode{
		Index:        3,
		Size:         1234,
		Flags:        INodeFlags{Valid: true, Read: true, Write: true},
		AccessTime:   10,
		ModifiedTime: 20,
		CreationTime: 30,
		Indirect:     0,
		NumExtents:   2,
	}
	copy(n.Name[:], "hello.txt")
	n.Extents[0] = Extent{Start: 5, End: 9}
	n.Extents[1] = Extent{Start: 20, End: 20}
	n.setChecksum()

	b := n.toBytes()
	if len(b) != inodeSize {
		t.Fatalf("toBytes length = %d, want %d", len(b), inodeSize)
	}
	if !checksumValid(b) {
		t.Fatalf("checksum not valid after setChecksum")
	}

	got, ok := inodeFromBytes(b)
	if !ok {
		t.Fatalf("inodeFromBytes failed on a freshly serialized inode")
	}
	if got.Index != n.Index || got.Size != n.Size || got.NameString() != "hello.txt" {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
	if got.Extents != n.Extents {
		t.Fatalf("extents mismatch: got %v want %v", got.Extents, n.Extents)
	}
	if got.Flags != n.Flags {
		t.Fatalf("flags mismatch: got %+v want %+v", got.Flags, n.Flags)
	}
}

func TestINodeChecksumChangesAfterMutation(t *testing.T) {
	n := &INode{Index: 1}
	copy(n.Name[:], "a")
	n.setChecksum()
	first := n.checksum

	n.Size = 999
	n.setChecksum()
	if !checksumValid(n.toBytes()) {
		t.Fatalf("checksum invalid after re-setting following a mutation")
	}
	if n.checksum == first {
		t.Fatalf("checksum unchanged (%#x) after mutating Size", first)
	}
}

func TestTagBlockRoundTrip(t *testing.T) {
	tb := newTagBlock(0, "root", TagFlags{Read: true, Write: true}, 42)
	tb.NumLocalMembers = 2
	tb.LocalMembers[0] = 7
	tb.LocalMembers[1] = 9
	tb.setChecksum()

	b := tb.toBytes()
	if len(b) != tagBlockSize {
		t.Fatalf("toBytes length = %d, want %d", len(b), tagBlockSize)
	}
	got, ok := tagBlockFromBytes(b)
	if !ok {
		t.Fatalf("tagBlockFromBytes failed")
	}
	if got.NameString() != "root" || got.NumLocalMembers != 2 || got.LocalMembers[0] != 7 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestIndirectInodeRoundTrip(t *testing.T) {
	extents := []Extent{{Start: 1, End: 2}, {Start: 10, End: 15}}
	ii := newIndirectInode(4, extents, 0, DefaultBlockSize)

	padded := ii.ToBytesPadded(DefaultBlockSize)
	if uint64(len(padded)) != DefaultBlockSize {
		t.Fatalf("padded length = %d, want %d", len(padded), DefaultBlockSize)
	}

	got, ok := indirectInodeFromBytes(padded, DefaultBlockSize)
	if !ok {
		t.Fatalf("indirectInodeFromBytes failed")
	}
	if len(got.Extents) != 2 || got.Extents[1] != extents[1] {
		t.Fatalf("extents mismatch: %v", got.Extents)
	}
	if got.MaxCapacity() != indirectInodeCapacity(DefaultBlockSize) {
		t.Fatalf("capacity not recomputed on load: got %d", got.MaxCapacity())
	}
}

func TestIndirectTagBlockRoundTrip(t *testing.T) {
	members := []uint64{100, 200, 300}
	it := newIndirectTagBlock(0, members, 0, DefaultBlockSize)

	padded := it.ToBytesPadded(DefaultBlockSize)
	got, ok := indirectTagBlockFromBytes(padded, DefaultBlockSize)
	if !ok {
		t.Fatalf("indirectTagBlockFromBytes failed")
	}
	if len(got.Members) != 3 || got.Members[2] != 300 {
		t.Fatalf("members mismatch: %v", got.Members)
	}
}

func TestSuperBlockRoundTrip(t *testing.T) {
	l, err := computeLayout(DefaultBlockSize, DefaultBlockSize*400)
	if err != nil {
		t.Fatalf("computeLayout: %v", err)
	}
	sb := newSuperBlock(DefaultBlockSize, l.tagCount, l.inodeCount, l.dataCount)
	sb.tagStartAddress = l.tagStart
	sb.inodeStartAddress = l.inodeStart
	sb.dataStartAddress = l.dataStart
	sb.setChecksum()

	b := sb.toBytes()
	if len(b) != superblockSize {
		t.Fatalf("toBytes length = %d, want %d", len(b), superblockSize)
	}
	got, ok := superBlockFromBytes(b)
	if !ok {
		t.Fatalf("superBlockFromBytes failed")
	}
	if got.tagCount != sb.tagCount || got.dataStartAddress != sb.dataStartAddress {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestCorruptedChecksumRejected(t *testing.T) {
	n := &INode{Index: 1}
	n.setChecksum()
	b := n.toBytes()
	b[0] ^= 0xFF // corrupt a byte outside the checksum field itself

	if _, ok := inodeFromBytes(b); ok {
		t.Fatalf("inodeFromBytes accepted a corrupted block")
	}
}
