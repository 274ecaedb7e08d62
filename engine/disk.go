package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/voxfs-go/voxfs/backend"
	"github.com/voxfs-go/voxfs/clock"
)

// rootTagIndex is the always-present tag slot 0 installed by mkfs.
const rootTagIndex = 0

// rootTagName is the name given to the default root tag.
const rootTagName = "root"

// Disk is a mounted VoxFS image: the superblock, the three bitmaps,
// and the in-memory tag/inode caches, bound to one backing store and
// one clock for its entire lifetime. Disk is not safe for concurrent
// use; callers that need concurrent access must serialise externally
// (spec §5).
type Disk struct {
	store backend.Store
	clock clock.Clock

	sb     *superBlock
	layout *diskLayout
	bm     *diskBitmaps

	tags   map[uint64]*TagBlock
	inodes map[uint64]*INode

	log *logrus.Entry
}

// Mkfs formats store as a fresh VoxFS image of size store.Size(),
// installing a default root tag (index 0, name "root", read|write).
// It is equivalent to MkfsWithRoot with those defaults.
func Mkfs(store backend.Store, c clock.Clock, blockSize uint64) (*Disk, error) {
	return MkfsWithRoot(store, c, blockSize, rootTagName, TagFlags{Read: true, Write: true})
}

// MkfsWithRoot formats store, installing a root tag with the given
// name and flags instead of the default. Exposed mainly for tests
// that want a distinctive root tag.
func MkfsWithRoot(store backend.Store, c clock.Clock, blockSize uint64, rootName string, rootFlags TagFlags) (*Disk, error) {
	entry := sessionEntry()
	if err := validateName(rootName); err != nil {
		return nil, err
	}

	size, err := store.Size()
	if err != nil {
		return nil, wrapBackend("size", err)
	}

	layout, err := computeLayout(blockSize, size)
	if err != nil {
		entry.WithError(err).Warn("mkfs: layout computation failed")
		return nil, err
	}

	if err := store.Zero(0, blockSize); err != nil {
		return nil, wrapBackend("zero superblock", err)
	}

	sb := newSuperBlock(blockSize, layout.tagCount, layout.inodeCount, layout.dataCount)
	sb.tagStartAddress = layout.tagStart
	sb.inodeStartAddress = layout.inodeStart
	sb.dataStartAddress = layout.dataStart
	sb.setChecksum()

	if err := store.Write(0, sb.toBytes()); err != nil {
		return nil, wrapBackend("write superblock", err)
	}

	bm := newBitmaps(layout)

	d := &Disk{
		store:  store,
		clock:  c,
		sb:     sb,
		layout: layout,
		bm:     bm,
		tags:   make(map[uint64]*TagBlock),
		inodes: make(map[uint64]*INode),
		log:    entry,
	}

	root := newTagBlock(rootTagIndex, rootName, rootFlags, c.NowNanos())
	if err := d.writeTagBlock(root); err != nil {
		return nil, err
	}
	if err := bm.tag.Set(int(rootTagIndex), true); err != nil {
		return nil, wrapBackend("mark root tag bit", err)
	}
	d.tags[rootTagIndex] = root

	if err := d.flushBitmaps(); err != nil {
		return nil, err
	}

	entry.WithFields(logrus.Fields{
		"blockSize":  blockSize,
		"tagCount":   layout.tagCount,
		"inodeCount": layout.inodeCount,
		"dataCount":  layout.dataCount,
	}).Info("mkfs: formatted new image")

	return d, nil
}

// Open reconstitutes a Disk from a previously formatted store: it
// reads and validates the superblock, recomputes the bitmap region
// sizes from the stored counts, loads the three bitmaps, and
// populates the tag/inode caches by scanning the bitmaps and reading
// every occupied block.
func Open(store backend.Store, c clock.Clock) (*Disk, error) {
	entry := sessionEntry()

	raw, err := store.Read(0, superblockSize)
	if err != nil {
		return nil, wrapBackend("read superblock", err)
	}
	sb, ok := superBlockFromBytes(raw)
	if !ok {
		return nil, ErrCorruptedSuperBlock
	}

	layout := layoutFromSuperBlock(sb)

	bm, err := loadBitmaps(store, layout)
	if err != nil {
		return nil, err
	}

	d := &Disk{
		store:  store,
		clock:  c,
		sb:     sb,
		layout: layout,
		bm:     bm,
		tags:   make(map[uint64]*TagBlock),
		inodes: make(map[uint64]*INode),
		log:    entry,
	}

	for i := 0; i < int(sb.tagCount); i++ {
		if !bm.tag.Get(i) {
			continue
		}
		tb, err := d.readTagBlock(uint64(i))
		if err != nil {
			return nil, err
		}
		d.tags[uint64(i)] = tb
	}

	for i := 0; i < int(sb.inodeCount); i++ {
		if !bm.inode.Get(i) {
			continue
		}
		n, err := d.readINode(uint64(i))
		if err != nil {
			return nil, err
		}
		d.inodes[uint64(i)] = n
	}

	entry.WithFields(logrus.Fields{
		"tagCount":   sb.tagCount,
		"inodeCount": sb.inodeCount,
		"dataCount":  sb.blockCount,
	}).Info("open: reconstituted image")

	return d, nil
}

// layoutFromSuperBlock recomputes region block counts from the
// persisted counts and addresses, matching the layout Open must
// derive without redoing the mkfs fixed-point solve (the superblock
// already pins the three start addresses).
func layoutFromSuperBlock(sb *superBlock) *diskLayout {
	l := &diskLayout{
		blockSize:  sb.blockSize,
		tagCount:   sb.tagCount,
		inodeCount: sb.inodeCount,
		dataCount:  sb.blockCount,
	}
	l.tagRegionBlocks = sb.blocksForTags()
	l.inodeRegionBlocks = sb.blocksForInodes()
	l.tagMapBlocks = mapBlocksFor(sb.tagCount, sb.blockSize)
	l.inodeMapBlocks = mapBlocksFor(sb.inodeCount, sb.blockSize)
	l.dataMapBlocks = mapBlocksFor(sb.blockCount, sb.blockSize)

	l.tagMapStart = sb.blockSize
	l.inodeMapStart = l.tagMapStart + sb.blockSize*l.tagMapBlocks
	l.dataMapStart = l.inodeMapStart + sb.blockSize*l.inodeMapBlocks
	l.tagStart = sb.tagStartAddress
	l.inodeStart = sb.inodeStartAddress
	l.dataStart = sb.dataStartAddress
	return l
}

func (d *Disk) flushBitmaps() error {
	if err := d.bm.flushTag(d.store, d.layout); err != nil {
		return err
	}
	if err := d.bm.flushInode(d.store, d.layout); err != nil {
		return err
	}
	return d.bm.flushData(d.store, d.layout)
}

func (d *Disk) blockSize() uint64 {
	return d.sb.blockSize
}

func (d *Disk) dataBlockAddress(i uint64) uint64 {
	return d.layout.dataStart + i*d.sb.blockSize
}

func (d *Disk) tagBlockAddress(i uint64) uint64 {
	return d.layout.tagStart + i*tagBlockSize
}

func (d *Disk) inodeAddress(i uint64) uint64 {
	return d.layout.inodeStart + i*inodeSize
}
