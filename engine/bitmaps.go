package engine

import (
	"github.com/voxfs-go/voxfs/backend"
	"github.com/voxfs-go/voxfs/bitmap"
)

// diskBitmaps holds the three in-memory occupancy maps that mirror
// the on-disk tag, inode and data bitmap regions. The engine mutates
// these directly and flushes the touched region back through store on
// every structural change, rather than keeping the whole image
// write-behind cached.
type diskBitmaps struct {
	tag   *bitmap.Bitmap
	inode *bitmap.Bitmap
	data  *bitmap.Bitmap
}

func loadBitmaps(store backend.Store, l *diskLayout) (*diskBitmaps, error) {
	tagBytes, err := store.Read(l.tagMapStart, l.blockSize*l.tagMapBlocks)
	if err != nil {
		return nil, wrapBackend("read tag bitmap", err)
	}
	inodeBytes, err := store.Read(l.inodeMapStart, l.blockSize*l.inodeMapBlocks)
	if err != nil {
		return nil, wrapBackend("read inode bitmap", err)
	}
	dataBytes, err := store.Read(l.dataMapStart, l.blockSize*l.dataMapBlocks)
	if err != nil {
		return nil, wrapBackend("read data bitmap", err)
	}

	return &diskBitmaps{
		tag:   bitmap.FromBytes(tagBytes),
		inode: bitmap.FromBytes(inodeBytes),
		data:  bitmap.FromBytes(dataBytes),
	}, nil
}

func newBitmaps(l *diskLayout) *diskBitmaps {
	return &diskBitmaps{
		tag:   bitmap.New(int(l.tagCount)),
		inode: bitmap.New(int(l.inodeCount)),
		data:  bitmap.New(int(l.dataCount)),
	}
}

func (b *diskBitmaps) flushTag(store backend.Store, l *diskLayout) error {
	return wrapBackend("write tag bitmap", store.Write(l.tagMapStart, b.tag.Bytes()))
}

func (b *diskBitmaps) flushInode(store backend.Store, l *diskLayout) error {
	return wrapBackend("write inode bitmap", store.Write(l.inodeMapStart, b.inode.Bytes()))
}

func (b *diskBitmaps) flushData(store backend.Store, l *diskLayout) error {
	return wrapBackend("write data bitmap", store.Write(l.dataMapStart, b.data.Bytes()))
}
