package engine

// Block-level read/write helpers shared by the tag and file engines.
// Each pairs a codec (engine/*.go) with the backing store at the
// address the layout assigns to that entity kind.

func (d *Disk) readTagBlock(index uint64) (*TagBlock, error) {
	raw, err := d.store.Read(d.tagBlockAddress(index), tagBlockSize)
	if err != nil {
		return nil, wrapBackend("read tag block", err)
	}
	tb, ok := tagBlockFromBytes(raw)
	if !ok {
		return nil, ErrCorruptedTag
	}
	return tb, nil
}

func (d *Disk) writeTagBlock(tb *TagBlock) error {
	tb.setChecksum()
	if err := d.store.Write(d.tagBlockAddress(tb.Index), tb.toBytes()); err != nil {
		return wrapBackend("write tag block", err)
	}
	return nil
}

func (d *Disk) readINode(index uint64) (*INode, error) {
	raw, err := d.store.Read(d.inodeAddress(index), inodeSize)
	if err != nil {
		return nil, wrapBackend("read inode", err)
	}
	n, ok := inodeFromBytes(raw)
	if !ok {
		return nil, ErrCorruptedINode
	}
	return n, nil
}

func (d *Disk) writeINode(n *INode) error {
	n.setChecksum()
	if err := d.store.Write(d.inodeAddress(n.Index), n.toBytes()); err != nil {
		return wrapBackend("write inode", err)
	}
	return nil
}

func (d *Disk) readIndirectInode(dataBlockIndex uint64) (*IndirectInode, error) {
	raw, err := d.store.Read(d.dataBlockAddress(dataBlockIndex), d.blockSize())
	if err != nil {
		return nil, wrapBackend("read indirect inode", err)
	}
	ii, ok := indirectInodeFromBytes(raw, d.blockSize())
	if !ok {
		return nil, ErrCorruptedIndirectINode
	}
	return ii, nil
}

func (d *Disk) writeIndirectInode(dataBlockIndex uint64, ii *IndirectInode) error {
	ii.setChecksum()
	if err := d.store.Write(d.dataBlockAddress(dataBlockIndex), ii.ToBytesPadded(d.blockSize())); err != nil {
		return wrapBackend("write indirect inode", err)
	}
	return nil
}

func (d *Disk) readIndirectTagBlock(dataBlockIndex uint64) (*IndirectTagBlock, error) {
	raw, err := d.store.Read(d.dataBlockAddress(dataBlockIndex), d.blockSize())
	if err != nil {
		return nil, wrapBackend("read indirect tag block", err)
	}
	it, ok := indirectTagBlockFromBytes(raw, d.blockSize())
	if !ok {
		return nil, ErrCorruptedIndirectTag
	}
	return it, nil
}

func (d *Disk) writeIndirectTagBlock(dataBlockIndex uint64, it *IndirectTagBlock) error {
	it.setChecksum()
	if err := d.store.Write(d.dataBlockAddress(dataBlockIndex), it.ToBytesPadded(d.blockSize())); err != nil {
		return wrapBackend("write indirect tag block", err)
	}
	return nil
}

// writeDataPayload writes contents (already trimmed to the right
// length by the caller) into the data blocks of extent, splitting at
// block-size stride. The final slice may be shorter than blockSize
// when writing a file's tail.
func (d *Disk) writeDataPayload(extent Extent, contents []byte) error {
	bs := d.blockSize()
	off := 0
	for i := extent.Start; i <= extent.End; i++ {
		end := off + int(bs)
		if end > len(contents) {
			end = len(contents)
		}
		if off >= end {
			break
		}
		if err := d.store.Write(d.dataBlockAddress(i), contents[off:end]); err != nil {
			return wrapBackend("write data block", err)
		}
		off = end
	}
	return nil
}

// readDataBlock reads one full block of payload at data block index
// i.
func (d *Disk) readDataBlock(i uint64) ([]byte, error) {
	b, err := d.store.Read(d.dataBlockAddress(i), d.blockSize())
	if err != nil {
		return nil, wrapBackend("read data block", err)
	}
	return b, nil
}

// markDataBlocks sets the data bitmap bit for every block in extent,
// after first checking none of them is already allocated (spec §4.G
// safety pass).
func (d *Disk) markDataBlocks(extent Extent) error {
	for i := extent.Start; i <= extent.End; i++ {
		if d.bm.data.Get(int(i)) {
			return ErrBlockAlreadyAllocated
		}
	}
	for i := extent.Start; i <= extent.End; i++ {
		if err := d.bm.data.Set(int(i), true); err != nil {
			return ErrFailedToSetBitmapBit
		}
	}
	return nil
}

func (d *Disk) freeDataBlock(i uint64) error {
	if err := d.bm.data.Set(int(i), false); err != nil {
		return ErrFailedToFreeBlock
	}
	return nil
}

func (d *Disk) freeDataBlocks(extent Extent) error {
	for i := extent.Start; i <= extent.End; i++ {
		if err := d.freeDataBlock(i); err != nil {
			return err
		}
	}
	return nil
}
