package engine

import "github.com/sirupsen/logrus"

// CreateNewFile validates name, allocates an inode slot and the data
// blocks needed for contents, and writes the new file through to
// disk. Files whose extents don't fit the inode's 5 inline slots grow
// an indirect-inode chain built tail-to-head, so the head address is
// known only once the whole chain has been written (spec §4.G, Design
// Note 2: a crash between building the chain and linking its head
// leaks blocks rather than dangling a pointer).
func (d *Disk) CreateNewFile(name string, flags INodeFlags, contents []byte) (*INode, error) {
	n, err := d.createNewFile(name, flags, contents)
	if err == nil {
		d.log.WithFields(logrus.Fields{"inodeIndex": n.Index, "size": n.Size}).Debug("file created")
	}
	return n, err
}

func (d *Disk) createNewFile(name string, flags INodeFlags, contents []byte) (*INode, error) {
	if err := validateFileName(name); err != nil {
		return nil, err
	}

	idx, ok := d.bm.inode.FindFirstZeroUpTo(int(d.sb.inodeCount))
	if !ok {
		return nil, ErrNoFreeInode
	}
	inodeIndex := uint64(idx)

	extents, ok := findBlocks(d.bm.data, d.layout.dataCount, uint64(len(contents)), d.blockSize())
	if !ok {
		return nil, ErrNotEnoughFreeDataBlocks
	}

	for _, e := range extents {
		if err := d.checkExtentFree(e); err != nil {
			return nil, err
		}
	}
	for _, e := range extents {
		if err := d.markDataBlocks(e); err != nil {
			return nil, err
		}
	}
	if err := d.writeDataAcrossExtents(extents, contents); err != nil {
		return nil, err
	}

	n := &INode{
		Index:        inodeIndex,
		Size:         uint64(len(contents)),
		Flags:        flags,
		AccessTime:   d.clock.NowNanos(),
		ModifiedTime: d.clock.NowNanos(),
		CreationTime: d.clock.NowNanos(),
	}
	copy(n.Name[:], nameToFixed(name, inodeNameSize))

	if len(extents) <= maxExtents {
		n.NumExtents = uint8(len(extents))
		copy(n.Extents[:], extents)
	} else {
		n.NumExtents = maxExtents
		copy(n.Extents[:], extents[:maxExtents])

		headAddr, err := d.buildIndirectChain(inodeIndex, extents[maxExtents:], 0)
		if err != nil {
			return nil, err
		}
		n.Indirect = headAddr
	}

	if err := d.writeINode(n); err != nil {
		return nil, err
	}
	if err := d.bm.inode.Set(idx, true); err != nil {
		return nil, ErrFailedToSetBitmapBit
	}
	if err := d.flushBitmaps(); err != nil {
		return nil, err
	}

	d.inodes[inodeIndex] = n
	out := *n
	return &out, nil
}

// checkExtentFree is the defensive re-check spec §4.G asks for
// between candidate selection and commit: a block the allocator just
// reported free must still be free when we go to mark it.
func (d *Disk) checkExtentFree(e Extent) error {
	for i := e.Start; i <= e.End; i++ {
		if d.bm.data.Get(int(i)) {
			return ErrBlockAlreadyAllocated
		}
	}
	return nil
}

// writeDataAcrossExtents slices contents by block-size stride across
// a run of extents in order, writing each slice to its data block.
func (d *Disk) writeDataAcrossExtents(extents []Extent, contents []byte) error {
	bs := int(d.blockSize())
	off := 0
	for _, e := range extents {
		for i := e.Start; i <= e.End; i++ {
			end := off + bs
			if end > len(contents) {
				end = len(contents)
			}
			if off >= end {
				return nil
			}
			if err := d.store.Write(d.dataBlockAddress(i), contents[off:end]); err != nil {
				return wrapBackend("write data block", err)
			}
			off = end
		}
	}
	return nil
}

// buildIndirectChain partitions extents into indirect-inode-capacity
// groups and writes them tail-to-head, each new block's Next pointing
// at the block built just before it. It returns the address of the
// head block (the last one written), which the caller links in as
// either the inode's Indirect pointer or an existing chain tail's
// Next.
func (d *Disk) buildIndirectChain(inodeIndex uint64, extents []Extent, tailNext uint64) (uint64, error) {
	capacity := indirectInodeCapacity(d.blockSize())
	var groups [][]Extent
	for len(extents) > 0 {
		n := capacity
		if n > len(extents) {
			n = len(extents)
		}
		groups = append(groups, extents[:n])
		extents = extents[n:]
	}

	next := tailNext
	for i := len(groups) - 1; i >= 0; i-- {
		addr, ok := findBlock(d.bm.data, d.layout.dataCount)
		if !ok {
			return 0, ErrNotEnoughFreeDataBlocks
		}
		if err := d.bm.data.Set(int(addr), true); err != nil {
			return 0, ErrFailedToSetBitmapBit
		}
		block := newIndirectInode(inodeIndex, groups[i], next, d.blockSize())
		if err := d.writeIndirectInode(addr, block); err != nil {
			return 0, err
		}
		next = addr
	}
	if err := d.flushBitmaps(); err != nil {
		return 0, err
	}
	return next, nil
}

// ReadFile reads a file's entire logical contents.
func (d *Disk) ReadFile(inodeIndex uint64) ([]byte, error) {
	return d.ReadFileBytes(inodeIndex, 0)
}

// ReadFileBytes reads up to n bytes of a file; n == 0 or n > size
// reads the whole file.
func (d *Disk) ReadFileBytes(inodeIndex uint64, n uint64) ([]byte, error) {
	node, ok := d.inodes[inodeIndex]
	if !ok {
		return nil, ErrCouldNotFindINode
	}

	want := n
	if want == 0 || want > node.Size {
		want = node.Size
	}

	out := make([]byte, 0, want)
	for i := 0; i < int(node.NumExtents) && uint64(len(out)) < want; i++ {
		if err := d.readExtentInto(&out, node.Extents[i], want); err != nil {
			return nil, err
		}
	}

	addr := node.Indirect
	for addr != 0 && uint64(len(out)) < want {
		ii, err := d.readIndirectInode(addr)
		if err != nil {
			return nil, err
		}
		for _, e := range ii.Extents {
			if uint64(len(out)) >= want {
				break
			}
			if err := d.readExtentInto(&out, e, want); err != nil {
				return nil, err
			}
		}
		if uint64(len(out)) >= want {
			break
		}
		if ii.Next == 0 {
			return nil, ErrExpectedIndirectNode
		}
		addr = ii.Next
	}

	return out[:want], nil
}

func (d *Disk) readExtentInto(out *[]byte, e Extent, want uint64) error {
	for i := e.Start; i <= e.End; i++ {
		if uint64(len(*out)) >= want {
			return nil
		}
		b, err := d.readDataBlock(i)
		if err != nil {
			return err
		}
		remaining := want - uint64(len(*out))
		if remaining < uint64(len(b)) {
			b = b[:remaining]
		}
		*out = append(*out, b...)
	}
	return nil
}

// lastExtent returns the final extent in a file's logical sequence —
// the tail of the inline slots if there's no indirect chain, or the
// last extent of the chain's last block otherwise — used to locate
// the block append writes its tail bytes into.
func (d *Disk) lastExtent(n *INode) (Extent, error) {
	if n.Indirect == 0 {
		if n.NumExtents == 0 {
			return Extent{}, nil
		}
		return n.Extents[n.NumExtents-1], nil
	}

	addr := n.Indirect
	for {
		ii, err := d.readIndirectInode(addr)
		if err != nil {
			return Extent{}, err
		}
		if ii.Next == 0 {
			if len(ii.Extents) == 0 {
				return Extent{}, ErrExpectedIndirectNode
			}
			return ii.Extents[len(ii.Extents)-1], nil
		}
		addr = ii.Next
	}
}

// AppendFileBytes grows a file's contents, writing into the spare
// tail of its last data block first and only allocating new extents
// for whatever doesn't fit there.
func (d *Disk) AppendFileBytes(inodeIndex uint64, data []byte) (err error) {
	defer func() {
		if err == nil {
			d.log.WithFields(logrus.Fields{"inodeIndex": inodeIndex, "appended": len(data)}).Debug("file appended")
		}
	}()

	n, ok := d.inodes[inodeIndex]
	if !ok {
		return ErrCouldNotFindINode
	}
	if len(data) == 0 {
		return nil
	}

	bs := d.blockSize()
	var spare uint64
	if rem := n.Size % bs; rem != 0 {
		spare = bs - rem
	}

	tail, err := d.lastExtent(n)
	if err != nil {
		return err
	}

	if uint64(len(data)) <= spare {
		if spare > 0 {
			if err := d.writeTailBytes(n, tail, data); err != nil {
				return err
			}
		}
		n.Size += uint64(len(data))
		return d.writeINode(n)
	}

	headBytes := data[:spare]
	restBytes := data[spare:]

	if spare > 0 {
		if err := d.writeTailBytes(n, tail, headBytes); err != nil {
			return err
		}
	}

	newExtents, ok := findBlocks(d.bm.data, d.layout.dataCount, uint64(len(restBytes)), bs)
	if !ok {
		return ErrNotEnoughFreeDataBlocks
	}
	for _, e := range newExtents {
		if err := d.checkExtentFree(e); err != nil {
			return err
		}
	}
	for _, e := range newExtents {
		if err := d.markDataBlocks(e); err != nil {
			return err
		}
	}

	if err := d.appendExtents(n, newExtents); err != nil {
		return err
	}

	if err := d.writeDataAcrossExtents(newExtents, restBytes); err != nil {
		return err
	}

	n.Size += uint64(len(data))
	if err := d.writeINode(n); err != nil {
		return err
	}
	return d.flushBitmaps()
}

// writeTailBytes writes b into the tail of extent's last block,
// starting at the inode's current size offset within that block.
func (d *Disk) writeTailBytes(n *INode, extent Extent, b []byte) error {
	bs := d.blockSize()
	offsetInBlock := n.Size % bs
	addr := d.dataBlockAddress(extent.End) + offsetInBlock
	if err := d.store.Write(addr, b); err != nil {
		return wrapBackend("write tail bytes", err)
	}
	return nil
}

// appendExtents distributes newExtents across the inode's remaining
// inline slots, then the existing indirect chain's spare capacity,
// then a freshly built chain tail for whatever is still left over.
func (d *Disk) appendExtents(n *INode, newExtents []Extent) error {
	remaining := newExtents

	for len(remaining) > 0 && int(n.NumExtents) < maxExtents {
		n.Extents[n.NumExtents] = remaining[0]
		n.NumExtents++
		remaining = remaining[1:]
	}
	if len(remaining) == 0 {
		return nil
	}

	if n.Indirect == 0 {
		head, err := d.buildIndirectChain(n.Index, remaining, 0)
		if err != nil {
			return err
		}
		n.Indirect = head
		return nil
	}

	var lastAddr uint64
	addr := n.Indirect
	for {
		ii, err := d.readIndirectInode(addr)
		if err != nil {
			return err
		}
		if spare := ii.SpareCapacity(); spare > 0 && len(remaining) > 0 {
			take := spare
			if take > len(remaining) {
				take = len(remaining)
			}
			ii.Extents = append(ii.Extents, remaining[:take]...)
			remaining = remaining[take:]
			if err := d.writeIndirectInode(addr, ii); err != nil {
				return err
			}
		}
		lastAddr = addr
		if ii.Next == 0 {
			break
		}
		addr = ii.Next
	}

	if len(remaining) == 0 {
		return nil
	}

	head, err := d.buildIndirectChain(n.Index, remaining, 0)
	if err != nil {
		return err
	}
	parent, err := d.readIndirectInode(lastAddr)
	if err != nil {
		return err
	}
	parent.Next = head
	return d.writeIndirectInode(lastAddr, parent)
}

// DeleteFile frees every data block and indirect-inode block the file
// references, detaches it from every tag, and removes its inode slot.
func (d *Disk) DeleteFile(inodeIndex uint64) (err error) {
	defer func() {
		if err == nil {
			d.log.WithField("inodeIndex", inodeIndex).Debug("file deleted")
		}
	}()

	n, ok := d.inodes[inodeIndex]
	if !ok {
		return ErrCouldNotFindINode
	}

	var extents []Extent
	for i := 0; i < int(n.NumExtents); i++ {
		extents = append(extents, n.Extents[i])
	}

	var indirectBlocks []uint64
	addr := n.Indirect
	for addr != 0 {
		ii, err := d.readIndirectInode(addr)
		if err != nil {
			return err
		}
		extents = append(extents, ii.Extents...)
		indirectBlocks = append(indirectBlocks, addr)
		addr = ii.Next
	}

	for tagIndex := range d.tags {
		if err := d.RemoveTagFromInode(tagIndex, inodeIndex, true); err != nil && err != ErrTagNotAppliedToINode {
			return err
		}
	}

	for _, e := range extents {
		if err := d.freeDataBlocks(e); err != nil {
			return ErrFailedToFreeBlock
		}
	}
	for _, addr := range indirectBlocks {
		if err := d.freeDataBlock(addr); err != nil {
			return ErrFailedToFreeBlock
		}
	}

	if err := d.bm.inode.Set(int(inodeIndex), false); err != nil {
		return ErrFailedToFreeINode
	}
	delete(d.inodes, inodeIndex)

	return d.flushBitmaps()
}

// ListInodes returns value copies of every live inode.
func (d *Disk) ListInodes() []INode {
	out := make([]INode, 0, len(d.inodes))
	for _, n := range d.inodes {
		out = append(out, *n)
	}
	return out
}

// ApproximateFileSize rounds size up to block granularity without
// touching the store.
func (d *Disk) ApproximateFileSize(inodeIndex uint64) (uint64, error) {
	n, ok := d.inodes[inodeIndex]
	if !ok {
		return 0, ErrCouldNotFindINode
	}
	bs := d.blockSize()
	blocks := (n.Size + bs - 1) / bs
	return blocks * bs, nil
}

// FileSizeReport is the pair of sizes spec §6's file_size operation
// returns: the exact logical size and the physical space its extents
// occupy.
type FileSizeReport struct {
	Physical uint64
	Actual   uint64
}

// FileSize walks a file's full extent chain to compute the exact
// physical space it occupies, alongside its logical size.
func (d *Disk) FileSize(inodeIndex uint64) (FileSizeReport, error) {
	n, ok := d.inodes[inodeIndex]
	if !ok {
		return FileSizeReport{}, ErrCouldNotFindINode
	}

	bs := d.blockSize()
	var physical uint64
	for i := 0; i < int(n.NumExtents); i++ {
		physical += n.Extents[i].Len() * bs
	}

	addr := n.Indirect
	for addr != 0 {
		ii, err := d.readIndirectInode(addr)
		if err != nil {
			return FileSizeReport{}, err
		}
		for _, e := range ii.Extents {
			physical += e.Len() * bs
		}
		addr = ii.Next
	}

	return FileSizeReport{Physical: physical, Actual: n.Size}, nil
}
