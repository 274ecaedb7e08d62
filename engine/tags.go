package engine

import "github.com/sirupsen/logrus"

// CreateNewTag allocates the first free tag slot, rejecting name if
// it contains a forbidden character, and writes the new TagBlock
// through to disk.
func (d *Disk) CreateNewTag(name string, flags TagFlags) (*TagBlock, error) {
	if err := validateTagName(name); err != nil {
		return nil, err
	}

	idx, ok := d.bm.tag.FindFirstZeroUpTo(int(d.sb.tagCount))
	if !ok {
		return nil, ErrNoFreeTag
	}

	tb := newTagBlock(uint64(idx), name, flags, d.clock.NowNanos())
	if err := d.writeTagBlock(tb); err != nil {
		return nil, err
	}
	if err := d.bm.tag.Set(idx, true); err != nil {
		return nil, ErrFailedToSetBitmapBit
	}
	if err := d.flushBitmaps(); err != nil {
		return nil, err
	}

	d.tags[uint64(idx)] = tb
	out := *tb
	d.log.WithField("tagIndex", idx).Debug("tag created")
	return &out, nil
}

// DeleteTag walks the tag's indirect chain freeing every indirect
// block's data-block slot, then clears the tag's own bitmap bit.
// Inodes referenced by the tag are not themselves deleted.
func (d *Disk) DeleteTag(index uint64) error {
	tb, ok := d.tags[index]
	if !ok {
		return ErrCouldNotFindTag
	}

	addr := tb.Indirect
	for addr != 0 {
		it, err := d.readIndirectTagBlock(addr)
		if err != nil {
			return err
		}
		if err := d.freeDataBlock(addr); err != nil {
			return ErrFailedToFreeBlock
		}
		addr = it.Next
	}

	if err := d.bm.tag.Set(int(index), false); err != nil {
		return ErrFailedToFreeTag
	}
	delete(d.tags, index)

	if err := d.flushBitmaps(); err != nil {
		return err
	}
	d.log.WithField("tagIndex", index).Debug("tag deleted")
	return nil
}

// ApplyTag attaches inodeIndex to the tag's membership, preferring
// the tag's 12 inline slots and otherwise growing its indirect chain.
// It rejects a duplicate application with TagAlreadyAppliedToINode,
// a check that must walk the whole chain even once a spare slot has
// been located.
func (d *Disk) ApplyTag(tagIndex, inodeIndex uint64) (err error) {
	defer func() {
		if err == nil {
			d.log.WithFields(logrus.Fields{"tagIndex": tagIndex, "inodeIndex": inodeIndex}).Debug("tag applied to inode")
		}
	}()

	tb, ok := d.tags[tagIndex]
	if !ok {
		return ErrCouldNotFindTag
	}
	if _, ok := d.inodes[inodeIndex]; !ok {
		return ErrCouldNotFindINode
	}

	if int(tb.NumLocalMembers) < maxLocalMembers {
		if tb.hasLocalMember(inodeIndex) {
			return ErrTagAlreadyAppliedToINode
		}
		tb.LocalMembers[tb.NumLocalMembers] = inodeIndex
		tb.NumLocalMembers++
		return d.writeTagBlock(tb)
	}

	var (
		spareAddr uint64
		haveSpare bool
		lastAddr  uint64
	)

	addr := tb.Indirect
	for addr != 0 {
		it, err := d.readIndirectTagBlock(addr)
		if err != nil {
			return err
		}
		if it.hasMember(inodeIndex) {
			return ErrTagAlreadyAppliedToINode
		}
		if !haveSpare && it.SpareCapacity() > 0 {
			spareAddr = addr
			haveSpare = true
		}
		lastAddr = addr
		addr = it.Next
	}

	if haveSpare {
		it, err := d.readIndirectTagBlock(spareAddr)
		if err != nil {
			return err
		}
		it.Members = append(it.Members, inodeIndex)
		return d.writeIndirectTagBlock(spareAddr, it)
	}

	newAddr, allocOK := findBlock(d.bm.data, d.layout.dataCount)
	if !allocOK {
		return ErrFailedIndirectTagAppend
	}
	if err := d.bm.data.Set(int(newAddr), true); err != nil {
		return ErrFailedToSetBitmapBit
	}

	newBlock := newIndirectTagBlock(tagIndex, []uint64{inodeIndex}, 0, d.blockSize())
	if err := d.writeIndirectTagBlock(newAddr, newBlock); err != nil {
		return err
	}
	if err := d.flushBitmaps(); err != nil {
		return err
	}

	if lastAddr != 0 {
		parent, err := d.readIndirectTagBlock(lastAddr)
		if err != nil {
			return err
		}
		parent.Next = newAddr
		return d.writeIndirectTagBlock(lastAddr, parent)
	}
	tb.Indirect = newAddr
	return d.writeTagBlock(tb)
}

// RemoveTagFromInode detaches inodeIndex from the tag's membership,
// searching local members first and then the indirect chain. When
// prune is true an indirect block left empty by the removal is
// detached from the chain and its data block freed.
func (d *Disk) RemoveTagFromInode(tagIndex, inodeIndex uint64, prune bool) (err error) {
	defer func() {
		if err == nil {
			d.log.WithFields(logrus.Fields{"tagIndex": tagIndex, "inodeIndex": inodeIndex}).Debug("tag removed from inode")
		}
	}()

	tb, ok := d.tags[tagIndex]
	if !ok {
		return ErrCouldNotFindTag
	}

	if tb.hasLocalMember(inodeIndex) {
		for i := 0; i < int(tb.NumLocalMembers); i++ {
			if tb.LocalMembers[i] == inodeIndex {
				tb.removeLocalMemberAt(i)
				break
			}
		}
		return d.writeTagBlock(tb)
	}

	var parentAddr uint64 // 0 if the current block is the chain head
	addr := tb.Indirect
	for addr != 0 {
		it, err := d.readIndirectTagBlock(addr)
		if err != nil {
			return err
		}
		if it.hasMember(inodeIndex) {
			for i, m := range it.Members {
				if m == inodeIndex {
					it.removeMemberAt(i)
					break
				}
			}

			if prune && len(it.Members) == 0 {
				if parentAddr != 0 {
					parent, err := d.readIndirectTagBlock(parentAddr)
					if err != nil {
						return err
					}
					parent.Next = it.Next
					if err := d.writeIndirectTagBlock(parentAddr, parent); err != nil {
						return err
					}
				} else {
					tb.Indirect = it.Next
					if err := d.writeTagBlock(tb); err != nil {
						return err
					}
				}
				if err := d.freeDataBlock(addr); err != nil {
					return ErrFailedToFreeBlock
				}
				return d.flushBitmaps()
			}

			return d.writeIndirectTagBlock(addr, it)
		}
		parentAddr = addr
		addr = it.Next
	}

	return ErrTagNotAppliedToINode
}

// ListTags returns value copies of every live tag, in no particular
// order beyond Go map iteration.
func (d *Disk) ListTags() []TagBlock {
	out := make([]TagBlock, 0, len(d.tags))
	for _, tb := range d.tags {
		out = append(out, *tb)
	}
	return out
}

// ListNodesWithTag resolves a tag's full membership (local + indirect
// chain) to inode value copies, silently skipping any index no longer
// resolvable in the cache.
func (d *Disk) ListNodesWithTag(tagIndex uint64) ([]INode, error) {
	tb, ok := d.tags[tagIndex]
	if !ok {
		return nil, ErrCouldNotFindTag
	}

	var members []uint64
	for i := 0; i < int(tb.NumLocalMembers); i++ {
		members = append(members, tb.LocalMembers[i])
	}

	addr := tb.Indirect
	for addr != 0 {
		it, err := d.readIndirectTagBlock(addr)
		if err != nil {
			return nil, err
		}
		members = append(members, it.Members...)
		addr = it.Next
	}

	out := make([]INode, 0, len(members))
	for _, idx := range members {
		if n, ok := d.inodes[idx]; ok {
			out = append(out, *n)
		}
	}
	return out, nil
}

// ListNodesWithTags intersects the per-tag membership lists,
// preserving the order of the first tag's list, and early-exits once
// the running intersection is empty.
func (d *Disk) ListNodesWithTags(tagIndices []uint64) ([]INode, error) {
	if len(tagIndices) == 0 {
		return nil, nil
	}

	result, err := d.ListNodesWithTag(tagIndices[0])
	if err != nil {
		return nil, err
	}

	for _, t := range tagIndices[1:] {
		if len(result) == 0 {
			break
		}
		next, err := d.ListNodesWithTag(t)
		if err != nil {
			return nil, err
		}
		present := make(map[uint64]bool, len(next))
		for _, n := range next {
			present[n.Index] = true
		}
		filtered := result[:0:0]
		for _, n := range result {
			if present[n.Index] {
				filtered = append(filtered, n)
			}
		}
		result = filtered
	}
	return result, nil
}

// TagsWithNames resolves each requested name to a tag index, matching
// against the NUL-stripped tag name and de-duplicating as each match
// consumes a position so a repeated name can't double-resolve to the
// same tag.
func (d *Disk) TagsWithNames(names []string) ([]uint64, error) {
	if len(names) > len(d.tags) {
		return nil, ErrMoreNamesThanTagsProvided
	}

	available := make(map[uint64]string, len(d.tags))
	for idx, tb := range d.tags {
		available[idx] = tb.NameString()
	}

	out := make([]uint64, 0, len(names))
	var remaining []string
	for _, name := range names {
		found := false
		for idx, n := range available {
			if n == name {
				out = append(out, idx)
				delete(available, idx)
				found = true
				break
			}
		}
		if !found {
			remaining = append(remaining, name)
		}
	}

	if len(remaining) > 0 {
		return nil, &NoTagsWithNamesError{Remaining: remaining}
	}
	return out, nil
}
