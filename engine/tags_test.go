package engine

import (
	"fmt"
	"testing"

	"github.com/voxfs-go/voxfs/backend/memory"
	"github.com/voxfs-go/voxfs/voxfstest"
)

// Scenario 4: tag indirect overflow across 730 small files.
func TestTagIndirectOverflow(t *testing.T) {
	store := memory.New(DefaultBlockSize * 1000)
	d, err := Mkfs(store, voxfstest.FixedClock{Nanos: 1}, DefaultBlockSize)
	if err != nil {
		t.Fatalf("Mkfs: %v", err)
	}

	const count = 730
	order := make([]uint64, 0, count)
	flags := INodeFlags{Valid: true, Read: true}

	for i := 0; i < count; i++ {
		n, err := d.CreateNewFile(fmt.Sprintf("file%04d", i), flags, []byte{byte(i)})
		if err != nil {
			t.Fatalf("CreateNewFile(%d): %v", i, err)
		}
		if err := d.ApplyTag(rootTagIndex, n.Index); err != nil {
			t.Fatalf("ApplyTag(%d): %v", i, err)
		}
		order = append(order, n.Index)
	}

	list, err := d.ListNodesWithTag(rootTagIndex)
	if err != nil {
		t.Fatalf("ListNodesWithTag: %v", err)
	}
	if len(list) != count {
		t.Fatalf("got %d tagged inodes, want %d", len(list), count)
	}
	for i, n := range list {
		if n.Index != order[i] {
			t.Fatalf("member %d out of creation order: got index %d, want %d", i, n.Index, order[i])
		}
	}
}

// Scenario 7: tag-intersection query.
func TestTagIntersectionQuery(t *testing.T) {
	store := memory.New(DefaultBlockSize * 2000)
	d, err := Mkfs(store, voxfstest.FixedClock{Nanos: 1}, DefaultBlockSize)
	if err != nil {
		t.Fatalf("Mkfs: %v", err)
	}

	tag1, err := d.CreateNewTag("tag_1", TagFlags{Read: true, Write: true})
	if err != nil {
		t.Fatalf("CreateNewTag(tag_1): %v", err)
	}
	tag2, err := d.CreateNewTag("tag_2", TagFlags{Read: true, Write: true})
	if err != nil {
		t.Fatalf("CreateNewTag(tag_2): %v", err)
	}

	const total = 300
	files := make([]uint64, total)
	flags := INodeFlags{Valid: true, Read: true}
	for i := 0; i < total; i++ {
		n, err := d.CreateNewFile(fmt.Sprintf("file%04d", i), flags, []byte{byte(i)})
		if err != nil {
			t.Fatalf("CreateNewFile(%d): %v", i, err)
		}
		files[i] = n.Index
	}

	for i := 0; i < 100; i++ {
		if err := d.ApplyTag(tag1.Index, files[i]); err != nil {
			t.Fatalf("ApplyTag(tag_1, %d): %v", i, err)
		}
	}
	for i := 0; i < 20; i++ {
		if err := d.ApplyTag(tag2.Index, files[i]); err != nil {
			t.Fatalf("ApplyTag(tag_2, %d): %v", i, err)
		}
	}

	got, err := d.ListNodesWithTags([]uint64{tag1.Index, tag2.Index})
	if err != nil {
		t.Fatalf("ListNodesWithTags: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("got %d nodes, want 20", len(got))
	}
	for i, n := range got {
		if n.Index != files[i] {
			t.Fatalf("intersection result %d = index %d, want %d", i, n.Index, files[i])
		}
	}
}

func TestTagsWithNames(t *testing.T) {
	d := newTestDisk(t, 30)
	if _, err := d.CreateNewTag("work", TagFlags{Read: true}); err != nil {
		t.Fatalf("CreateNewTag(work): %v", err)
	}

	idxs, err := d.TagsWithNames([]string{"root", "work"})
	if err != nil {
		t.Fatalf("TagsWithNames: %v", err)
	}
	if len(idxs) != 2 {
		t.Fatalf("got %d indices, want 2", len(idxs))
	}

	if _, err := d.TagsWithNames([]string{"missing"}); err == nil {
		t.Fatalf("expected an error resolving a nonexistent tag name")
	}

	if _, err := d.TagsWithNames([]string{"a", "b", "c"}); err != ErrMoreNamesThanTagsProvided {
		t.Fatalf("got %v, want ErrMoreNamesThanTagsProvided", err)
	}
}

func TestRemoveTagFromInodePrunesEmptyIndirectBlock(t *testing.T) {
	d := newTestDisk(t, 30)
	flags := INodeFlags{Valid: true, Read: true}

	var indices []uint64
	for i := 0; i < maxLocalMembers+1; i++ {
		n, err := d.CreateNewFile(fmt.Sprintf("n%02d", i), flags, []byte{byte(i)})
		if err != nil {
			t.Fatalf("CreateNewFile(%d): %v", i, err)
		}
		if err := d.ApplyTag(rootTagIndex, n.Index); err != nil {
			t.Fatalf("ApplyTag(%d): %v", i, err)
		}
		indices = append(indices, n.Index)
	}

	root := d.tags[rootTagIndex]
	if root.Indirect == 0 {
		t.Fatalf("expected an indirect tag block after exceeding %d local members", maxLocalMembers)
	}

	last := indices[len(indices)-1]
	if err := d.RemoveTagFromInode(rootTagIndex, last, true); err != nil {
		t.Fatalf("RemoveTagFromInode: %v", err)
	}

	root = d.tags[rootTagIndex]
	if root.Indirect != 0 {
		t.Fatalf("expected the now-empty indirect tag block to be pruned, Indirect = %d", root.Indirect)
	}

	if err := d.RemoveTagFromInode(rootTagIndex, last, true); err != ErrTagNotAppliedToINode {
		t.Fatalf("removing again = %v, want ErrTagNotAppliedToINode", err)
	}
}
