package engine_test

import (
	"fmt"
	"log"

	"github.com/voxfs-go/voxfs/backend/memory"
	"github.com/voxfs-go/voxfs/clock"
	"github.com/voxfs-go/voxfs/engine"
)

func check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// Format a 1MB in-memory image, create a file, tag it, and read it
// back by tag query.
func Example() {
	store := memory.New(1024 * 1024)
	d, err := engine.Mkfs(store, clock.System{}, engine.DefaultBlockSize)
	check(err)

	n, err := d.CreateNewFile("notes.txt", engine.INodeFlags{Valid: true, Read: true, Write: true}, []byte("hello voxfs"))
	check(err)

	work, err := d.CreateNewTag("work", engine.TagFlags{Read: true, Write: true})
	check(err)
	check(d.ApplyTag(work.Index, n.Index))

	members, err := d.ListNodesWithTag(work.Index)
	check(err)

	contents, err := d.ReadFile(members[0].Index)
	check(err)

	fmt.Println(string(contents))
	// Output: hello voxfs
}
