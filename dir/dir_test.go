package dir

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tchajed/goose/machine/disk"

	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/image"
	"github.com/nufs-fs/nufs/inode"
	"github.com/nufs-fs/nufs/super"
)

func mkRoot() *super.FsSuper {
	fsys := super.MkFsSuper(image.NewMem())
	InitRoot(fsys)
	return fsys
}

func rootInode(fsys *super.FsSuper) *inode.Inode {
	return inode.GetInode(fsys, common.ROOTINUM)
}

func TestInitRoot(t *testing.T) {
	assert := assert.New(t)
	fsys := mkRoot()
	root := rootInode(fsys)
	assert.True(root.IsDir())
	assert.Equal(uint32(1), root.Refs)
	assert.Equal(uint32(disk.BlockSize), root.Size)
	assert.Empty(List(fsys, root))

	// remounting leaves an existing root alone
	root.Mtime = 42
	inode.WriteInode(fsys, common.ROOTINUM, root)
	InitRoot(fsys)
	assert.Equal(uint32(42), rootInode(fsys).Mtime)
}

func TestPutLookupDelete(t *testing.T) {
	assert := assert.New(t)
	fsys := mkRoot()

	assert.NoError(Put(fsys, common.ROOTINUM, "hello.txt", 3))
	inum, ok := Lookup(fsys, rootInode(fsys), "hello.txt")
	assert.True(ok)
	assert.Equal(common.Inum(3), inum)

	_, ok = Lookup(fsys, rootInode(fsys), "other.txt")
	assert.False(ok)

	assert.NoError(Delete(fsys, rootInode(fsys), "hello.txt"))
	_, ok = Lookup(fsys, rootInode(fsys), "hello.txt")
	assert.False(ok)
	assert.Equal(common.ErrNotFound, Delete(fsys, rootInode(fsys), "hello.txt"))
}

func TestSlotReuse(t *testing.T) {
	assert := assert.New(t)
	fsys := mkRoot()

	require.NoError(t, Put(fsys, common.ROOTINUM, "a", 3))
	require.NoError(t, Put(fsys, common.ROOTINUM, "b", 4))
	require.NoError(t, Delete(fsys, rootInode(fsys), "a"))
	require.NoError(t, Put(fsys, common.ROOTINUM, "c", 5))

	assert.Equal([]string{"c", "b"}, List(fsys, rootInode(fsys)),
		"a freed slot is reused before later ones")
}

func TestNameLength(t *testing.T) {
	assert := assert.New(t)
	fsys := mkRoot()

	ok47 := strings.Repeat("a", 47)
	long48 := strings.Repeat("a", 48)
	assert.NoError(Put(fsys, common.ROOTINUM, ok47, 3))
	assert.Equal(common.ErrNameTooLong, Put(fsys, common.ROOTINUM, long48, 4))
	assert.Equal(common.ErrInvalid, Put(fsys, common.ROOTINUM, "", 4))

	inum, ok := Lookup(fsys, rootInode(fsys), ok47)
	assert.True(ok)
	assert.Equal(common.Inum(3), inum)
}

func TestPutGrowsDirectory(t *testing.T) {
	assert := assert.New(t)
	fsys := mkRoot()

	for i := uint64(0); i < common.DIRENTBLK; i++ {
		require.NoError(t, Put(fsys, common.ROOTINUM, fmt.Sprintf("f%03d", i), common.Inum(i+1)))
	}
	assert.Equal(uint32(disk.BlockSize), rootInode(fsys).Size)

	assert.NoError(Put(fsys, common.ROOTINUM, "one-more", 99))
	root := rootInode(fsys)
	assert.Equal(2*uint32(disk.BlockSize), root.Size, "a full directory grows by one block")
	inum, ok := Lookup(fsys, root, "one-more")
	assert.True(ok)
	assert.Equal(common.Inum(99), inum)
	assert.Len(List(fsys, root), int(common.DIRENTBLK)+1)

	// delete never shrinks
	require.NoError(t, Delete(fsys, root, "one-more"))
	assert.Equal(2*uint32(disk.BlockSize), rootInode(fsys).Size)
}
