package fsck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/dir"
	"github.com/nufs-fs/nufs/image"
	"github.com/nufs-fs/nufs/inode"
	"github.com/nufs-fs/nufs/super"
)

func mkRoot() *super.FsSuper {
	fsys := super.MkFsSuper(image.NewMem())
	dir.InitRoot(fsys)
	return fsys
}

func TestCleanImage(t *testing.T) {
	assert.Empty(t, Check(mkRoot()))
}

func TestDetectsLeakedBlock(t *testing.T) {
	fsys := mkRoot()
	_, ok := fsys.AllocBlock()
	require.True(t, ok)
	errs := Check(fsys)
	assert.NotEmpty(t, errs, "an owned-by-nobody block must be flagged")
}

func TestDetectsRefsMismatch(t *testing.T) {
	fsys := mkRoot()
	inum, ok := inode.AllocInode(fsys)
	require.True(t, ok)
	ip := inode.GetInode(fsys, inum)
	ip.Refs = 0
	inode.WriteInode(fsys, inum, ip)
	assert.NotEmpty(t, Check(fsys))
}

func TestDetectsDoubleOwnership(t *testing.T) {
	fsys := mkRoot()
	root := inode.GetInode(fsys, common.ROOTINUM)

	inum, ok := inode.AllocInode(fsys)
	require.True(t, ok)
	ip := inode.GetInode(fsys, inum)
	ip.Mode = 0o100644
	ip.Size = 10
	ip.Block = root.Block
	inode.WriteInode(fsys, inum, ip)

	assert.NotEmpty(t, Check(fsys), "two inodes share the root's block")
}
