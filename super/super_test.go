package super

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/image"
)

func TestReservedBits(t *testing.T) {
	fsys := MkFsSuper(image.NewMem())
	assert.True(t, fsys.BlockBitmap().Get(common.BITMAPBLK))
	assert.True(t, fsys.BlockBitmap().Get(common.INODEBLK))
	assert.Equal(t, common.NBLOCKS-2, fsys.Balloc.NumFree())
	assert.Equal(t, common.NINODES-1, fsys.Ialloc.NumFree(), "inode 0 is outside the pool")
}

func TestAllocBlockZeroes(t *testing.T) {
	assert := assert.New(t)
	fsys := MkFsSuper(image.NewMem())

	bn, ok := fsys.AllocBlock()
	require.True(t, ok)
	assert.Equal(common.Bnum(common.DATASTART), bn, "lowest data block first")
	assert.True(fsys.BlockBitmap().Get(uint64(bn)))

	// dirty the block, free it, and take it again
	copy(fsys.Img.Block(uint64(bn)), "garbage")
	fsys.FreeBlock(bn)
	assert.False(fsys.BlockBitmap().Get(uint64(bn)))

	bn2, ok := fsys.AllocBlock()
	require.True(t, ok)
	assert.Equal(bn, bn2)
	assert.Equal(make([]byte, 7), []byte(fsys.Img.Block(uint64(bn2)))[:7],
		"blocks are zeroed on allocation")
}

func TestInodeBytes(t *testing.T) {
	fsys := MkFsSuper(image.NewMem())
	b := fsys.InodeBytes(3)
	assert.Equal(t, int(common.INODESZ), len(b))
	b[0] = 0xaa
	assert.Equal(t, byte(0xaa), fsys.Img.Block(common.INODEBLK)[3*common.INODESZ],
		"records alias the table block")
	assert.Panics(t, func() { fsys.InodeBytes(common.Inum(common.NINODES)) })
}
