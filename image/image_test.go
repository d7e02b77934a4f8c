package image

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tchajed/goose/machine/disk"

	"github.com/nufs-fs/nufs/common"
)

func TestMemImage(t *testing.T) {
	assert := assert.New(t)
	img := NewMem()
	assert.Equal(common.NBLOCKS, img.Size())

	blk := img.Block(2)
	assert.Equal(int(disk.BlockSize), len(blk))
	blk[0] = 0x42
	assert.Equal(byte(0x42), img.Read(2)[0], "Block views alias the image")

	img.Write(3, make(disk.Block, disk.BlockSize))
	assert.NoError(img.Barrier())
	assert.NoError(img.Close())
}

func TestFileImagePersists(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "test.img")

	img, err := New(path)
	require.NoError(err)
	copy(img.Block(7), "hello image")
	require.NoError(img.Barrier())
	require.NoError(img.Close())

	img, err = New(path)
	require.NoError(err)
	assert.Equal(t, []byte("hello image"), []byte(img.Block(7))[:11])
	require.NoError(img.Close())
}

func TestBlockOutOfRange(t *testing.T) {
	img := NewMem()
	assert.Panics(t, func() { img.Block(common.NBLOCKS) })
}
