package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nufs-fs/nufs/bitmap"
)

func mkTestAlloc(max uint64) *Alloc {
	bm := bitmap.Bitmap(make([]byte, max/8))
	return MkAlloc(bm, 1, max)
}

func TestAlloc(t *testing.T) {
	assert := assert.New(t)
	max := uint64(32)
	a := mkTestAlloc(max)

	assert.Equal(max-1, a.NumFree(), "everything (but 0) should be initially free")

	n, ok := a.AllocNum()
	assert.True(ok)
	assert.NotEqual(uint64(0), n, "should not allocate 0")

	a.MarkUsed(n + 1)
	n2, ok := a.AllocNum()
	assert.True(ok)
	assert.NotEqual(n+1, n2, "should not allocate something marked used")

	assert.Equal(max-4, a.NumFree(), "should have used 4 items")

	a.FreeNum(n)
	a.FreeNum(n2)
	assert.Equal(max-2, a.NumFree(), "should have freed")
}

func TestAllocLowest(t *testing.T) {
	assert := assert.New(t)
	a := mkTestAlloc(16)

	n1, _ := a.AllocNum()
	n2, _ := a.AllocNum()
	assert.Equal(uint64(1), n1)
	assert.Equal(uint64(2), n2)

	a.FreeNum(n1)
	n3, _ := a.AllocNum()
	assert.Equal(n1, n3, "the lowest free number comes back first")
}

func TestAllocExhaustion(t *testing.T) {
	assert := assert.New(t)
	a := mkTestAlloc(8)
	for i := uint64(1); i < 8; i++ {
		n, ok := a.AllocNum()
		assert.True(ok)
		assert.Equal(i, n)
	}
	_, ok := a.AllocNum()
	assert.False(ok, "pool should be exhausted")
}
