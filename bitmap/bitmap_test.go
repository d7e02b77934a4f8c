package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopCnt(t *testing.T) {
	assert.Equal(t, uint64(0), popCnt(0))
	assert.Equal(t, uint64(1), popCnt(1))
	assert.Equal(t, uint64(1), popCnt(2))
	assert.Equal(t, uint64(2), popCnt(3))
	assert.Equal(t, uint64(8), popCnt(255))
}

func TestGetPut(t *testing.T) {
	assert := assert.New(t)
	bm := Bitmap(make([]byte, 4))
	assert.Equal(uint64(32), bm.Len())

	assert.False(bm.Get(9))
	bm.Put(9, true)
	assert.True(bm.Get(9))
	assert.Equal(uint64(1), bm.Count())

	bm.Put(9, false)
	assert.False(bm.Get(9))
	assert.Equal(uint64(0), bm.Count())
}

func TestViewAliasing(t *testing.T) {
	raw := make([]byte, 2)
	bm := Bitmap(raw)
	bm.Put(3, true)
	assert.Equal(t, byte(1<<3), raw[0], "mutations must land in the backing bytes")
}
