// Package alloc allocates and frees numbers out of a bitmap view.
// The bitmap is authoritative: there is no free-list or hint cache to
// diverge from it, and AllocNum always returns the lowest free number.
package alloc

import (
	"github.com/nufs-fs/nufs/bitmap"
	"github.com/nufs-fs/nufs/util"
)

type Alloc struct {
	bm    bitmap.Bitmap
	start uint64
	len   uint64
}

// MkAlloc manages numbers [start, len) of bm. Numbers below start are
// reserved and never handed out.
func MkAlloc(bm bitmap.Bitmap, start uint64, len uint64) *Alloc {
	if start > len || len > bm.Len() {
		panic("MkAlloc")
	}
	a := &Alloc{
		bm:    bm,
		start: start,
		len:   len,
	}
	return a
}

// AllocNum marks the lowest free number used and returns it; ok is
// false when the pool is exhausted.
func (a *Alloc) AllocNum() (uint64, bool) {
	for n := a.start; n < a.len; n++ {
		if !a.bm.Get(n) {
			a.bm.Put(n, true)
			util.DPrintf(5, "AllocNum -> %d\n", n)
			return n, true
		}
	}
	return 0, false
}

// FreeNum clears number n. Freeing a reserved number is a bug.
func (a *Alloc) FreeNum(n uint64) {
	if n < a.start || n >= a.len {
		panic("FreeNum")
	}
	a.bm.Put(n, false)
	util.DPrintf(5, "FreeNum %d\n", n)
}

// MarkUsed reserves n unconditionally; init-time bookkeeping for slots
// with fixed owners.
func (a *Alloc) MarkUsed(n uint64) {
	if n >= a.len {
		panic("MarkUsed")
	}
	a.bm.Put(n, true)
}

// NumFree counts the allocatable numbers.
func (a *Alloc) NumFree() uint64 {
	var count uint64
	for n := a.start; n < a.len; n++ {
		if !a.bm.Get(n) {
			count++
		}
	}
	return count
}
