// Package image owns the fixed-size backing image: 1 MB divided into
// 256 blocks of 4096 bytes, mapped into the address space so block
// views write straight through to the file.
package image

import (
	"github.com/tchajed/goose/machine/disk"
)

// Image provides block-indexed access to the backing region.
type Image interface {
	// Block returns the live 4096-byte region of block a. Writes
	// through the slice hit the image directly.
	//
	// Expects a < common.NBLOCKS.
	Block(a uint64) disk.Block

	// Read returns a copy of block a.
	Read(a uint64) disk.Block

	// Write replaces block a.
	Write(a uint64, v disk.Block)

	// Size reports how big the image is, in blocks.
	Size() uint64

	// Barrier flushes the mapped region to the backing file, when
	// there is one. The core never calls it; durability is
	// best-effort by contract.
	Barrier() error

	// Close releases the mapping and makes the image unusable.
	Close() error
}
