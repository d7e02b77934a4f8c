// Package super ties the image layout together: where the bitmaps and
// the inode table live, and the block pool drawn from them.
package super

import (
	"github.com/nufs-fs/nufs/alloc"
	"github.com/nufs-fs/nufs/bitmap"
	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/image"
	"github.com/nufs-fs/nufs/util"
)

type FsSuper struct {
	Img    image.Image
	Balloc *alloc.Alloc // data blocks, [DATASTART, NBLOCKS)
	Ialloc *alloc.Alloc // inodes, [1, NINODES); 0 is the root
}

// MkFsSuper mounts an image: it builds the bitmap views and pools and
// reserves the bitmap and inode-table blocks. Existing contents are
// left untouched; root creation is the directory layer's job.
func MkFsSuper(img image.Image) *FsSuper {
	fsys := &FsSuper{
		Img:    img,
		Balloc: alloc.MkAlloc(blockBitmap(img), common.DATASTART, common.NBLOCKS),
		Ialloc: alloc.MkAlloc(inodeBitmap(img), 1, common.NINODES),
	}
	fsys.BlockBitmap().Put(common.BITMAPBLK, true)
	fsys.BlockBitmap().Put(common.INODEBLK, true)
	util.DPrintf(1, "MkFsSuper: %d free blocks, %d free inodes\n",
		fsys.Balloc.NumFree(), fsys.Ialloc.NumFree())
	return fsys
}

func blockBitmap(img image.Image) bitmap.Bitmap {
	blk := img.Block(common.BITMAPBLK)
	return bitmap.Bitmap(blk[:common.BLOCKBITMAPSZ])
}

func inodeBitmap(img image.Image) bitmap.Bitmap {
	blk := img.Block(common.BITMAPBLK)
	return bitmap.Bitmap(blk[common.INODEBITMAPOFF : common.INODEBITMAPOFF+common.INODEBITMAPSZ])
}

// BlockBitmap is the live 256-bit block bitmap inside block 0.
func (fsys *FsSuper) BlockBitmap() bitmap.Bitmap {
	return blockBitmap(fsys.Img)
}

// InodeBitmap is the live 128-bit inode bitmap inside block 0.
func (fsys *FsSuper) InodeBitmap() bitmap.Bitmap {
	return inodeBitmap(fsys.Img)
}

// AllocBlock returns the lowest free data block, zeroed and marked
// used; ok is false when the image is full.
func (fsys *FsSuper) AllocBlock() (common.Bnum, bool) {
	n, ok := fsys.Balloc.AllocNum()
	if !ok {
		return common.NULLBNUM, false
	}
	blk := fsys.Img.Block(n)
	for i := range blk {
		blk[i] = 0
	}
	return common.Bnum(n), true
}

// FreeBlock clears bn's bitmap bit. The block's bytes are left as-is;
// AllocBlock re-zeroes on reuse.
func (fsys *FsSuper) FreeBlock(bn common.Bnum) {
	fsys.Balloc.FreeNum(uint64(bn))
}

// ValidInum reports whether inum indexes the inode table.
func ValidInum(inum common.Inum) bool {
	return uint64(inum) < common.NINODES
}

// InodeBytes is the live 32-byte record of inum inside the table
// block.
func (fsys *FsSuper) InodeBytes(inum common.Inum) []byte {
	if !ValidInum(inum) {
		panic("InodeBytes")
	}
	blk := fsys.Img.Block(common.INODEBLK)
	off := uint64(inum) * common.INODESZ
	return blk[off : off+common.INODESZ]
}
