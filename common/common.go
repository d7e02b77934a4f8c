package common

import (
	"github.com/tchajed/goose/machine/disk"
)

// Image geometry. The image is a fixed 1 MB: 256 blocks of 4096 bytes.
// Block 0 holds the bitmaps, block 1 the inode table, blocks 2..255 are
// data.
const (
	NBLOCKS uint64 = 256
	IMAGESZ uint64 = NBLOCKS * disk.BlockSize
	NINODES uint64 = 128

	BITMAPBLK      uint64 = 0
	BLOCKBITMAPSZ  uint64 = NBLOCKS / 8
	INODEBITMAPOFF uint64 = BLOCKBITMAPSZ
	INODEBITMAPSZ  uint64 = NINODES / 8

	INODEBLK uint64 = 1
	INODESZ  uint64 = 32 // on-disk size

	// First block the allocator may hand out; 0 and 1 are reserved.
	DATASTART uint64 = 2
)

// Block numbers on the image are 4 bytes, so one indirect block maps
// 1024 file blocks on top of the single direct block.
const (
	BNUMSZ    uint64 = 4
	NINDIRECT uint64 = disk.BlockSize / BNUMSZ
	MAXBLOCKS uint64 = 1 + NINDIRECT
)

// Directory entries are 64 bytes: a NUL-terminated name of up to 47
// characters, a 4-byte inode number, and a zeroed reserved tail.
const (
	DIRENTSZ   uint64 = 64
	NAMESZ     uint64 = 48
	MAXNAMELEN int    = 47
	DIRENTBLK  uint64 = disk.BlockSize / DIRENTSZ
)

// Mode bits. TYPEMASK covers the file-type bits; MODEDIR marks a
// directory.
const (
	TYPEMASK uint32 = 0o170000
	MODEDIR  uint32 = 0o040000
)

type Inum = uint32
type Bnum = uint32

const (
	ROOTINUM Inum = 0
	NULLBNUM Bnum = 0
)
