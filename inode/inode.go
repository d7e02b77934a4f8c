// Package inode manages the table of 128 inode records in block 1 and
// the direct + single-indirect block pointers hanging off each record.
package inode

import (
	"time"

	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"
	"golang.org/x/sys/unix"

	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/super"
	"github.com/nufs-fs/nufs/util"
)

// Inode is the decoded form of one on-disk record. Callers mutate a
// copy and persist it with WriteInode.
type Inode struct {
	Refs     uint32      // hard-link count; the bitmap bit is set iff Refs >= 1
	Mode     uint32      // type and permission bits
	Size     uint32      // bytes
	Block    common.Bnum // direct data block, NULLBNUM = none
	Indirect common.Bnum // single-indirect block, NULLBNUM = none
	Atime    uint32
	Mtime    uint32
	Uid      uint16
	Gid      uint16
}

func (ip *Inode) encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt32(ip.Refs)
	enc.PutInt32(ip.Mode)
	enc.PutInt32(ip.Size)
	enc.PutInt32(uint32(ip.Block))
	enc.PutInt32(uint32(ip.Indirect))
	enc.PutInt32(ip.Atime)
	enc.PutInt32(ip.Mtime)
	// uid and gid are 16 bits each, sharing the final word
	enc.PutInt32(uint32(ip.Gid)<<16 | uint32(ip.Uid))
	return enc.Finish()
}

func decode(b []byte) *Inode {
	dec := marshal.NewDec(b)
	ip := &Inode{}
	ip.Refs = dec.GetInt32()
	ip.Mode = dec.GetInt32()
	ip.Size = dec.GetInt32()
	ip.Block = common.Bnum(dec.GetInt32())
	ip.Indirect = common.Bnum(dec.GetInt32())
	ip.Atime = dec.GetInt32()
	ip.Mtime = dec.GetInt32()
	owner := dec.GetInt32()
	ip.Uid = uint16(owner)
	ip.Gid = uint16(owner >> 16)
	return ip
}

// GetInode returns a decoded copy of record inum, or nil when inum is
// out of range.
func GetInode(fsys *super.FsSuper, inum common.Inum) *Inode {
	if !super.ValidInum(inum) {
		return nil
	}
	return decode(fsys.InodeBytes(inum))
}

// WriteInode persists ip into record inum.
func WriteInode(fsys *super.FsSuper, inum common.Inum, ip *Inode) {
	copy(fsys.InodeBytes(inum), ip.encode())
}

// IsDir reports whether the mode carries the directory type bit.
func (ip *Inode) IsDir() bool {
	return ip.Mode&common.MODEDIR != 0
}

// NBlocks is the number of data blocks a size-byte file occupies.
func NBlocks(size uint32) uint64 {
	return util.RoundUp(uint64(size), disk.BlockSize)
}

// Now is wall-clock seconds in timestamp width.
func Now() uint32 {
	return uint32(time.Now().Unix())
}

// AllocInode claims the lowest free inode, initializes it (one
// reference, caller's identity, current times, zero mode), and returns
// its number. ok is false when the table is full. Inode 0 is the root
// and is never handed out.
func AllocInode(fsys *super.FsSuper) (common.Inum, bool) {
	n, ok := fsys.Ialloc.AllocNum()
	if !ok {
		return 0, false
	}
	now := Now()
	ip := &Inode{
		Refs:  1,
		Atime: now,
		Mtime: now,
		Uid:   uint16(unix.Getuid()),
		Gid:   uint16(unix.Getgid()),
	}
	inum := common.Inum(n)
	WriteInode(fsys, inum, ip)
	util.DPrintf(1, "AllocInode -> %d\n", inum)
	return inum, true
}

// FreeInode releases inum's data and indirect blocks, zeroes the
// record, and clears its bitmap bit.
func FreeInode(fsys *super.FsSuper, inum common.Inum) {
	ip := GetInode(fsys, inum)
	if ip == nil {
		return
	}
	util.DPrintf(1, "FreeInode(%d)\n", inum)
	if ip.Block != common.NULLBNUM {
		fsys.FreeBlock(ip.Block)
	}
	if ip.Indirect != common.NULLBNUM {
		nblks := NBlocks(ip.Size)
		for slot := uint64(0); slot+1 < nblks && slot < common.NINDIRECT; slot++ {
			bn := indirectGet(fsys, ip.Indirect, slot)
			if bn != common.NULLBNUM {
				fsys.FreeBlock(bn)
			}
		}
		fsys.FreeBlock(ip.Indirect)
	}
	WriteInode(fsys, inum, &Inode{})
	fsys.Ialloc.FreeNum(uint64(inum))
}

// indirectGet reads slot's block number out of indirect block ind.
func indirectGet(fsys *super.FsSuper, ind common.Bnum, slot uint64) common.Bnum {
	blk := fsys.Img.Block(uint64(ind))
	off := slot * common.BNUMSZ
	dec := marshal.NewDec(blk[off : off+common.BNUMSZ])
	return common.Bnum(dec.GetInt32())
}

func indirectPut(fsys *super.FsSuper, ind common.Bnum, slot uint64, bn common.Bnum) {
	enc := marshal.NewEnc(common.BNUMSZ)
	enc.PutInt32(uint32(bn))
	blk := fsys.Img.Block(uint64(ind))
	copy(blk[slot*common.BNUMSZ:(slot+1)*common.BNUMSZ], enc.Finish())
}

// Bnum translates logical file block fblk to its home on the image:
// block 0 is the direct pointer, block k >= 1 lives in slot k-1 of the
// indirect block. Returns NULLBNUM for unallocated or out-of-range
// blocks.
func (ip *Inode) Bnum(fsys *super.FsSuper, fblk uint64) common.Bnum {
	if fblk == 0 {
		return ip.Block
	}
	if ip.Indirect == common.NULLBNUM || fblk >= common.MAXBLOCKS {
		return common.NULLBNUM
	}
	return indirectGet(fsys, ip.Indirect, fblk-1)
}

// Grow extends ip to newsize bytes, attaching zeroed blocks one at a
// time. On allocation failure the growth is rolled back: blocks placed
// by this call are freed again and size stays untouched. Size and
// mtime commit only on success.
func (ip *Inode) Grow(fsys *super.FsSuper, newsize uint32) bool {
	cur := NBlocks(ip.Size)
	target := NBlocks(newsize)
	if target > common.MAXBLOCKS {
		return false
	}
	util.DPrintf(2, "Grow: %d -> %d blocks\n", cur, target)
	for i := cur; i < target; i++ {
		bn, ok := fsys.AllocBlock()
		if !ok {
			ip.shrinkBlocks(fsys, i, cur)
			return false
		}
		if i == 0 {
			ip.Block = bn
			continue
		}
		if ip.Indirect == common.NULLBNUM {
			ind, ok := fsys.AllocBlock()
			if !ok {
				fsys.FreeBlock(bn)
				ip.shrinkBlocks(fsys, i, cur)
				return false
			}
			ip.Indirect = ind
		}
		indirectPut(fsys, ip.Indirect, i-1, bn)
	}
	ip.Size = newsize
	ip.Mtime = Now()
	return true
}

// Shrink frees blocks above the target size, highest first. Bytes past
// newsize in the retained final block are not zeroed.
func (ip *Inode) Shrink(fsys *super.FsSuper, newsize uint32) {
	cur := NBlocks(ip.Size)
	target := NBlocks(newsize)
	util.DPrintf(2, "Shrink: %d -> %d blocks\n", cur, target)
	ip.shrinkBlocks(fsys, cur, target)
	ip.Size = newsize
	ip.Mtime = Now()
}

// shrinkBlocks frees data blocks down from cur to target, clearing
// each freed indirect slot, and drops the indirect block once one data
// block or none remains.
func (ip *Inode) shrinkBlocks(fsys *super.FsSuper, cur uint64, target uint64) {
	for i := cur; i > target; i-- {
		fblk := i - 1
		if fblk == 0 {
			if ip.Block != common.NULLBNUM {
				fsys.FreeBlock(ip.Block)
				ip.Block = common.NULLBNUM
			}
			continue
		}
		if ip.Indirect == common.NULLBNUM {
			continue
		}
		bn := indirectGet(fsys, ip.Indirect, fblk-1)
		if bn != common.NULLBNUM {
			fsys.FreeBlock(bn)
			indirectPut(fsys, ip.Indirect, fblk-1, common.NULLBNUM)
		}
	}
	if target <= 1 && ip.Indirect != common.NULLBNUM {
		fsys.FreeBlock(ip.Indirect)
		ip.Indirect = common.NULLBNUM
	}
}
