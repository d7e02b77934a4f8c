// Package fsck audits a mounted image against the structural
// invariants the rest of the tree relies on: bitmap/refcount
// agreement, reserved bits, unique block ownership, and size versus
// block-count consistency.
package fsck

import (
	"fmt"

	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/inode"
	"github.com/nufs-fs/nufs/super"
)

// Check walks the bitmaps and the inode table and returns one error
// per violation found; a clean image yields none.
func Check(fsys *super.FsSuper) []error {
	var errs []error
	report := func(format string, a ...interface{}) {
		errs = append(errs, fmt.Errorf(format, a...))
	}

	bbm := fsys.BlockBitmap()
	ibm := fsys.InodeBitmap()
	if !bbm.Get(common.BITMAPBLK) || !bbm.Get(common.INODEBLK) {
		report("reserved block bits 0 and 1 must stay set")
	}

	owner := map[common.Bnum]common.Inum{}
	claim := func(inum common.Inum, bn common.Bnum) {
		if uint64(bn) < common.DATASTART || uint64(bn) >= common.NBLOCKS {
			report("inode %d references reserved or out-of-range block %d", inum, bn)
			return
		}
		if !bbm.Get(uint64(bn)) {
			report("inode %d references free block %d", inum, bn)
		}
		if prev, ok := owner[bn]; ok {
			report("block %d owned by both inode %d and inode %d", bn, prev, inum)
			return
		}
		owner[bn] = inum
	}

	for i := uint64(0); i < common.NINODES; i++ {
		inum := common.Inum(i)
		ip := inode.GetInode(fsys, inum)
		live := ibm.Get(i)
		if live != (ip.Refs >= 1) {
			report("inode %d: bitmap bit %v but refs %d", inum, live, ip.Refs)
		}
		if !live {
			if ip.Block != common.NULLBNUM || ip.Indirect != common.NULLBNUM {
				report("free inode %d still holds blocks", inum)
			}
			continue
		}

		nblks := inode.NBlocks(ip.Size)
		if ip.Size == 0 && (ip.Block != common.NULLBNUM || ip.Indirect != common.NULLBNUM) {
			report("inode %d: empty but holds blocks", inum)
		}
		if ip.Size > 0 && ip.Block == common.NULLBNUM {
			report("inode %d: %d bytes but no direct block", inum, ip.Size)
		}
		if nblks <= 1 && ip.Indirect != common.NULLBNUM {
			report("inode %d: indirect block on a %d-block file", inum, nblks)
		}
		if nblks > 1 && ip.Indirect == common.NULLBNUM {
			report("inode %d: %d blocks but no indirect block", inum, nblks)
		}

		var count uint64
		if ip.Block != common.NULLBNUM {
			claim(inum, ip.Block)
			count++
		}
		if ip.Indirect != common.NULLBNUM {
			claim(inum, ip.Indirect)
			for fblk := uint64(1); fblk < common.MAXBLOCKS; fblk++ {
				bn := ip.Bnum(fsys, fblk)
				if bn == common.NULLBNUM {
					continue
				}
				if fblk >= nblks {
					report("inode %d: indirect entry %d set past size", inum, fblk-1)
				}
				claim(inum, bn)
				count++
			}
		}
		if count != nblks {
			report("inode %d: %d blocks attached for %d bytes", inum, count, ip.Size)
		}
	}

	for bn := common.DATASTART; bn < common.NBLOCKS; bn++ {
		if bbm.Get(bn) {
			if _, ok := owner[common.Bnum(bn)]; !ok {
				report("block %d marked used but unowned", bn)
			}
		}
	}

	if !ibm.Get(uint64(common.ROOTINUM)) {
		report("root inode is not allocated")
	} else if root := inode.GetInode(fsys, common.ROOTINUM); !root.IsDir() {
		report("root inode is not a directory")
	}
	return errs
}
