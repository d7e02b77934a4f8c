// Package dir interprets directory inodes: packed arrays of 64-byte
// entries mapping names to inode numbers, plus the tree walk that
// resolves absolute paths (path.go).
package dir

import (
	"bytes"

	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"
	"golang.org/x/sys/unix"

	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/inode"
	"github.com/nufs-fs/nufs/super"
	"github.com/nufs-fs/nufs/util"
)

// Dirent is the decoded form of one directory slot. A slot is empty
// iff Inum == 0 or the name starts with NUL.
type Dirent struct {
	Name string
	Inum common.Inum
}

func (de Dirent) empty() bool {
	return de.Inum == 0 || de.Name == ""
}

// entBytes is the live 64-byte region of slot i, or nil when the slot
// lies in an unallocated block.
func entBytes(fsys *super.FsSuper, dip *inode.Inode, i uint64) []byte {
	bn := dip.Bnum(fsys, i/common.DIRENTBLK)
	if bn == common.NULLBNUM {
		return nil
	}
	blk := fsys.Img.Block(uint64(bn))
	off := (i % common.DIRENTBLK) * common.DIRENTSZ
	return blk[off : off+common.DIRENTSZ]
}

func readEnt(b []byte) Dirent {
	name := b[:common.NAMESZ]
	n := bytes.IndexByte(name, 0)
	if n < 0 {
		n = int(common.NAMESZ)
	}
	dec := marshal.NewDec(b[common.NAMESZ : common.NAMESZ+common.BNUMSZ])
	return Dirent{
		Name: string(name[:n]),
		Inum: common.Inum(dec.GetInt32()),
	}
}

// writeEnt fills slot bytes b with name -> inum, NUL-padding the name
// and zeroing the reserved tail.
func writeEnt(b []byte, name string, inum common.Inum) {
	for i := range b {
		b[i] = 0
	}
	copy(b[:common.NAMESZ-1], name)
	enc := marshal.NewEnc(common.BNUMSZ)
	enc.PutInt32(uint32(inum))
	copy(b[common.NAMESZ:common.NAMESZ+common.BNUMSZ], enc.Finish())
}

// MaxEntries is the number of slots dip's blocks hold.
func MaxEntries(dip *inode.Inode) uint64 {
	return inode.NBlocks(dip.Size) * common.DIRENTBLK
}

// Lookup scans dip for name and returns the bound inode number.
func Lookup(fsys *super.FsSuper, dip *inode.Inode, name string) (common.Inum, bool) {
	if name == "" {
		return 0, false
	}
	max := MaxEntries(dip)
	for i := uint64(0); i < max; i++ {
		b := entBytes(fsys, dip, i)
		if b == nil {
			break
		}
		de := readEnt(b)
		if !de.empty() && de.Name == name {
			return de.Inum, true
		}
	}
	return 0, false
}

// Put binds name to inum in the directory numbered dnum, reusing the
// first empty slot or growing the directory by one block when every
// slot is taken.
func Put(fsys *super.FsSuper, dnum common.Inum, name string, inum common.Inum) error {
	if name == "" {
		return common.ErrInvalid
	}
	if len(name) > common.MAXNAMELEN {
		return common.ErrNameTooLong
	}
	dip := inode.GetInode(fsys, dnum)
	max := MaxEntries(dip)
	for i := uint64(0); i < max; i++ {
		b := entBytes(fsys, dip, i)
		if b == nil {
			break
		}
		if readEnt(b).empty() {
			writeEnt(b, name, inum)
			util.DPrintf(2, "dir.Put: %s -> %d at slot %d\n", name, inum, i)
			return nil
		}
	}
	if !dip.Grow(fsys, dip.Size+uint32(disk.BlockSize)) {
		return common.ErrNoSpace
	}
	inode.WriteInode(fsys, dnum, dip)
	writeEnt(entBytes(fsys, dip, max), name, inum)
	util.DPrintf(2, "dir.Put: %s -> %d at slot %d, grew dir\n", name, inum, max)
	return nil
}

// Delete zeroes the slot bound to name. The directory never shrinks.
func Delete(fsys *super.FsSuper, dip *inode.Inode, name string) error {
	if name == "" {
		return common.ErrNotFound
	}
	max := MaxEntries(dip)
	for i := uint64(0); i < max; i++ {
		b := entBytes(fsys, dip, i)
		if b == nil {
			break
		}
		de := readEnt(b)
		if !de.empty() && de.Name == name {
			for j := range b {
				b[j] = 0
			}
			util.DPrintf(2, "dir.Delete: %s, was slot %d -> %d\n", name, i, de.Inum)
			return nil
		}
	}
	return common.ErrNotFound
}

// List collects the non-empty names in slot order.
func List(fsys *super.FsSuper, dip *inode.Inode) []string {
	var names []string
	max := MaxEntries(dip)
	for i := uint64(0); i < max; i++ {
		b := entBytes(fsys, dip, i)
		if b == nil {
			break
		}
		de := readEnt(b)
		if !de.empty() {
			names = append(names, de.Name)
		}
	}
	return names
}

// InitRoot creates the root directory at inode 0 on a fresh image and
// leaves an existing one alone. The root is reserved directly so the
// allocator can never hand inode 0 to an ordinary caller.
func InitRoot(fsys *super.FsSuper) {
	if fsys.InodeBitmap().Get(uint64(common.ROOTINUM)) {
		util.DPrintf(1, "InitRoot: root already exists\n")
		return
	}
	fsys.Ialloc.MarkUsed(uint64(common.ROOTINUM))
	now := inode.Now()
	root := &inode.Inode{
		Refs:  1,
		Mode:  common.MODEDIR | 0o755,
		Atime: now,
		Mtime: now,
		Uid:   uint16(unix.Getuid()),
		Gid:   uint16(unix.Getgid()),
	}
	if !root.Grow(fsys, uint32(disk.BlockSize)) {
		panic("InitRoot: no block for root directory")
	}
	inode.WriteInode(fsys, common.ROOTINUM, root)
	util.DPrintf(1, "InitRoot: created root directory\n")
}
