// Package storage is the path-indexed operation surface over one
// mounted image: the verbs a userspace-filesystem bridge consumes.
// All paths are absolute. Every operation runs to completion in its
// caller; the bridge is expected to serialize upcalls.
package storage

import (
	"github.com/tchajed/goose/machine/disk"

	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/dir"
	"github.com/nufs-fs/nufs/image"
	"github.com/nufs-fs/nufs/inode"
	"github.com/nufs-fs/nufs/super"
	"github.com/nufs-fs/nufs/util"
)

// Attr is the metadata record Stat fills.
type Attr struct {
	Inum    common.Inum
	Mode    uint32
	Size    uint32
	Nlink   uint32
	Uid     uint16
	Gid     uint16
	Atime   uint32
	Mtime   uint32
	Blocks  uint32 // 512-byte units
	Blksize uint32
}

// Storage is one mounted image.
type Storage struct {
	fsys *super.FsSuper
}

// Init opens or creates the image file at path and mounts it,
// formatting a fresh image on first use.
func Init(path string) (*Storage, error) {
	img, err := image.New(path)
	if err != nil {
		return nil, err
	}
	util.DPrintf(1, "storage.Init(%s)\n", path)
	return mount(img), nil
}

// InitMem mounts a fresh in-memory image.
func InitMem() *Storage {
	return mount(image.NewMem())
}

func mount(img image.Image) *Storage {
	fsys := super.MkFsSuper(img)
	dir.InitRoot(fsys)
	return &Storage{fsys: fsys}
}

// Fs exposes the mounted layout for the checker and tools.
func (st *Storage) Fs() *super.FsSuper {
	return st.fsys
}

// Sync flushes the image to its backing file.
func (st *Storage) Sync() error {
	return st.fsys.Img.Barrier()
}

// Close releases the image mapping.
func (st *Storage) Close() error {
	return st.fsys.Img.Close()
}

func (st *Storage) lookup(path string) (common.Inum, *inode.Inode, error) {
	inum, ok := dir.TreeLookup(st.fsys, path)
	if !ok {
		return 0, nil, common.ErrNotFound
	}
	ip := inode.GetInode(st.fsys, inum)
	if ip == nil {
		return 0, nil, common.ErrNotFound
	}
	return inum, ip, nil
}

// Stat fills an Attr for path.
func (st *Storage) Stat(path string) (*Attr, error) {
	inum, ip, err := st.lookup(path)
	if err != nil {
		return nil, err
	}
	return &Attr{
		Inum:    inum,
		Mode:    ip.Mode,
		Size:    ip.Size,
		Nlink:   ip.Refs,
		Uid:     ip.Uid,
		Gid:     ip.Gid,
		Atime:   ip.Atime,
		Mtime:   ip.Mtime,
		Blocks:  (ip.Size + 511) / 512,
		Blksize: uint32(disk.BlockSize),
	}, nil
}

// Read copies up to len(buf) bytes starting at off into buf,
// short-reading at EOF; reads at or past EOF return 0. Updates atime.
func (st *Storage) Read(path string, buf []byte, off uint64) (int, error) {
	inum, ip, err := st.lookup(path)
	if err != nil {
		return 0, err
	}
	size := uint64(ip.Size)
	if off >= size {
		return 0, nil
	}
	n := util.Min(uint64(len(buf)), size-off)
	var read uint64
	for read < n {
		pos := off + read
		bn := ip.Bnum(st.fsys, pos/disk.BlockSize)
		if bn == common.NULLBNUM {
			break
		}
		blk := st.fsys.Img.Block(uint64(bn))
		read += uint64(copy(buf[read:n], blk[pos%disk.BlockSize:]))
	}
	ip.Atime = inode.Now()
	inode.WriteInode(st.fsys, inum, ip)
	util.DPrintf(2, "Read(%s, %d@%d) -> %d\n", path, len(buf), off, read)
	return int(read), nil
}

// Write stores data at off, growing the file first when the write
// extends it. A block-translation miss after a successful grow returns
// the short count written so far. Updates mtime.
func (st *Storage) Write(path string, data []byte, off uint64) (int, error) {
	if util.SumOverflows(off, uint64(len(data))) {
		return 0, common.ErrInvalid
	}
	inum, ip, err := st.lookup(path)
	if err != nil {
		return 0, err
	}
	end := off + uint64(len(data))
	if end > uint64(ip.Size) {
		if !ip.Grow(st.fsys, uint32(end)) {
			return 0, common.ErrNoSpace
		}
	}
	var written uint64
	n := uint64(len(data))
	for written < n {
		pos := off + written
		bn := ip.Bnum(st.fsys, pos/disk.BlockSize)
		if bn == common.NULLBNUM {
			break
		}
		blk := st.fsys.Img.Block(uint64(bn))
		written += uint64(copy(blk[pos%disk.BlockSize:], data[written:]))
	}
	ip.Mtime = inode.Now()
	inode.WriteInode(st.fsys, inum, ip)
	util.DPrintf(2, "Write(%s, %d@%d) -> %d\n", path, len(data), off, written)
	return int(written), nil
}

// Truncate grows or shrinks path to size bytes. Growth attaches zeroed
// blocks; bytes past the old size inside the old final block are not
// cleared, so data an earlier shrink left there reads back after growth.
func (st *Storage) Truncate(path string, size uint32) error {
	inum, ip, err := st.lookup(path)
	if err != nil {
		return err
	}
	switch {
	case size > ip.Size:
		if !ip.Grow(st.fsys, size) {
			return common.ErrNoSpace
		}
	case size < ip.Size:
		ip.Shrink(st.fsys, size)
	default:
		return nil
	}
	inode.WriteInode(st.fsys, inum, ip)
	return nil
}

// Mknod creates a file or directory at path with the given mode.
// Directories get their first entry block immediately.
func (st *Storage) Mknod(path string, mode uint32) error {
	if _, ok := dir.TreeLookup(st.fsys, path); ok {
		return common.ErrExists
	}
	pnum, ok := dir.TreeLookupParent(st.fsys, path)
	if !ok {
		return common.ErrNotFound
	}
	parent := inode.GetInode(st.fsys, pnum)
	if parent == nil || !parent.IsDir() {
		return common.ErrNotDir
	}
	inum, ok := inode.AllocInode(st.fsys)
	if !ok {
		return common.ErrNoSpace
	}
	ip := inode.GetInode(st.fsys, inum)
	ip.Mode = mode
	if ip.IsDir() {
		if !ip.Grow(st.fsys, uint32(disk.BlockSize)) {
			inode.FreeInode(st.fsys, inum)
			return common.ErrNoSpace
		}
	}
	inode.WriteInode(st.fsys, inum, ip)
	if err := dir.Put(st.fsys, pnum, dir.Basename(path), inum); err != nil {
		inode.FreeInode(st.fsys, inum)
		return err
	}
	util.DPrintf(1, "Mknod(%s, %o) -> %d\n", path, mode, inum)
	return nil
}

// Mkdir is Mknod with the directory type bit.
func (st *Storage) Mkdir(path string, mode uint32) error {
	return st.Mknod(path, mode|common.MODEDIR)
}

// Unlink removes path's entry from its parent and releases the inode
// when the last link goes away.
func (st *Storage) Unlink(path string) error {
	inum, _, err := st.lookup(path)
	if err != nil {
		return err
	}
	pnum, ok := dir.TreeLookupParent(st.fsys, path)
	if !ok {
		return common.ErrNotFound
	}
	parent := inode.GetInode(st.fsys, pnum)
	if err := dir.Delete(st.fsys, parent, dir.Basename(path)); err != nil {
		return err
	}
	ip := inode.GetInode(st.fsys, inum)
	ip.Refs--
	if ip.Refs == 0 {
		inode.FreeInode(st.fsys, inum)
	} else {
		inode.WriteInode(st.fsys, inum, ip)
	}
	util.DPrintf(1, "Unlink(%s)\n", path)
	return nil
}

// Rmdir removes an empty directory; non-empty ones are refused.
func (st *Storage) Rmdir(path string) error {
	_, ip, err := st.lookup(path)
	if err != nil {
		return err
	}
	if !ip.IsDir() {
		return common.ErrNotDir
	}
	if len(dir.List(st.fsys, ip)) != 0 {
		return common.ErrNotEmpty
	}
	return st.Unlink(path)
}

// Link makes to a second name for from's inode.
func (st *Storage) Link(from string, to string) error {
	fnum, ok := dir.TreeLookup(st.fsys, from)
	if !ok {
		return common.ErrNotFound
	}
	if _, ok := dir.TreeLookup(st.fsys, to); ok {
		return common.ErrExists
	}
	pnum, ok := dir.TreeLookupParent(st.fsys, to)
	if !ok {
		return common.ErrNotFound
	}
	parent := inode.GetInode(st.fsys, pnum)
	if parent == nil || !parent.IsDir() {
		return common.ErrNotDir
	}
	if err := dir.Put(st.fsys, pnum, dir.Basename(to), fnum); err != nil {
		return err
	}
	ip := inode.GetInode(st.fsys, fnum)
	ip.Refs++
	inode.WriteInode(st.fsys, fnum, ip)
	util.DPrintf(1, "Link(%s => %s)\n", from, to)
	return nil
}

// Rename moves from to to, replacing to when it already exists. The
// steps (unlink the target, add the new entry, drop the old entry) are
// not atomic across a crash. Both parents' mtime advance.
func (st *Storage) Rename(from string, to string) error {
	fnum, ok := dir.TreeLookup(st.fsys, from)
	if !ok {
		return common.ErrNotFound
	}
	if _, ok := dir.TreeLookup(st.fsys, to); ok {
		if err := st.Unlink(to); err != nil {
			return err
		}
	}
	fpnum, ok := dir.TreeLookupParent(st.fsys, from)
	if !ok {
		return common.ErrNotFound
	}
	tpnum, ok := dir.TreeLookupParent(st.fsys, to)
	if !ok {
		return common.ErrNotFound
	}
	if err := dir.Put(st.fsys, tpnum, dir.Basename(to), fnum); err != nil {
		return err
	}
	fparent := inode.GetInode(st.fsys, fpnum)
	if err := dir.Delete(st.fsys, fparent, dir.Basename(from)); err != nil {
		return err
	}
	now := inode.Now()
	for _, pnum := range []common.Inum{fpnum, tpnum} {
		pip := inode.GetInode(st.fsys, pnum)
		pip.Mtime = now
		inode.WriteInode(st.fsys, pnum, pip)
	}
	util.DPrintf(1, "Rename(%s => %s)\n", from, to)
	return nil
}

// SetTime stores both timestamps.
func (st *Storage) SetTime(path string, atime uint32, mtime uint32) error {
	inum, ip, err := st.lookup(path)
	if err != nil {
		return err
	}
	ip.Atime = atime
	ip.Mtime = mtime
	inode.WriteInode(st.fsys, inum, ip)
	return nil
}

// Chmod replaces the permission bits, keeping the type bits.
func (st *Storage) Chmod(path string, mode uint32) error {
	inum, ip, err := st.lookup(path)
	if err != nil {
		return err
	}
	ip.Mode = (ip.Mode & common.TYPEMASK) | (mode &^ common.TYPEMASK)
	inode.WriteInode(st.fsys, inum, ip)
	return nil
}

// List returns the names in directory order; missing paths and
// non-directories list as empty.
func (st *Storage) List(path string) []string {
	_, ip, err := st.lookup(path)
	if err != nil || !ip.IsDir() {
		return nil
	}
	return dir.List(st.fsys, ip)
}
