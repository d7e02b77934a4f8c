package image

import (
	"fmt"

	"github.com/tchajed/goose/machine/disk"
	"golang.org/x/sys/unix"

	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/util"
)

var _ Image = (*fileImage)(nil)

type fileImage struct {
	fd   int
	data []byte
}

// New opens or creates the backing file at path, extends it to exactly
// one image, and maps it shared and writable.
func New(path string) (Image, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, err
	}
	err = unix.Ftruncate(fd, int64(common.IMAGESZ))
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	data, err := unix.Mmap(fd, 0, int(common.IMAGESZ),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	util.DPrintf(1, "image: mapped %s, %d blocks\n", path, common.NBLOCKS)
	return &fileImage{fd: fd, data: data}, nil
}

func blockRange(data []byte, a uint64) disk.Block {
	if a >= common.NBLOCKS {
		panic(fmt.Errorf("out-of-bounds block %v", a))
	}
	off := a * disk.BlockSize
	return disk.Block(data[off : off+disk.BlockSize])
}

func (img *fileImage) Block(a uint64) disk.Block {
	return blockRange(img.data, a)
}

func (img *fileImage) Read(a uint64) disk.Block {
	return util.CloneByteSlice(img.Block(a))
}

func (img *fileImage) Write(a uint64, v disk.Block) {
	if uint64(len(v)) != disk.BlockSize {
		panic(fmt.Errorf("v is not block-sized (%d bytes)", len(v)))
	}
	copy(img.Block(a), v)
}

func (img *fileImage) Size() uint64 {
	return common.NBLOCKS
}

func (img *fileImage) Barrier() error {
	return unix.Msync(img.data, unix.MS_SYNC)
}

func (img *fileImage) Close() error {
	err := unix.Munmap(img.data)
	if err != nil {
		return err
	}
	img.data = nil
	return unix.Close(img.fd)
}

var _ Image = (*memImage)(nil)

// memImage backs the same surface with process memory; tests mount it.
type memImage struct {
	data []byte
}

func NewMem() Image {
	return &memImage{data: make([]byte, common.IMAGESZ)}
}

func (img *memImage) Block(a uint64) disk.Block {
	return blockRange(img.data, a)
}

func (img *memImage) Read(a uint64) disk.Block {
	return util.CloneByteSlice(img.Block(a))
}

func (img *memImage) Write(a uint64, v disk.Block) {
	if uint64(len(v)) != disk.BlockSize {
		panic(fmt.Errorf("v is not block-sized (%d bytes)", len(v)))
	}
	copy(img.Block(a), v)
}

func (img *memImage) Size() uint64 {
	return common.NBLOCKS
}

func (img *memImage) Barrier() error { return nil }

func (img *memImage) Close() error {
	img.data = nil
	return nil
}
