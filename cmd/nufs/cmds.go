package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/fsck"
)

// mkfsCmd formats the image from scratch.
type mkfsCmd struct{}

func (*mkfsCmd) Name() string           { return "mkfs" }
func (*mkfsCmd) Synopsis() string       { return "create a fresh image" }
func (*mkfsCmd) Usage() string          { return "mkfs\n" }
func (*mkfsCmd) SetFlags(*flag.FlagSet) {}

func (*mkfsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := os.Remove(*imagePath); err != nil && !os.IsNotExist(err) {
		return fail(err, "remove old image %s", *imagePath)
	}
	st := mount()
	finish(st)
	logrus.Infof("formatted %s", *imagePath)
	return subcommands.ExitSuccess
}

type fsckCmd struct{}

func (*fsckCmd) Name() string           { return "fsck" }
func (*fsckCmd) Synopsis() string       { return "check image invariants" }
func (*fsckCmd) Usage() string          { return "fsck\n" }
func (*fsckCmd) SetFlags(*flag.FlagSet) {}

func (*fsckCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st := mount()
	defer finish(st)
	errs := fsck.Check(st.Fs())
	for _, err := range errs {
		logrus.Error(err)
	}
	if len(errs) != 0 {
		return subcommands.ExitFailure
	}
	logrus.Infof("%s: clean", *imagePath)
	return subcommands.ExitSuccess
}

type lsCmd struct{}

func (*lsCmd) Name() string           { return "ls" }
func (*lsCmd) Synopsis() string       { return "list a directory" }
func (*lsCmd) Usage() string          { return "ls <path>\n" }
func (*lsCmd) SetFlags(*flag.FlagSet) {}

func (*lsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	st := mount()
	defer finish(st)
	for _, name := range st.List(f.Arg(0)) {
		fmt.Println(name)
	}
	return subcommands.ExitSuccess
}

type statCmd struct{}

func (*statCmd) Name() string           { return "stat" }
func (*statCmd) Synopsis() string       { return "print file metadata" }
func (*statCmd) Usage() string          { return "stat <path>\n" }
func (*statCmd) SetFlags(*flag.FlagSet) {}

func (*statCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	st := mount()
	defer finish(st)
	attr, err := st.Stat(f.Arg(0))
	if err != nil {
		return fail(err, "stat %s", f.Arg(0))
	}
	fmt.Printf("inode %d mode %o size %d nlink %d uid %d gid %d atime %d mtime %d blocks %d\n",
		attr.Inum, attr.Mode, attr.Size, attr.Nlink, attr.Uid, attr.Gid,
		attr.Atime, attr.Mtime, attr.Blocks)
	return subcommands.ExitSuccess
}

type catCmd struct{}

func (*catCmd) Name() string           { return "cat" }
func (*catCmd) Synopsis() string       { return "copy a file to stdout" }
func (*catCmd) Usage() string          { return "cat <path>\n" }
func (*catCmd) SetFlags(*flag.FlagSet) {}

func (*catCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	st := mount()
	defer finish(st)
	attr, err := st.Stat(f.Arg(0))
	if err != nil {
		return fail(err, "stat %s", f.Arg(0))
	}
	buf := make([]byte, attr.Size)
	n, err := st.Read(f.Arg(0), buf, 0)
	if err != nil {
		return fail(err, "read %s", f.Arg(0))
	}
	os.Stdout.Write(buf[:n])
	return subcommands.ExitSuccess
}

// importCmd copies a host file into the image, replacing any existing
// contents at the destination.
type importCmd struct{}

func (*importCmd) Name() string           { return "import" }
func (*importCmd) Synopsis() string       { return "copy a host file into the image" }
func (*importCmd) Usage() string          { return "import <host-file> <path>\n" }
func (*importCmd) SetFlags(*flag.FlagSet) {}

func (*importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(f.Arg(0))
	if err != nil {
		return fail(err, "read %s", f.Arg(0))
	}
	st := mount()
	defer finish(st)
	dst := f.Arg(1)
	err = st.Mknod(dst, 0o100644)
	if err == common.ErrExists {
		err = st.Truncate(dst, 0)
	}
	if err != nil {
		return fail(err, "create %s", dst)
	}
	n, err := st.Write(dst, data, 0)
	if err != nil {
		return fail(err, "write %s", dst)
	}
	if n != len(data) {
		logrus.Errorf("short write to %s: %d of %d bytes", dst, n, len(data))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type touchCmd struct{}

func (*touchCmd) Name() string           { return "touch" }
func (*touchCmd) Synopsis() string       { return "create an empty file" }
func (*touchCmd) Usage() string          { return "touch <path>\n" }
func (*touchCmd) SetFlags(*flag.FlagSet) {}

func (*touchCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	st := mount()
	defer finish(st)
	if err := st.Mknod(f.Arg(0), 0o100644); err != nil {
		return fail(err, "touch %s", f.Arg(0))
	}
	return subcommands.ExitSuccess
}

type mkdirCmd struct {
	mode uint64
}

func (*mkdirCmd) Name() string     { return "mkdir" }
func (*mkdirCmd) Synopsis() string { return "create a directory" }
func (*mkdirCmd) Usage() string    { return "mkdir <path>\n" }

func (c *mkdirCmd) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&c.mode, "mode", 0o755, "permission bits for the new directory")
}

func (c *mkdirCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	st := mount()
	defer finish(st)
	if err := st.Mkdir(f.Arg(0), uint32(c.mode)); err != nil {
		return fail(err, "mkdir %s", f.Arg(0))
	}
	return subcommands.ExitSuccess
}

type rmCmd struct{}

func (*rmCmd) Name() string           { return "rm" }
func (*rmCmd) Synopsis() string       { return "unlink a file" }
func (*rmCmd) Usage() string          { return "rm <path>\n" }
func (*rmCmd) SetFlags(*flag.FlagSet) {}

func (*rmCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	st := mount()
	defer finish(st)
	if err := st.Unlink(f.Arg(0)); err != nil {
		return fail(err, "rm %s", f.Arg(0))
	}
	return subcommands.ExitSuccess
}

type rmdirCmd struct{}

func (*rmdirCmd) Name() string           { return "rmdir" }
func (*rmdirCmd) Synopsis() string       { return "remove an empty directory" }
func (*rmdirCmd) Usage() string          { return "rmdir <path>\n" }
func (*rmdirCmd) SetFlags(*flag.FlagSet) {}

func (*rmdirCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	st := mount()
	defer finish(st)
	if err := st.Rmdir(f.Arg(0)); err != nil {
		return fail(err, "rmdir %s", f.Arg(0))
	}
	return subcommands.ExitSuccess
}

type mvCmd struct{}

func (*mvCmd) Name() string           { return "mv" }
func (*mvCmd) Synopsis() string       { return "rename a file or directory" }
func (*mvCmd) Usage() string          { return "mv <from> <to>\n" }
func (*mvCmd) SetFlags(*flag.FlagSet) {}

func (*mvCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	st := mount()
	defer finish(st)
	if err := st.Rename(f.Arg(0), f.Arg(1)); err != nil {
		return fail(err, "mv %s %s", f.Arg(0), f.Arg(1))
	}
	return subcommands.ExitSuccess
}

type lnCmd struct{}

func (*lnCmd) Name() string           { return "ln" }
func (*lnCmd) Synopsis() string       { return "create a hard link" }
func (*lnCmd) Usage() string          { return "ln <from> <to>\n" }
func (*lnCmd) SetFlags(*flag.FlagSet) {}

func (*lnCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	st := mount()
	defer finish(st)
	if err := st.Link(f.Arg(0), f.Arg(1)); err != nil {
		return fail(err, "ln %s %s", f.Arg(0), f.Arg(1))
	}
	return subcommands.ExitSuccess
}

type chmodCmd struct{}

func (*chmodCmd) Name() string           { return "chmod" }
func (*chmodCmd) Synopsis() string       { return "change permission bits" }
func (*chmodCmd) Usage() string          { return "chmod <octal-mode> <path>\n" }
func (*chmodCmd) SetFlags(*flag.FlagSet) {}

func (*chmodCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	mode, err := strconv.ParseUint(f.Arg(0), 8, 32)
	if err != nil {
		return fail(err, "parse mode %s", f.Arg(0))
	}
	st := mount()
	defer finish(st)
	if err := st.Chmod(f.Arg(1), uint32(mode)); err != nil {
		return fail(err, "chmod %s", f.Arg(1))
	}
	return subcommands.ExitSuccess
}

type truncateCmd struct{}

func (*truncateCmd) Name() string           { return "truncate" }
func (*truncateCmd) Synopsis() string       { return "set a file's size" }
func (*truncateCmd) Usage() string          { return "truncate <path> <size>\n" }
func (*truncateCmd) SetFlags(*flag.FlagSet) {}

func (*truncateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	size, err := strconv.ParseUint(f.Arg(1), 10, 32)
	if err != nil {
		return fail(err, "parse size %s", f.Arg(1))
	}
	st := mount()
	defer finish(st)
	if err := st.Truncate(f.Arg(0), uint32(size)); err != nil {
		return fail(err, "truncate %s", f.Arg(0))
	}
	return subcommands.ExitSuccess
}
