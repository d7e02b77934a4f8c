// Command nufs manipulates nufs image files: formatting, checking,
// and moving data in and out without a kernel mount.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/nufs-fs/nufs/storage"
	"github.com/nufs-fs/nufs/util"
)

var (
	imagePath = flag.String("image", "nufs.img", "path of the backing image file")
	debug     = flag.Uint64("debug", 0, "core debug log level")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	for _, c := range []subcommands.Command{
		new(mkfsCmd), new(fsckCmd), new(lsCmd), new(statCmd), new(catCmd),
		new(importCmd), new(touchCmd), new(mkdirCmd), new(rmCmd),
		new(rmdirCmd), new(mvCmd), new(lnCmd), new(chmodCmd), new(truncateCmd),
	} {
		subcommands.Register(c, "")
	}
	flag.Parse()
	util.Debug = *debug
	os.Exit(int(subcommands.Execute(context.Background())))
}

// mount opens the image named by -image, formatting it on first use.
func mount() *storage.Storage {
	st, err := storage.Init(*imagePath)
	if err != nil {
		logrus.WithError(err).Fatalf("open image %s", *imagePath)
	}
	return st
}

// finish flushes and unmaps before exit.
func finish(st *storage.Storage) {
	if err := st.Sync(); err != nil {
		logrus.WithError(err).Warn("sync image")
	}
	if err := st.Close(); err != nil {
		logrus.WithError(err).Warn("close image")
	}
}

func fail(err error, format string, a ...interface{}) subcommands.ExitStatus {
	logrus.WithError(err).Errorf(format, a...)
	return subcommands.ExitFailure
}
