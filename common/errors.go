package common

import (
	"golang.org/x/sys/unix"
)

// Error kinds of the operation surface. They are raw errnos so a
// userspace-filesystem bridge maps them to negated POSIX numbers
// without a translation table.
var (
	ErrNotFound    error = unix.ENOENT
	ErrExists      error = unix.EEXIST
	ErrNoSpace     error = unix.ENOSPC
	ErrNotDir      error = unix.ENOTDIR
	ErrNotEmpty    error = unix.ENOTEMPTY
	ErrNameTooLong error = unix.ENAMETOOLONG
	ErrInvalid     error = unix.EINVAL
)
