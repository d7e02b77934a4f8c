package dir

import (
	"strings"

	"github.com/nufs-fs/nufs/common"
	"github.com/nufs-fs/nufs/inode"
	"github.com/nufs-fs/nufs/super"
)

// Basename returns the substring after the final '/', or the whole
// path when there is none.
func Basename(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return path
	}
	return path[i+1:]
}

// splitPath yields the non-empty components, so doubled and trailing
// slashes disappear.
func splitPath(path string) []string {
	var comps []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return comps
}

// TreeLookup walks an absolute path from the root and returns its
// inode number; "/" is inode 0.
func TreeLookup(fsys *super.FsSuper, path string) (common.Inum, bool) {
	if path == "" || path[0] != '/' {
		return 0, false
	}
	cur := common.ROOTINUM
	for _, name := range splitPath(path) {
		ip := inode.GetInode(fsys, cur)
		if ip == nil || !ip.IsDir() {
			return 0, false
		}
		next, ok := Lookup(fsys, ip, name)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// TreeLookupParent resolves the directory holding path's final
// component; the parent of "/" is "/" itself.
func TreeLookupParent(fsys *super.FsSuper, path string) (common.Inum, bool) {
	if path == "/" {
		return common.ROOTINUM, true
	}
	i := strings.LastIndexByte(path, '/')
	if i <= 0 {
		// final slash is the leading one; the parent is root
		return TreeLookup(fsys, "/")
	}
	return TreeLookup(fsys, path[:i])
}
