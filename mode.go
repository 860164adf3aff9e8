package cvfs

import (
	"io/fs"
)

// Unix file-type bits. cvfs only ever distinguishes a directory from a
// regular file, so this is trimmed to what ModeToUnix needs rather than
// carrying the full S_IF*/S_IS* set a general-purpose stat translator would.
// based on: https://golang.org/src/os/stat_linux.go
const (
	S_IFREG = 0x8000
	S_IFDIR = 0x4000
)

// ModeToUnix translates a Go fs.FileMode into the type+permission bits a
// syscall.Stat_t or fuse.Attr expects. Used by the FUSE adapter, which only
// ever passes a permission mask with fs.ModeDir optionally set.
func ModeToUnix(mode fs.FileMode) uint32 {
	res := uint32(mode.Perm())
	if mode&fs.ModeDir == fs.ModeDir {
		res |= S_IFDIR
	} else {
		res |= S_IFREG
	}
	return res
}
