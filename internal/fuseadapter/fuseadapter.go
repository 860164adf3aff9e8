//go:build fuse

// Package fuseadapter exposes a cvfs.Container as a read-only FUSE mount.
// It is an external collaborator in the sense of the container format: it
// consumes only the Enumeration API (LookupByPath, IsDir, InodeOf,
// List, ReadFile) and never reaches into the container's cache or
// hash index directly.
package fuseadapter

import (
	"context"
	"io"
	iofs "io/fs"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/KarpelesLab/cvfs"
)

// node is one fs.InodeEmbedder backing either a directory or a file slot
// in the container. The root node carries slot == -1 since "/" has no
// inode of its own.
type node struct {
	fs.Inode

	c    *cvfs.Container
	slot cvfs.Slot
	path string
	dir  bool
}

var (
	_ fs.InodeEmbedder = (*node)(nil)
	_ fs.NodeLookuper  = (*node)(nil)
	_ fs.NodeReaddirer = (*node)(nil)
	_ fs.NodeOpener    = (*node)(nil)
	_ fs.NodeReader    = (*node)(nil)
	_ fs.NodeGetattrer = (*node)(nil)
)

// Root returns the InodeEmbedder to pass to fs.Mount for c.
func Root(c *cvfs.Container) fs.InodeEmbedder {
	return &node{c: c, slot: -1, path: "/", dir: true}
}

// Mount exposes c as a read-only FUSE filesystem at mountpoint, blocking
// until the server is unmounted. Mutation through the mount is not
// supported: cvfs mutations always go through the Container API directly.
func Mount(c *cvfs.Container, mountpoint string) error {
	server, err := fs.Mount(mountpoint, Root(c), &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:  "cvfs",
			Name:    "cvfs",
			Options: []string{"ro"},
		},
	})
	if err != nil {
		return err
	}
	server.Wait()
	return nil
}

// unixMode translates a mount entry into the bits Getattr/Lookup expect,
// via cvfs's shared Unix mode helper rather than hand-rolling the type bits
// here.
func unixMode(dir bool) uint32 {
	perm := iofs.FileMode(0o444)
	if dir {
		perm |= iofs.ModeDir | 0o111
	}
	return cvfs.ModeToUnix(perm)
}

func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if n.dir {
		out.Mode = unixMode(true)
		return 0
	}

	ino, err := n.c.InodeOf(n.slot)
	if err != nil {
		return syscall.EIO
	}
	out.Mode = unixMode(false)
	out.Size = ino.Size
	out.Mtime = uint64(ino.Modified.Unix())
	out.Atime = out.Mtime
	out.Ctime = out.Mtime
	return 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if !n.dir {
		return nil, syscall.ENOTDIR
	}

	childPath := cvfs.Join(n.path, name)
	slot, ok := n.c.LookupByPath(childPath)
	if !ok {
		return nil, syscall.ENOENT
	}

	isDir, err := n.c.IsDir(slot)
	if err != nil {
		return nil, syscall.EIO
	}

	child := &node{c: n.c, slot: slot, path: childPath, dir: isDir}
	mode := unixMode(isDir)
	stable := fs.StableAttr{Mode: mode &^ 0o7777, Ino: uint64(slot) + 2}
	out.Mode = mode

	return n.NewInode(ctx, child, stable), 0
}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	if !n.dir {
		return nil, syscall.ENOTDIR
	}

	children, err := n.c.List(n.path)
	if err != nil {
		return nil, syscall.EIO
	}

	entries := make([]fuse.DirEntry, 0, len(children))
	for _, child := range children {
		mode := unixMode(child.IsDirectory) &^ 0o7777
		entries = append(entries, fuse.DirEntry{Name: child.Filename, Mode: mode})
	}

	return fs.NewListDirStream(entries), 0
}

func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if n.dir {
		return nil, 0, syscall.EISDIR
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	r, err := n.c.ReadFile(n.slot)
	if err != nil {
		return nil, syscall.EIO
	}

	n2, err := r.ReadAt(dest, off)
	if err != nil && err != io.EOF {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:n2]), 0
}
