package cvfs

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// lookup resolves an already-normalized absolute path to its inode slot via
// the hash index, or -1 if it isn't present.
func (c *Container) lookup(absPath string) int {
	if absPath == "/" {
		return -1
	}
	return c.index.Lookup(absPath)
}

func (c *Container) parentExists(parentPath string) bool {
	if parentPath == "/" {
		return true
	}
	return c.lookup(parentPath) >= 0
}

// findFreeInode scans slots 0..N for the first free one. O(N), acceptable
// given MaxFiles = 1024; see DESIGN.md for the free-slot bitmap that a
// higher-scale reimplementation would add instead.
func (c *Container) findFreeInode() (int, error) {
	for slot := 0; slot < MaxFiles; slot++ {
		ino, err := c.cache.getInode(slot)
		if err != nil {
			return -1, err
		}
		if ino.Free() {
			return slot, nil
		}
	}
	return -1, ErrFull
}

// findDataEnd returns the offset where the next payload should be appended:
// the high-water mark of every live file's [offset, offset+size) interval,
// or sb.DataOffset if the container holds no files yet.
func (c *Container) findDataEnd() (uint64, error) {
	end := c.sb.DataOffset
	for slot := 0; slot < MaxFiles; slot++ {
		ino, err := c.cache.getInode(slot)
		if err != nil {
			return 0, err
		}
		if ino.Free() || ino.IsDirectory {
			continue
		}
		if e := ino.Offset + ino.Size; e > end {
			end = e
		}
	}
	return end, nil
}

// Mkdir creates a new, empty directory at path.
func (c *Container) Mkdir(path string) error {
	abs := Normalize(path)
	if abs == "/" {
		return ErrRoot
	}
	parent, base := Split(abs)

	if c.lookup(abs) >= 0 {
		return ErrExists
	}
	if !c.parentExists(parent) {
		return ErrNoParent
	}

	slot, err := c.findFreeInode()
	if err != nil {
		return err
	}

	now := time.Now()
	ino, err := c.cache.getInode(slot)
	if err != nil {
		return err
	}
	*ino = Inode{
		Filename:    base,
		ParentPath:  parent,
		IsDirectory: true,
		Created:     now,
		Modified:    now,
	}
	c.cache.markDirty(slot)

	if !c.index.Insert(abs, slot) {
		return ErrFull
	}
	c.sb.NumFiles++
	return nil
}

// AddFile imports the host file at hostPath into the container at fsPath.
func (c *Container) AddFile(fsPath, hostPath string) error {
	if c.sb.NumFiles >= c.sb.MaxFiles {
		return ErrFull
	}

	src, err := os.Open(hostPath)
	if err != nil {
		return fmt.Errorf("cvfs: opening source file: %w", err)
	}
	defer src.Close()

	abs := Normalize(fsPath)
	if abs == "/" {
		return ErrRoot
	}
	parent, base := Split(abs)

	if c.lookup(abs) >= 0 {
		return ErrExists
	}
	if !c.parentExists(parent) {
		return ErrNoParent
	}

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("cvfs: statting source file: %w", err)
	}
	size := uint64(info.Size())

	slot, err := c.findFreeInode()
	if err != nil {
		return err
	}

	offset, err := c.findDataEnd()
	if err != nil {
		return err
	}

	if err := copyStream(c.f, src, int64(offset), size); err != nil {
		return err
	}

	now := time.Now()
	ino, err := c.cache.getInode(slot)
	if err != nil {
		return err
	}
	*ino = Inode{
		Filename:   base,
		ParentPath: parent,
		Size:       size,
		Offset:     offset,
		Created:    now,
		Modified:   now,
	}
	c.cache.markDirty(slot)

	if !c.index.Insert(abs, slot) {
		return ErrFull
	}
	c.sb.NumFiles++
	return nil
}

// ExtractFile streams the contents of the file at fsPath into a new host
// file at hostPath.
func (c *Container) ExtractFile(fsPath, hostPath string) error {
	abs := Normalize(fsPath)
	slot := c.lookup(abs)
	if slot < 0 {
		return ErrNotFound
	}

	ino, err := c.cache.getInode(slot)
	if err != nil {
		return err
	}
	if ino.IsDirectory {
		return ErrIsDir
	}
	offset, size := ino.Offset, ino.Size

	dst, err := os.Create(hostPath)
	if err != nil {
		return fmt.Errorf("cvfs: creating destination file: %w", err)
	}
	defer dst.Close()

	return copyStream(dst, io.NewSectionReader(c.f, int64(offset), int64(size)), 0, size)
}

// CopyFile duplicates the file at src into a new file at dest, both within
// the container.
func (c *Container) CopyFile(src, dest string) error {
	if c.sb.NumFiles >= c.sb.MaxFiles {
		return ErrFull
	}

	normSrc := Normalize(src)
	normDest := Normalize(dest)
	if normDest == "/" {
		return ErrRoot
	}

	srcSlot := c.lookup(normSrc)
	if srcSlot < 0 {
		return ErrNotFound
	}

	srcIno, err := c.cache.getInode(srcSlot)
	if err != nil {
		return err
	}
	if srcIno.IsDirectory {
		return ErrIsDir
	}
	// Snapshot by value: a subsequent getInode (for the destination slot, or
	// while finding the free slot / data end) may evict this very node. See
	// DESIGN.md on cache-pointer invalidation.
	srcOffset, srcSize := srcIno.Offset, srcIno.Size

	if c.lookup(normDest) >= 0 {
		return ErrExists
	}
	destParent, destBase := Split(normDest)
	if !c.parentExists(destParent) {
		return ErrNoParent
	}

	destSlot, err := c.findFreeInode()
	if err != nil {
		return err
	}

	destOffset, err := c.findDataEnd()
	if err != nil {
		return err
	}

	if err := copyStream(c.f, io.NewSectionReader(c.f, int64(srcOffset), int64(srcSize)), int64(destOffset), srcSize); err != nil {
		return err
	}

	now := time.Now()
	destIno, err := c.cache.getInode(destSlot)
	if err != nil {
		return err
	}
	*destIno = Inode{
		Filename:   destBase,
		ParentPath: destParent,
		Size:       srcSize,
		Offset:     destOffset,
		Created:    now,
		Modified:   now,
	}
	c.cache.markDirty(destSlot)

	if !c.index.Insert(normDest, destSlot) {
		return ErrFull
	}
	c.sb.NumFiles++
	return nil
}

// MoveFile renames/moves src to dest. Both files and directories are
// supported; moving a non-empty directory cascades the rename to every
// descendant's parent_path.
func (c *Container) MoveFile(src, dest string) error {
	normSrc := Normalize(src)
	normDest := Normalize(dest)
	if normDest == "/" {
		return ErrRoot
	}

	srcSlot := c.lookup(normSrc)
	if srcSlot < 0 {
		return ErrNotFound
	}
	if c.lookup(normDest) >= 0 {
		return ErrExists
	}

	destParent, destBase := Split(normDest)
	if !c.parentExists(destParent) {
		return ErrNoParent
	}

	srcIno, err := c.cache.getInode(srcSlot)
	if err != nil {
		return err
	}
	isDir := srcIno.IsDirectory

	// A directory can't be moved inside itself or one of its own
	// descendants: the cascade below would rewrite the directory's own
	// new parent chain out from under it.
	if isDir && hasPathPrefix(normDest, normSrc) {
		return ErrInvalid
	}

	c.index.Delete(normSrc)
	srcIno.Filename = destBase
	srcIno.ParentPath = destParent
	srcIno.Modified = time.Now()
	c.cache.markDirty(srcSlot)
	if !c.index.Insert(normDest, srcSlot) {
		return ErrFull
	}

	if !isDir {
		return nil
	}

	// Cascade: every descendant's parent_path has normSrc as a /-aligned
	// prefix. Order doesn't matter since no two live slots share a full
	// path at any point (invariant 5).
	for slot := 0; slot < MaxFiles; slot++ {
		if slot == srcSlot {
			continue
		}
		ino, err := c.cache.getInode(slot)
		if err != nil {
			return err
		}
		if ino.Free() {
			continue
		}
		if !hasPathPrefix(ino.ParentPath, normSrc) {
			continue
		}

		oldFull := ino.FullPath()
		newParent := normDest + ino.ParentPath[len(normSrc):]

		c.index.Delete(oldFull)
		ino.ParentPath = newParent
		c.cache.markDirty(slot)
		if !c.index.Insert(Join(newParent, ino.Filename), slot) {
			return ErrFull
		}
	}

	return nil
}

// hasPathPrefix reports whether prefix is a /-aligned ancestor of path:
// path == prefix, or path starts with prefix followed by "/". A plain
// strings.HasPrefix would wrongly match "/foobar" against prefix "/foo".
func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/'
}

// Delete removes the entry at path. If it is a non-empty directory,
// recursive must be set or the call fails with ErrNotEmpty. With force,
// ErrNotFound and ErrNotEmpty are silenced; I/O errors still propagate.
func (c *Container) Delete(path string, recursive, force bool) error {
	abs := Normalize(path)
	if abs == "/" {
		return ErrRoot
	}

	err := c.delete(abs, recursive)
	if err != nil && force && (err == ErrNotFound || err == ErrNotEmpty) {
		return nil
	}
	return err
}

func (c *Container) delete(abs string, recursive bool) error {
	slot := c.lookup(abs)
	if slot < 0 {
		return ErrNotFound
	}

	ino, err := c.cache.getInode(slot)
	if err != nil {
		return err
	}

	if ino.IsDirectory {
		children := c.childPaths(abs)
		if len(children) > 0 {
			if !recursive {
				return ErrNotEmpty
			}
			for _, child := range children {
				if err := c.delete(child, recursive); err != nil {
					return err
				}
			}
		}
	}

	return c.freeSlot(slot, abs)
}

// childPaths returns the full paths of every live entry whose parent_path
// is exactly dirPath.
func (c *Container) childPaths(dirPath string) []string {
	var out []string
	for slot := 0; slot < MaxFiles; slot++ {
		ino, err := c.cache.getInode(slot)
		if err != nil {
			continue
		}
		if !ino.Free() && ino.ParentPath == dirPath {
			out = append(out, ino.FullPath())
		}
	}
	return out
}

func (c *Container) freeSlot(slot int, abs string) error {
	ino, err := c.cache.getInode(slot)
	if err != nil {
		return err
	}
	*ino = Inode{}
	c.cache.markDirty(slot)
	c.index.Delete(abs)
	c.sb.NumFiles--
	return nil
}

// copyStream streams all of r (exactly size bytes, or until r is drained if
// shorter) into w at offset, in BlockSize chunks.
func copyStream(w io.WriterAt, r io.Reader, offset int64, size uint64) error {
	buf := make([]byte, BlockSize)
	var written uint64
	for written < size {
		want := size - written
		if want > BlockSize {
			want = BlockSize
		}
		n, err := io.ReadFull(r, buf[:want])
		if n > 0 {
			if _, werr := w.WriteAt(buf[:n], offset+int64(written)); werr != nil {
				return fmt.Errorf("cvfs: writing data region: %w", werr)
			}
			written += uint64(n)
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return fmt.Errorf("cvfs: reading payload: %w", err)
		}
	}
	return nil
}
