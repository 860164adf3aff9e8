package cvfs

// Slot identifies a fixed position in the inode table, 0 <= Slot < MaxFiles.
type Slot = int

// LookupByPath resolves an absolute path to its inode slot. It reports ok
// == false if the path is not present (or is the implicit root).
func (c *Container) LookupByPath(absPath string) (slot Slot, ok bool) {
	s := c.lookup(Normalize(absPath))
	if s < 0 {
		return 0, false
	}
	return s, true
}

// IsDir reports whether the inode at slot is a directory.
func (c *Container) IsDir(slot Slot) (bool, error) {
	ino, err := c.cache.getInode(slot)
	if err != nil {
		return false, err
	}
	return ino.IsDirectory, nil
}

// InodeOf returns a copy of the inode record held at slot. It is a copy,
// not the cache's internal pointer, so it stays valid across later calls.
func (c *Container) InodeOf(slot Slot) (Inode, error) {
	ino, err := c.cache.getInode(slot)
	if err != nil {
		return Inode{}, err
	}
	return *ino, nil
}

// ChildIterator walks the live entries directly under one directory, in
// slot order. Callers that need name order must sort the results
// themselves.
type ChildIterator struct {
	c       *Container
	dirPath string
	next    int
}

// IterChildren returns an iterator over every non-free slot whose
// parent_path equals dirAbs.
func (c *Container) IterChildren(dirAbs string) *ChildIterator {
	return &ChildIterator{c: c, dirPath: Normalize(dirAbs)}
}

// Next advances the iterator and reports whether a further child was found.
func (it *ChildIterator) Next() (slot Slot, ino Inode, ok bool) {
	for it.next < MaxFiles {
		s := it.next
		it.next++

		cur, err := it.c.cache.getInode(s)
		if err != nil || cur.Free() || cur.ParentPath != it.dirPath {
			continue
		}
		return s, *cur, true
	}
	return 0, Inode{}, false
}

// List is a convenience wrapper over ChildIterator that materializes every
// child into a slice.
func (c *Container) List(dirAbs string) ([]Inode, error) {
	var out []Inode
	it := c.IterChildren(dirAbs)
	for {
		_, ino, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, ino)
	}
	return out, nil
}

// AllIterator walks every live slot in the inode table, in slot order.
type AllIterator struct {
	c    *Container
	next int
}

// IterAllLive returns an iterator over every non-free slot in the table.
func (c *Container) IterAllLive() *AllIterator {
	return &AllIterator{c: c}
}

// Next advances the iterator and reports whether a further live slot was
// found.
func (it *AllIterator) Next() (slot Slot, ino Inode, ok bool) {
	for it.next < MaxFiles {
		s := it.next
		it.next++

		cur, err := it.c.cache.getInode(s)
		if err != nil || cur.Free() {
			continue
		}
		return s, *cur, true
	}
	return 0, Inode{}, false
}

// ReadFile returns an io.Reader that yields up to size bytes of the file's
// payload starting at its on-disk offset. The stream is finite and
// non-restartable.
func (c *Container) ReadFile(slot Slot) (*FileReader, error) {
	ino, err := c.cache.getInode(slot)
	if err != nil {
		return nil, err
	}
	if ino.IsDirectory {
		return nil, ErrIsDir
	}
	return &FileReader{
		f:      c.f,
		offset: int64(ino.Offset),
		size:   int64(ino.Size),
	}, nil
}
