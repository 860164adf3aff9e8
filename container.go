package cvfs

import (
	"fmt"
	"log"
	"os"
)

// Container is a single-file virtual filesystem: one host file holding a
// superblock, a fixed-size inode table, and an append-only data region. It
// is not safe for concurrent use; one Container owns one underlying file
// handle at a time, matching the single-threaded, non-reentrant engine
// model the format was designed around.
type Container struct {
	f  *os.File
	sb SuperBlock

	index *pathIndex
	cache *inodeCache
}

// Create initializes a new, empty container at path: a superblock with
// num_files=0 and a zeroed inode table. No data region bytes are allocated.
func Create(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cvfs: creating container: %w", err)
	}
	defer f.Close()

	sb := SuperBlock{
		Magic:      Magic,
		Version:    FormatVersion,
		NumFiles:   0,
		MaxFiles:   MaxFiles,
		DataOffset: dataOffset(),
	}
	if err := writeSuperBlock(f, sb); err != nil {
		return err
	}

	empty := Inode{}
	for slot := 0; slot < MaxFiles; slot++ {
		if err := writeInode(f, slot, empty); err != nil {
			return fmt.Errorf("cvfs: initializing inode table: %w", err)
		}
	}

	log.Printf("cvfs: created container %s", path)
	return nil
}

// Open opens an existing container for read/write access. It validates the
// superblock magic, then rebuilds the in-memory path hash index by scanning
// every slot of the on-disk inode table; the inode cache itself stays empty
// and faults records in on demand.
func Open(path string) (*Container, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("cvfs: opening container: %w", err)
	}

	sb, err := readSuperBlock(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	c := &Container{
		f:     f,
		sb:    sb,
		index: newPathIndex(),
		cache: newInodeCache(f),
	}

	if err := c.rebuildIndex(); err != nil {
		f.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) rebuildIndex() error {
	for slot := 0; slot < MaxFiles; slot++ {
		ino, err := readInode(c.f, slot)
		if err != nil {
			return err
		}
		if ino.Free() {
			continue
		}
		if !c.index.Insert(ino.FullPath(), slot) {
			return ErrFull
		}
	}
	return nil
}

// Close writes every dirty cache entry back to disk, rewrites the
// superblock at offset 0, flushes, and releases the underlying file handle.
// Non-dirty entries require no I/O.
func (c *Container) Close() error {
	if err := c.cache.flush(); err != nil {
		return err
	}
	if err := writeSuperBlock(c.f, c.sb); err != nil {
		return err
	}
	if err := c.f.Sync(); err != nil {
		return fmt.Errorf("cvfs: flushing container: %w", err)
	}
	return c.f.Close()
}

// NumFiles returns the superblock's live file/directory count.
func (c *Container) NumFiles() uint32 {
	return c.sb.NumFiles
}
