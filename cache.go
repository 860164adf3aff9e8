package cvfs

import "io"

// LRUCacheSize bounds the number of inode records kept resident at once.
const LRUCacheSize = 128

// readWriterAt is the minimal storage interface the cache needs: random
// access reads and writes, as satisfied by *os.File.
type readWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// cacheNode is one resident entry in the inode cache's doubly-linked list.
// head = most recently used.
type cacheNode struct {
	slot  int
	inode Inode
	dirty bool
	prev  *cacheNode
	next  *cacheNode
}

// inodeCache is a write-back LRU cache over the container's inode table.
// It is the only path through which mutation code touches inode records;
// see getInode and markDirty.
type inodeCache struct {
	store readWriterAt

	byIndex map[int]*cacheNode
	head    *cacheNode
	tail    *cacheNode
	count   int
}

func newInodeCache(store readWriterAt) *inodeCache {
	return &inodeCache{
		store:   store,
		byIndex: make(map[int]*cacheNode, LRUCacheSize),
	}
}

func (c *inodeCache) moveToFront(n *cacheNode) {
	if c.head == n {
		return
	}
	c.unlink(n)
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *inodeCache) unlink(n *cacheNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else if c.head == n {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if c.tail == n {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// getInode returns a pointer to the cached record for slot, loading it from
// disk on a miss. The returned pointer is only valid until the next
// getInode call: a subsequent miss may evict the very node it points to.
// Callers that need two inodes resident at once (copy_file, the move
// cascade) must snapshot by value before calling getInode again; see the
// DESIGN notes on cache-pointer invalidation.
func (c *inodeCache) getInode(slot int) (*Inode, error) {
	if n, ok := c.byIndex[slot]; ok {
		c.moveToFront(n)
		return &n.inode, nil
	}

	ino, err := readInode(c.store, slot)
	if err != nil {
		return nil, err
	}

	var n *cacheNode
	if c.count < LRUCacheSize {
		n = &cacheNode{slot: slot, inode: ino}
		c.count++
	} else {
		n = c.tail
		if n.dirty {
			if err := writeInode(c.store, n.slot, n.inode); err != nil {
				return nil, err
			}
		}
		delete(c.byIndex, n.slot)
		c.unlink(n)
		n.slot = slot
		n.inode = ino
		n.dirty = false
	}

	c.byIndex[slot] = n
	c.moveToFront(n)
	return &n.inode, nil
}

// markDirty flags the cached record for slot as needing write-back. It is a
// no-op if slot is not currently resident; callers must getInode(slot)
// immediately before mutating so the record is guaranteed resident.
func (c *inodeCache) markDirty(slot int) {
	if n, ok := c.byIndex[slot]; ok {
		n.dirty = true
	}
}

// flush writes every dirty resident record back to disk. It does not evict
// or clear the dirty flags' residency — only the flag itself, since the
// on-disk copy is now current.
func (c *inodeCache) flush() error {
	for n := c.head; n != nil; n = n.next {
		if n.dirty {
			if err := writeInode(c.store, n.slot, n.inode); err != nil {
				return err
			}
			n.dirty = false
		}
	}
	return nil
}
