package cvfs

// HashTableSize is the number of slots in the in-memory path hash index.
// It equals MaxFiles: the inode table never holds more live paths than the
// index has cells, so an insertion always finds an empty or tombstoned cell.
const HashTableSize = 1024

const tombstonePath = "\x00tombstone"

// hashEntry is one slot of the open-addressed path hash index.
type hashEntry struct {
	slot int32 // -1 = empty
	path string
}

// pathIndex maps a full absolute path to the inode slot that holds it, via
// djb2 hashing with linear probing. Deletion uses tombstones so that
// lookups for keys that probed past a deleted cell keep working.
type pathIndex struct {
	entries [HashTableSize]hashEntry
}

func newPathIndex() *pathIndex {
	idx := &pathIndex{}
	for i := range idx.entries {
		idx.entries[i].slot = -1
	}
	return idx
}

// djb2 hashes path: hash = 5381; hash = hash*33 + c for every byte.
func djb2(path string) uint32 {
	var hash uint32 = 5381
	for i := 0; i < len(path); i++ {
		hash = hash*33 + uint32(path[i])
	}
	return hash
}

func (idx *pathIndex) bucket(path string) int {
	return int(djb2(path) % HashTableSize)
}

// Lookup returns the inode slot stored for path, or -1 if not present.
func (idx *pathIndex) Lookup(path string) int {
	start := idx.bucket(path)
	for i := 0; i < HashTableSize; i++ {
		pos := (start + i) % HashTableSize
		e := &idx.entries[pos]
		if e.slot == -1 && e.path != tombstonePath {
			return -1
		}
		if e.slot != -1 && e.path == path {
			return int(e.slot)
		}
	}
	return -1
}

// Insert maps path to slot. If the table is saturated (every probed cell
// occupied by a live, non-matching entry for a full cycle), the insertion
// is dropped and false is returned; callers should surface this as Full.
func (idx *pathIndex) Insert(path string, slot int) bool {
	start := idx.bucket(path)
	for i := 0; i < HashTableSize; i++ {
		pos := (start + i) % HashTableSize
		e := &idx.entries[pos]
		if e.slot == -1 {
			e.slot = int32(slot)
			e.path = path
			return true
		}
		if e.path == path {
			// Already present (shouldn't happen given caller preconditions);
			// overwrite in place rather than duplicate.
			e.slot = int32(slot)
			return true
		}
	}
	return false
}

// Delete removes the entry for path, if present. It leaves a tombstone
// behind so that later entries that probed past this cell remain
// reachable by Lookup.
func (idx *pathIndex) Delete(path string) {
	start := idx.bucket(path)
	for i := 0; i < HashTableSize; i++ {
		pos := (start + i) % HashTableSize
		e := &idx.entries[pos]
		if e.slot == -1 && e.path != tombstonePath {
			return
		}
		if e.slot != -1 && e.path == path {
			e.slot = -1
			e.path = tombstonePath
			return
		}
	}
}
