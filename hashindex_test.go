package cvfs

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestPathIndexBasic(t *testing.T) {
	idx := newPathIndex()

	if slot := idx.Lookup("/docs/hello.txt"); slot != -1 {
		t.Fatalf("Lookup on empty index = %d, want -1", slot)
	}

	if !idx.Insert("/docs/hello.txt", 3) {
		t.Fatal("Insert failed unexpectedly")
	}
	if slot := idx.Lookup("/docs/hello.txt"); slot != 3 {
		t.Fatalf("Lookup = %d, want 3", slot)
	}

	idx.Delete("/docs/hello.txt")
	if slot := idx.Lookup("/docs/hello.txt"); slot != -1 {
		t.Fatalf("Lookup after delete = %d, want -1", slot)
	}
}

// TestPathIndexDeleteDoesNotBreakProbeChain reproduces the classic linear
// probing hazard: deleting an entry that a later key's probe sequence
// passed through must not hide that later key.
func TestPathIndexDeleteDoesNotBreakProbeChain(t *testing.T) {
	idx := newPathIndex()

	// Find three distinct paths that collide on the same bucket.
	bucket := -1
	var keys []string
	for i := 0; len(keys) < 3; i++ {
		p := fmt.Sprintf("/collide/%d", i)
		b := idx.bucket(p)
		if bucket == -1 {
			bucket = b
		}
		if b == bucket {
			keys = append(keys, p)
		}
	}

	for i, k := range keys {
		if !idx.Insert(k, i+1) {
			t.Fatalf("Insert(%q) failed", k)
		}
	}

	// Delete the middle key of the probe run; the last key must remain reachable.
	idx.Delete(keys[1])

	if slot := idx.Lookup(keys[2]); slot != 3 {
		t.Fatalf("Lookup(%q) = %d, want 3 after deleting a preceding probe entry", keys[2], slot)
	}
	if slot := idx.Lookup(keys[0]); slot != 1 {
		t.Fatalf("Lookup(%q) = %d, want 1", keys[0], slot)
	}
}

func TestPathIndexRandomInsertDeleteCycles(t *testing.T) {
	idx := newPathIndex()
	live := make(map[string]int)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 10000; i++ {
		key := fmt.Sprintf("/p/%d", rng.Intn(500))
		if _, ok := live[key]; ok {
			idx.Delete(key)
			delete(live, key)
			continue
		}
		slot := rng.Intn(1024)
		if idx.Insert(key, slot) {
			live[key] = slot
		}
	}

	for key, slot := range live {
		if got := idx.Lookup(key); got != slot {
			t.Fatalf("Lookup(%q) = %d, want %d", key, got, slot)
		}
	}
}
