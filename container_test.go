package cvfs_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KarpelesLab/cvfs"
)

func writeHostFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

// TestRoundTrip: create, mkdir, add a file, close, reopen, extract it back
// out.
func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")
	hostFile := writeHostFile(t, dir, "hello.txt", []byte("Hello\n"))

	require.NoError(t, cvfs.Create(containerPath))

	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)

	require.NoError(t, c.Mkdir("/docs"))
	require.NoError(t, c.AddFile("/docs/hello.txt", hostFile))
	require.NoError(t, c.Close())

	c, err = cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	outPath := filepath.Join(dir, "out.txt")
	require.NoError(t, c.ExtractFile("/docs/hello.txt", outPath))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, []byte("Hello\n"), got)
	require.EqualValues(t, 2, c.NumFiles())
}

// TestCopy checks that copying a file yields two independent, equal-sized,
// non-overlapping payload regions.
func TestCopy(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")
	hostFile := writeHostFile(t, dir, "hello.txt", []byte("Hello\n"))

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Mkdir("/docs"))
	require.NoError(t, c.AddFile("/docs/hello.txt", hostFile))
	require.NoError(t, c.CopyFile("/docs/hello.txt", "/docs/hi.txt"))

	require.EqualValues(t, 3, c.NumFiles())

	srcSlot, ok := c.LookupByPath("/docs/hello.txt")
	require.True(t, ok)
	dstSlot, ok := c.LookupByPath("/docs/hi.txt")
	require.True(t, ok)

	srcIno, err := c.InodeOf(srcSlot)
	require.NoError(t, err)
	dstIno, err := c.InodeOf(dstSlot)
	require.NoError(t, err)

	require.Equal(t, srcIno.Size, dstIno.Size)
	require.NotEqual(t, srcIno.Offset, dstIno.Offset)

	srcEnd := srcIno.Offset + srcIno.Size
	dstEnd := dstIno.Offset + dstIno.Size
	overlap := srcIno.Offset < dstEnd && dstIno.Offset < srcEnd
	require.False(t, overlap, "copied file intervals must not overlap")
}

// TestMoveFile checks that a rename preserves the inode slot while
// updating its path.
func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")
	hostFile := writeHostFile(t, dir, "hi.txt", []byte("hi"))

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Mkdir("/docs"))
	require.NoError(t, c.AddFile("/docs/hi.txt", hostFile))

	before, ok := c.LookupByPath("/docs/hi.txt")
	require.True(t, ok)

	require.NoError(t, c.MoveFile("/docs/hi.txt", "/hi.txt"))

	_, ok = c.LookupByPath("/docs/hi.txt")
	require.False(t, ok)

	after, ok := c.LookupByPath("/hi.txt")
	require.True(t, ok)
	require.Equal(t, before, after)

	ino, err := c.InodeOf(after)
	require.NoError(t, err)
	require.Equal(t, "/", ino.ParentPath)
	require.Equal(t, "hi.txt", ino.Filename)
}

// TestDirectoryCascade checks that moving a non-empty directory rewrites
// every descendant's path and preserves file contents.
func TestDirectoryCascade(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")
	hostFile := writeHostFile(t, dir, "x", []byte("x"))

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Mkdir("/a"))
	require.NoError(t, c.Mkdir("/a/b"))
	require.NoError(t, c.AddFile("/a/b/x", hostFile))

	require.NoError(t, c.MoveFile("/a", "/c"))

	for _, p := range []string{"/a", "/a/b", "/a/b/x"} {
		_, ok := c.LookupByPath(p)
		require.False(t, ok, "%s should no longer exist", p)
	}

	for _, p := range []string{"/c", "/c/b", "/c/b/x"} {
		_, ok := c.LookupByPath(p)
		require.True(t, ok, "%s should exist", p)
	}

	slot, _ := c.LookupByPath("/c/b/x")
	fr, err := c.ReadFile(slot)
	require.NoError(t, err)
	buf := make([]byte, 1)
	n, _ := fr.Read(buf)
	require.Equal(t, 1, n)
	require.Equal(t, byte('x'), buf[0])
}

// TestDirectoryCascadeDoesNotMatchSiblingPrefix guards against the
// unaligned-prefix bug: moving /foo must never touch /foobar.
func TestDirectoryCascadeDoesNotMatchSiblingPrefix(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Mkdir("/foo"))
	require.NoError(t, c.Mkdir("/foobar"))
	require.NoError(t, c.Mkdir("/foo/inner"))

	require.NoError(t, c.MoveFile("/foo", "/moved"))

	_, ok := c.LookupByPath("/foobar")
	require.True(t, ok, "/foobar must survive a move of /foo")

	_, ok = c.LookupByPath("/moved/inner")
	require.True(t, ok)
}

// TestRecursiveDelete checks that deleting a directory tree frees every
// descendant slot.
func TestRecursiveDelete(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")
	hostFile := writeHostFile(t, dir, "x", []byte("x"))

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Mkdir("/a"))
	require.NoError(t, c.Mkdir("/a/b"))
	require.NoError(t, c.AddFile("/a/b/x", hostFile))
	require.NoError(t, c.MoveFile("/a", "/c"))

	require.NoError(t, c.Delete("/c", true, false))
	require.EqualValues(t, 0, c.NumFiles())

	for _, p := range []string{"/c", "/c/b", "/c/b/x"} {
		_, ok := c.LookupByPath(p)
		require.False(t, ok)
	}
}

// TestBadMagic checks that opening a non-container file is rejected.
func TestBadMagic(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "garbage.cvfs")
	require.NoError(t, os.WriteFile(p, []byte{0x00}, 0o644))

	_, err := cvfs.Open(p)
	require.ErrorIs(t, err, cvfs.ErrBadMagic)
}

func TestMkdirExistsAndDeleteRoundtrip(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Mkdir("/docs"))
	require.ErrorIs(t, c.Mkdir("/docs"), cvfs.ErrExists)
	require.NoError(t, c.Delete("/docs", false, false))
	require.NoError(t, c.Mkdir("/docs"))
}

func TestMoveMissingDestParent(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")
	hostFile := writeHostFile(t, dir, "f", []byte("f"))

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.AddFile("/f", hostFile))
	err = c.MoveFile("/f", "/nope/f")
	require.ErrorIs(t, err, cvfs.ErrNoParent)

	_, ok := c.LookupByPath("/f")
	require.True(t, ok, "src must be untouched on NoParent")
}

func TestMoveDirectoryIntoItselfRejected(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Mkdir("/a"))
	err = c.MoveFile("/a", "/a/sub")
	require.ErrorIs(t, err, cvfs.ErrInvalid)

	_, ok := c.LookupByPath("/a")
	require.True(t, ok, "src must be untouched when the move is rejected")
}

func TestAddFileCopyFileMoveFileRejectRootDestination(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")
	hostFile := writeHostFile(t, dir, "f", []byte("f"))

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	require.ErrorIs(t, c.AddFile("/", hostFile), cvfs.ErrRoot)

	require.NoError(t, c.AddFile("/f", hostFile))
	require.ErrorIs(t, c.CopyFile("/f", "/"), cvfs.ErrRoot)
	require.ErrorIs(t, c.MoveFile("/f", "/"), cvfs.ErrRoot)

	require.EqualValues(t, 1, c.NumFiles())
}

func TestZeroByteFile(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")
	hostFile := writeHostFile(t, dir, "empty", nil)

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.AddFile("/empty", hostFile))
	slot, ok := c.LookupByPath("/empty")
	require.True(t, ok)
	ino, err := c.InodeOf(slot)
	require.NoError(t, err)
	require.EqualValues(t, 0, ino.Size)

	outPath := filepath.Join(dir, "out-empty")
	require.NoError(t, c.ExtractFile("/empty", outPath))
	info, err := os.Stat(outPath)
	require.NoError(t, err)
	require.EqualValues(t, 0, info.Size())
}

func TestFillAllSlotsThenOneMoreIsFull(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < cvfs.MaxFiles; i++ {
		require.NoError(t, c.Mkdir("/d"+strconv.Itoa(i)))
	}

	err = c.Mkdir("/overflow")
	require.ErrorIs(t, err, cvfs.ErrFull)
}

func TestCloseReopenPreservesListing(t *testing.T) {
	dir := t.TempDir()
	containerPath := filepath.Join(dir, "image.cvfs")
	hostFile := writeHostFile(t, dir, "a", []byte("aaa"))

	require.NoError(t, cvfs.Create(containerPath))
	c, err := cvfs.Open(containerPath)
	require.NoError(t, err)

	require.NoError(t, c.Mkdir("/x"))
	require.NoError(t, c.AddFile("/x/a", hostFile))
	require.NoError(t, c.Close())

	c, err = cvfs.Open(containerPath)
	require.NoError(t, err)
	defer c.Close()

	children, err := c.List("/x")
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, "a", children[0].Filename)
}
