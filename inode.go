package cvfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// rawInode is the bit-exact on-disk layout of one inode slot: a
// NUL-terminated filename, a NUL-terminated parent path, and fixed-width
// metadata. It is never exposed directly; Inode is the friendly wrapper.
type rawInode struct {
	Filename    [MaxFilename]byte
	ParentPath  [MaxPath]byte
	IsDirectory uint32
	Size        uint64
	Offset      uint64
	Created     int64
	Modified    int64
}

// Inode is the in-memory, decoded form of a single slot in the inode table.
type Inode struct {
	Filename    string
	ParentPath  string
	IsDirectory bool
	Size        uint64
	Offset      uint64
	Created     time.Time
	Modified    time.Time
}

// Free reports whether this Inode represents an unused slot, i.e. its
// filename's first byte on disk is NUL.
func (ino *Inode) Free() bool {
	return ino.Filename == ""
}

// FullPath returns the inode's absolute path: ParentPath + "/" + Filename,
// with "//" collapsed to "/" at the root.
func (ino *Inode) FullPath() string {
	return Join(ino.ParentPath, ino.Filename)
}

func cString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

func putCString(dst []byte, s string) error {
	if len(s) > len(dst)-1 {
		return fmt.Errorf("cvfs: value %q exceeds field width %d", s, len(dst)-1)
	}
	clear(dst)
	copy(dst, s)
	return nil
}

func (ino *Inode) toRaw() (rawInode, error) {
	var raw rawInode
	if err := putCString(raw.Filename[:], ino.Filename); err != nil {
		return raw, err
	}
	if err := putCString(raw.ParentPath[:], ino.ParentPath); err != nil {
		return raw, err
	}
	if ino.IsDirectory {
		raw.IsDirectory = 1
	}
	raw.Size = ino.Size
	raw.Offset = ino.Offset
	raw.Created = ino.Created.Unix()
	raw.Modified = ino.Modified.Unix()
	return raw, nil
}

func fromRaw(raw rawInode) Inode {
	return Inode{
		Filename:    cString(raw.Filename[:]),
		ParentPath:  cString(raw.ParentPath[:]),
		IsDirectory: raw.IsDirectory != 0,
		Size:        raw.Size,
		Offset:      raw.Offset,
		Created:     time.Unix(raw.Created, 0),
		Modified:    time.Unix(raw.Modified, 0),
	}
}

// readInode reads and decodes the inode at slot k, seeking to its
// deterministic offset. It never scans.
func readInode(r io.ReaderAt, slot int) (Inode, error) {
	buf := make([]byte, inodeSize)
	if _, err := r.ReadAt(buf, inodeSlotOffset(slot)); err != nil {
		return Inode{}, fmt.Errorf("cvfs: reading inode slot %d: %w", slot, err)
	}

	var raw rawInode
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &raw); err != nil {
		return Inode{}, fmt.Errorf("cvfs: decoding inode slot %d: %w", slot, err)
	}

	return fromRaw(raw), nil
}

// writeInode encodes and writes ino to its deterministic offset for slot k.
func writeInode(w io.WriterAt, slot int, ino Inode) error {
	raw, err := ino.toRaw()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Grow(inodeSize)
	if err := binary.Write(&buf, binary.LittleEndian, raw); err != nil {
		return fmt.Errorf("cvfs: encoding inode slot %d: %w", slot, err)
	}

	if _, err := w.WriteAt(buf.Bytes(), inodeSlotOffset(slot)); err != nil {
		return fmt.Errorf("cvfs: writing inode slot %d: %w", slot, err)
	}
	return nil
}
