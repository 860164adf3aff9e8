package cvfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Magic identifies a cvfs container file on disk. Stored little-endian, its
// first four bytes read "GMSF".
const Magic uint32 = 0x46534D47

// FormatVersion is the on-disk layout version written by this package.
const FormatVersion uint32 = 1

// MaxFiles is the fixed number of inode slots reserved in the inode table (N).
const MaxFiles = 1024

// BlockSize bounds the chunk size used when streaming payload bytes to and
// from the data region. It has no bearing on the on-disk layout itself.
const BlockSize = 4096

// SuperBlock is the fixed header at offset 0 of a container file. All
// integers are little-endian; the type is also the wire format, since every
// field is fixed-size.
type SuperBlock struct {
	Magic      uint32
	Version    uint32
	NumFiles   uint32
	MaxFiles   uint32
	DataOffset uint64
}

// superBlockSize is the on-disk size of SuperBlock (S in the data model).
var superBlockSize = binary.Size(SuperBlock{})

// inodeSize is the on-disk size of one inode slot (I in the data model).
var inodeSize = binary.Size(rawInode{})

// dataOffset returns the byte offset where the data region begins, i.e.
// S + N*I.
func dataOffset() uint64 {
	return uint64(superBlockSize) + uint64(MaxFiles)*uint64(inodeSize)
}

// inodeSlotOffset returns the deterministic on-disk offset of inode slot k.
func inodeSlotOffset(slot int) int64 {
	return int64(superBlockSize) + int64(slot)*int64(inodeSize)
}

// readSuperBlock reads and validates the SuperBlock at offset 0 of r. A file
// too short to hold a superblock is rejected with ErrBadMagic unless its
// first bytes do carry the magic, in which case the short read is an I/O
// error.
func readSuperBlock(r io.ReaderAt) (SuperBlock, error) {
	buf := make([]byte, superBlockSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		if (err == io.EOF || err == io.ErrUnexpectedEOF) && binary.LittleEndian.Uint32(buf[:4]) != Magic {
			return SuperBlock{}, ErrBadMagic
		}
		return SuperBlock{}, fmt.Errorf("cvfs: reading superblock: %w", err)
	}

	var sb SuperBlock
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &sb); err != nil {
		return SuperBlock{}, fmt.Errorf("cvfs: decoding superblock: %w", err)
	}

	if sb.Magic != Magic {
		return SuperBlock{}, ErrBadMagic
	}

	return sb, nil
}

// writeSuperBlock writes sb to offset 0 of w.
func writeSuperBlock(w io.WriterAt, sb SuperBlock) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, sb); err != nil {
		return fmt.Errorf("cvfs: encoding superblock: %w", err)
	}
	if _, err := w.WriteAt(buf.Bytes(), 0); err != nil {
		return fmt.Errorf("cvfs: writing superblock: %w", err)
	}
	return nil
}
