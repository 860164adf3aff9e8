package cvfs

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrBadMagic is returned when a container file does not begin with the expected superblock magic.
	ErrBadMagic = errors.New("cvfs: invalid container, bad superblock magic")

	// ErrNotFound is returned when the named path is not present in the namespace.
	ErrNotFound = errors.New("cvfs: path not found")

	// ErrExists is returned when a mutation would create a duplicate path.
	ErrExists = errors.New("cvfs: path already exists")

	// ErrNoParent is returned when the parent directory of a new path does not exist.
	ErrNoParent = errors.New("cvfs: parent directory does not exist")

	// ErrIsDir is returned when a file-only operation is requested on a directory.
	ErrIsDir = errors.New("cvfs: is a directory")

	// ErrNotEmpty is returned when a non-recursive delete targets a non-empty directory.
	ErrNotEmpty = errors.New("cvfs: directory not empty")

	// ErrFull is returned when no free inode slot remains, or the path hash index is saturated.
	ErrFull = errors.New("cvfs: container is full")

	// ErrRoot is returned when an operation that cannot target "/" is asked to do so.
	ErrRoot = errors.New("cvfs: operation not permitted on root")

	// ErrInvalid is returned when a move would place a directory inside itself or one of its own descendants.
	ErrInvalid = errors.New("cvfs: destination is inside source")
)
