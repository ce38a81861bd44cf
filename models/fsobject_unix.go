//go:build darwin || linux

package models

import (
	"fmt"
	"golang.org/x/sys/unix"
)

const (
	S_IFMT  = 0o0170000
	S_IFREG = 0o0100000
)

// ReadAttributes captures mode and ownership of path. Symlinks are followed,
// the protected file is whatever the path resolves to.
func ReadAttributes(path string) (FileAttr, error) {
	var stat unix.Stat_t

	err := unix.Stat(path, &stat)
	if err != nil {
		return FileAttr{}, fmt.Errorf("%w: stat %s: %w", ErrAttributeQuery, path, err)
	}

	return FileAttr{
		Path: path,
		Mode: uint32(stat.Mode),
		Uid:  stat.Uid,
		Gid:  stat.Gid,
	}, nil
}

// IsWritable reports whether the calling process may write path.
func IsWritable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}
