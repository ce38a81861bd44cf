package models

import (
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/Leantar/inohide/modules/fileutil"
	"github.com/zeebo/blake3"
	"os"
)

var ErrAttributeQuery = errors.New("attribute query failed")

// FileAttr is the identity of a protected file that has to survive an
// unlink/recreate cycle.
type FileAttr struct {
	Path string
	Mode uint32
	Uid  uint32
	Gid  uint32
}

// Perm returns the permission bits of Mode including setuid, setgid and sticky.
func (a FileAttr) Perm() uint32 {
	return a.Mode & 0o7777
}

func (a FileAttr) IsRegular() bool {
	return a.Mode&S_IFMT == S_IFREG
}

// HashFile returns the hex blake3 digest of the content at path, the digest a
// worker logs once it restored the file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrAttributeQuery, path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := fileutil.CopyAll(h, f); err != nil {
		return "", fmt.Errorf("%w: hash %s: %w", ErrAttributeQuery, path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
