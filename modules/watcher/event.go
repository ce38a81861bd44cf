package watcher

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Linux inotify event flags (kernel ABI, see <sys/inotify.h>).
const (
	FlagAccess       uint32 = 0x00000001
	FlagModify       uint32 = 0x00000002
	FlagAttrib       uint32 = 0x00000004
	FlagCloseWrite   uint32 = 0x00000008
	FlagCloseNoWrite uint32 = 0x00000010
	FlagOpen         uint32 = 0x00000020
	FlagMovedFrom    uint32 = 0x00000040
	FlagMovedTo      uint32 = 0x00000080
	FlagCreate       uint32 = 0x00000100
	FlagDelete       uint32 = 0x00000200
	FlagDeleteSelf   uint32 = 0x00000400
	FlagMoveSelf     uint32 = 0x00000800
	FlagUnmount      uint32 = 0x00002000
	FlagQOverflow    uint32 = 0x00004000
	FlagIgnored      uint32 = 0x00008000
	FlagExclUnlink   uint32 = 0x04000000
	FlagIsDir        uint32 = 0x40000000
)

// HideMask is the watch mask for the parent directory of a protected file:
// opens, restricted to entries that are still linked.
const HideMask = FlagOpen | FlagExclUnlink

// HeaderSize is the size of struct inotify_event without its name.
const HeaderSize = 16

var ErrTruncated = errors.New("truncated event record")

var flagNames = []struct {
	flag uint32
	name string
}{
	{FlagAccess, "IN_ACCESS"},
	{FlagAttrib, "IN_ATTRIB"},
	{FlagCloseNoWrite, "IN_CLOSE_NOWRITE"},
	{FlagCloseWrite, "IN_CLOSE_WRITE"},
	{FlagCreate, "IN_CREATE"},
	{FlagDelete, "IN_DELETE"},
	{FlagDeleteSelf, "IN_DELETE_SELF"},
	{FlagIgnored, "IN_IGNORED"},
	{FlagIsDir, "IN_ISDIR"},
	{FlagModify, "IN_MODIFY"},
	{FlagMoveSelf, "IN_MOVE_SELF"},
	{FlagMovedFrom, "IN_MOVED_FROM"},
	{FlagMovedTo, "IN_MOVED_TO"},
	{FlagOpen, "IN_OPEN"},
	{FlagQOverflow, "IN_Q_OVERFLOW"},
	{FlagUnmount, "IN_UNMOUNT"},
}

// Event is one decoded inotify record. NameLen is the length of the name
// field as reported by the kernel, padding included.
type Event struct {
	Wd      int32
	Mask    uint32
	Cookie  uint32
	NameLen uint32
	Name    string
}

func (e Event) Has(flag uint32) bool {
	return e.Mask&flag != 0
}

func (e Event) IsDir() bool {
	return e.Has(FlagIsDir)
}

// Flags renders the mask as space separated flag names.
func (e Event) Flags() string {
	var names []string
	for _, f := range flagNames {
		if e.Mask&f.flag != 0 {
			names = append(names, f.name)
		}
	}

	return strings.Join(names, " ")
}

func (e Event) String() string {
	if e.Name == "" {
		return fmt.Sprintf("wd=%d %s", e.Wd, e.Flags())
	}

	return fmt.Sprintf("wd=%d %s name=%q", e.Wd, e.Flags(), e.Name)
}

// Batch decodes the records of a single read lazily. It is a single pass
// view over a buffer that the Source reuses, so it must be drained before
// the next ReadBatch.
//
// The layout of each record is:
//
//	struct inotify_event {
//	    int32_t  wd;
//	    uint32_t mask;
//	    uint32_t cookie;
//	    uint32_t len;     // length of name, NUL padded
//	    char     name[];
//	}
type Batch struct {
	buf []byte
	off int
	err error
}

// NewBatch returns a decoder over exactly buf. The caller slices buf to the
// byte count returned by the read.
func NewBatch(buf []byte) *Batch {
	return &Batch{buf: buf}
}

// Next returns the next record. It returns false at the end of the buffer or
// when a record runs past it; Err tells the two apart.
func (b *Batch) Next() (Event, bool) {
	if b.err != nil || b.off >= len(b.buf) {
		return Event{}, false
	}

	rest := b.buf[b.off:]
	if len(rest) < HeaderSize {
		b.err = fmt.Errorf("%w: %d trailing bytes at offset %d", ErrTruncated, len(rest), b.off)
		return Event{}, false
	}

	e := Event{
		Wd:      int32(binary.NativeEndian.Uint32(rest[0:4])),
		Mask:    binary.NativeEndian.Uint32(rest[4:8]),
		Cookie:  binary.NativeEndian.Uint32(rest[8:12]),
		NameLen: binary.NativeEndian.Uint32(rest[12:16]),
	}

	if uint64(e.NameLen) > uint64(len(rest)-HeaderSize) {
		b.err = fmt.Errorf("%w: name of %d bytes at offset %d exceeds buffer", ErrTruncated, e.NameLen, b.off)
		return Event{}, false
	}

	end := HeaderSize + int(e.NameLen)
	if e.NameLen > 0 {
		e.Name = string(bytes.TrimRight(rest[HeaderSize:end], "\x00"))
	}
	b.off += end

	return e, true
}

// Consumed returns the number of bytes decoded so far.
func (b *Batch) Consumed() int {
	return b.off
}

func (b *Batch) Err() error {
	return b.err
}
