package watcher

import "errors"

var (
	ErrWatchInit = errors.New("inotify init failed")
	ErrWatchAdd  = errors.New("inotify add watch failed")
	ErrWatchRead = errors.New("inotify read failed")
)

// DefaultNameMax is used when the filesystem does not report a maximum
// filename length.
const DefaultNameMax = 511

// BufferSize returns a read buffer size holding batch records that each
// carry a name of up to nameMax bytes plus its terminator.
func BufferSize(nameMax, batch int) int {
	return batch * (HeaderSize + nameMax + 1)
}
