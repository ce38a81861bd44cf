package hider

import (
	"github.com/Leantar/inohide/modules/watcher"
	"github.com/rs/zerolog/log"
)

// EventSeq is a single pass sequence of decoded events.
type EventSeq interface {
	Next() (watcher.Event, bool)
}

// NeedsHide reports whether a batch contains an event on the watched
// directory itself: IN_ISDIR without a child name. The whole batch is
// consumed either way.
func NeedsHide(events EventSeq) bool {
	hide := false
	for e, ok := events.Next(); ok; e, ok = events.Next() {
		if e.IsDir() && e.NameLen == 0 {
			hide = true
		}
	}

	return hide
}

// traced logs every event as it is pulled from the underlying sequence.
type traced struct {
	seq EventSeq
}

func (t traced) Next() (watcher.Event, bool) {
	e, ok := t.seq.Next()
	if !ok {
		return e, false
	}

	if e.Has(watcher.FlagQOverflow) {
		log.Warn().Msg("inotify event queue overflowed, events may be lost")
	}
	log.Debug().Stringer("event", e).Msg("event")

	return e, true
}
