// Package history keeps the linear undo/redo log of mask snapshots.
package history

import "github.com/manash/roomedit/pkg/models"

// Log is an ordered list of snapshots with a cursor. The cursor is -1 when no
// snapshot is current ("no mask"), otherwise an index into entries. An empty
// snapshot is stored as nil.
type Log struct {
	entries []*models.Image
	cursor  int
}

func New() *Log {
	return &Log{cursor: -1}
}

// Record drops everything after the cursor, appends s and makes it current.
func (l *Log) Record(s *models.Image) {
	if s.Empty() {
		s = nil
	}
	l.entries = append(l.entries[:l.cursor+1], s)
	l.cursor = len(l.entries) - 1
}

// Undo steps back one entry. Stepping back from the first entry yields the
// empty snapshot and cursor -1. ok is false when there is nothing to undo.
func (l *Log) Undo() (snapshot *models.Image, ok bool) {
	switch {
	case l.cursor > 0:
		l.cursor--
		return l.entries[l.cursor], true
	case l.cursor == 0:
		l.cursor = -1
		return nil, true
	default:
		return nil, false
	}
}

// Redo steps forward one entry. ok is false at the end of the log.
func (l *Log) Redo() (snapshot *models.Image, ok bool) {
	if l.cursor >= len(l.entries)-1 {
		return nil, false
	}
	l.cursor++
	return l.entries[l.cursor], true
}

// Reset empties the log.
func (l *Log) Reset() {
	l.entries = nil
	l.cursor = -1
}

func (l *Log) Len() int {
	return len(l.entries)
}

func (l *Log) Cursor() int {
	return l.cursor
}

func (l *Log) CanUndo() bool {
	return l.cursor >= 0
}

func (l *Log) CanRedo() bool {
	return l.cursor < len(l.entries)-1
}

// Current returns the snapshot at the cursor, nil for "no mask".
func (l *Log) Current() *models.Image {
	if l.cursor < 0 {
		return nil
	}
	return l.entries[l.cursor]
}

// Entries returns a copy of the log.
func (l *Log) Entries() []*models.Image {
	out := make([]*models.Image, len(l.entries))
	copy(out, l.entries)
	return out
}
