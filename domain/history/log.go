package history

// Log is the ordered action history, newest entry first.
type Log []Entry

// NewLog returns an empty log.
func NewLog() Log {
	return Log{}
}

// Push prepends an entry, making it the new head.
func (l Log) Push(entry Entry) Log {
	out := make(Log, 0, len(l)+1)
	out = append(out, entry)
	out = append(out, l...)
	return out
}

// Pop removes and returns the head entry. ok is false on an empty log.
func (l Log) Pop() (entry Entry, rest Log, ok bool) {
	if len(l) == 0 {
		return Entry{}, l, false
	}
	return l[0], l[1:], true
}

// Prune removes entries whose timestamp is not strictly newer than cutoff.
// Entries without a timestamp are dropped as well. It returns the kept
// entries and the number removed.
func (l Log) Prune(cutoff int64) (Log, int) {
	kept := make(Log, 0, len(l))
	for _, entry := range l {
		if entry.Timestamp > cutoff {
			kept = append(kept, entry)
		}
	}
	return kept, len(l) - len(kept)
}
