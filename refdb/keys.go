package refdb

import (
	"bytes"
	"encoding/binary"
)

const (
	refsPrefix = "refs/"
	logsPrefix = "logs/"
	stampSize  = 8
)

// refKey builds the NUL-terminated key under which name's reference value
// is stored. The trailing NUL guarantees "refs/a\x00" sorts before
// "refs/a/b\x00" even though 'a' is a proper prefix of 'a/b', since 0x00
// sorts below '/'.
func refKey(name string) []byte {
	key := make([]byte, 0, len(refsPrefix)+len(name)+1)
	key = append(key, refsPrefix...)
	key = append(key, name...)
	key = append(key, 0)
	return key
}

// logsHeaderKey builds the key marking reflog existence for name. It is a
// byte-for-byte prefix of every entry key for the same name (entry keys
// append exactly 8 more bytes), which is what lets a single prefix scan
// enumerate header-or-entries and what lets the header be distinguished by
// length alone.
func logsHeaderKey(name string) []byte {
	key := make([]byte, 0, len(logsPrefix)+len(name)+1)
	key = append(key, logsPrefix...)
	key = append(key, name...)
	key = append(key, 0)
	return key
}

// logsEntryKey builds the key for a single reflog entry at the given
// nanosecond timestamp.
func logsEntryKey(name string, stampNanos int64) []byte {
	key := logsHeaderKey(name)
	key = binary.BigEndian.AppendUint64(key, uint64(stampNanos))
	return key
}

// isEntryKey reports whether key is a reflog entry key (header + 8 bytes)
// under header, as opposed to the bare header key itself. This is the
// explicit header-vs-entry filter called for in the design notes: entries
// are distinguished by length relative to their header, not by sniffing for
// an all-zero timestamp suffix.
func isEntryKey(key, header []byte) bool {
	return len(key) == len(header)+stampSize && bytes.HasPrefix(key, header)
}

func entryStamp(key, header []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(header):]))
}

// nameFromRefKey strips refsPrefix and the trailing NUL, returning the bare
// reference name stored under key. Panics if key is not a well-formed ref
// key; callers only call this on keys already known to begin with refsPrefix.
func nameFromRefKey(key []byte) string {
	return string(key[len(refsPrefix) : len(key)-1])
}
