package refcodec

import (
	"bytes"
	"testing"
)

func mustID(t *testing.T, s string) ObjectID {
	t.Helper()
	id, err := ParseObjectID(s)
	if err != nil {
		t.Fatalf("ParseObjectID(%q): %v", s, err)
	}
	return id
}

func TestEncodeDecodeDirect(t *testing.T) {
	id := mustID(t, "1111111111111111111111111111111111111111")
	encoded := EncodeDirect(id)
	if len(encoded) != 41 || encoded[40] != 0 {
		t.Fatalf("EncodeDirect length/terminator wrong: %q", encoded)
	}
	val := DecodeValue(encoded)
	if val.Kind != Direct || val.ID != id {
		t.Fatalf("DecodeValue(EncodeDirect(id)) = %+v, want Direct %v", val, id)
	}
}

func TestEncodeDecodeSymbolic(t *testing.T) {
	encoded := EncodeSymbolic("refs/heads/main")
	val := DecodeValue(encoded)
	if val.Kind != Symbolic || val.Target != "refs/heads/main" {
		t.Fatalf("DecodeValue(EncodeSymbolic) = %+v, want Symbolic refs/heads/main", val)
	}
}

func TestDecodeValueBroken(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("short"),
		append(bytes.Repeat([]byte("g"), 40), 0),
		append([]byte("1111111111111111111111111111111111111111"), 'x'),
	}
	for _, b := range cases {
		if v := DecodeValue(b); v.Kind != Broken {
			t.Fatalf("DecodeValue(%q) = %+v, want Broken", b, v)
		}
	}
}

func TestReflogRoundTrip(t *testing.T) {
	old := mustID(t, "0000000000000000000000000000000000000000")
	new := mustID(t, "2222222222222222222222222222222222222222")
	committer := Committer{Name: "A U Thor", Email: "author@example.com"}

	line := FormatReflogEntry(old, new, committer, 1700000000, -420, "commit: initial\nsecond line")
	line = append(line, 0)

	entry, err := ParseReflogLine(line[:len(line)-1])
	if err != nil {
		t.Fatalf("ParseReflogLine: %v", err)
	}
	if entry.Old != old || entry.New != new {
		t.Fatalf("ParseReflogLine ids = %v/%v, want %v/%v", entry.Old, entry.New, old, new)
	}
	if entry.Committer != committer {
		t.Fatalf("ParseReflogLine committer = %+v, want %+v", entry.Committer, committer)
	}
	if entry.Timestamp != 1700000000 || entry.TZOffset != -420 {
		t.Fatalf("ParseReflogLine ts/tz = %d/%d, want 1700000000/-420", entry.Timestamp, entry.TZOffset)
	}
	if entry.Message != "commit: initial second line" {
		t.Fatalf("ParseReflogLine message = %q, want collapsed single line", entry.Message)
	}
}

func TestReflogLineMinimumLength(t *testing.T) {
	old := mustID(t, "0000000000000000000000000000000000000000")
	new := mustID(t, "0000000000000000000000000000000000000000")
	committer := Committer{Name: "a", Email: "a@a"}

	line := FormatReflogEntry(old, new, committer, 0, 0, "")
	if len(line) < 83 {
		t.Skip("synthetic minimal line shorter than 83 bytes for this fixture; boundary covered by ParseReflogLine directly")
	}
	if _, err := ParseReflogLine(line); err != nil {
		t.Fatalf("ParseReflogLine of minimal line: %v", err)
	}

	short := line[:len(line)-2]
	short[len(short)-1] = '\n'
	if _, err := ParseReflogLine(short[:82]); err == nil {
		t.Fatalf("ParseReflogLine of 82-byte line should fail")
	}
}
