package objectdb

import (
	"testing"

	"github.com/dacapoday/refdb/refcodec"
)

func id(b byte) refcodec.ObjectID {
	var out refcodec.ObjectID
	out[0] = b
	return out
}

func TestMemoryPeelTag(t *testing.T) {
	store := NewMemory()
	commit := Object{ID: id(1), Type: TypeCommit}
	tag := Object{ID: id(2), Type: TypeTag, Target: commit.ID}
	store.Put(commit)
	store.Put(tag)

	peeled, ok := Peel(store, tag.ID)
	if !ok || peeled != commit.ID {
		t.Fatalf("Peel(tag) = %v, %v; want %v, true", peeled, ok, commit.ID)
	}

	peeled, ok = Peel(store, commit.ID)
	if !ok || peeled != commit.ID {
		t.Fatalf("Peel(commit) = %v, %v; want %v, true", peeled, ok, commit.ID)
	}
}

func TestMemoryNotFound(t *testing.T) {
	store := NewMemory()
	if store.Has(id(9)) {
		t.Fatalf("Has on empty store returned true")
	}
	if _, err := store.GetType(id(9)); err != ErrNotFound {
		t.Fatalf("GetType on missing id = %v, want ErrNotFound", err)
	}
	if _, ok := Peel(store, id(9)); ok {
		t.Fatalf("Peel on missing id returned ok=true")
	}
}
