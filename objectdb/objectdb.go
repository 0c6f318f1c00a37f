// Package objectdb describes the object-database collaborator that the
// reference store calls out to: it never parses commit/tree/tag payloads
// itself, only asks whether an id exists, what type it is, and whether a
// tag peels to something else.
//
// There is no object model anywhere in the teacher engine this module was
// built from; Memory below is a minimal adapter with no grounding source
// beyond the shape of git_object_info/parse_object/deref_tag_noverify in
// the original C implementation, noted in DESIGN.md.
package objectdb

import (
	"errors"

	"github.com/dacapoday/refdb/refcodec"
)

// ObjType is the type tag of a stored object.
type ObjType uint8

const (
	TypeUnknown ObjType = iota
	TypeCommit
	TypeTree
	TypeBlob
	TypeTag
)

func (t ObjType) String() string {
	switch t {
	case TypeCommit:
		return "commit"
	case TypeTree:
		return "tree"
	case TypeBlob:
		return "blob"
	case TypeTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Object is the minimal view of an object the core needs: its type, and,
// for tags, the id it points at.
type Object struct {
	ID     refcodec.ObjectID
	Type   ObjType
	Target refcodec.ObjectID // valid when Type == TypeTag
}

// ErrNotFound is returned when an id has no corresponding object.
var ErrNotFound = errors.New("object not found")

// Store is the object database contract: type lookup, parsing (for the
// commit-on-branch check), and tag peeling.
type Store interface {
	Has(id refcodec.ObjectID) bool
	GetType(id refcodec.ObjectID) (ObjType, error)
	Parse(id refcodec.ObjectID) (Object, error)
	// PeelTag returns the object a tag points to, or ok=false if o is not a
	// tag.
	PeelTag(o Object) (Object, bool)
}

// Memory is an in-memory Store, used by tests and as the default Store
// refs.Open wires into a Repository when the caller has no real object
// database to hand it (refs.OpenWithObjects accepts one instead).
type Memory struct {
	objects map[refcodec.ObjectID]Object
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[refcodec.ObjectID]Object)}
}

// Put registers an object, overwriting any previous object under the same
// id.
func (m *Memory) Put(o Object) {
	if m.objects == nil {
		m.objects = make(map[refcodec.ObjectID]Object)
	}
	m.objects[o.ID] = o
}

func (m *Memory) Has(id refcodec.ObjectID) bool {
	_, ok := m.objects[id]
	return ok
}

func (m *Memory) GetType(id refcodec.ObjectID) (ObjType, error) {
	o, ok := m.objects[id]
	if !ok {
		return TypeUnknown, ErrNotFound
	}
	return o.Type, nil
}

func (m *Memory) Parse(id refcodec.ObjectID) (Object, error) {
	o, ok := m.objects[id]
	if !ok {
		return Object{}, ErrNotFound
	}
	return o, nil
}

func (m *Memory) PeelTag(o Object) (Object, bool) {
	if o.Type != TypeTag {
		return Object{}, false
	}
	target, ok := m.objects[o.Target]
	if !ok {
		return Object{}, false
	}
	return target, true
}

// Peel follows a chain of tags down to the first non-tag object, matching
// peel_ref's PEELED/NON_TAG/INVALID handling. It returns ok=false if id does
// not resolve to an object at all.
func Peel(store Store, id refcodec.ObjectID) (refcodec.ObjectID, bool) {
	o, err := store.Parse(id)
	if err != nil {
		return refcodec.ObjectID{}, false
	}
	for o.Type == TypeTag {
		next, ok := store.PeelTag(o)
		if !ok {
			return refcodec.ObjectID{}, false
		}
		o = next
	}
	return o.ID, true
}
