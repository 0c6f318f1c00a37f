package refregistry

import (
	"errors"
	"testing"

	"github.com/dacapoday/refdb/refcodec"
)

type stubBackend struct{ name string }

func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) Resolve(name string) (string, refcodec.ObjectID, bool, error) {
	return name, refcodec.ObjectID{}, false, nil
}
func (s *stubBackend) ForEach(string, func(string, refcodec.ObjectID) error) error { return nil }

func TestRegisterSelectActive(t *testing.T) {
	r := NewRegistry()
	kv := &stubBackend{name: "kv"}
	if err := r.Register(kv); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !r.Exists("kv") {
		t.Fatalf("Exists(kv) = false")
	}
	if r.Exists("files") {
		t.Fatalf("Exists(files) = true, want false")
	}

	if err := r.SetActive("kv"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if r.Active() != Backend(kv) {
		t.Fatalf("Active() did not return the registered backend")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubBackend{name: "kv"})
	err := r.Register(&stubBackend{name: "kv"})
	if !errors.Is(err, ErrBackendExists) {
		t.Fatalf("Register duplicate = %v, want ErrBackendExists", err)
	}
}

func TestSetActiveUnknown(t *testing.T) {
	r := NewRegistry()
	err := r.SetActive("missing")
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("SetActive(missing) = %v, want ErrUnknownBackend", err)
	}
}
