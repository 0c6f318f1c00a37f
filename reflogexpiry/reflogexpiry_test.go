package reflogexpiry

import (
	"testing"

	"github.com/dacapoday/refdb/kv"
	"github.com/dacapoday/refdb/mem"
	"github.com/dacapoday/refdb/refcodec"
	"github.com/dacapoday/refdb/refdb"
)

func id(b byte) refcodec.ObjectID {
	var out refcodec.ObjectID
	out[0] = b
	return out
}

func committer() refcodec.Committer {
	return refcodec.Committer{Name: "A U Thor", Email: "author@example.com"}
}

func newTestBackend(t *testing.T) *refdb.Backend[*mem.File] {
	t.Helper()
	var file mem.File
	db := new(kv.KV[*mem.File])
	if err := db.Load(&file); err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var now int64
	return &refdb.Backend[*mem.File]{
		DB:    db,
		Clock: func() int64 { now++; return now },
	}
}

// prunePolicy prunes entries whose New value matches a target.
type prunePolicy struct {
	target refcodec.ObjectID
}

func (p *prunePolicy) Prepare(string, refcodec.ObjectID) {}
func (p *prunePolicy) Cleanup()                          {}
func (p *prunePolicy) ShouldPrune(old, new refcodec.ObjectID, _ refcodec.Committer, _ int64, _ int, _ string) bool {
	return new == p.target
}

func TestExpireWithRewrite(t *testing.T) {
	b := newTestBackend(t)
	tx := b.Begin(refdb.ModeReadWrite)

	o1, n1 := id(0), id(1)
	o2, n2 := id(1), id(2)
	o3, n3 := id(2), id(3)

	if err := b.Update(tx, "refs/heads/x", o1, n1, false, true, false, committer(), 0, "c1"); err != nil {
		t.Fatalf("Update 1: %v", err)
	}
	if err := b.Update(tx, "refs/heads/x", o2, n2, true, true, false, committer(), 0, "c2"); err != nil {
		t.Fatalf("Update 2: %v", err)
	}
	if err := b.Update(tx, "refs/heads/x", o3, n3, true, true, false, committer(), 0, "c3"); err != nil {
		t.Fatalf("Update 3: %v", err)
	}
	if err := b.End(tx, true); err != nil {
		t.Fatalf("End: %v", err)
	}

	policy := &prunePolicy{target: n2}
	result, err := Expire(b, "refs/heads/x", Rewrite, policy, committer(), 0)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if result.Pruned != 1 || result.Kept != 2 {
		t.Fatalf("Expire result = %+v, want Pruned=1 Kept=2", result)
	}

	tx = b.Begin(refdb.ModeReadOnly)
	var chain []refcodec.Entry
	if err := b.ForEachReflogEnt(tx, "refs/heads/x", func(e refcodec.Entry, _ int64) error {
		chain = append(chain, e)
		return nil
	}); err != nil {
		t.Fatalf("ForEachReflogEnt: %v", err)
	}

	if len(chain) != 2 {
		t.Fatalf("remaining chain length = %d, want 2", len(chain))
	}
	if chain[0].Old != o1 || chain[0].New != n1 {
		t.Fatalf("chain[0] = %+v, want old=%v new=%v", chain[0], o1, n1)
	}
	if chain[1].Old != n1 || chain[1].New != n3 {
		t.Fatalf("chain[1] = %+v, want old=%v (rewritten) new=%v", chain[1], n1, n3)
	}
}

func TestExpireDryRunLeavesStoreUnchanged(t *testing.T) {
	b := newTestBackend(t)
	tx := b.Begin(refdb.ModeReadWrite)
	if err := b.Update(tx, "refs/heads/x", refcodec.ObjectID{}, id(1), false, true, false, committer(), 0, "c1"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := b.End(tx, true); err != nil {
		t.Fatalf("End: %v", err)
	}

	policy := &prunePolicy{target: id(1)}
	result, err := Expire(b, "refs/heads/x", DryRun, policy, committer(), 0)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if result.Pruned != 1 {
		t.Fatalf("dry-run Pruned = %d, want 1 (counted, not applied)", result.Pruned)
	}

	tx = b.Begin(refdb.ModeReadOnly)
	var count int
	b.ForEachReflogEnt(tx, "refs/heads/x", func(refcodec.Entry, int64) error {
		count++
		return nil
	})
	if count != 1 {
		t.Fatalf("entries after dry-run = %d, want 1 (unchanged)", count)
	}
}
