package chainstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mskd12/skip-checkpoint-chain/skipchain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func appendChain(t *testing.T, store *Store, b *skipchain.Builder, n uint64) []*skipchain.Checkpoint {
	t.Helper()
	chain := []*skipchain.Checkpoint{b.Genesis([]byte("genesis"))}
	if err := store.Append(chain[0], []byte("genesis")); err != nil {
		t.Fatal(err)
	}
	for seq := uint64(1); seq <= n; seq++ {
		payload := []byte(fmt.Sprintf("payload-%d", seq))
		c, err := b.Next(chain[seq-1], payload)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Append(c, payload); err != nil {
			t.Fatal(err)
		}
		chain = append(chain, c)
	}
	return chain
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	b, err := skipchain.NewBuilder(skipchain.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetParams(b.Params()); err != nil {
		t.Fatal(err)
	}
	chain := appendChain(t, store, b, 30)

	head, ok, err := store.Head()
	if err != nil || !ok {
		t.Fatalf("head: ok=%v err=%v", ok, err)
	}
	if head.Seq != 30 || head.Digest != chain[30].Digest {
		t.Fatalf("head is %v", head)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Everything must survive a reopen.
	store, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	params, ok, err := store.Params()
	if err != nil || !ok {
		t.Fatalf("params: ok=%v err=%v", ok, err)
	}
	if params != b.Params() {
		t.Fatalf("params came back as %+v", params)
	}
	head, ok, err = store.Head()
	if err != nil || !ok || head.Digest != chain[30].Digest {
		t.Fatalf("head lost across reopen")
	}
	for _, want := range chain {
		got, err := store.CheckpointBySeq(want.Seq)
		if err != nil {
			t.Fatalf("checkpoint %d: %v", want.Seq, err)
		}
		if got.Digest != want.Digest || len(got.Fingers) != len(want.Fingers) {
			t.Fatalf("checkpoint %d corrupted", want.Seq)
		}
	}
	payload, err := store.Payload(7)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "payload-7" {
		t.Fatalf("payload 7 = %q", payload)
	}
}

func TestStoreMisses(t *testing.T) {
	store := openTestStore(t)

	if _, ok, err := store.Head(); err != nil || ok {
		t.Fatalf("empty store head: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Params(); err != nil || ok {
		t.Fatalf("empty store params: ok=%v err=%v", ok, err)
	}
	if _, err := store.CheckpointBySeq(5); !errors.Is(err, skipchain.ErrNotFound) {
		t.Fatalf("missing checkpoint gave %v", err)
	}
	if _, err := store.Payload(5); !errors.Is(err, skipchain.ErrNotFound) {
		t.Fatalf("missing payload gave %v", err)
	}
}

func TestStorePinsParams(t *testing.T) {
	store := openTestStore(t)
	p := skipchain.DefaultParams()
	if err := store.SetParams(p); err != nil {
		t.Fatal(err)
	}
	// Same params again is a no-op.
	if err := store.SetParams(p); err != nil {
		t.Fatal(err)
	}
	p.Base = 16
	if err := store.SetParams(p); err == nil {
		t.Fatalf("store accepted conflicting params")
	}
}

// The store is the Resolver behind production walks.
func TestStoreServesWalks(t *testing.T) {
	store := openTestStore(t)
	b, err := skipchain.NewBuilder(skipchain.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	chain := appendChain(t, store, b, 200)

	pf := skipchain.NewPathFinder(store, b.Params())
	for _, target := range []uint64{0, 1, 42, 99, 100, 199} {
		hops, got, err := pf.Authenticate(chain[200], target)
		if err != nil {
			t.Fatalf("authenticate to %d: %v", target, err)
		}
		if got.Seq != target {
			t.Fatalf("landed on %d, want %d", got.Seq, target)
		}
		if hops > 200-target {
			t.Fatalf("authenticate to %d took %d hops", target, hops)
		}
	}
}

func TestLRUCache(t *testing.T) {
	cache := newLRUCache(2)
	c1 := &skipchain.Checkpoint{Seq: 1}
	c2 := &skipchain.Checkpoint{Seq: 2}
	c3 := &skipchain.Checkpoint{Seq: 3}

	cache.insert(1, c1)
	cache.insert(2, c2)
	if got, ok := cache.get(1); !ok || got != c1 {
		t.Fatalf("lost entry 1")
	}
	// 2 is now the least recently used and gets evicted.
	cache.insert(3, c3)
	if _, ok := cache.get(2); ok {
		t.Fatalf("entry 2 survived eviction")
	}
	if _, ok := cache.get(1); !ok {
		t.Fatalf("entry 1 evicted out of order")
	}
	if _, ok := cache.get(3); !ok {
		t.Fatalf("entry 3 missing")
	}

	// Reinserting an existing seq refreshes instead of duplicating.
	cache.insert(1, c1)
	if cache.queue.Len() != 2 {
		t.Fatalf("cache holds %d entries, want 2", cache.queue.Len())
	}
}
