package announce

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mskd12/skip-checkpoint-chain/skipchain"
)

func TestNewRecord(t *testing.T) {
	b, err := skipchain.NewBuilder(skipchain.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	genesis := b.Genesis([]byte("testchain"))
	head, err := b.Next(genesis, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}

	id := &ServiceIdentification{URL: "https://example.com", Name: "committee-1", Version: "v1.2.3"}
	r := NewRecord(id, "testchain", b.Params(), genesis, head)

	if r.Seq != "1" || r.Base != "10" || r.HeightCap != "11" || r.HashAlgo != skipchain.HashSHA3 {
		t.Fatalf("record fields wrong: %+v", r)
	}
	if r.Digest != hex.EncodeToString(head.Digest[:]) {
		t.Fatalf("record digest mismatch")
	}
	if r.GenesisDigest != hex.EncodeToString(genesis.Digest[:]) {
		t.Fatalf("record genesis digest mismatch")
	}

	key := r.ObjectKey()
	if !strings.HasPrefix(key, "checkpoint-testchain-committee-1-1-") || !strings.HasSuffix(key, ".json") {
		t.Fatalf("object key %q", key)
	}

	// The published JSON must carry every field under its documented name.
	raw, err := json.Marshal(&r)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"chainName", "seq", "digest", "payloadHash", "genesisDigest", "base", "heightCap", "hashAlgo", "name", "url", "version"} {
		if _, ok := fields[want]; !ok {
			t.Fatalf("record JSON is missing %q", want)
		}
	}
}

func TestEncodeNamespace(t *testing.T) {
	ns, err := EncodeNamespace("testchain")
	if err != nil {
		t.Fatal(err)
	}
	if len(ns) != NamespaceSize/2 {
		t.Fatalf("namespace is %d bytes, want %d", len(ns), NamespaceSize/2)
	}
	// Left padding keeps the name in the low bytes.
	if !strings.HasSuffix(hex.EncodeToString(ns), hex.EncodeToString([]byte("testchain"))) {
		t.Fatalf("namespace %x does not end with the name", ns)
	}

	if _, err := EncodeNamespace(""); err == nil {
		t.Fatalf("accepted an empty namespace")
	}
	if _, err := EncodeNamespace(strings.Repeat("x", 30)); err == nil {
		t.Fatalf("accepted an oversized namespace")
	}
}
