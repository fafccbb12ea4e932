package apis

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mskd12/skip-checkpoint-chain/internal/chainstore"
	"github.com/mskd12/skip-checkpoint-chain/skipchain"
)

func newTestChain(t *testing.T, length uint64) *skipchain.Chain {
	t.Helper()
	store, err := chainstore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	builder, err := skipchain.NewBuilder(skipchain.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	chain, err := skipchain.NewChain(builder, store)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := chain.Bootstrap([]byte("testchain")); err != nil {
		t.Fatal(err)
	}
	for seq := uint64(1); seq <= length; seq++ {
		if _, err := chain.Extend([]byte(fmt.Sprintf("payload-%d", seq))); err != nil {
			t.Fatalf("extend to %d: %v", seq, err)
		}
	}
	return chain
}

func newTestServer(t *testing.T, chain *skipchain.Chain) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := NewRouter(chain, &ServiceOptions{ChainName: "testchain", EnableDebug: true})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	req, err := http.NewRequest("GET", ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("unmarshal %s: %v (body %q)", path, err, body)
	}
	return resp.StatusCode
}

func TestHealthRoute(t *testing.T) {
	ts := newTestServer(t, newTestChain(t, 3))

	var res map[string]string
	if code := getJSON(t, ts, "/health", &res); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if res["status"] != "healthy" {
		t.Fatalf("unexpected health body: %v", res)
	}
}

func TestGetChainParams(t *testing.T) {
	chain := newTestChain(t, 42)
	ts := newTestServer(t, chain)

	var res ChainParamsResponse
	if code := getJSON(t, ts, "/v1/skip_verifiable/chain_params", &res); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if res.Error != nil {
		t.Fatalf("unexpected error: %s", *res.Error)
	}
	if res.Result == nil {
		t.Fatal("missing result")
	}
	if res.Result.ChainName != "testchain" {
		t.Fatalf("chain name %q", res.Result.ChainName)
	}
	if res.Result.Base != "10" || res.Result.HeightCap != "11" {
		t.Fatalf("params %s/%s", res.Result.Base, res.Result.HeightCap)
	}
	if res.Result.HashAlgo != skipchain.HashSHA3 {
		t.Fatalf("hash algo %q", res.Result.HashAlgo)
	}
	if res.Result.HeadSeq != "42" {
		t.Fatalf("head seq %q", res.Result.HeadSeq)
	}

	genesis, err := chain.CheckpointBySeq(0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Result.GenesisDigest != hex.EncodeToString(genesis.Digest[:]) {
		t.Fatalf("genesis digest %q", res.Result.GenesisDigest)
	}
}

func TestGetLatestCheckpoint(t *testing.T) {
	chain := newTestChain(t, 27)
	ts := newTestServer(t, chain)

	var res CheckpointResponse
	if code := getJSON(t, ts, "/v1/skip_verifiable/latest_checkpoint", &res); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if res.Error != nil || res.Result == nil {
		t.Fatalf("bad envelope: %+v", res)
	}
	head := chain.Head()
	if res.Result.Seq != "27" || res.Result.Digest != hex.EncodeToString(head.Digest[:]) {
		t.Fatalf("latest checkpoint %s/%s", res.Result.Seq, res.Result.Digest)
	}
}

func TestGetCheckpoint(t *testing.T) {
	chain := newTestChain(t, 60)
	ts := newTestServer(t, chain)

	var res CheckpointResponse
	if code := getJSON(t, ts, "/v1/skip_verifiable/checkpoint?seq=57", &res); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if res.Error != nil || res.Result == nil {
		t.Fatalf("bad envelope: %+v", res)
	}
	want, err := chain.CheckpointBySeq(57)
	if err != nil {
		t.Fatal(err)
	}
	if res.Result.Digest != hex.EncodeToString(want.Digest[:]) {
		t.Fatalf("digest %q", res.Result.Digest)
	}
	if len(res.Result.Fingers) != len(want.Fingers) {
		t.Fatalf("fingers %d != %d", len(res.Result.Fingers), len(want.Fingers))
	}

	var missing CheckpointResponse
	if code := getJSON(t, ts, "/v1/skip_verifiable/checkpoint?seq=9999", &missing); code != http.StatusNotFound {
		t.Fatalf("expected %d for unknown seq, got %d", http.StatusNotFound, code)
	}
	if missing.Error == nil || missing.Result != nil {
		t.Fatalf("bad error envelope: %+v", missing)
	}

	var noSeq CheckpointResponse
	if code := getJSON(t, ts, "/v1/skip_verifiable/checkpoint", &noSeq); code != http.StatusBadRequest {
		t.Fatalf("expected %d for missing seq, got %d", http.StatusBadRequest, code)
	}
}

func TestGetPayload(t *testing.T) {
	chain := newTestChain(t, 10)
	ts := newTestServer(t, chain)

	var res PayloadResponse
	if code := getJSON(t, ts, "/v1/skip_verifiable/payload?seq=7", &res); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if res.Error != nil || res.Result == nil {
		t.Fatalf("bad envelope: %+v", res)
	}
	payload, err := base64.StdEncoding.DecodeString(res.Result.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "payload-7" {
		t.Fatalf("payload %q", payload)
	}
	sum := chain.Hasher().Sum(payload)
	if res.Result.PayloadHash != hex.EncodeToString(sum[:]) {
		t.Fatalf("payload hash %q", res.Result.PayloadHash)
	}
}

func TestGetAncestryProofAndVerify(t *testing.T) {
	chain := newTestChain(t, 120)
	ts := newTestServer(t, chain)

	var res AncestryProofResponse
	if code := getJSON(t, ts, "/v1/skip_verifiable/ancestry_proof?target_seq=7", &res); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if res.Error != nil || res.Result == nil || res.Proof == nil {
		t.Fatalf("bad envelope: %+v", res)
	}
	if res.Result.StartSeq != "120" || res.Result.TargetSeq != "7" {
		t.Fatalf("range %s -> %s", res.Result.StartSeq, res.Result.TargetSeq)
	}

	head := chain.Head()
	ok, err := VerifyAncestryProofResponse(chain.Params(), head.Digest, 7, &res)
	if err != nil || !ok {
		t.Fatalf("verify failed: ok=%v err=%v", ok, err)
	}

	// A verifier pinned to a different digest must reject the same proof.
	badTrusted := head.Digest
	badTrusted[0] ^= 0xff
	if ok, err := VerifyAncestryProofResponse(chain.Params(), badTrusted, 7, &res); ok || !errors.Is(err, skipchain.ErrDigestMismatch) {
		t.Fatalf("expected digest mismatch, got ok=%v err=%v", ok, err)
	}

	// A proof for seq 7 says nothing about seq 8.
	if ok, err := VerifyAncestryProofResponse(chain.Params(), head.Digest, 8, &res); ok || !errors.Is(err, skipchain.ErrUnreachableTarget) {
		t.Fatalf("expected unreachable target, got ok=%v err=%v", ok, err)
	}
}

func TestGetAncestryProofTampered(t *testing.T) {
	chain := newTestChain(t, 120)
	ts := newTestServer(t, chain)

	var res AncestryProofResponse
	if code := getJSON(t, ts, "/v1/skip_verifiable/ancestry_proof?target_seq=7", &res); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}

	raw, err := base64.StdEncoding.DecodeString(*res.Proof)
	if err != nil {
		t.Fatal(err)
	}
	// Offset 12 lands inside the first hop's digest field.
	raw[12] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)
	res.Proof = &tampered

	head := chain.Head()
	if ok, err := VerifyAncestryProofResponse(chain.Params(), head.Digest, 7, &res); ok || err == nil {
		t.Fatalf("expected tampered proof to fail, got ok=%v err=%v", ok, err)
	}
}

func TestGetAncestryProofExplicitStart(t *testing.T) {
	chain := newTestChain(t, 120)
	ts := newTestServer(t, chain)

	var res AncestryProofResponse
	if code := getJSON(t, ts, "/v1/skip_verifiable/ancestry_proof?start_seq=31&target_seq=7", &res); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if res.Result == nil || res.Proof == nil {
		t.Fatalf("bad envelope: %+v", res)
	}
	// 31 -> 29 -> 20 -> 10 -> 9 -> 8 -> 7.
	if res.Result.Hops != "6" {
		t.Fatalf("hops %q", res.Result.Hops)
	}

	start, err := chain.CheckpointBySeq(31)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyAncestryProofResponse(chain.Params(), start.Digest, 7, &res)
	if err != nil || !ok {
		t.Fatalf("verify failed: ok=%v err=%v", ok, err)
	}
}

func TestGetAncestryProofBadRange(t *testing.T) {
	chain := newTestChain(t, 20)
	ts := newTestServer(t, chain)

	var res AncestryProofResponse
	if code := getJSON(t, ts, "/v1/skip_verifiable/ancestry_proof?target_seq=999", &res); code != http.StatusBadRequest {
		t.Fatalf("expected %d for target past head, got %d", http.StatusBadRequest, code)
	}
	if res.Error == nil || res.Result != nil {
		t.Fatalf("bad error envelope: %+v", res)
	}
}
