package apis

import (
	"encoding/hex"
	"strconv"

	"github.com/mskd12/skip-checkpoint-chain/skipchain"
)

// JSON conventions: sequence numbers are decimal strings so 64-bit values
// survive every JSON parser, digests are hex, opaque binary (payloads,
// proofs) is base64.

type FingerJSON struct {
	Seq    string `json:"seq"`
	Digest string `json:"digest"`
}

type CheckpointJSON struct {
	Seq         string       `json:"seq"`
	Digest      string       `json:"digest"`
	PayloadHash string       `json:"payloadHash"`
	Fingers     []FingerJSON `json:"fingers"`
}

func CheckpointToJSON(c *skipchain.Checkpoint) CheckpointJSON {
	fingers := make([]FingerJSON, len(c.Fingers))
	for i, f := range c.Fingers {
		fingers[i] = FingerJSON{
			Seq:    strconv.FormatUint(f.Seq, 10),
			Digest: hex.EncodeToString(f.Digest[:]),
		}
	}
	return CheckpointJSON{
		Seq:         strconv.FormatUint(c.Seq, 10),
		Digest:      hex.EncodeToString(c.Digest[:]),
		PayloadHash: hex.EncodeToString(c.PayloadHash[:]),
		Fingers:     fingers,
	}
}

type ChainParamsResult struct {
	ChainName     string `json:"chainName"`
	Base          string `json:"base"`
	HeightCap     string `json:"heightCap"`
	HashAlgo      string `json:"hashAlgo"`
	GenesisDigest string `json:"genesisDigest"`
	HeadSeq       string `json:"headSeq"`
}

type ChainParamsResponse struct {
	Error  *string            `json:"error"`
	Result *ChainParamsResult `json:"result"`
}

type CheckpointResponse struct {
	Error  *string         `json:"error"`
	Result *CheckpointJSON `json:"result"`
}

type PayloadResult struct {
	Seq         string `json:"seq"`
	PayloadHash string `json:"payloadHash"`
	// Base64 of the raw payload bytes
	Payload string `json:"payload"`
}

type PayloadResponse struct {
	Error  *string        `json:"error"`
	Result *PayloadResult `json:"result"`
}

type AncestryProofResult struct {
	StartSeq  string `json:"startSeq"`
	TargetSeq string `json:"targetSeq"`
	Hops      string `json:"hops"`
	// The visited checkpoints in walk order, for display; the proof field
	// carries the same path in canonical binary form for verification.
	Path []CheckpointJSON `json:"path"`
}

type AncestryProofResponse struct {
	Error  *string              `json:"error"`
	Result *AncestryProofResult `json:"result"`
	// Base64 of the canonical path encoding
	Proof *string `json:"proof"`
}
