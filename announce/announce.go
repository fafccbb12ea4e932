// Package announce publishes checkpoint records to external channels so
// light clients can discover the chain head without trusting this service
// alone.
package announce

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/mskd12/skip-checkpoint-chain/skipchain"
)

// ServiceIdentification names the publishing service inside its records.
type ServiceIdentification struct {
	URL     string
	Name    string
	Version string
}

// UploadRecord tracks whether a checkpoint has been announced already.
type UploadRecord struct {
	Success bool
}

// Record is the published form of a chain head. Digests are hex, numbers
// are decimal strings; consumers on any platform can parse it without
// 64-bit JSON number trouble.
type Record struct {
	// Name of the chain this head belongs to
	ChainName string `json:"chainName"`
	// Sequence number of the head checkpoint
	Seq string `json:"seq"`
	// Hex of the head checkpoint digest
	Digest string `json:"digest"`
	// Hex of the payload commitment at the head
	PayloadHash string `json:"payloadHash"`
	// Hex of the genesis digest, the chain's identity
	GenesisDigest string `json:"genesisDigest"`
	// Chain params, advertised so consumers can recompute notch heights
	Base      string `json:"base"`
	HeightCap string `json:"heightCap"`
	HashAlgo  string `json:"hashAlgo"`
	// Name of the publishing service
	Name string `json:"name"`
	// URL of the publishing service
	URL string `json:"url"`
	// Version number of the publishing service
	Version string `json:"version"`
}

func NewRecord(id *ServiceIdentification, chainName string, params skipchain.Params, genesis, head *skipchain.Checkpoint) Record {
	return Record{
		ChainName:     chainName,
		Seq:           strconv.FormatUint(head.Seq, 10),
		Digest:        hex.EncodeToString(head.Digest[:]),
		PayloadHash:   hex.EncodeToString(head.PayloadHash[:]),
		GenesisDigest: hex.EncodeToString(genesis.Digest[:]),
		Base:          strconv.FormatUint(params.Base, 10),
		HeightCap:     strconv.FormatUint(params.HeightCap, 10),
		HashAlgo:      params.HashAlgo,
		Name:          id.Name,
		URL:           id.URL,
		Version:       id.Version,
	}
}

// ObjectKey is the storage key a record uploads under. Seq is part of the
// key, so a bucket accumulates the full announcement history.
func (r *Record) ObjectKey() string {
	return fmt.Sprintf("checkpoint-%s-%s-%s-%s.json", r.ChainName, r.Name, r.Seq, r.Digest)
}
