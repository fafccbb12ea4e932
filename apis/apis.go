package apis

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mskd12/skip-checkpoint-chain/internal/logger"
	"github.com/mskd12/skip-checkpoint-chain/internal/metrics"
	"github.com/mskd12/skip-checkpoint-chain/skipchain"
)

// ServiceOptions configure StartService beyond the chain itself.
type ServiceOptions struct {
	ChainName   string
	Listen      string
	EnableDebug bool
	EnablePprof bool
}

func errResponse(c *gin.Context, status int, format string, args ...any) {
	errStr := fmt.Sprintf(format, args...)
	c.JSON(status, gin.H{"error": &errStr, "result": nil})
}

// statusForWalkError distinguishes caller mistakes from chain damage.
func statusForWalkError(err error) int {
	switch {
	case errors.Is(err, skipchain.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, skipchain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func querySeq(c *gin.Context, name string) (uint64, bool) {
	raw := c.DefaultQuery(name, "")
	if raw == "" {
		errResponse(c, http.StatusBadRequest, "missing query parameter %q", name)
		return 0, false
	}
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		errResponse(c, http.StatusBadRequest, "invalid %q: %v", name, err)
		return 0, false
	}
	return seq, true
}

// GetChainParams advertises the chain's identity: its params, genesis
// digest and current head seq. Consumers pin the genesis digest once and
// verify everything else against it.
func GetChainParams(c *gin.Context, chain *skipchain.Chain, chainName string) {
	head := chain.Head()
	if head == nil {
		errResponse(c, http.StatusServiceUnavailable, "chain is not bootstrapped yet")
		return
	}
	genesis, err := chain.CheckpointBySeq(0)
	if err != nil {
		errResponse(c, http.StatusInternalServerError, "loading genesis: %v", err)
		return
	}
	params := chain.Params()
	c.JSON(http.StatusOK, ChainParamsResponse{
		Result: &ChainParamsResult{
			ChainName:     chainName,
			Base:          strconv.FormatUint(params.Base, 10),
			HeightCap:     strconv.FormatUint(params.HeightCap, 10),
			HashAlgo:      params.HashAlgo,
			GenesisDigest: hex.EncodeToString(genesis.Digest[:]),
			HeadSeq:       strconv.FormatUint(head.Seq, 10),
		},
	})
}

func GetLatestCheckpoint(c *gin.Context, chain *skipchain.Chain) {
	head := chain.Head()
	if head == nil {
		errResponse(c, http.StatusServiceUnavailable, "chain is not bootstrapped yet")
		return
	}
	result := CheckpointToJSON(head)
	c.JSON(http.StatusOK, CheckpointResponse{Result: &result})
}

func GetCheckpoint(c *gin.Context, chain *skipchain.Chain) {
	seq, ok := querySeq(c, "seq")
	if !ok {
		return
	}
	ckpt, err := chain.CheckpointBySeq(seq)
	if err != nil {
		errResponse(c, statusForWalkError(err), "checkpoint %d: %v", seq, err)
		return
	}
	result := CheckpointToJSON(ckpt)
	c.JSON(http.StatusOK, CheckpointResponse{Result: &result})
}

func GetPayload(c *gin.Context, chain *skipchain.Chain) {
	seq, ok := querySeq(c, "seq")
	if !ok {
		return
	}
	ckpt, err := chain.CheckpointBySeq(seq)
	if err != nil {
		errResponse(c, statusForWalkError(err), "checkpoint %d: %v", seq, err)
		return
	}
	payload, err := chain.Payload(seq)
	if err != nil {
		errResponse(c, statusForWalkError(err), "payload %d: %v", seq, err)
		return
	}
	c.JSON(http.StatusOK, PayloadResponse{
		Result: &PayloadResult{
			Seq:         strconv.FormatUint(seq, 10),
			PayloadHash: hex.EncodeToString(ckpt.PayloadHash[:]),
			Payload:     base64.StdEncoding.EncodeToString(payload),
		},
	})
}

// GetAncestryProof serves a verifiable walk from start_seq (default: the
// head) down to target_seq. The proof field is the canonical binary path;
// a client holding only the start checkpoint's digest can verify it
// offline.
func GetAncestryProof(c *gin.Context, chain *skipchain.Chain) {
	target, ok := querySeq(c, "target_seq")
	if !ok {
		return
	}
	head := chain.Head()
	if head == nil {
		errResponse(c, http.StatusServiceUnavailable, "chain is not bootstrapped yet")
		return
	}
	start := head.Seq
	if raw := c.DefaultQuery("start_seq", ""); raw != "" {
		var err error
		if start, err = strconv.ParseUint(raw, 10, 64); err != nil {
			errResponse(c, http.StatusBadRequest, "invalid \"start_seq\": %v", err)
			return
		}
	}

	path, err := chain.AncestryPath(start, target)
	if err != nil {
		errResponse(c, statusForWalkError(err), "ancestry %d -> %d: %v", start, target, err)
		return
	}
	metrics.AuthHops.Observe(float64(len(path) - 1))

	pathJSON := make([]CheckpointJSON, len(path))
	for i, hop := range path {
		pathJSON[i] = CheckpointToJSON(hop)
	}
	proof := base64.StdEncoding.EncodeToString(skipchain.EncodePath(path))
	c.JSON(http.StatusOK, AncestryProofResponse{
		Result: &AncestryProofResult{
			StartSeq:  strconv.FormatUint(start, 10),
			TargetSeq: strconv.FormatUint(target, 10),
			Hops:      strconv.FormatUint(uint64(len(path)-1), 10),
			Path:      pathJSON,
		},
		Proof: &proof,
	})
}

// NewRouter wires every route; StartService runs it. Split out so tests
// can exercise the full router without binding a port.
func NewRouter(chain *skipchain.Chain, opts *ServiceOptions) *gin.Engine {
	if !opts.EnableDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.Default())
	r.Use(metrics.HTTP)
	if opts.EnablePprof {
		pprof.Register(r)
	}

	r.GET("/v1/skip_verifiable/chain_params", func(c *gin.Context) {
		GetChainParams(c, chain, opts.ChainName)
	})
	r.GET("/v1/skip_verifiable/latest_checkpoint", func(c *gin.Context) {
		GetLatestCheckpoint(c, chain)
	})
	r.GET("/v1/skip_verifiable/checkpoint", func(c *gin.Context) {
		GetCheckpoint(c, chain)
	})
	r.GET("/v1/skip_verifiable/payload", func(c *gin.Context) {
		GetPayload(c, chain)
	})
	r.GET("/v1/skip_verifiable/ancestry_proof", func(c *gin.Context) {
		GetAncestryProof(c, chain)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
		})
	})
	return r
}

func StartService(chain *skipchain.Chain, opts *ServiceOptions) {
	r := NewRouter(chain, opts)
	listen := opts.Listen
	if listen == "" {
		listen = ":8080"
	}
	if err := r.Run(listen); err != nil {
		logger.Logger.Fatal("api service failed", zap.Error(err))
	}
}
