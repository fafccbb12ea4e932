package announce

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rollkit/go-da"
	"github.com/rollkit/go-da/proxy"
	"go.uber.org/zap"

	"github.com/mskd12/skip-checkpoint-chain/internal/logger"
)

const (
	// NamespaceSize is the size of the hex encoded namespace string.
	NamespaceSize = 29 * 2

	DefaultNodeRPC       = "http://localhost:26658"
	DefaultSubmitTimeout = time.Minute
)

type DAConfig struct {
	NodeRPC       string
	AuthToken     string
	Namespace     string
	SubmitTimeout string
	GasPrice      float64
}

// DABackend submits records as blobs to a data availability node speaking
// the go-da proxy protocol.
type DABackend struct {
	client        da.DA
	namespace     da.Namespace
	submitTimeout time.Duration
	gasPrice      float64
}

func NewDABackend(cfg DAConfig) (*DABackend, error) {
	rpc := cfg.NodeRPC
	if rpc == "" {
		rpc = DefaultNodeRPC
	}
	client, err := proxy.NewClient(rpc, cfg.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("connecting to DA node: %w", err)
	}
	ns, err := EncodeNamespace(cfg.Namespace)
	if err != nil {
		return nil, err
	}
	submitTimeout, err := time.ParseDuration(cfg.SubmitTimeout)
	if err != nil {
		submitTimeout = DefaultSubmitTimeout
	}
	return &DABackend{
		client:        client,
		namespace:     ns,
		submitTimeout: submitTimeout,
		gasPrice:      cfg.GasPrice,
	}, nil
}

// SubmitRecord posts one record blob under the backend's namespace.
func (b *DABackend) SubmitRecord(r *Record) error {
	recordJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.submitTimeout)
	defer cancel()
	ids, err := b.client.Submit(ctx, [][]byte{recordJSON}, b.gasPrice, b.namespace)
	if err != nil {
		return fmt.Errorf("submitting record blob: %w", err)
	}
	if len(ids) != 1 {
		return fmt.Errorf("submitted one blob, got %d ids back", len(ids))
	}
	logger.Logger.Info("record submitted to DA",
		zap.String("id", hex.EncodeToString(ids[0])),
		zap.Int("size", len(recordJSON)),
	)
	return nil
}

// EncodeNamespace hex-encodes a human namespace name and left-pads it to
// the fixed namespace width the DA layer expects.
func EncodeNamespace(name string) (da.Namespace, error) {
	if name == "" {
		return nil, fmt.Errorf("empty DA namespace")
	}
	hexNamespace := hex.EncodeToString([]byte(name))
	if len(hexNamespace) > NamespaceSize {
		return nil, fmt.Errorf("namespace %q is longer than %d bytes", name, NamespaceSize/2)
	}
	padded := strings.Repeat("0", NamespaceSize-len(hexNamespace)) + hexNamespace
	ns, err := hex.DecodeString(padded)
	if err != nil {
		return nil, fmt.Errorf("encoding namespace: %w", err)
	}
	return ns, nil
}
