package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mskd12/skip-checkpoint-chain/announce"
	"github.com/mskd12/skip-checkpoint-chain/apis"
	"github.com/mskd12/skip-checkpoint-chain/internal/chainstore"
	"github.com/mskd12/skip-checkpoint-chain/internal/logger"
	"github.com/mskd12/skip-checkpoint-chain/internal/metrics"
	"github.com/mskd12/skip-checkpoint-chain/skipchain"
	"github.com/mskd12/skip-checkpoint-chain/skipchain/feed"
)

var (
	version = "latest"
	gitHash = "unknown"
)

const (
	// feedBatchLimit caps how many events one checkpoint summarises.
	feedBatchLimit = 1024
	// integrityTail is how far back a restart re-verifies stored
	// checkpoints before trusting them.
	integrityTail = 256
	// announceWindow is how many recent checkpoints each announcement
	// pass covers, so a failed upload is retried while its checkpoint is
	// still in the window.
	announceWindow = 8
)

func chainParams() skipchain.Params {
	params := skipchain.DefaultParams()
	if GlobalConfig.Chain.Base != 0 {
		params.Base = GlobalConfig.Chain.Base
	}
	if GlobalConfig.Chain.HeightCap != 0 {
		params.HeightCap = GlobalConfig.Chain.HeightCap
	}
	if GlobalConfig.Chain.HashAlgo != "" {
		params.HashAlgo = GlobalConfig.Chain.HashAlgo
	}
	return params
}

// feedWatermark recovers the ID of the last summarised event from the
// head checkpoint's payload. The genesis payload is the chain name, not
// a summary, so a fresh chain starts from zero.
func feedWatermark(chain *skipchain.Chain) (uint64, error) {
	head := chain.Head()
	if head == nil || head.Seq == 0 {
		return 0, nil
	}
	payload, err := chain.Payload(head.Seq)
	if err != nil {
		return 0, fmt.Errorf("loading the head payload: %w", err)
	}
	if chain.Hasher().Sum(payload) != head.PayloadHash {
		return 0, fmt.Errorf("head payload does not match its checkpoint hash")
	}
	summary, err := feed.DecodeSummary(payload)
	if err != nil {
		return 0, fmt.Errorf("decoding the head payload: %w", err)
	}
	return summary.LastID, nil
}

// CatchupStage opens the stored chain, verifies its recent checkpoints
// and replays the feed events the service missed while it was down. It
// returns the live chain, the store handle and the feed watermark.
func CatchupStage(eventGetter feed.EventGetter, arguments *RuntimeArguments) (*skipchain.Chain, *chainstore.Store, uint64, error) {
	metrics.Stage.Set(metrics.StageCatchup)

	dataDir := GlobalConfig.Chain.DataDir
	if dataDir == "" {
		dataDir = "chainstate"
	}
	store, err := chainstore.Open(dataDir)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("opening the chain store: %w", err)
	}
	fail := func(err error) (*skipchain.Chain, *chainstore.Store, uint64, error) {
		_ = store.Close()
		return nil, nil, 0, err
	}

	params := chainParams()
	if err := store.SetParams(params); err != nil {
		return fail(err)
	}
	builder, err := skipchain.NewBuilder(params)
	if err != nil {
		return fail(err)
	}
	chain, err := skipchain.NewChain(builder, store)
	if err != nil {
		return fail(err)
	}

	if chain.Head() == nil {
		genesis, err := chain.Bootstrap([]byte(GlobalConfig.Chain.Name))
		if err != nil {
			return fail(err)
		}
		logger.Logger.Info("started a fresh chain",
			zap.String("chain", GlobalConfig.Chain.Name),
			zap.String("genesisDigest", fmt.Sprintf("%x", genesis.Digest)))
	} else if err := chain.VerifyTail(integrityTail); err != nil {
		return fail(fmt.Errorf("stored chain failed verification: %w", err))
	}

	watermark, err := feedWatermark(chain)
	if err != nil {
		return fail(err)
	}
	latest, err := eventGetter.GetLatestEventID()
	if err != nil {
		return fail(fmt.Errorf("querying the feed tip: %w", err))
	}
	logger.Logger.Info("catching up with the event feed",
		zap.Uint64("headSeq", chain.Head().Seq),
		zap.Uint64("watermark", watermark),
		zap.Uint64("feedTip", latest))

	// Create a channel to listen for SIGINT (Ctrl+C) signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)
	defer signal.Stop(sigChan)

	for watermark < latest {
		select {
		case <-sigChan:
			logger.Logger.Info("interrupted during catchup")
			_ = store.Close()
			os.Exit(0)
		default:
		}
		events, err := eventGetter.GetEventsAfter(watermark, feedBatchLimit)
		if err != nil {
			return fail(err)
		}
		if len(events) == 0 {
			break
		}
		summary := feed.Summarize(chain.Hasher(), watermark, events)
		started := time.Now()
		head, err := chain.Extend(summary.Encode())
		if err != nil {
			return fail(err)
		}
		metrics.ObserveBuild(started)
		metrics.CurrentSeq.Set(float64(head.Seq))
		watermark = summary.LastID
		if head.Seq%100 == 0 {
			logger.Logger.Info("catchup progress",
				zap.Uint64("seq", head.Seq),
				zap.Uint64("watermark", watermark),
				zap.Uint64("feedTip", latest))
		}
	}
	return chain, store, watermark, nil
}

// serviceTick drains one batch of feed events into a new checkpoint. A
// tick with no events still extends the chain, so consumers observe a
// fresh checkpoint every interval and the payload keeps carrying the
// watermark.
func serviceTick(eventGetter feed.EventGetter, chain *skipchain.Chain, watermark uint64) (uint64, error) {
	metrics.Stage.Set(metrics.StageExtending)
	defer metrics.Stage.Set(metrics.StageServing)

	events, err := eventGetter.GetEventsAfter(watermark, feedBatchLimit)
	if err != nil {
		return watermark, fmt.Errorf("draining the event feed: %w", err)
	}
	summary := feed.Summarize(chain.Hasher(), watermark, events)
	started := time.Now()
	head, err := chain.Extend(summary.Encode())
	if err != nil {
		return watermark, fmt.Errorf("extending the chain: %w", err)
	}
	metrics.ObserveBuild(started)
	metrics.CurrentSeq.Set(float64(head.Seq))
	logger.Logger.Info("extended the chain",
		zap.Uint64("seq", head.Seq),
		zap.Uint64("events", summary.Count),
		zap.Uint64("watermark", summary.LastID))
	return summary.LastID, nil
}

// announceRecent publishes records for recent checkpoints that have not
// been announced yet. History is keyed by seq alone: the chain is
// append-only, so a seq never maps to two digests.
func announceRecent(chain *skipchain.Chain, genesis *skipchain.Checkpoint, upload func(*announce.Record) error, history map[uint64]announce.UploadRecord) {
	head := chain.Head()
	if head == nil {
		return
	}
	metrics.Stage.Set(metrics.StageAnnouncing)
	defer metrics.Stage.Set(metrics.StageServing)

	lowest := uint64(0)
	if head.Seq+1 > announceWindow {
		lowest = head.Seq + 1 - announceWindow
	}
	for seq := lowest; seq <= head.Seq; seq++ {
		if curRecord, found := history[seq]; found && curRecord.Success {
			continue
		}
		c, err := chain.CheckpointBySeq(seq)
		if err != nil {
			logger.Logger.Warn("failed to load a checkpoint to announce",
				zap.Uint64("seq", seq), zap.Error(err))
			continue
		}
		id := announce.ServiceIdentification{
			URL:     GlobalConfig.Service.URL,
			Name:    GlobalConfig.Service.Name,
			Version: version,
		}
		record := announce.NewRecord(&id, GlobalConfig.Chain.Name, chain.Params(), genesis, c)
		if err := upload(&record); err != nil {
			metrics.AnnounceFailures.WithLabelValues(GlobalConfig.Report.Method).Inc()
			logger.Logger.Warn("failed to announce the checkpoint",
				zap.Uint64("seq", seq), zap.Error(err))
			continue
		}
		logger.Logger.Info("announced the checkpoint",
			zap.Uint64("seq", seq),
			zap.String("method", GlobalConfig.Report.Method))
		history[seq] = announce.UploadRecord{Success: true}
	}
	for seq := range history {
		if seq < lowest {
			delete(history, seq)
		}
	}
}

// ServiceStage runs the periodic extend-and-announce loop and, when
// enabled, the query API. It does not return; SIGINT closes the store
// and exits.
func ServiceStage(eventGetter feed.EventGetter, arguments *RuntimeArguments, chain *skipchain.Chain, store *chainstore.Store, watermark uint64, interval time.Duration) {
	metrics.Stage.Set(metrics.StageServing)

	// Create a channel to listen for SIGINT (Ctrl+C) signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)

	if arguments.EnableService {
		logger.Logger.Info("providing the API service",
			zap.String("listen", GlobalConfig.Service.Listen),
			zap.String("url", GlobalConfig.Service.URL))
		go apis.StartService(chain, &apis.ServiceOptions{
			ChainName:   GlobalConfig.Chain.Name,
			Listen:      GlobalConfig.Service.Listen,
			EnablePprof: arguments.EnablePprof,
		})
	}

	var genesis *skipchain.Checkpoint
	var upload func(*announce.Record) error
	history := make(map[uint64]announce.UploadRecord)
	if arguments.EnableAnnounce {
		var err error
		if genesis, err = chain.CheckpointBySeq(0); err != nil {
			logger.Logger.Fatal("failed to load the genesis checkpoint", zap.Error(err))
		}
		timeout := time.Duration(GlobalConfig.Report.Timeout) * time.Millisecond
		if timeout <= 0 {
			timeout = time.Minute
		}
		switch GlobalConfig.Report.Method {
		case "S3":
			upload = func(r *announce.Record) error {
				return announce.UploadRecordByS3(r, announce.S3Config(GlobalConfig.Report.S3), timeout)
			}
		case "DA":
			daBackend, err := announce.NewDABackend(announce.DAConfig(GlobalConfig.Report.Da))
			if err != nil {
				logger.Logger.Fatal("failed to initialise the DA backend", zap.Error(err))
			}
			upload = daBackend.SubmitRecord
		default:
			logger.Logger.Fatal("unknown report method",
				zap.String("method", GlobalConfig.Report.Method))
		}
	}

	for {
		select {
		case <-sigChan:
			logger.Logger.Info("shutting down")
			logger.Sync()
			_ = store.Close()
			os.Exit(0)
		default:
			next, err := serviceTick(eventGetter, chain, watermark)
			if err != nil {
				logger.Logger.Fatal("service tick failed", zap.Error(err))
			}
			watermark = next
			if arguments.EnableAnnounce {
				announceRecent(chain, genesis, upload, history)
			}
			time.Sleep(interval)
		}
	}
}

func Execution(arguments *RuntimeArguments) {
	go metrics.ListenAndServe(arguments.MetricAddr)
	metrics.Version.WithLabelValues(version).Set(1)
	metrics.Stage.Set(metrics.StageInitializing)

	// Get the configuration.
	if err := LoadConfig(arguments.ConfigFilePath); err != nil {
		log.Fatalf("Failed to load the config file: %v", err)
	}
	if err := logger.Init(GlobalConfig.Log.Level, GlobalConfig.Log.File); err != nil {
		log.Fatalf("Failed to initialise the logger: %v", err)
	}
	logger.Logger.Info("starting the checkpoint service",
		zap.String("version", version),
		zap.String("gitHash", gitHash),
		zap.String("chain", GlobalConfig.Chain.Name))

	var eventGetter feed.EventGetter
	if arguments.EnableTest {
		eventGetter = feed.NewSyntheticGetter(arguments.TestEventLimit)
	} else {
		mysqlGetter, err := feed.NewMySQLGetter(feed.DatabaseConfig(GlobalConfig.Database))
		if err != nil {
			logger.Logger.Fatal("failed to connect the event database", zap.Error(err))
		}
		eventGetter = mysqlGetter
	}

	chain, store, watermark, err := CatchupStage(eventGetter, arguments)
	if err != nil {
		logger.Logger.Fatal("failed to catch up with the stored chain", zap.Error(err))
	}

	interval := time.Duration(GlobalConfig.Chain.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ServiceStage(eventGetter, arguments, chain, store, watermark, interval)
}

func main() {
	arguments := NewRuntimeArguments()
	rootCmd := arguments.MakeCmd()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute: %v", err)
	}
}
