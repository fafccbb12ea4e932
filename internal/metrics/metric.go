package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mskd12/skip-checkpoint-chain/internal/logger"
)

const (
	StageInitializing = iota + 1
	StageCatchup
	StageServing
	StageExtending
	StageAnnouncing
)

func fqn(name string) string {
	return prometheus.BuildFQName("skipchain", "service", name)
}

var (
	Version = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fqn("version"),
			Help: "Service version number",
		},
		[]string{"version"},
	)

	Stage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: fqn("stage"),
		Help: "Service stage (e.g. initializing, catchup)",
	})

	CurrentSeq = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: fqn("current_seq"),
		Help: "Sequence number of the chain head",
	})

	FeedQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqn("feed_query_duration"),
			Help:    "Duration of event feed queries",
			Buckets: []float64{0.02, 0.05, 0.1, 0.2, 0.5, 1, 5},
		},
		[]string{"op"},
	)

	BuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    fqn("build_duration"),
		Help:    "Duration of building and persisting one checkpoint",
		Buckets: []float64{0.001, 0.005, 0.02, 0.05, 0.2, 0.5, 1},
	})

	AuthHops = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    fqn("auth_hops"),
		Help:    "Hops taken by served authentication walks",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	AnnounceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fqn("announce_failures_total"),
			Help: "Failed checkpoint announcements",
		},
		[]string{"method"},
	)

	HttpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqn("http_duration"),
			Help:    "HTTP request duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 5, 15},
		},
		[]string{"method", "path", "status"},
	)
)

func ObserveFeedQuery(op string, started time.Time) {
	FeedQueryDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func ObserveBuild(started time.Time) {
	BuildDuration.Observe(time.Since(started).Seconds())
}

func HTTP(c *gin.Context) {
	started := time.Now()

	c.Next()

	HttpDuration.WithLabelValues(
		c.Request.Method,
		c.Request.URL.Path,
		strconv.Itoa(c.Writer.Status()),
	).Observe(time.Since(started).Seconds())
}

func init() {
	prometheus.MustRegister(
		Version,
		Stage,
		CurrentSeq,
		FeedQueryDuration,
		BuildDuration,
		AuthHops,
		AnnounceFailures,
		HttpDuration,
	)
}

func ListenAndServe(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := (&http.Server{Addr: addr, Handler: mux}).ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Logger.Fatal("metric listener failed", zap.Error(err))
	}
}
