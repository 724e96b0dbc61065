package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/vidcourse-backend/internal/domain"
	"github.com/yungbote/vidcourse-backend/internal/platform/envutil"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

// Metrics is a process-wide registry rendered in the Prometheus text format.
// Every method is safe on a nil receiver so callers never branch on METRICS_ENABLED.
type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	transitions   *CounterVec
	conflicts     *CounterVec
	pipelineCalls *CounterVec
	pipelineTime  *HistogramVec
	passes        *CounterVec
	reaped        *Counter
	gateOutcomes  *CounterVec
	eventsDropped *Counter
	segments      *GaugeVec
	dbStats       *GaugeVec
	redisUp       *Gauge
	redisPing     *Gauge

	writers []interface{ WritePrometheus(io.Writer) error }
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

func Current() *Metrics { return instance }

func scrapeInterval() time.Duration {
	d := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		m := &Metrics{
			apiRequests: NewCounterVec("vc_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
			apiLatency: NewHistogramVec("vc_api_request_duration_seconds", "API request latency in seconds.",
				[]string{"method", "route"}, []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}),
			apiInflight:   NewGauge("vc_api_inflight_requests", "In-flight API requests."),
			transitions:   NewCounterVec("vc_segment_transitions_total", "Segment status transitions applied.", []string{"from", "to"}),
			conflicts:     NewCounterVec("vc_segment_transition_conflicts_total", "Guarded transitions rejected because the row had moved.", []string{"from", "to"}),
			pipelineCalls: NewCounterVec("vc_pipeline_calls_total", "Pipeline invocations by outcome.", []string{"status"}),
			pipelineTime: NewHistogramVec("vc_pipeline_call_duration_seconds", "Pipeline invocation latency in seconds.",
				[]string{"status"}, []float64{1, 5, 10, 30, 60, 120, 180, 300}),
			passes:        NewCounterVec("vc_scheduler_passes_total", "Scheduler passes by outcome.", []string{"status"}),
			reaped:        NewCounter("vc_segments_reaped_total", "Segments moved out of processing by the reaper."),
			gateOutcomes:  NewCounterVec("vc_publish_gate_total", "Publish gate outcomes.", []string{"outcome"}),
			eventsDropped: NewCounter("vc_events_dropped_total", "Events dropped for slow subscribers."),
			segments:      NewGaugeVec("vc_segments", "Segments by status.", []string{"status"}),
			dbStats:       NewGaugeVec("vc_db_pool", "database/sql pool stats.", []string{"stat"}),
			redisUp:       NewGauge("vc_redis_up", "Redis reachable (1) or not (0)."),
			redisPing:     NewGauge("vc_redis_ping_seconds", "Redis ping latency in seconds."),
		}
		m.writers = []interface{ WritePrometheus(io.Writer) error }{
			m.apiRequests, m.apiLatency, m.apiInflight,
			m.transitions, m.conflicts, m.pipelineCalls, m.pipelineTime,
			m.passes, m.reaped, m.gateOutcomes, m.eventsDropped,
			m.segments, m.dbStats, m.redisUp, m.redisPing,
		}
		instance = m
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, wr := range m.writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) IncTransition(from, to types.SegmentStatus) {
	if m == nil {
		return
	}
	m.transitions.Inc(string(from), string(to))
}

func (m *Metrics) IncTransitionConflict(from, to types.SegmentStatus) {
	if m == nil {
		return
	}
	m.conflicts.Inc(string(from), string(to))
}

func (m *Metrics) ObservePipelineCall(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.pipelineCalls.Inc(status)
	m.pipelineTime.Observe(dur.Seconds(), status)
}

func (m *Metrics) IncPass(status string) {
	if m == nil {
		return
	}
	m.passes.Inc(status)
}

func (m *Metrics) AddReaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reaped.Add(float64(n))
}

func (m *Metrics) IncGate(outcome string) {
	if m == nil {
		return
	}
	m.gateOutcomes.Inc(outcome)
}

func (m *Metrics) IncEventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Add(1)
}

// StartCollectors polls pool stats, segment counts by status and, when an
// address is given, Redis liveness until ctx is done.
func (m *Metrics) StartCollectors(ctx context.Context, log *logger.Logger, db *gorm.DB, redisAddr string) {
	if m == nil {
		return
	}
	var rdb *redis.Client
	if addr := strings.TrimSpace(redisAddr); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		defer func() {
			if rdb != nil {
				_ = rdb.Close()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectDB(ctx, log, db)
				m.collectRedis(ctx, log, rdb)
			}
		}
	}()
}

func (m *Metrics) collectDB(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		stats := sqlDB.Stats()
		m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
		m.dbStats.Set(float64(stats.InUse), "in_use")
		m.dbStats.Set(float64(stats.Idle), "idle")
		m.dbStats.Set(float64(stats.WaitCount), "wait_count")
		m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).
		Model(&types.Segment{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		if log != nil {
			log.Warn("metrics: segment status query failed", "error", err)
		}
		return
	}
	for _, st := range []types.SegmentStatus{
		types.SegmentPending, types.SegmentProcessing, types.SegmentCompleted,
		types.SegmentFailed, types.SegmentPermanentlyFailed,
	} {
		m.segments.Set(0, string(st))
	}
	for _, row := range rows {
		m.segments.Set(float64(row.Count), row.Status)
	}
}

func (m *Metrics) collectRedis(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	start := time.Now()
	if err := rdb.Ping(ctx).Err(); err != nil {
		m.redisUp.Set(0)
		if log != nil {
			log.Warn("metrics: redis ping failed", "error", err)
		}
		return
	}
	m.redisUp.Set(1)
	m.redisPing.Set(time.Since(start).Seconds())
}
