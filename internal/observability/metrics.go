package observability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"gorm.io/gorm"

	"github.com/yungbote/cart-backend/internal/platform/envutil"
	"github.com/yungbote/cart-backend/internal/platform/logger"
)

const meterName = "github.com/yungbote/cart-backend/internal/observability"

var (
	latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	sweepBuckets   = []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300}
)

// Metrics holds the process instruments. Every method is safe on a nil
// receiver so callers never need to check whether metrics are enabled.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader

	apiRequests metric.Int64Counter
	apiLatency  metric.Float64Histogram
	apiInflight metric.Int64UpDownCounter

	aggregateOps       metric.Int64Counter
	aggregateLatency   metric.Float64Histogram
	aggregateConflicts metric.Int64Counter
	aggregateRetries   metric.Int64Counter

	sweepPasses   metric.Int64Counter
	sweepCarts    metric.Int64Counter
	sweepDuration metric.Float64Histogram
	sweepLease    metric.Int64Counter

	catalogLookups metric.Int64Counter
	cartEvents     metric.Int64Counter

	pgStats   metric.Int64Gauge
	redisUp   metric.Int64Gauge
	redisPing metric.Float64Gauge
}

func scrapeInterval() time.Duration {
	if n := envutil.Int("METRICS_SCRAPE_INTERVAL_SECONDS", 10); n > 0 {
		return time.Duration(n) * time.Second
	}
	return 10 * time.Second
}

// New builds an independent metrics set backed by its own manual reader.
func New() (*Metrics, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter(meterName)

	m := &Metrics{provider: provider, reader: reader}
	var err error
	if m.apiRequests, err = meter.Int64Counter("cart_api_requests_total",
		metric.WithDescription("Total API requests by method/route/status.")); err != nil {
		return nil, err
	}
	if m.apiLatency, err = meter.Float64Histogram("cart_api_request_duration_seconds",
		metric.WithDescription("API request latency in seconds by method/route/status."),
		metric.WithExplicitBucketBoundaries(latencyBuckets...)); err != nil {
		return nil, err
	}
	if m.apiInflight, err = meter.Int64UpDownCounter("cart_api_inflight_requests",
		metric.WithDescription("In-flight API requests.")); err != nil {
		return nil, err
	}
	if m.aggregateOps, err = meter.Int64Counter("cart_aggregate_operations_total",
		metric.WithDescription("Aggregate write operations by operation/status.")); err != nil {
		return nil, err
	}
	if m.aggregateLatency, err = meter.Float64Histogram("cart_aggregate_operation_duration_seconds",
		metric.WithDescription("Aggregate write latency in seconds including retries."),
		metric.WithExplicitBucketBoundaries(latencyBuckets...)); err != nil {
		return nil, err
	}
	if m.aggregateConflicts, err = meter.Int64Counter("cart_aggregate_conflicts_total",
		metric.WithDescription("Aggregate write attempts that hit a concurrency conflict.")); err != nil {
		return nil, err
	}
	if m.aggregateRetries, err = meter.Int64Counter("cart_aggregate_retries_total",
		metric.WithDescription("Aggregate write attempts that hit a transient failure.")); err != nil {
		return nil, err
	}
	if m.sweepPasses, err = meter.Int64Counter("cart_sweep_passes_total",
		metric.WithDescription("Abandonment sweep passes by trigger/status.")); err != nil {
		return nil, err
	}
	if m.sweepCarts, err = meter.Int64Counter("cart_sweep_carts_total",
		metric.WithDescription("Carts visited by the abandonment sweep by outcome.")); err != nil {
		return nil, err
	}
	if m.sweepDuration, err = meter.Float64Histogram("cart_sweep_duration_seconds",
		metric.WithDescription("Abandonment sweep pass duration in seconds."),
		metric.WithExplicitBucketBoundaries(sweepBuckets...)); err != nil {
		return nil, err
	}
	if m.sweepLease, err = meter.Int64Counter("cart_sweep_lease_total",
		metric.WithDescription("Sweep lease acquisitions by result.")); err != nil {
		return nil, err
	}
	if m.catalogLookups, err = meter.Int64Counter("cart_catalog_lookups_total",
		metric.WithDescription("Catalog lookups by source/result.")); err != nil {
		return nil, err
	}
	if m.cartEvents, err = meter.Int64Counter("cart_events_published_total",
		metric.WithDescription("Cart events published by type/status.")); err != nil {
		return nil, err
	}
	if m.pgStats, err = meter.Int64Gauge("cart_postgres_pool",
		metric.WithDescription("Database connection pool stats.")); err != nil {
		return nil, err
	}
	if m.redisUp, err = meter.Int64Gauge("cart_redis_up",
		metric.WithDescription("Redis reachability (1=up).")); err != nil {
		return nil, err
	}
	if m.redisPing, err = meter.Float64Gauge("cart_redis_ping_seconds",
		metric.WithDescription("Redis ping latency in seconds.")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	var buf bytes.Buffer
	if err := m.WritePrometheus(r.Context(), &buf); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write(buf.Bytes())
}

// WritePrometheus collects the reader and renders it in the Prometheus text format.
func (m *Metrics) WritePrometheus(ctx context.Context, w io.Writer) error {
	if m == nil || m.reader == nil {
		return nil
	}
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return err
	}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if err := writeMetric(w, md); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", status),
	)
	ctx := context.Background()
	m.apiRequests.Add(ctx, 1, attrs)
	m.apiLatency.Record(ctx, dur.Seconds(), attrs)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(context.Background(), 1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(context.Background(), -1)
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("op", nonEmpty(op, "unknown")),
		attribute.String("status", nonEmpty(status, "unknown")),
	)
	ctx := context.Background()
	m.aggregateOps.Add(ctx, 1, attrs)
	m.aggregateLatency.Record(ctx, dur.Seconds(), attrs)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", nonEmpty(op, "unknown"))))
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", nonEmpty(op, "unknown"))))
}

// SweepCounts is the per-outcome tally of one sweep pass.
type SweepCounts struct {
	Marked    int
	Removed   int
	Untouched int
	Failed    int
}

func (m *Metrics) ObserveSweepPass(trigger, status string, counts SweepCounts, dur time.Duration) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.sweepPasses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", nonEmpty(trigger, "unknown")),
		attribute.String("status", nonEmpty(status, "unknown")),
	))
	m.sweepDuration.Record(ctx, dur.Seconds(), metric.WithAttributes(attribute.String("trigger", nonEmpty(trigger, "unknown"))))
	for outcome, n := range map[string]int{
		"marked":    counts.Marked,
		"removed":   counts.Removed,
		"untouched": counts.Untouched,
		"failed":    counts.Failed,
	} {
		if n > 0 {
			m.sweepCarts.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}
}

func (m *Metrics) IncSweepLease(result string) {
	if m == nil {
		return
	}
	m.sweepLease.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", nonEmpty(result, "unknown"))))
}

func (m *Metrics) IncCatalogLookup(source, result string) {
	if m == nil {
		return
	}
	m.catalogLookups.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("source", nonEmpty(source, "unknown")),
		attribute.String("result", nonEmpty(result, "unknown")),
	))
}

func (m *Metrics) IncCartEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.cartEvents.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("type", nonEmpty(eventType, "unknown")),
		attribute.String("status", nonEmpty(status, "unknown")),
	))
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: postgres collector disabled", "error", err)
		}
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := sqlDB.Stats()
				for stat, v := range map[string]int64{
					"open":            int64(stats.OpenConnections),
					"in_use":          int64(stats.InUse),
					"idle":            int64(stats.Idle),
					"wait_count":      stats.WaitCount,
					"max_open":        int64(stats.MaxOpenConnections),
					"max_idle_closed": stats.MaxIdleClosed,
				} {
					m.pgStats.Record(ctx, v, metric.WithAttributes(attribute.String("stat", stat)))
				}
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Record(ctx, 0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Record(ctx, 1)
				m.redisPing.Record(ctx, time.Since(start).Seconds())
			}
		}
	}()
}

func writeMetric(w io.Writer, md metricdata.Metrics) error {
	switch data := md.Data.(type) {
	case metricdata.Sum[int64]:
		kind := "gauge"
		if data.IsMonotonic {
			kind = "counter"
		}
		if err := writeHeader(w, md, kind); err != nil {
			return err
		}
		for _, dp := range data.DataPoints {
			if _, err := fmt.Fprintf(w, "%s%s %d\n", md.Name, labelString(dp.Attributes), dp.Value); err != nil {
				return err
			}
		}
	case metricdata.Sum[float64]:
		kind := "gauge"
		if data.IsMonotonic {
			kind = "counter"
		}
		if err := writeHeader(w, md, kind); err != nil {
			return err
		}
		for _, dp := range data.DataPoints {
			if _, err := fmt.Fprintf(w, "%s%s %g\n", md.Name, labelString(dp.Attributes), dp.Value); err != nil {
				return err
			}
		}
	case metricdata.Gauge[int64]:
		if err := writeHeader(w, md, "gauge"); err != nil {
			return err
		}
		for _, dp := range data.DataPoints {
			if _, err := fmt.Fprintf(w, "%s%s %d\n", md.Name, labelString(dp.Attributes), dp.Value); err != nil {
				return err
			}
		}
	case metricdata.Gauge[float64]:
		if err := writeHeader(w, md, "gauge"); err != nil {
			return err
		}
		for _, dp := range data.DataPoints {
			if _, err := fmt.Fprintf(w, "%s%s %g\n", md.Name, labelString(dp.Attributes), dp.Value); err != nil {
				return err
			}
		}
	case metricdata.Histogram[float64]:
		if err := writeHeader(w, md, "histogram"); err != nil {
			return err
		}
		for _, dp := range data.DataPoints {
			labels := labelString(dp.Attributes)
			var cumulative uint64
			for i, bound := range dp.Bounds {
				if i < len(dp.BucketCounts) {
					cumulative += dp.BucketCounts[i]
				}
				if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", md.Name, withLe(labels, strconv.FormatFloat(bound, 'g', -1, 64)), cumulative); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", md.Name, withLe(labels, "+Inf"), dp.Count); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s_sum%s %f\n", md.Name, labels, dp.Sum); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s_count%s %d\n", md.Name, labels, dp.Count); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeHeader(w io.Writer, md metricdata.Metrics, kind string) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", md.Name, md.Description); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "# TYPE %s %s\n", md.Name, kind)
	return err
}

func labelString(set attribute.Set) string {
	kvs := set.ToSlice()
	if len(kvs) == 0 {
		return ""
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].Key < kvs[j].Key })
	var b strings.Builder
	b.WriteString("{")
	for i, kv := range kvs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(string(kv.Key))
		b.WriteString("=\"")
		b.WriteString(escapeLabel(kv.Value.Emit()))
		b.WriteString("\"")
	}
	b.WriteString("}")
	return b.String()
}

func escapeLabel(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}

func withLe(labels string, le string) string {
	le = escapeLabel(le)
	if labels == "" || labels == "{}" {
		return "{le=\"" + le + "\"}"
	}
	if strings.HasSuffix(labels, "}") {
		return strings.TrimSuffix(labels, "}") + ",le=\"" + le + "\"}"
	}
	return "{le=\"" + le + "\"}"
}

func nonEmpty(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}
