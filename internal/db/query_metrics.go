package db

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fr0stylo/txcommit/internal/db/queries"
	"github.com/fr0stylo/txcommit/internal/observability"
)

const (
	maxSamplesPerQuery = 512
	dbMeterName        = "txcommit/db"
)

type queueLabelKey struct{}

// WithQueue labels queries issued with ctx by the stage queue they serve, so
// claim and settle latency is reported per stage.
func WithQueue(ctx context.Context, queue string) context.Context {
	return context.WithValue(ctx, queueLabelKey{}, strings.TrimSpace(queue))
}

func queueLabel(ctx context.Context) string {
	queue, _ := ctx.Value(queueLabelKey{}).(string)
	return queue
}

// LatencyStats summarizes recent samples of one query, per queue when labelled.
type LatencyStats struct {
	Name  string
	Queue string
	Count int
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

type sampleKey struct {
	name  string
	queue string
}

type queryLatencyTracker struct {
	mu       sync.Mutex
	samples  map[sampleKey][]time.Duration
	duration metric.Float64Histogram
}

func newQueryLatencyTracker() *queryLatencyTracker {
	t := &queryLatencyTracker{samples: make(map[sampleKey][]time.Duration)}
	histogram, err := otel.Meter(dbMeterName).Float64Histogram("txcommit.db.query.duration",
		metric.WithDescription("SQLite query latency by query and stage queue"),
		metric.WithUnit("ms"))
	if err == nil {
		t.duration = histogram
	}
	return t
}

func (t *queryLatencyTracker) observe(ctx context.Context, name string, duration time.Duration) {
	if t == nil {
		return
	}
	key := sampleKey{name: strings.TrimSpace(name), queue: queueLabel(ctx)}
	if key.name == "" {
		key.name = "unknown"
	}

	if t.duration != nil {
		attrs := []attribute.KeyValue{attribute.String("db.query_name", key.name)}
		if key.queue != "" {
			attrs = append(attrs, attribute.String("txcommit.queue", key.queue))
		}
		t.duration.Record(ctx, float64(duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	window := append(t.samples[key], duration)
	if len(window) > maxSamplesPerQuery {
		window = window[len(window)-maxSamplesPerQuery:]
	}
	t.samples[key] = window
}

func (t *queryLatencyTracker) snapshot() []LatencyStats {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make([]LatencyStats, 0, len(t.samples))
	for key, durations := range t.samples {
		if len(durations) == 0 {
			continue
		}
		sorted := make([]time.Duration, len(durations))
		copy(sorted, durations)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		stats = append(stats, LatencyStats{
			Name:  key.name,
			Queue: key.queue,
			Count: len(sorted),
			P50:   sorted[(len(sorted)-1)/2],
			P95:   sorted[int(float64(len(sorted)-1)*0.95)],
			Max:   sorted[len(sorted)-1],
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].P95 != stats[j].P95 {
			return stats[i].P95 > stats[j].P95
		}
		if stats[i].Name != stats[j].Name {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].Queue < stats[j].Queue
	})

	return stats
}

type instrumentedDBTX struct {
	inner   queries.DBTX
	tracker *queryLatencyTracker
}

func newInstrumentedDBTX(inner queries.DBTX, tracker *queryLatencyTracker) queries.DBTX {
	if tracker == nil {
		return inner
	}
	return &instrumentedDBTX{inner: inner, tracker: tracker}
}

// measure wraps one driver call in a DB span and a latency sample.
func (d *instrumentedDBTX) measure(ctx context.Context, query, operation string) (context.Context, func(error)) {
	name := queryName(query)
	ctx, span := observability.StartDBSpan(ctx, name, operation)
	start := time.Now()
	return ctx, func(err error) {
		d.tracker.observe(ctx, name, time.Since(start))
		span.RecordError(err)
		span.End()
	}
}

func (d *instrumentedDBTX) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, done := d.measure(ctx, query, "exec")
	result, err := d.inner.ExecContext(ctx, query, args...)
	done(err)
	return result, err
}

func (d *instrumentedDBTX) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	ctx, done := d.measure(ctx, query, "prepare")
	stmt, err := d.inner.PrepareContext(ctx, query)
	done(err)
	return stmt, err
}

func (d *instrumentedDBTX) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ctx, done := d.measure(ctx, query, "query")
	rows, err := d.inner.QueryContext(ctx, query, args...)
	done(err)
	return rows, err
}

func (d *instrumentedDBTX) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ctx, done := d.measure(ctx, query, "query_row")
	row := d.inner.QueryRowContext(ctx, query, args...)
	done(row.Err())
	return row
}

func queryName(query string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(query), "\n")
	fields := strings.Fields(first)
	if len(fields) < 3 || fields[0] != "--" || fields[1] != "name:" {
		return "unknown"
	}
	return fields[2]
}
