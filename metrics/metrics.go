// Package metrics instruments adapter calls with Prometheus collectors and
// exports them for the node-exporter textfile collector at the end of a run.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/boardseed/tracker"
)

const namespace = "boardseed"

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	calls    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec

	lastSuccess   prometheus.Gauge
	lastTimestamp prometheus.Gauge
	itemsSeeded   prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "calls_total",
			Help:      "Adapter calls issued, by operation.",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "failures_total",
			Help:      "Adapter calls that failed, by operation.",
		}, []string{"op"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "call_duration_seconds",
			Help:      "Adapter call latency, by operation.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"op"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run completed, 0 if it failed.",
		}),
		lastTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		itemsSeeded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_items_seeded",
			Help:      "Items fully applied by the last run.",
		}),
	}
	m.registry.MustRegister(m.calls, m.failures, m.duration, m.lastSuccess, m.lastTimestamp, m.itemsSeeded)
	return m
}

// Registry returns the registry holding the run's collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records the outcome of a run.
func (m *Metrics) ObserveRun(items int, runErr error) {
	if runErr == nil {
		m.lastSuccess.Set(1)
	} else {
		m.lastSuccess.Set(0)
	}
	m.itemsSeeded.Set(float64(items))
	m.lastTimestamp.SetToCurrentTime()
}

// WriteTextfile writes all collectors to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Wrap returns an adapter that records every call on m.
func (m *Metrics) Wrap(a tracker.Adapter) tracker.Adapter {
	return &instrumented{next: a, m: m}
}

type instrumented struct {
	next tracker.Adapter
	m    *Metrics
}

func (i *instrumented) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	i.m.calls.WithLabelValues(op).Inc()
	i.m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		i.m.failures.WithLabelValues(op).Inc()
	}
	return err
}

func (i *instrumented) CreateBoard(ctx context.Context, owner, title string) (board tracker.Board, err error) {
	err = i.observe(tracker.OpCreateBoard, func() error {
		board, err = i.next.CreateBoard(ctx, owner, title)
		return err
	})
	return board, err
}

func (i *instrumented) ListFields(ctx context.Context, owner string, boardNumber int) (fields []tracker.RemoteField, err error) {
	err = i.observe(tracker.OpListFields, func() error {
		fields, err = i.next.ListFields(ctx, owner, boardNumber)
		return err
	})
	return fields, err
}

func (i *instrumented) CreateField(ctx context.Context, owner string, boardNumber int, name string, kind tracker.FieldKind, options []string) error {
	return i.observe(tracker.OpCreateField, func() error {
		return i.next.CreateField(ctx, owner, boardNumber, name, kind, options)
	})
}

func (i *instrumented) CreateItem(ctx context.Context, owner, repo, title, body string) (url string, err error) {
	err = i.observe(tracker.OpCreateItem, func() error {
		url, err = i.next.CreateItem(ctx, owner, repo, title, body)
		return err
	})
	return url, err
}

func (i *instrumented) AttachItem(ctx context.Context, owner string, boardNumber int, itemURL string) (item tracker.BoardItem, err error) {
	err = i.observe(tracker.OpAttachItem, func() error {
		item, err = i.next.AttachItem(ctx, owner, boardNumber, itemURL)
		return err
	})
	return item, err
}

func (i *instrumented) SetSelectValue(ctx context.Context, boardID, itemID, fieldID, optionID string) error {
	return i.observe(tracker.OpSetSelectValue, func() error {
		return i.next.SetSelectValue(ctx, boardID, itemID, fieldID, optionID)
	})
}

func (i *instrumented) SetTextValue(ctx context.Context, boardID, itemID, fieldID, text string) error {
	return i.observe(tracker.OpSetTextValue, func() error {
		return i.next.SetTextValue(ctx, boardID, itemID, fieldID, text)
	})
}
