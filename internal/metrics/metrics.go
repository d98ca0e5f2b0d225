// Package metrics counts lifecycle events as prometheus metrics.
package metrics

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/robotomize/go-allure/internal/hook"
)

var (
	_ hook.TestListener   = (*Collector)(nil)
	_ hook.StepListener   = (*Collector)(nil)
	_ hook.AttachListener = (*Collector)(nil)
)

// Collector is a dispatcher listener observing test and step outcomes.
type Collector struct {
	registry         *prometheus.Registry
	testsTotal       *prometheus.CounterVec
	stepsTotal       *prometheus.CounterVec
	attachmentsTotal prometheus.Counter
	testDuration     *prometheus.HistogramVec
	stepDuration     *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		testsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "allure_tests_total", Help: "Total number of finished tests"},
			[]string{"status"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "allure_steps_total", Help: "Total number of finished steps"},
			[]string{"status"},
		),
		attachmentsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "allure_attachments_total", Help: "Total number of attachments"},
		),
		testDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "allure_test_duration_seconds",
				Help:    "Test duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "allure_step_duration_seconds",
				Help:    "Step duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		started: make(map[string]time.Time),
	}

	registry.MustRegister(c.testsTotal, c.stepsTotal, c.attachmentsTotal, c.testDuration, c.stepDuration)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) start(uuid string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started[uuid] = at
}

func (c *Collector) elapsed(uuid string, at time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	start, ok := c.started[uuid]
	delete(c.started, uuid)
	if !ok || at.Before(start) {
		return 0
	}

	return at.Sub(start)
}

func (c *Collector) StartTest(_ context.Context, e hook.StartTestEvent) error {
	c.start(e.UUID, e.Time)
	return nil
}

func (c *Collector) StopTest(_ context.Context, e hook.StopTestEvent) error {
	status := string(e.Outcome.Status)
	c.testsTotal.WithLabelValues(status).Inc()
	c.testDuration.WithLabelValues(status).Observe(c.elapsed(e.UUID, e.Time).Seconds())

	return nil
}

func (c *Collector) StartStep(_ context.Context, e hook.StartStepEvent) error {
	c.start(e.UUID, e.Time)
	return nil
}

func (c *Collector) StopStep(_ context.Context, e hook.StopStepEvent) error {
	status := string(e.Outcome.Status)
	c.stepsTotal.WithLabelValues(status).Inc()
	c.stepDuration.WithLabelValues(status).Observe(c.elapsed(e.UUID, e.Time).Seconds())

	return nil
}

func (c *Collector) AttachData(context.Context, hook.AttachDataEvent) error {
	c.attachmentsTotal.Inc()
	return nil
}

func (c *Collector) AttachFile(context.Context, hook.AttachFileEvent) error {
	c.attachmentsTotal.Inc()
	return nil
}

// Write writes all metrics to a Prometheus text file.
func (c *Collector) Write(path string) error {
	metricFamilies, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("registry Gather: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range metricFamilies {
		if err = enc.Encode(family); err != nil {
			return fmt.Errorf("expfmt Encode: %w", err)
		}
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}
