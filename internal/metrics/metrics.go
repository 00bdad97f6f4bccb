// Package metrics counts run outcomes in Prometheus form.
//
// The Collector subscribes to the event bus and keeps its own registry, so
// several runs in one process never share counters. Export is a textfile
// for the node_exporter textfile collector; steprun serves no HTTP endpoint.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/steprun/internal/event"
	"github.com/roach88/steprun/internal/outcome"
)

// MetricsNamespace prefixes every exported metric name.
const MetricsNamespace = "steprun"

// Collector turns finished events into Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	stepsTotal     *prometheus.CounterVec
	scenariosTotal *prometheus.CounterVec
	stepDuration   prometheus.Histogram

	mu  sync.Mutex
	err error
}

// NewCollector creates a collector with a private registry.
// Every status label is pre-initialized so exports always list all five.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "steps_total",
			Help:      "Count of finished steps by outcome status",
		}, []string{
			"status",
		}),
		scenariosTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "scenarios_total",
			Help:      "Count of finished scenarios by outcome status",
		}, []string{
			"status",
		}),
		stepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of timed steps",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}

	for _, s := range outcome.AllStatuses {
		c.stepsTotal.WithLabelValues(s.String())
		c.scenariosTotal.WithLabelValues(s.String())
	}
	return c
}

// Handler returns the dispatcher subscription.
func (c *Collector) Handler() event.Handler {
	return c.Observe
}

// Observe records one envelope. Started events are ignored.
// An unknown status is not counted; the first one is kept, see Err.
func (c *Collector) Observe(env event.Envelope) {
	o, ok := env.Outcome()
	if !ok {
		return
	}
	if !o.Status().Valid() {
		c.setErr(fmt.Errorf("event seq %d: %w", env.Seq, &outcome.UnknownStatusError{Code: o.Status().String()}))
		return
	}

	switch env.Event.Kind() {
	case event.KindStepFinished:
		c.stepsTotal.WithLabelValues(o.Status().String()).Inc()
		if d, timed := o.Duration(); timed {
			c.stepDuration.Observe(d.Seconds())
		}
	case event.KindScenarioFinished:
		c.scenariosTotal.WithLabelValues(o.Status().String()).Inc()
	}
}

// Err returns the first unknown status seen.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is written atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (c *Collector) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}
