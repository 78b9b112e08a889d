// Package metrics records what one maintd run did and exports it as a
// node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/conn-castle/maintd/internal/messages"
)

const namespace = "maintd"

// Invocation results.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSpawn   = "spawn_error"
)

// Recorder holds the metrics of the current run. A nil *Recorder records nothing.
type Recorder struct {
	reg         *prom.Registry
	invocations *prom.CounterVec
	commands    *prom.CounterVec
	resolution  prom.Gauge
	lastRun     prom.Gauge
	definitions prom.Gauge
}

// NewRecorder constructs the metrics and registers them with a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{reg: prom.NewRegistry()}
	r.invocations = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "invocations_total",
		Help:      "Helper invocations of the last run by kind and result",
	}, []string{"kind", "result"})
	r.commands = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Commands of the last run by name and outcome",
	}, []string{"cmd", "outcome"})
	r.resolution = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "identity_resolution_seconds",
		Help:      "Duration of the last identity resolution",
	})
	r.lastRun = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})
	r.definitions = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "definitions",
		Help:      "Number of definitions resolved by the last run",
	})
	r.reg.MustRegister(r.invocations, r.commands, r.resolution, r.lastRun, r.definitions)
	return r
}

// IncInvocation counts one completed helper invocation.
func (r *Recorder) IncInvocation(kind string, result string) {
	if r == nil {
		return
	}
	r.invocations.WithLabelValues(kind, result).Inc()
}

// IncCommand counts one finished command.
func (r *Recorder) IncCommand(cmd string, outcome string) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(cmd, outcome).Inc()
}

// ObserveResolution records how long identity resolution took and how many
// definitions it produced.
func (r *Recorder) ObserveResolution(d time.Duration, definitions int) {
	if r == nil {
		return
	}
	r.resolution.Set(d.Seconds())
	r.definitions.Set(float64(definitions))
}

// WriteTextfile stamps the run end time and writes all metrics to path.
func (r *Recorder) WriteTextfile(path string, now time.Time) error {
	if r == nil || path == "" {
		return nil
	}
	r.lastRun.Set(float64(now.Unix()))
	if err := prom.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf(messages.MetricsWriteFmt, path, err)
	}
	return nil
}
