package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution results reported via Collector.IncResolution.
const (
	ResultHit      = "hit"
	ResultResolved = "resolved"
	ResultNotFound = "not_found"
	ResultCycle    = "cycle"
)

// Collector captures telemetry events emitted by the resolver and the service.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. Hooks run inline with config resolution and widget
// rendering, so calls must stay inexpensive.
type Collector interface {
	IncHotReload(file string)
	IncResolution(result string)
	IncRefine(configID string)
	SetRegistrySize(kind string, size int)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncHotReload(string)         {}
func (noopCollector) IncResolution(string)        {}
func (noopCollector) IncRefine(string)            {}
func (noopCollector) SetRegistrySize(string, int) {}

// PrometheusCollector exposes telemetry counters via Prometheus.
type PrometheusCollector struct {
	hotReloads   *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	refines      *prometheus.CounterVec
	registrySize *prometheus.GaugeVec
}

var (
	hotReloadCounter      *prometheus.CounterVec
	hotReloadCounterLock  sync.Mutex
	resolutionCounter     *prometheus.CounterVec
	resolutionCounterLock sync.Mutex
	refineCounter         *prometheus.CounterVec
	refineCounterLock     sync.Mutex
	registrySizeGauge     *prometheus.GaugeVec
	registrySizeGaugeLock sync.Mutex
)

// NewPrometheusCollector registers the required metrics with the provided registerer.
// Metrics that are already registered are reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	hotReloads, err := counterVec(reg, &hotReloadCounterLock, &hotReloadCounter, prometheus.CounterOpts{
		Name: "dashwidget_registry_hot_reload_total",
		Help: "Number of hot reload operations triggered per registry source file.",
	}, "file")
	if err != nil {
		return nil, err
	}
	resolutions, err := counterVec(reg, &resolutionCounterLock, &resolutionCounter, prometheus.CounterOpts{
		Name: "dashwidget_config_resolutions_total",
		Help: "Number of widget config resolutions by result.",
	}, "result")
	if err != nil {
		return nil, err
	}
	refines, err := counterVec(reg, &refineCounterLock, &refineCounter, prometheus.CounterOpts{
		Name: "dashwidget_options_refined_total",
		Help: "Number of widget option sets refined per widget config.",
	}, "config")
	if err != nil {
		return nil, err
	}

	registrySizeGaugeLock.Lock()
	defer registrySizeGaugeLock.Unlock()
	if registrySizeGauge == nil {
		gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashwidget_registry_configs",
			Help: "Number of configs in the active registry by kind.",
		}, []string{"kind"})
		if err := reg.Register(gauge); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			existing, ok := already.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				return nil, err
			}
			gauge = existing
		}
		registrySizeGauge = gauge
	}

	return &PrometheusCollector{
		hotReloads:   hotReloads,
		resolutions:  resolutions,
		refines:      refines,
		registrySize: registrySizeGauge,
	}, nil
}

func counterVec(reg prometheus.Registerer, lock *sync.Mutex, cached **prometheus.CounterVec, opts prometheus.CounterOpts, labels ...string) (*prometheus.CounterVec, error) {
	lock.Lock()
	defer lock.Unlock()
	if *cached != nil {
		return *cached, nil
	}
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		counter = existing
	}
	*cached = counter
	return counter, nil
}

// IncHotReload increments the counter for the provided file path.
func (p *PrometheusCollector) IncHotReload(file string) {
	if p == nil || p.hotReloads == nil {
		return
	}
	p.hotReloads.WithLabelValues(file).Inc()
}

// IncResolution records the outcome of a config resolution.
func (p *PrometheusCollector) IncResolution(result string) {
	if p == nil || p.resolutions == nil {
		return
	}
	p.resolutions.WithLabelValues(result).Inc()
}

// IncRefine records a refined option set for a widget config.
func (p *PrometheusCollector) IncRefine(configID string) {
	if p == nil || p.refines == nil {
		return
	}
	p.refines.WithLabelValues(configID).Inc()
}

// SetRegistrySize updates the registry size gauge.
func (p *PrometheusCollector) SetRegistrySize(kind string, size int) {
	if p == nil || p.registrySize == nil {
		return
	}
	p.registrySize.WithLabelValues(kind).Set(float64(size))
}
