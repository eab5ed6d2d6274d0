package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/metrics"
)

// MetricFactory builds a fresh metric for a scene.
type MetricFactory func(params fluid.Params, domain fluid.Domain) metrics.Metric

// Registry maps metric names to factories.
type Registry struct {
	metrics map[string]MetricFactory
}

func NewRegistry() *Registry {
	r := &Registry{metrics: make(map[string]MetricFactory)}

	r.metrics["kinetic_energy"] = func(p fluid.Params, _ fluid.Domain) metrics.Metric {
		return metrics.NewKineticEnergy(p.Mass)
	}
	r.metrics["momentum"] = func(p fluid.Params, _ fluid.Domain) metrics.Metric {
		return metrics.NewMomentum(p.Mass)
	}
	r.metrics["density_error"] = func(p fluid.Params, _ fluid.Domain) metrics.Metric {
		return metrics.NewDensityError(p.RestDensity)
	}
	r.metrics["min_density"] = func(fluid.Params, fluid.Domain) metrics.Metric {
		return metrics.NewMinDensity()
	}
	r.metrics["max_speed"] = func(fluid.Params, fluid.Domain) metrics.Metric {
		return metrics.NewMaxSpeed()
	}
	r.metrics["containment"] = func(p fluid.Params, d fluid.Domain) metrics.Metric {
		return metrics.NewContainment(d, p.ParticleRadius)
	}

	return r
}

// Register adds or replaces a metric factory.
func (r *Registry) Register(name string, fn MetricFactory) {
	r.metrics[name] = fn
}

func (r *Registry) GetMetric(name string, params fluid.Params, domain fluid.Domain) (metrics.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(params, domain), nil
}

// Metrics builds the named metrics, or the default set when names is empty.
func (r *Registry) Metrics(names []string, params fluid.Params, domain fluid.Domain) ([]metrics.Metric, error) {
	if len(names) == 0 {
		return metrics.Defaults(params, domain), nil
	}
	out := make([]metrics.Metric, 0, len(names))
	for _, name := range names {
		m, err := r.GetMetric(name, params, domain)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
