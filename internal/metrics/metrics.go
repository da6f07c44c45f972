// Package metrics exposes evolution counters and gauges over Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks the progress of evolution runs. A nil Collector is
// safe to use and records nothing.
type Collector struct {
	organismsCreated prometheus.Counter
	organismsCulled  prometheus.Counter
	generations      prometheus.Counter
	bestFitness      prometheus.Gauge
	populationSize   prometheus.Gauge
}

func NewCollector() *Collector {
	return &Collector{
		organismsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biogenesis",
			Name:      "organisms_created_total",
			Help:      "Number of organisms created by seeding or reproduction.",
		}),
		organismsCulled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biogenesis",
			Name:      "organisms_culled_total",
			Help:      "Number of organisms removed as generation casualties.",
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "biogenesis",
			Name:      "generations_total",
			Help:      "Number of completed generations.",
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "biogenesis",
			Name:      "best_fitness",
			Help:      "Best fitness observed in the most recent generation.",
		}),
		populationSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "biogenesis",
			Name:      "population_size",
			Help:      "Current colony population size.",
		}),
	}
}

// Register registers all collectors with the given registerer.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if c == nil {
		return nil
	}
	for _, collector := range []prometheus.Collector{
		c.organismsCreated,
		c.organismsCulled,
		c.generations,
		c.bestFitness,
		c.populationSize,
	} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) OrganismsCreated(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.organismsCreated.Add(float64(n))
}

func (c *Collector) OrganismsCulled(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.organismsCulled.Add(float64(n))
}

func (c *Collector) GenerationCompleted() {
	if c == nil {
		return
	}
	c.generations.Inc()
}

func (c *Collector) ObserveBestFitness(fitness float64) {
	if c == nil {
		return
	}
	c.bestFitness.Set(fitness)
}

func (c *Collector) ObservePopulation(size int) {
	if c == nil {
		return
	}
	c.populationSize.Set(float64(size))
}
