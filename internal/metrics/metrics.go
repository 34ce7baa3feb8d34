package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Agrid-Dev/docalc/internal/district"
)

const namespace = "docalc"

// Recorder exports the latest report as gauges. It implements
// district.Observer.
type Recorder struct {
	registry *prometheus.Registry

	districtDOC prometheus.Gauge
	durationDOC prometheus.Gauge
	meanBESDOC  prometheus.Gauge
	networkDOC  prometheus.Gauge
	steps       prometheus.Gauge
	besDOC      *prometheus.GaugeVec
	evaluations *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		districtDOC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "district_doc",
			Help:      "Demand overlap coefficient of the summed district demand.",
		}),
		durationDOC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duration_doc",
			Help:      "Demand overlap coefficient of the district duration curves.",
		}),
		meanBESDOC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_bes_doc",
			Help:      "Mean demand overlap coefficient of the building energy systems.",
		}),
		networkDOC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_doc",
			Help:      "Demand overlap coefficient of the net demands on the network.",
		}),
		steps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profile_steps",
			Help:      "Number of timesteps in the evaluated profiles.",
		}),
		besDOC: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bes_doc",
			Help:      "Demand overlap coefficient of a single building energy system.",
		}, []string{"building"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Number of district evaluations by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		r.districtDOC,
		r.durationDOC,
		r.meanBESDOC,
		r.networkDOC,
		r.steps,
		r.besDOC,
		r.evaluations,
	)
	return r
}

func (r *Recorder) Observe(rep district.Report) {
	r.districtDOC.Set(rep.DistrictDOC)
	r.durationDOC.Set(rep.DurationDOC)
	r.meanBESDOC.Set(rep.MeanBESDOC)
	r.networkDOC.Set(rep.NetworkDOC)
	r.steps.Set(float64(rep.Steps))

	// buildings may have been replaced
	r.besDOC.Reset()
	for _, b := range rep.Buildings {
		r.besDOC.WithLabelValues(b.Name).Set(b.BESDOC)
	}
	r.evaluations.WithLabelValues("ok").Inc()
}

func (r *Recorder) ObserveError(error) {
	r.evaluations.WithLabelValues("error").Inc()
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
