package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "jsfit"

// fitMetrics records a fit in a private registry, which is written
// to a textfile for the node exporter textfile collector when the
// run completes.
type fitMetrics struct {
	reg *prometheus.Registry

	rows         *prometheus.GaugeVec
	occasions    prometheus.Gauge
	fitSeconds   prometheus.Gauge
	logPosterior prometheus.Gauge
	draws        prometheus.Counter
	nsuperMean   prometheus.Gauge
}

func newFitMetrics() *fitMetrics {

	fm := &fitMetrics{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rows",
			Help:      "Number of encounter history rows by kind",
		}, []string{"kind"}),
		occasions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "occasions",
			Help:      "Number of sampling occasions",
		}),
		fitSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "fit_seconds",
			Help:      "Time spent locating the posterior mode",
		}),
		logPosterior: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "log_posterior",
			Help:      "Log posterior density at the mode",
		}),
		draws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "draws_total",
			Help:      "Number of posterior draws processed",
		}),
		nsuperMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "nsuper_mean",
			Help:      "Posterior mean of the superpopulation size",
		}),
	}

	fm.reg.MustRegister(fm.rows, fm.occasions, fm.fitSeconds, fm.logPosterior, fm.draws, fm.nsuperMean)

	return fm
}

func (fm *fitMetrics) write(path string) error {
	return prometheus.WriteToTextfile(path, fm.reg)
}
