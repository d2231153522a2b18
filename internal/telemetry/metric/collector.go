package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/webstore-go/internal/storage"
)

// StatsSource reports substrate usage. *storage.Origin implements it.
type StatsSource interface {
	Stats() []storage.SubstrateStats
}

// Collector exports substrate usage at scrape time.
type Collector struct {
	source StatsSource

	usage   *prometheus.Desc
	quota   *prometheus.Desc
	entries *prometheus.Desc
}

// NewCollector creates a collector reading from source.
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		usage: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "substrate", "usage_bytes"),
			"Bytes used by a storage substrate.",
			[]string{"backend"}, nil),
		quota: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "substrate", "quota_bytes"),
			"Byte quota of a storage substrate (0 = unlimited).",
			[]string{"backend"}, nil),
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "substrate", "entries"),
			"Entries held by a storage substrate.",
			[]string{"backend"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.usage
	ch <- c.quota
	ch <- c.entries
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.source.Stats() {
		b := s.Backend.String()
		ch <- prometheus.MustNewConstMetric(c.usage, prometheus.GaugeValue, float64(s.UsageBytes), b)
		ch <- prometheus.MustNewConstMetric(c.quota, prometheus.GaugeValue, float64(s.QuotaBytes), b)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Entries), b)
	}
}

var _ prometheus.Collector = (*Collector)(nil)
