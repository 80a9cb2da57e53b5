package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/airwave/airwave/internal/model"
)

// aircraftLister reports the live aircraft count; satisfied by
// tracker.AircraftTracker.
type aircraftLister interface {
	ListActive() []*model.Aircraft
}

// hfgcsLister reports the live HFGCS watch list; satisfied by
// tracker.HFGCSTracker.
type hfgcsLister interface {
	ListActive() []*model.HFGCSAircraft
}

// busStats reports bus subscriber and dropped-event counts; satisfied by bus.Bus.
type busStats interface {
	SubscriberCount() int
	Dropped() uint64
}

// Collector reads live in-process state at scrape time rather than via
// counters incremented on every event, for gauges whose natural
// representation is "current size of a set" (active aircraft, HFGCS watch list).
type Collector struct {
	pool    *pgxpool.Pool
	tracker aircraftLister
	hfgcs   hfgcsLister
	bus     busStats

	activeAircraft  *prometheus.Desc
	activeHFGCS     *prometheus.Desc
	busDropped      *prometheus.Desc
	dbTotalConns    *prometheus.Desc
	dbAcquiredConns *prometheus.Desc
	dbIdleConns     *prometheus.Desc
}

// NewCollector creates a collector over the given subsystems. Any may be
// nil; the corresponding gauge reports 0.
func NewCollector(pool *pgxpool.Pool, tracker aircraftLister, hfgcs hfgcsLister, bus busStats) *Collector {
	return &Collector{
		pool:    pool,
		tracker: tracker,
		hfgcs:   hfgcs,
		bus:     bus,
		activeAircraft: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active_aircraft"),
			"Current number of tracked aircraft.", nil, nil),
		activeHFGCS: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active_hfgcs_aircraft"),
			"Current number of HFGCS watch-list aircraft.", nil, nil),
		busDropped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "dropped_total"),
			"Events dropped across all bus subscribers due to backpressure.", nil, nil),
		dbTotalConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "total_conns"),
			"Total database pool connections.", nil, nil),
		dbAcquiredConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "acquired_conns"),
			"Database pool connections currently in use.", nil, nil),
		dbIdleConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "idle_conns"),
			"Database pool idle connections.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeAircraft
	ch <- c.activeHFGCS
	ch <- c.busDropped
	ch <- c.dbTotalConns
	ch <- c.dbAcquiredConns
	ch <- c.dbIdleConns
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	aircraftCount := 0.0
	if c.tracker != nil {
		aircraftCount = float64(len(c.tracker.ListActive()))
	}
	ch <- prometheus.MustNewConstMetric(c.activeAircraft, prometheus.GaugeValue, aircraftCount)

	hfgcsCount := 0.0
	if c.hfgcs != nil {
		hfgcsCount = float64(len(c.hfgcs.ListActive()))
	}
	ch <- prometheus.MustNewConstMetric(c.activeHFGCS, prometheus.GaugeValue, hfgcsCount)

	dropped := 0.0
	if c.bus != nil {
		dropped = float64(c.bus.Dropped())
	}
	ch <- prometheus.MustNewConstMetric(c.busDropped, prometheus.CounterValue, dropped)

	if c.pool != nil {
		stat := c.pool.Stat()
		ch <- prometheus.MustNewConstMetric(c.dbTotalConns, prometheus.GaugeValue, float64(stat.TotalConns()))
		ch <- prometheus.MustNewConstMetric(c.dbAcquiredConns, prometheus.GaugeValue, float64(stat.AcquiredConns()))
		ch <- prometheus.MustNewConstMetric(c.dbIdleConns, prometheus.GaugeValue, float64(stat.IdleConns()))
	} else {
		ch <- prometheus.MustNewConstMetric(c.dbTotalConns, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.dbAcquiredConns, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.dbIdleConns, prometheus.GaugeValue, 0)
	}
}
