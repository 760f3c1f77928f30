package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// NeighborSnapshot is one neighbor's current credit and link-quality
// state, exported as Prometheus gauges, §4.4.
type NeighborSnapshot struct {
	NeighborID   uint32
	LocalCredits uint16
	PeerCredits  uint16
	RLQ          uint8
	Resources    uint8
}

// Collector implements prometheus.Collector, exposing per-neighbor
// credit and link-quality gauges plus the active-session count. Its
// snapshot is replaced wholesale on each Update call rather than
// computed on scrape, so Collect never blocks on the session workers
// themselves. The Supervisor does not call Update.
type Collector struct {
	localCreditsDesc *prometheus.Desc
	peerCreditsDesc  *prometheus.Desc
	rlqDesc          *prometheus.Desc
	resourcesDesc    *prometheus.Desc
	sessionsDesc     *prometheus.Desc

	mu        sync.Mutex
	snapshots map[uint32]NeighborSnapshot
}

// NewCollector constructs an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		localCreditsDesc: prometheus.NewDesc(
			"rfc4938_local_credits", "Local credit balance for a neighbor session.",
			[]string{"neighbor_id"}, nil),
		peerCreditsDesc: prometheus.NewDesc(
			"rfc4938_peer_credits", "Peer credit balance for a neighbor session.",
			[]string{"neighbor_id"}, nil),
		rlqDesc: prometheus.NewDesc(
			"rfc4938_rlq", "Receive link quality (0-100) reported to a neighbor.",
			[]string{"neighbor_id"}, nil),
		resourcesDesc: prometheus.NewDesc(
			"rfc4938_resources", "Resource availability (0-100) reported to a neighbor.",
			[]string{"neighbor_id"}, nil),
		sessionsDesc: prometheus.NewDesc(
			"rfc4938_active_sessions", "Number of active RFC4938 sessions.", nil, nil),
		snapshots: make(map[uint32]NeighborSnapshot),
	}
}

// Update replaces the collector's neighbor snapshot set.
func (c *Collector) Update(snaps []NeighborSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = make(map[uint32]NeighborSnapshot, len(snaps))
	for _, s := range snaps {
		c.snapshots[s.NeighborID] = s
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.localCreditsDesc
	ch <- c.peerCreditsDesc
	ch <- c.rlqDesc
	ch <- c.resourcesDesc
	ch <- c.sessionsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, s := range c.snapshots {
		label := idLabel(id)
		ch <- prometheus.MustNewConstMetric(c.localCreditsDesc, prometheus.GaugeValue, float64(s.LocalCredits), label)
		ch <- prometheus.MustNewConstMetric(c.peerCreditsDesc, prometheus.GaugeValue, float64(s.PeerCredits), label)
		ch <- prometheus.MustNewConstMetric(c.rlqDesc, prometheus.GaugeValue, float64(s.RLQ), label)
		ch <- prometheus.MustNewConstMetric(c.resourcesDesc, prometheus.GaugeValue, float64(s.Resources), label)
	}
	ch <- prometheus.MustNewConstMetric(c.sessionsDesc, prometheus.GaugeValue, float64(len(c.snapshots)))
}

func idLabel(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
