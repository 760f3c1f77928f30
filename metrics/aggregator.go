// Package metrics implements the Metrics Aggregator of §4.4: it turns
// raw r2r transport reports into RFC 4938 PADQ link-quality fields and
// decides how the local per-interval credit pool is distributed across
// active neighbors.
package metrics

import (
	"github.com/rs/zerolog"

	"github.com/adjacentlink/rfc4938/config"
	"github.com/adjacentlink/rfc4938/ctlmsg"
	"github.com/adjacentlink/rfc4938/transport"
)

// Aggregator converts transport.Report data into PADQ fields and
// credit-grant decisions on every reporting interval, §4.4.
type Aggregator struct {
	cfg config.Config
	log zerolog.Logger
}

// NewAggregator constructs an Aggregator bound to cfg's SINR bounds and
// credit distribution mode.
func NewAggregator(cfg config.Config, logger zerolog.Logger) *Aggregator {
	return &Aggregator{cfg: cfg, log: logger.With().Str("component", "metrics").Logger()}
}

// ComputeRLQ maps a neighbor's average SINR (dB) linearly onto the 0-100
// Receive-Link-Quality scale carried in a Metrics tag, clamped at the
// configured SINR_MIN/SINR_MAX bounds, §4.4.
func (a *Aggregator) ComputeRLQ(sinrDB float64) uint8 {
	lo, hi := a.cfg.SINRMin, a.cfg.SINRMax
	if hi <= lo {
		return 0
	}
	if sinrDB <= lo {
		return 0
	}
	if sinrDB >= hi {
		return 100
	}
	return uint8(100 * (sinrDB - lo) / (hi - lo))
}

// maxQueueDelayMsec is the delay at or beyond which Resources reports 0,
// §4.4.
const maxQueueDelayMsec = 500.0

// ComputeResources maps a queue's average delay onto the 0-100 Resources
// scale: a quiet queue (low delay) reports high availability, §4.4.
func ComputeResources(avgDelayMsec float64) uint8 {
	if avgDelayMsec <= 0 {
		return 100
	}
	if avgDelayMsec >= maxQueueDelayMsec {
		return 0
	}
	return uint8(100 * (maxQueueDelayMsec - avgDelayMsec) / maxQueueDelayMsec)
}

// dataRateParts splits a data rate in bits per second into the
// {scale, magnitude} pair a Metrics tag carries, §4.4.
func dataRateParts(bps float64) (uint8, uint16) {
	scale := uint8(0) // KBS
	v := bps / 1000
	for v > 0xFFFF && scale < 3 {
		v /= 1000
		scale++
	}
	if v > 0xFFFF {
		v = 0xFFFF
	}
	return scale, uint16(v)
}

// BuildPADQ assembles the PADQ link-quality fields for one neighbor from
// its most recent transport report, §4.4.
func (a *Aggregator) BuildPADQ(nm transport.NeighborMetric, qm transport.QueueMetric, self transport.SelfMetric) ctlmsg.PADQ {
	rlq := a.ComputeRLQ(nm.AvgSINRdB)
	resources := ComputeResources(qm.AvgDelayMsec)
	cdrScale, cdr := dataRateParts(self.BroadcastDataRateBps)
	mdrScale, mdr := dataRateParts(self.MaxDataRateBps)
	return ctlmsg.PADQ{
		ReceiveOnly: self.MaxDataRateBps == 0,
		RLQ:         rlq,
		Resources:   resources,
		Latency:     uint16(qm.AvgDelayMsec),
		CDRScale:    uint16(cdrScale),
		CDR:         cdr,
		MDRScale:    uint16(mdrScale),
		MDR:         mdr,
	}
}

// DistributeCredits decides each active neighbor's share of the
// per-interval credit pool, §4.4:
//   - DistFlat grants the configured CREDIT_GRANT to every neighbor
//     unconditionally, regardless of how many are active.
//   - DistEven splits CREDIT_GRANT evenly across active neighbors.
//   - DistDirect weights each neighbor's share by its RLQ, so
//     higher-quality links receive proportionally more credit.
//
// weights maps neighbor id to its most recently computed RLQ and is
// only consulted in DistDirect mode.
func (a *Aggregator) DistributeCredits(neighbors []uint32, weights map[uint32]uint8) map[uint32]uint16 {
	out := make(map[uint32]uint16, len(neighbors))
	if len(neighbors) == 0 {
		return out
	}
	switch a.cfg.CreditDistMode {
	case config.DistFlat:
		for _, id := range neighbors {
			out[id] = a.cfg.CreditGrant
		}
	case config.DistDirect:
		var total int
		for _, id := range neighbors {
			total += int(weights[id]) + 1 // +1 so a zero-RLQ neighbor still gets a floor share
		}
		for _, id := range neighbors {
			share := (int(a.cfg.CreditGrant) * (int(weights[id]) + 1)) / total
			out[id] = uint16(share)
		}
	default: // DistEven
		share := a.cfg.CreditGrant / uint16(len(neighbors))
		for _, id := range neighbors {
			out[id] = share
		}
	}
	return out
}
