// Package transport defines the API surface consumed from the
// radio-to-router emulation/simulation layer: the Transport Adapter of
// §2. The transport's own wire format is out of scope (§1 Non-goals);
// only this Go interface is specified.
package transport

import "context"

// NeighborMetric is one remote peer's observed link quality for the
// current reporting interval, §4.4.
type NeighborMetric struct {
	NeighborID             uint32
	AvgSINRdB              float64
	RxFrames               uint64
	MissedFrames           uint64
	BandwidthConsumedSecs  float64
}

// QueueMetric is one local queue's observed delay for the current
// reporting interval, §4.4.
type QueueMetric struct {
	QueueID       uint32
	AvgDelayMsec  float64
}

// SelfMetric is this node's own capacity for the current reporting
// interval, §4.4.
type SelfMetric struct {
	MaxDataRateBps       float64
	BroadcastDataRateBps float64
	ReportInterval       float64 // seconds
}

// Report bundles the three metric message kinds the aggregator expects
// to arrive together, §4.4 ("On every report arriving with all three
// parts present...").
type Report struct {
	Neighbors []NeighborMetric
	Queues    []QueueMetric
	Self      SelfMetric
}

// Adapter is the interface the Metrics Aggregator and Session Workers
// consume from the r2r transport library.
type Adapter interface {
	// Reports returns a channel of metric reports as they arrive from
	// the transport. The channel is closed when the adapter shuts down.
	Reports() <-chan Report

	// Send delivers a downstream frame addressed to dst over the
	// transport. When flow control is enabled, Send may block awaiting
	// a token and must therefore never be called from a hot I/O loop.
	Send(ctx context.Context, dst uint32, frame []byte) error

	// Recv returns a channel of (src, frame) pairs delivered upstream
	// from remote peers.
	Recv() <-chan Frame

	// TokenRequired reports whether Send's flow-control token wait is
	// active for this adapter instance, §5.
	TokenRequired() bool

	// Close releases the adapter's resources.
	Close() error
}

// Frame is an inbound frame received from a remote peer via the transport.
type Frame struct {
	Src  uint32
	Data []byte
}
