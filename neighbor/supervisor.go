package neighbor

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/adjacentlink/rfc4938/config"
	"github.com/adjacentlink/rfc4938/ctlmsg"
	"github.com/adjacentlink/rfc4938/datapath"
	"github.com/adjacentlink/rfc4938/session"
)

// NBRInitTimeout is the default inactivity window after which a
// PENDING neighbor that never reached SESSION is dropped, §4.5/§8.
const NBRInitTimeout = 60 * time.Second

// Supervisor owns the shared Device, the Neighbor Table, and every
// Session Worker's lifecycle: it demultiplexes inbound frames to the
// right worker by MAC (discovery stage) or session id (session stage),
// spawns/stops workers, and relays worker control messages upstream, §4.5.
type Supervisor struct {
	cfg    config.Config
	dev    datapath.Device
	table  *Table
	log    zerolog.Logger
	myEth  net.HardwareAddr

	mu     sync.Mutex
	group  *errgroup.Group
	seq    uint32

	upstream chan []byte // encoded ctlmsg reports bound for the CLI/platform
}

// NewSupervisor constructs a Supervisor bound to dev, using myEth as
// the local interface's hardware address for every outgoing frame.
func NewSupervisor(cfg config.Config, dev datapath.Device, myEth net.HardwareAddr, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		dev:      dev,
		table:    NewTable(),
		log:      logger.With().Str("component", "supervisor").Logger(),
		myEth:    myEth,
		group:    &errgroup.Group{},
		upstream: make(chan []byte, 64),
	}
}

// Table returns the Supervisor's neighbor table, for callers (the
// control listener's "show" handler) that need to list neighbors
// without going through a ctlmsg round trip.
func (s *Supervisor) Table() *Table { return s.table }

// Wait blocks until every Session Worker spawned by StartNeighbor has
// exited, returning the first non-nil error among them.
func (s *Supervisor) Wait() error { return s.group.Wait() }

// Upstream returns the channel of encoded ctlmsg payloads the
// Supervisor emits for the CLI/platform layer to consume.
func (s *Supervisor) Upstream() <-chan []byte { return s.upstream }

// Send implements session.Supervisor: a worker's outgoing control
// message is forwarded upstream unmodified, after its sequence number
// is recorded against the reporting neighbor.
func (s *Supervisor) Send(msg []byte) {
	s.recordUpstreamSeqNum(msg)
	select {
	case s.upstream <- msg:
	default:
		s.log.Warn().Msg("upstream control channel full, dropping message")
	}
}

// recordUpstreamSeqNum updates the reporting neighbor's sequence
// accounting, §4.7. Every worker-originated report (CHILD_SESSION_DATA,
// CHILD_SESSION_TERMINATED) carries its neighbor id as the first four
// body bytes, so this is decoded generically rather than per message type.
func (s *Supervisor) recordUpstreamSeqNum(msg []byte) {
	hdr, body, err := ctlmsg.DecodeHeader(msg)
	if err != nil || len(body) < 4 {
		return
	}
	id := binary.BigEndian.Uint32(body[0:4])
	if n := s.table.Get(id); n != nil {
		n.RecordSeqNum(hdr.Seq)
	}
}

// Run demultiplexes frames from dev to neighbor workers and expires
// inactive neighbors until ctx is cancelled, §4.5.
func (s *Supervisor) Run(ctx context.Context) error {
	expiry := time.NewTicker(NBRInitTimeout / 4)
	defer expiry.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-s.dev.Recv():
			if !ok {
				return fmt.Errorf("neighbor: device closed")
			}
			s.dispatch(frame)
		case <-expiry.C:
			s.expireInactive()
		}
	}
}

func (s *Supervisor) dispatch(frame []byte) {
	n := s.route(frame)
	if n == nil {
		s.log.Debug().Msg("no neighbor matched inbound frame, dropping")
		return
	}
	select {
	case n.inbox <- frame:
	default:
		s.log.Warn().Uint32("neighbor_id", n.ID).Msg("worker inbox full, dropping frame")
	}
}

// route identifies which neighbor an inbound frame belongs to: by
// source MAC first, falling back to the frame's session id, §4.5.
func (s *Supervisor) route(frame []byte) *Neighbor {
	if len(frame) < 14+6 {
		return nil
	}
	srcMAC := net.HardwareAddr(frame[6:12])
	if n := s.table.ByMAC(srcMAC); n != nil {
		return n
	}
	sessionID := uint16(frame[16])<<8 | uint16(frame[17])
	return s.table.BySessionID(sessionID)
}

// StartNeighbor provisions a neighbor entry and spawns its Session
// Worker, transitioning PENDING -> ACTIVE once discovery completes.
// Spawning twice for the same id returns an error naming the existing
// neighbor's state.
func (s *Supervisor) StartNeighbor(ctx context.Context, peerID uint32, peerMAC net.HardwareAddr) error {
	if n := s.table.Get(peerID); n != nil {
		return fmt.Errorf("neighbor: %d already provisioned (state=%v)", peerID, n.State)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	n := &Neighbor{
		ID:           peerID,
		MAC:          peerMAC,
		State:        StatePending,
		LastActivity: time.Now(),
		cancel:       cancel,
		inbox:        make(chan []byte, 64),
		done:         make(chan struct{}),
	}
	s.table.Put(n)

	sessCtx := session.NewContext(hostID(s.cfg), peerID, 0)
	dev := &neighborDevice{out: s.dev, in: n.inbox}
	worker := session.NewWorker(sessCtx, session.Config{
		MyEth:         s.myEth,
		ServiceName:   s.cfg.ServiceName,
		P2PMode:       s.cfg.P2PMode,
		InbandGrants:  !s.cfg.FlowControlEnabled,
		OperatingMode: operatingMode(s.cfg),
	}, dev, s, s.log)

	s.group.Go(func() error {
		defer close(n.done)
		err := worker.Run(workerCtx)
		s.mu.Lock()
		if err != nil {
			s.log.Warn().Uint32("neighbor_id", peerID).Err(err).Msg("session worker exited")
			n.State = StateInvalid
		} else {
			n.State = StateInactive
		}
		s.mu.Unlock()
		s.Send(ctlmsg.PeerSessionTerminated{NeighborID: peerID}.Encode(s.nextSeq()))
		return err
	})

	n.State = StateActive
	return nil
}

// StopNeighbor cancels the neighbor's worker and removes it from the
// table.
func (s *Supervisor) StopNeighbor(peerID uint32) error {
	n := s.table.Get(peerID)
	if n == nil {
		return fmt.Errorf("neighbor: %d not found", peerID)
	}
	n.cancel()
	<-n.done
	s.table.Delete(peerID)
	return nil
}

// Reload re-applies cfg to the Supervisor's own settings. Active
// workers are not restarted; cfg takes effect for neighbors started
// after the reload, matching how the original implementation's SIGHUP
// handler only affects new session spawns, §3 (supplemented feature).
func (s *Supervisor) Reload(cfg config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.log.Info().Msg("configuration reloaded")
}

func (s *Supervisor) expireInactive() {
	now := time.Now()
	for _, n := range s.table.All() {
		if n.State == StatePending && now.Sub(n.LastActivity) > NBRInitTimeout {
			s.log.Info().Uint32("neighbor_id", n.ID).Msg("expiring neighbor stuck in PENDING")
			s.StopNeighbor(n.ID)
		}
	}
}

func (s *Supervisor) nextSeq() uint32 {
	return atomic.AddUint32(&s.seq, 1)
}

func hostID(cfg config.Config) uint32 { return cfg.NodeID }

func operatingMode(cfg config.Config) session.OperatingMode {
	if cfg.CreditScalar != 0 && cfg.CreditScalar != 64 {
		return session.ModeRFC4938Scaling
	}
	return session.ModeRFC4938Only
}

// neighborDevice adapts the Supervisor's shared Device plus a per-
// neighbor demultiplexed inbox into the session.Device interface a
// Worker expects, so each worker believes it owns a private link.
type neighborDevice struct {
	out datapath.Device
	in  <-chan []byte
}

func (d *neighborDevice) Send(frame []byte) error { return d.out.Send(frame) }
func (d *neighborDevice) Recv() <-chan []byte     { return d.in }
