package session

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/adjacentlink/rfc4938/ctlmsg"
	"github.com/adjacentlink/rfc4938/lcp"
	"github.com/adjacentlink/rfc4938/pppoe"
)

// Device is the local datapath endpoint a Session Worker reads/writes
// Ethernet frames through: raw AF_PACKET socket or TAP interface,
// depending on configuration (datapath.ModeRawSocket / datapath.ModeTAP).
type Device interface {
	Send(frame []byte) error
	Recv() <-chan []byte
}

// Supervisor is the narrow slice of the neighbor Supervisor a worker
// needs: routing encoded ctlmsg payloads up for CLI reporting and
// downstream-peer relay, §4.5/§6.2.
type Supervisor interface {
	Send(msg []byte)
}

// Config bundles the knobs a Worker needs that come from config.Config
// without importing the whole package (avoids a dependency cycle
// between session and the daemon-level config wiring).
type Config struct {
	MyEth           net.HardwareAddr
	ServiceName     string
	P2PMode         bool
	InbandGrants    bool
	OperatingMode   OperatingMode
	PADIPollPeriod  time.Duration
}

// Worker drives one neighbor's PPPoE+RFC4938 session end to end:
// discovery, the grant state machine, session data relay, and (in
// broadcast/P2MP mode) local LCP/IPCP synthesis, §4.1/§4.2/§4.6.
type Worker struct {
	ctx    *Context
	cfg    Config
	dev    Device
	sup    Supervisor
	log    zerolog.Logger
	seq    uint32
	padiAttempts int
	padrAttempts int
}

// NewWorker constructs a Worker for the given neighbor context.
func NewWorker(sc *Context, cfg Config, dev Device, sup Supervisor, logger zerolog.Logger) *Worker {
	sc.MyEth = cfg.MyEth
	sc.OperatingMode = cfg.OperatingMode
	sc.SendInbandGrant = cfg.InbandGrants
	sc.UseHostUniq = true
	return &Worker{
		ctx: sc,
		cfg: cfg,
		dev: dev,
		sup: sup,
		log: logger.With().Uint32("peer_id", sc.PeerID).Logger(),
	}
}

// Run drives the worker until ctx is cancelled or the session
// terminates fatally. It performs discovery, then relays session
// traffic while servicing the PADG retry timer, §4.1/§4.5.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.runDiscovery(ctx); err != nil {
		return err
	}
	return w.runSession(ctx)
}

func (w *Worker) runDiscovery(ctx context.Context) error {
	padi := BuildPADI(w.ctx, w.cfg.MyEth, w.cfg.ServiceName)
	if err := w.sendDiscovery(padi); err != nil {
		return err
	}
	w.padiAttempts = 1

	timeout := time.NewTimer(pppoe.PADITimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			if w.ctx.DiscoveryState == DiscoveryReceivedPADO {
				if err := w.sendPADR(); err != nil {
					return err
				}
				timeout.Reset(pppoe.PADITimeout)
				continue
			}
			if w.padiAttempts >= pppoe.MaxPADIAttempts {
				return NewProtocolError("discovery", fmt.Errorf("no PADO received after %d attempts", w.padiAttempts))
			}
			w.padiAttempts++
			if err := w.sendDiscovery(padi); err != nil {
				return err
			}
			timeout.Reset(pppoe.PADITimeout)
		case frame := <-w.dev.Recv():
			pkt, err := pppoe.Parse(frame)
			if err != nil {
				w.log.Debug().Err(err).Msg("dropping malformed discovery frame")
				continue
			}
			switch pkt.Code {
			case pppoe.CodePADO:
				if err := HandlePADO(w.ctx, pkt); err != nil {
					w.log.Debug().Err(err).Msg("ignoring PADO")
					continue
				}
				if err := w.sendPADR(); err != nil {
					return err
				}
				timeout.Reset(pppoe.PADITimeout)
			case pppoe.CodePADS:
				if err := HandlePADS(w.ctx, pkt); err != nil {
					var perr *ProtocolError
					if asProtocolError(err, &perr) {
						w.sendDiscovery(BuildPADT(w.ctx, w.cfg.MyEth))
						return perr
					}
					w.padrAttempts++
					if w.padrAttempts >= pppoe.MaxPADRAttempts {
						return NewProtocolError("discovery", fmt.Errorf("PADR rejected: %w", err))
					}
					continue
				}
				if w.ctx.SessionID == 0xFFFF {
					w.log.Warn().Msg("PADS carries reserved session id 0xFFFF, continuing anyway")
				}
				w.log.Info().Uint16("session_id", w.ctx.SessionID).Msg("session established")
				return nil
			}
		}
	}
}

func (w *Worker) sendPADR() error {
	padr := BuildPADR(w.ctx, w.cfg.MyEth, w.cfg.ServiceName)
	w.padrAttempts++
	return w.sendDiscovery(padr)
}

func (w *Worker) sendDiscovery(pkt *pppoe.Packet) error {
	frame, err := pkt.Serialize()
	if err != nil {
		return fmt.Errorf("session: encode %v: %w", pkt.Code, err)
	}
	return w.dev.Send(frame)
}

func (w *Worker) runSession(ctx context.Context) error {
	retry := time.NewTicker(pppoe.PADGRetryTime)
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			return w.terminate()
		case <-retry.C:
			now := time.Now()
			shouldRetry, expired := ShouldRetryPADG(w.ctx, now)
			if expired {
				return NewProtocolError("grant", fmt.Errorf("PADC not received within %s", pppoe.MaxPADCWaitTime))
			}
			if shouldRetry {
				padg := RetryPADG(w.ctx, w.cfg.MyEth, now)
				if err := w.sendDiscovery(padg); err != nil {
					return err
				}
			}
		case frame, ok := <-w.dev.Recv():
			if !ok {
				return w.terminate()
			}
			if err := w.handleFrame(frame); err != nil {
				var perr *ProtocolError
				if asProtocolError(err, &perr) {
					w.sendDiscovery(BuildPADT(w.ctx, w.cfg.MyEth))
					return perr
				}
				w.log.Warn().Err(err).Msg("dropping frame")
			}
		}
	}
}

func (w *Worker) handleFrame(frame []byte) error {
	pkt, err := pppoe.Parse(frame)
	if err != nil {
		return err
	}
	if (pkt.Code != pppoe.CodeSession && pkt.Code != pppoe.CodePADG && pkt.Code != pppoe.CodePADC) || pkt.SessionID != w.ctx.SessionID {
		if pkt.Code == pppoe.CodePADT {
			return w.terminate()
		}
		if pkt.Code == pppoe.CodeSession {
			return NewProtocolError("session", fmt.Errorf("frame for unexpected session id %d (want %d)", pkt.SessionID, w.ctx.SessionID))
		}
		return fmt.Errorf("session: unexpected discovery-stage frame %v during established session", pkt.Code)
	}

	switch {
	case isDiscoveryCredit(pkt, pppoe.CodePADG):
		ack, err := HandlePADG(w.ctx, w.cfg.MyEth, pkt)
		if err != nil {
			return err
		}
		return w.sendDiscovery(ack)
	case isDiscoveryCredit(pkt, pppoe.CodePADC):
		return HandlePADC(w.ctx, pkt)
	}

	ppp, err := DecodeUpstream(w.ctx, pkt)
	if err != nil {
		return err
	}
	return w.relayUpstream(ppp)
}

// isDiscoveryCredit reports whether pkt (already known to carry a
// session frame's envelope) is actually a PADG/PADC riding on the
// session EtherType, §4.2.3.
func isDiscoveryCredit(pkt *pppoe.Packet, code pppoe.Code) bool {
	return pkt.Code == code
}

func (w *Worker) relayUpstream(ppp []byte) error {
	if len(ppp) < 2 {
		return fmt.Errorf("session: PPP frame too short (%d bytes)", len(ppp))
	}
	proto := lcp.ProtocolNumber(uint16(ppp[0])<<8 | uint16(ppp[1]))
	if w.cfg.P2PMode {
		w.sup.Send(ctlmsg.EncodeChildSessionData(w.nextSeq(), ctlmsg.SessionData{
			NeighborID: w.ctx.PeerID,
			Credits:    w.ctx.LocalCredits,
			Data:       ppp,
		}))
		return nil
	}
	switch proto {
	case lcp.ProtoLCP:
		p, err := lcp.Parse(ppp[2:])
		if err != nil {
			return err
		}
		reply, ok, err := SynthesizeLCP(w.ctx, p)
		if err != nil {
			return err
		}
		if ok {
			return w.sendSessionData(reply)
		}
	case lcp.ProtoIPCP:
		p, err := lcp.Parse(ppp[2:])
		if err != nil {
			return err
		}
		reply, ok, err := SynthesizeIPCP(p)
		if err != nil {
			return err
		}
		if ok {
			return w.sendSessionData(reply)
		}
	default:
		w.sup.Send(ctlmsg.EncodeChildSessionData(w.nextSeq(), ctlmsg.SessionData{
			NeighborID: w.ctx.PeerID,
			Credits:    w.ctx.LocalCredits,
			Data:       ppp,
		}))
	}
	return nil
}

func (w *Worker) sendSessionData(ppp []byte) error {
	pkt, err := EncodeDownstream(w.ctx, w.cfg.MyEth, ppp)
	if err != nil {
		return err
	}
	return w.sendDiscovery(pkt)
}

func (w *Worker) terminate() error {
	frame, err := BuildPADT(w.ctx, w.cfg.MyEth).Serialize()
	if err != nil {
		return err
	}
	if err := w.dev.Send(frame); err != nil {
		w.log.Warn().Err(err).Msg("failed to send PADT on shutdown")
	}
	w.sup.Send(ctlmsg.ChildSessionTerminated{
		NeighborID: w.ctx.PeerID,
		SessionID:  w.ctx.SessionID,
	}.Encode(w.nextSeq()))
	return nil
}

func (w *Worker) nextSeq() uint32 {
	w.seq++
	return w.seq
}

func asProtocolError(err error, target **ProtocolError) bool {
	pe, ok := err.(*ProtocolError)
	if ok {
		*target = pe
	}
	return ok
}
