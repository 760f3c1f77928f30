// Package session implements the per-neighbor PPPoE + RFC 4938
// session: discovery handshake, credit accounting, the PADG/PADC grant
// state machine, the scalar handshake, and (optionally) broadcast-mode
// LCP/IPCP synthesis, §4.1-§4.2 and §4.6.
package session

import (
	"net"
	"time"

	"github.com/adjacentlink/rfc4938/pppoe"
)

// DiscoveryState is the PPPoE discovery phase state, §3.1/§4.1.1.
type DiscoveryState int

// Discovery states.
const (
	DiscoverySentPADI DiscoveryState = iota
	DiscoveryReceivedPADO
	DiscoverySentPADR
	DiscoverySession
	DiscoveryTerminated
)

func (s DiscoveryState) String() string {
	switch s {
	case DiscoverySentPADI:
		return "SENT_PADI"
	case DiscoveryReceivedPADO:
		return "RECEIVED_PADO"
	case DiscoverySentPADR:
		return "SENT_PADR"
	case DiscoverySession:
		return "SESSION"
	case DiscoveryTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// GrantState is the PADG/PADC out-of-band credit exchange state, §4.2.3.
type GrantState int

// Grant states.
const (
	GrantPADCReceived GrantState = iota
	GrantPADGSent
)

func (s GrantState) String() string {
	if s == GrantPADGSent {
		return "PADG_SENT"
	}
	return "PADC_RECEIVED"
}

// ScalarState is the scalar handshake state, §3.1.
type ScalarState int

// Scalar states.
const (
	ScalarNeeded ScalarState = iota
	ScalarNotNeeded
	ScalarReceived
)

// OperatingMode selects whether the session scales credits, §3.1.
type OperatingMode int

// Operating modes.
const (
	ModeRFC4938Only OperatingMode = iota
	ModeRFC4938Scaling
)

// Context is the per-neighbor session state a Session Worker owns
// exclusively, §3.1.
type Context struct {
	// MAC addresses.
	MyEth   net.HardwareAddr
	PeerEth net.HardwareAddr

	// Identity.
	SessionID uint16
	HostID    uint32
	PeerID    uint32
	ParentID  uint32

	// Discovery bookkeeping.
	DiscoveryState DiscoveryState
	NumPADOs       int
	ACCookie       []byte
	RelayID        []byte
	ServiceName    string
	ACName         string
	UseHostUniq    bool

	// Credit state.
	LocalCredits      uint16
	PeerCredits       uint16
	LocalScalar       uint16
	PeerScalar        uint16
	CreditCache       uint16
	CreditsPendingPADC uint16
	GrantLimit        uint16
	SendInbandGrant   bool

	// Grant state machine.
	GrantState          GrantState
	PADGSeqNum          uint16
	PADGTries           int
	PADGInitialSendTime time.Time
	PADGRetrySendTime   time.Time

	// Scalar handshake.
	ScalarState   ScalarState
	OperatingMode OperatingMode

	// LCP interception, §4.6.
	LocalMagic uint32
	PeerMagic  uint32
	HavePeerMagic bool

	// Timers.
	TimedCreditInterval time.Duration
}

// NewContext returns a Context with defaults applied per §3.2/§3.3:
// credit caches reset to zero, default scalar 64.
func NewContext(hostID, peerID, parentID uint32) *Context {
	return &Context{
		HostID:        hostID,
		PeerID:        peerID,
		ParentID:      parentID,
		LocalScalar:   pppoe.DefaultScalar,
		PeerScalar:    pppoe.DefaultScalar,
		OperatingMode: ModeRFC4938Only,
		ScalarState:   ScalarNotNeeded,
		GrantState:    GrantPADCReceived,
	}
}

// saturateAdd adds b to a, saturating at pppoe.MaxCredits, §3.2/§4.2.2.
func saturateAdd(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b)
	if sum > pppoe.MaxCredits {
		return pppoe.MaxCredits
	}
	return uint16(sum)
}

// saturateSub subtracts b from a, saturating at 0, §4.2.2.
func saturateSub(a, b uint16) uint16 {
	if b >= a {
		return 0
	}
	return a - b
}
