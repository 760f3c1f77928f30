package session

import (
	"fmt"
	"net"

	"github.com/adjacentlink/rfc4938/pppoe"
)

// BuildPADI constructs the initial PPPoE Active Discovery Initiation
// frame, §4.1.1. A Host-Uniq tag carries the worker's host id, which
// HandlePADO checks on the reply; the Supervisor routes inbound frames
// by source MAC or session id, not by this tag.
func BuildPADI(ctx *Context, myEth net.HardwareAddr, serviceName string) *pppoe.Packet {
	tags := []pppoe.Tag{
		pppoe.NewStringTag(pppoe.TagServiceName, serviceName),
		pppoe.NewHostUniqTag(ctx.HostID),
	}
	return &pppoe.Packet{
		DstMAC:    pppoe.BroadcastMAC,
		SrcMAC:    myEth,
		EtherType: pppoe.EtherTypeDiscovery,
		Code:      pppoe.CodePADI,
		Tags:      tags,
	}
}

// HandlePADO validates an incoming PADO against the expected Host-Uniq
// and records the advertising peer's MAC and AC-Cookie/Relay-Session-Id
// echo tags, §4.1.1. On success it sets ctx.DiscoveryState to
// RECEIVED_PADO; sending the PADR is left to the caller.
func HandlePADO(ctx *Context, pkt *pppoe.Packet) error {
	if pkt.Code != pppoe.CodePADO {
		return fmt.Errorf("session: expected PADO, got %v", pkt.Code)
	}
	if !pppoe.IsUnicast(pkt.SrcMAC) {
		return fmt.Errorf("session: PADO source %v is not a unicast address", pkt.SrcMAC)
	}
	if ctx.UseHostUniq {
		hu, ok := pppoe.FindTag(pkt.Tags, pppoe.TagHostUniq)
		if !ok {
			return fmt.Errorf("session: PADO missing required Host-Uniq tag")
		}
		id, err := pppoe.HostUniqValue(hu)
		if err != nil {
			return err
		}
		if id != ctx.HostID {
			return fmt.Errorf("session: PADO Host-Uniq %d does not match %d", id, ctx.HostID)
		}
	}
	ctx.PeerEth = append(net.HardwareAddr(nil), pkt.SrcMAC...)
	ctx.NumPADOs++
	if cookie, ok := pppoe.FindTag(pkt.Tags, pppoe.TagACCookie); ok {
		ctx.ACCookie = append([]byte(nil), cookie.Value...)
	}
	if relay, ok := pppoe.FindTag(pkt.Tags, pppoe.TagRelaySessionID); ok {
		ctx.RelayID = append([]byte(nil), relay.Value...)
	}
	if name, ok := pppoe.FindTag(pkt.Tags, pppoe.TagACName); ok {
		ctx.ACName = string(name.Value)
	}
	ctx.DiscoveryState = DiscoveryReceivedPADO
	return nil
}

// BuildPADR constructs the PPPoE Active Discovery Request echoing back
// the chosen AC's cookie and relay id, §4.1.1. When the local operating
// mode requests scaling, a Scalar tag advertises the local credit
// scalar so the AC can answer in kind in its PADS.
func BuildPADR(ctx *Context, myEth net.HardwareAddr, serviceName string) *pppoe.Packet {
	tags := []pppoe.Tag{
		pppoe.NewStringTag(pppoe.TagServiceName, serviceName),
		pppoe.NewHostUniqTag(ctx.HostID),
	}
	if ctx.ACCookie != nil {
		tags = append(tags, pppoe.Tag{Type: pppoe.TagACCookie, Value: ctx.ACCookie})
	}
	if ctx.RelayID != nil {
		tags = append(tags, pppoe.Tag{Type: pppoe.TagRelaySessionID, Value: ctx.RelayID})
	}
	if ctx.OperatingMode == ModeRFC4938Scaling {
		tags = append(tags, pppoe.NewScalarTag(ctx.LocalScalar))
		ctx.ScalarState = ScalarNeeded
	}
	tags = append(tags, pppoe.NewCreditTag(ctx.GrantLimit, 0))
	ctx.DiscoveryState = DiscoverySentPADR
	return &pppoe.Packet{
		DstMAC:    ctx.PeerEth,
		SrcMAC:    myEth,
		EtherType: pppoe.EtherTypeDiscovery,
		Code:      pppoe.CodePADR,
		Tags:      tags,
	}
}

// HandlePADS processes the PPPoE Active Discovery Session-Confirmation
// frame: assigns the session id, records the peer's advertised credits
// and scalar, §4.1.1/§4.2.5. A Scalar tag arriving while this session is
// RFC4938_ONLY is a fatal credit/scaling mismatch, §3.2/§8.4: it is
// reported as a *ProtocolError so the caller tears the session down
// immediately instead of retrying.
func HandlePADS(ctx *Context, pkt *pppoe.Packet) error {
	if pkt.Code != pppoe.CodePADS {
		return fmt.Errorf("session: expected PADS, got %v", pkt.Code)
	}
	if pkt.SessionID == 0 {
		if errTag, ok := pppoe.FindTag(pkt.Tags, pppoe.TagServiceNameError); ok {
			return fmt.Errorf("session: PADS rejected: %s", string(errTag.Value))
		}
		return fmt.Errorf("session: PADS carries session id 0")
	}
	scalarTag, hasScalar := pppoe.FindTag(pkt.Tags, pppoe.TagScalar)
	if hasScalar && ctx.OperatingMode == ModeRFC4938Only {
		return NewProtocolError("discovery", fmt.Errorf("credit/scaling mismatch: PADS carries a Scalar tag in RFC4938_ONLY mode"))
	}
	ctx.SessionID = pkt.SessionID
	if hasScalar {
		scalar, err := pppoe.ParseScalarTag(scalarTag)
		if err != nil {
			return err
		}
		ctx.PeerScalar = scalar
		ctx.ScalarState = ScalarReceived
	}
	if creditTag, ok := pppoe.FindTag(pkt.Tags, pppoe.TagCredits); ok {
		credit, err := pppoe.ParseCreditTag(creditTag)
		if err != nil {
			return err
		}
		ctx.PeerCredits = credit.BCN
	}
	ctx.DiscoveryState = DiscoverySession
	return nil
}

// BuildPADT constructs the PPPoE Active Discovery Terminate frame used
// to tear down an established session, §4.1.2.
func BuildPADT(ctx *Context, myEth net.HardwareAddr) *pppoe.Packet {
	ctx.DiscoveryState = DiscoveryTerminated
	return &pppoe.Packet{
		DstMAC:    ctx.PeerEth,
		SrcMAC:    myEth,
		EtherType: pppoe.EtherTypeDiscovery,
		Code:      pppoe.CodePADT,
		SessionID: ctx.SessionID,
	}
}
