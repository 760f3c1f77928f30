package session

import (
	"encoding/binary"
	"fmt"

	"github.com/adjacentlink/rfc4938/pppoe"
)

// inbandTagSize is the wire size of an inband Credits tag prefixed onto
// a session-data PPP payload, §4.2.4.
const inbandTagSize = pppoe.TagHdrSize + pppoe.TagCreditsLen

// EncodeDownstream builds a PPPoE session frame carrying ppp (the PPP
// protocol field plus its payload), optionally prefixing an inband
// Credits tag when ctx requests one, §4.2.4. Sending costs the local
// credit balance for the frame; an embedded inband grant is applied to
// the peer credit balance immediately since, unlike PADG, it carries no
// acknowledgement to gate on.
func EncodeDownstream(ctx *Context, myEth []byte, ppp []byte) (*pppoe.Packet, error) {
	payload := ppp
	inband := ctx.SendInbandGrant && ctx.CreditsPendingPADC > 0
	if inband {
		tag := pppoe.NewCreditTag(ctx.CreditsPendingPADC, ctx.LocalCredits)
		var hdr [inbandTagSize]byte
		binary.BigEndian.PutUint16(hdr[0:2], uint16(pppoe.TagCredits))
		binary.BigEndian.PutUint16(hdr[2:4], uint16(len(tag.Value)))
		copy(hdr[4:], tag.Value)
		payload = append(append([]byte(nil), hdr[:]...), ppp...)
		ctx.PeerCredits = ApplyGrant(ctx.PeerCredits, ctx.CreditsPendingPADC)
		ctx.CreditsPendingPADC = 0
	}
	if len(myEth) != 6 {
		return nil, fmt.Errorf("session: invalid local MAC length %d", len(myEth))
	}
	ctx.LocalCredits = ComputeLocalCredits(ctx.LocalCredits, len(payload), ctx.LocalScalar)
	return &pppoe.Packet{
		DstMAC:    ctx.PeerEth,
		SrcMAC:    myEth,
		EtherType: pppoe.EtherTypeSession,
		Code:      pppoe.CodeSession,
		SessionID: ctx.SessionID,
		Payload:   payload,
	}, nil
}

// DecodeUpstream strips an inband Credits tag from an incoming session
// frame's payload when present, charges the peer credit balance for the
// frame (the tag's own bytes excluded from the cost when present, §4.2.1),
// applies the embedded grant to the local credit balance, and returns the
// remaining PPP payload. A frame whose required credit cost exceeds what
// peer_credits still holds is dropped rather than accepted on credit,
// §4.2.4/§8.5 — the caller sees a plain (non-fatal) error and logs it.
func DecodeUpstream(ctx *Context, pkt *pppoe.Packet) ([]byte, error) {
	if pkt.Code != pppoe.CodeSession {
		return nil, fmt.Errorf("session: expected session frame, got %v", pkt.Code)
	}
	payload := pkt.Payload
	if len(payload) >= inbandTagSize {
		typ := pppoe.TagType(binary.BigEndian.Uint16(payload[0:2]))
		length := int(binary.BigEndian.Uint16(payload[2:4]))
		if typ == pppoe.TagCredits && length == pppoe.TagCreditsLen {
			tag := pppoe.Tag{Type: typ, Value: append([]byte(nil), payload[4:inbandTagSize]...)}
			credit, err := pppoe.ParseCreditTag(tag)
			if err != nil {
				return nil, err
			}
			required := creditCost(len(pkt.Payload), pppoe.PPPOverhead+inbandTagSize, ctx.PeerScalar)
			if ctx.PeerCredits < required {
				return nil, fmt.Errorf("session: dropping in-band frame, peer_credits %d below required %d", ctx.PeerCredits, required)
			}
			remaining := saturateSub(ctx.PeerCredits, required)
			// A peer-reported bcn tighter than our own accounting is
			// adopted; a looser one is more likely stale bookkeeping on
			// the peer's side than genuine extra allowance, so it is
			// ignored rather than trusted, §4.2.4.
			if credit.BCN < remaining {
				remaining = credit.BCN
			}
			ctx.PeerCredits = remaining
			grant := ScaledGrant(credit.FCN, ctx.LocalScalar)
			ctx.LocalCredits = ApplyGrant(ctx.LocalCredits, grant)
			return payload[inbandTagSize:], nil
		}
	}
	ctx.PeerCredits = ComputePeerCredits(ctx.PeerCredits, len(pkt.Payload), ctx.PeerScalar)
	return payload, nil
}
