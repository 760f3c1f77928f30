package session

import (
	"fmt"
	"net"
	"time"

	"github.com/adjacentlink/rfc4938/pppoe"
)

// BuildPADG constructs an out-of-band credit grant and arms the grant
// state machine to await its PADC acknowledgement, §4.2.3. Calling this
// while a previous grant is unacknowledged is a caller error; the grant
// engine is meant to serialize grants through ShouldRetryPADG.
func BuildPADG(ctx *Context, myEth net.HardwareAddr, grant uint16) *pppoe.Packet {
	ctx.PADGSeqNum++
	ctx.GrantState = GrantPADGSent
	ctx.PADGTries = 1
	now := time.Now()
	ctx.PADGInitialSendTime = now
	ctx.PADGRetrySendTime = now
	ctx.GrantLimit = grant
	ctx.CreditsPendingPADC = grant

	tags := []pppoe.Tag{
		pppoe.NewCreditTag(grant, ctx.LocalCredits),
		pppoe.NewSeqNumTag(ctx.PADGSeqNum),
	}
	return &pppoe.Packet{
		DstMAC:    ctx.PeerEth,
		SrcMAC:    myEth,
		EtherType: pppoe.EtherTypeSession,
		Code:      pppoe.CodePADG,
		SessionID: ctx.SessionID,
		Tags:      tags,
	}
}

// ShouldRetryPADG reports whether an unacknowledged PADG has sat longer
// than pppoe.PADGRetryTime and should be resent, and whether the grant
// has timed out entirely past pppoe.MaxPADCWaitTime, §4.2.3/§8.
func ShouldRetryPADG(ctx *Context, now time.Time) (retry, expired bool) {
	if ctx.GrantState != GrantPADGSent {
		return false, false
	}
	if now.Sub(ctx.PADGInitialSendTime) > pppoe.MaxPADCWaitTime {
		return false, true
	}
	return now.Sub(ctx.PADGRetrySendTime) >= pppoe.PADGRetryTime, false
}

// RetryPADG rebuilds the wire frame for the currently pending PADG,
// bumping the retry bookkeeping, §4.2.3.
func RetryPADG(ctx *Context, myEth net.HardwareAddr, now time.Time) *pppoe.Packet {
	ctx.PADGTries++
	ctx.PADGRetrySendTime = now
	tags := []pppoe.Tag{
		pppoe.NewCreditTag(ctx.GrantLimit, ctx.LocalCredits),
		pppoe.NewSeqNumTag(ctx.PADGSeqNum),
	}
	return &pppoe.Packet{
		DstMAC:    ctx.PeerEth,
		SrcMAC:    myEth,
		EtherType: pppoe.EtherTypeSession,
		Code:      pppoe.CodePADG,
		SessionID: ctx.SessionID,
		Tags:      tags,
	}
}

// HandlePADC processes a received grant acknowledgement: it must carry
// the sequence number of the currently pending PADG, §4.2.3. A
// mismatched or unexpected PADC is reported but is not itself a fatal
// protocol error — it is more commonly a stale retransmission racing
// the ack than an actual violation.
//
// A matching PADC first commits the grant this worker offered
// (credits_pending_padc) into peer_credits, then resynchronizes both
// counters from the PADC's own Credit tag: local_credits is set to the
// peer's reported fcn, peer_credits is overwritten with the peer's
// reported bcn. A replayed PADC finds no grant pending (GrantState is no
// longer PADG_SENT) and is rejected before either step runs, so it
// cannot double-credit.
func HandlePADC(ctx *Context, pkt *pppoe.Packet) error {
	if pkt.Code != pppoe.CodePADC {
		return fmt.Errorf("session: expected PADC, got %v", pkt.Code)
	}
	if ctx.GrantState != GrantPADGSent {
		return fmt.Errorf("session: unexpected PADC, no grant pending")
	}
	seqTag, ok := pppoe.FindTag(pkt.Tags, pppoe.TagSeqNum)
	if !ok {
		return fmt.Errorf("session: PADC missing sequence tag")
	}
	seq, err := pppoe.ParseSeqNumTag(seqTag)
	if err != nil {
		return err
	}
	if seq != ctx.PADGSeqNum {
		return fmt.Errorf("session: PADC sequence %d does not match pending grant %d", seq, ctx.PADGSeqNum)
	}
	creditTag, ok := pppoe.FindTag(pkt.Tags, pppoe.TagCredits)
	if !ok {
		return fmt.Errorf("session: PADC missing credits tag")
	}
	credit, err := pppoe.ParseCreditTag(creditTag)
	if err != nil {
		return err
	}

	ctx.PeerCredits = ApplyGrant(ctx.PeerCredits, ctx.CreditsPendingPADC)
	ctx.CreditsPendingPADC = 0

	if credit.FCN > pppoe.MaxCredits {
		ctx.LocalCredits = pppoe.MaxCredits
	} else {
		ctx.LocalCredits = credit.FCN
	}
	ctx.PeerCredits = credit.BCN

	ctx.GrantState = GrantPADCReceived
	ctx.PADGTries = 0
	return nil
}

// HandlePADG processes a received out-of-band credit grant from the
// peer: it applies the grant to the local credit balance, records the
// peer's reported remaining credits, and returns the PADC needed to
// acknowledge it, §4.2.3.
func HandlePADG(ctx *Context, myEth net.HardwareAddr, pkt *pppoe.Packet) (*pppoe.Packet, error) {
	if pkt.Code != pppoe.CodePADG {
		return nil, fmt.Errorf("session: expected PADG, got %v", pkt.Code)
	}
	creditTag, ok := pppoe.FindTag(pkt.Tags, pppoe.TagCredits)
	if !ok {
		return nil, fmt.Errorf("session: PADG missing credits tag")
	}
	credit, err := pppoe.ParseCreditTag(creditTag)
	if err != nil {
		return nil, err
	}
	seqTag, ok := pppoe.FindTag(pkt.Tags, pppoe.TagSeqNum)
	if !ok {
		return nil, fmt.Errorf("session: PADG missing sequence tag")
	}
	seq, err := pppoe.ParseSeqNumTag(seqTag)
	if err != nil {
		return nil, err
	}
	grant := ScaledGrant(credit.FCN, ctx.PeerScalar)
	ctx.LocalCredits = ApplyGrant(ctx.LocalCredits, grant)
	ctx.PeerCredits = credit.BCN

	ack := &pppoe.Packet{
		DstMAC:    ctx.PeerEth,
		SrcMAC:    myEth,
		EtherType: pppoe.EtherTypeSession,
		Code:      pppoe.CodePADC,
		SessionID: ctx.SessionID,
		Tags: []pppoe.Tag{
			pppoe.NewCreditTag(ctx.PeerCredits, ctx.LocalCredits),
			pppoe.NewSeqNumTag(seq),
		},
	}
	return ack, nil
}
