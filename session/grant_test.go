package session

import (
	"testing"
	"time"

	"github.com/adjacentlink/rfc4938/pppoe"
)

func TestPADGPADCRoundTrip(t *testing.T) {
	granter := NewContext(1, 2, 0)
	granter.PeerEth = testPeerEth

	padg := BuildPADG(granter, testMyEth, 200)
	if granter.GrantState != GrantPADGSent {
		t.Fatalf("grant state = %v, want PADG_SENT", granter.GrantState)
	}

	grantee := NewContext(2, 1, 0)
	grantee.PeerEth = testMyEth
	ack, err := HandlePADG(grantee, testPeerEth, padg)
	if err != nil {
		t.Fatalf("HandlePADG: %v", err)
	}
	if grantee.LocalCredits != 200 {
		t.Errorf("grantee LocalCredits = %d, want 200", grantee.LocalCredits)
	}

	if err := HandlePADC(granter, ack); err != nil {
		t.Fatalf("HandlePADC: %v", err)
	}
	if granter.GrantState != GrantPADCReceived {
		t.Errorf("grant state = %v, want PADC_RECEIVED", granter.GrantState)
	}
	if granter.PeerCredits != 200 {
		t.Errorf("granter PeerCredits = %d, want 200", granter.PeerCredits)
	}
}

func TestHandlePADCRejectsSequenceMismatch(t *testing.T) {
	ctx := NewContext(1, 2, 0)
	BuildPADG(ctx, testMyEth, 50)
	bad := &pppoe.Packet{
		Code: pppoe.CodePADC,
		Tags: []pppoe.Tag{pppoe.NewSeqNumTag(ctx.PADGSeqNum + 1)},
	}
	if err := HandlePADC(ctx, bad); err == nil {
		t.Fatal("expected sequence mismatch error")
	}
}

func TestHandlePADCRejectsWhenNoGrantPending(t *testing.T) {
	ctx := NewContext(1, 2, 0)
	pkt := &pppoe.Packet{Code: pppoe.CodePADC, Tags: []pppoe.Tag{pppoe.NewSeqNumTag(1)}}
	if err := HandlePADC(ctx, pkt); err == nil {
		t.Fatal("expected error when no grant pending")
	}
}

func TestShouldRetryPADG(t *testing.T) {
	ctx := NewContext(1, 2, 0)
	now := time.Now()
	BuildPADG(ctx, testMyEth, 10)
	ctx.PADGInitialSendTime = now.Add(-2 * pppoe.PADGRetryTime)
	ctx.PADGRetrySendTime = now.Add(-2 * pppoe.PADGRetryTime)

	retry, expired := ShouldRetryPADG(ctx, now)
	if expired {
		t.Fatal("should not be expired yet")
	}
	if !retry {
		t.Fatal("expected retry due")
	}
}

func TestShouldRetryPADGExpires(t *testing.T) {
	ctx := NewContext(1, 2, 0)
	now := time.Now()
	BuildPADG(ctx, testMyEth, 10)
	ctx.PADGInitialSendTime = now.Add(-2 * pppoe.MaxPADCWaitTime)

	_, expired := ShouldRetryPADG(ctx, now)
	if !expired {
		t.Fatal("expected grant to have expired")
	}
}
