package session

import (
	"bytes"
	"testing"

	"github.com/adjacentlink/rfc4938/pppoe"
)

func TestEncodeDecodeRoundTripNoInband(t *testing.T) {
	sender := NewContext(1, 2, 0)
	sender.PeerEth = testPeerEth
	sender.SessionID = 9
	sender.LocalCredits = 1000

	ppp := []byte{0x00, 0x21, 0xde, 0xad, 0xbe, 0xef}
	pkt, err := EncodeDownstream(sender, testMyEth, ppp)
	if err != nil {
		t.Fatalf("EncodeDownstream: %v", err)
	}
	if sender.LocalCredits != ComputeLocalCredits(1000, len(ppp), sender.LocalScalar) {
		t.Errorf("LocalCredits not charged correctly: got %d", sender.LocalCredits)
	}

	receiver := NewContext(2, 1, 0)
	receiver.PeerCredits = 1000
	out, err := DecodeUpstream(receiver, pkt)
	if err != nil {
		t.Fatalf("DecodeUpstream: %v", err)
	}
	if !bytes.Equal(out, ppp) {
		t.Errorf("payload = %x, want %x", out, ppp)
	}
}

func TestEncodeDecodeRoundTripWithInbandGrant(t *testing.T) {
	sender := NewContext(1, 2, 0)
	sender.PeerEth = testPeerEth
	sender.SessionID = 9
	sender.LocalCredits = 1000
	sender.SendInbandGrant = true
	sender.CreditsPendingPADC = 500

	ppp := []byte{0x00, 0x21, 0x01, 0x02}
	pkt, err := EncodeDownstream(sender, testMyEth, ppp)
	if err != nil {
		t.Fatalf("EncodeDownstream: %v", err)
	}
	if sender.CreditsPendingPADC != 0 {
		t.Errorf("CreditsPendingPADC = %d, want reset to 0", sender.CreditsPendingPADC)
	}
	if sender.PeerCredits != 500 {
		t.Errorf("PeerCredits = %d, want 500 applied immediately", sender.PeerCredits)
	}
	if len(pkt.Payload) != inbandTagSize+len(ppp) {
		t.Fatalf("payload length = %d, want %d", len(pkt.Payload), inbandTagSize+len(ppp))
	}

	receiver := NewContext(2, 1, 0)
	receiver.LocalCredits = 100
	receiver.PeerCredits = 1000
	out, err := DecodeUpstream(receiver, pkt)
	if err != nil {
		t.Fatalf("DecodeUpstream: %v", err)
	}
	if !bytes.Equal(out, ppp) {
		t.Errorf("payload = %x, want %x", out, ppp)
	}
	if receiver.LocalCredits != 600 {
		t.Errorf("receiver LocalCredits = %d, want 600 after grant applied", receiver.LocalCredits)
	}
	wantPeerCredits := ComputePeerCreditsWithInband(1000, len(pkt.Payload), receiver.PeerScalar)
	if receiver.PeerCredits != wantPeerCredits {
		t.Errorf("receiver PeerCredits = %d, want %d", receiver.PeerCredits, wantPeerCredits)
	}
}

func TestDecodeUpstreamDropsInbandFrameWhenPeerCreditsInsufficient(t *testing.T) {
	sender := NewContext(1, 2, 0)
	sender.PeerEth = testPeerEth
	sender.SessionID = 9
	sender.LocalCredits = 1000
	sender.SendInbandGrant = true
	sender.CreditsPendingPADC = 500

	ppp := make([]byte, 200)
	pkt, err := EncodeDownstream(sender, testMyEth, ppp)
	if err != nil {
		t.Fatalf("EncodeDownstream: %v", err)
	}

	receiver := NewContext(2, 1, 0)
	receiver.PeerCredits = 1 // far below what a 200-byte in-band frame costs
	if _, err := DecodeUpstream(receiver, pkt); err == nil {
		t.Fatal("expected frame to be dropped for insufficient peer credits")
	}
	if receiver.PeerCredits != 1 {
		t.Errorf("PeerCredits = %d, want unchanged at 1 after drop", receiver.PeerCredits)
	}
}

func TestDecodeUpstreamAdoptsTighterPeerReportedBCN(t *testing.T) {
	sender := NewContext(1, 2, 0)
	sender.PeerEth = testPeerEth
	sender.SessionID = 9
	sender.LocalCredits = 5 // reported as bcn, tighter than receiver's own view
	sender.SendInbandGrant = true
	sender.CreditsPendingPADC = 10

	ppp := []byte{0x00, 0x21, 0x01, 0x02}
	pkt, err := EncodeDownstream(sender, testMyEth, ppp)
	if err != nil {
		t.Fatalf("EncodeDownstream: %v", err)
	}

	receiver := NewContext(2, 1, 0)
	receiver.PeerCredits = 1000
	if _, err := DecodeUpstream(receiver, pkt); err != nil {
		t.Fatalf("DecodeUpstream: %v", err)
	}
	if receiver.PeerCredits != 5 {
		t.Errorf("PeerCredits = %d, want adopted peer bcn of 5", receiver.PeerCredits)
	}
}

func TestDecodeUpstreamRejectsWrongCode(t *testing.T) {
	ctx := NewContext(1, 2, 0)
	pkt := &pppoe.Packet{Code: pppoe.CodePADT}
	if _, err := DecodeUpstream(ctx, pkt); err == nil {
		t.Fatal("expected error for non-session code")
	}
}
