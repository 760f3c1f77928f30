package session

import (
	"net"
	"testing"

	"github.com/adjacentlink/rfc4938/pppoe"
)

var (
	testMyEth   = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	testPeerEth = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func TestBuildPADICarriesHostUniq(t *testing.T) {
	ctx := NewContext(42, 0, 0)
	pkt := BuildPADI(ctx, testMyEth, "rfc4938")
	hu, ok := pppoe.FindTag(pkt.Tags, pppoe.TagHostUniq)
	if !ok {
		t.Fatal("PADI missing Host-Uniq tag")
	}
	id, err := pppoe.HostUniqValue(hu)
	if err != nil {
		t.Fatal(err)
	}
	if id != 42 {
		t.Errorf("host uniq = %d, want 42", id)
	}
}

func TestHandlePADORejectsMulticastSource(t *testing.T) {
	ctx := NewContext(1, 0, 0)
	ctx.UseHostUniq = false
	pkt := &pppoe.Packet{
		Code:   pppoe.CodePADO,
		SrcMAC: net.HardwareAddr{0x01, 0x00, 0x00, 0x00, 0x00, 0x01},
	}
	if err := HandlePADO(ctx, pkt); err == nil {
		t.Fatal("expected error for multicast PADO source")
	}
}

func TestHandlePADOMismatchedHostUniq(t *testing.T) {
	ctx := NewContext(42, 0, 0)
	ctx.UseHostUniq = true
	pkt := &pppoe.Packet{
		Code:   pppoe.CodePADO,
		SrcMAC: testPeerEth,
		Tags:   []pppoe.Tag{pppoe.NewHostUniqTag(99)},
	}
	if err := HandlePADO(ctx, pkt); err == nil {
		t.Fatal("expected error for mismatched host uniq")
	}
}

func TestDiscoveryHandshake(t *testing.T) {
	ctx := NewContext(42, 0, 0)
	ctx.UseHostUniq = true

	pado := &pppoe.Packet{
		Code:   pppoe.CodePADO,
		SrcMAC: testPeerEth,
		Tags: []pppoe.Tag{
			pppoe.NewHostUniqTag(42),
			{Type: pppoe.TagACCookie, Value: []byte{1, 2, 3, 4}},
		},
	}
	if err := HandlePADO(ctx, pado); err != nil {
		t.Fatalf("HandlePADO: %v", err)
	}
	if ctx.DiscoveryState != DiscoveryReceivedPADO {
		t.Fatalf("state = %v, want RECEIVED_PADO", ctx.DiscoveryState)
	}

	padr := BuildPADR(ctx, testMyEth, "rfc4938")
	if ctx.DiscoveryState != DiscoverySentPADR {
		t.Fatalf("state = %v, want SENT_PADR", ctx.DiscoveryState)
	}
	cookie, ok := pppoe.FindTag(padr.Tags, pppoe.TagACCookie)
	if !ok || string(cookie.Value) != "\x01\x02\x03\x04" {
		t.Fatalf("PADR did not echo AC-Cookie: %v", padr.Tags)
	}

	pads := &pppoe.Packet{
		Code:      pppoe.CodePADS,
		SessionID: 7,
	}
	if err := HandlePADS(ctx, pads); err != nil {
		t.Fatalf("HandlePADS: %v", err)
	}
	if ctx.SessionID != 7 {
		t.Errorf("SessionID = %d, want 7", ctx.SessionID)
	}
	if ctx.DiscoveryState != DiscoverySession {
		t.Errorf("state = %v, want SESSION", ctx.DiscoveryState)
	}
}

func TestHandlePADSRejectsZeroSessionID(t *testing.T) {
	ctx := NewContext(1, 0, 0)
	pads := &pppoe.Packet{Code: pppoe.CodePADS, SessionID: 0}
	if err := HandlePADS(ctx, pads); err == nil {
		t.Fatal("expected error for session id 0")
	}
}

func TestBuildPADRAlwaysCarriesCreditTag(t *testing.T) {
	ctx := NewContext(1, 0, 0)
	ctx.GrantLimit = 256
	padr := BuildPADR(ctx, testMyEth, "rfc4938")
	creditTag, ok := pppoe.FindTag(padr.Tags, pppoe.TagCredits)
	if !ok {
		t.Fatal("PADR missing Credit tag")
	}
	credit, err := pppoe.ParseCreditTag(creditTag)
	if err != nil {
		t.Fatal(err)
	}
	if credit.FCN != 256 || credit.BCN != 0 {
		t.Errorf("PADR credit tag = (fcn=%d, bcn=%d), want (256, 0)", credit.FCN, credit.BCN)
	}
}

func TestHandlePADSRejectsScalarInRFC4938OnlyMode(t *testing.T) {
	ctx := NewContext(1, 0, 0)
	ctx.OperatingMode = ModeRFC4938Only
	pads := &pppoe.Packet{
		Code:      pppoe.CodePADS,
		SessionID: 7,
		Tags:      []pppoe.Tag{pppoe.NewScalarTag(32)},
	}
	err := HandlePADS(ctx, pads)
	if err == nil {
		t.Fatal("expected credit/scaling mismatch error")
	}
	var perr *ProtocolError
	if !asProtocolError(err, &perr) {
		t.Fatalf("expected *ProtocolError, got %T: %v", err, err)
	}
}

func TestHandlePADSRecordsPeerCreditsFromCreditTag(t *testing.T) {
	ctx := NewContext(1, 0, 0)
	pads := &pppoe.Packet{
		Code:      pppoe.CodePADS,
		SessionID: 7,
		Tags:      []pppoe.Tag{pppoe.NewCreditTag(100, 240)},
	}
	if err := HandlePADS(ctx, pads); err != nil {
		t.Fatalf("HandlePADS: %v", err)
	}
	if ctx.PeerCredits != 240 {
		t.Errorf("PeerCredits = %d, want 240", ctx.PeerCredits)
	}
}

func TestHandlePADSAllowsScalarInScalingMode(t *testing.T) {
	ctx := NewContext(1, 0, 0)
	ctx.OperatingMode = ModeRFC4938Scaling
	pads := &pppoe.Packet{
		Code:      pppoe.CodePADS,
		SessionID: 7,
		Tags:      []pppoe.Tag{pppoe.NewScalarTag(32)},
	}
	if err := HandlePADS(ctx, pads); err != nil {
		t.Fatalf("HandlePADS: %v", err)
	}
	if ctx.PeerScalar != 32 {
		t.Errorf("PeerScalar = %d, want 32", ctx.PeerScalar)
	}
}

func TestBuildPADTSetsTerminated(t *testing.T) {
	ctx := NewContext(1, 0, 0)
	ctx.PeerEth = testPeerEth
	ctx.SessionID = 5
	pkt := BuildPADT(ctx, testMyEth)
	if ctx.DiscoveryState != DiscoveryTerminated {
		t.Errorf("state = %v, want TERMINATED", ctx.DiscoveryState)
	}
	if pkt.SessionID != 5 {
		t.Errorf("PADT session id = %d, want 5", pkt.SessionID)
	}
}
