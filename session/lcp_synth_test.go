package session

import (
	"encoding/binary"
	"testing"

	"github.com/adjacentlink/rfc4938/lcp"
)

func TestSynthesizeLCPConfigureRequestRecordsMagic(t *testing.T) {
	ctx := NewContext(1, 2, 0)
	req := &lcp.Packet{
		Code:    lcp.CodeConfigureRequest,
		ID:      1,
		Options: []lcp.Option{lcp.NewMagicNumberOption(0xCAFEBABE)},
	}
	reply, ok, err := SynthesizeLCP(ctx, req)
	if err != nil || !ok {
		t.Fatalf("SynthesizeLCP: ok=%v err=%v", ok, err)
	}
	if ctx.PeerMagic != 0xCAFEBABE || !ctx.HavePeerMagic {
		t.Errorf("peer magic not recorded: %08x", ctx.PeerMagic)
	}
	proto := binary.BigEndian.Uint16(reply[0:2])
	if lcp.ProtocolNumber(proto) != lcp.ProtoLCP {
		t.Errorf("proto = %04x, want LCP", proto)
	}
	parsed, err := lcp.Parse(reply[2:])
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Code != lcp.CodeConfigureAck {
		t.Errorf("code = %v, want Configure-Ack", parsed.Code)
	}
}

func TestSynthesizeLCPEchoRequestRepliesWithLocalMagic(t *testing.T) {
	ctx := NewContext(1, 2, 0)
	ctx.LocalMagic = 0x11223344
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, 0x99999999)
	req := &lcp.Packet{Code: lcp.CodeEchoRequest, ID: 3, Data: data}

	reply, ok, err := SynthesizeLCP(ctx, req)
	if err != nil || !ok {
		t.Fatalf("SynthesizeLCP: ok=%v err=%v", ok, err)
	}
	parsed, err := lcp.Parse(reply[2:])
	if err != nil {
		t.Fatal(err)
	}
	magic, ok := parsed.MagicNumber()
	if !ok || magic != 0x11223344 {
		t.Errorf("echo reply magic = %08x, want 11223344", magic)
	}
}

func TestSynthesizeLCPTerminateRequestAcks(t *testing.T) {
	ctx := NewContext(1, 2, 0)
	req := &lcp.Packet{Code: lcp.CodeTerminateRequest, ID: 9}
	reply, ok, err := SynthesizeLCP(ctx, req)
	if err != nil || !ok {
		t.Fatalf("SynthesizeLCP: ok=%v err=%v", ok, err)
	}
	parsed, err := lcp.Parse(reply[2:])
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Code != lcp.CodeTerminateAck {
		t.Errorf("code = %v, want Terminate-Ack", parsed.Code)
	}
}

func TestSynthesizeLCPIgnoresAcks(t *testing.T) {
	ctx := NewContext(1, 2, 0)
	req := &lcp.Packet{Code: lcp.CodeTerminateAck, ID: 1}
	_, ok, err := SynthesizeLCP(ctx, req)
	if err != nil || ok {
		t.Fatalf("expected no reply for Terminate-Ack, got ok=%v err=%v", ok, err)
	}
}

func TestSynthesizeIPCPMarksAddress(t *testing.T) {
	req := &lcp.Packet{
		Code:    lcp.CodeConfigureRequest,
		ID:      1,
		Options: []lcp.Option{lcp.NewIPv4Option(0x0A000001)},
	}
	reply, ok, err := SynthesizeIPCP(req)
	if err != nil || !ok {
		t.Fatalf("SynthesizeIPCP: ok=%v err=%v", ok, err)
	}
	parsed, err := lcp.Parse(reply[2:])
	if err != nil {
		t.Fatal(err)
	}
	opt, ok := parsed.GetOption(lcp.OptIPAddress)
	if !ok {
		t.Fatal("missing IP-Address option in reply")
	}
	addr, err := lcp.IPv4FromOption(opt)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x0A0000FF {
		t.Errorf("address = %08x, want 0A0000FF", addr)
	}
}
