package ctlmsg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeaderRoundTrip(t *testing.T) {
	buf := EncodeSessionStop(42)
	hdr, rest, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if hdr.Cmd != CmdSessionStop || hdr.Seq != 42 {
		t.Errorf("got %+v, want Cmd=SESSION_STOP Seq=42", hdr)
	}
	if len(rest) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(rest))
	}
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, HeaderLen)
	if _, _, err := DecodeHeader(buf); err == nil {
		t.Fatal("expected error for zeroed hdrchk")
	}
}

func TestSessionStartRoundTrip(t *testing.T) {
	want := SessionStart{NeighborID: 20, PID: 4242, CreditScalar: 64}
	buf := want.Encode(1)
	_, body, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	got, err := DecodeSessionStart(body)
	if err != nil {
		t.Fatalf("DecodeSessionStart: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionDataRoundTrip(t *testing.T) {
	want := SessionData{NeighborID: 20, Credits: 12, Data: []byte{1, 2, 3, 4}}
	buf := EncodeChildSessionData(3, want)
	_, body, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	got, err := DecodeChildSessionData(body)
	if err != nil {
		t.Fatalf("DecodeChildSessionData: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPADQRoundTrip(t *testing.T) {
	want := PADQ{RLQ: 40, Resources: 100, Latency: 12, CDRScale: 0, CDR: 500, MDRScale: 0, MDR: 1000}
	buf := want.Encode(9)
	_, body, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	got, err := DecodePADQ(body)
	if err != nil {
		t.Fatalf("DecodePADQ: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestShowResponseRoundTrip(t *testing.T) {
	want := CLIShowResponse{NeighborID: 5, Text: "neighbor 5: ACTIVE session=0x1234"}
	buf := want.Encode(1)
	_, body, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	got, err := DecodeCLIShowResponse(body)
	if err != nil {
		t.Fatalf("DecodeCLIShowResponse: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCLIPADQRoundTrip(t *testing.T) {
	want := CLIPADQ{NeighborID: 7, PADQ: PADQ{RLQ: 80, Resources: 50, Latency: 5, CDR: 100, MDR: 200}}
	buf := want.Encode(2)
	_, body, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	got, err := DecodeCLIPADQ(body)
	if err != nil {
		t.Fatalf("DecodeCLIPADQ: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
