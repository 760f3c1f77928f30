package pppoe

import (
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParseMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	mac, err := net.ParseMAC(s)
	if err != nil {
		t.Fatalf("ParseMAC(%q): %v", s, err)
	}
	return mac
}

func TestPacketRoundTripDiscovery(t *testing.T) {
	src := mustParseMAC(t, "00:11:22:33:44:55")
	dst := mustParseMAC(t, "aa:bb:cc:dd:ee:ff")
	want := &Packet{
		DstMAC:    dst,
		SrcMAC:    src,
		EtherType: EtherTypeDiscovery,
		Code:      CodePADI,
		SessionID: 0,
		Tags: []Tag{
			NewStringTag(TagServiceName, "rfc4938"),
			NewHostUniqTag(0xdeadbeef),
		},
	}
	buf, err := want.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(want.Tags, got.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if got.Code != want.Code || got.SessionID != want.SessionID || got.EtherType != want.EtherType {
		t.Errorf("header mismatch: got %+v", got)
	}
}

func TestPacketRoundTripSession(t *testing.T) {
	src := mustParseMAC(t, "00:11:22:33:44:55")
	dst := mustParseMAC(t, "aa:bb:cc:dd:ee:ff")
	want := &Packet{
		DstMAC:    dst,
		SrcMAC:    src,
		EtherType: EtherTypeSession,
		Code:      CodeSession,
		SessionID: 0x1234,
		Payload:   []byte{0xc0, 0x21, 0x01, 0x02, 0x03, 0x04},
	}
	buf, err := want.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(want.Payload, got.Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	if got.SessionID != want.SessionID {
		t.Errorf("session id = 0x%x, want 0x%x", got.SessionID, want.SessionID)
	}
}

func TestParseRejectsWrongVersionType(t *testing.T) {
	buf := make([]byte, EthHdrSize+HdrSize)
	buf[EthHdrSize] = 0x21 // version 2, type 1
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected error for bad version/type nibble")
	}
}

func TestParseTagsTruncated(t *testing.T) {
	// tag header claims 10 bytes of value but none follow.
	buf := []byte{0x01, 0x01, 0x00, 0x0a}
	if _, err := ParseTags(buf); err == nil {
		t.Fatal("expected truncated tag error")
	}
}

func TestParseTagsStopsAtEndOfList(t *testing.T) {
	buf := []byte{0x01, 0x01, 0x00, 0x02, 'h', 'i', 0x00, 0x00, 0x00, 0x00, 0x01, 0x02, 0x00, 0x00}
	tags, err := ParseTags(buf)
	if err != nil {
		t.Fatalf("ParseTags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("got %d tags, want 2 (stop at End-Of-List)", len(tags))
	}
}

func TestCreditTagRoundTrip(t *testing.T) {
	tag := NewCreditTag(256, 0)
	got, err := ParseCreditTag(tag)
	if err != nil {
		t.Fatalf("ParseCreditTag: %v", err)
	}
	if got.FCN != 256 || got.BCN != 0 {
		t.Errorf("got %+v, want FCN=256 BCN=0", got)
	}
}

func TestMetricsTagRoundTrip(t *testing.T) {
	want := MetricsTag{
		ReceiveOnly: false,
		RLQ:         40,
		Resources:   100,
		Latency:     12,
		CDRScale:    ScaleKBS,
		CDR:         500,
		MDRScale:    ScaleKBS,
		MDR:         1000,
	}
	tag := NewMetricsTag(want)
	got, err := ParseMetricsTag(tag)
	if err != nil {
		t.Fatalf("ParseMetricsTag: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("metrics tag mismatch (-want +got):\n%s", diff)
	}
}

func TestSeqNumAndScalarTagRoundTrip(t *testing.T) {
	seqTag := NewSeqNumTag(7)
	seq, err := ParseSeqNumTag(seqTag)
	if err != nil || seq != 7 {
		t.Errorf("seq round trip = %d, %v, want 7, nil", seq, err)
	}
	scalarTag := NewScalarTag(64)
	scalar, err := ParseScalarTag(scalarTag)
	if err != nil || scalar != 64 {
		t.Errorf("scalar round trip = %d, %v, want 64, nil", scalar, err)
	}
}
