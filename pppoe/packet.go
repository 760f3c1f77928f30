package pppoe

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Packet is a parsed PPPoE discovery or session frame, Ethernet header
// included. For a session frame, Payload carries the PPP payload
// (in-band credit tag, when present, as its very first bytes); for a
// discovery frame, Tags carries the parsed TLVs and Payload is nil.
type Packet struct {
	DstMAC    net.HardwareAddr
	SrcMAC    net.HardwareAddr
	EtherType uint16
	Code      Code
	SessionID uint16
	Tags      []Tag
	Payload   []byte
}

// IsDiscovery reports whether the packet's EtherType marks it as a
// discovery-stage frame.
func (p *Packet) IsDiscovery() bool {
	return p.EtherType == EtherTypeDiscovery
}

// payloadLen returns the bytes that follow the PPPoE header: either the
// encoded tags (discovery) or the raw PPP payload (session).
func (p *Packet) payloadLen() int {
	if p.Code == CodeSession {
		return len(p.Payload)
	}
	n := 0
	for _, t := range p.Tags {
		n += t.Len()
	}
	return n
}

// Serialize encodes the packet into wire bytes: Ethernet header, PPPoE
// header with pppoe_length set to the exact byte count that follows it,
// and the tags or PPP payload.
func (p *Packet) Serialize() ([]byte, error) {
	if len(p.DstMAC) != 6 || len(p.SrcMAC) != 6 {
		return nil, fmt.Errorf("pppoe: invalid MAC address length (dst=%d src=%d)", len(p.DstMAC), len(p.SrcMAC))
	}
	length := p.payloadLen()
	if EthHdrSize+HdrSize+length > MaxPPPoEMTU+EthHdrSize {
		return nil, fmt.Errorf("pppoe: encoded packet of %d bytes exceeds MTU %d", length, MaxPPPoEMTU)
	}
	buf := make([]byte, 0, EthHdrSize+HdrSize+length)
	buf = append(buf, p.DstMAC...)
	buf = append(buf, p.SrcMAC...)
	var et [2]byte
	binary.BigEndian.PutUint16(et[:], p.EtherType)
	buf = append(buf, et[:]...)

	var hdr [HdrSize]byte
	hdr[0] = (Version << 4) | Type
	hdr[1] = byte(p.Code)
	binary.BigEndian.PutUint16(hdr[2:4], p.SessionID)
	binary.BigEndian.PutUint16(hdr[4:6], uint16(length))
	buf = append(buf, hdr[:]...)

	if p.Code == CodeSession {
		buf = append(buf, p.Payload...)
	} else {
		for _, t := range p.Tags {
			buf = t.Encode(buf)
		}
	}
	return buf, nil
}

// Parse decodes buf (a full Ethernet frame) into p. Packets that do not
// carry PPPoE version 1 / type 1 are rejected, per §3.2.
func Parse(buf []byte) (*Packet, error) {
	if len(buf) < EthHdrSize+HdrSize {
		return nil, fmt.Errorf("pppoe: frame of %d bytes too short for Ethernet+PPPoE headers", len(buf))
	}
	p := &Packet{
		DstMAC:    net.HardwareAddr(append([]byte(nil), buf[0:6]...)),
		SrcMAC:    net.HardwareAddr(append([]byte(nil), buf[6:12]...)),
		EtherType: binary.BigEndian.Uint16(buf[12:14]),
	}
	hdr := buf[EthHdrSize : EthHdrSize+HdrSize]
	if hdr[0]>>4 != Version || hdr[0]&0x0f != Type {
		return nil, fmt.Errorf("pppoe: unsupported version/type 0x%02x", hdr[0])
	}
	p.Code = Code(hdr[1])
	p.SessionID = binary.BigEndian.Uint16(hdr[2:4])
	length := int(binary.BigEndian.Uint16(hdr[4:6]))

	body := buf[EthHdrSize+HdrSize:]
	if length > len(body) {
		return nil, fmt.Errorf("pppoe: declared length %d exceeds %d bytes available", length, len(body))
	}
	body = body[:length]

	if p.Code == CodeSession {
		p.Payload = body
		return p, nil
	}
	tags, err := ParseTags(body)
	if err != nil {
		return nil, err
	}
	p.Tags = tags
	return p, nil
}

// IsUnicast reports whether mac is a unicast address (the I/G bit clear),
// used to validate a PADO's source MAC per §4.1.1.
func IsUnicast(mac net.HardwareAddr) bool {
	return len(mac) == 6 && mac[0]&0x01 == 0
}

var (
	// BroadcastMAC is the Ethernet broadcast address used to send PADI.
	BroadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)
