// Package lcp implements the PPP protocol-number framing and the
// LCP/IPCP packet codec used by the broadcast-mode synthesis described
// in §4.6: intercepting and answering LCP/IPCP locally when there is no
// real peer PPP responder.
package lcp

import (
	"encoding/binary"
	"fmt"
)

// ProtocolNumber is a PPP protocol field value (RFC 1661 §2).
type ProtocolNumber uint16

// Protocols relevant to broadcast-mode synthesis and credit accounting.
const (
	ProtoIPv4 ProtocolNumber = 0x0021
	ProtoIPv6 ProtocolNumber = 0x0057
	ProtoLCP  ProtocolNumber = 0xc021
	ProtoPAP  ProtocolNumber = 0xc023
	ProtoCHAP ProtocolNumber = 0xc223
	ProtoIPCP ProtocolNumber = 0x8021
)

// Code is an LCP/IPCP control code (RFC 1661 §5).
type Code uint8

// LCP/IPCP control codes.
const (
	CodeConfigureRequest Code = 1
	CodeConfigureAck     Code = 2
	CodeConfigureNak     Code = 3
	CodeConfigureReject  Code = 4
	CodeTerminateRequest Code = 5
	CodeTerminateAck     Code = 6
	CodeCodeReject       Code = 7
	CodeProtocolReject   Code = 8 // LCP only
	CodeEchoRequest      Code = 9 // LCP only
	CodeEchoReply        Code = 10
	CodeDiscardRequest   Code = 11
)

func (c Code) String() string {
	switch c {
	case CodeConfigureRequest:
		return "Configure-Request"
	case CodeConfigureAck:
		return "Configure-Ack"
	case CodeConfigureNak:
		return "Configure-Nak"
	case CodeConfigureReject:
		return "Configure-Reject"
	case CodeTerminateRequest:
		return "Terminate-Request"
	case CodeTerminateAck:
		return "Terminate-Ack"
	case CodeCodeReject:
		return "Code-Reject"
	case CodeProtocolReject:
		return "Protocol-Reject"
	case CodeEchoRequest:
		return "Echo-Request"
	case CodeEchoReply:
		return "Echo-Reply"
	case CodeDiscardRequest:
		return "Discard-Request"
	default:
		return "Unknown"
	}
}

// OptionType is an LCP or IPCP configuration option type.
type OptionType uint8

// Options used by the synthesis logic.
const (
	OptMagicNumber OptionType = 5 // LCP
	OptIPAddress   OptionType = 3 // IPCP
)

// Option is a single LCP/IPCP configuration option: type(1) | length(1) | value(length-2).
type Option struct {
	Type  OptionType
	Value []byte
}

// Len returns the encoded size of the option.
func (o Option) Len() int {
	return 2 + len(o.Value)
}

// Packet is a decoded LCP or IPCP message: code(1) | id(1) | length(2) | data.
// For Echo-Request/Reply and Discard-Request, Data holds the raw magic
// number plus any trailing data. For Configure-*, Options holds the
// parsed option list and Data is unused.
type Packet struct {
	Code    Code
	ID      uint8
	Options []Option
	Data    []byte
}

// Serialize encodes p into PPP payload bytes (protocol field not included).
func (p *Packet) Serialize() ([]byte, error) {
	var body []byte
	switch p.Code {
	case CodeConfigureRequest, CodeConfigureAck, CodeConfigureNak, CodeConfigureReject:
		for _, o := range p.Options {
			var hdr [2]byte
			hdr[0] = byte(o.Type)
			hdr[1] = byte(o.Len())
			body = append(body, hdr[:]...)
			body = append(body, o.Value...)
		}
	default:
		body = append(body, p.Data...)
	}
	length := 4 + len(body)
	if length > 0xFFFF {
		return nil, fmt.Errorf("lcp: packet too large to serialize (%d bytes)", length)
	}
	buf := make([]byte, 4, 4+len(body))
	buf[0] = byte(p.Code)
	buf[1] = p.ID
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))
	buf = append(buf, body...)
	return buf, nil
}

// Parse decodes buf (PPP payload, protocol field already stripped) into a Packet.
func Parse(buf []byte) (*Packet, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("lcp: packet of %d bytes too short for header", len(buf))
	}
	p := &Packet{
		Code: Code(buf[0]),
		ID:   buf[1],
	}
	length := int(binary.BigEndian.Uint16(buf[2:4]))
	if length > len(buf) {
		return nil, fmt.Errorf("lcp: declared length %d exceeds %d bytes available", length, len(buf))
	}
	body := buf[4:length]
	switch p.Code {
	case CodeConfigureRequest, CodeConfigureAck, CodeConfigureNak, CodeConfigureReject:
		off := 0
		for off+2 <= len(body) {
			optLen := int(body[off+1])
			if optLen < 2 || off+optLen > len(body) {
				return nil, fmt.Errorf("lcp: option at offset %d declares invalid length %d", off, optLen)
			}
			p.Options = append(p.Options, Option{
				Type:  OptionType(body[off]),
				Value: append([]byte(nil), body[off+2:off+optLen]...),
			})
			off += optLen
		}
	default:
		p.Data = append([]byte(nil), body...)
	}
	return p, nil
}

// GetOption returns the first option of type t, and whether it was found.
func (p *Packet) GetOption(t OptionType) (Option, bool) {
	for _, o := range p.Options {
		if o.Type == t {
			return o, true
		}
	}
	return Option{}, false
}

// MagicNumber extracts the magic number carried in an LCP Configure-Request's
// Magic-Number option, or in an Echo-Request/Reply's leading 4 data bytes.
func (p *Packet) MagicNumber() (uint32, bool) {
	switch p.Code {
	case CodeConfigureRequest, CodeConfigureAck, CodeConfigureNak, CodeConfigureReject:
		opt, ok := p.GetOption(OptMagicNumber)
		if !ok || len(opt.Value) < 4 {
			return 0, false
		}
		return binary.BigEndian.Uint32(opt.Value), true
	case CodeEchoRequest, CodeEchoReply, CodeDiscardRequest:
		if len(p.Data) < 4 {
			return 0, false
		}
		return binary.BigEndian.Uint32(p.Data[0:4]), true
	default:
		return 0, false
	}
}

// NewMagicNumberOption builds an LCP Magic-Number option.
func NewMagicNumberOption(magic uint32) Option {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, magic)
	return Option{Type: OptMagicNumber, Value: v}
}

// IPv4FromOption decodes an IPCP IP-Address option's 4-byte value.
func IPv4FromOption(o Option) (uint32, error) {
	if len(o.Value) < 4 {
		return 0, fmt.Errorf("lcp: ip-address option too short (%d bytes)", len(o.Value))
	}
	return binary.BigEndian.Uint32(o.Value), nil
}

// NewIPv4Option builds an IPCP IP-Address option carrying addr.
func NewIPv4Option(addr uint32) Option {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, addr)
	return Option{Type: OptIPAddress, Value: v}
}
