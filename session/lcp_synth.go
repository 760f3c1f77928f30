package session

import (
	"encoding/binary"

	"github.com/adjacentlink/rfc4938/lcp"
)

// SynthesizeLCP answers an LCP frame locally, as required in
// broadcast/P2MP mode where no real PPP peer exists on the other end of
// the link, §4.6. It returns the PPP frame to send back (protocol field
// included) and whether a reply was produced at all: Terminate-Ack and
// unrecognized codes produce no reply.
func SynthesizeLCP(ctx *Context, req *lcp.Packet) ([]byte, bool, error) {
	switch req.Code {
	case lcp.CodeConfigureRequest:
		if magic, ok := req.MagicNumber(); ok {
			ctx.PeerMagic = magic
			ctx.HavePeerMagic = true
		}
		ack := &lcp.Packet{
			Code:    lcp.CodeConfigureAck,
			ID:      req.ID,
			Options: req.Options,
		}
		return encodeLCP(lcp.ProtoLCP, ack)
	case lcp.CodeEchoRequest:
		magic, _ := req.MagicNumber()
		_ = magic
		data := make([]byte, 4)
		binary.BigEndian.PutUint32(data, ctx.LocalMagic)
		reply := &lcp.Packet{
			Code: lcp.CodeEchoReply,
			ID:   req.ID,
			Data: data,
		}
		return encodeLCP(lcp.ProtoLCP, reply)
	case lcp.CodeTerminateRequest:
		ack := &lcp.Packet{Code: lcp.CodeTerminateAck, ID: req.ID}
		return encodeLCP(lcp.ProtoLCP, ack)
	case lcp.CodeTerminateAck, lcp.CodeConfigureAck, lcp.CodeEchoReply:
		return nil, false, nil
	default:
		return nil, false, nil
	}
}

// SynthesizeIPCP answers an IPCP Configure-Request locally by echoing
// the requested IP-Address option OR'd with the broadcast-mode marker
// bits so the peer can tell the address was synthesized, §4.6.
func SynthesizeIPCP(req *lcp.Packet) ([]byte, bool, error) {
	if req.Code != lcp.CodeConfigureRequest {
		return nil, false, nil
	}
	opts := make([]lcp.Option, 0, len(req.Options))
	for _, o := range req.Options {
		if o.Type == lcp.OptIPAddress {
			addr, err := lcp.IPv4FromOption(o)
			if err != nil {
				return nil, false, err
			}
			opts = append(opts, lcp.NewIPv4Option(addr|broadcastModeAddrMask))
			continue
		}
		opts = append(opts, o)
	}
	ack := &lcp.Packet{Code: lcp.CodeConfigureAck, ID: req.ID, Options: opts}
	return encodeLCP(lcp.ProtoIPCP, ack)
}

// broadcastModeAddrMask marks a synthesized IPCP address, §4.6.
const broadcastModeAddrMask = 0x000000FF

func encodeLCP(proto lcp.ProtocolNumber, p *lcp.Packet) ([]byte, bool, error) {
	body, err := p.Serialize()
	if err != nil {
		return nil, false, err
	}
	out := make([]byte, 2, 2+len(body))
	binary.BigEndian.PutUint16(out, uint16(proto))
	out = append(out, body...)
	return out, true, nil
}
