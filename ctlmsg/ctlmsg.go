// Package ctlmsg implements the local control protocol wire format of
// §6.2: fixed-header messages exchanged between the Supervisor, its
// Session Workers, and the operator CLI over local UDP datagrams.
package ctlmsg

import (
	"encoding/binary"
	"fmt"
)

// HdrChk is the magic value every message begins with, used as the
// primary sanity filter on receipt.
const HdrChk = 0xBAAF

// HeaderLen is the encoded size of Header.
const HeaderLen = 8

// Cmd identifies the payload that follows a Header.
type Cmd uint8

// Control commands, §6.2.
const (
	CmdSessionStart            Cmd = 0
	CmdSessionStartReady       Cmd = 1
	CmdChildReady              Cmd = 2
	CmdChildSessionUp          Cmd = 3
	CmdChildSessionTerminated  Cmd = 4
	CmdChildSessionData        Cmd = 5
	CmdPeerSessionTerminated   Cmd = 6
	CmdPeerSessionData         Cmd = 7
	CmdSessionStop             Cmd = 8
	CmdSessionPADQ             Cmd = 9
	CmdSessionPADG             Cmd = 10
	CmdFrameData               Cmd = 11
	CmdCLISessionInitiate      Cmd = 12
	CmdCLISessionTerminate     Cmd = 13
	CmdCLISessionPADQ          Cmd = 14
	CmdCLISessionPADG          Cmd = 15
	CmdCLISessionShow          Cmd = 16
	CmdCLISessionShowResponse  Cmd = 17
)

func (c Cmd) String() string {
	names := map[Cmd]string{
		CmdSessionStart:           "SESSION_START",
		CmdSessionStartReady:      "SESSION_START_READY",
		CmdChildReady:             "CHILD_READY",
		CmdChildSessionUp:         "CHILD_SESSION_UP",
		CmdChildSessionTerminated: "CHILD_SESSION_TERMINATED",
		CmdChildSessionData:       "CHILD_SESSION_DATA",
		CmdPeerSessionTerminated:  "PEER_SESSION_TERMINATED",
		CmdPeerSessionData:        "PEER_SESSION_DATA",
		CmdSessionStop:            "SESSION_STOP",
		CmdSessionPADQ:            "SESSION_PADQ",
		CmdSessionPADG:            "SESSION_PADG",
		CmdFrameData:              "FRAME_DATA",
		CmdCLISessionInitiate:     "CLI_SESSION_INITIATE",
		CmdCLISessionTerminate:    "CLI_SESSION_TERMINATE",
		CmdCLISessionPADQ:         "CLI_SESSION_PADQ",
		CmdCLISessionPADG:         "CLI_SESSION_PADG",
		CmdCLISessionShow:         "CLI_SESSION_SHOW",
		CmdCLISessionShowResponse: "CLI_SESSION_SHOW_RESPONSE",
	}
	if n, ok := names[c]; ok {
		return n
	}
	return "UNKNOWN"
}

// Header is the fixed 8-byte preamble of every control message.
type Header struct {
	Cmd Cmd
	Seq uint32
}

// Encode writes the header to the front of a new buffer sized for the
// header plus extra bytes of payload.
func (h Header) Encode(extra int) []byte {
	buf := make([]byte, HeaderLen, HeaderLen+extra)
	binary.BigEndian.PutUint16(buf[0:2], HdrChk)
	buf[2] = byte(h.Cmd)
	buf[3] = 0
	binary.BigEndian.PutUint32(buf[4:8], h.Seq)
	return buf
}

// DecodeHeader parses the fixed header from the front of buf. A message
// whose hdrchk does not match HdrChk is rejected outright, per §6.2.
func DecodeHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderLen {
		return Header{}, nil, fmt.Errorf("ctlmsg: message of %d bytes shorter than header", len(buf))
	}
	if binary.BigEndian.Uint16(buf[0:2]) != HdrChk {
		return Header{}, nil, fmt.Errorf("ctlmsg: bad hdrchk 0x%04x", binary.BigEndian.Uint16(buf[0:2]))
	}
	h := Header{
		Cmd: Cmd(buf[2]),
		Seq: binary.BigEndian.Uint32(buf[4:8]),
	}
	return h, buf[HeaderLen:], nil
}

// SessionStart is CTL_SESSION_START's payload.
type SessionStart struct {
	NeighborID   uint32
	PID          uint32
	CreditScalar uint16
}

// Encode serializes a SESSION_START message.
func (m SessionStart) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdSessionStart, Seq: seq}.Encode(10)
	var p [10]byte
	binary.BigEndian.PutUint32(p[0:4], m.NeighborID)
	binary.BigEndian.PutUint32(p[4:8], m.PID)
	binary.BigEndian.PutUint16(p[8:10], m.CreditScalar)
	return append(buf, p[:]...)
}

// DecodeSessionStart decodes a SESSION_START payload (header already stripped).
func DecodeSessionStart(body []byte) (SessionStart, error) {
	if len(body) < 10 {
		return SessionStart{}, fmt.Errorf("ctlmsg: SESSION_START payload too short (%d bytes)", len(body))
	}
	return SessionStart{
		NeighborID:   binary.BigEndian.Uint32(body[0:4]),
		PID:          binary.BigEndian.Uint32(body[4:8]),
		CreditScalar: binary.BigEndian.Uint16(body[8:10]),
	}, nil
}

// SessionStartReady is CTL_SESSION_START_READY's payload.
type SessionStartReady struct {
	NeighborID uint32
	PID        uint32
}

// Encode serializes a SESSION_START_READY message.
func (m SessionStartReady) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdSessionStartReady, Seq: seq}.Encode(8)
	var p [8]byte
	binary.BigEndian.PutUint32(p[0:4], m.NeighborID)
	binary.BigEndian.PutUint32(p[4:8], m.PID)
	return append(buf, p[:]...)
}

// DecodeSessionStartReady decodes a SESSION_START_READY payload.
func DecodeSessionStartReady(body []byte) (SessionStartReady, error) {
	if len(body) < 8 {
		return SessionStartReady{}, fmt.Errorf("ctlmsg: SESSION_START_READY payload too short (%d bytes)", len(body))
	}
	return SessionStartReady{
		NeighborID: binary.BigEndian.Uint32(body[0:4]),
		PID:        binary.BigEndian.Uint32(body[4:8]),
	}, nil
}

// ChildReady is CTL_CHILD_READY's payload.
type ChildReady struct {
	NeighborID uint32
	Port       uint16
	PID        uint32
}

// Encode serializes a CHILD_READY message.
func (m ChildReady) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdChildReady, Seq: seq}.Encode(10)
	var p [10]byte
	binary.BigEndian.PutUint32(p[0:4], m.NeighborID)
	binary.BigEndian.PutUint16(p[4:6], m.Port)
	binary.BigEndian.PutUint32(p[6:10], m.PID)
	return append(buf, p[:]...)
}

// DecodeChildReady decodes a CHILD_READY payload.
func DecodeChildReady(body []byte) (ChildReady, error) {
	if len(body) < 10 {
		return ChildReady{}, fmt.Errorf("ctlmsg: CHILD_READY payload too short (%d bytes)", len(body))
	}
	return ChildReady{
		NeighborID: binary.BigEndian.Uint32(body[0:4]),
		Port:       binary.BigEndian.Uint16(body[4:6]),
		PID:        binary.BigEndian.Uint32(body[6:10]),
	}, nil
}

// ChildSessionUp is CTL_CHILD_SESSION_UP's payload.
type ChildSessionUp struct {
	NeighborID uint32
	SessionID  uint16
	PID        uint32
}

// Encode serializes a CHILD_SESSION_UP message.
func (m ChildSessionUp) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdChildSessionUp, Seq: seq}.Encode(10)
	var p [10]byte
	binary.BigEndian.PutUint32(p[0:4], m.NeighborID)
	binary.BigEndian.PutUint16(p[4:6], m.SessionID)
	binary.BigEndian.PutUint32(p[6:10], m.PID)
	return append(buf, p[:]...)
}

// DecodeChildSessionUp decodes a CHILD_SESSION_UP payload.
func DecodeChildSessionUp(body []byte) (ChildSessionUp, error) {
	if len(body) < 10 {
		return ChildSessionUp{}, fmt.Errorf("ctlmsg: CHILD_SESSION_UP payload too short (%d bytes)", len(body))
	}
	return ChildSessionUp{
		NeighborID: binary.BigEndian.Uint32(body[0:4]),
		SessionID:  binary.BigEndian.Uint16(body[4:6]),
		PID:        binary.BigEndian.Uint32(body[6:10]),
	}, nil
}

// ChildSessionTerminated is CTL_CHILD_SESSION_TERMINATED's payload.
type ChildSessionTerminated struct {
	NeighborID uint32
	SessionID  uint16
}

// Encode serializes a CHILD_SESSION_TERMINATED message.
func (m ChildSessionTerminated) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdChildSessionTerminated, Seq: seq}.Encode(6)
	var p [6]byte
	binary.BigEndian.PutUint32(p[0:4], m.NeighborID)
	binary.BigEndian.PutUint16(p[4:6], m.SessionID)
	return append(buf, p[:]...)
}

// DecodeChildSessionTerminated decodes a CHILD_SESSION_TERMINATED payload.
func DecodeChildSessionTerminated(body []byte) (ChildSessionTerminated, error) {
	if len(body) < 6 {
		return ChildSessionTerminated{}, fmt.Errorf("ctlmsg: CHILD_SESSION_TERMINATED payload too short (%d bytes)", len(body))
	}
	return ChildSessionTerminated{
		NeighborID: binary.BigEndian.Uint32(body[0:4]),
		SessionID:  binary.BigEndian.Uint16(body[4:6]),
	}, nil
}

// SessionData is the shared shape of CTL_CHILD_SESSION_DATA and
// CTL_PEER_SESSION_DATA payloads: neighbor_id, credits, and the frame bytes.
type SessionData struct {
	NeighborID uint32
	Credits    uint16
	Data       []byte
}

func encodeSessionData(cmd Cmd, seq uint32, m SessionData) []byte {
	buf := Header{Cmd: cmd, Seq: seq}.Encode(8 + len(m.Data))
	var p [8]byte
	binary.BigEndian.PutUint32(p[0:4], m.NeighborID)
	binary.BigEndian.PutUint16(p[4:6], uint16(len(m.Data)))
	binary.BigEndian.PutUint16(p[6:8], m.Credits)
	buf = append(buf, p[:]...)
	return append(buf, m.Data...)
}

func decodeSessionData(body []byte) (SessionData, error) {
	if len(body) < 8 {
		return SessionData{}, fmt.Errorf("ctlmsg: session data payload too short (%d bytes)", len(body))
	}
	m := SessionData{
		NeighborID: binary.BigEndian.Uint32(body[0:4]),
		Credits:    binary.BigEndian.Uint16(body[6:8]),
	}
	dataLen := int(binary.BigEndian.Uint16(body[4:6]))
	if len(body) < 8+dataLen {
		return SessionData{}, fmt.Errorf("ctlmsg: session data declares %d bytes, only %d available", dataLen, len(body)-8)
	}
	m.Data = append([]byte(nil), body[8:8+dataLen]...)
	return m, nil
}

// EncodeChildSessionData serializes a CHILD_SESSION_DATA message.
func EncodeChildSessionData(seq uint32, m SessionData) []byte {
	return encodeSessionData(CmdChildSessionData, seq, m)
}

// DecodeChildSessionData decodes a CHILD_SESSION_DATA payload.
func DecodeChildSessionData(body []byte) (SessionData, error) { return decodeSessionData(body) }

// EncodePeerSessionData serializes a PEER_SESSION_DATA message.
func EncodePeerSessionData(seq uint32, m SessionData) []byte {
	return encodeSessionData(CmdPeerSessionData, seq, m)
}

// DecodePeerSessionData decodes a PEER_SESSION_DATA payload.
func DecodePeerSessionData(body []byte) (SessionData, error) { return decodeSessionData(body) }

// PeerSessionTerminated is CTL_PEER_SESSION_TERMINATED's payload.
type PeerSessionTerminated struct {
	NeighborID uint32
}

// Encode serializes a PEER_SESSION_TERMINATED message.
func (m PeerSessionTerminated) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdPeerSessionTerminated, Seq: seq}.Encode(4)
	var p [4]byte
	binary.BigEndian.PutUint32(p[0:4], m.NeighborID)
	return append(buf, p[:]...)
}

// DecodePeerSessionTerminated decodes a PEER_SESSION_TERMINATED payload.
func DecodePeerSessionTerminated(body []byte) (PeerSessionTerminated, error) {
	if len(body) < 4 {
		return PeerSessionTerminated{}, fmt.Errorf("ctlmsg: PEER_SESSION_TERMINATED payload too short (%d bytes)", len(body))
	}
	return PeerSessionTerminated{NeighborID: binary.BigEndian.Uint32(body[0:4])}, nil
}

// PADQ is the shared shape of CTL_SESSION_PADQ: link-quality fields
// destined for a Session Worker, per §4.4/§6.2.
type PADQ struct {
	ReceiveOnly bool
	RLQ         uint8
	Resources   uint8
	Latency     uint16
	CDRScale    uint16
	CDR         uint16
	MDRScale    uint16
	MDR         uint16
}

// Encode serializes a SESSION_PADQ message.
func (m PADQ) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdSessionPADQ, Seq: seq}.Encode(13)
	p := make([]byte, 13)
	if m.ReceiveOnly {
		p[0] = 1
	}
	p[1] = m.RLQ
	p[2] = m.Resources
	binary.BigEndian.PutUint16(p[3:5], m.Latency)
	binary.BigEndian.PutUint16(p[5:7], m.CDRScale)
	binary.BigEndian.PutUint16(p[7:9], m.CDR)
	binary.BigEndian.PutUint16(p[9:11], m.MDRScale)
	binary.BigEndian.PutUint16(p[11:13], m.MDR)
	return append(buf, p...)
}

// DecodePADQ decodes a SESSION_PADQ payload.
func DecodePADQ(body []byte) (PADQ, error) {
	if len(body) < 13 {
		return PADQ{}, fmt.Errorf("ctlmsg: PADQ payload too short (%d bytes)", len(body))
	}
	return PADQ{
		ReceiveOnly: body[0] != 0,
		RLQ:         body[1],
		Resources:   body[2],
		Latency:     binary.BigEndian.Uint16(body[3:5]),
		CDRScale:    binary.BigEndian.Uint16(body[5:7]),
		CDR:         binary.BigEndian.Uint16(body[7:9]),
		MDRScale:    binary.BigEndian.Uint16(body[9:11]),
		MDR:         binary.BigEndian.Uint16(body[11:13]),
	}, nil
}

// PADG is CTL_SESSION_PADG's payload: a credit grant to push into a
// Session Worker's grant engine.
type PADG struct {
	Credits uint16
}

// Encode serializes a SESSION_PADG message.
func (m PADG) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdSessionPADG, Seq: seq}.Encode(2)
	var p [2]byte
	binary.BigEndian.PutUint16(p[:], m.Credits)
	return append(buf, p[:]...)
}

// DecodePADG decodes a SESSION_PADG payload.
func DecodePADG(body []byte) (PADG, error) {
	if len(body) < 2 {
		return PADG{}, fmt.Errorf("ctlmsg: PADG payload too short (%d bytes)", len(body))
	}
	return PADG{Credits: binary.BigEndian.Uint16(body[0:2])}, nil
}

// FrameData is CTL_FRAME_DATA's payload: a PPP frame destined for/from
// the local device, tagged with the session id and PPP protocol.
type FrameData struct {
	SessionID uint16
	Proto     uint16
	Data      []byte
}

// Encode serializes a FRAME_DATA message.
func (m FrameData) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdFrameData, Seq: seq}.Encode(6 + len(m.Data))
	p := make([]byte, 6)
	binary.BigEndian.PutUint16(p[0:2], m.SessionID)
	binary.BigEndian.PutUint16(p[2:4], uint16(len(m.Data)))
	binary.BigEndian.PutUint16(p[4:6], m.Proto)
	buf = append(buf, p...)
	return append(buf, m.Data...)
}

// DecodeFrameData decodes a FRAME_DATA payload.
func DecodeFrameData(body []byte) (FrameData, error) {
	if len(body) < 6 {
		return FrameData{}, fmt.Errorf("ctlmsg: FRAME_DATA payload too short (%d bytes)", len(body))
	}
	m := FrameData{
		SessionID: binary.BigEndian.Uint16(body[0:2]),
		Proto:     binary.BigEndian.Uint16(body[4:6]),
	}
	dataLen := int(binary.BigEndian.Uint16(body[2:4]))
	if len(body) < 6+dataLen {
		return FrameData{}, fmt.Errorf("ctlmsg: FRAME_DATA declares %d bytes, only %d available", dataLen, len(body)-6)
	}
	m.Data = append([]byte(nil), body[6:6+dataLen]...)
	return m, nil
}

// CLISessionInitiate is CLI_SESSION_INITIATE's payload.
type CLISessionInitiate struct {
	NeighborID   uint32
	CreditScalar uint16
}

// Encode serializes a CLI_SESSION_INITIATE message.
func (m CLISessionInitiate) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdCLISessionInitiate, Seq: seq}.Encode(6)
	p := make([]byte, 6)
	binary.BigEndian.PutUint32(p[0:4], m.NeighborID)
	binary.BigEndian.PutUint16(p[4:6], m.CreditScalar)
	return append(buf, p...)
}

// DecodeCLISessionInitiate decodes a CLI_SESSION_INITIATE payload.
func DecodeCLISessionInitiate(body []byte) (CLISessionInitiate, error) {
	if len(body) < 6 {
		return CLISessionInitiate{}, fmt.Errorf("ctlmsg: CLI_SESSION_INITIATE payload too short (%d bytes)", len(body))
	}
	return CLISessionInitiate{
		NeighborID:   binary.BigEndian.Uint32(body[0:4]),
		CreditScalar: binary.BigEndian.Uint16(body[4:6]),
	}, nil
}

// CLISessionTerminate is CLI_SESSION_TERMINATE's payload.
type CLISessionTerminate struct {
	NeighborID uint32
}

// Encode serializes a CLI_SESSION_TERMINATE message.
func (m CLISessionTerminate) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdCLISessionTerminate, Seq: seq}.Encode(4)
	p := make([]byte, 4)
	binary.BigEndian.PutUint32(p, m.NeighborID)
	return append(buf, p...)
}

// DecodeCLISessionTerminate decodes a CLI_SESSION_TERMINATE payload.
func DecodeCLISessionTerminate(body []byte) (CLISessionTerminate, error) {
	if len(body) < 4 {
		return CLISessionTerminate{}, fmt.Errorf("ctlmsg: CLI_SESSION_TERMINATE payload too short (%d bytes)", len(body))
	}
	return CLISessionTerminate{NeighborID: binary.BigEndian.Uint32(body)}, nil
}

// CLIPADQ is CLI_SESSION_PADQ's payload: neighbor id plus the PADQ fields.
type CLIPADQ struct {
	NeighborID uint32
	PADQ       PADQ
}

// Encode serializes a CLI_SESSION_PADQ message.
func (m CLIPADQ) Encode(seq uint32) []byte {
	inner := m.PADQ.Encode(seq)[HeaderLen:]
	buf := Header{Cmd: CmdCLISessionPADQ, Seq: seq}.Encode(4 + len(inner))
	p := make([]byte, 4)
	binary.BigEndian.PutUint32(p, m.NeighborID)
	buf = append(buf, p...)
	return append(buf, inner...)
}

// DecodeCLIPADQ decodes a CLI_SESSION_PADQ payload.
func DecodeCLIPADQ(body []byte) (CLIPADQ, error) {
	if len(body) < 4 {
		return CLIPADQ{}, fmt.Errorf("ctlmsg: CLI_SESSION_PADQ payload too short (%d bytes)", len(body))
	}
	padq, err := DecodePADQ(body[4:])
	if err != nil {
		return CLIPADQ{}, err
	}
	return CLIPADQ{NeighborID: binary.BigEndian.Uint32(body[0:4]), PADQ: padq}, nil
}

// CLIPADG is CLI_SESSION_PADG's payload.
type CLIPADG struct {
	NeighborID uint32
	Credits    uint16
}

// Encode serializes a CLI_SESSION_PADG message.
func (m CLIPADG) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdCLISessionPADG, Seq: seq}.Encode(6)
	p := make([]byte, 6)
	binary.BigEndian.PutUint32(p[0:4], m.NeighborID)
	binary.BigEndian.PutUint16(p[4:6], m.Credits)
	return append(buf, p...)
}

// DecodeCLIPADG decodes a CLI_SESSION_PADG payload.
func DecodeCLIPADG(body []byte) (CLIPADG, error) {
	if len(body) < 6 {
		return CLIPADG{}, fmt.Errorf("ctlmsg: CLI_SESSION_PADG payload too short (%d bytes)", len(body))
	}
	return CLIPADG{
		NeighborID: binary.BigEndian.Uint32(body[0:4]),
		Credits:    binary.BigEndian.Uint16(body[4:6]),
	}, nil
}

// EncodeCLISessionShow serializes a CLI_SESSION_SHOW message (empty payload).
func EncodeCLISessionShow(seq uint32) []byte {
	return Header{Cmd: CmdCLISessionShow, Seq: seq}.Encode(0)
}

// ShowResponseTextLen is the fixed size of CLI_SESSION_SHOW_RESPONSE's text field.
const ShowResponseTextLen = 1000

// CLIShowResponse is CLI_SESSION_SHOW_RESPONSE's payload.
type CLIShowResponse struct {
	NeighborID uint32
	Text       string
}

// Encode serializes a CLI_SESSION_SHOW_RESPONSE message, NUL-padding Text
// to ShowResponseTextLen bytes.
func (m CLIShowResponse) Encode(seq uint32) []byte {
	buf := Header{Cmd: CmdCLISessionShowResponse, Seq: seq}.Encode(4 + ShowResponseTextLen)
	p := make([]byte, 4+ShowResponseTextLen)
	binary.BigEndian.PutUint32(p[0:4], m.NeighborID)
	copy(p[4:], m.Text)
	return append(buf, p...)
}

// DecodeCLIShowResponse decodes a CLI_SESSION_SHOW_RESPONSE payload.
func DecodeCLIShowResponse(body []byte) (CLIShowResponse, error) {
	if len(body) < 4+ShowResponseTextLen {
		return CLIShowResponse{}, fmt.Errorf("ctlmsg: SHOW_RESPONSE payload too short (%d bytes)", len(body))
	}
	text := body[4 : 4+ShowResponseTextLen]
	n := 0
	for n < len(text) && text[n] != 0 {
		n++
	}
	return CLIShowResponse{
		NeighborID: binary.BigEndian.Uint32(body[0:4]),
		Text:       string(text[:n]),
	}, nil
}

// Encode serializes a SESSION_STOP message (empty payload).
func EncodeSessionStop(seq uint32) []byte {
	return Header{Cmd: CmdSessionStop, Seq: seq}.Encode(0)
}
