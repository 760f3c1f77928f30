package pppoe

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncatedTag is returned when a tag's declared length would run
// past the end of the payload it was parsed from.
var ErrTruncatedTag = errors.New("pppoe: truncated tag")

// Tag is a single discovery/session TLV: type(2) | length(2) | value(length).
type Tag struct {
	Type  TagType
	Value []byte
}

// Len returns the encoded size of the tag, header included.
func (t Tag) Len() int {
	return TagHdrSize + len(t.Value)
}

// Encode appends the wire representation of t to buf and returns the result.
func (t Tag) Encode(buf []byte) []byte {
	var hdr [TagHdrSize]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(t.Type))
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(t.Value)))
	buf = append(buf, hdr[:]...)
	buf = append(buf, t.Value...)
	return buf
}

// ParseTags decodes a sequence of tags from payload. Parsing is defensive:
// any tag whose length would run past the end of payload aborts with
// ErrTruncatedTag instead of reading out of bounds.
func ParseTags(payload []byte) ([]Tag, error) {
	var tags []Tag
	off := 0
	for off+TagHdrSize <= len(payload) {
		typ := TagType(binary.BigEndian.Uint16(payload[off : off+2]))
		length := int(binary.BigEndian.Uint16(payload[off+2 : off+4]))
		if off+TagHdrSize+length > len(payload) {
			return tags, fmt.Errorf("%w: tag %v at offset %d declares length %d beyond payload of %d bytes",
				ErrTruncatedTag, typ, off, length, len(payload))
		}
		val := make([]byte, length)
		copy(val, payload[off+TagHdrSize:off+TagHdrSize+length])
		tags = append(tags, Tag{Type: typ, Value: val})
		off += TagHdrSize + length
		if typ == TagEndOfList {
			break
		}
	}
	return tags, nil
}

// FindTag returns the first tag of the given type, and whether it was found.
func FindTag(tags []Tag, t TagType) (Tag, bool) {
	for _, tg := range tags {
		if tg.Type == t {
			return tg, true
		}
	}
	return Tag{}, false
}

// FindAllTags returns every tag of the given type, preserving order.
func FindAllTags(tags []Tag, t TagType) []Tag {
	var out []Tag
	for _, tg := range tags {
		if tg.Type == t {
			out = append(out, tg)
		}
	}
	return out
}

// NewStringTag builds a tag whose value is the raw bytes of s (Service-Name,
// AC-Name, error tags carrying a textual reason).
func NewStringTag(t TagType, s string) Tag {
	return Tag{Type: t, Value: []byte(s)}
}

// NewHostUniqTag builds a Host-Uniq tag carrying id in network byte order.
func NewHostUniqTag(id uint32) Tag {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, id)
	return Tag{Type: TagHostUniq, Value: v}
}

// HostUniqValue extracts the 32-bit value from a Host-Uniq tag.
func HostUniqValue(t Tag) (uint32, error) {
	if len(t.Value) < 4 {
		return 0, fmt.Errorf("%w: host-uniq tag too short (%d bytes)", ErrTruncatedTag, len(t.Value))
	}
	return binary.BigEndian.Uint32(t.Value), nil
}

// CreditTag is the decoded value of a TAG_RFC4938_CREDITS tag:
// forward/backward credit numbers, §4.3.
type CreditTag struct {
	FCN uint16
	BCN uint16
}

// NewCreditTag builds a Credit tag carrying fcn/bcn.
func NewCreditTag(fcn, bcn uint16) Tag {
	v := make([]byte, TagCreditsLen)
	binary.BigEndian.PutUint16(v[0:2], fcn)
	binary.BigEndian.PutUint16(v[2:4], bcn)
	return Tag{Type: TagCredits, Value: v}
}

// ParseCreditTag decodes a Credit tag's value, reading 16-bit fields
// byte-wise to tolerate a misaligned slice.
func ParseCreditTag(t Tag) (CreditTag, error) {
	if len(t.Value) < TagCreditsLen {
		return CreditTag{}, fmt.Errorf("%w: credit tag too short (%d bytes)", ErrTruncatedTag, len(t.Value))
	}
	return CreditTag{
		FCN: binary.BigEndian.Uint16(t.Value[0:2]),
		BCN: binary.BigEndian.Uint16(t.Value[2:4]),
	}, nil
}

// NewSeqNumTag builds a Sequence tag carrying seq.
func NewSeqNumTag(seq uint16) Tag {
	v := make([]byte, TagSeqNumLen)
	binary.BigEndian.PutUint16(v, seq)
	return Tag{Type: TagSeqNum, Value: v}
}

// ParseSeqNumTag decodes a Sequence tag's value.
func ParseSeqNumTag(t Tag) (uint16, error) {
	if len(t.Value) < TagSeqNumLen {
		return 0, fmt.Errorf("%w: sequence tag too short (%d bytes)", ErrTruncatedTag, len(t.Value))
	}
	return binary.BigEndian.Uint16(t.Value), nil
}

// NewScalarTag builds a Scalar tag carrying the local credit scalar.
func NewScalarTag(scalar uint16) Tag {
	v := make([]byte, TagScalarLen)
	binary.BigEndian.PutUint16(v, scalar)
	return Tag{Type: TagScalar, Value: v}
}

// ParseScalarTag decodes a Scalar tag's value.
func ParseScalarTag(t Tag) (uint16, error) {
	if len(t.Value) < TagScalarLen {
		return 0, fmt.Errorf("%w: scalar tag too short (%d bytes)", ErrTruncatedTag, len(t.Value))
	}
	return binary.BigEndian.Uint16(t.Value), nil
}

// DataRateScale is the {KBS,MBS,GBS,TBS} scalar selector carried in a
// Metrics tag's reserved field, §4.4.
type DataRateScale uint8

// Data rate scale selectors.
const (
	ScaleKBS DataRateScale = 0
	ScaleMBS DataRateScale = 1
	ScaleGBS DataRateScale = 2
	ScaleTBS DataRateScale = 3
)

// MetricsTag is the decoded value of a TAG_RFC4938_METRICS tag, §4.3/§4.4.
type MetricsTag struct {
	ReceiveOnly bool
	RLQ         uint8
	Resources   uint8
	Latency     uint16
	CDRScale    DataRateScale
	CDR         uint16
	MDRScale    DataRateScale
	MDR         uint16
}

// NewMetricsTag builds a Metrics tag from its decoded fields.
func NewMetricsTag(m MetricsTag) Tag {
	v := make([]byte, TagMetricsLen)
	reserved := uint16(m.MDRScale)<<3 | uint16(m.CDRScale)<<1
	if m.ReceiveOnly {
		reserved |= 1
	}
	binary.BigEndian.PutUint16(v[0:2], reserved)
	v[2] = m.RLQ
	v[3] = m.Resources
	binary.BigEndian.PutUint16(v[4:6], m.Latency)
	binary.BigEndian.PutUint16(v[6:8], m.CDR)
	binary.BigEndian.PutUint16(v[8:10], m.MDR)
	return Tag{Type: TagMetrics, Value: v}
}

// ParseMetricsTag decodes a Metrics tag's value.
func ParseMetricsTag(t Tag) (MetricsTag, error) {
	if len(t.Value) < TagMetricsLen {
		return MetricsTag{}, fmt.Errorf("%w: metrics tag too short (%d bytes)", ErrTruncatedTag, len(t.Value))
	}
	reserved := binary.BigEndian.Uint16(t.Value[0:2])
	return MetricsTag{
		ReceiveOnly: reserved&0x1 != 0,
		CDRScale:    DataRateScale((reserved >> 1) & 0x3),
		MDRScale:    DataRateScale((reserved >> 3) & 0x3),
		RLQ:         t.Value[2],
		Resources:   t.Value[3],
		Latency:     binary.BigEndian.Uint16(t.Value[4:6]),
		CDR:         binary.BigEndian.Uint16(t.Value[6:8]),
		MDR:         binary.BigEndian.Uint16(t.Value[8:10]),
	}, nil
}
