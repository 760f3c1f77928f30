package session

import "github.com/adjacentlink/rfc4938/pppoe"

// inbandTagBytes is the wire size of an inband Credits tag riding inside
// a session-data frame: header plus fcn/bcn value, §4.2.1.
const inbandTagBytes = pppoe.TagHdrSize + pppoe.TagCreditsLen

// ComputeLocalCredits returns the local credit balance after consuming
// frameLen PPPoE-payload bytes for a frame carried without an inband
// credit tag: ceil((frameLen - PPPOverhead) / scalar) credits, §4.2.1.
func ComputeLocalCredits(current uint16, frameLen int, scalar uint16) uint16 {
	return computeCredits(current, frameLen, pppoe.PPPOverhead, scalar)
}

// ComputeLocalCreditsWithInband is the local-side accounting for a frame
// that itself carries an inband Credits tag: the tag's own bytes are
// also subtracted before dividing, same as the peer-side variant, §4.2.1/§9.
func ComputeLocalCreditsWithInband(current uint16, frameLen int, scalar uint16) uint16 {
	return computeCredits(current, frameLen, pppoe.PPPOverhead+inbandTagBytes, scalar)
}

// ComputePeerCredits returns the remaining credit balance charged to the
// peer after frameLen bytes sent without an inband Credits tag, §4.2.1.
func ComputePeerCredits(current uint16, frameLen int, scalar uint16) uint16 {
	return computeCredits(current, frameLen, pppoe.PPPOverhead, scalar)
}

// ComputePeerCreditsWithInband charges the peer for frameLen bytes minus
// the inband Credits tag's own header and value, since that tag rides
// inside the same granted allowance, §4.2.1.
func ComputePeerCreditsWithInband(current uint16, frameLen int, scalar uint16) uint16 {
	return computeCredits(current, frameLen, pppoe.PPPOverhead+inbandTagBytes, scalar)
}

// creditCost returns the credit cost of a frameLen-byte frame at the
// given overhead and scalar, without applying it to a balance:
// ceil((frameLen - overhead) / scalar), §4.2.1/§8.
func creditCost(frameLen, overhead int, scalar uint16) uint16 {
	if scalar == 0 {
		scalar = pppoe.DefaultScalar
	}
	numerator := frameLen - overhead
	if numerator < 0 {
		numerator = 0
	}
	cost := (numerator + int(scalar) - 1) / int(scalar)
	if cost > pppoe.MaxCredits {
		return pppoe.MaxCredits
	}
	return uint16(cost)
}

func computeCredits(current uint16, frameLen, overhead int, scalar uint16) uint16 {
	return saturateSub(current, creditCost(frameLen, overhead, scalar))
}

// ApplyGrant adds a received credit grant to the running balance,
// saturating at pppoe.MaxCredits, §4.2.2.
func ApplyGrant(current, grant uint16) uint16 {
	return saturateAdd(current, grant)
}

// ScaledGrant converts a raw PADG credit field to the local unscaled
// credit domain per the negotiated scalar, §4.3's scalar semantics:
// scalar is a reciprocal fixed-point multiplier so that grant*scalar/64
// matches the C implementation's integer math when scalar is the
// default 64 (i.e. unscaled).
func ScaledGrant(grant uint16, scalar uint16) uint16 {
	if scalar == 0 {
		scalar = pppoe.DefaultScalar
	}
	v := uint32(grant) * uint32(scalar) / uint32(pppoe.DefaultScalar)
	if v > pppoe.MaxCredits {
		return pppoe.MaxCredits
	}
	return uint16(v)
}
