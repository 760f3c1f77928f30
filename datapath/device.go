// Package datapath implements the local Ethernet I/O a Session Worker
// relays PPPoE frames through: a raw AF_PACKET socket bound to the
// physical/virtual uplink, or a TAP interface carrying synthesized PPP
// traffic straight to the kernel's IP stack, selected by config.VIF_MODE.
package datapath

import "fmt"

// Mode selects which backend Open constructs, mirroring config.VIFMode.
type Mode int

// Backends.
const (
	ModeRawSocket Mode = 0
	ModeTAP       Mode = 1
)

// Device is the interface session.Device is satisfied by: send a raw
// Ethernet frame, receive a channel of them.
type Device interface {
	Send(frame []byte) error
	Recv() <-chan []byte
	Close() error
}

// Open constructs the configured backend bound to iface.
func Open(mode Mode, iface string) (Device, error) {
	switch mode {
	case ModeRawSocket:
		return newRawSocket(iface)
	case ModeTAP:
		return newTAPDevice(iface)
	default:
		return nil, fmt.Errorf("datapath: unknown VIF_MODE %d", mode)
	}
}
