package datapath

import (
	"fmt"

	"github.com/songgao/water"
	"github.com/vishvananda/netlink"
)

// tapDevice carries whole Ethernet frames (the PPPoE discovery and
// session frames the Session Workers build and parse) to and from the
// kernel via a TAP interface.
type tapDevice struct {
	iface *water.Interface
	link  netlink.Link
	recv  chan []byte
	done  chan struct{}
}

const tapMaxFrame = 1500

func newTAPDevice(name string) (*tapDevice, error) {
	cfg := water.Config{DeviceType: water.TAP}
	cfg.Name = name

	iface, err := water.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("datapath: create TAP %s: %w", name, err)
	}

	link, err := netlink.LinkByName(name)
	if err != nil {
		iface.Close()
		return nil, fmt.Errorf("datapath: lookup link %s: %w", name, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		iface.Close()
		return nil, fmt.Errorf("datapath: bring up %s: %w", name, err)
	}

	d := &tapDevice{
		iface: iface,
		link:  link,
		recv:  make(chan []byte, 256),
		done:  make(chan struct{}),
	}
	go d.readLoop()
	return d, nil
}

// SetMTU clamps the TAP interface's MTU to the peer's negotiated MRU.
func (d *tapDevice) SetMTU(mtu int) error {
	if mtu < 1280 {
		mtu = 1280
	}
	return netlink.LinkSetMTU(d.link, mtu)
}

// AddAddr assigns a CIDR address to the TAP interface, typically the
// address synthesized or negotiated via IPCP, §4.6.
func (d *tapDevice) AddAddr(cidr string) error {
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return fmt.Errorf("datapath: parse addr %s: %w", cidr, err)
	}
	return netlink.AddrAdd(d.link, addr)
}

func (d *tapDevice) readLoop() {
	buf := make([]byte, tapMaxFrame)
	for {
		n, err := d.iface.Read(buf)
		if err != nil {
			close(d.recv)
			return
		}
		if n == 0 {
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		select {
		case d.recv <- frame:
		case <-d.done:
			return
		}
	}
}

// Send writes one Ethernet frame to the TAP interface.
func (d *tapDevice) Send(frame []byte) error {
	_, err := d.iface.Write(frame)
	return err
}

// Recv implements Device.
func (d *tapDevice) Recv() <-chan []byte { return d.recv }

// Close implements Device.
func (d *tapDevice) Close() error {
	close(d.done)
	return d.iface.Close()
}
