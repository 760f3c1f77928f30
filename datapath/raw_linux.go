package datapath

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/safchain/ethtool"
	"golang.org/x/sys/unix"

	"github.com/adjacentlink/rfc4938/pppoe"
)

// rawSocket is an AF_PACKET device bound to a physical or virtual
// uplink interface, receiving every PPPoE discovery and session frame
// addressed to the host. The interface is not put into promiscuous mode.
type rawSocket struct {
	fd      int
	ifindex int
	mac     net.HardwareAddr
	recv    chan []byte
	done    chan struct{}
}

func htons(i uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], i)
	return binary.LittleEndian.Uint16(b[:])
}

func newRawSocket(iface string) (*rawSocket, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("datapath: interface %s not found: %w", iface, err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("datapath: open AF_PACKET socket: %w", err)
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("datapath: bind to %s: %w", iface, err)
	}

	d := &rawSocket{
		fd:      fd,
		ifindex: ifi.Index,
		mac:     ifi.HardwareAddr,
		recv:    make(chan []byte, 256),
		done:    make(chan struct{}),
	}
	go d.readLoop()
	return d, nil
}

func (d *rawSocket) readLoop() {
	buf := make([]byte, pppoe.MaxPPPoEMTU+pppoe.EthHdrSize)
	for {
		n, _, err := unix.Recvfrom(d.fd, buf, 0)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			close(d.recv)
			return
		}
		if n < pppoe.EthHdrSize+pppoe.HdrSize {
			continue
		}
		et := binary.BigEndian.Uint16(buf[12:14])
		if et != pppoe.EtherTypeDiscovery && et != pppoe.EtherTypeSession {
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

// Send writes a raw Ethernet frame as-is.
func (d *rawSocket) Send(frame []byte) error {
	addr := unix.SockaddrLinklayer{Ifindex: d.ifindex}
	return unix.Sendto(d.fd, frame, 0, &addr)
}

// Recv implements Device.
func (d *rawSocket) Recv() <-chan []byte { return d.recv }

// Close implements Device.
func (d *rawSocket) Close() error {
	close(d.done)
	return unix.Close(d.fd)
}

// HardwareAddr returns the bound interface's MAC address.
func (d *rawSocket) HardwareAddr() net.HardwareAddr { return d.mac }

// LinkSpeedMbps queries the negotiated link speed of the bound
// interface for the Metrics Aggregator's self max-data-rate report,
// §4.4. It returns 0, nil when the driver does not report a speed
// (common for virtual interfaces).
func LinkSpeedMbps(iface string) (uint32, error) {
	et, err := ethtool.NewEthtool()
	if err != nil {
		return 0, fmt.Errorf("datapath: ethtool: %w", err)
	}
	defer et.Close()
	stats, err := et.CmdGetMapped(iface)
	if err != nil {
		return 0, fmt.Errorf("datapath: ethtool cmd get %s: %w", iface, err)
	}
	return uint32(stats["Speed"]), nil
}
