package neighbor

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/adjacentlink/rfc4938/config"
)

type fakeDevice struct {
	sent chan []byte
	recv chan []byte
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{sent: make(chan []byte, 16), recv: make(chan []byte, 16)}
}

func (d *fakeDevice) Send(frame []byte) error {
	d.sent <- frame
	return nil
}
func (d *fakeDevice) Recv() <-chan []byte { return d.recv }
func (d *fakeDevice) Close() error        { close(d.recv); return nil }

func testSupervisor() (*Supervisor, *fakeDevice) {
	dev := newFakeDevice()
	cfg := config.Default()
	cfg.NodeID = 1
	myEth := net.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	return NewSupervisor(cfg, dev, myEth, zerolog.Nop()), dev
}

func TestStartNeighborRejectsDuplicate(t *testing.T) {
	sup, _ := testSupervisor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	peerMAC := net.HardwareAddr{0x02, 0, 0, 0, 0, 2}
	if err := sup.StartNeighbor(ctx, 2, peerMAC); err != nil {
		t.Fatalf("StartNeighbor: %v", err)
	}
	if err := sup.StartNeighbor(ctx, 2, peerMAC); err == nil {
		t.Fatal("expected error starting duplicate neighbor")
	}
	if err := sup.StopNeighbor(2); err != nil {
		t.Fatalf("StopNeighbor: %v", err)
	}
}

func TestStopNeighborUnknown(t *testing.T) {
	sup, _ := testSupervisor()
	if err := sup.StopNeighbor(99); err == nil {
		t.Fatal("expected error stopping unknown neighbor")
	}
}

func TestRouteByMACThenSessionID(t *testing.T) {
	sup, _ := testSupervisor()
	peerMAC := net.HardwareAddr{0x02, 0, 0, 0, 0, 2}
	sup.table.Put(&Neighbor{ID: 5, MAC: peerMAC, State: StatePending})

	frame := make([]byte, 20)
	copy(frame[6:12], peerMAC)
	if got := sup.route(frame); got == nil || got.ID != 5 {
		t.Fatalf("route by MAC = %v, want neighbor 5", got)
	}

	sup.table.Put(&Neighbor{ID: 6, State: StateActive, SessionID: 42})
	frame2 := make([]byte, 20)
	frame2[16] = 0
	frame2[17] = 42
	if got := sup.route(frame2); got == nil || got.ID != 6 {
		t.Fatalf("route by session id = %v, want neighbor 6", got)
	}
}

func TestReloadUpdatesConfig(t *testing.T) {
	sup, _ := testSupervisor()
	cfg := config.Default()
	cfg.NodeID = 1
	cfg.DebugLevel = 3
	sup.Reload(cfg)
	if sup.cfg.DebugLevel != 3 {
		t.Fatalf("DebugLevel after reload = %d, want 3", sup.cfg.DebugLevel)
	}
}

func TestRunExitsOnContextCancel(t *testing.T) {
	sup, _ := testSupervisor()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- sup.Run(ctx) }()
	cancel()
	select {
	case <-errc:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}
}
