package neighbor

import (
	"net"
	"testing"
)

func TestTablePutGetDelete(t *testing.T) {
	tbl := NewTable()
	n := &Neighbor{ID: 7, State: StatePending}
	tbl.Put(n)

	if got := tbl.Get(7); got != n {
		t.Fatalf("Get(7) = %v, want %v", got, n)
	}
	tbl.Delete(7)
	if got := tbl.Get(7); got != nil {
		t.Fatalf("Get(7) after delete = %v, want nil", got)
	}
}

func TestTableByMAC(t *testing.T) {
	tbl := NewTable()
	mac := net.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	tbl.Put(&Neighbor{ID: 1, MAC: mac})

	if got := tbl.ByMAC(mac); got == nil || got.ID != 1 {
		t.Fatalf("ByMAC did not find neighbor 1")
	}
	other := net.HardwareAddr{0x02, 0, 0, 0, 0, 2}
	if got := tbl.ByMAC(other); got != nil {
		t.Fatalf("ByMAC matched unrelated MAC: %v", got)
	}
}

func TestTableBySessionIDOnlyMatchesActive(t *testing.T) {
	tbl := NewTable()
	tbl.Put(&Neighbor{ID: 1, State: StatePending, SessionID: 5})
	tbl.Put(&Neighbor{ID: 2, State: StateActive, SessionID: 5})

	got := tbl.BySessionID(5)
	if got == nil || got.ID != 2 {
		t.Fatalf("BySessionID = %v, want neighbor 2", got)
	}
}

func TestTableAll(t *testing.T) {
	tbl := NewTable()
	tbl.Put(&Neighbor{ID: 1})
	tbl.Put(&Neighbor{ID: 2})
	if got := len(tbl.All()); got != 2 {
		t.Fatalf("All() returned %d neighbors, want 2", got)
	}
}

func TestRecordSeqNumTracksGaps(t *testing.T) {
	n := &Neighbor{ID: 1}
	n.RecordSeqNum(1)
	n.RecordSeqNum(2)
	if n.MissedSeqNum != 0 {
		t.Fatalf("MissedSeqNum = %d, want 0 after consecutive seqnums", n.MissedSeqNum)
	}
	n.RecordSeqNum(5)
	if n.MissedSeqNum != 2 {
		t.Fatalf("MissedSeqNum = %d, want 2 after a gap of 2", n.MissedSeqNum)
	}
	if n.LastSeqNum != 5 {
		t.Fatalf("LastSeqNum = %d, want 5", n.LastSeqNum)
	}
}
