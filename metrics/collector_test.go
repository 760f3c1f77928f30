package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorExportsSnapshots(t *testing.T) {
	c := NewCollector()
	c.Update([]NeighborSnapshot{
		{NeighborID: 1, LocalCredits: 100, PeerCredits: 200, RLQ: 80, Resources: 90},
	})

	count := testutil.CollectAndCount(c)
	if count != 5 {
		t.Errorf("metric count = %d, want 5 (4 per-neighbor + 1 session gauge)", count)
	}
}

func TestCollectorUpdateReplacesSnapshot(t *testing.T) {
	c := NewCollector()
	c.Update([]NeighborSnapshot{{NeighborID: 1}})
	c.Update([]NeighborSnapshot{{NeighborID: 2}})

	c.mu.Lock()
	_, hasOld := c.snapshots[1]
	_, hasNew := c.snapshots[2]
	c.mu.Unlock()

	if hasOld {
		t.Error("old neighbor snapshot should have been replaced")
	}
	if !hasNew {
		t.Error("new neighbor snapshot missing")
	}
}
