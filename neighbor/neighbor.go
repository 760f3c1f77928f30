// Package neighbor implements the Neighbor Table and Supervisor of
// §3.1/§4.5: the per-neighbor state machine, spawning and routing
// frames to Session Workers, and inactivity expiry.
package neighbor

import (
	"context"
	"net"
	"sync"
	"time"
)

// State is a neighbor's lifecycle state, §3.1.
type State int

// Neighbor states.
const (
	StateInvalid State = iota
	StateInactive
	StatePending
	StateReady
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "INVALID"
	case StateInactive:
		return "INACTIVE"
	case StatePending:
		return "PENDING"
	case StateReady:
		return "READY"
	case StateActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// Neighbor is one entry in the Neighbor Table: identity, lifecycle
// state, and the plumbing needed to stop its Session Worker and route
// frames to it, §3.1.
type Neighbor struct {
	ID           uint32
	MAC          net.HardwareAddr
	State        State
	LastActivity time.Time
	SessionID    uint16

	// LastSeqNum/MissedSeqNum track the control-message sequence
	// number this neighbor's worker has reported upstream, §4.7. Gaps
	// are observational only; nothing is retransmitted off them.
	haveSeqNum   bool
	LastSeqNum   uint32
	MissedSeqNum uint32

	cancel context.CancelFunc
	inbox  chan []byte
	done   chan struct{}
}

// RecordSeqNum updates the neighbor's sequence accounting for a
// newly-observed control-message sequence number, incrementing
// MissedSeqNum by any gap since the last one seen.
func (n *Neighbor) RecordSeqNum(seq uint32) {
	if n.haveSeqNum && seq > n.LastSeqNum+1 {
		n.MissedSeqNum += uint32(seq - n.LastSeqNum - 1)
	}
	n.LastSeqNum = seq
	n.haveSeqNum = true
}

// Table is the Supervisor's registry of known neighbors, keyed by
// neighbor id, §3.1.
type Table struct {
	mu        sync.Mutex
	neighbors map[uint32]*Neighbor
}

// NewTable returns an empty Neighbor Table.
func NewTable() *Table {
	return &Table{neighbors: make(map[uint32]*Neighbor)}
}

// Get returns the neighbor with the given id, or nil.
func (t *Table) Get(id uint32) *Neighbor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.neighbors[id]
}

// Put inserts or replaces a neighbor entry.
func (t *Table) Put(n *Neighbor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.neighbors[n.ID] = n
}

// Delete removes a neighbor entry.
func (t *Table) Delete(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.neighbors, id)
}

// All returns a snapshot of every neighbor currently tracked.
func (t *Table) All() []*Neighbor {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Neighbor, 0, len(t.neighbors))
	for _, n := range t.neighbors {
		out = append(out, n)
	}
	return out
}

// ByMAC finds the neighbor whose MAC matches mac, used to demux
// discovery-stage frames before a session id has been assigned.
func (t *Table) ByMAC(mac net.HardwareAddr) *Neighbor {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range t.neighbors {
		if n.MAC != nil && macEqual(n.MAC, mac) {
			return n
		}
	}
	return nil
}

// BySessionID finds the neighbor currently holding sessionID, used to
// demux established-session frames, §4.5.
func (t *Table) BySessionID(id uint16) *Neighbor {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range t.neighbors {
		if n.State == StateActive && n.SessionID == id {
			return n
		}
	}
	return nil
}

func macEqual(a, b net.HardwareAddr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
