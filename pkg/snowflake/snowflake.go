// Package snowflake allocates unique int64 identifiers without coordination:
// 41 bits of milliseconds since a fixed epoch, 10 bits of node id and 12 bits
// of per-millisecond sequence.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	nodeBits  = 10
	seqBits   = 12
	maxNode   = (1 << nodeBits) - 1
	seqMask   = (1 << seqBits) - 1
	nodeShift = seqBits
	timeShift = nodeBits + seqBits

	// 2025-01-01 00:00:00 UTC
	epochMillis int64 = 1735689600000
)

type Node struct {
	mu   sync.Mutex
	node int64
	last int64
	seq  int64
}

func NewNode(node int64) (*Node, error) {
	if node < 0 || node > maxNode {
		return nil, errors.New("snowflake: node id out of range [0, 1023]")
	}
	return &Node{node: node}, nil
}

// Generate returns the next id. Safe for concurrent use; spins into the next
// millisecond when the sequence for the current one is exhausted.
func (n *Node) Generate() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < n.last {
		// Clock went backwards; stay on the last observed millisecond.
		now = n.last
	}
	if now == n.last {
		n.seq = (n.seq + 1) & seqMask
		if n.seq == 0 {
			for now <= n.last {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		n.seq = 0
	}
	n.last = now

	return (now-epochMillis)<<timeShift | n.node<<nodeShift | n.seq
}
