// Package bigfs defines the shared data model for the distributed chunked
// object store: node addresses, chunk identity, file plans, and the
// placement constants that size a plan.
package bigfs

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// ChunkSize is the fixed chunk size, C, used to partition files.
	ChunkSize = 1 << 20 // 1 MiB

	// ReplicationFactor is R, the number of nodes holding a chunk after a
	// successful write (primary + replicas).
	ReplicationFactor = 3

	// HeartbeatInterval is how often a Storage Node reports itself to the
	// Metadata Service.
	HeartbeatInterval = 5 * time.Second

	// HeartbeatTimeout is how long a node may go without a heartbeat before
	// the Metadata Service evicts it from the placement pool.
	HeartbeatTimeout = 15 * time.Second

	// WorkerPoolSize bounds the number of RPC handlers any one service
	// dispatches concurrently.
	WorkerPoolSize = 10
)

// NodeAddress is an opaque network address string, e.g. "host:port", used
// both as node identity and as the dial target.
type NodeAddress string

// ChunkID uniquely identifies a chunk across the cluster.
type ChunkID string

// NewChunkID mints a chunk id for chunk index i of filename. Path
// separators in filename are replaced with '_', so the id is a single flat
// file name in a storage node's directory. The suffix is a random UUID
// rather than an epoch timestamp so that rapid re-uploads of the same
// filename can never mint the same id twice.
func NewChunkID(filename string, index int) ChunkID {
	flat := strings.NewReplacer("/", "_", `\`, "_").Replace(filename)
	return ChunkID(fmt.Sprintf("%s_chunk%d_%s", flat, index, uuid.NewString()))
}

// ChunkLocation records where a single chunk of a file lives.
type ChunkLocation struct {
	ChunkIndex uint32
	ChunkID    ChunkID
	Primary    NodeAddress
	Replicas   []NodeAddress
}

// FilePlan is the ordered sequence of chunk locations describing where a
// file's bytes live. Concatenating chunk payloads in ChunkIndex order
// reconstructs the file exactly.
type FilePlan struct {
	Filename string
	Chunks   []ChunkLocation
}

// ApproxSize is the size reported in file listings: (n-1)*ChunkSize + 1
// when chunks exist, else 0. The plan does not carry an exact byte count;
// existing clients expect this approximation, so it stays.
func (p FilePlan) ApproxSize() uint64 {
	n := len(p.Chunks)
	if n == 0 {
		return 0
	}
	return uint64(n-1)*ChunkSize + 1
}

// NodeStatus is the Metadata Service's per-node bookkeeping record.
type NodeStatus struct {
	Address    NodeAddress
	LastSeen   time.Time
	ChunkCount uint64
}

// NumChunks returns the number of chunks a file of the given byte size is
// split into: ceil(size/ChunkSize), or 1 for a zero-byte file.
func NumChunks(size uint64) int {
	if size == 0 {
		return 1
	}
	n := size / ChunkSize
	if size%ChunkSize != 0 {
		n++
	}
	return int(n)
}
