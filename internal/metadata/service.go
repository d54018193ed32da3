// Package metadata implements the metadata service: the authoritative
// registry of storage nodes and file plans, the placement planner, and the
// failover path that promotes replicas when primaries die.
//
// All state lives in two in-memory tables guarded by a single mutex. Every
// handler takes the mutex for its full duration, so placement decisions
// always see a consistent snapshot of cluster load. The service is
// intentionally stateless across restarts.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Wender13/BigFS/internal/bigfs"
	"github.com/Wender13/BigFS/internal/logging"
	"github.com/Wender13/BigFS/internal/rpcwire"
	"github.com/go-co-op/gocron/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config carries the metadata service's dependencies and tunables.
type Config struct {
	Logger *slog.Logger

	// Conns is the connection pool used for RemoveChunk fan-out to storage
	// nodes. If nil, a private pool is created.
	Conns *rpcwire.Conns

	// HeartbeatTimeout is how long a node may go without a heartbeat before
	// it stops being a placement candidate. Defaults to
	// bigfs.HeartbeatTimeout.
	HeartbeatTimeout time.Duration

	// RemoveTimeout is the per-call deadline for RemoveChunk RPCs during
	// RemoveFile. Defaults to 10s.
	RemoveTimeout time.Duration

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// Service is the metadata service. It implements
// rpcwire.MetadataServiceServer.
type Service struct {
	logger           *slog.Logger
	conns            *rpcwire.Conns
	heartbeatTimeout time.Duration
	removeTimeout    time.Duration
	now              func() time.Time

	mu        sync.Mutex
	nodes     map[bigfs.NodeAddress]*bigfs.NodeStatus
	files     map[string]*bigfs.FilePlan
	scheduler gocron.Scheduler
}

// New creates a metadata service. Call Start to begin the liveness sweep.
func New(cfg Config) *Service {
	logger := logging.Default(cfg.Logger).With("component", "metadata")
	conns := cfg.Conns
	if conns == nil {
		conns = rpcwire.NewConns()
	}
	timeout := cfg.HeartbeatTimeout
	if timeout <= 0 {
		timeout = bigfs.HeartbeatTimeout
	}
	removeTimeout := cfg.RemoveTimeout
	if removeTimeout <= 0 {
		removeTimeout = 10 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logger:           logger,
		conns:            conns,
		heartbeatTimeout: timeout,
		removeTimeout:    removeTimeout,
		now:              now,
		nodes:            make(map[bigfs.NodeAddress]*bigfs.NodeStatus),
		files:            make(map[string]*bigfs.FilePlan),
	}
}

// RegisterNode upserts a storage node's heartbeat record.
func (s *Service) RegisterNode(ctx context.Context, in *rpcwire.NodeInfo) (*rpcwire.SimpleResponse, error) {
	if in.Address == "" {
		return nil, status.Error(codes.InvalidArgument, "node address required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	addr := bigfs.NodeAddress(in.Address)
	if _, known := s.nodes[addr]; !known {
		s.logger.Info("node joined", "address", in.Address, "chunks", in.ChunkCount)
	}
	s.nodes[addr] = &bigfs.NodeStatus{
		Address:    addr,
		LastSeen:   s.now(),
		ChunkCount: in.ChunkCount,
	}
	return &rpcwire.SimpleResponse{Success: true}, nil
}

// ListFiles returns every known file with its approximate size. The path
// filter is accepted but ignored; filtering happens client-side.
func (s *Service) ListFiles(ctx context.Context, in *rpcwire.PathRequest) (*rpcwire.FileListResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &rpcwire.FileListResponse{Files: make([]rpcwire.FileInfo, 0, len(s.files))}
	for name, plan := range s.files {
		resp.Files = append(resp.Files, rpcwire.FileInfo{Filename: name, Size: plan.ApproxSize()})
	}
	slices.SortFunc(resp.Files, func(a, b rpcwire.FileInfo) int {
		return strings.Compare(a.Filename, b.Filename)
	})
	return resp, nil
}

// GetWritePlan plans placement for a new file of the given size and records
// the plan, overwriting any prior plan for the same name.
//
// Placement is least-loaded with rotation: live nodes are sorted once by
// reported chunk count, each chunk takes the first R entries, and the list
// rotates left by one between chunks so consecutive chunks land on
// different primaries.
func (s *Service) GetWritePlan(ctx context.Context, in *rpcwire.FileRequest) (*rpcwire.FileLocationResponse, error) {
	if in.Filename == "" {
		return nil, status.Error(codes.InvalidArgument, "filename required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.liveNodesLocked()
	if len(live) < bigfs.ReplicationFactor {
		return nil, status.Errorf(codes.Unavailable,
			"need %d live storage nodes, have %d", bigfs.ReplicationFactor, len(live))
	}

	slices.SortFunc(live, func(a, b *bigfs.NodeStatus) int {
		if a.ChunkCount != b.ChunkCount {
			if a.ChunkCount < b.ChunkCount {
				return -1
			}
			return 1
		}
		return strings.Compare(string(a.Address), string(b.Address))
	})

	numChunks := bigfs.NumChunks(in.Size)
	plan := &bigfs.FilePlan{
		Filename: in.Filename,
		Chunks:   make([]bigfs.ChunkLocation, 0, numChunks),
	}
	for i := 0; i < numChunks; i++ {
		if len(live) < bigfs.ReplicationFactor {
			return nil, status.Error(codes.Internal, "placement pool shrank mid-plan")
		}
		replicas := make([]bigfs.NodeAddress, 0, bigfs.ReplicationFactor-1)
		for _, n := range live[1:bigfs.ReplicationFactor] {
			replicas = append(replicas, n.Address)
		}
		plan.Chunks = append(plan.Chunks, bigfs.ChunkLocation{
			ChunkIndex: uint32(i),
			ChunkID:    bigfs.NewChunkID(in.Filename, i),
			Primary:    live[0].Address,
			Replicas:   replicas,
		})
		live = append(live[1:], live[0])
	}

	if _, exists := s.files[in.Filename]; exists {
		s.logger.Info("overwriting existing plan", "filename", in.Filename)
	}
	s.files[in.Filename] = plan
	s.logger.Info("planned file", "filename", in.Filename, "size", in.Size, "chunks", numChunks)
	return planToWire(plan), nil
}

// GetFileLocation returns the stored plan for a file. If a chunk's primary
// is dead, the first live replica is promoted to primary in the stored
// plan — the mutation persists across subsequent reads and the dead primary
// never returns to the plan. If some chunk has no live node at all, the
// whole call fails.
func (s *Service) GetFileLocation(ctx context.Context, in *rpcwire.FileRequest) (*rpcwire.FileLocationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.files[in.Filename]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "file %q not found", in.Filename)
	}

	for i := range plan.Chunks {
		loc := &plan.Chunks[i]
		if s.isLiveLocked(loc.Primary) {
			continue
		}
		promoted := -1
		for j, r := range loc.Replicas {
			if s.isLiveLocked(r) {
				promoted = j
				break
			}
		}
		if promoted < 0 {
			return nil, status.Errorf(codes.Unavailable,
				"chunk %s: no live replica to promote", loc.ChunkID)
		}
		s.logger.Warn("promoting replica to primary",
			"chunk", loc.ChunkID, "dead", loc.Primary, "promoted", loc.Replicas[promoted])
		// The dead ex-primary leaves the location for good, and any
		// replicas that died alongside it are shed in the same pass.
		remaining := make([]bigfs.NodeAddress, 0, len(loc.Replicas)-1)
		for j, r := range loc.Replicas {
			if j != promoted && s.isLiveLocked(r) {
				remaining = append(remaining, r)
			}
		}
		loc.Primary = loc.Replicas[promoted]
		loc.Replicas = remaining
	}

	return planToWire(plan), nil
}

// RemoveFile deletes every chunk of a file from its live holders and drops
// the plan. A chunk counts as removed when at least one node confirms the
// deletion; dead nodes are skipped outright. The plan is dropped even when
// some chunks fail.
func (s *Service) RemoveFile(ctx context.Context, in *rpcwire.FileRequest) (*rpcwire.RemoveFileResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.files[in.Filename]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "file %q not found", in.Filename)
	}

	resp := &rpcwire.RemoveFileResponse{Success: true}
	for _, loc := range plan.Chunks {
		removed := false
		for _, addr := range append([]bigfs.NodeAddress{loc.Primary}, loc.Replicas...) {
			if !s.isLiveLocked(addr) {
				continue
			}
			confirm, ok := s.removeChunkAt(ctx, addr, loc.ChunkID)
			if !ok {
				continue
			}
			removed = true
			if confirm.Success {
				if n, ok := s.nodes[addr]; ok && n.ChunkCount > 0 {
					n.ChunkCount--
				}
			}
		}
		if removed {
			resp.RemovedChunks = append(resp.RemovedChunks, string(loc.ChunkID))
		} else {
			resp.FailedChunks = append(resp.FailedChunks, string(loc.ChunkID))
		}
	}

	delete(s.files, in.Filename)
	resp.Message = fmt.Sprintf("removed %q: %d chunks deleted, %d failed",
		in.Filename, len(resp.RemovedChunks), len(resp.FailedChunks))
	s.logger.Info("removed file", "filename", in.Filename,
		"removed", len(resp.RemovedChunks), "failed", len(resp.FailedChunks))
	return resp, nil
}

// removeChunkAt issues one RemoveChunk RPC with a deadline. Any completed
// call confirms the chunk is gone from that node — success=false means it
// was already absent. Only a failed RPC reports ok=false.
func (s *Service) removeChunkAt(ctx context.Context, addr bigfs.NodeAddress, id bigfs.ChunkID) (*rpcwire.SimpleResponse, bool) {
	conn, err := s.conns.Conn(string(addr))
	if err != nil {
		s.logger.Warn("remove chunk: dial failed", "node", addr, "error", err)
		return nil, false
	}
	cctx, cancel := context.WithTimeout(ctx, s.removeTimeout)
	defer cancel()
	resp, err := rpcwire.NewStorageServiceClient(conn).RemoveChunk(cctx, &rpcwire.ChunkRequest{ChunkID: string(id)})
	if err != nil {
		s.logger.Warn("remove chunk failed", "node", addr, "chunk", id, "error", err)
		return nil, false
	}
	return resp, true
}

// liveNodesLocked snapshots the nodes heartbeating within the timeout.
// Caller holds s.mu.
func (s *Service) liveNodesLocked() []*bigfs.NodeStatus {
	cutoff := s.now().Add(-s.heartbeatTimeout)
	live := make([]*bigfs.NodeStatus, 0, len(s.nodes))
	for _, n := range s.nodes {
		if !n.LastSeen.Before(cutoff) {
			live = append(live, n)
		}
	}
	return live
}

// isLiveLocked reports whether a node is known and heartbeating within the
// timeout. Caller holds s.mu.
func (s *Service) isLiveLocked(addr bigfs.NodeAddress) bool {
	n, ok := s.nodes[addr]
	return ok && !n.LastSeen.Before(s.now().Add(-s.heartbeatTimeout))
}

func planToWire(plan *bigfs.FilePlan) *rpcwire.FileLocationResponse {
	resp := &rpcwire.FileLocationResponse{
		IsSharded: len(plan.Chunks) > 1,
		Locations: make([]rpcwire.ChunkLocation, 0, len(plan.Chunks)),
	}
	for _, loc := range plan.Chunks {
		replicas := make([]string, 0, len(loc.Replicas))
		for _, r := range loc.Replicas {
			replicas = append(replicas, string(r))
		}
		resp.Locations = append(resp.Locations, rpcwire.ChunkLocation{
			ChunkIndex:     loc.ChunkIndex,
			ChunkID:        string(loc.ChunkID),
			PrimaryNodeID:  string(loc.Primary),
			ReplicaNodeIDs: replicas,
		})
	}
	return resp
}
