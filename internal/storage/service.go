package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Wender13/BigFS/internal/bigfs"
	"github.com/Wender13/BigFS/internal/logging"
	"github.com/Wender13/BigFS/internal/rpcwire"
	"github.com/go-co-op/gocron/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config carries a storage node's dependencies and tunables.
type Config struct {
	// Dir is the chunk store directory.
	Dir string

	// Advertise is the address this node reports to the metadata service;
	// it is both the node's identity and the address peers dial.
	Advertise string

	// MetadataAddr is the metadata service address heartbeats go to.
	MetadataAddr string

	Logger *slog.Logger

	// Conns is the connection pool for replication and heartbeats. If nil,
	// a private pool is created.
	Conns *rpcwire.Conns

	// Compress enables zstd compression of chunks at rest.
	Compress bool

	// HeartbeatInterval defaults to bigfs.HeartbeatInterval.
	HeartbeatInterval time.Duration

	// ReplicateTimeout is the per-replica deadline for async fan-out.
	// Defaults to 5s.
	ReplicateTimeout time.Duration
}

// Service is a storage node. It implements rpcwire.StorageServiceServer.
type Service struct {
	store             *DiskStore
	advertise         string
	metadataAddr      string
	logger            *slog.Logger
	conns             *rpcwire.Conns
	heartbeatInterval time.Duration
	replicateTimeout  time.Duration
	scheduler         gocron.Scheduler
}

// New creates a storage node over the given directory. Call Start to begin
// heartbeating.
func New(cfg Config) (*Service, error) {
	store, err := NewDiskStore(cfg.Dir, cfg.Compress)
	if err != nil {
		return nil, err
	}
	conns := cfg.Conns
	if conns == nil {
		conns = rpcwire.NewConns()
	}
	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = bigfs.HeartbeatInterval
	}
	replicateTimeout := cfg.ReplicateTimeout
	if replicateTimeout <= 0 {
		replicateTimeout = 5 * time.Second
	}
	return &Service{
		store:             store,
		advertise:         cfg.Advertise,
		metadataAddr:      cfg.MetadataAddr,
		logger:            logging.Default(cfg.Logger).With("component", "storage", "node", cfg.Advertise),
		conns:             conns,
		heartbeatInterval: interval,
		replicateTimeout:  replicateTimeout,
	}, nil
}

// StoreChunk persists a chunk locally and, when a replica list is present,
// fans the chunk out to each replica in the background. Replication is
// fire-and-forget: write durability equals primary durability, and replica
// failures are logged, never surfaced.
func (s *Service) StoreChunk(ctx context.Context, in *rpcwire.Chunk) (*rpcwire.SimpleResponse, error) {
	if err := s.store.Put(in.ChunkID, in.Data); err != nil {
		s.logger.Error("store chunk failed", "chunk", in.ChunkID, "error", err)
		return &rpcwire.SimpleResponse{Success: false, Message: err.Error()}, nil
	}
	s.logger.Debug("stored chunk", "chunk", in.ChunkID, "bytes", len(in.Data), "replicas", len(in.ReplicaNodeIDs))

	for _, peer := range in.ReplicaNodeIDs {
		go s.replicate(peer, in.ChunkID, in.Data)
	}
	return &rpcwire.SimpleResponse{Success: true}, nil
}

// replicate pushes one chunk copy to a peer with an empty replica list so
// the peer does not fan out again.
func (s *Service) replicate(peer, chunkID string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.replicateTimeout)
	defer cancel()

	conn, err := s.conns.Conn(peer)
	if err != nil {
		s.logger.Warn("replication dial failed", "peer", peer, "chunk", chunkID, "error", err)
		return
	}
	resp, err := rpcwire.NewStorageServiceClient(conn).StoreChunk(ctx, &rpcwire.Chunk{
		ChunkID: chunkID,
		Data:    data,
	})
	if err != nil {
		s.logger.Warn("replication failed", "peer", peer, "chunk", chunkID, "error", err)
		return
	}
	if !resp.Success {
		s.logger.Warn("replica rejected chunk", "peer", peer, "chunk", chunkID, "message", resp.Message)
	}
}

// RetrieveChunk reads a chunk back.
func (s *Service) RetrieveChunk(ctx context.Context, in *rpcwire.ChunkRequest) (*rpcwire.Chunk, error) {
	data, err := s.store.Get(in.ChunkID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.Errorf(codes.NotFound, "chunk %q not found", in.ChunkID)
		}
		return nil, status.Errorf(codes.Internal, "read chunk %q: %v", in.ChunkID, err)
	}
	return &rpcwire.Chunk{ChunkID: in.ChunkID, Data: data}, nil
}

// RemoveChunk deletes a chunk. A missing chunk is not a hard error; the
// caller reads success=false as "already gone".
func (s *Service) RemoveChunk(ctx context.Context, in *rpcwire.ChunkRequest) (*rpcwire.SimpleResponse, error) {
	existed, err := s.store.Delete(in.ChunkID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "delete chunk %q: %v", in.ChunkID, err)
	}
	if !existed {
		return &rpcwire.SimpleResponse{
			Success: false,
			Message: fmt.Sprintf("chunk %q not present", in.ChunkID),
		}, nil
	}
	s.logger.Debug("removed chunk", "chunk", in.ChunkID)
	return &rpcwire.SimpleResponse{Success: true, Message: "removed"}, nil
}

// Start launches the heartbeat loop. The first beat fires immediately so a
// fresh node enters the placement pool without waiting a full interval.
func (s *Service) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create heartbeat scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.heartbeatInterval),
		gocron.NewTask(s.heartbeat),
		gocron.WithName("heartbeat"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("create heartbeat job: %w", err)
	}
	sched.Start()
	s.scheduler = sched
	s.logger.Info("heartbeat started", "interval", s.heartbeatInterval, "metadata", s.metadataAddr)
	return nil
}

// Stop shuts down the heartbeat loop and outbound connections.
func (s *Service) Stop() error {
	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			return fmt.Errorf("shutdown heartbeat scheduler: %w", err)
		}
		s.scheduler = nil
	}
	return s.conns.Close()
}

// heartbeat counts the local chunks and reports them to the metadata
// service. Failures are swallowed; the next tick retries.
func (s *Service) heartbeat() {
	count, err := s.store.Count()
	if err != nil {
		s.logger.Warn("heartbeat count failed", "error", err)
		return
	}
	conn, err := s.conns.Conn(s.metadataAddr)
	if err != nil {
		s.logger.Warn("heartbeat dial failed", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.heartbeatInterval)
	defer cancel()
	_, err = rpcwire.NewMetadataServiceClient(conn).RegisterNode(ctx, &rpcwire.NodeInfo{
		Address:    s.advertise,
		ChunkCount: count,
	})
	if err != nil {
		s.logger.Warn("heartbeat failed", "error", err)
	}
}
