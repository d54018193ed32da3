// Package gateway implements the client-facing coordinator. It buffers
// uploads to a temp file, drives per-chunk placement through the metadata
// service, streams downloads with replica fallback, and passes list and
// delete requests through.
//
// The gateway holds no state between requests; each upload owns exactly one
// uniquely named temp file, deleted on every exit path.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Wender13/BigFS/internal/bigfs"
	"github.com/Wender13/BigFS/internal/logging"
	"github.com/Wender13/BigFS/internal/rpcwire"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config carries the gateway's dependencies and tunables.
type Config struct {
	// MetadataAddr is the metadata service address.
	MetadataAddr string

	// TempDir is where uploads are buffered. Defaults to os.TempDir().
	TempDir string

	Logger *slog.Logger

	// Conns is the connection pool for metadata and storage dialing. If
	// nil, a private pool is created.
	Conns *rpcwire.Conns

	// ChunkSize is how many bytes of the buffered upload go into each
	// planned chunk. Defaults to bigfs.ChunkSize, the size the metadata
	// service plans by.
	ChunkSize int

	// FetchTimeout is the per-attempt deadline for one chunk fetch during
	// download. Defaults to 10s.
	FetchTimeout time.Duration

	// DispatchTimeout is the per-chunk deadline for StoreChunk during
	// upload, and the deadline for metadata calls. Defaults to 15s.
	DispatchTimeout time.Duration
}

// Service is the gateway. It implements rpcwire.GatewayServiceServer.
type Service struct {
	metadataAddr    string
	tempDir         string
	logger          *slog.Logger
	conns           *rpcwire.Conns
	chunkSize       int
	fetchTimeout    time.Duration
	dispatchTimeout time.Duration
}

// New creates a gateway service.
func New(cfg Config) *Service {
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	conns := cfg.Conns
	if conns == nil {
		conns = rpcwire.NewConns()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = bigfs.ChunkSize
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	dispatchTimeout := cfg.DispatchTimeout
	if dispatchTimeout <= 0 {
		dispatchTimeout = 15 * time.Second
	}
	return &Service{
		metadataAddr:    cfg.MetadataAddr,
		tempDir:         tempDir,
		logger:          logging.Default(cfg.Logger).With("component", "gateway"),
		conns:           conns,
		chunkSize:       chunkSize,
		fetchTimeout:    fetchTimeout,
		dispatchTimeout: dispatchTimeout,
	}
}

// Close releases the gateway's outbound connections.
func (s *Service) Close() error {
	return s.conns.Close()
}

// metadataClient dials the metadata service through the shared pool.
func (s *Service) metadataClient() (rpcwire.MetadataServiceClient, error) {
	conn, err := s.conns.Conn(s.metadataAddr)
	if err != nil {
		return nil, err
	}
	return rpcwire.NewMetadataServiceClient(conn), nil
}

// UploadFile buffers the inbound byte stream to a temp file, asks the
// metadata service for a write plan sized by the byte count, then pushes
// each chunk to its planned primary with the replica list attached. Any
// dispatch failure aborts the upload; there is no partial recovery.
func (s *Service) UploadFile(stream rpcwire.GatewayUploadFileServer) error {
	first, err := stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return status.Error(codes.InvalidArgument, "empty upload stream")
		}
		return err
	}
	if first.Metadata == nil || first.Metadata.RemotePath == "" {
		return status.Error(codes.InvalidArgument, "first upload message must carry file metadata")
	}
	remotePath := first.Metadata.RemotePath

	tmpPath := filepath.Join(s.tempDir, "bigfs-upload-"+uuid.NewString())
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return status.Errorf(codes.Internal, "create upload buffer: %v", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	var total uint64
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if msg.Metadata != nil {
			return status.Error(codes.InvalidArgument, "metadata sent twice on upload stream")
		}
		n, err := tmp.Write(msg.Data)
		if err != nil {
			return status.Errorf(codes.Internal, "buffer upload: %v", err)
		}
		total += uint64(n)
	}

	ctx := stream.Context()
	meta, err := s.metadataClient()
	if err != nil {
		return status.Errorf(codes.Internal, "dial metadata: %v", err)
	}
	pctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	plan, err := meta.GetWritePlan(pctx, &rpcwire.FileRequest{Filename: remotePath, Size: total})
	cancel()
	if err != nil {
		return err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return status.Errorf(codes.Internal, "rewind upload buffer: %v", err)
	}
	buf := make([]byte, s.chunkSize)
	for _, loc := range plan.Locations {
		n, err := io.ReadFull(tmp, buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return status.Errorf(codes.Internal, "read upload buffer: %v", err)
		}
		if err := s.dispatchChunk(ctx, loc, buf[:n]); err != nil {
			return err
		}
	}

	s.logger.Info("uploaded file", "path", remotePath, "bytes", total, "chunks", len(plan.Locations))
	return stream.SendAndClose(&rpcwire.SimpleResponse{
		Success: true,
		Message: fmt.Sprintf("stored %q: %d bytes in %d chunks", remotePath, total, len(plan.Locations)),
	})
}

// dispatchChunk pushes one chunk to its planned primary with the replica
// list attached, so the primary fans it out.
func (s *Service) dispatchChunk(ctx context.Context, loc rpcwire.ChunkLocation, data []byte) error {
	conn, err := s.conns.Conn(loc.PrimaryNodeID)
	if err != nil {
		return status.Errorf(codes.Internal, "dial primary %s: %v", loc.PrimaryNodeID, err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()
	resp, err := rpcwire.NewStorageServiceClient(conn).StoreChunk(cctx, &rpcwire.Chunk{
		ChunkID:        loc.ChunkID,
		Data:           data,
		ReplicaNodeIDs: loc.ReplicaNodeIDs,
	})
	if err != nil {
		return status.Errorf(codes.Internal, "store chunk %s on %s: %v", loc.ChunkID, loc.PrimaryNodeID, err)
	}
	if !resp.Success {
		return status.Errorf(codes.Internal, "store chunk %s on %s: %s", loc.ChunkID, loc.PrimaryNodeID, resp.Message)
	}
	return nil
}

// DownloadFile looks the file up, then streams its chunks back in index
// order. Each chunk is fetched from its primary first, then each replica in
// listed order; the stream fails only when every holder of some chunk is
// unreachable.
func (s *Service) DownloadFile(in *rpcwire.FileRequest, stream rpcwire.GatewayDownloadFileServer) error {
	ctx := stream.Context()
	meta, err := s.metadataClient()
	if err != nil {
		return status.Errorf(codes.Internal, "dial metadata: %v", err)
	}
	lctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	plan, err := meta.GetFileLocation(lctx, &rpcwire.FileRequest{Filename: in.Filename})
	cancel()
	if err != nil {
		return err
	}

	locations := slices.Clone(plan.Locations)
	slices.SortFunc(locations, func(a, b rpcwire.ChunkLocation) int {
		return int(a.ChunkIndex) - int(b.ChunkIndex)
	})

	for i, loc := range locations {
		data, err := s.fetchChunk(ctx, loc)
		if err != nil {
			return err
		}
		if err := stream.Send(&rpcwire.ChunkDownloadResponse{
			Data:         data,
			IsFinalChunk: i == len(locations)-1,
		}); err != nil {
			return err
		}
	}
	s.logger.Info("downloaded file", "path", in.Filename, "chunks", len(locations))
	return nil
}

// fetchChunk tries the primary, then each replica, each with its own
// deadline. A failed or timed-out attempt just moves on to the next node.
func (s *Service) fetchChunk(ctx context.Context, loc rpcwire.ChunkLocation) ([]byte, error) {
	candidates := append([]string{loc.PrimaryNodeID}, loc.ReplicaNodeIDs...)
	for _, addr := range candidates {
		conn, err := s.conns.Conn(addr)
		if err != nil {
			s.logger.Warn("chunk fetch dial failed", "chunk", loc.ChunkID, "node", addr, "error", err)
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		chunk, err := rpcwire.NewStorageServiceClient(conn).RetrieveChunk(cctx, &rpcwire.ChunkRequest{ChunkID: loc.ChunkID})
		cancel()
		if err != nil {
			s.logger.Warn("chunk fetch failed", "chunk", loc.ChunkID, "node", addr, "error", err)
			continue
		}
		return chunk.Data, nil
	}
	return nil, status.Errorf(codes.Internal, "chunk %s: all %d nodes failed", loc.ChunkID, len(candidates))
}

// ListFiles passes through to the metadata service.
func (s *Service) ListFiles(ctx context.Context, in *rpcwire.PathRequest) (*rpcwire.FileListResponse, error) {
	meta, err := s.metadataClient()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "dial metadata: %v", err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()
	return meta.ListFiles(cctx, in)
}

// RemoveFile passes through to the metadata service, folding its per-chunk
// accounting into a human-readable message. An unknown file maps to
// success=false rather than an error.
func (s *Service) RemoveFile(ctx context.Context, in *rpcwire.FileRequest) (*rpcwire.SimpleResponse, error) {
	meta, err := s.metadataClient()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "dial metadata: %v", err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()
	resp, err := meta.RemoveFile(cctx, in)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &rpcwire.SimpleResponse{
				Success: false,
				Message: fmt.Sprintf("file %q not found", in.Filename),
			}, nil
		}
		return nil, err
	}
	return &rpcwire.SimpleResponse{
		Success: resp.Success,
		Message: fmt.Sprintf("removed %q: %d chunks deleted, %d failed", in.Filename, len(resp.RemovedChunks), len(resp.FailedChunks)),
	}, nil
}
