// Package client is a thin facade over the gateway's RPC surface, consumed
// by the interactive shell and the benchmark harness. It also carries an
// alternate download path that bypasses the gateway and fetches chunks from
// storage nodes directly, in parallel.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/Wender13/BigFS/internal/logging"
	"github.com/Wender13/BigFS/internal/rpcwire"
	"golang.org/x/sync/errgroup"
)

// uploadFrameSize is how many bytes each upload stream message carries.
const uploadFrameSize = 64 << 10 // 64 KiB

// directFetchParallelism bounds concurrent chunk fetches on the
// gateway-bypassing download path.
const directFetchParallelism = 10

// Config carries the client's endpoints.
type Config struct {
	// GatewayAddr is the gateway service address.
	GatewayAddr string

	// MetadataAddr is optional; it enables DownloadDirect, which resolves
	// chunk locations itself instead of going through the gateway.
	MetadataAddr string

	Logger *slog.Logger
}

// Client is a BigFS client.
type Client struct {
	gatewayAddr  string
	metadataAddr string
	logger       *slog.Logger
	conns        *rpcwire.Conns
}

// New creates a client. The gateway is dialed lazily on first use.
func New(cfg Config) *Client {
	return &Client{
		gatewayAddr:  cfg.GatewayAddr,
		metadataAddr: cfg.MetadataAddr,
		logger:       logging.Default(cfg.Logger).With("component", "client"),
		conns:        rpcwire.NewConns(),
	}
}

// Close releases all connections.
func (c *Client) Close() error {
	return c.conns.Close()
}

func (c *Client) gateway() (rpcwire.GatewayServiceClient, error) {
	conn, err := c.conns.Conn(c.gatewayAddr)
	if err != nil {
		return nil, err
	}
	return rpcwire.NewGatewayServiceClient(conn), nil
}

// Upload streams a local file to the gateway under the given remote path.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.UploadReader(ctx, f, remotePath)
}

// UploadReader streams r to the gateway under the given remote path.
func (c *Client) UploadReader(ctx context.Context, r io.Reader, remotePath string) error {
	gw, err := c.gateway()
	if err != nil {
		return err
	}
	stream, err := gw.UploadFile(ctx)
	if err != nil {
		return fmt.Errorf("open upload stream: %w", err)
	}
	if err := stream.Send(&rpcwire.ChunkUploadRequest{
		Metadata: &rpcwire.FileMetadata{RemotePath: remotePath},
	}); err != nil {
		return fmt.Errorf("send upload metadata: %w", err)
	}

	buf := make([]byte, uploadFrameSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if err := stream.Send(&rpcwire.ChunkUploadRequest{Data: buf[:n]}); err != nil {
				return fmt.Errorf("send upload data: %w", err)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read upload source: %w", err)
		}
	}

	resp, err := stream.CloseAndRecv()
	if err != nil {
		return fmt.Errorf("upload %q: %w", remotePath, err)
	}
	if !resp.Success {
		return fmt.Errorf("upload %q: %s", remotePath, resp.Message)
	}
	return nil
}

// Download streams a file from the gateway into w.
func (c *Client) Download(ctx context.Context, remotePath string, w io.Writer) error {
	gw, err := c.gateway()
	if err != nil {
		return err
	}
	stream, err := gw.DownloadFile(ctx, &rpcwire.FileRequest{Filename: remotePath})
	if err != nil {
		return fmt.Errorf("open download stream: %w", err)
	}
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("download %q: %w", remotePath, err)
		}
		if _, err := w.Write(msg.Data); err != nil {
			return fmt.Errorf("write download: %w", err)
		}
		if msg.IsFinalChunk {
			return nil
		}
	}
}

// DownloadDirect resolves the file's chunk locations from the metadata
// service and fetches chunks from storage nodes directly, up to
// directFetchParallelism at a time, falling back to replicas per chunk.
// Chunks are written to w in index order once all fetches complete.
func (c *Client) DownloadDirect(ctx context.Context, remotePath string, w io.Writer) error {
	if c.metadataAddr == "" {
		return errors.New("direct download requires a metadata address")
	}
	conn, err := c.conns.Conn(c.metadataAddr)
	if err != nil {
		return err
	}
	plan, err := rpcwire.NewMetadataServiceClient(conn).GetFileLocation(ctx, &rpcwire.FileRequest{Filename: remotePath})
	if err != nil {
		return fmt.Errorf("locate %q: %w", remotePath, err)
	}

	locations := slices.Clone(plan.Locations)
	slices.SortFunc(locations, func(a, b rpcwire.ChunkLocation) int {
		return int(a.ChunkIndex) - int(b.ChunkIndex)
	})

	chunks := make([][]byte, len(locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(directFetchParallelism)
	for i, loc := range locations {
		g.Go(func() error {
			data, err := c.fetchChunk(gctx, loc)
			if err != nil {
				return err
			}
			chunks[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("download %q: %w", remotePath, err)
	}

	for _, data := range chunks {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write download: %w", err)
		}
	}
	return nil
}

// fetchChunk tries the primary, then each replica in listed order.
func (c *Client) fetchChunk(ctx context.Context, loc rpcwire.ChunkLocation) ([]byte, error) {
	candidates := append([]string{loc.PrimaryNodeID}, loc.ReplicaNodeIDs...)
	for _, addr := range candidates {
		conn, err := c.conns.Conn(addr)
		if err != nil {
			c.logger.Warn("chunk fetch dial failed", "chunk", loc.ChunkID, "node", addr, "error", err)
			continue
		}
		chunk, err := rpcwire.NewStorageServiceClient(conn).RetrieveChunk(ctx, &rpcwire.ChunkRequest{ChunkID: loc.ChunkID})
		if err != nil {
			c.logger.Warn("chunk fetch failed", "chunk", loc.ChunkID, "node", addr, "error", err)
			continue
		}
		return chunk.Data, nil
	}
	return nil, fmt.Errorf("chunk %s: all %d nodes failed", loc.ChunkID, len(candidates))
}

// List returns the files known to the cluster.
func (c *Client) List(ctx context.Context, path string) ([]rpcwire.FileInfo, error) {
	gw, err := c.gateway()
	if err != nil {
		return nil, err
	}
	resp, err := gw.ListFiles(ctx, &rpcwire.PathRequest{Path: path})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return resp.Files, nil
}

// Remove deletes a file from the cluster.
func (c *Client) Remove(ctx context.Context, remotePath string) (*rpcwire.SimpleResponse, error) {
	gw, err := c.gateway()
	if err != nil {
		return nil, err
	}
	resp, err := gw.RemoveFile(ctx, &rpcwire.FileRequest{Filename: remotePath})
	if err != nil {
		return nil, fmt.Errorf("remove %q: %w", remotePath, err)
	}
	return resp, nil
}
