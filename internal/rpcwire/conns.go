package rpcwire

import (
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Conns manages a shared pool of gRPC connections to cluster peers. All
// components of a process (gateway handlers, metadata delete fan-out,
// storage replication) share a single Conns so that traffic to each peer is
// multiplexed over one connection.
type Conns struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewConns creates an empty connection pool.
func NewConns() *Conns {
	return &Conns{conns: make(map[string]*grpc.ClientConn)}
}

// Conn returns a cached or newly dialed gRPC connection for the given
// address. Connections use the msgpack codec for every call.
func (p *Conns) Conn(addr string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.conns[addr]; ok {
		return conn, nil
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	p.conns[addr] = conn
	return conn, nil
}

// Invalidate closes and removes the cached connection for an address,
// forcing a fresh dial on the next Conn call.
func (p *Conns) Invalidate(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[addr]; ok {
		_ = conn.Close()
		delete(p.conns, addr)
	}
}

// Close tears down all cached connections.
func (p *Conns) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, conn := range p.conns {
		_ = conn.Close()
		delete(p.conns, addr)
	}
	return nil
}
