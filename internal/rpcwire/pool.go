package rpcwire

import (
	"context"

	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc"
)

// PoolUnaryInterceptor returns a server interceptor that bounds the number
// of unary handlers running concurrently. Excess requests wait until a slot
// frees up, or fail when their context is cancelled while waiting.
func PoolUnaryInterceptor(size int64) grpc.UnaryServerInterceptor {
	sem := semaphore.NewWeighted(size)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer sem.Release(1)
		return handler(ctx, req)
	}
}

// PoolStreamInterceptor is the streaming counterpart of
// PoolUnaryInterceptor. The slot is held for the lifetime of the stream.
func PoolStreamInterceptor(size int64) grpc.StreamServerInterceptor {
	sem := semaphore.NewWeighted(size)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := sem.Acquire(ss.Context(), 1); err != nil {
			return err
		}
		defer sem.Release(1)
		return handler(srv, ss)
	}
}

// NewServer builds a gRPC server whose handler dispatch is bounded by a
// worker pool of the given size.
func NewServer(poolSize int64) *grpc.Server {
	return grpc.NewServer(
		grpc.UnaryInterceptor(PoolUnaryInterceptor(poolSize)),
		grpc.StreamInterceptor(PoolStreamInterceptor(poolSize)),
	)
}
