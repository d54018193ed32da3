package rpcwire

import (
	"context"

	"google.golang.org/grpc"
)

const (
	storageStoreChunkMethod    = "/bigfs.StorageService/StoreChunk"
	storageRetrieveChunkMethod = "/bigfs.StorageService/RetrieveChunk"
	storageRemoveChunkMethod   = "/bigfs.StorageService/RemoveChunk"
)

// StorageServiceServer is the handler interface for a storage node.
type StorageServiceServer interface {
	StoreChunk(context.Context, *Chunk) (*SimpleResponse, error)
	RetrieveChunk(context.Context, *ChunkRequest) (*Chunk, error)
	RemoveChunk(context.Context, *ChunkRequest) (*SimpleResponse, error)
}

// RegisterStorageServiceServer registers srv on a gRPC server.
func RegisterStorageServiceServer(s grpc.ServiceRegistrar, srv StorageServiceServer) {
	s.RegisterService(&storageServiceDesc, srv)
}

var storageServiceDesc = grpc.ServiceDesc{
	ServiceName: "bigfs.StorageService",
	HandlerType: (*StorageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StoreChunk", Handler: storageStoreChunkHandler},
		{MethodName: "RetrieveChunk", Handler: storageRetrieveChunkHandler},
		{MethodName: "RemoveChunk", Handler: storageRemoveChunkHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func storageStoreChunkHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Chunk)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StorageServiceServer).StoreChunk(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: storageStoreChunkMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StorageServiceServer).StoreChunk(ctx, req.(*Chunk))
	})
}

func storageRetrieveChunkHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ChunkRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StorageServiceServer).RetrieveChunk(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: storageRetrieveChunkMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StorageServiceServer).RetrieveChunk(ctx, req.(*ChunkRequest))
	})
}

func storageRemoveChunkHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ChunkRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StorageServiceServer).RemoveChunk(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: storageRemoveChunkMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StorageServiceServer).RemoveChunk(ctx, req.(*ChunkRequest))
	})
}

// StorageServiceClient is the client stub for a storage node.
type StorageServiceClient interface {
	StoreChunk(ctx context.Context, in *Chunk, opts ...grpc.CallOption) (*SimpleResponse, error)
	RetrieveChunk(ctx context.Context, in *ChunkRequest, opts ...grpc.CallOption) (*Chunk, error)
	RemoveChunk(ctx context.Context, in *ChunkRequest, opts ...grpc.CallOption) (*SimpleResponse, error)
}

type storageServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewStorageServiceClient creates a storage client on an existing
// connection.
func NewStorageServiceClient(cc grpc.ClientConnInterface) StorageServiceClient {
	return &storageServiceClient{cc: cc}
}

func (c *storageServiceClient) StoreChunk(ctx context.Context, in *Chunk, opts ...grpc.CallOption) (*SimpleResponse, error) {
	out := new(SimpleResponse)
	if err := c.cc.Invoke(ctx, storageStoreChunkMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storageServiceClient) RetrieveChunk(ctx context.Context, in *ChunkRequest, opts ...grpc.CallOption) (*Chunk, error) {
	out := new(Chunk)
	if err := c.cc.Invoke(ctx, storageRetrieveChunkMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storageServiceClient) RemoveChunk(ctx context.Context, in *ChunkRequest, opts ...grpc.CallOption) (*SimpleResponse, error) {
	out := new(SimpleResponse)
	if err := c.cc.Invoke(ctx, storageRemoveChunkMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
