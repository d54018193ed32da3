package rpcwire

import (
	"context"

	"google.golang.org/grpc"
)

const (
	metadataRegisterNodeMethod    = "/bigfs.MetadataService/RegisterNode"
	metadataGetWritePlanMethod    = "/bigfs.MetadataService/GetWritePlan"
	metadataGetFileLocationMethod = "/bigfs.MetadataService/GetFileLocation"
	metadataListFilesMethod       = "/bigfs.MetadataService/ListFiles"
	metadataRemoveFileMethod      = "/bigfs.MetadataService/RemoveFile"
)

// MetadataServiceServer is the handler interface for the metadata service.
type MetadataServiceServer interface {
	RegisterNode(context.Context, *NodeInfo) (*SimpleResponse, error)
	GetWritePlan(context.Context, *FileRequest) (*FileLocationResponse, error)
	GetFileLocation(context.Context, *FileRequest) (*FileLocationResponse, error)
	ListFiles(context.Context, *PathRequest) (*FileListResponse, error)
	RemoveFile(context.Context, *FileRequest) (*RemoveFileResponse, error)
}

// RegisterMetadataServiceServer registers srv on a gRPC server.
func RegisterMetadataServiceServer(s grpc.ServiceRegistrar, srv MetadataServiceServer) {
	s.RegisterService(&metadataServiceDesc, srv)
}

var metadataServiceDesc = grpc.ServiceDesc{
	ServiceName: "bigfs.MetadataService",
	HandlerType: (*MetadataServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterNode", Handler: metadataRegisterNodeHandler},
		{MethodName: "GetWritePlan", Handler: metadataGetWritePlanHandler},
		{MethodName: "GetFileLocation", Handler: metadataGetFileLocationHandler},
		{MethodName: "ListFiles", Handler: metadataListFilesHandler},
		{MethodName: "RemoveFile", Handler: metadataRemoveFileHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func metadataRegisterNodeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(NodeInfo)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MetadataServiceServer).RegisterNode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: metadataRegisterNodeMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MetadataServiceServer).RegisterNode(ctx, req.(*NodeInfo))
	})
}

func metadataGetWritePlanHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MetadataServiceServer).GetWritePlan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: metadataGetWritePlanMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MetadataServiceServer).GetWritePlan(ctx, req.(*FileRequest))
	})
}

func metadataGetFileLocationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MetadataServiceServer).GetFileLocation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: metadataGetFileLocationMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MetadataServiceServer).GetFileLocation(ctx, req.(*FileRequest))
	})
}

func metadataListFilesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PathRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MetadataServiceServer).ListFiles(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: metadataListFilesMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MetadataServiceServer).ListFiles(ctx, req.(*PathRequest))
	})
}

func metadataRemoveFileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MetadataServiceServer).RemoveFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: metadataRemoveFileMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(MetadataServiceServer).RemoveFile(ctx, req.(*FileRequest))
	})
}

// MetadataServiceClient is the client stub for the metadata service.
type MetadataServiceClient interface {
	RegisterNode(ctx context.Context, in *NodeInfo, opts ...grpc.CallOption) (*SimpleResponse, error)
	GetWritePlan(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*FileLocationResponse, error)
	GetFileLocation(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*FileLocationResponse, error)
	ListFiles(ctx context.Context, in *PathRequest, opts ...grpc.CallOption) (*FileListResponse, error)
	RemoveFile(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*RemoveFileResponse, error)
}

type metadataServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMetadataServiceClient creates a metadata client on an existing
// connection.
func NewMetadataServiceClient(cc grpc.ClientConnInterface) MetadataServiceClient {
	return &metadataServiceClient{cc: cc}
}

func (c *metadataServiceClient) RegisterNode(ctx context.Context, in *NodeInfo, opts ...grpc.CallOption) (*SimpleResponse, error) {
	out := new(SimpleResponse)
	if err := c.cc.Invoke(ctx, metadataRegisterNodeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *metadataServiceClient) GetWritePlan(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*FileLocationResponse, error) {
	out := new(FileLocationResponse)
	if err := c.cc.Invoke(ctx, metadataGetWritePlanMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *metadataServiceClient) GetFileLocation(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*FileLocationResponse, error) {
	out := new(FileLocationResponse)
	if err := c.cc.Invoke(ctx, metadataGetFileLocationMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *metadataServiceClient) ListFiles(ctx context.Context, in *PathRequest, opts ...grpc.CallOption) (*FileListResponse, error) {
	out := new(FileListResponse)
	if err := c.cc.Invoke(ctx, metadataListFilesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *metadataServiceClient) RemoveFile(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*RemoveFileResponse, error) {
	out := new(RemoveFileResponse)
	if err := c.cc.Invoke(ctx, metadataRemoveFileMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
