package rpcwire

import (
	"context"

	"google.golang.org/grpc"
)

const (
	gatewayUploadFileMethod   = "/bigfs.GatewayService/UploadFile"
	gatewayDownloadFileMethod = "/bigfs.GatewayService/DownloadFile"
	gatewayListFilesMethod    = "/bigfs.GatewayService/ListFiles"
	gatewayRemoveFileMethod   = "/bigfs.GatewayService/RemoveFile"
)

// GatewayServiceServer is the handler interface for the gateway service.
type GatewayServiceServer interface {
	UploadFile(GatewayUploadFileServer) error
	DownloadFile(*FileRequest, GatewayDownloadFileServer) error
	ListFiles(context.Context, *PathRequest) (*FileListResponse, error)
	RemoveFile(context.Context, *FileRequest) (*SimpleResponse, error)
}

// GatewayUploadFileServer is the server view of the UploadFile
// client-stream.
type GatewayUploadFileServer interface {
	Recv() (*ChunkUploadRequest, error)
	SendAndClose(*SimpleResponse) error
	grpc.ServerStream
}

// GatewayDownloadFileServer is the server view of the DownloadFile
// server-stream.
type GatewayDownloadFileServer interface {
	Send(*ChunkDownloadResponse) error
	grpc.ServerStream
}

// RegisterGatewayServiceServer registers srv on a gRPC server.
func RegisterGatewayServiceServer(s grpc.ServiceRegistrar, srv GatewayServiceServer) {
	s.RegisterService(&gatewayServiceDesc, srv)
}

var gatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: "bigfs.GatewayService",
	HandlerType: (*GatewayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListFiles", Handler: gatewayListFilesHandler},
		{MethodName: "RemoveFile", Handler: gatewayRemoveFileHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "UploadFile", Handler: gatewayUploadFileHandler, ClientStreams: true},
		{StreamName: "DownloadFile", Handler: gatewayDownloadFileHandler, ServerStreams: true},
	},
}

func gatewayUploadFileHandler(srv any, stream grpc.ServerStream) error {
	return srv.(GatewayServiceServer).UploadFile(&gatewayUploadFileServer{stream})
}

type gatewayUploadFileServer struct {
	grpc.ServerStream
}

func (x *gatewayUploadFileServer) Recv() (*ChunkUploadRequest, error) {
	m := new(ChunkUploadRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (x *gatewayUploadFileServer) SendAndClose(m *SimpleResponse) error {
	return x.ServerStream.SendMsg(m)
}

func gatewayDownloadFileHandler(srv any, stream grpc.ServerStream) error {
	m := new(FileRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(GatewayServiceServer).DownloadFile(m, &gatewayDownloadFileServer{stream})
}

type gatewayDownloadFileServer struct {
	grpc.ServerStream
}

func (x *gatewayDownloadFileServer) Send(m *ChunkDownloadResponse) error {
	return x.ServerStream.SendMsg(m)
}

func gatewayListFilesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PathRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServiceServer).ListFiles(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: gatewayListFilesMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServiceServer).ListFiles(ctx, req.(*PathRequest))
	})
}

func gatewayRemoveFileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GatewayServiceServer).RemoveFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: gatewayRemoveFileMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(GatewayServiceServer).RemoveFile(ctx, req.(*FileRequest))
	})
}

// GatewayServiceClient is the client stub for the gateway service.
type GatewayServiceClient interface {
	UploadFile(ctx context.Context, opts ...grpc.CallOption) (GatewayUploadFileClient, error)
	DownloadFile(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (GatewayDownloadFileClient, error)
	ListFiles(ctx context.Context, in *PathRequest, opts ...grpc.CallOption) (*FileListResponse, error)
	RemoveFile(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*SimpleResponse, error)
}

// GatewayUploadFileClient is the client view of the UploadFile
// client-stream.
type GatewayUploadFileClient interface {
	Send(*ChunkUploadRequest) error
	CloseAndRecv() (*SimpleResponse, error)
	grpc.ClientStream
}

// GatewayDownloadFileClient is the client view of the DownloadFile
// server-stream.
type GatewayDownloadFileClient interface {
	Recv() (*ChunkDownloadResponse, error)
	grpc.ClientStream
}

type gatewayServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGatewayServiceClient creates a gateway client on an existing
// connection.
func NewGatewayServiceClient(cc grpc.ClientConnInterface) GatewayServiceClient {
	return &gatewayServiceClient{cc: cc}
}

func (c *gatewayServiceClient) UploadFile(ctx context.Context, opts ...grpc.CallOption) (GatewayUploadFileClient, error) {
	stream, err := c.cc.NewStream(ctx, &gatewayServiceDesc.Streams[0], gatewayUploadFileMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &gatewayUploadFileClient{stream}, nil
}

type gatewayUploadFileClient struct {
	grpc.ClientStream
}

func (x *gatewayUploadFileClient) Send(m *ChunkUploadRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *gatewayUploadFileClient) CloseAndRecv() (*SimpleResponse, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(SimpleResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *gatewayServiceClient) DownloadFile(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (GatewayDownloadFileClient, error) {
	stream, err := c.cc.NewStream(ctx, &gatewayServiceDesc.Streams[1], gatewayDownloadFileMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &gatewayDownloadFileClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type gatewayDownloadFileClient struct {
	grpc.ClientStream
}

func (x *gatewayDownloadFileClient) Recv() (*ChunkDownloadResponse, error) {
	m := new(ChunkDownloadResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *gatewayServiceClient) ListFiles(ctx context.Context, in *PathRequest, opts ...grpc.CallOption) (*FileListResponse, error) {
	out := new(FileListResponse)
	if err := c.cc.Invoke(ctx, gatewayListFilesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gatewayServiceClient) RemoveFile(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*SimpleResponse, error) {
	out := new(SimpleResponse)
	if err := c.cc.Invoke(ctx, gatewayRemoveFileMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
