package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service is described by hand over well-known types, so no generated
// stubs are needed:
//
//	service Extraction {
//	  rpc Extract(google.protobuf.BytesValue) returns (google.protobuf.Struct);
//	  rpc ExportRecent(google.protobuf.Int32Value) returns (google.protobuf.BytesValue);
//	}
const (
	ServiceName        = "invoice.v1.Extraction"
	ExtractMethod      = "/" + ServiceName + "/Extract"
	ExportRecentMethod = "/" + ServiceName + "/ExportRecent"
	MetadataFilename   = "x-filename"
	MetadataRequestID  = "x-request-id"
)

// ExtractionServer is the server API for invoice.v1.Extraction.
type ExtractionServer interface {
	Extract(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error)
	ExportRecent(ctx context.Context, in *wrapperspb.Int32Value) (*wrapperspb.BytesValue, error)
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
		{MethodName: "ExportRecent", Handler: exportRecentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "invoice/v1/extraction.proto",
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).Extract(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func exportRecentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int32Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).ExportRecent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExportRecentMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).ExportRecent(ctx, req.(*wrapperspb.Int32Value))
	}
	return interceptor(ctx, in, info, handler)
}

// Client is a thin caller for invoice.v1.Extraction.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Extract(ctx context.Context, data []byte, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExtractMethod, wrapperspb.Bytes(data), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ExportRecent(ctx context.Context, limit int32, opts ...grpc.CallOption) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, ExportRecentMethod, wrapperspb.Int32(limit), out, opts...); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}
