package draftv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// DraftServiceClient is the client API for draft.v1.DraftService.
type DraftServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDraftServiceClient(cc grpc.ClientConnInterface) *DraftServiceClient {
	return &DraftServiceClient{cc: cc}
}

func (c *DraftServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DraftServiceClient) InitializeDraft(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, DraftService_InitializeDraft_FullMethodName, in, opts...)
}

func (c *DraftServiceClient) UpdateField(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, DraftService_UpdateField_FullMethodName, in, opts...)
}

func (c *DraftServiceClient) Flush(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, DraftService_Flush_FullMethodName, in, opts...)
}

func (c *DraftServiceClient) GoToStep(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, DraftService_GoToStep_FullMethodName, in, opts...)
}

func (c *DraftServiceClient) GetStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, DraftService_GetStatus_FullMethodName, in, opts...)
}

func (c *DraftServiceClient) GetDraft(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, DraftService_GetDraft_FullMethodName, in, opts...)
}

func (c *DraftServiceClient) ClearDraft(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, DraftService_ClearDraft_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// DraftService_WatchStatusClient is the client side of the WatchStatus stream.
type DraftService_WatchStatusClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type draftServiceWatchStatusClient struct {
	grpc.ClientStream
}

func (x *draftServiceWatchStatusClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *DraftServiceClient) WatchStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (DraftService_WatchStatusClient, error) {
	stream, err := c.cc.NewStream(ctx, &DraftService_ServiceDesc.Streams[0], DraftService_WatchStatus_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &draftServiceWatchStatusClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
