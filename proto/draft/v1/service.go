// Package draftv1 declares the draft.v1.DraftService gRPC service.
//
// Messages are google.protobuf.Struct values, so the service needs no
// generated message types. Request and reply keys:
//
//	InitializeDraft  {draft_id?}                  -> status
//	UpdateField      {draft_id, field, value}     -> status
//	Flush            {draft_id}                   -> status
//	GoToStep         {draft_id, step}             -> status
//	GetStatus        {draft_id}                   -> status
//	GetDraft         {draft_id}                   -> {draft_id, fields, updated_at}
//	ClearDraft       {draft_id, discard?}         -> google.protobuf.Empty
//	WatchStatus      {draft_id}                   -> stream of status events
//
// A status reply carries draft_id, status, retry_count, last_error,
// dirty_fields, saving, current_step and metrics.
package draftv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "draft.v1.DraftService"

const (
	DraftService_InitializeDraft_FullMethodName = "/" + ServiceName + "/InitializeDraft"
	DraftService_UpdateField_FullMethodName     = "/" + ServiceName + "/UpdateField"
	DraftService_Flush_FullMethodName           = "/" + ServiceName + "/Flush"
	DraftService_GoToStep_FullMethodName        = "/" + ServiceName + "/GoToStep"
	DraftService_GetStatus_FullMethodName       = "/" + ServiceName + "/GetStatus"
	DraftService_GetDraft_FullMethodName        = "/" + ServiceName + "/GetDraft"
	DraftService_ClearDraft_FullMethodName      = "/" + ServiceName + "/ClearDraft"
	DraftService_WatchStatus_FullMethodName     = "/" + ServiceName + "/WatchStatus"
)

// DraftServiceServer is the server API for draft.v1.DraftService.
type DraftServiceServer interface {
	InitializeDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateField(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Flush(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GoToStep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearDraft(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	WatchStatus(*structpb.Struct, DraftService_WatchStatusServer) error
}

// DraftService_WatchStatusServer is the server side of the WatchStatus stream.
type DraftService_WatchStatusServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type draftServiceWatchStatusServer struct {
	grpc.ServerStream
}

func (x *draftServiceWatchStatusServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterDraftServiceServer(s grpc.ServiceRegistrar, srv DraftServiceServer) {
	s.RegisterService(&DraftService_ServiceDesc, srv)
}

// structHandler adapts a unary method taking a Struct to a grpc.MethodHandler.
func structHandler[Resp any](fullMethod string, call func(DraftServiceServer, context.Context, *structpb.Struct) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DraftServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DraftServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchStatusHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DraftServiceServer).WatchStatus(in, &draftServiceWatchStatusServer{stream})
}

// DraftService_ServiceDesc is the grpc.ServiceDesc for draft.v1.DraftService.
var DraftService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DraftServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "InitializeDraft", Handler: structHandler(DraftService_InitializeDraft_FullMethodName, DraftServiceServer.InitializeDraft)},
		{MethodName: "UpdateField", Handler: structHandler(DraftService_UpdateField_FullMethodName, DraftServiceServer.UpdateField)},
		{MethodName: "Flush", Handler: structHandler(DraftService_Flush_FullMethodName, DraftServiceServer.Flush)},
		{MethodName: "GoToStep", Handler: structHandler(DraftService_GoToStep_FullMethodName, DraftServiceServer.GoToStep)},
		{MethodName: "GetStatus", Handler: structHandler(DraftService_GetStatus_FullMethodName, DraftServiceServer.GetStatus)},
		{MethodName: "GetDraft", Handler: structHandler(DraftService_GetDraft_FullMethodName, DraftServiceServer.GetDraft)},
		{MethodName: "ClearDraft", Handler: structHandler(DraftService_ClearDraft_FullMethodName, DraftServiceServer.ClearDraft)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchStatus",
			Handler:       watchStatusHandler,
			ServerStreams: true,
		},
	},
	Metadata: "draft/v1/draft.proto",
}
