package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/abdhe/studyhub-assist/pkg/config"
	"github.com/abdhe/studyhub-assist/pkg/pdftext"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "studyhub.assist.v1.AssistService"

// Full method names, usable with grpc.ClientConn.Invoke.
const (
	MethodSummarize       = "/" + ServiceName + "/Summarize"
	MethodExplain         = "/" + ServiceName + "/Explain"
	MethodCheckConnection = "/" + ServiceName + "/CheckConnection"
)

// AssistServer is the gRPC surface. Messages are google.protobuf.Struct:
//
//	Summarize       {text | pdf, max_length, min_length} -> {summary, cached, request_id}
//	Explain         {text} -> {explanation, key_terms, related_questions, request_id}
//	CheckConnection {} -> {ok, message}
//
// Struct has no bytes kind, so pdf carries the document base64-encoded, the
// same form structpb.NewValue gives a []byte.
type AssistServer interface {
	Summarize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Explain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckConnection(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// GRPCHandler implements AssistServer on top of a Service.
type GRPCHandler struct {
	svc *Service
}

// NewGRPCHandler creates a gRPC handler.
func NewGRPCHandler(svc *Service) *GRPCHandler {
	return &GRPCHandler{svc: svc}
}

// Register adds the assist service to s.
func Register(s *grpc.Server, srv AssistServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Summarize handles a summary request.
func (h *GRPCHandler) Summarize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := in.GetFields()
	maxLength := int(f["max_length"].GetNumberValue())
	minLength := int(f["min_length"].GetNumberValue())

	var (
		res SummaryResult
		err error
	)
	if encoded := f["pdf"].GetStringValue(); encoded != "" {
		document, decodeErr := base64.StdEncoding.DecodeString(encoded)
		if decodeErr != nil {
			return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("pdf: invalid base64: %v", decodeErr))
		}
		res, err = h.svc.SummarizePDF(ctx, document, maxLength, minLength)
	} else {
		res, err = h.svc.Summarize(ctx, f["text"].GetStringValue(), maxLength, minLength)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"summary":    res.Summary,
		"cached":     res.Cached,
		"request_id": res.RequestID,
	})
}

// Explain handles an explanation request.
func (h *GRPCHandler) Explain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	res, err := h.svc.Explain(ctx, in.GetFields()["text"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"explanation":       res.Text,
		"key_terms":         toList(res.KeyTerms),
		"related_questions": toList(res.RelatedQuestions),
		"request_id":        res.RequestID,
	})
}

// CheckConnection handles a connectivity probe.
func (h *GRPCHandler) CheckConnection(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	ok, msg := h.svc.CheckConnection(ctx)
	return structpb.NewStruct(map[string]any{"ok": ok, "message": msg})
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrNoText), errors.Is(err, ErrNoPDF),
		errors.Is(err, pdftext.ErrNoText), errors.Is(err, pdftext.ErrUnreadable):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, config.ErrMissing):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func toList(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

// ---------------------------------------------------------------------------
// Service descriptor
// ---------------------------------------------------------------------------

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssistServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Summarize", Handler: unaryHandler(MethodSummarize, AssistServer.Summarize)},
		{MethodName: "Explain", Handler: unaryHandler(MethodExplain, AssistServer.Explain)},
		{MethodName: "CheckConnection", Handler: unaryHandler(MethodCheckConnection, AssistServer.CheckConnection)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "studyhub/assist/v1/assist.proto",
}

type unaryMethod func(AssistServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AssistServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AssistServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
