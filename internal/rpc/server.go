// Package rpc exposes TinyWhale's compiler as a dynamic unary gRPC service,
// the "Compile" path of SPEC_FULL.md's remote-compilation surface. Like the
// teacher's Funxy gRPC builtins, the service contract is parsed at startup
// from a .proto source rather than generated stub code, and requests and
// responses travel as dynamic.Message values addressed by field name.
package rpc

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
)

// Server wraps a *grpc.Server with CompileService already registered.
type Server struct {
	grpcServer *grpc.Server
}

// NewServer parses the embedded CompileService contract and registers a
// CompileHandler against it, following the teacher's builtinGrpcRegister
// loop: one grpc.MethodDesc per non-streaming method descriptor, each
// dispatching to the same handler's HandleUnary.
func NewServer() (*Server, error) {
	sd, err := loadServiceDescriptor()
	if err != nil {
		return nil, err
	}

	handler := &CompileHandler{SD: sd}

	serviceDesc := &grpc.ServiceDesc{
		ServiceName: sd.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Methods:     []grpc.MethodDesc{},
		Streams:     []grpc.StreamDesc{},
		Metadata:    sd.GetFile().GetName(),
	}

	for _, method := range sd.GetMethods() {
		if method.IsClientStreaming() || method.IsServerStreaming() {
			continue
		}
		md := method
		serviceDesc.Methods = append(serviceDesc.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				h := srv.(*CompileHandler)
				return h.HandleUnary(ctx, md, dec)
			},
		})
	}

	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(serviceDesc, handler)

	return &Server{grpcServer: grpcServer}, nil
}

// Serve blocks, accepting connections on addr until the listener fails or
// the server is stopped.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.grpcServer.Serve(lis)
}

// Stop gracefully drains in-flight RPCs before shutting the server down.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
