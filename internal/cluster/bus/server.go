/*
file: lucidkv/internal/cluster/bus/server.go

Server exposes one node's Handler over the cluster bus, grounded on
cuemby-warren's pkg/api.Server (grpc.NewServer + Serve(listener)), minus
the mTLS machinery -- the bus assumes it runs inside a trusted cluster
network, the same boundary spec.md draws around cluster mode generally.
*/
package bus

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Server struct {
	grpc *grpc.Server
}

// NewServer wires handler into a grpc.Server as the sole cluster bus
// service.
func NewServer(handler Handler) *Server {
	s := grpc.NewServer()
	s.RegisterService(&serviceDesc, handler)
	return &Server{grpc: s}
}

// Serve blocks accepting bus connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop stops the bus server, dropping in-flight RPCs.
func (s *Server) Stop() { s.grpc.Stop() }

// GracefulStop waits for in-flight RPCs to finish before returning.
func (s *Server) GracefulStop() { s.grpc.GracefulStop() }
