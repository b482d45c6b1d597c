/*
file: lucidkv/internal/cluster/bus/client.go

Client is a thin wrapper over one grpc.ClientConn to a peer's bus
server, used by cluster.Migration's KeyMover (streaming MoveKeys); it
also exposes the unary Ping call, which no command handler uses.
*/
package bus

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a peer's bus server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("bus: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {
	resp := new(PingResponse)
	method := fmt.Sprintf("/%s/Ping", serviceName)
	if err := c.conn.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) RequestPull(ctx context.Context, req *RequestPullRequest) (*RequestPullResponse, error) {
	resp := new(RequestPullResponse)
	method := fmt.Sprintf("/%s/RequestPull", serviceName)
	if err := c.conn.Invoke(ctx, method, req, resp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}

// MoveKeys streams a slot's keys from the peer, invoking onBatch for
// each item received, and returns the final move count.
func (c *Client) MoveKeys(ctx context.Context, req *MoveKeysRequest, onBatch func(*KeyBatch) error) (*MoveKeysResponse, error) {
	desc := &grpc.StreamDesc{StreamName: "MoveKeys", ServerStreams: true}
	method := fmt.Sprintf("/%s/MoveKeys", serviceName)
	stream, err := c.conn.NewStream(ctx, desc, method, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, fmt.Errorf("bus: open move-keys stream: %w", err)
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, fmt.Errorf("bus: send move-keys request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("bus: close move-keys send: %w", err)
	}

	for {
		frame := new(MoveKeysFrame)
		if err := stream.RecvMsg(frame); err != nil {
			return nil, fmt.Errorf("bus: move-keys stream ended without a final frame: %w", err)
		}
		if frame.Final != nil {
			return frame.Final, nil
		}
		if frame.Batch != nil {
			if err := onBatch(frame.Batch); err != nil {
				return nil, err
			}
		}
	}
}
