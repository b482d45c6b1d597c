/*
file: lucidkv/internal/cluster/bus/codec.go

The cluster bus carries two kinds of traffic between nodes: inter-group
key migration batches (KeyMover) and the unary Ping call reporting a
node's id and led groups. Rather than checking in protoc-generated bindings for a
handful of messages, the bus registers a JSON grpc.Codec and defines
its service by hand with google.golang.org/grpc's low-level
grpc.ServiceDesc -- the same "just grpc for framing, no IDL" approach
api proxies use when the message shapes are simple and change often.
*/
package bus

import "encoding/json"

const jsonCodecName = "json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec over
// encoding/json, letting plain Go structs cross the wire without a
// .proto toolchain step.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string { return jsonCodecName }
