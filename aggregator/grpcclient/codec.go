// Package grpcclient implements the gRPC transport behind the aggregator's
// AuthorityClient interface: a msgpack wire codec, a lazily-dialing
// connection manager and the per-authority client itself.
package grpcclient

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v4"
	"google.golang.org/grpc/encoding"
)

// CodecName identifies the msgpack codec in gRPC content-type negotiation.
const CodecName = "aurelia-msgpack"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec is a gRPC codec over msgpack. The authority API uses hand-defined Go
// structs rather than protobuf-generated types; msgpack matches the encoding
// already used for content addressing, so wire bytes and digest bytes come
// from the same serializer.
type Codec struct{}

// Name returns the codec's registered name.
func (Codec) Name() string {
	return CodecName
}

// Marshal serializes the message with msgpack.
func (Codec) Marshal(v interface{}) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes the message with msgpack.
func (Codec) Unmarshal(data []byte, v interface{}) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("msgpack unmarshal: %w", err)
	}
	return nil
}
