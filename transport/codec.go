// Package transport owns the gRPC channel to the generation service:
// credentials, message-size limits, the wire codec, and thin wrappers
// around the service's remote operations.
//
// The service schema ships no generated bindings, so calls are issued by
// full method name with a JSON codec registered under a content subtype.
package transport

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the registered content subtype used for every call.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

// Marshal serializes a message with the channel's wire codec. Used for
// persisting raw artifact messages exactly as they travel on the wire.
func Marshal(v any) ([]byte, error) {
	return jsonCodec{}.Marshal(v)
}
