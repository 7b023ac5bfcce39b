package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype clients select with
// grpc.CallContentSubtype.
const CodecName = "json"

// jsonCodec carries plain Go structs over gRPC.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

// Codec returns the codec servers should force so that callers without a
// content subtype are understood too.
func Codec() encoding.Codec {
	return jsonCodec{}
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
