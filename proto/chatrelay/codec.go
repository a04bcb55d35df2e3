package chatrelay

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the only content subtype the service understands. Callers
// must send application/grpc+json, the client in this package does it.
const CodecName = "json"

type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (Codec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(Codec{})
}
