package talentq

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Codec defines the interface for job payload and record serialization.
type Codec interface {
	// Encode serializes a value to bytes.
	Encode(any) ([]byte, error)
	// Decode deserializes bytes into a value.
	Decode([]byte, any) error
}

// JSONCodec is the default Codec. It encodes with the standard library and
// decodes with sonic, which dominates on the read-heavy polling path.
type JSONCodec struct{}

// Encode serializes a value to JSON using the standard library.
func (*JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode deserializes JSON bytes using sonic.
func (*JSONCodec) Decode(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}
