package shadow

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Property bags are persisted as CBOR rather than JSON so integers survive
// a round trip as int64 instead of collapsing to float64.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Core Deterministic Encoding: same bag, same bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("shadow: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("shadow: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalProperties encodes a property bag. A nil bag encodes to nil so the
// column can stay NULL.
func MarshalProperties(p Properties) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := encMode.Marshal(map[string]any(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return data, nil
}

// UnmarshalProperties decodes a property bag written by MarshalProperties.
// Empty input decodes to nil. Nested maps come back as Properties.
func UnmarshalProperties(data []byte) (Properties, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw map[string]any
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	out, _ := normalize(raw).(Properties)
	return out, nil
}

// normalize converts decoded map[string]any values to Properties so type
// switches elsewhere only need to handle one spelling.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(Properties, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case Properties:
		out := make(Properties, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
