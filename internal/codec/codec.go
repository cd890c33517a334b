// Package codec turns cached values into bytes and back.
//
// A cache binds exactly one codec for its whole lifetime; entries written with
// one codec are not readable with another.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured. Gob handles arbitrary Go
// values, including ones with no sensible text form.
var Default Codec = Gob{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "", "gob":
		return Gob{}, true
	case "json":
		return JSON{}, true
	default:
		return nil, false
	}
}

// Resolve returns the named codec, wrapped with compression when requested.
// compression is "", "none" or "zstd".
func Resolve(name, compression string) (Codec, error) {
	c, ok := ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", name)
	}

	switch compression {
	case "", "none":
		return c, nil
	case "zstd":
		return NewZstd(c)
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}
