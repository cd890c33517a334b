package codec

import (
	"bytes"
	"encoding/gob"
)

// Gob is the encoding/gob codec.
//
// Values decode into the same concrete type they were encoded from. Interface
// typed fields need their concrete types registered with gob.Register.
type Gob struct{}

// Marshal encodes the value with gob.
func (Gob) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes gob data into v, which must be a pointer.
func (Gob) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Name returns "gob".
func (Gob) Name() string { return "gob" }
