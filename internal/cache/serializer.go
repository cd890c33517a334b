package cache

import (
	"fmt"
	"io"

	"artifact-cache/internal/codec"
	"artifact-cache/internal/common/errors"
)

// Serializer converts values to bytes and back with one codec for its whole
// lifetime. Codec failures are returned as SerializationError.
type Serializer struct {
	codec codec.Codec
}

// NewSerializer binds c; nil selects codec.Default
func NewSerializer(c codec.Codec) *Serializer {
	if c == nil {
		c = codec.Default
	}
	return &Serializer{codec: c}
}

// Codec returns the name of the bound codec
func (s *Serializer) Codec() string {
	return s.codec.Name()
}

// Serialize encodes v
func (s *Serializer) Serialize(v any) ([]byte, error) {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return nil, errors.SerializationError(fmt.Sprintf("%s encode failed", s.codec.Name()), err)
	}
	return data, nil
}

// Deserialize decodes data into dest, which must be a non-nil pointer
func (s *Serializer) Deserialize(data []byte, dest any) error {
	if err := s.codec.Unmarshal(data, dest); err != nil {
		return errors.SerializationError(fmt.Sprintf("%s decode failed", s.codec.Name()), err)
	}
	return nil
}

// Close releases resources held by the codec, such as compression workers.
// The serializer must not be used afterwards.
func (s *Serializer) Close() error {
	if c, ok := s.codec.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
