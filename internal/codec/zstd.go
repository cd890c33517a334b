package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Zstd compresses the output of another codec. Model artifacts tend to be
// large and compress well.
type Zstd struct {
	inner   Codec
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstd wraps inner with zstd compression. EncodeAll and DecodeAll are safe
// for concurrent use, so one encoder/decoder pair serves the codec.
func NewZstd(inner Codec) (*Zstd, error) {
	if inner == nil {
		inner = Default
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}

	return &Zstd{inner: inner, encoder: encoder, decoder: decoder}, nil
}

// Marshal encodes with the inner codec and compresses the result.
func (z *Zstd) Marshal(v any) ([]byte, error) {
	raw, err := z.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return z.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Unmarshal decompresses data and decodes it with the inner codec.
func (z *Zstd) Unmarshal(data []byte, v any) error {
	raw, err := z.decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	return z.inner.Unmarshal(raw, v)
}

// Name returns the inner codec name with a "+zstd" suffix.
func (z *Zstd) Name() string { return z.inner.Name() + "+zstd" }

// Close stops the encoder and decoder workers. The codec must not be used
// afterwards.
func (z *Zstd) Close() error {
	z.decoder.Close()
	return z.encoder.Close()
}
