package codec

import gojson "github.com/goccy/go-json"

// JSON is a JSON codec backed by github.com/goccy/go-json.
//
// Portable and human readable, but only for values with a JSON form.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Name returns "json".
func (JSON) Name() string { return "json" }
