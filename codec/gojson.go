package codec

import (
	"io"

	gojson "github.com/goccy/go-json"
)

// GoJSON writes one JSON document per Encode using github.com/goccy/go-json.
type GoJSON struct{}

func (GoJSON) Name() string { return "go-json" }

func (GoJSON) Encode(w io.Writer, v any) error {
	return gojson.NewEncoder(w).Encode(v)
}

func (GoJSON) Decode(r io.Reader, v any) error {
	return gojson.NewDecoder(r).Decode(v)
}
