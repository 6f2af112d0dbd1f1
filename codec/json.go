package codec

import (
	"encoding/json"
	"io"
)

// JSON is GoJSON's encoding/json twin. Both produce identical documents.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func (JSON) Decode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
