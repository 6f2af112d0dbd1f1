// Package codec encodes the machine-readable output of hnswctl.
package codec

import (
	"fmt"
	"io"
	"sort"
)

// Codec streams values to and from a wire format.
// Implementations are stateless and safe for concurrent use.
type Codec interface {
	Name() string
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

var registry = map[string]Codec{
	"json":    JSON{},
	"go-json": GoJSON{},
}

// ByName looks up a codec. Names are the values accepted by --output.
func ByName(name string) (Codec, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("codec: unknown codec %q (have %v)", name, Names())
	}
	return c, nil
}

// Names lists the registered codecs in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the codec used when none is named.
var Default Codec = GoJSON{}
