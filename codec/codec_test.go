package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type neighbor struct {
	Label    uint64  `json:"label"`
	Distance float32 `json:"distance"`
}

func TestCodecs(t *testing.T) {
	in := []neighbor{{Label: 1, Distance: 0}, {Label: 3, Distance: 0.5}}

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, in))
			assert.JSONEq(t, `[{"label":1,"distance":0},{"label":3,"distance":0.5}]`, buf.String())
			assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))

			var out []neighbor
			require.NoError(t, c.Decode(&buf, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestByNameUnknown(t *testing.T) {
	assert.Equal(t, []string{"go-json", "json"}, Names())

	_, err := ByName("msgpack")
	assert.ErrorContains(t, err, `unknown codec "msgpack"`)
}
