package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Check value of the Castagnoli polynomial.
	assert.Equal(t, uint32(0xE3069283), CRC32C([]byte("123456789")))
	assert.Equal(t, uint32(0), CRC32C(nil))
}

func TestDigest(t *testing.T) {
	var d Digest
	assert.Equal(t, uint32(0), d.Sum32())

	for _, chunk := range []string{"1", "2345", "", "6789"} {
		n, err := d.Write([]byte(chunk))
		assert.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}
	assert.Equal(t, CRC32C([]byte("123456789")), d.Sum32())
	assert.Equal(t, int64(9), d.Len())

	d.Reset()
	assert.Equal(t, int64(0), d.Len())
	assert.Equal(t, uint32(0), d.Sum32())
}
