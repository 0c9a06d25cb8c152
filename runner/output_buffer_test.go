package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(5)
	_, _ = b.Write([]byte("abc"))
	assert.Equal(t, "abc", string(b.Bytes()))
	assert.False(t, b.Truncated())

	_, _ = b.Write([]byte("defg"))
	assert.Equal(t, "cdefg", string(b.Bytes()))
	assert.True(t, b.Truncated())
}

func TestTailBufferDefaultSize(t *testing.T) {
	b := newTailBuffer(0)
	assert.Equal(t, DefaultOutputTailBytes, b.maxBytes)
}
