package frame

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_PrefixIsBigEndianLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []byte("HELO")))

	assert.Equal(t, []byte{0, 0, 0, 4, 'H', 'E', 'L', 'O'}, buf.Bytes())
}

func TestReadWrite_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payloads := [][]byte{[]byte("balance"), {}, bytes.Repeat([]byte{0xAB}, 70000)}
	for _, p := range payloads {
		require.NoError(t, Write(&buf, p))
	}
	for _, want := range payloads {
		got, err := Read(&buf)
		require.NoError(t, err)
		assert.Equal(t, len(want), len(got))
		assert.True(t, bytes.Equal(want, got))
	}

	_, err := Read(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRead_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"partial prefix", []byte{0, 0}},
		{"partial payload", []byte{0, 0, 0, 5, 'a', 'b'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrTruncated)
			assert.True(t, IsClosed(err))
		})
	}
}

func TestCodec_MaxSize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []byte("0123456789")))

	c := NewCodec(&buf)
	c.MaxSize = 4
	_, err := c.ReadFrame()
	assert.ErrorIs(t, err, ErrTooLarge)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("boom") }

func TestWrite_PropagatesWriterError(t *testing.T) {
	err := Write(failingWriter{}, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.False(t, IsClosed(err))
}

func TestIsClosed_LocalClose(t *testing.T) {
	a, b := net.Pipe()
	b.Close()
	_, err := Read(a)
	assert.True(t, IsClosed(err))

	a.Close()
	_, err = Read(a)
	assert.True(t, IsClosed(err))
	assert.False(t, IsClosed(nil))
}

func TestCodec_Strings(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(&buf)

	require.NoError(t, c.WriteString("alice,secret"))
	s, err := c.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "alice,secret", s)
}
