package network

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFrameRoundTrip проверяет кодирование и чтение кадра без сжатия
func TestFrameRoundTrip(t *testing.T) {
	codec, err := newFrameCodec(0)
	require.NoError(t, err)

	var buf bytes.Buffer
	payload := []byte(`{"type":"move","payload":{"pos":{"x":1,"z":2}}}`)
	require.NoError(t, codec.writeFrame(&buf, payload))

	got, err := codec.readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

// TestFrameCompression проверяет, что крупный кадр сжимается и
// разжимается прозрачно, а мелкий идёт как есть
func TestFrameCompression(t *testing.T) {
	codec, err := newFrameCodec(64)
	require.NoError(t, err)

	// Повторяющийся JSON сжимается хорошо
	big := []byte(strings.Repeat(`{"id":"tree","health":150}`, 100))

	var buf bytes.Buffer
	require.NoError(t, codec.writeFrame(&buf, big))

	assert.Equal(t, frameFlagCompressed, buf.Bytes()[4]&frameFlagCompressed)
	assert.Less(t, buf.Len(), len(big), "сжатый кадр меньше исходного")

	got, err := codec.readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, big, got)

	// Мелкий кадр проходит без флага сжатия
	small := []byte("hi")
	buf.Reset()
	require.NoError(t, codec.writeFrame(&buf, small))
	assert.Zero(t, buf.Bytes()[4]&frameFlagCompressed)

	got, err = codec.readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, small, got)
}

// TestFrameTooLarge проверяет защиту от мусорного префикса длины
func TestFrameTooLarge(t *testing.T) {
	codec, err := newFrameCodec(0)
	require.NoError(t, err)

	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header[:4], maxFrameSize+1)

	_, err = codec.readFrame(bytes.NewReader(header))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame too large")
}

// TestFrameTruncated проверяет обрыв потока посреди кадра
func TestFrameTruncated(t *testing.T) {
	codec, err := newFrameCodec(0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, codec.writeFrame(&buf, []byte("hello world")))

	truncated := buf.Bytes()[:buf.Len()-3]
	_, err = codec.readFrame(bytes.NewReader(truncated))
	assert.Error(t, err)
}
