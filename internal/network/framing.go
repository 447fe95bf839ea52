package network

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Формат кадра: 4 байта длины (big endian) + 1 байт флагов + полезная нагрузка.
const (
	frameFlagCompressed byte = 1 << 0

	// Защита от мусорного префикса длины
	maxFrameSize = 4 << 20
)

// frameCodec кодирует и декодирует кадры с опциональным zstd-сжатием.
// Кадры меньше compressFrom передаются как есть: на мелких сообщениях
// сжатие только раздувает трафик.
type frameCodec struct {
	encoder      *zstd.Encoder
	decoder      *zstd.Decoder
	compressFrom int
}

// newFrameCodec создаёт кодек кадров; compressFrom <= 0 отключает сжатие
func newFrameCodec(compressFrom int) (*frameCodec, error) {
	fc := &frameCodec{compressFrom: compressFrom}

	if compressFrom > 0 {
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		fc.encoder = encoder
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	fc.decoder = decoder

	return fc, nil
}

// writeFrame записывает один кадр в поток
func (fc *frameCodec) writeFrame(w io.Writer, payload []byte) error {
	flags := byte(0)
	if fc.encoder != nil && len(payload) >= fc.compressFrom {
		payload = fc.encoder.EncodeAll(payload, nil)
		flags |= frameFlagCompressed
	}

	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header[:4], uint32(len(payload)))
	header[4] = flags

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame читает один кадр из потока
func (fc *frameCodec) readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:4])
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	if header[4]&frameFlagCompressed != 0 {
		decompressed, err := fc.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		payload = decompressed
	}

	return payload, nil
}
