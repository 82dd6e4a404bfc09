package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"

	"mercator-hq/archivist/pkg/audit"
)

// Compress gzip-compresses data.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, audit.NewCompressionError("compress", err)
	}
	if err := zw.Close(); err != nil {
		return nil, audit.NewCompressionError("compress", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. A corrupt or truncated stream yields a
// CompressionError.
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, audit.NewCompressionError("decompress", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, audit.NewCompressionError("decompress", err)
	}
	return out, nil
}
