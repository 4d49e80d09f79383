package compress

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/otukit/format"
)

// Block codecs above operate on whole payloads. Input tables are files
// written by other tools, so they are read through the streaming (framed)
// variants of each algorithm instead: gzip members, zstd frames, the S2
// stream format and LZ4 frames.

type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var first error
	for i := len(rc.closers) - 1; i >= 0; i-- {
		if err := rc.closers[i](); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// NewReader wraps r with a decompressing reader for compressionType.
func NewReader(r io.Reader, compressionType format.CompressionType) (io.ReadCloser, error) {
	switch compressionType {
	case format.CompressionNone:
		return io.NopCloser(r), nil
	case format.CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}

		return gz, nil
	case format.CompressionZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}

		return &readCloser{Reader: dec, closers: []func() error{func() error { dec.Close(); return nil }}}, nil
	case format.CompressionS2:
		return io.NopCloser(s2.NewReader(r)), nil
	case format.CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

// Open opens a possibly compressed file, choosing the decompressor from the
// file extension (see format.CompressionFromPath). Closing the returned
// reader closes the file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	ct, _ := format.CompressionFromPath(path)
	dr, err := NewReader(bufio.NewReaderSize(f, 1<<16), ct)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &readCloser{Reader: dr, closers: []func() error{f.Close, dr.Close}}, nil
}

type writeCloser struct {
	io.Writer
	closers []func() error
}

func (wc *writeCloser) Close() error {
	var first error
	for _, c := range wc.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// NewWriter wraps w with a compressing writer for compressionType. The
// returned writer must be closed to flush the final frame; closing it does
// not close w.
func NewWriter(w io.Writer, compressionType format.CompressionType) (io.WriteCloser, error) {
	switch compressionType {
	case format.CompressionNone:
		return &writeCloser{Writer: w}, nil
	case format.CompressionGzip:
		return gzip.NewWriter(w), nil
	case format.CompressionZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create zstd stream: %w", err)
		}

		return enc, nil
	case format.CompressionS2:
		return s2.NewWriter(w), nil
	case format.CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

// Create creates path and returns a writer that compresses according to the
// file extension. Closing the writer flushes the compressor and closes the file.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	ct, _ := format.CompressionFromPath(path)
	bw := bufio.NewWriterSize(f, 1<<16)
	cw, err := NewWriter(bw, ct)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &writeCloser{Writer: cw, closers: []func() error{cw.Close, bw.Flush, f.Close}}, nil
}
