package kprod

import (
	"bytes"
	"compress/gzip"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionCodec configures how message sets are compressed before being
// sent.
//
// All payloads batched for one topic partition are compressed together into
// one wrapping message for that batch.
type CompressionCodec struct {
	codec int8 // 0: none, 1: gzip, 2: snappy, 3: lz4, 4: zstd
}

// NoCompression is the default: message sets are sent as is.
func NoCompression() CompressionCodec { return CompressionCodec{0} }

// GzipCompression enables gzip compression with the default compression level.
func GzipCompression() CompressionCodec { return CompressionCodec{1} }

// SnappyCompression enables snappy compression.
func SnappyCompression() CompressionCodec { return CompressionCodec{2} }

// Lz4Compression enables lz4 compression with the fastest compression level.
func Lz4Compression() CompressionCodec { return CompressionCodec{3} }

// ZstdCompression enables zstd compression with the default compression level.
func ZstdCompression() CompressionCodec { return CompressionCodec{4} }

func (c CompressionCodec) String() string {
	switch c.codec {
	case 0:
		return "none"
	case 1:
		return "gzip"
	case 2:
		return "snappy"
	case 3:
		return "lz4"
	case 4:
		return "zstd"
	}
	return "unknown"
}

var tozstd, _ = zstd.NewWriter(nil)

// compressor compresses message sets for one codec. The zero codec has a nil
// compressor.
type compressor struct {
	codec int8
	pool  sync.Pool // *bytes.Buffer scratch space
}

// newCompressor returns the compressor for a codec, or ErrUnsupportedCodec.
// Codec validation happens here, once, at producer construction.
func newCompressor(codec CompressionCodec) (*compressor, error) {
	switch codec.codec {
	case 0:
		return nil, nil
	case 1, 2, 3, 4:
		return &compressor{
			codec: codec.codec,
			pool:  sync.Pool{New: func() interface{} { return new(bytes.Buffer) }},
		}, nil
	}
	return nil, &ErrUnsupportedCodec{codec.codec}
}

// compress returns a compressed copy of in.
func (c *compressor) compress(in []byte) ([]byte, error) {
	switch c.codec {
	case 1:
		buf := c.pool.Get().(*bytes.Buffer)
		defer c.pool.Put(buf)
		buf.Reset()
		gz := gzip.NewWriter(buf)
		if _, err := gz.Write(in); err != nil {
			return nil, err
		}
		if err := gz.Close(); err != nil {
			return nil, err
		}
		out := make([]byte, buf.Len())
		copy(out, buf.Bytes())
		return out, nil

	case 2:
		return snappy.Encode(nil, in), nil

	case 3:
		buf := c.pool.Get().(*bytes.Buffer)
		defer c.pool.Put(buf)
		buf.Reset()
		w := lz4.NewWriter(buf)
		if _, err := w.Write(in); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		out := make([]byte, buf.Len())
		copy(out, buf.Bytes())
		return out, nil

	case 4:
		return tozstd.EncodeAll(in, nil), nil
	}
	return in, nil
}

var unzstd, _ = zstd.NewReader(nil)

// decompress reverses compress for the given codec bits.
func decompress(src []byte, codec int8) ([]byte, error) {
	switch codec {
	case 0:
		return src, nil

	case 1:
		ungz, err := gzip.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		defer ungz.Close()
		return io.ReadAll(ungz)

	case 2:
		return snappy.Decode(nil, src)

	case 3:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))

	case 4:
		return unzstd.DecodeAll(src, nil)

	default:
		return nil, &ErrUnsupportedCodec{codec}
	}
}
