package kprod

import (
	"encoding/binary"
	"hash/crc32"
)

// Message is one produced payload with its optional key. A nil key is
// written as a null key on the wire.
type Message struct {
	Key   []byte
	Value []byte
}

// Wire layout, per message:
//
//	offset  int64 (always 0 on produce; the broker assigns real offsets)
//	size    int32
//	crc     int32 (IEEE, over everything below)
//	magic   int8
//	attrs   int8  (codec bits)
//	key     int32-prefixed bytes, -1 length for null
//	value   int32-prefixed bytes, -1 length for null
//
// A compressed message set is the concatenation of plain messages,
// compressed, and carried as the value of one wrapping message whose
// attributes name the codec.

func appendNullableBytes(dst, b []byte) []byte {
	if b == nil {
		return binary.BigEndian.AppendUint32(dst, uint32(0xffffffff))
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

// appendMessage appends one offset+size+message entry to dst.
func appendMessage(dst []byte, attrs int8, key, value []byte) []byte {
	dst = binary.BigEndian.AppendUint64(dst, 0) // offset
	sizeAt := len(dst)
	dst = append(dst, 0, 0, 0, 0) // size placeholder
	crcAt := len(dst)
	dst = append(dst, 0, 0, 0, 0) // crc placeholder
	dst = append(dst, 0)          // magic v0
	dst = append(dst, byte(attrs))
	dst = appendNullableBytes(dst, key)
	dst = appendNullableBytes(dst, value)

	binary.BigEndian.PutUint32(dst[sizeAt:], uint32(len(dst)-crcAt))
	crc := crc32.ChecksumIEEE(dst[crcAt+4:])
	binary.BigEndian.PutUint32(dst[crcAt:], crc)
	return dst
}

// createMessageSet encodes msgs into one wire message set, compressing the
// whole set with compr when compr is non-nil.
func createMessageSet(msgs []Message, compr *compressor) ([]byte, error) {
	var set []byte
	for _, m := range msgs {
		set = appendMessage(set, 0, m.Key, m.Value)
	}
	if compr == nil {
		return set, nil
	}

	compressed, err := compr.compress(set)
	if err != nil {
		return nil, err
	}
	return appendMessage(nil, compr.codec, nil, compressed), nil
}
