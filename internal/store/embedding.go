package store

import (
	"encoding/binary"
	"math"
)

// BytesToEmbedding converts a little-endian byte slice to []float32. Each 4
// bytes decodes to one LE float32; a trailing chunk shorter than 4 bytes
// contributes one zero element rather than being dropped.
func BytesToEmbedding(data []byte) []float32 {
	n := len(data) / 4
	if len(data)%4 != 0 {
		n++
	}
	result := make([]float32, n)
	for i := 0; i < len(data)/4; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		result[i] = math.Float32frombits(bits)
	}
	return result
}

// EmbeddingToBytes is the inverse of BytesToEmbedding for the common case of
// a length that is an exact multiple of 4 bytes (the only case round-trip is
// defined for — a vector produced by BytesToEmbedding from a partial trailing
// chunk has no canonical byte encoding to reconstruct).
func EmbeddingToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(f))
	}
	return out
}
