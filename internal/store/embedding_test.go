package store

import (
	"bytes"
	"testing"
)

func TestEmbeddingRoundTrip(t *testing.T) {
	original := []float32{1.5, -2.25, 0, 3.14159, -0.001}
	data := EmbeddingToBytes(original)
	if len(data) != len(original)*4 {
		t.Fatalf("expected %d bytes, got %d", len(original)*4, len(data))
	}

	decoded := BytesToEmbedding(data)
	if len(decoded) != len(original) {
		t.Fatalf("expected %d elements, got %d", len(original), len(decoded))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("element %d: expected %f, got %f", i, original[i], decoded[i])
		}
	}

	if !bytes.Equal(EmbeddingToBytes(decoded), data) {
		t.Error("bytes -> vector -> bytes did not reproduce the original sequence")
	}
}

func TestBytesToEmbeddingPartialTrailingChunk(t *testing.T) {
	// 6 bytes = one full float plus a 2-byte remainder, which contributes
	// one zero element.
	data := append(EmbeddingToBytes([]float32{1.0}), 0xAB, 0xCD)
	v := BytesToEmbedding(data)
	if len(v) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(v))
	}
	if v[0] != 1.0 {
		t.Errorf("expected first element 1.0, got %f", v[0])
	}
	if v[1] != 0 {
		t.Errorf("expected trailing partial chunk to decode as 0, got %f", v[1])
	}
}

func TestBytesToEmbeddingEmpty(t *testing.T) {
	if v := BytesToEmbedding(nil); len(v) != 0 {
		t.Errorf("expected empty vector from nil bytes, got %v", v)
	}
}
