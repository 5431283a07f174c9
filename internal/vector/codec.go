package vector

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

const float32Size = 4

// EncodeVector packs v as little-endian IEEE-754 float32 values.
func EncodeVector(v []float32) []byte {
	out := make([]byte, len(v)*float32Size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*float32Size:], math.Float32bits(f))
	}
	return out
}

// DecodeVector unpacks a blob written by EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%float32Size != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of %d", len(b), float32Size)
	}
	out := make([]float32, len(b)/float32Size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*float32Size:]))
	}
	return out, nil
}

// TextHash is the content address of an embedded text: hex SHA-256.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
