package reward

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
)

// RandomSource produces uniform values in [0, 1). Draw resolution depends
// only on this interface, so tests can pin the outcome with a fixed source.
type RandomSource interface {
	Float64() float64
}

// cryptoSource draws from crypto/rand. Used in production so students cannot
// predict draw outcomes from a process seed.
type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// there is no sane recovery for a draw engine.
		panic("reward: crypto/rand failed: " + err.Error())
	}
	// 53 bits of mantissa, same construction as math/rand.Float64.
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
}

// NewCryptoSource returns the default production random source.
func NewCryptoSource() RandomSource {
	return cryptoSource{}
}

// seededSource wraps a deterministic PCG generator for reproducible tests.
type seededSource struct {
	rng *mathrand.Rand
}

func (s *seededSource) Float64() float64 {
	return s.rng.Float64()
}

// NewSeededSource returns a deterministic source for the given seed.
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{rng: mathrand.New(mathrand.NewPCG(seed, seed))}
}

// FixedSource always returns the same value. Handy for pinning a single
// draw outcome in tests.
type FixedSource float64

// Float64 implements RandomSource.
func (f FixedSource) Float64() float64 {
	return float64(f)
}
