package fingerprint

import (
	"fmt"
	"math/bits"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// DefaultShingleSize is the window of the overlapping byte shingles hashed
// into the simhash signature.
const DefaultShingleSize = 4

// SimHash is the built-in similarity provider.
//
// It computes a 64-bit simhash over overlapping byte shingles (hashed with
// xxhash) and measures dissimilarity as the Hamming distance between
// signatures, so distances fall in [0, 64]. The signature depends only on
// content, never on ambient state, which keeps fingerprints reproducible
// across processes and platforms.
type SimHash struct {
	shingleSize int
}

// Compile time check to ensure SimHash satisfies the Provider interface.
var _ Provider = (*SimHash)(nil)

// NewSimHash creates a SimHash provider with the default shingle size.
func NewSimHash() *SimHash {
	return &SimHash{shingleSize: DefaultShingleSize}
}

// NewSimHashWithShingleSize creates a SimHash provider with a custom shingle
// size. Sizes below 1 fall back to the default.
//
// All fingerprints that end up in one cache must come from the same shingle
// size; changing it silently changes every signature.
func NewSimHashWithShingleSize(size int) *SimHash {
	if size < 1 {
		size = DefaultShingleSize
	}
	return &SimHash{shingleSize: size}
}

// Fingerprint derives the 64-bit simhash signature of data, encoded as a
// fixed-width hex token.
func (s *SimHash) Fingerprint(data []byte) (Fingerprint, error) {
	if len(data) < MinSize {
		return "", fmt.Errorf("%w: %d bytes below minimum of %d", ErrInvalidResource, len(data), MinSize)
	}

	var weights [64]int

	w := s.shingleSize
	for i := 0; i+w <= len(data); i++ {
		h := xxhash.Sum64(data[i : i+w])
		for b := 0; b < 64; b++ {
			if h&(1<<uint(b)) != 0 {
				weights[b]++
			} else {
				weights[b]--
			}
		}
	}

	var sig uint64
	for b, weight := range weights {
		if weight > 0 {
			sig |= 1 << uint(b)
		}
	}

	return Fingerprint(fmt.Sprintf("%016x", sig)), nil
}

// Distance returns the Hamming distance between two simhash signatures.
func (s *SimHash) Distance(a, b Fingerprint) (float64, error) {
	x, err := parseSignature(a)
	if err != nil {
		return 0, err
	}
	y, err := parseSignature(b)
	if err != nil {
		return 0, err
	}
	return float64(bits.OnesCount64(x ^ y)), nil
}

// Name returns the unique name of the provider ("simhash").
func (s *SimHash) Name() string { return "simhash" }

func parseSignature(fp Fingerprint) (uint64, error) {
	if len(fp) != 16 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedFingerprint, fp)
	}
	v, err := strconv.ParseUint(string(fp), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrMalformedFingerprint, fp, err)
	}
	return v, nil
}
