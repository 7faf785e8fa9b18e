// Package checksum implements incremental multi-algorithm hashing for
// downloaded content. An Accumulator computes every trusted digest plus the
// total byte count as data streams in, so a file never has to be re-read
// (or buffered in memory) to produce its artifact attributes.
package checksum

import (
	"crypto/md5" //nolint:gosec // md5/sha1 are artifact identifiers, not security primitives
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
)

// Algorithm identifies a digest algorithm by its canonical lower-case name.
type Algorithm string

// Supported digest algorithms.
const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA224 Algorithm = "sha224"
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

// ErrUnknownAlgorithm is returned when an algorithm name has no hasher.
var ErrUnknownAlgorithm = fmt.Errorf("unknown checksum algorithm")

// New returns a fresh hasher for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil //nolint:gosec
	case SHA1:
		return sha1.New(), nil //nolint:gosec
	case SHA224:
		return sha256.New224(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, a)
	}
}

// Set is an ordered list of trusted digest algorithms. Downloads compute
// every algorithm in the set regardless of which ones are expected, since a
// stored artifact may later be looked up by any of them.
type Set []Algorithm

// DefaultSet returns the full set of supported algorithms, which is the
// trusted set unless the operator narrows it.
func DefaultSet() Set {
	return Set{MD5, SHA1, SHA224, SHA256, SHA384, SHA512}
}

// Contains reports whether the set trusts the given algorithm.
func (s Set) Contains(alg Algorithm) bool {
	for _, a := range s {
		if a == alg {
			return true
		}
	}
	return false
}

// Intersects reports whether at least one of the given algorithms is
// trusted.
func (s Set) Intersects(algs []Algorithm) bool {
	for _, a := range algs {
		if s.Contains(a) {
			return true
		}
	}
	return false
}

// Accumulator computes the digests of a byte stream incrementally, one
// hasher per trusted algorithm, along with the total number of bytes seen.
// It implements io.Writer; chunk boundaries do not affect the result, but
// write order does.
type Accumulator struct {
	size    int64
	order   Set
	hashers map[Algorithm]hash.Hash
}

// NewAccumulator allocates one hasher per algorithm in the set.
func NewAccumulator(algs Set) (*Accumulator, error) {
	hashers := make(map[Algorithm]hash.Hash, len(algs))
	for _, alg := range algs {
		h, err := alg.New()
		if err != nil {
			return nil, err
		}
		hashers[alg] = h
	}
	return &Accumulator{order: algs, hashers: hashers}, nil
}

// Write feeds a chunk to every hasher and adds its length to the running
// size. It never returns an error.
func (a *Accumulator) Write(p []byte) (int, error) {
	for _, alg := range a.order {
		a.hashers[alg].Write(p)
	}
	a.size += int64(len(p))
	return len(p), nil
}

// Size returns the total number of bytes written so far.
func (a *Accumulator) Size() int64 {
	return a.size
}

// Digests returns a snapshot of the current digests as lower-case hex
// strings, keyed by algorithm.
func (a *Accumulator) Digests() map[Algorithm]string {
	out := make(map[Algorithm]string, len(a.order))
	for _, alg := range a.order {
		out[alg] = hex.EncodeToString(a.hashers[alg].Sum(nil))
	}
	return out
}
