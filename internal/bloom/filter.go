// Package bloom provides probabilistic membership filters over column
// values, used to skip partition blobs that cannot satisfy an equality
// filter. Filters guarantee no false negatives: if a value was added,
// MightContain always returns true.
package bloom

import (
	"math"

	"github.com/spaolacci/murmur3"
)

// ValueFilter is a bloom filter keyed by "column=value" entries for one
// partition blob. Build it while writing the blob, then treat it as
// read-only; it is not safe for concurrent mutation.
type ValueFilter struct {
	bits      []uint64
	numBits   uint64
	numHashes uint64
	count     uint64
}

// New creates a ValueFilter with the given geometry.
func New(numBits, numHashes int) *ValueFilter {
	if numBits <= 0 {
		numBits = 1024
	}
	if numHashes <= 0 {
		numHashes = 7
	}

	// Round up to whole 64-bit words
	numWords := (numBits + 63) / 64

	return &ValueFilter{
		bits:      make([]uint64, numWords),
		numBits:   uint64(numWords * 64),
		numHashes: uint64(numHashes),
	}
}

// NewWithEstimates creates a ValueFilter sized for the expected number of
// distinct column values and a target false positive rate.
func NewWithEstimates(expectedItems int, targetFPR float64) *ValueFilter {
	numBits, numHashes := OptimalParameters(expectedItems, targetFPR)
	return New(numBits, numHashes)
}

// OptimalParameters calculates the bit and hash counts for an expected item
// count and target false positive rate:
//
//	m = -n * ln(p) / (ln(2)^2)
//	k = (m/n) * ln(2)
func OptimalParameters(expectedItems int, targetFPR float64) (numBits, numHashes int) {
	if expectedItems <= 0 {
		expectedItems = 1000
	}
	if targetFPR <= 0 || targetFPR >= 1 {
		targetFPR = 0.01
	}

	n := float64(expectedItems)
	m := -n * math.Log(targetFPR) / (math.Ln2 * math.Ln2)
	numBits = int(math.Ceil(m))
	numHashes = int(math.Ceil((m / n) * math.Ln2))

	if numBits < 64 {
		numBits = 64
	}
	if numHashes < 1 {
		numHashes = 1
	}
	return numBits, numHashes
}

// AddValue records that a column holds a value in this blob.
func (f *ValueFilter) AddValue(column, value string) {
	f.add([]byte(column + "=" + value))
}

// MightContain reports whether the blob might contain the value in the
// column. False means definitely absent.
func (f *ValueFilter) MightContain(column, value string) bool {
	return f.contains([]byte(column + "=" + value))
}

func (f *ValueFilter) add(item []byte) {
	h1, h2 := hash128(item)
	for i := uint64(0); i < f.numHashes; i++ {
		// Double hashing: h(i) = h1 + i*h2
		pos := (h1 + i*h2) % f.numBits
		f.bits[pos/64] |= 1 << (pos % 64)
	}
	f.count++
}

func (f *ValueFilter) contains(item []byte) bool {
	h1, h2 := hash128(item)
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// hash128 computes a murmur3 128-bit hash as two 64-bit values.
func hash128(item []byte) (uint64, uint64) {
	h := murmur3.New128()
	h.Write(item)
	return h.Sum128()
}

// Count returns the number of entries added.
func (f *ValueFilter) Count() uint64 {
	return f.count
}

// NumBits returns the filter's bit capacity.
func (f *ValueFilter) NumBits() int {
	return int(f.numBits)
}

// NumHashes returns the number of hash functions used.
func (f *ValueFilter) NumHashes() int {
	return int(f.numHashes)
}

// EstimatedFPR returns the expected false positive rate at the current
// fill: (1 - e^(-k*n/m))^k.
func (f *ValueFilter) EstimatedFPR() float64 {
	if f.count == 0 {
		return 0
	}
	k := float64(f.numHashes)
	n := float64(f.count)
	m := float64(f.numBits)
	return math.Pow(1-math.Exp(-k*n/m), k)
}
