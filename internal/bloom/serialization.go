package bloom

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"
)

// Serialization format:
//
//	8 bytes numBits + 8 bytes numHashes + 8 bytes count + snappy(bit array)
//
// The bit array dominates the size, so only it is compressed.

const headerSize = 24

// Marshal serializes the filter for storage next to its blob.
func (f *ValueFilter) Marshal() []byte {
	bitData := make([]byte, len(f.bits)*8)
	for i, word := range f.bits {
		binary.LittleEndian.PutUint64(bitData[i*8:], word)
	}
	compressed := snappy.Encode(nil, bitData)

	out := make([]byte, headerSize, headerSize+len(compressed))
	binary.LittleEndian.PutUint64(out[0:], f.numBits)
	binary.LittleEndian.PutUint64(out[8:], f.numHashes)
	binary.LittleEndian.PutUint64(out[16:], f.count)
	return append(out, compressed...)
}

// Unmarshal reconstructs a filter from its serialized form.
func Unmarshal(data []byte) (*ValueFilter, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("bloom: serialized filter too short (%d bytes)", len(data))
	}

	numBits := binary.LittleEndian.Uint64(data[0:])
	numHashes := binary.LittleEndian.Uint64(data[8:])
	count := binary.LittleEndian.Uint64(data[16:])

	bitData, err := snappy.Decode(nil, data[headerSize:])
	if err != nil {
		return nil, fmt.Errorf("bloom: snappy decompress failed: %w", err)
	}
	if uint64(len(bitData)*8) != numBits {
		return nil, fmt.Errorf("bloom: bit array length %d does not match header numBits %d", len(bitData)*8, numBits)
	}

	bits := make([]uint64, len(bitData)/8)
	for i := range bits {
		bits[i] = binary.LittleEndian.Uint64(bitData[i*8:])
	}

	return &ValueFilter{
		bits:      bits,
		numBits:   numBits,
		numHashes: numHashes,
		count:     count,
	}, nil
}
