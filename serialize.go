package dhbloom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/bits-and-blooms/bitset"
	"github.com/zeebo/xxh3"
)

// Serialization constants and errors.
const (
	// serializeMagic marks the start of a serialized filter.
	serializeMagic = "DHB1"

	// serializeVersion is the current serialization format version.
	serializeVersion byte = 1

	// headerSize is the size of the serialization header in bytes.
	// Magic (4) + Version (1) + Hash (1) + Reserved (2) + K (4) + M (8) + Count (8) = 28 bytes
	headerSize = 28

	// trailerSize is the size of the xxh3 checksum that ends the encoding.
	trailerSize = 8
)

var (
	// ErrInvalidData is returned when the serialized data is invalid or corrupted.
	ErrInvalidData = errors.New("dhbloom: invalid serialized data")

	// ErrUnsupportedVersion is returned when the serialization version is not supported.
	ErrUnsupportedVersion = errors.New("dhbloom: unsupported serialization version")

	// ErrChecksumMismatch is returned when the trailing checksum does not match the data.
	ErrChecksumMismatch = errors.New("dhbloom: checksum mismatch")
)

// header is the fixed-size prefix of a serialized filter.
type header struct {
	hash  HashAlgorithm
	k     uint32
	m     uint64
	count uint64
}

// MarshalBinary serializes the filter to a byte slice.
// The serialized format is:
//   - Magic (4 bytes): "DHB1"
//   - Version (1 byte): serialization format version
//   - Hash (1 byte): base hash algorithm
//   - Reserved (2 bytes): zero
//   - K (4 bytes): number of bit positions per item (little-endian uint32)
//   - M (8 bytes): number of bits (little-endian uint64)
//   - Count (8 bytes): number of insert calls (little-endian uint64)
//   - Words (ceil(M/64) * 8 bytes): the bit array (little-endian uint64s)
//   - Checksum (8 bytes): xxh3 hash of everything above
func (f *Filter) MarshalBinary() ([]byte, error) {
	words := f.bits.Bytes()
	return encode(header{hash: f.hash, k: f.k, m: f.m, count: f.count}, len(words), func(i int) uint64 {
		return words[i]
	}), nil
}

// MarshalBinary serializes the filter in the same format as
// Filter.MarshalBinary. Concurrent inserts may or may not be captured.
func (f *AtomicFilter) MarshalBinary() ([]byte, error) {
	return encode(header{hash: f.hash, k: f.k, m: f.m, count: f.count.Load()}, len(f.words), func(i int) uint64 {
		return f.words[i].Load()
	}), nil
}

// UnmarshalBinary deserializes a Filter from a byte slice.
// Returns an error if the data is invalid or corrupted.
func UnmarshalBinary(data []byte) (*Filter, error) {
	h, words, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &Filter{
		bits:  bitset.From(words),
		m:     h.m,
		k:     h.k,
		hash:  h.hash,
		count: h.count,
	}, nil
}

// UnmarshalAtomicBinary deserializes an AtomicFilter from a byte slice
// produced by either filter type.
func UnmarshalAtomicBinary(data []byte) (*AtomicFilter, error) {
	h, words, err := decode(data)
	if err != nil {
		return nil, err
	}
	f := newAtomicFilter(h.m, h.k, h.hash)
	for i, w := range words {
		f.words[i].Store(w)
	}
	f.count.Store(h.count)
	return f, nil
}

func encode(h header, numWords int, word func(i int) uint64) []byte {
	buf := make([]byte, headerSize+numWords*8+trailerSize)

	// Write header
	copy(buf[0:4], serializeMagic)
	buf[4] = serializeVersion
	buf[5] = byte(h.hash)
	binary.LittleEndian.PutUint32(buf[8:12], h.k)
	binary.LittleEndian.PutUint64(buf[12:20], h.m)
	binary.LittleEndian.PutUint64(buf[20:28], h.count)

	// Write bit array
	offset := headerSize
	for i := range numWords {
		binary.LittleEndian.PutUint64(buf[offset:offset+8], word(i))
		offset += 8
	}

	binary.LittleEndian.PutUint64(buf[offset:], xxh3.Hash(buf[:offset]))
	return buf
}

func decode(data []byte) (header, []uint64, error) {
	var h header

	if len(data) < headerSize+trailerSize {
		return h, nil, fmt.Errorf("%w: data too short (got %d bytes, need at least %d)", ErrInvalidData, len(data), headerSize+trailerSize)
	}
	if string(data[0:4]) != serializeMagic {
		return h, nil, fmt.Errorf("%w: bad magic %q", ErrInvalidData, data[0:4])
	}
	if version := data[4]; version != serializeVersion {
		return h, nil, fmt.Errorf("%w: got version %d, expected %d", ErrUnsupportedVersion, version, serializeVersion)
	}

	body := data[:len(data)-trailerSize]
	want := binary.LittleEndian.Uint64(data[len(data)-trailerSize:])
	if got := xxh3.Hash(body); got != want {
		return h, nil, fmt.Errorf("%w: got %#016x, expected %#016x", ErrChecksumMismatch, got, want)
	}

	h.hash = HashAlgorithm(data[5])
	h.k = binary.LittleEndian.Uint32(data[8:12])
	h.m = binary.LittleEndian.Uint64(data[12:20])
	h.count = binary.LittleEndian.Uint64(data[20:28])

	if !h.hash.valid() {
		return h, nil, fmt.Errorf("%w: %d", ErrUnknownHash, data[5])
	}
	if err := ValidateParams(h.m, h.k); err != nil {
		return h, nil, err
	}

	// Validate data length (safe from overflow now that m is bounded)
	numWords := wordsFor(h.m)
	if expected := uint64(headerSize) + numWords*8; uint64(len(body)) != expected {
		return h, nil, fmt.Errorf("%w: data length mismatch (got %d bytes, expected %d)", ErrInvalidData, len(data), expected+trailerSize)
	}

	words := make([]uint64, numWords)
	offset := headerSize
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(body[offset : offset+8])
		offset += 8
	}

	// Bits at or beyond m are never set by a valid filter.
	if tail := h.m % 64; tail != 0 && bits.LeadingZeros64(words[numWords-1]) < int(64-tail) {
		return h, nil, fmt.Errorf("%w: bits set beyond bit count %d", ErrInvalidData, h.m)
	}

	return h, words, nil
}
