package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/danmuck/edgexchange/internal/protocol"
	"github.com/rs/zerolog/log"
)

// CountSize is the width of the leading entry count.
const CountSize = 4

// Serialize encodes the store, most recently added entry first. An empty
// store encodes to nil with no error.
func (s *Store) Serialize() ([]byte, error) {
	n := len(s.entries)
	if n == 0 {
		return nil, nil
	}
	if uint64(n) > math.MaxUint32 {
		return nil, protocol.OutOfMemory("metadata.Serialize", "entry count overflows u32")
	}

	total := CountSize
	for _, e := range s.entries {
		size := len(e.Key) + len(e.Value) + 2
		if total > math.MaxInt-size {
			return nil, protocol.OutOfMemory("metadata.Serialize", "encoded size overflows")
		}
		total += size
	}

	buf := make([]byte, CountSize, total)
	binary.NativeEndian.PutUint32(buf, uint32(n))
	for e := range s.Range() {
		buf = append(buf, e.Key...)
		buf = append(buf, 0)
		buf = append(buf, e.Value...)
		buf = append(buf, 0)
	}
	return buf, nil
}

// Deserialize replaces the store with the entries encoded in data.
//
// Pairs are read while bytes remain and fewer than the declared count have
// been read. A pair that runs off the end of data, or fewer pairs than
// declared, fails the decode. Bytes after the declared pairs are ignored.
// The store is only modified when the whole buffer decodes.
func (s *Store) Deserialize(data []byte) error {
	if len(data) == 0 {
		return protocol.InvalidParameter("metadata.Deserialize", "empty buffer")
	}
	if len(data) < CountSize {
		return protocol.InvalidParameter("metadata.Deserialize", "buffer shorter than count")
	}

	declared := binary.NativeEndian.Uint32(data)
	// each pair needs at least two terminators
	capHint := min(uint64(declared), uint64((len(data)-CountSize)/2))
	pairs := make([]Entry, 0, capHint)

	cur := CountSize
	var parsed uint32
	for cur < len(data) && parsed < declared {
		key, next, ok := readString(data, cur)
		if !ok {
			return protocol.InvalidParameter("metadata.Deserialize",
				fmt.Sprintf("unterminated key at offset %d", cur))
		}
		value, next, ok := readString(data, next)
		if !ok {
			return protocol.InvalidParameter("metadata.Deserialize",
				fmt.Sprintf("unterminated value at offset %d", next))
		}
		pairs = append(pairs, Entry{Key: key, Value: value})
		parsed++
		cur = next
	}

	if parsed < declared {
		return protocol.InvalidParameter("metadata.Deserialize",
			fmt.Sprintf("declared %d pairs, found %d", declared, parsed))
	}
	if cur < len(data) {
		log.Warn().
			Int("trailing", len(data)-cur).
			Uint32("pairs", parsed).
			Msg("metadata.Deserialize ignoring bytes after declared pairs")
	}

	// Replay oldest first so the decoded order matches the encoded order.
	var tmp Store
	for i := len(pairs) - 1; i >= 0; i-- {
		if err := tmp.Set(pairs[i].Key, pairs[i].Value); err != nil {
			tmp.Free()
			return err
		}
	}
	s.Free()
	*s = tmp
	return nil
}

func readString(data []byte, at int) (string, int, bool) {
	if at >= len(data) {
		return "", at, false
	}
	n := bytes.IndexByte(data[at:], 0)
	if n < 0 {
		return "", at, false
	}
	return string(data[at : at+n]), at + n + 1, true
}
