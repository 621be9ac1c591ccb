package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/edgexchange/internal/protocol"
	"github.com/danmuck/edgexchange/internal/testutil/testlog"
)

func encodeRaw(count uint32, parts ...string) []byte {
	buf := make([]byte, CountSize)
	binary.NativeEndian.PutUint32(buf, count)
	for _, p := range parts {
		buf = append(buf, p...)
		buf = append(buf, 0)
	}
	return buf
}

func TestSerializeEmptyStore(t *testing.T) {
	testlog.Start(t)

	b, err := New().Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if b != nil || len(b) != 0 {
		t.Fatalf("expected nil buffer, got %v", b)
	}
}

func TestSerializeLayout(t *testing.T) {
	testlog.Start(t)

	s := New()
	_ = s.Set("a", "1")
	_ = s.Set("bc", "23")

	got, err := s.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	want := encodeRaw(2, "bc", "23", "a", "1")
	if !bytes.Equal(got, want) {
		t.Fatalf("layout mismatch:\n got=%v\nwant=%v", got, want)
	}
	if len(got) != 4+(2+1)+(2+1)+(1+1)+(1+1) {
		t.Fatalf("unexpected length %d", len(got))
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	testlog.Start(t)

	s := New()
	_ = s.Set("a", "1")
	_ = s.Set("b", "2")
	b, err := s.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	out := New()
	if err := out.Deserialize(b); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", out.Len())
	}
	for k, want := range map[string]string{"a": "1", "b": "2"} {
		v, err := out.Get(k)
		if err != nil {
			t.Fatalf("get %s: %v", k, err)
		}
		if v != want {
			t.Fatalf("key %s: got %q want %q", k, v, want)
		}
	}

	again, err := out.Serialize()
	if err != nil {
		t.Fatalf("re-serialize: %v", err)
	}
	if !bytes.Equal(again, b) {
		t.Fatalf("re-encoded bytes differ:\n got=%v\nwant=%v", again, b)
	}
}

func TestDeserializeReplacesExistingEntries(t *testing.T) {
	testlog.Start(t)

	s := New()
	_ = s.Set("old", "x")
	if err := s.Deserialize(encodeRaw(1, "new", "y")); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if _, err := s.Get("old"); err == nil {
		t.Fatalf("expected previous entries to be replaced")
	}
	if v, _ := s.Get("new"); v != "y" {
		t.Fatalf("unexpected value %q", v)
	}
}

func TestDeserializeRejectsShortInput(t *testing.T) {
	testlog.Start(t)

	s := New()
	for _, in := range [][]byte{nil, {}, {1, 0}} {
		if err := s.Deserialize(in); !errors.Is(err, protocol.ErrInvalidParameter) {
			t.Fatalf("input %v: expected invalid parameter, got %v", in, err)
		}
	}
}

// Declared count larger than the pairs present: the decode fails and the
// store keeps its previous contents.
func TestDeserializeDeclaredCountExceedsPairs(t *testing.T) {
	testlog.Start(t)

	s := New()
	_ = s.Set("keep", "1")
	err := s.Deserialize(encodeRaw(3, "a", "1", "b", "2"))
	if !errors.Is(err, protocol.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("store modified by failed decode: len=%d", s.Len())
	}
	if v, _ := s.Get("keep"); v != "1" {
		t.Fatalf("store modified by failed decode: %q", v)
	}
}

// Declared count smaller than the pairs present: only the declared pairs are
// read and the remaining bytes are ignored.
func TestDeserializeDeclaredCountBelowPairs(t *testing.T) {
	testlog.Start(t)

	s := New()
	if err := s.Deserialize(encodeRaw(1, "a", "1", "b", "2")); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
	if _, err := s.Get("b"); err == nil {
		t.Fatalf("pair beyond declared count must not be read")
	}
}

func TestDeserializeZeroCountWithTrailingBytes(t *testing.T) {
	testlog.Start(t)

	s := New()
	_ = s.Set("x", "y")
	if err := s.Deserialize(encodeRaw(0, "a", "1")); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestDeserializeUnterminatedStrings(t *testing.T) {
	testlog.Start(t)

	unterminatedValue := append(encodeRaw(1, "key"), 'v', 'a', 'l')
	unterminatedKey := append(encodeRaw(1), 'k', 'e', 'y')
	missingValue := encodeRaw(1, "key")

	for name, in := range map[string][]byte{
		"value":   unterminatedValue,
		"key":     unterminatedKey,
		"missing": missingValue,
	} {
		s := New()
		if err := s.Deserialize(in); !errors.Is(err, protocol.ErrInvalidParameter) {
			t.Fatalf("%s: expected invalid parameter, got %v", name, err)
		}
	}
}

func TestDeserializeEmptyKeyOnWire(t *testing.T) {
	testlog.Start(t)

	s := New()
	err := s.Deserialize(encodeRaw(1, "", "v"))
	if !errors.Is(err, protocol.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}

func TestDeserializeDuplicateKeysNewestWins(t *testing.T) {
	testlog.Start(t)

	s := New()
	if err := s.Deserialize(encodeRaw(2, "Key", "new", "key", "old")); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one entry, got %d", s.Len())
	}
	if v, _ := s.Get("KEY"); v != "new" {
		t.Fatalf("expected newest value, got %q", v)
	}
}
