package metadata

import (
	"iter"
	"strings"

	"github.com/danmuck/edgexchange/internal/protocol"
)

// Entry is one key/value annotation.
type Entry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Store is an ordered, case-insensitively keyed set of entries. The zero
// value is an empty store ready to use.
type Store struct {
	// entries holds insertion order, oldest first.
	entries []*Entry
	index   map[string]*Entry
}

func New() *Store {
	s := &Store{}
	s.Init()
	return s
}

// Init zeroes the store.
func (s *Store) Init() {
	s.entries = nil
	s.index = nil
}

// Free drops every entry. Safe to call repeatedly.
func (s *Store) Free() {
	clear(s.entries)
	s.entries = nil
	clear(s.index)
	s.index = nil
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Set adds key=value, or replaces the value of an existing key in place.
func (s *Store) Set(key, value string) error {
	if !validString(key) {
		return protocol.InvalidParameter("metadata.Set", "invalid key")
	}
	if !validString(value) {
		return protocol.InvalidParameter("metadata.Set", "invalid value")
	}

	folded := foldKey(key)
	if e, ok := s.index[folded]; ok {
		e.Value = strings.Clone(value)
		return nil
	}

	e := &Entry{Key: strings.Clone(key), Value: strings.Clone(value)}
	if s.index == nil {
		s.index = make(map[string]*Entry)
	}
	s.index[folded] = e
	s.entries = append(s.entries, e)
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, error) {
	if !validString(key) {
		return "", protocol.InvalidParameter("metadata.Get", "invalid key")
	}
	e, ok := s.index[foldKey(key)]
	if !ok {
		return "", protocol.InvalidParameter("metadata.Get", "no such key")
	}
	return strings.Clone(e.Value), nil
}

// Range yields entries most recently added first.
func (s *Store) Range() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for i := len(s.entries) - 1; i >= 0; i-- {
			if !yield(*s.entries[i]) {
				return
			}
		}
	}
}

// Entries returns a snapshot in Range order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for e := range s.Range() {
		out = append(out, e)
	}
	return out
}

// Copy replaces dest with an independent copy of src. dest is left untouched
// if any entry fails to copy.
func Copy(dest, src *Store) error {
	if dest == nil || src == nil {
		return protocol.InvalidParameter("metadata.Copy", "nil store")
	}
	var tmp Store
	for _, e := range src.entries {
		if err := tmp.Set(e.Key, e.Value); err != nil {
			tmp.Free()
			return err
		}
	}
	dest.Free()
	*dest = tmp
	return nil
}

func validString(s string) bool {
	return s != "" && strings.IndexByte(s, 0) < 0
}

// foldKey lowers ASCII letters only, matching strcasecmp on the peer side.
func foldKey(key string) string {
	for i := 0; i < len(key); i++ {
		if c := key[i]; 'A' <= c && c <= 'Z' {
			return asciiLower(key, i)
		}
	}
	return key
}

func asciiLower(key string, from int) string {
	b := []byte(key)
	for i := from; i < len(b); i++ {
		if c := b[i]; 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
