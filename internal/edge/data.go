package edge

import (
	"bytes"
	"fmt"

	"github.com/danmuck/edgexchange/internal/observability"
	"github.com/danmuck/edgexchange/internal/protocol/metadata"
	"github.com/rs/zerolog/log"
)

// copyMeta is swapped in tests to force a metadata copy failure.
var copyMeta = metadata.Copy

type slot struct {
	buf     []byte
	release ReleaseFunc
}

// Data is an ordered set of up to DataLimit raw buffers plus metadata,
// exchanged as one unit.
type Data struct {
	magic uint32
	num   int
	slots [DataLimit]slot
	meta  metadata.Store
}

// NewData returns an empty, live handle.
func NewData() *Data {
	d := &Data{magic: MagicAlive}
	d.meta.Init()
	observability.DataCreated()
	return d
}

func (d *Data) valid() bool {
	return d != nil && d.magic == MagicAlive
}

// Destroy releases every owned buffer and the metadata. The handle is dead
// afterwards.
func (d *Data) Destroy() error {
	if !d.valid() {
		return invalid("edge.Data.Destroy", "given edge data is invalid")
	}
	d.magic = MagicDead

	for i := 0; i < d.num; i++ {
		if s := d.slots[i]; s.release != nil {
			s.release(s.buf)
		}
		d.slots[i] = slot{}
	}
	d.num = 0
	d.meta.Free()

	observability.DataDestroyed()
	return nil
}

// IsValid reports whether d is a live handle.
func (d *Data) IsValid() error {
	if !d.valid() {
		return invalid("edge.Data.IsValid", "edge data handle is invalid")
	}
	return nil
}

// Copy returns an independent handle. Buffers are duplicated and owned by the
// copy with Free as their release action; custom release actions are not
// carried over. If the metadata cannot be copied the partially built handle
// is returned with the error and must still be destroyed.
func (d *Data) Copy() (*Data, error) {
	if !d.valid() {
		return nil, invalid("edge.Data.Copy", "edge data handle is invalid")
	}

	c := NewData()
	for i := 0; i < d.num; i++ {
		c.slots[i] = slot{buf: bytes.Clone(d.slots[i].buf), release: Free}
	}
	c.num = d.num

	if err := copyMeta(&c.meta, &d.meta); err != nil {
		log.Error().Err(err).Msg("edge.Data.Copy failed to copy metadata")
		return c, err
	}
	return c, nil
}

// Add appends buf. Ownership moves to d: release runs once when d is
// destroyed. On failure ownership stays with the caller and release never
// runs.
func (d *Data) Add(buf []byte, release ReleaseFunc) error {
	if !d.valid() {
		return invalid("edge.Data.Add", "given edge data is invalid")
	}
	if d.num >= DataLimit {
		return invalid("edge.Data.Add",
			fmt.Sprintf("the maximum number of edge data is %d", DataLimit))
	}
	if len(buf) == 0 {
		return invalid("edge.Data.Add", "data should not be empty")
	}

	d.slots[d.num] = slot{buf: buf, release: release}
	d.num++
	return nil
}

// Get returns a borrowed view of buffer index. The view must not be used
// after d is destroyed.
func (d *Data) Get(index int) ([]byte, error) {
	if !d.valid() {
		return nil, invalid("edge.Data.Get", "given edge data is invalid")
	}
	if index < 0 || index >= d.num {
		return nil, invalid("edge.Data.Get",
			fmt.Sprintf("the number of edge data is %d but requested index %d", d.num, index))
	}
	return d.slots[index].buf, nil
}

// Count returns the number of buffers held.
func (d *Data) Count() (int, error) {
	if !d.valid() {
		return 0, invalid("edge.Data.Count", "given edge data is invalid")
	}
	return d.num, nil
}

// SetInfo sets a metadata entry. Keys are case-insensitive.
func (d *Data) SetInfo(key, value string) error {
	if !d.valid() {
		return invalid("edge.Data.SetInfo", "given edge data is invalid")
	}
	if key == "" {
		return invalid("edge.Data.SetInfo", "given key is invalid")
	}
	if value == "" {
		return invalid("edge.Data.SetInfo", "given value is invalid")
	}
	return d.meta.Set(key, value)
}

// Info returns a copy of the metadata value for key.
func (d *Data) Info(key string) (string, error) {
	if !d.valid() {
		return "", invalid("edge.Data.Info", "given edge data is invalid")
	}
	if key == "" {
		return "", invalid("edge.Data.Info", "given key is invalid")
	}
	return d.meta.Get(key)
}

// Metadata returns the metadata entries, most recently added first.
func (d *Data) Metadata() ([]metadata.Entry, error) {
	if !d.valid() {
		return nil, invalid("edge.Data.Metadata", "given edge data is invalid")
	}
	return d.meta.Entries(), nil
}

// SerializeMeta encodes the metadata for a transport envelope. Raw buffers
// are not included. Returns nil when there is no metadata.
func (d *Data) SerializeMeta() ([]byte, error) {
	if !d.valid() {
		return nil, invalid("edge.Data.SerializeMeta", "given edge data is invalid")
	}
	b, err := d.meta.Serialize()
	if err != nil {
		return nil, err
	}
	observability.RecordMetaBytes(observability.DirectionEncode, len(b))
	return b, nil
}

// DeserializeMeta replaces the metadata with the entries encoded in b.
func (d *Data) DeserializeMeta(b []byte) error {
	if !d.valid() {
		return invalid("edge.Data.DeserializeMeta", "given edge data is invalid")
	}
	if err := d.meta.Deserialize(b); err != nil {
		return err
	}
	observability.RecordMetaBytes(observability.DirectionDecode, len(b))
	return nil
}
