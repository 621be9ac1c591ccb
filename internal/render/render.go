// Package render turns metadata blobs into human and machine readable
// reports for the edgectl tool and the inspection service.
//
// CBOR output uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// report always produces the same bytes. Report fields carry json tags,
// which the CBOR encoder reads as a fallback.
package render

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/edgexchange/internal/edge"
	"github.com/danmuck/edgexchange/internal/protocol/metadata"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

var ErrUnknownFormat = errors.New("render: unknown format")

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatText, FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Report describes one metadata blob. Count is the number of distinct
// entries after decoding; Declared is the pair count in the blob header.
// They differ when the blob repeats a key.
type Report struct {
	Count    int              `json:"count" yaml:"count"`
	Declared int              `json:"declared" yaml:"declared"`
	Size     int              `json:"size" yaml:"size"`
	Digest   string           `json:"digest" yaml:"digest"`
	Entries  []metadata.Entry `json:"entries" yaml:"entries"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("render: CBOR encoder initialization failed: " + err.Error())
	}
}

// Digest returns the hex BLAKE3-256 digest of b.
func Digest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Decode parses blob through an edge data handle and reports its entries in
// wire order.
func Decode(blob []byte) (Report, error) {
	d := edge.NewData()
	defer d.Destroy()

	if err := d.DeserializeMeta(blob); err != nil {
		return Report{}, err
	}
	entries, err := d.Metadata()
	if err != nil {
		return Report{}, err
	}
	r := NewReport(blob, entries)
	r.Declared = int(binary.NativeEndian.Uint32(blob[:metadata.CountSize]))
	return r, nil
}

// Encode builds a blob from entries given oldest first, so the last entry
// is first on the wire.
func Encode(entries []metadata.Entry) ([]byte, error) {
	d := edge.NewData()
	defer d.Destroy()

	for _, e := range entries {
		if err := d.SetInfo(e.Key, e.Value); err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Key, err)
		}
	}
	return d.SerializeMeta()
}

func NewReport(blob []byte, entries []metadata.Entry) Report {
	if entries == nil {
		entries = []metadata.Entry{}
	}
	return Report{
		Count:    len(entries),
		Declared: len(entries),
		Size:     len(blob),
		Digest:   Digest(blob),
		Entries:  entries,
	}
}

// Write renders r to w in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatText, "":
		return writeText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		b, err := encMode.Marshal(r)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

func writeText(w io.Writer, r Report) error {
	if _, err := fmt.Fprintf(w, "entries=%d declared=%d size=%d blake3=%s\n", r.Count, r.Declared, r.Size, r.Digest); err != nil {
		return err
	}
	for _, e := range r.Entries {
		if _, err := fmt.Fprintf(w, "%s=%s\n", e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}
