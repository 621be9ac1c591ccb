package edge

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/edgexchange/internal/protocol"
	"github.com/danmuck/edgexchange/internal/protocol/metadata"
	"github.com/danmuck/edgexchange/internal/testutil/testlog"
)

type releaseCounter struct {
	calls map[string]int
}

func newReleaseCounter() *releaseCounter {
	return &releaseCounter{calls: make(map[string]int)}
}

func (r *releaseCounter) fn() ReleaseFunc {
	return func(buf []byte) {
		r.calls[string(buf)]++
	}
}

func requireInvalid(t *testing.T, what string, err error) {
	t.Helper()
	if !errors.Is(err, protocol.ErrInvalidParameter) {
		t.Fatalf("%s: expected invalid parameter, got %v", what, err)
	}
	if protocol.CodeOf(err) != protocol.CodeInvalidParameter {
		t.Fatalf("%s: unexpected code %v", what, protocol.CodeOf(err))
	}
}

func TestDataHelloWorldScenario(t *testing.T) {
	testlog.Start(t)

	d := NewData()
	if err := d.Add([]byte("hello"), nil); err != nil {
		t.Fatalf("add hello: %v", err)
	}
	if err := d.Add([]byte("world!"), nil); err != nil {
		t.Fatalf("add world: %v", err)
	}
	n, err := d.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 buffers, got %d", n)
	}
	buf, err := d.Get(0)
	if err != nil {
		t.Fatalf("get 0: %v", err)
	}
	if string(buf) != "hello" || len(buf) != 5 {
		t.Fatalf("unexpected buffer 0: %q", buf)
	}
	if err := d.SetInfo("format", "raw"); err != nil {
		t.Fatalf("set info: %v", err)
	}
	meta, err := d.SerializeMeta()
	if err != nil {
		t.Fatalf("serialize meta: %v", err)
	}
	if len(meta) != 4+(6+1)+(3+1) {
		t.Fatalf("expected 15 bytes, got %d", len(meta))
	}
	if err := d.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
}

func TestDataCapacityBoundary(t *testing.T) {
	testlog.Start(t)

	d := NewData()
	defer d.Destroy()

	for i := 0; i < DataLimit; i++ {
		if err := d.Add([]byte{byte(i)}, nil); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	requireInvalid(t, "add past limit", d.Add([]byte("overflow"), nil))

	n, _ := d.Count()
	if n != DataLimit {
		t.Fatalf("count exceeded limit: %d", n)
	}
}

func TestDataAddRejectsEmptyBuffer(t *testing.T) {
	testlog.Start(t)

	d := NewData()
	defer d.Destroy()

	rc := newReleaseCounter()
	requireInvalid(t, "nil buffer", d.Add(nil, rc.fn()))
	requireInvalid(t, "empty buffer", d.Add([]byte{}, rc.fn()))
	if n, _ := d.Count(); n != 0 {
		t.Fatalf("failed add changed count: %d", n)
	}
	if len(rc.calls) != 0 {
		t.Fatalf("release ran for rejected buffers: %v", rc.calls)
	}
}

func TestDataDestroyReleasesOwnedBuffersOnce(t *testing.T) {
	testlog.Start(t)

	rc := newReleaseCounter()
	d := NewData()
	_ = d.Add([]byte("owned-a"), rc.fn())
	_ = d.Add([]byte("borrowed"), nil)
	_ = d.Add([]byte("owned-b"), rc.fn())

	if len(rc.calls) != 0 {
		t.Fatalf("release ran before destroy: %v", rc.calls)
	}
	if err := d.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if rc.calls["owned-a"] != 1 || rc.calls["owned-b"] != 1 {
		t.Fatalf("expected one release per owned buffer: %v", rc.calls)
	}
	if _, ok := rc.calls["borrowed"]; ok {
		t.Fatalf("borrowed buffer was released")
	}

	requireInvalid(t, "second destroy", d.Destroy())
	if rc.calls["owned-a"] != 1 || rc.calls["owned-b"] != 1 {
		t.Fatalf("release ran again on second destroy: %v", rc.calls)
	}
}

func TestDataGetOutOfRange(t *testing.T) {
	testlog.Start(t)

	d := NewData()
	defer d.Destroy()
	_ = d.Add([]byte("x"), nil)

	_, err := d.Get(1)
	requireInvalid(t, "get past count", err)
	_, err = d.Get(-1)
	requireInvalid(t, "negative index", err)
}

func TestDataGetIsBorrowedView(t *testing.T) {
	testlog.Start(t)

	d := NewData()
	defer d.Destroy()

	src := []byte("view")
	_ = d.Add(src, nil)
	got, _ := d.Get(0)
	got[0] = 'V'
	if src[0] != 'V' {
		t.Fatalf("expected Get to return the stored buffer, not a copy")
	}
}

func TestDataInfoCaseInsensitive(t *testing.T) {
	testlog.Start(t)

	d := NewData()
	defer d.Destroy()

	if err := d.SetInfo("Key", "v1"); err != nil {
		t.Fatalf("set info: %v", err)
	}
	v, err := d.Info("key")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if v != "v1" {
		t.Fatalf("unexpected value %q", v)
	}

	requireInvalid(t, "empty key", d.SetInfo("", "v"))
	requireInvalid(t, "empty value", d.SetInfo("k", ""))
	_, err = d.Info("")
	requireInvalid(t, "info empty key", err)
	_, err = d.Info("missing")
	requireInvalid(t, "info missing key", err)
}

func TestDataCopyIndependence(t *testing.T) {
	testlog.Start(t)

	rc := newReleaseCounter()
	d := NewData()
	_ = d.Add([]byte("payload"), rc.fn())
	_ = d.SetInfo("format", "raw")

	c, err := d.Copy()
	if err != nil {
		t.Fatalf("copy: %v", err)
	}

	buf, _ := c.Get(0)
	if !bytes.Equal(buf, []byte("payload")) {
		t.Fatalf("copied buffer mismatch: %q", buf)
	}
	buf[0] = 'P'
	_ = c.SetInfo("format", "jpeg")
	_ = c.SetInfo("extra", "1")
	_ = c.Add([]byte("more"), nil)

	orig, _ := d.Get(0)
	if string(orig) != "payload" {
		t.Fatalf("source buffer mutated through copy: %q", orig)
	}
	if v, _ := d.Info("format"); v != "raw" {
		t.Fatalf("source metadata mutated through copy: %q", v)
	}
	if _, err := d.Info("extra"); err == nil {
		t.Fatalf("copy metadata leaked into source")
	}
	if n, _ := d.Count(); n != 1 {
		t.Fatalf("source count changed: %d", n)
	}

	// The copy owns plain buffers; the custom release stays with the source.
	if err := c.Destroy(); err != nil {
		t.Fatalf("destroy copy: %v", err)
	}
	if len(rc.calls) != 0 {
		t.Fatalf("custom release ran for the copy: %v", rc.calls)
	}
	if err := d.Destroy(); err != nil {
		t.Fatalf("destroy source: %v", err)
	}
	if rc.calls["payload"] != 1 {
		t.Fatalf("expected source release once: %v", rc.calls)
	}
}

func TestDataCopyPreservesMetadataOrder(t *testing.T) {
	testlog.Start(t)

	d := NewData()
	defer d.Destroy()
	_ = d.SetInfo("a", "1")
	_ = d.SetInfo("b", "2")

	c, err := d.Copy()
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	defer c.Destroy()

	want, _ := d.SerializeMeta()
	got, _ := c.SerializeMeta()
	if !bytes.Equal(got, want) {
		t.Fatalf("copy metadata encodes differently:\n got=%v\nwant=%v", got, want)
	}
}

func TestDataSerializeDeserializeMeta(t *testing.T) {
	testlog.Start(t)

	src := NewData()
	defer src.Destroy()
	_ = src.SetInfo("a", "1")
	_ = src.SetInfo("b", "2")
	blob, err := src.SerializeMeta()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	dst := NewData()
	defer dst.Destroy()
	if err := dst.DeserializeMeta(blob); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	entries, err := dst.Metadata()
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "b" || entries[1].Key != "a" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	empty := NewData()
	defer empty.Destroy()
	b, err := empty.SerializeMeta()
	if err != nil || b != nil {
		t.Fatalf("expected nil blob for empty metadata, got %v %v", b, err)
	}
	requireInvalid(t, "deserialize empty", dst.DeserializeMeta(nil))
}

func TestDataOperationsAfterDestroy(t *testing.T) {
	testlog.Start(t)

	d := NewData()
	_ = d.Add([]byte("x"), nil)
	_ = d.SetInfo("k", "v")
	if err := d.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	assertDataLockedOut(t, d)
}

func TestDataNilHandle(t *testing.T) {
	testlog.Start(t)

	var d *Data
	assertDataLockedOut(t, d)
}

func assertDataLockedOut(t *testing.T, d *Data) {
	t.Helper()

	requireInvalid(t, "IsValid", d.IsValid())
	requireInvalid(t, "Destroy", d.Destroy())
	_, err := d.Copy()
	requireInvalid(t, "Copy", err)
	requireInvalid(t, "Add", d.Add([]byte("y"), nil))
	_, err = d.Get(0)
	requireInvalid(t, "Get", err)
	_, err = d.Count()
	requireInvalid(t, "Count", err)
	requireInvalid(t, "SetInfo", d.SetInfo("k", "v"))
	_, err = d.Info("k")
	requireInvalid(t, "Info", err)
	_, err = d.Metadata()
	requireInvalid(t, "Metadata", err)
	_, err = d.SerializeMeta()
	requireInvalid(t, "SerializeMeta", err)
	requireInvalid(t, "DeserializeMeta", d.DeserializeMeta([]byte{0, 0, 0, 0}))
}

func TestFreeScrubsBuffer(t *testing.T) {
	testlog.Start(t)

	buf := []byte("secret")
	Free(buf)
	if !bytes.Equal(buf, make([]byte, 6)) {
		t.Fatalf("expected zeroed buffer, got %v", buf)
	}
}

func TestDataCopyMetadataFailureReturnsPartialHandle(t *testing.T) {
	testlog.Start(t)

	prev := copyMeta
	copyMeta = func(dest, src *metadata.Store) error {
		return protocol.InvalidParameter("metadata.Copy", "forced failure")
	}
	t.Cleanup(func() { copyMeta = prev })

	rc := newReleaseCounter()
	d := NewData()
	_ = d.Add([]byte("payload"), rc.fn())
	_ = d.SetInfo("format", "raw")

	c, err := d.Copy()
	requireInvalid(t, "copy", err)
	if c == nil {
		t.Fatalf("expected partial handle alongside the error")
	}
	if n, err := c.Count(); err != nil || n != 1 {
		t.Fatalf("partial handle should carry copied buffers: n=%d err=%v", n, err)
	}
	if _, err := c.Info("format"); err == nil {
		t.Fatalf("partial handle should have no metadata")
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("destroy partial handle: %v", err)
	}
	if len(rc.calls) != 0 {
		t.Fatalf("custom release ran for the partial handle: %v", rc.calls)
	}
	if err := d.Destroy(); err != nil {
		t.Fatalf("destroy source: %v", err)
	}
	if rc.calls["payload"] != 1 {
		t.Fatalf("expected source release once: %v", rc.calls)
	}
}
