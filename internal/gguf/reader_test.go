package gguf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// buildFixture assembles a minimal valid GGUF byte stream: one string
// metadata key, one F32 tensor of 4 elements, and default 32-byte
// alignment padding.
func buildFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	writeU32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	writeU64 := func(v uint64) { binary.Write(&buf, binary.LittleEndian, v) }
	writeStr := func(s string) {
		writeU64(uint64(len(s)))
		buf.WriteString(s)
	}

	writeU32(magic)
	writeU32(3)   // version
	writeU64(1)   // tensor count
	writeU64(1)   // kv count

	// metadata: "general.name" = "fixture"
	writeStr("general.name")
	writeU32(uint32(typeString))
	writeStr("fixture")

	// tensor descriptor: "weight", 1 dim of 4, F32, offset 0
	writeStr("weight")
	writeU32(1) // n_dims
	writeU64(4) // dims[0]
	writeU32(uint32(ggufF32))
	writeU64(0) // offset

	// pad to 32-byte alignment
	for buf.Len()%32 != 0 {
		buf.WriteByte(0)
	}

	// tensor data: four F32 values 1,2,3,4
	for _, v := range []float32{1, 2, 3, 4} {
		binary.Write(&buf, binary.LittleEndian, v)
	}

	return buf.Bytes()
}

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.gguf")
	if err := os.WriteFile(path, buildFixture(t), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestOpenAndReadTensor(t *testing.T) {
	path := writeFixture(t)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if got := f.KV.String("general.name", ""); got != "fixture" {
		t.Errorf("KV.String(general.name) = %q, want %q", got, "fixture")
	}

	v, err := f.View("weight")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", v.Size())
	}
	for i, want := range []float32{1, 2, 3, 4} {
		if got := v.Get(i); got != want {
			t.Errorf("weight[%d] = %f, want %f", i, got, want)
		}
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.gguf")
	if err := os.WriteFile(path, []byte{0, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected error for bad magic, got nil")
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Errorf("expected *FormatError, got %T: %v", err, err)
	}
}

func TestOpenRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(magic))
	binary.Write(&buf, binary.LittleEndian, uint32(99))
	binary.Write(&buf, binary.LittleEndian, uint64(0))
	binary.Write(&buf, binary.LittleEndian, uint64(0))

	dir := t.TempDir()
	path := filepath.Join(dir, "badversion.gguf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for unsupported version, got nil")
	}
}

func TestMissingTensorIsError(t *testing.T) {
	path := writeFixture(t)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if _, err := f.View("does_not_exist"); err == nil {
		t.Fatal("expected error for missing tensor, got nil")
	}
}

func TestKVRequire(t *testing.T) {
	kv := KV{"a": "x"}
	if err := kv.Require("path", "a"); err != nil {
		t.Errorf("Require(a) = %v, want nil", err)
	}
	if err := kv.Require("path", "b"); err == nil {
		t.Error("Require(b) = nil, want error")
	}
}
