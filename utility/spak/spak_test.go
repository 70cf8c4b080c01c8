// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package spak_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/devblok/maru/utility/spak"
)

var (
	testShader1 = bytes.Repeat([]byte{0x03, 0x02, 0x23, 0x07, 0xaa, 0x10}, 64)
	testShader2 = bytes.Repeat([]byte{0x03, 0x02, 0x23, 0x07, 0x5e, 0x22, 0x91}, 128)
)

func buildArchive(t *testing.T) []byte {
	t.Helper()

	builder := spak.NewBuilder(spak.Header{
		Tool:        "spak_test",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err := builder.Add("default.vert", spak.StageVertex, "main", testShader1); err != nil {
		t.Fatal(err)
	}
	if err := builder.Add("default.frag", spak.StageFragment, "main", testShader2); err != nil {
		t.Fatal(err)
	}

	buf := bytes.NewBuffer([]byte{})
	written, err := builder.WriteTo(buf)
	if err != nil {
		t.Fatal(err)
	}
	if written != int64(buf.Len()) {
		t.Errorf("reported %d written, buffer has %d", written, buf.Len())
	}
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	data := buildArchive(t)

	ar, err := spak.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	if len(ar.Index()) != 2 {
		t.Fatalf("expected 2 index entries, got %d", len(ar.Index()))
	}

	f, err := ar.Open("default.vert")
	if err != nil {
		t.Fatal(err)
	}
	if f.Entry().Stage != spak.StageVertex {
		t.Errorf("wrong stage %s", f.Entry().Stage)
	}
	if f.Entry().EntryPoint != "main" {
		t.Errorf("wrong entry point %s", f.Entry().EntryPoint)
	}

	result, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(result, testShader1) {
		t.Error("decompressed shader does not match up")
	}
}

func TestReadAll(t *testing.T) {
	data := buildArchive(t)

	ar, err := spak.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	result, err := ar.ReadAll("default.frag")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(result, testShader2) {
		t.Error("decompressed shader does not match up")
	}
}

func TestNotFound(t *testing.T) {
	data := buildArchive(t)

	ar, err := spak.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ar.Open("missing.vert"); !errors.Is(err, spak.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := ar.ReadAll("missing.vert"); !errors.Is(err, spak.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := spak.Open(bytes.NewReader([]byte("KAR\x00not a spak archive at all"))); !errors.Is(err, spak.ErrFileFormat) {
		t.Errorf("expected ErrFileFormat, got %v", err)
	}
}

func TestConcurrentReads(t *testing.T) {
	data := buildArchive(t)

	ar, err := spak.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			result, err := ar.ReadAll("default.vert")
			if err == nil && !bytes.Equal(result, testShader1) {
				err = errors.New("decompressed shader does not match up")
			}
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Error(err)
		}
	}
}
