// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package spak

import (
	"bytes"
	"io"
	"sync"

	"github.com/pierrec/lz4"
)

// NewBuilder creates a new Builder. Do not fill the Index in
// the header, it will be overwritten anyway.
func NewBuilder(header Header) *Builder {
	header.Index = nil
	return &Builder{header: header}
}

type pendingEntry struct {
	Name       string
	Stage      Stage
	EntryPoint string
	Size       int64
	Compressed []byte
}

// Builder assembles a spak archive. Archives are versioned and cannot
// be appended to, the Builder is the only way to create one. Every
// Add compresses the shader binary immediately, WriteTo bundles the
// index and all entries into the final archive.
type Builder struct {
	header Header

	mutex   sync.Mutex
	entries []pendingEntry
}

// Add appends a compiled shader to the builder. Will block until lz4
// finishes compression. Is safe to use concurrently in different
// goroutines.
func (b *Builder) Add(name string, stage Stage, entryPoint string, data []byte) error {
	var compressed bytes.Buffer
	writer := lz4.NewWriter(&compressed)
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.entries = append(b.entries, pendingEntry{
		Name:       name,
		Stage:      stage,
		EntryPoint: entryPoint,
		Size:       int64(len(data)),
		Compressed: compressed.Bytes(),
	})
	return nil
}

// WriteTo bundles and writes all of the shaders added to the Builder
// into a spak archive that is ready to use.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	var offset int64
	for _, e := range b.entries {
		header.Index = append(header.Index, IndexEntry{
			Name:           e.Name,
			Stage:          e.Stage,
			EntryPoint:     e.EntryPoint,
			Offset:         offset,
			Size:           e.Size,
			CompressedSize: int64(len(e.Compressed)),
		})
		offset += int64(len(e.Compressed))
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, err
	}

	var written int64
	n, err := w.Write(magic[:])
	written += int64(n)
	if err != nil {
		return written, err
	}

	n, err = w.Write(int64ToBinary(int64(len(rawHeader))))
	written += int64(n)
	if err != nil {
		return written, err
	}

	n, err = w.Write(rawHeader)
	written += int64(n)
	if err != nil {
		return written, err
	}

	for _, e := range b.entries {
		n, err := w.Write(e.Compressed)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, nil
}
