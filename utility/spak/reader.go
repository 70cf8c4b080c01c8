// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package spak

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4"
)

// Open opens the spak archive from r. It will also check
// if the file is actually a spak archive, will return an error
// when the file is incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	head := make([]byte, MagicLength)
	if num, err := r.ReadAt(head, 0); err != nil {
		return nil, err
	} else if num < MagicLength || !bytes.Equal(head, magic[:]) {
		return nil, ErrFileFormat
	}

	sizeBytes := make([]byte, HeaderSizeNumberLength)
	if num, err := r.ReadAt(sizeBytes, MagicLength); err != nil {
		return nil, err
	} else if num < HeaderSizeNumberLength {
		return nil, ErrFileFormat
	}
	headerSize := binaryToInt64(sizeBytes)
	if headerSize <= 0 {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, MagicLength+HeaderSizeNumberLength); err != nil {
		return nil, err
	} else if int64(num) < headerSize {
		return nil, ErrFileFormat
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, ErrFileFormat
	}

	return &Archive{
		reader:    r,
		header:    header,
		dataStart: MagicLength + HeaderSizeNumberLength + headerSize,
	}, nil
}

// Archive provides concurrent io for a spak file, and can provide
// an io.Reader for each shader separately to stream it out.
type Archive struct {
	reader    io.ReaderAt
	header    Header
	dataStart int64
}

// Index returns the archive index.
func (a *Archive) Index() []IndexEntry {
	return a.header.Index
}

// Entry returns index info for a named shader.
func (a *Archive) Entry(name string) (IndexEntry, error) {
	for _, e := range a.header.Index {
		if e.Name == name {
			return e, nil
		}
	}
	return IndexEntry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ReadAll returns the entire decompressed contents of a shader with a
// given name.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	reader, err := a.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != reader.entry.Size {
		return nil, ErrFileFormat
	}
	return data, nil
}

// Open returns a Reader for a shader in the Archive.
func (a *Archive) Open(name string) (*Reader, error) {
	entry, err := a.Entry(name)
	if err != nil {
		return nil, err
	}

	section := io.NewSectionReader(a.reader, a.dataStart+entry.Offset, entry.CompressedSize)
	return &Reader{
		inner: lz4.NewReader(section),
		entry: entry,
	}, nil
}

// Reader streams a single decompressed shader out of an Archive.
// Abstracts away the location that needs to be known.
type Reader struct {
	inner io.Reader
	entry IndexEntry
}

// Entry returns the index info of the shader being read.
func (r *Reader) Entry() IndexEntry {
	return r.entry
}

// Read reads already decompressed data
func (r *Reader) Read(p []byte) (int, error) {
	return r.inner.Read(p)
}
