// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package spak is an lz4 backed container for compiled SPIR-V
// shaders. The archive itself is not compressed, every shader binary
// is compressed individually, so any entry can be located through the
// index and decompressed on the fly without touching the rest of the
// file. It is designed to get shader binaries from disk to the device
// as directly as possible and can be read from concurrently.
package spak

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
)

// package errors
var (
	ErrFileFormat = errors.New("corrupted or not a spak archive")
	ErrNotFound   = errors.New("no such entry in archive")
)

// Sizes relevant to the header of the file
const (
	MagicLength            = 4
	HeaderSizeNumberLength = 8
)

var magic = [MagicLength]byte{'S', 'P', 'K', '\x00'}

// Stage identifies the pipeline stage a shader binary targets.
type Stage int

// Shader stages carried by archive entries.
const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// IndexEntry is info for one shader in the archive index. Offset is
// relative to the end of the header area.
type IndexEntry struct {
	Name           string
	Stage          Stage
	EntryPoint     string
	Offset         int64
	Size           int64
	CompressedSize int64
}

// Header is the archive header for spak files.
type Header struct {
	Tool        string
	DateCreated int64
	Version     int64
	Index       []IndexEntry
}

func gobEncode(data interface{}) ([]byte, error) {
	var encoded bytes.Buffer
	enc := gob.NewEncoder(&encoded)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}

func gobDecode(obj interface{}, bts []byte) error {
	return gob.NewDecoder(bytes.NewReader(bts)).Decode(obj)
}

func int64ToBinary(num int64) []byte {
	buf := make([]byte, HeaderSizeNumberLength)
	binary.LittleEndian.PutUint64(buf, uint64(num))
	return buf
}

func binaryToInt64(bts []byte) int64 {
	return int64(binary.LittleEndian.Uint64(bts))
}
