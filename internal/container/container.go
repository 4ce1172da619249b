// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package container handles the outermost EVTX framing: the file header
// and the fixed-size chunk array that follows it. It knows nothing about
// BinXML; it only hands back byte slices, leaving higher-level BinXML
// decoding to the package built on top of it.
package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

const (
	fileMagic      = "ElfFile\x00"
	fileHeaderSize = 4096
	chunkSize      = 0x10000

	fileHeaderChecksummedLen = 120
)

// Errors returned while validating the outer container.
var (
	ErrBadFileMagic       = errors.New("container: bad file magic")
	ErrFileTooSmall       = errors.New("container: file smaller than one header")
	ErrTruncatedChunk     = errors.New("container: trailing bytes do not form a whole chunk")
	ErrHeaderChecksum     = errors.New("container: file header checksum mismatch")
	ErrChunkChecksum      = errors.New("container: chunk checksum mismatch")
)

// FileHeader is the 4096-byte header at the start of every .evtx file.
type FileHeader struct {
	FirstChunkNumber uint64
	LastChunkNumber  uint64
	NextRecordID     uint64
	HeaderSize       uint32
	MinorVersion     uint16
	MajorVersion     uint16
	HeaderBlockSize  uint16
	ChunkCount       uint16
	Flags            uint32
	Checksum         uint32
}

// File is a memory-mapped, parsed .evtx container. Decoding skips straight
// to chunk/record boundaries, and a multi-hundred-MB event log should not
// be copied into the heap up front to do that.
type File struct {
	data   mmap.MMap
	f      *os.File
	Header FileHeader
}

// OpenFile maps path and validates the file header's magic. The header
// checksum is checked separately, by ValidateHeaderChecksum.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	file := &File{data: data, f: f}
	if err := file.parseHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

// NewFromBytes builds a File over an in-memory buffer, for callers who
// already have the bytes (tests, or data read from somewhere other than a
// local path).
func NewFromBytes(data []byte) (*File, error) {
	file := &File{data: mmap.MMap(data)}
	if err := file.parseHeader(); err != nil {
		return nil, err
	}
	return file, nil
}

func (file *File) parseHeader() error {
	if len(file.data) < fileHeaderSize {
		return ErrFileTooSmall
	}
	if string(file.data[:8]) != fileMagic {
		return ErrBadFileMagic
	}
	b := file.data
	h := FileHeader{
		FirstChunkNumber: binary.LittleEndian.Uint64(b[8:16]),
		LastChunkNumber:  binary.LittleEndian.Uint64(b[16:24]),
		NextRecordID:     binary.LittleEndian.Uint64(b[24:32]),
		HeaderSize:       binary.LittleEndian.Uint32(b[32:36]),
		MinorVersion:     binary.LittleEndian.Uint16(b[36:38]),
		MajorVersion:     binary.LittleEndian.Uint16(b[38:40]),
		HeaderBlockSize:  binary.LittleEndian.Uint16(b[40:42]),
		ChunkCount:       binary.LittleEndian.Uint16(b[42:44]),
		Flags:            binary.LittleEndian.Uint32(b[fileHeaderChecksummedLen+4 : fileHeaderChecksummedLen+8]),
		Checksum:         binary.LittleEndian.Uint32(b[fileHeaderChecksummedLen : fileHeaderChecksummedLen+4]),
	}
	file.Header = h
	return nil
}

// ValidateHeaderChecksum recomputes the CRC32 over the header's
// checksummed region and compares it against the stored value.
func (file *File) ValidateHeaderChecksum() error {
	got := crc32.ChecksumIEEE(file.data[:fileHeaderChecksummedLen])
	if got != file.Header.Checksum {
		return ErrHeaderChecksum
	}
	return nil
}

// ChunkCount returns how many 64KiB chunks follow the file header.
func (file *File) ChunkCount() int {
	return (len(file.data) - fileHeaderSize) / chunkSize
}

// Chunk returns the raw bytes of chunk i (0-based).
func (file *File) Chunk(i int) ([]byte, error) {
	start := fileHeaderSize + i*chunkSize
	end := start + chunkSize
	if end > len(file.data) {
		return nil, fmt.Errorf("container: chunk %d out of range: %w", i, ErrTruncatedChunk)
	}
	return file.data[start:end], nil
}

// Chunks returns every chunk's raw bytes in order.
func (file *File) Chunks() ([][]byte, error) {
	n := file.ChunkCount()
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		c, err := file.Chunk(i)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Close unmaps the file.
func (file *File) Close() error {
	var err error
	if file.data != nil {
		err = file.data.Unmap()
	}
	if file.f != nil {
		if cerr := file.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
