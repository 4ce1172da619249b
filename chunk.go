// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"github.com/saferwall/evtx/log"
)

const (
	chunkMagic     = "ElfChnk\x00"
	chunkHeaderLen = 512
)

// ChunkHeader is the fixed 512-byte header at the start of every chunk
//: magic, first/last record numbers and ids, the
// free-space offset, 64 string cache bucket offsets, 32 template table
// bucket offsets, and a CRC32 covering the header itself.
type ChunkHeader struct {
	Magic                 [8]byte
	FileFirstRecordNumber uint64
	FileLastRecordNumber  uint64
	LogFirstRecordNumber  uint64
	LogLastRecordNumber   uint64
	HeaderSize            uint32
	LastRecordOffset      uint32
	FreeSpaceOffset       uint32
	EventRecordsChecksum  uint32
	Flags                 uint32
	Checksum              uint32
	StringBucketOffsets   [64]uint32
	TemplateBucketOffsets [32]uint32
}

// ParseChunkHeader reads a ChunkHeader from the start of data (data must be
// the full chunk, i.e. chunk-relative offsets elsewhere in this package are
// relative to data[0]).
func ParseChunkHeader(data []byte) (ChunkHeader, error) {
	var h ChunkHeader
	c := NewCursor(data)

	magic, err := c.ReadBytes(8)
	if err != nil {
		return h, err
	}
	copy(h.Magic[:], magic)
	if string(h.Magic[:]) != chunkMagic {
		return h, ErrBadChunkMagic
	}

	for _, f := range []*uint64{&h.FileFirstRecordNumber, &h.FileLastRecordNumber, &h.LogFirstRecordNumber, &h.LogLastRecordNumber} {
		v, err := c.ReadU64()
		if err != nil {
			return h, err
		}
		*f = v
	}
	for _, f := range []*uint32{&h.HeaderSize, &h.LastRecordOffset, &h.FreeSpaceOffset, &h.EventRecordsChecksum} {
		v, err := c.ReadU32()
		if err != nil {
			return h, err
		}
		*f = v
	}
	// 64 bytes reserved/unknown (56..120) precede the flags and checksum at
	// 120 and 124; the string bucket table starts at 128, followed by the
	// template bucket table. The flags/checksum pair is read after the
	// tables.
	c.Seek(128)
	for i := range h.StringBucketOffsets {
		v, err := c.ReadU32()
		if err != nil {
			return h, err
		}
		h.StringBucketOffsets[i] = v
	}
	for i := range h.TemplateBucketOffsets {
		v, err := c.ReadU32()
		if err != nil {
			return h, err
		}
		h.TemplateBucketOffsets[i] = v
	}
	c.Seek(120)
	flags, err := c.ReadU32()
	if err != nil {
		return h, err
	}
	h.Flags = flags
	checksum, err := c.ReadU32()
	if err != nil {
		return h, err
	}
	h.Checksum = checksum

	return h, nil
}

// ChunkContext is the per-chunk decoding environment threaded through
// DecodeValue, Decode, and the instantiator: the chunk's raw bytes plus its
// two caches and the codec/logger needed to resolve names, templates, and
// ANSI strings. A ChunkContext is built once per chunk and is never shared
// across chunks.
type ChunkContext struct {
	Data          []byte
	Header        ChunkHeader
	StringCache   *StringCache
	TemplateCache *TemplateCache
	AnsiCodec     AnsiCodec
	Logger        *log.Helper
}

// NewChunkContext parses the chunk header out of data and builds the string
// cache eagerly; the template cache is built lazily, on first reference,
// by TemplateCache.GetOrParse.
func NewChunkContext(data []byte, codec AnsiCodec, logger *log.Helper) (*ChunkContext, error) {
	hdr, err := ParseChunkHeader(data)
	if err != nil {
		return nil, err
	}
	cc := &ChunkContext{
		Data:      data,
		Header:    hdr,
		AnsiCodec: codec,
		Logger:    logger,
	}
	sc := NewStringCache(data, logger)
	if err := sc.BuildStringCache(hdr.StringBucketOffsets); err != nil {
		return nil, err
	}
	cc.StringCache = sc
	cc.TemplateCache = NewTemplateCache(cc)
	return cc, nil
}

// EvtxChunk pairs a ChunkContext with record-iteration state: chunk header
// already parsed, records decoded on pull rather than all at once.
type EvtxChunk struct {
	Context *ChunkContext
}

// NewEvtxChunk builds the decoding context for one 64KiB chunk.
func NewEvtxChunk(data []byte, codec AnsiCodec, logger *log.Helper) (*EvtxChunk, error) {
	cc, err := NewChunkContext(data, codec, logger)
	if err != nil {
		return nil, err
	}
	return &EvtxChunk{Context: cc}, nil
}

// Records returns a pull-based iterator over every record
// between the chunk header and FreeSpaceOffset. next returns (nil, false)
// once the chunk is exhausted or the first unrecoverable header error is
// hit; a per-record body decode error is instead carried inside the
// Record's own Render methods, so one bad
// record does not stop iteration over the rest.
func (ch *EvtxChunk) Records() func() (*Record, bool, error) {
	offset := uint32(chunkHeaderLen)
	free := ch.Context.Header.FreeSpaceOffset
	done := false
	return func() (*Record, bool, error) {
		if done || offset >= free {
			return nil, false, nil
		}
		rec, next, err := ParseRecord(ch.Context, offset)
		if err != nil {
			done = true
			return nil, false, err
		}
		offset = next
		return rec, true, nil
	}
}
