// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"github.com/saferwall/evtx/internal/container"
	"github.com/saferwall/evtx/log"
)

// File represents one open .evtx log: a memory-mapped container plus the
// options and logger needed to decode it on demand, generalized from a
// single mapped image to a sequence of independent chunks.
type File struct {
	container *container.File
	settings  ParserSettings
	codec     AnsiCodec
	logger    *log.Helper
}

// New opens name, memory-maps it, and validates the outer file header.
func New(name string, settings ParserSettings) (*File, error) {
	c, err := container.OpenFile(name)
	if err != nil {
		return nil, err
	}
	return newFile(c, settings)
}

// NewBytes builds a File over an in-memory buffer.
func NewBytes(data []byte, settings ParserSettings) (*File, error) {
	c, err := container.NewFromBytes(data)
	if err != nil {
		return nil, err
	}
	return newFile(c, settings)
}

func newFile(c *container.File, settings ParserSettings) (*File, error) {
	var logger log.Logger = log.NewStdLogger()
	helper := log.NewHelper(log.NewFilter(logger, log.FilterLevel(log.LevelError)))

	if settings.ValidateChecksums {
		if err := c.ValidateHeaderChecksum(); err != nil {
			c.Close()
			return nil, err
		}
	}

	return &File{
		container: c,
		settings:  settings,
		codec:     settings.codec(),
		logger:    helper,
	}, nil
}

// ChunkCount reports how many chunks the container holds.
func (f *File) ChunkCount() int { return f.container.ChunkCount() }

// Chunk returns the parsed decoding context for chunk i.
func (f *File) Chunk(i int) (*EvtxChunk, error) {
	raw, err := f.container.Chunk(i)
	if err != nil {
		return nil, err
	}
	return NewEvtxChunk(raw, f.codec, f.logger)
}

// Records returns a single pull-based iterator over every record in the
// file, chunk by chunk in order.
func (f *File) Records() func() (*Record, bool, error) {
	chunkIdx := 0
	var cur func() (*Record, bool, error)
	return func() (*Record, bool, error) {
		for {
			if cur == nil {
				if chunkIdx >= f.ChunkCount() {
					return nil, false, nil
				}
				ch, err := f.Chunk(chunkIdx)
				chunkIdx++
				if err != nil {
					return nil, false, err
				}
				cur = ch.Records()
			}
			rec, ok, err := cur()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				cur = nil
				continue
			}
			return rec, true, nil
		}
	}
}

// Close unmaps the underlying file.
func (f *File) Close() error {
	return f.container.Close()
}
