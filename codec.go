// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"bytes"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// AnsiCodec decodes an AnsiStringType substitution payload into UTF-8,
// pluggable because EVTX providers are free to declare any of Windows'
// single/double-byte codepages for their ANSI strings.
type AnsiCodec interface {
	Decode(b []byte) (string, error)
}

type encodingCodec struct {
	enc encoding.Encoding
}

func (c encodingCodec) Decode(b []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", ErrAnsiDecode
	}
	return string(out), nil
}

// NewWindows1252Codec returns the default ANSI codec for EVTX: Windows
// code page 1252, the overwhelmingly common case in the wild.
func NewWindows1252Codec() AnsiCodec {
	return encodingCodec{enc: charmap.Windows1252}
}

// NewCodepageCodec wraps an arbitrary golang.org/x/text encoding as an
// AnsiCodec, so callers with providers declaring another Windows codepage
// are not stuck with 1252.
func NewCodepageCodec(enc encoding.Encoding) AnsiCodec {
	return encodingCodec{enc: enc}
}

// decodeUTF16LE transcodes a borrowed UTF-16LE byte run into a freshly
// allocated UTF-8 string. It is the zero-copy-in/allocate-out counterpart
// of Utf16LeSlice: callers that only need to escape the bytes (emitters)
// never call this; callers that need a Go string (name decode on cache
// miss, Text node materialization) do.
func decodeUTF16LE(s Utf16LeSlice) (string, error) {
	if len(s.Bytes) == 0 {
		return "", nil
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(s.Bytes)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func stripEmbeddedNuls(b []byte) []byte {
	if !bytes.ContainsRune(b, 0) {
		return b
	}
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != 0 {
			out = append(out, c)
		}
	}
	return out
}
