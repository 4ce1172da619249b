// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

// StringCache is the per-chunk interned name table. It
// is built once per chunk by walking the 64 bucket linked lists in the
// chunk header: each bucket offset is the head of a linked list of name
// records that must be walked to populate the flat hash-bucketed table.
type StringCache struct {
	data    []byte
	names   map[uint32]string
	logger  helperLogger
}

// NewStringCache allocates an empty cache over chunk. Use BuildStringCache
// to populate it from the chunk header's bucket offsets.
func NewStringCache(chunkData []byte, logger helperLogger) *StringCache {
	return &StringCache{data: chunkData, names: make(map[uint32]string), logger: logger}
}

// parseNameRecordsFrom walks one bucket's linked list of name records,
// each laid out on disk as: u32 next_offset, u16 hash, u16 char_count,
// UTF-16LE bytes, u16 NUL.
func (sc *StringCache) parseNameRecordsFrom(startOffset uint32) error {
	offset := startOffset
	seen := make(map[uint32]bool)
	for offset != 0 {
		if seen[offset] {
			// A corrupted chunk could cycle the linked list; bail out
			// rather than loop forever. This is a chunk-level anomaly, not
			// a fatal error for the whole chunk.
			if sc.logger != nil {
				sc.logger.Warnf("string cache: cyclic bucket list at offset %#x", offset)
			}
			return nil
		}
		seen[offset] = true

		c := NewCursorAt(sc.data, offset)
		next, err := c.ReadU32()
		if err != nil {
			return err
		}
		if _, err := c.ReadU16(); err != nil { // hash, unused by the cache
			return err
		}
		charCount, err := c.ReadU16()
		if err != nil {
			return err
		}
		u16s, err := c.ReadUTF16LEByCount(int(charCount))
		if err != nil {
			return err
		}
		if _, err := c.ReadU16(); err != nil { // trailing NUL
			return err
		}
		name, err := decodeUTF16LE(u16s)
		if err != nil {
			return err
		}
		sc.names[offset] = name
		offset = next
	}
	return nil
}

// BuildStringCache walks all 64 bucket head offsets from the chunk header,
// populating the cache with every reachable name record.
func (sc *StringCache) BuildStringCache(bucketOffsets [64]uint32) error {
	for _, off := range bucketOffsets {
		if off == 0 {
			continue
		}
		if err := sc.parseNameRecordsFrom(off); err != nil {
			return err
		}
	}
	return nil
}

// Lookup resolves a BinXML name reference (a chunk-relative byte offset) to
// its UTF-8 name. On a cache miss — a corrupted header, or an inline name
// embedded directly in a template body rather than registered in a bucket —
// it falls back to decoding the name record at that offset on the spot.
func (sc *StringCache) Lookup(offset uint32) (string, error) {
	if name, ok := sc.names[offset]; ok {
		return name, nil
	}
	c := NewCursorAt(sc.data, offset)
	if _, err := c.ReadU32(); err != nil { // next_offset, ignored here
		return "", err
	}
	if _, err := c.ReadU16(); err != nil { // hash
		return "", err
	}
	charCount, err := c.ReadU16()
	if err != nil {
		return "", err
	}
	u16s, err := c.ReadUTF16LEByCount(int(charCount))
	if err != nil {
		return "", err
	}
	name, err := decodeUTF16LE(u16s)
	if err != nil {
		return "", err
	}
	sc.names[offset] = name
	return name, nil
}

// helperLogger is the minimal logging surface stringcache/templatecache
// need; *log.Helper satisfies it without this package importing the log
// subpackage directly (it is imported at the Chunk/File boundary instead,
// exactly as pe.File holds a *log.Helper set up once in New/NewBytes).
type helperLogger interface {
	Warnf(format string, args ...interface{})
	Warn(args ...interface{})
	Debugf(format string, args ...interface{})
}
