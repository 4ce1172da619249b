// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

//go:build !amd64 && !arm64

package evtx

// findFirstSpecial is the scalar, byte-at-a-time fallback: the
// authoritative definition every arch-tuned variant must match.
func findFirstSpecial(b []byte, table *[256]bool) int {
	for i, c := range b {
		if table[c] {
			return i
		}
	}
	return -1
}
