// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

//go:build arm64

package evtx

// findFirstSpecial is the arm64 tuning of the batched scan: the same
// eight-byte lane width a NEON vceqq pass would use. Identical to the
// amd64 file by construction; kept as its own build-tagged file so a real
// intrinsic can be dropped in later without touching the generic fallback.
func findFirstSpecial(b []byte, table *[256]bool) int {
	i := 0
	for ; i+8 <= len(b); i += 8 {
		lane := b[i : i+8 : i+8]
		if !table[lane[0]] && !table[lane[1]] && !table[lane[2]] && !table[lane[3]] &&
			!table[lane[4]] && !table[lane[5]] && !table[lane[6]] && !table[lane[7]] {
			continue
		}
		for j, c := range lane {
			if table[c] {
				return i + j
			}
		}
	}
	for ; i < len(b); i++ {
		if table[b[i]] {
			return i
		}
	}
	return -1
}
