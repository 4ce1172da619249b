// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

//go:build amd64

package evtx

// findFirstSpecial scans b eight bytes at a time, the lane width a real
// SSE2 pcmpistri pass would use, checking each lane against table before
// falling back to the byte-exact loop for the tail. This is the amd64
// tuning of the batched scan; the result must always agree with the
// generic scalar loop.
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
