// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package cpuid reports which batched escape path the
// running binary was built with and, where golang.org/x/sys/cpu can tell
// us, whether the host could in principle run a true SIMD version of it.
// It is informational only: the active path is chosen at compile time by
// build tag (simd_escape_amd64.go / simd_escape_arm64.go /
// simd_escape_generic.go), never switched at runtime.
package cpuid

import "golang.org/x/sys/cpu"

// EscapePath names the build-tag-selected batched-scan implementation
// compiled into this binary.
func EscapePath() string {
	return escapePath
}

// HostSupportsSIMD reports whether the CPU this process is running on
// exposes the vector extensions the compiled escape path is modeled
// after (SSE2 on amd64, ASIMD/NEON on arm64). It does not change which
// code runs; it exists so a diagnostics command can warn when the build
// and the host disagree.
func HostSupportsSIMD() bool {
	return cpu.X86.HasSSE2 || cpu.ARM64.HasASIMD
}
