// Package vm implements the Oriole runtime core.
//
// This package contains:
//   - Tagged-union value representation with per-kind copy semantics
//   - Type descriptors and the arena stores they intern into
//   - Bit-packed 64-bit instruction encoding
//   - Reference-counted shared cells with cycle collection
//   - Compiled functions, packages, closures and capture cells
//   - Image serialization for compiled programs
package vm
