// Package bx holds small little-endian byte <-> integer helpers shared by
// the page store, buffer pool, and record layouts.
package bx

import "encoding/binary"

var LE = binary.LittleEndian

// U32 reads a little-endian uint32 from the start of b.
func U32(b []byte) uint32 { return LE.Uint32(b) }

// PutU32 writes v into b as little-endian.
func PutU32(b []byte, v uint32) { LE.PutUint32(b, v) }

// U32At reads a little-endian uint32 at offset off.
func U32At(b []byte, off int) uint32 { return U32(b[off:]) }

// PutU32At writes v at offset off as little-endian.
func PutU32At(b []byte, off int, v uint32) { PutU32(b[off:], v) }
