package record

import (
	"bytes"

	"github.com/coredbio/reldb/internal/bx"
	"github.com/coredbio/reldb/internal/xerr"
)

// DataType is one of the four column types the core recognizes.
type DataType uint32

const (
	TypeInt DataType = iota
	TypeFloat
	TypeBool
	TypeString
)

func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeBool:
		return "BOOL"
	case TypeString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Attribute is one column of a Schema: a name, a type, and, for STRING,
// a declared fixed byte length (ignored for the other types).
type Attribute struct {
	Name   string
	Type   DataType
	Length int
}

// Size returns the attribute's on-disk byte width.
func (a Attribute) Size() int {
	switch a.Type {
	case TypeInt, TypeFloat:
		return 4
	case TypeBool:
		return 1
	case TypeString:
		return a.Length
	default:
		return 0
	}
}

// Schema is an ordered attribute list plus an informational key index
// list (the core does not enforce key uniqueness).
type Schema struct {
	Attrs []Attribute
	Keys  []int
}

// RecordSize is R, the sum of every attribute's byte width.
func (s Schema) RecordSize() int {
	total := 0
	for _, a := range s.Attrs {
		total += a.Size()
	}
	return total
}

// Offset returns the byte offset of attribute i within a record payload:
// the sum of the sizes of every preceding attribute.
func (s Schema) Offset(i int) int {
	off := 0
	for j := 0; j < i; j++ {
		off += s.Attrs[j].Size()
	}
	return off
}

const (
	maxAttrName = 20
	attrDescSize = maxAttrName + 4 + 4 // name + type tag + length
	headerFixedSize = 4 + 4 + 4 + 4    // numTuples, firstFreePage, recordSize, numAttr
)

// EncodeHeader lays out the schema header page (page 0 of a table file)
// exactly as spec.md §3 describes: numTuples, firstFreePage, recordSize,
// numAttr, then one 28-byte descriptor per attribute, then the key index
// list. buf must be at least HeaderSize(schema) bytes; trailing bytes in
// a full page are left untouched (spec: "all other bytes ... undefined").
func EncodeHeader(buf []byte, numTuples, firstFreePage uint32, schema Schema) error {
	need := HeaderSize(schema)
	if len(buf) < need {
		return xerr.New(xerr.InvalidParam, "header buffer too small: need %d, have %d", need, len(buf))
	}

	bx.PutU32At(buf, 0, numTuples)
	bx.PutU32At(buf, 4, firstFreePage)
	bx.PutU32At(buf, 8, uint32(schema.RecordSize()))
	bx.PutU32At(buf, 12, uint32(len(schema.Attrs)))

	off := headerFixedSize
	for _, a := range schema.Attrs {
		var nameBuf [maxAttrName]byte
		copy(nameBuf[:], a.Name)
		copy(buf[off:off+maxAttrName], nameBuf[:])
		bx.PutU32At(buf, off+maxAttrName, uint32(a.Type))
		bx.PutU32At(buf, off+maxAttrName+4, uint32(a.Length))
		off += attrDescSize
	}

	bx.PutU32At(buf, off, uint32(len(schema.Keys)))
	off += 4
	for _, k := range schema.Keys {
		bx.PutU32At(buf, off, uint32(k))
		off += 4
	}
	return nil
}

// HeaderSize returns the number of header bytes schema requires.
func HeaderSize(schema Schema) int {
	return headerFixedSize + len(schema.Attrs)*attrDescSize + 4 + len(schema.Keys)*4
}

// DecodeHeader is the inverse of EncodeHeader.
func DecodeHeader(buf []byte) (numTuples, firstFreePage, recordSize uint32, schema Schema, err error) {
	if len(buf) < headerFixedSize {
		return 0, 0, 0, Schema{}, xerr.New(xerr.InvalidParam, "header buffer too small")
	}

	numTuples = bx.U32At(buf, 0)
	firstFreePage = bx.U32At(buf, 4)
	recordSize = bx.U32At(buf, 8)
	numAttr := bx.U32At(buf, 12)

	off := headerFixedSize
	attrs := make([]Attribute, 0, numAttr)
	for i := uint32(0); i < numAttr; i++ {
		if off+attrDescSize > len(buf) {
			return 0, 0, 0, Schema{}, xerr.New(xerr.InvalidParam, "truncated attribute descriptor %d", i)
		}
		name := string(bytes.TrimRight(buf[off:off+maxAttrName], "\x00"))
		typ := DataType(bx.U32At(buf, off+maxAttrName))
		length := int(bx.U32At(buf, off+maxAttrName+4))
		attrs = append(attrs, Attribute{Name: name, Type: typ, Length: length})
		off += attrDescSize
	}

	if off+4 > len(buf) {
		return 0, 0, 0, Schema{}, xerr.New(xerr.InvalidParam, "truncated key size")
	}
	keySize := bx.U32At(buf, off)
	off += 4

	keys := make([]int, 0, keySize)
	for i := uint32(0); i < keySize; i++ {
		if off+4 > len(buf) {
			return 0, 0, 0, Schema{}, xerr.New(xerr.InvalidParam, "truncated key index %d", i)
		}
		keys = append(keys, int(bx.U32At(buf, off)))
		off += 4
	}

	schema = Schema{Attrs: attrs, Keys: keys}
	return numTuples, firstFreePage, recordSize, schema, nil
}
