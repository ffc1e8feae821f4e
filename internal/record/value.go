package record

import (
	"math"

	"github.com/coredbio/reldb/internal/bx"
	"github.com/coredbio/reldb/internal/xerr"
)

// Value is a small tagged union: exactly one of the typed fields is
// meaningful, selected by Type.
type Value struct {
	Type DataType
	I    int32
	F    float32
	B    bool
	S    string
}

func IntValue(v int32) Value      { return Value{Type: TypeInt, I: v} }
func FloatValue(v float32) Value  { return Value{Type: TypeFloat, F: v} }
func BoolValue(v bool) Value      { return Value{Type: TypeBool, B: v} }
func StringValue(v string) Value  { return Value{Type: TypeString, S: v} }

// Record is one tuple: its RID (zero value if not yet assigned) and its
// R-byte payload, laid out per the owning Schema's attribute offsets.
type Record struct {
	ID   RID
	Data []byte
}

// NewRecord allocates a zeroed payload sized for schema and, when values
// is non-nil, fills it via SetAttr for each column in order.
func NewRecord(schema Schema, values []Value) (*Record, error) {
	rec := &Record{Data: make([]byte, schema.RecordSize())}
	if values == nil {
		return rec, nil
	}
	if len(values) != len(schema.Attrs) {
		return nil, xerr.New(xerr.InvalidParam, "expected %d values, got %d", len(schema.Attrs), len(values))
	}
	for i, v := range values {
		if err := SetAttr(schema, rec, i, v); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// GetAttr reads attribute i of rec under schema.
func GetAttr(schema Schema, rec *Record, i int) (Value, error) {
	if i < 0 || i >= len(schema.Attrs) {
		return Value{}, xerr.New(xerr.InvalidParam, "attribute index %d out of range", i)
	}
	attr := schema.Attrs[i]
	off := schema.Offset(i)
	size := attr.Size()
	if off+size > len(rec.Data) {
		return Value{}, xerr.New(xerr.InvalidParam, "record payload too short for attribute %d", i)
	}
	field := rec.Data[off : off+size]

	switch attr.Type {
	case TypeInt:
		return IntValue(int32(bx.U32(field))), nil
	case TypeFloat:
		return FloatValue(math.Float32frombits(bx.U32(field))), nil
	case TypeBool:
		return BoolValue(field[0] != 0), nil
	case TypeString:
		return StringValue(trimTrailingNuls(field)), nil
	default:
		return Value{}, xerr.New(xerr.TypeMismatch, "unknown attribute type %v", attr.Type)
	}
}

// SetAttr writes v into attribute i of rec under schema. v's dynamic
// type must match the column's declared type.
func SetAttr(schema Schema, rec *Record, i int, v Value) error {
	if i < 0 || i >= len(schema.Attrs) {
		return xerr.New(xerr.InvalidParam, "attribute index %d out of range", i)
	}
	attr := schema.Attrs[i]
	if v.Type != attr.Type {
		return xerr.New(xerr.TypeMismatch, "attribute %d is %v, got %v", i, attr.Type, v.Type)
	}
	off := schema.Offset(i)
	size := attr.Size()
	if off+size > len(rec.Data) {
		return xerr.New(xerr.InvalidParam, "record payload too short for attribute %d", i)
	}
	field := rec.Data[off : off+size]

	switch attr.Type {
	case TypeInt:
		bx.PutU32(field, uint32(v.I))
	case TypeFloat:
		bx.PutU32(field, math.Float32bits(v.F))
	case TypeBool:
		if v.B {
			field[0] = 1
		} else {
			field[0] = 0
		}
	case TypeString:
		for j := range field {
			field[j] = 0
		}
		copy(field, v.S)
	default:
		return xerr.New(xerr.TypeMismatch, "unknown attribute type %v", attr.Type)
	}
	return nil
}

func trimTrailingNuls(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
