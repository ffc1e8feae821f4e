package record

import (
	"github.com/coredbio/reldb/internal/xerr"
)

// OpKind tags the operator of an Op expression node.
type OpKind int

const (
	OpAnd OpKind = iota
	OpOr
	OpNot
	OpEq
	OpLt
)

// Expr is any node in an expression tree: a constant, a reference to a
// record attribute, or an operator over sub-expressions.
type Expr interface {
	exprNode()
}

// Const is a literal value.
type Const struct {
	Value Value
}

// AttrRef refers to attribute Index of the record being evaluated.
type AttrRef struct {
	Index int
}

// Op applies Kind to Operands, left to right.
type Op struct {
	Kind     OpKind
	Operands []Expr
}

func (Const) exprNode()   {}
func (AttrRef) exprNode() {}
func (Op) exprNode()      {}

// Eval evaluates e against rec under schema, short-circuiting AND/OR and
// failing comparisons between mismatched types with xerr.TypeMismatch.
func Eval(e Expr, rec *Record, schema Schema) (Value, error) {
	switch n := e.(type) {
	case Const:
		return n.Value, nil
	case AttrRef:
		return GetAttr(schema, rec, n.Index)
	case Op:
		return evalOp(n, rec, schema)
	default:
		return Value{}, xerr.New(xerr.InvalidParam, "unknown expression node %T", e)
	}
}

func evalOp(n Op, rec *Record, schema Schema) (Value, error) {
	switch n.Kind {
	case OpAnd:
		if len(n.Operands) == 0 {
			return Value{}, xerr.New(xerr.InvalidParam, "AND requires at least one operand")
		}
		for _, operand := range n.Operands {
			v, err := Eval(operand, rec, schema)
			if err != nil {
				return Value{}, err
			}
			if v.Type != TypeBool {
				return Value{}, xerr.New(xerr.TypeMismatch, "AND operand is %v, want BOOL", v.Type)
			}
			if !v.B {
				return BoolValue(false), nil
			}
		}
		return BoolValue(true), nil

	case OpOr:
		if len(n.Operands) == 0 {
			return Value{}, xerr.New(xerr.InvalidParam, "OR requires at least one operand")
		}
		for _, operand := range n.Operands {
			v, err := Eval(operand, rec, schema)
			if err != nil {
				return Value{}, err
			}
			if v.Type != TypeBool {
				return Value{}, xerr.New(xerr.TypeMismatch, "OR operand is %v, want BOOL", v.Type)
			}
			if v.B {
				return BoolValue(true), nil
			}
		}
		return BoolValue(false), nil

	case OpNot:
		if len(n.Operands) != 1 {
			return Value{}, xerr.New(xerr.InvalidParam, "NOT requires exactly one operand")
		}
		v, err := Eval(n.Operands[0], rec, schema)
		if err != nil {
			return Value{}, err
		}
		if v.Type != TypeBool {
			return Value{}, xerr.New(xerr.TypeMismatch, "NOT operand is %v, want BOOL", v.Type)
		}
		return BoolValue(!v.B), nil

	case OpEq, OpLt:
		if len(n.Operands) != 2 {
			return Value{}, xerr.New(xerr.InvalidParam, "comparison requires exactly two operands")
		}
		lhs, err := Eval(n.Operands[0], rec, schema)
		if err != nil {
			return Value{}, err
		}
		rhs, err := Eval(n.Operands[1], rec, schema)
		if err != nil {
			return Value{}, err
		}
		if lhs.Type != rhs.Type {
			return Value{}, xerr.New(xerr.TypeMismatch, "comparison between %v and %v", lhs.Type, rhs.Type)
		}
		if n.Kind == OpEq {
			return BoolValue(valuesEqual(lhs, rhs)), nil
		}
		less, err := valueLess(lhs, rhs)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(less), nil

	default:
		return Value{}, xerr.New(xerr.InvalidParam, "unknown operator kind %v", n.Kind)
	}
}

func valuesEqual(a, b Value) bool {
	switch a.Type {
	case TypeInt:
		return a.I == b.I
	case TypeFloat:
		return a.F == b.F
	case TypeBool:
		return a.B == b.B
	case TypeString:
		return a.S == b.S
	default:
		return false
	}
}

func valueLess(a, b Value) (bool, error) {
	switch a.Type {
	case TypeInt:
		return a.I < b.I, nil
	case TypeFloat:
		return a.F < b.F, nil
	case TypeString:
		return a.S < b.S, nil
	default:
		return false, xerr.New(xerr.TypeMismatch, "%v does not support ordering", a.Type)
	}
}
