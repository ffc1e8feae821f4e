package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredbio/reldb/internal/xerr"
)

func exprTestRecord(t *testing.T) (Schema, *Record) {
	t.Helper()
	schema := testSchema()
	rec := mustRecord(t, schema, 2, "bbbb", 20)
	return schema, rec
}

func TestEvalConstAndAttrRef(t *testing.T) {
	schema, rec := exprTestRecord(t)

	v, err := Eval(Const{Value: IntValue(7)}, rec, schema)
	require.NoError(t, err)
	require.Equal(t, int32(7), v.I)

	v, err = Eval(AttrRef{Index: 0}, rec, schema)
	require.NoError(t, err)
	require.Equal(t, int32(2), v.I)
}

func TestEvalComparisons(t *testing.T) {
	schema, rec := exprTestRecord(t)

	eq := Op{Kind: OpEq, Operands: []Expr{AttrRef{Index: 0}, Const{Value: IntValue(2)}}}
	v, err := Eval(eq, rec, schema)
	require.NoError(t, err)
	require.True(t, v.B)

	lt := Op{Kind: OpLt, Operands: []Expr{AttrRef{Index: 2}, Const{Value: IntValue(25)}}}
	v, err = Eval(lt, rec, schema)
	require.NoError(t, err)
	require.True(t, v.B)
}

func TestEvalAndOrShortCircuit(t *testing.T) {
	schema, rec := exprTestRecord(t)

	and := Op{Kind: OpAnd, Operands: []Expr{
		Op{Kind: OpEq, Operands: []Expr{AttrRef{Index: 0}, Const{Value: IntValue(2)}}},
		Op{Kind: OpLt, Operands: []Expr{AttrRef{Index: 2}, Const{Value: IntValue(25)}}},
	}}
	v, err := Eval(and, rec, schema)
	require.NoError(t, err)
	require.True(t, v.B)

	// The second operand would fail with TypeMismatch if evaluated.
	andShort := Op{Kind: OpAnd, Operands: []Expr{
		Const{Value: BoolValue(false)},
		Op{Kind: OpEq, Operands: []Expr{AttrRef{Index: 0}, Const{Value: StringValue("x")}}},
	}}
	v, err = Eval(andShort, rec, schema)
	require.NoError(t, err)
	require.False(t, v.B)

	// The last operand would fail with TypeMismatch if evaluated.
	or := Op{Kind: OpOr, Operands: []Expr{
		Op{Kind: OpEq, Operands: []Expr{AttrRef{Index: 0}, Const{Value: IntValue(99)}}},
		Const{Value: BoolValue(true)},
		Op{Kind: OpEq, Operands: []Expr{AttrRef{Index: 0}, Const{Value: StringValue("x")}}},
	}}
	v, err = Eval(or, rec, schema)
	require.NoError(t, err)
	require.True(t, v.B)
}

func TestEvalNotRequiresSingleOperand(t *testing.T) {
	schema, rec := exprTestRecord(t)

	not := Op{Kind: OpNot, Operands: []Expr{Const{Value: BoolValue(false)}}}
	v, err := Eval(not, rec, schema)
	require.NoError(t, err)
	require.True(t, v.B)

	bad := Op{Kind: OpNot, Operands: []Expr{Const{Value: BoolValue(false)}, Const{Value: BoolValue(true)}}}
	_, err = Eval(bad, rec, schema)
	require.Error(t, err)
	require.Equal(t, xerr.InvalidParam, xerr.KindOf(err))
}

func TestEvalTypeMismatchOnComparison(t *testing.T) {
	schema, rec := exprTestRecord(t)

	cmp := Op{Kind: OpEq, Operands: []Expr{AttrRef{Index: 0}, Const{Value: StringValue("x")}}}
	_, err := Eval(cmp, rec, schema)
	require.Error(t, err)
	require.Equal(t, xerr.TypeMismatch, xerr.KindOf(err))
}

func TestEvalLtUnsupportedForBool(t *testing.T) {
	schema, rec := exprTestRecord(t)

	cmp := Op{Kind: OpLt, Operands: []Expr{Const{Value: BoolValue(true)}, Const{Value: BoolValue(false)}}}
	_, err := Eval(cmp, rec, schema)
	require.Error(t, err)
	require.Equal(t, xerr.TypeMismatch, xerr.KindOf(err))
}
