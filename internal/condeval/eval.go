package condeval

import (
	"fmt"

	"github.com/covesa/vsm/internal/value"
)

// UndefinedIdentError is returned when the expression references a signal
// the current state snapshot has never seen. Callers (the Dispatcher) skip
// the rule silently per spec.md §4.D/§7.3.
type UndefinedIdentError struct {
	Ident string
}

func (e *UndefinedIdentError) Error() string {
	return fmt.Sprintf("identifier %q is undefined", e.Ident)
}

// Eval runs the compiled program against a variable snapshot keyed by
// already-undotted identifier names (spec.md §4.A's undotting applies
// both to the compiled expression and the snapshot passed in here).
func (pr *Program) Eval(vars map[string]value.Value) (value.Value, error) {
	return evalNode(pr.root, vars)
}

func evalNode(e *expr, vars map[string]value.Value) (value.Value, error) {
	switch e.kind {
	case exprIdent:
		v, ok := vars[e.ident]
		if !ok {
			return value.Value{}, &UndefinedIdentError{Ident: e.ident}
		}
		return v, nil
	case exprString:
		return value.OfString(e.str), nil
	case exprInt:
		return value.OfInt(e.i), nil
	case exprFloat:
		return value.OfFloat(e.f), nil
	case exprBool:
		return value.OfBool(e.b), nil
	case exprUnaryNot:
		v, err := evalNode(e.inner, vars)
		if err != nil {
			return value.Value{}, err
		}
		return value.OfBool(!truthy(v)), nil
	case exprUnaryNeg:
		v, err := evalNode(e.inner, vars)
		if err != nil {
			return value.Value{}, err
		}
		f, ok := v.AsFloat()
		if !ok {
			return value.Value{}, fmt.Errorf("cannot negate non-numeric value")
		}
		if v.Kind() == value.Int {
			return value.OfInt(-v.IntVal()), nil
		}
		return value.OfFloat(-f), nil
	case exprBinary:
		return evalBinary(e, vars)
	}
	return value.Value{}, fmt.Errorf("unknown expression node")
}

func truthy(v value.Value) bool {
	switch v.Kind() {
	case value.Bool:
		return v.BoolVal()
	case value.String:
		return v.StringVal() != ""
	case value.Int:
		return v.IntVal() != 0
	case value.Float:
		return v.FloatVal() != 0
	}
	return false
}

func evalBinary(e *expr, vars map[string]value.Value) (value.Value, error) {
	// Short-circuit and/or.
	if e.op == opAnd {
		l, err := evalNode(e.left, vars)
		if err != nil {
			return value.Value{}, err
		}
		if !truthy(l) {
			return value.OfBool(false), nil
		}
		r, err := evalNode(e.right, vars)
		if err != nil {
			return value.Value{}, err
		}
		return value.OfBool(truthy(r)), nil
	}
	if e.op == opOr {
		l, err := evalNode(e.left, vars)
		if err != nil {
			return value.Value{}, err
		}
		if truthy(l) {
			return value.OfBool(true), nil
		}
		r, err := evalNode(e.right, vars)
		if err != nil {
			return value.Value{}, err
		}
		return value.OfBool(truthy(r)), nil
	}

	l, err := evalNode(e.left, vars)
	if err != nil {
		return value.Value{}, err
	}
	r, err := evalNode(e.right, vars)
	if err != nil {
		return value.Value{}, err
	}

	switch e.op {
	case opEq:
		return value.OfBool(l.Equal(r)), nil
	case opNeq:
		return value.OfBool(!l.Equal(r)), nil
	case opLt, opLte, opGt, opGte:
		lf, lok := l.AsFloat()
		rf, rok := r.AsFloat()
		if !lok || !rok {
			// Relational comparisons between non-numeric kinds are false,
			// matching spec.md §9's "comparisons between mismatched kinds
			// are false (not an error)".
			return value.OfBool(false), nil
		}
		switch e.op {
		case opLt:
			return value.OfBool(lf < rf), nil
		case opLte:
			return value.OfBool(lf <= rf), nil
		case opGt:
			return value.OfBool(lf > rf), nil
		default:
			return value.OfBool(lf >= rf), nil
		}
	case opAdd, opSub, opMul, opDiv:
		return arith(e.op, l, r)
	}
	return value.Value{}, fmt.Errorf("unknown binary operator")
}

// arith implements int/float arithmetic promotion (spec.md §9: "arithmetic
// promotes int->float").
func arith(op binOp, l, r value.Value) (value.Value, error) {
	if l.Kind() == value.Int && r.Kind() == value.Int {
		li, ri := l.IntVal(), r.IntVal()
		switch op {
		case opAdd:
			return value.OfInt(li + ri), nil
		case opSub:
			return value.OfInt(li - ri), nil
		case opMul:
			return value.OfInt(li * ri), nil
		case opDiv:
			if ri == 0 {
				return value.Value{}, fmt.Errorf("division by zero")
			}
			return value.OfInt(li / ri), nil
		}
	}
	lf, lok := l.AsFloat()
	rf, rok := r.AsFloat()
	if !lok || !rok {
		return value.Value{}, fmt.Errorf("arithmetic on non-numeric value")
	}
	switch op {
	case opAdd:
		return value.OfFloat(lf + rf), nil
	case opSub:
		return value.OfFloat(lf - rf), nil
	case opMul:
		return value.OfFloat(lf * rf), nil
	case opDiv:
		if rf == 0 {
			return value.Value{}, fmt.Errorf("division by zero")
		}
		return value.OfFloat(lf / rf), nil
	}
	return value.Value{}, fmt.Errorf("unknown arithmetic operator")
}
