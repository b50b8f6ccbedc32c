package condeval

// exprKind tags the node types of the condition expression AST.
type exprKind int

const (
	exprIdent exprKind = iota
	exprString
	exprInt
	exprFloat
	exprBool
	exprUnaryNot
	exprUnaryNeg
	exprBinary
)

type binOp int

const (
	opAnd binOp = iota
	opOr
	opEq
	opNeq
	opLt
	opLte
	opGt
	opGte
	opAdd
	opSub
	opMul
	opDiv
)

// expr is a node of the compiled condition expression tree.
type expr struct {
	kind exprKind

	ident string
	str   string
	i     int64
	f     float64
	b     bool

	op    binOp
	left  *expr
	right *expr
	inner *expr
}

// Program is a compiled, evaluable condition expression together with the
// set of identifiers it references (spec.md §3: "compiled expression").
type Program struct {
	root    *expr
	Idents  []string
}
