package ir

// BinopKind identifies a source-level binary operator.
type BinopKind int

const (
	OpAdd BinopKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNotEq
	OpLt
	OpLte
	OpGt
	OpGte
	OpBoolAnd
	OpBoolOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpUShr // unsigned shift; target has no unsigned primitive, see binop builder
	OpNullCoalesce
	OpInterval // a...b range operator; must be consumed by loop lowering
	OpAssign
	OpAssignOp // compound assignment; Binop.Assign carries the inner op
)

var binopNames = map[BinopKind]string{
	OpAdd:          "+",
	OpSub:          "-",
	OpMul:          "*",
	OpDiv:          "/",
	OpMod:          "%",
	OpEq:           "==",
	OpNotEq:        "!=",
	OpLt:           "<",
	OpLte:          "<=",
	OpGt:           ">",
	OpGte:          ">=",
	OpBoolAnd:      "&&",
	OpBoolOr:       "||",
	OpBitAnd:       "&",
	OpBitOr:        "|",
	OpBitXor:       "^",
	OpShl:          "<<",
	OpShr:          ">>",
	OpUShr:         ">>>",
	OpNullCoalesce: "??",
	OpInterval:     "...",
	OpAssign:       "=",
	OpAssignOp:     "<op>=",
}

func (k BinopKind) String() string {
	if s, ok := binopNames[k]; ok {
		return s
	}
	return "<unknown op>"
}

// UnopKind identifies a source-level unary operator.
type UnopKind int

const (
	OpNeg UnopKind = iota
	OpNot
	OpBitNot
	OpIncrement
	OpDecrement
)

var unopNames = map[UnopKind]string{
	OpNeg:       "-",
	OpNot:       "!",
	OpBitNot:    "~",
	OpIncrement: "++",
	OpDecrement: "--",
}

func (k UnopKind) String() string {
	if s, ok := unopNames[k]; ok {
		return s
	}
	return "<unknown op>"
}
