package level

import "fmt"

// VarKind separates the universe variables a level may mention.
type VarKind uint8

const (
	// KindStd is one of the two standard variables \lp and \lh.
	KindStd VarKind = iota
	// KindParam is a level parameter declared by a definition.
	KindParam
	// KindInfer is an inference variable owned by one checker run.
	KindInfer
)

func (k VarKind) String() string {
	switch k {
	case KindStd:
		return "std"
	case KindParam:
		return "param"
	case KindInfer:
		return "infer"
	default:
		return fmt.Sprintf("VarKind(%d)", k)
	}
}

// Dim is the dimension a variable ranges over.
type Dim uint8

const (
	DimP Dim = iota
	DimH
)

func (d Dim) String() string {
	if d == DimH {
		return "h"
	}
	return "p"
}

// Var identifies a level variable. Owner is the definition id for
// parameters and the checker id for inference variables; it is zero for
// the standard variables.
type Var struct {
	Kind  VarKind
	Dim   Dim
	Owner uint32
	Index uint32
}

var (
	LP = Var{Kind: KindStd, Dim: DimP}
	LH = Var{Kind: KindStd, Dim: DimH}
)

func ParamVar(dim Dim, owner, index uint32) Var {
	return Var{Kind: KindParam, Dim: dim, Owner: owner, Index: index}
}

func InferVar(dim Dim, owner, index uint32) Var {
	return Var{Kind: KindInfer, Dim: dim, Owner: owner, Index: index}
}

// StdFor returns \lp or \lh for the dimension of v.
func StdFor(d Dim) Var {
	if d == DimH {
		return LH
	}
	return LP
}

func (v Var) String() string {
	switch v.Kind {
	case KindStd:
		return "\\l" + v.Dim.String()
	case KindParam:
		return fmt.Sprintf("\\%s%d.%d", v.Dim, v.Owner, v.Index)
	default:
		return fmt.Sprintf("?%s%d.%d", v.Dim, v.Owner, v.Index)
	}
}

// less orders variables for the canonical term order of a Level.
func (v Var) less(o Var) bool {
	if v.Kind != o.Kind {
		return v.Kind < o.Kind
	}
	if v.Dim != o.Dim {
		return v.Dim < o.Dim
	}
	if v.Owner != o.Owner {
		return v.Owner < o.Owner
	}
	return v.Index < o.Index
}
