package core

import (
	"fmt"

	"kappa/internal/level"
)

// ArityError reports a call whose level or value arguments do not match
// the callee.
type ArityError struct {
	Def    string
	Levels bool
	Want   int
	Got    int
}

func (e *ArityError) Error() string {
	what := "arguments"
	if e.Levels {
		what = "level arguments"
	}
	return fmt.Sprintf("%s expects %d %s, got %d", e.Def, e.Want, what, e.Got)
}

func checkLevels(def Definition, levels level.Levels) (level.Levels, error) {
	if levels == nil {
		levels = level.Empty{}
	}
	lp := def.LevelParams()
	ok := levels.Len() == lp.Arity()
	switch lp.Kind {
	case LevelsStd:
		_, isPair := levels.(level.Pair)
		ok = ok && isPair
	case LevelsList:
		l, isList := levels.(level.List)
		ok = ok && isList && l.Owner == uint32(LevelOwner(def))
	}
	if !ok {
		return nil, &ArityError{Def: def.Name(), Levels: true, Want: lp.Arity(), Got: levels.Len()}
	}
	return levels, nil
}

// LevelOwner is the definition whose level parameters def uses.
func LevelOwner(def Definition) DefID {
	switch d := def.(type) {
	case *Constructor:
		if d.Data != nil {
			return d.Data.ID()
		}
	case *ClassField:
		if d.Record != nil {
			return d.Record.ID()
		}
	}
	return def.ID()
}

// IdentityLevels instantiates def's level parameters with themselves.
func IdentityLevels(def Definition) level.Levels {
	return def.LevelParams().Identity(LevelOwner(def))
}

func checkArgs(def Definition, want int, args []Expr) error {
	if len(args) != want {
		return &ArityError{Def: def.Name(), Want: want, Got: len(args)}
	}
	return nil
}

func NewFunCall(def *FunctionDef, levels level.Levels, args []Expr) (*FunCallExpr, error) {
	levels, err := checkLevels(def, levels)
	if err != nil {
		return nil, err
	}
	if err := checkArgs(def, def.params.Len(), args); err != nil {
		return nil, err
	}
	return &FunCallExpr{Def: def, Levels: levels, Args: args}, nil
}

func NewDataCall(def *DataDef, levels level.Levels, args []Expr) (*DataCallExpr, error) {
	levels, err := checkLevels(def, levels)
	if err != nil {
		return nil, err
	}
	if err := checkArgs(def, def.params.Len(), args); err != nil {
		return nil, err
	}
	return &DataCallExpr{Data: def, Levels: levels, Args: args}, nil
}

func NewConCall(con *Constructor, levels level.Levels, dataArgs, args []Expr) (*ConCallExpr, error) {
	levels, err := checkLevels(con, levels)
	if err != nil {
		return nil, err
	}
	if err := checkArgs(con.Data, con.Data.params.Len(), dataArgs); err != nil {
		return nil, err
	}
	if err := checkArgs(con, con.params.Len(), args); err != nil {
		return nil, err
	}
	return &ConCallExpr{Con: con, Levels: levels, DataArgs: dataArgs, Args: args}, nil
}

func NewFieldCall(field *ClassField, levels level.Levels, arg Expr) (*FieldCallExpr, error) {
	levels, err := checkLevels(field, levels)
	if err != nil {
		return nil, err
	}
	return &FieldCallExpr{Field: field, Levels: levels, Arg: arg}, nil
}

// MustDataCall is NewDataCall for callers that already checked arity.
func MustDataCall(def *DataDef, levels level.Levels, args ...Expr) *DataCallExpr {
	c, err := NewDataCall(def, levels, args)
	if err != nil {
		panic(err)
	}
	return c
}

func MustConCall(con *Constructor, levels level.Levels, dataArgs []Expr, args ...Expr) *ConCallExpr {
	c, err := NewConCall(con, levels, dataArgs, args)
	if err != nil {
		panic(err)
	}
	return c
}

func MustFunCall(def *FunctionDef, levels level.Levels, args ...Expr) *FunCallExpr {
	c, err := NewFunCall(def, levels, args)
	if err != nil {
		panic(err)
	}
	return c
}

// DefCallHead returns the definition e calls, if any.
func DefCallHead(e Expr) Definition {
	switch n := e.(type) {
	case *FunCallExpr:
		return n.Def
	case *ConCallExpr:
		return n.Con
	case *DataCallExpr:
		return n.Data
	case *FieldCallExpr:
		return n.Field
	}
	return nil
}
