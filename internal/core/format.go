package core

import (
	"fmt"
	"strings"
)

// Format renders e compactly for diagnostics and debug output. It is not
// a pretty printer: no precedence beyond full parenthesisation of
// applications and no line breaking.
func Format(e Expr) string {
	var b strings.Builder
	formatTo(&b, e)
	return b.String()
}

func formatArgs(b *strings.Builder, head string, args []Expr) {
	if len(args) == 0 {
		b.WriteString(head)
		return
	}
	b.WriteByte('(')
	b.WriteString(head)
	for _, a := range args {
		b.WriteByte(' ')
		formatTo(b, a)
	}
	b.WriteByte(')')
}

func formatTo(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		b.WriteString("<nil>")
	case *RefExpr:
		b.WriteString(n.Binding.String())
	case *InferenceRefExpr:
		if n.Var.Solution != nil {
			formatTo(b, n.Var.Solution)
			return
		}
		b.WriteString(n.Var.String())
	case *AppExpr:
		head, args := SpineOf(n)
		formatArgs(b, Format(head), args)
	case *LamExpr:
		fmt.Fprintf(b, "(\\lam %s => ", n.Params)
		formatTo(b, n.Body)
		b.WriteByte(')')
	case *PiExpr:
		fmt.Fprintf(b, "(\\Pi %s -> ", n.Params)
		formatTo(b, n.Codomain)
		b.WriteByte(')')
	case *SigmaExpr:
		fmt.Fprintf(b, "(\\Sigma %s)", n.Params)
	case *TupleExpr:
		b.WriteByte('(')
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			formatTo(b, f)
		}
		b.WriteByte(')')
	case *ProjExpr:
		formatTo(b, n.Tuple)
		fmt.Fprintf(b, ".%d", n.Field+1)
	case *UniverseExpr:
		b.WriteString(n.Sort.String())
	case *PathExpr:
		args := []Expr{n.Arg}
		if n.ArgType != nil {
			args = []Expr{n.ArgType, n.Arg}
		}
		formatArgs(b, "path", args)
	case *ArrayExpr:
		b.WriteByte('[')
		for i, x := range n.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			formatTo(b, x)
		}
		b.WriteByte(']')
		if n.Tail != nil {
			b.WriteString(" ++ ")
			formatTo(b, n.Tail)
		}
	case *FunCallExpr:
		formatArgs(b, n.Def.Name(), n.Args)
	case *ConCallExpr:
		formatArgs(b, n.Con.Name(), n.Args)
	case *DataCallExpr:
		formatArgs(b, n.Data.Name(), n.Args)
	case *FieldCallExpr:
		formatTo(b, n.Arg)
		b.WriteByte('.')
		b.WriteString(n.Field.Name())
	case *LetExpr:
		b.WriteString("(\\let ")
		for i, c := range n.Clauses {
			if i > 0 {
				b.WriteString(" | ")
			}
			fmt.Fprintf(b, "%s => ", c.Binding)
			formatTo(b, c.Value)
		}
		b.WriteString(" \\in ")
		formatTo(b, n.Body)
		b.WriteByte(')')
	case *CaseExpr:
		b.WriteString("(\\case ")
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			formatTo(b, a)
		}
		b.WriteString(" \\with {")
		for _, c := range n.Clauses {
			parts := make([]string, len(c.Patterns))
			for i, p := range c.Patterns {
				parts[i] = p.String()
			}
			fmt.Fprintf(b, " | %s", strings.Join(parts, ", "))
			if c.Body != nil {
				b.WriteString(" => ")
				formatTo(b, c.Body)
			}
		}
		b.WriteString(" })")
	case *IntegerExpr:
		b.WriteString(n.Value.String())
	case *ErrorExpr:
		b.WriteString("{?error}")
	default:
		fmt.Fprintf(b, "<%T>", e)
	}
}
