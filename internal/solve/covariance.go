package solve

import (
	"kappa/internal/core"
)

// CovarianceChecker decides for each parameter of a data type whether it
// occurs only in covariant positions of the constructor arguments. A
// covariant parameter lets D A <= D B follow from A <= B.
type CovarianceChecker struct {
	data   *core.DataDef
	params map[core.BindingID]int
	flags  []bool
}

func NewCovarianceChecker(d *core.DataDef) *CovarianceChecker {
	c := &CovarianceChecker{data: d, params: make(map[core.BindingID]int)}
	for i, b := range d.Parameters().Bindings() {
		c.params[b.ID()] = i
		_, isType := b.TypeExpr().(*core.UniverseExpr)
		c.flags = append(c.flags, isType)
	}
	return c
}

// Check computes the flags. Truncated data types and data types whose
// constructors match on the parameters get no covariant parameters.
func (c *CovarianceChecker) Check() []bool {
	if c.data.IsTruncated() {
		clear(c.flags)
		return c.flags
	}
	for _, con := range c.data.Constructors {
		if con.Patterns != nil {
			clear(c.flags)
			return c.flags
		}
		for it := con.Parameters(); it.HasNext(); it = it.Next() {
			c.positive(it.TypeExpr())
		}
	}
	return c.flags
}

// CheckCovariance computes and stores the flags on d.
func CheckCovariance(d *core.DataDef) []bool {
	d.Covariant = NewCovarianceChecker(d).Check()
	return d.Covariant
}

func (c *CovarianceChecker) positive(e core.Expr) {
	switch x := e.(type) {
	case *core.RefExpr, *core.UniverseExpr:
	case *core.PiExpr:
		for it := x.Params; it.HasNext(); it = it.Next() {
			c.negative(it.TypeExpr())
		}
		c.positive(x.Codomain)
	case *core.SigmaExpr:
		for it := x.Params; it.HasNext(); it = it.Next() {
			c.positive(it.TypeExpr())
		}
	case *core.DataCallExpr:
		for i, arg := range x.Args {
			switch {
			case x.Data == c.data && c.isParam(arg, i):
			case x.Data != c.data && x.Data.IsCovariant(i):
				c.positive(arg)
			default:
				c.negative(arg)
			}
		}
	default:
		c.negative(e)
	}
}

// negative clears the flag of every parameter e mentions.
func (c *CovarianceChecker) negative(e core.Expr) {
	for id := range core.FreeVars(e).Items() {
		if i, ok := c.params[id]; ok {
			c.flags[i] = false
		}
	}
}

func (c *CovarianceChecker) isParam(e core.Expr, i int) bool {
	ref, ok := e.(*core.RefExpr)
	if !ok {
		return false
	}
	j, ok := c.params[ref.Binding.ID()]
	return ok && j == i
}
