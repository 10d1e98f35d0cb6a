// Package testkit holds consistency checks shared by the tests of the
// checker and the driver.
package testkit

import (
	"fmt"
	"slices"

	"kappa/internal/core"
	"kappa/internal/deps"
	"kappa/internal/typecheck"
)

// CheckRegistry verifies the published units of reg:
// 1) the unit owns its definition and members, and Lookup returns them
// 2) the definition is checked (header-only definitions are never published)
// 3) Deps is sorted, has no self reference and names published units
// 4) the version of a published unit is odd (publish and remove alternate)
func CheckRegistry(reg *typecheck.Registry) error {
	for _, u := range reg.Units() {
		if u.Def == nil || u.Def.Name() != u.Name {
			return fmt.Errorf("unit %s: main definition does not carry its name", u.Name)
		}
		for _, d := range append([]core.Definition{u.Def}, u.Members...) {
			owner, ok := reg.Owner(d.Name())
			if !ok || owner != u.Name {
				return fmt.Errorf("unit %s: %s is owned by %q", u.Name, d.Name(), owner)
			}
			if reg.Lookup(d.Name()) != d {
				return fmt.Errorf("unit %s: lookup of %s returns another definition", u.Name, d.Name())
			}
		}
		if u.Status() == core.StatusHeader {
			return fmt.Errorf("unit %s: published with status %s", u.Name, u.Status())
		}
		if !slices.IsSorted(u.Deps) {
			return fmt.Errorf("unit %s: deps %v are not sorted", u.Name, u.Deps)
		}
		for _, dep := range u.Deps {
			if dep == u.Name {
				return fmt.Errorf("unit %s: depends on itself", u.Name)
			}
			if _, ok := reg.Unit(dep); !ok {
				return fmt.Errorf("unit %s: dependency %s is not published", u.Name, dep)
			}
		}
		if reg.Version(u.Name)%2 != 1 {
			return fmt.Errorf("unit %s: version %d of a published unit must be odd", u.Name, reg.Version(u.Name))
		}
	}
	return nil
}

// CheckCollector verifies that col records every dependency of every
// published unit, so invalidating a dependency reaches the unit.
func CheckCollector(reg *typecheck.Registry, col *deps.Collector) error {
	for _, u := range reg.Units() {
		recorded := col.GetDependencies(u.Name)
		for _, dep := range u.Deps {
			if !slices.Contains(recorded, dep) {
				return fmt.Errorf("unit %s: dependency %s not recorded (have %v)", u.Name, dep, recorded)
			}
			if !slices.Contains(col.Dependents(dep), u.Name) {
				return fmt.Errorf("unit %s: missing from the dependents of %s", u.Name, dep)
			}
		}
	}
	return nil
}
