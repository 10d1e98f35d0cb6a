package deps

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDependenciesAndDependents(t *testing.T) {
	c := NewCollector(4)
	c.DependsOn("plus", "Nat")
	c.DependsOn("double", "plus")
	c.DependsOn("double", "Nat")
	c.DependsOn("double", "plus")
	c.DependsOn("loop", "loop")

	require.Equal(t, []string{"Nat", "plus"}, c.GetDependencies("double"))
	require.Equal(t, []string{"double", "plus"}, c.Dependents("Nat"))
	require.Empty(t, c.GetDependencies("loop"))
	require.Equal(t, 2, c.Len())
}

func TestUpdateIsTransitive(t *testing.T) {
	c := NewCollector(0)
	c.DependsOn("b", "a")
	c.DependsOn("c", "b")
	c.DependsOn("d", "c")
	c.DependsOn("x", "y")

	require.Equal(t, []string{"a", "b", "c", "d"}, c.Update("a"))
	require.Empty(t, c.GetDependencies("c"))
	require.Empty(t, c.Dependents("a"))
	require.Equal(t, []string{"y"}, c.GetDependencies("x"))
	require.Equal(t, []string{"q"}, c.Update("q"))
}

func TestConcurrentRecording(t *testing.T) {
	c := NewCollector(8)
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			from := fmt.Sprintf("f%d", i)
			for j := range 16 {
				c.DependsOn(from, fmt.Sprintf("g%d", j))
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 32, c.Len())
	require.Len(t, c.Dependents("g3"), 32)
	require.Len(t, c.Update("g0"), 33)
}
