package linegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A small commuter network:
//
//	a --- b --- c --- d
//	       \         /
//	        x ----- y
//
// b and c are the big interchanges.
func buildNetwork() *Graph {
	g := New()
	g.AddVertex("a", 5)
	g.AddVertex("b", 50)
	g.AddVertex("c", 40)
	g.AddVertex("d", 10)
	g.AddVertex("x", 20)
	g.AddVertex("y", 15)
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "d")
	g.AddEdge("b", "x")
	g.AddEdge("x", "y")
	g.AddEdge("y", "d")
	return g
}

func ids(path []Vertex) []string {
	out := make([]string, len(path))
	for i, v := range path {
		out[i] = v.StopID
	}
	return out
}

func TestPaths(t *testing.T) {
	g := buildNetwork()

	paths := g.Paths("a", "d")
	require.Len(t, paths, 2)

	got := [][]string{ids(paths[0]), ids(paths[1])}
	assert.Contains(t, got, []string{"a", "b", "c", "d"})
	assert.Contains(t, got, []string{"a", "b", "x", "y", "d"})

	// Simple paths never repeat a vertex.
	for _, p := range paths {
		seen := map[string]bool{}
		for _, v := range p {
			assert.False(t, seen[v.StopID], "vertex %s repeated", v.StopID)
			seen[v.StopID] = true
		}
	}
}

func TestPathsMissingEndpoints(t *testing.T) {
	g := buildNetwork()
	assert.Nil(t, g.Paths("a", "ghost"))
	assert.Nil(t, g.Paths("ghost", "d"))
}

func TestPathsDisconnected(t *testing.T) {
	g := buildNetwork()
	g.AddVertex("island", 1)
	assert.Empty(t, g.Paths("a", "island"))
}

func TestNextStopsRankedByWeight(t *testing.T) {
	g := buildNetwork()

	// After b, the a->d paths continue through c, d (upper branch)
	// and x, y, d (lower branch).
	next := g.NextStops("a", "d", "b")
	assert.Equal(t, []string{"c", "x", "y", "d"}, ids(next))

	// After the origin itself: everything downstream.
	next = g.NextStops("a", "d", "a")
	assert.Equal(t, []string{"b", "c", "x", "y", "d"}, ids(next))

	// Nothing comes after the destination.
	assert.Empty(t, g.NextStops("a", "d", "d"))

	// A stop on no a->d path yields nothing.
	g.AddVertex("island", 99)
	assert.Empty(t, g.NextStops("a", "d", "island"))
}

func TestNextStopsReverseOrientation(t *testing.T) {
	g := buildNetwork()

	// Walking d->a, the stops after c lead back toward a.
	next := g.NextStops("d", "a", "c")
	assert.Equal(t, []string{"b", "a"}, ids(next))
}

func TestNextStopsTieBreaksOnID(t *testing.T) {
	g := New()
	g.AddVertex("o", 0)
	g.AddVertex("m2", 7)
	g.AddVertex("m1", 7)
	g.AddVertex("d", 1)
	g.AddEdge("o", "m1")
	g.AddEdge("o", "m2")
	g.AddEdge("m1", "d")
	g.AddEdge("m2", "d")

	next := g.NextStops("o", "d", "o")
	assert.Equal(t, []string{"m1", "m2", "d"}, ids(next))
}

func TestEdgeHygiene(t *testing.T) {
	g := New()
	g.AddVertex("a", 1)
	g.AddVertex("b", 2)

	// Unknown endpoints and self-loops are dropped.
	g.AddEdge("a", "ghost")
	g.AddEdge("a", "a")
	assert.Empty(t, g.Paths("a", "b"))

	// Duplicate edges collapse to one.
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")
	paths := g.Paths("a", "b")
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"a", "b"}, ids(paths[0]))
}

func TestPathEnumerationCap(t *testing.T) {
	// A ladder of diamonds doubles the path count per rung; 20 rungs
	// is over a million simple paths, far past the cap.
	g := New()
	g.AddVertex("s0", 0)
	for i := 0; i < 20; i++ {
		a := vertexName("a", i)
		b := vertexName("b", i)
		s := vertexName("s", i+1)
		g.AddVertex(a, 0)
		g.AddVertex(b, 0)
		g.AddVertex(s, 0)
		g.AddEdge(vertexName("s", i), a)
		g.AddEdge(vertexName("s", i), b)
		g.AddEdge(a, s)
		g.AddEdge(b, s)
	}

	paths := g.Paths("s0", vertexName("s", 20))
	assert.Len(t, paths, MaxPaths)
}

func vertexName(prefix string, i int) string {
	return prefix + string(rune('A'+i))
}
