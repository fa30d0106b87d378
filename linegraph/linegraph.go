// Package linegraph models the operator's rail network as an
// undirected graph over stops. The trip search engine walks it to
// decide which stops lie between an origin and a destination, and to
// rank transfer stops by their transfer weight.
package linegraph

import (
	"sort"
)

// MaxPaths caps path enumeration. Dense graphs can hold an
// astronomical number of simple paths; rail line graphs stay far
// below this, so hitting the cap means the graph data is broken
// rather than the network large.
const MaxPaths = 10000

// Vertex is a stop on the line graph. TransferWeight ranks the stop
// as a transfer hub; higher is better.
type Vertex struct {
	StopID         string
	TransferWeight int
}

// Graph is an undirected multigraph over stops. Build one with
// AddVertex and AddEdge; traversal methods are safe for concurrent
// use once construction is done.
type Graph struct {
	verts map[string]Vertex
	adj   map[string][]string
}

func New() *Graph {
	return &Graph{
		verts: map[string]Vertex{},
		adj:   map[string][]string{},
	}
}

// AddVertex registers a stop. Re-adding an id overwrites its weight.
func (g *Graph) AddVertex(stopID string, transferWeight int) {
	g.verts[stopID] = Vertex{StopID: stopID, TransferWeight: transferWeight}
}

// AddEdge connects two stops. Both endpoints must already be
// vertices; unknown endpoints are ignored so a stray adjacency row
// cannot corrupt traversal. Duplicate edges collapse.
func (g *Graph) AddEdge(a, b string) {
	if _, ok := g.verts[a]; !ok {
		return
	}
	if _, ok := g.verts[b]; !ok {
		return
	}
	if a == b {
		return
	}
	g.link(a, b)
	g.link(b, a)
}

func (g *Graph) link(from, to string) {
	for _, n := range g.adj[from] {
		if n == to {
			return
		}
	}
	g.adj[from] = append(g.adj[from], to)
	// Neighbors stay sorted so traversal order is deterministic.
	sort.Strings(g.adj[from])
}

// HasVertex reports whether the stop is on the graph.
func (g *Graph) HasVertex(stopID string) bool {
	_, ok := g.verts[stopID]
	return ok
}

// Vertex returns the vertex for a stop id.
func (g *Graph) Vertex(stopID string) (Vertex, bool) {
	v, ok := g.verts[stopID]
	return v, ok
}

// Paths enumerates the simple paths from origin to destination: no
// path repeats a vertex. Enumeration is a depth-first search visiting
// neighbors in id order, capped at MaxPaths.
func (g *Graph) Paths(originID, destinationID string) [][]Vertex {
	if !g.HasVertex(originID) || !g.HasVertex(destinationID) {
		return nil
	}

	var paths [][]Vertex
	onPath := map[string]bool{originID: true}
	path := []Vertex{g.verts[originID]}

	var walk func(at string)
	walk = func(at string) {
		if len(paths) >= MaxPaths {
			return
		}
		if at == destinationID {
			found := make([]Vertex, len(path))
			copy(found, path)
			paths = append(paths, found)
			return
		}
		for _, next := range g.adj[at] {
			if onPath[next] {
				continue
			}
			onPath[next] = true
			path = append(path, g.verts[next])
			walk(next)
			path = path[:len(path)-1]
			onPath[next] = false
		}
	}
	walk(originID)

	return paths
}

// NextStops returns the distinct stops that appear strictly after
// afterID on any origin-to-destination path, ordered by transfer
// weight descending. Ties order by stop id so results are stable.
func (g *Graph) NextStops(originID, destinationID, afterID string) []Vertex {
	seen := map[string]bool{}
	for _, path := range g.Paths(originID, destinationID) {
		passed := false
		for _, v := range path {
			if passed {
				seen[v.StopID] = true
			}
			if v.StopID == afterID {
				passed = true
			}
		}
	}

	out := make([]Vertex, 0, len(seen))
	for id := range seen {
		out = append(out, g.verts[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransferWeight != out[j].TransferWeight {
			return out[i].TransferWeight > out[j].TransferWeight
		}
		return out[i].StopID < out[j].StopID
	})

	return out
}
