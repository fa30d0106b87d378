package query

import (
	"context"

	"github.com/right-track/right-track-core-sub000/linegraph"
)

// LineGraph builds the operator's stop adjacency graph: one vertex
// per stop carrying its transfer weight, one undirected edge per
// rt_line_graph pair. The graph is memoized like any reader and
// shared by every search on this store.
func (db *DB) LineGraph(ctx context.Context) (*linegraph.Graph, error) {
	v, err := db.cached(ctx, key("line_graph"), func(ctx context.Context) (any, error) {
		stops, err := db.Stops(ctx, false)
		if err != nil {
			return nil, err
		}
		g := linegraph.New()
		for _, s := range stops {
			g.AddVertex(s.ID, s.TransferWeight)
		}

		rows, err := db.store.Select(ctx, `
SELECT stop1_id, stop2_id
FROM rt_line_graph
ORDER BY stop1_id, stop2_id`)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			g.AddEdge(r.String("stop1_id"), r.String("stop2_id"))
		}
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*linegraph.Graph), nil
}
