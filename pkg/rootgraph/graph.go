// Package rootgraph builds graph and tree representations of a segmented
// root system. The root mask becomes a pixel-adjacency graph; shortest
// paths from the detected seed regions turn it into a per-plant root tree.
package rootgraph

import (
	"math"

	"gonum.org/v1/gonum/graph/simple"

	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/internal/models"
)

// diagWeight is the length of a diagonal step between pixel centers.
var diagWeight = math.Sqrt2

// RootGraph is the 8-connected pixel-adjacency graph of a root mask.
// Node ids encode pixel positions as row*Width + col.
type RootGraph struct {
	// G holds one node per root pixel and one weighted edge per adjacent
	// pixel pair (1 for axis steps, sqrt 2 for diagonal steps).
	G *simple.WeightedUndirectedGraph

	// Width and Height are the mask dimensions the node ids refer to.
	Width  int
	Height int

	// Seeds maps a plant label (1..N) to the node ids of its seed pixels.
	Seeds map[int][]int64
}

// NodeID returns the graph node id of pixel (row, col).
func (g *RootGraph) NodeID(row, col int) int64 {
	return int64(row*g.Width + col)
}

// Pixel returns the (row, col) position encoded by a node id.
func (g *RootGraph) Pixel(id int64) (int, int) {
	return int(id) / g.Width, int(id) % g.Width
}

// Build constructs the adjacency graph of a root mask (nonzero marks root
// pixels) and records the seed pixels of each plant from the seed map
// (pixel value k marks plant k). Both arrays must share the cropped plate
// coordinate frame produced by segmentation.
func Build(rmask, seedMap gocv.Mat) (*RootGraph, error) {
	if rmask.Rows() != seedMap.Rows() || rmask.Cols() != seedMap.Cols() {
		return nil, &models.ShapeError{
			Op:     "compute_graph",
			Reason: "root mask and seed map shapes differ",
		}
	}

	rows := rmask.Rows()
	cols := rmask.Cols()

	rg := &RootGraph{
		G:      simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		Width:  cols,
		Height: rows,
		Seeds:  make(map[int][]int64),
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if rmask.GetUCharAt(r, c) == 0 {
				continue
			}
			id := rg.NodeID(r, c)
			rg.G.AddNode(simple.Node(id))
			if plant := int(seedMap.GetUCharAt(r, c)); plant > 0 {
				rg.Seeds[plant] = append(rg.Seeds[plant], id)
			}
		}
	}

	// Forward neighbor offsets only, so each adjacent pair is linked once.
	steps := []struct {
		dr, dc int
		w      float64
	}{
		{0, 1, 1},
		{1, 0, 1},
		{1, 1, diagWeight},
		{1, -1, diagWeight},
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if rmask.GetUCharAt(r, c) == 0 {
				continue
			}
			for _, s := range steps {
				nr, nc := r+s.dr, c+s.dc
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					continue
				}
				if rmask.GetUCharAt(nr, nc) == 0 {
					continue
				}
				rg.G.SetWeightedEdge(simple.WeightedEdge{
					F: simple.Node(rg.NodeID(r, c)),
					T: simple.Node(rg.NodeID(nr, nc)),
					W: s.w,
				})
			}
		}
	}

	return rg, nil
}
