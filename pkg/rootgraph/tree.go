package rootgraph

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/artzet-s/rhizoscan/internal/models"
)

// NoParent marks a seed node in a RootTree, the root of its plant's tree.
const NoParent int64 = -1

// RootTree is the shortest-path forest of a root graph: every root pixel
// is assigned to the plant whose seed region is geodesically closest, with
// a parent pointer leading back toward that seed.
type RootTree struct {
	// Parent maps a node to its predecessor on the shortest path toward
	// its plant's seed region. Seed nodes map to NoParent.
	Parent map[int64]int64

	// Plant maps a node to the 1-indexed plant it belongs to.
	Plant map[int64]int

	// Depth maps a node to its geodesic distance from the seed region.
	Depth map[int64]float64

	// Lengths maps a plant to its primary root length: the largest
	// geodesic depth reached by any of its pixels.
	Lengths map[int]float64
}

// ComputeTree derives the per-plant root tree from a root graph. Pixels
// unreachable from every seed region are left out of the tree. It returns
// a ShapeError when the graph carries no seed pixels.
func ComputeTree(rg *RootGraph) (*RootTree, error) {
	if len(rg.Seeds) == 0 {
		return nil, &models.ShapeError{
			Op:     "compute_tree",
			Reason: "root graph has no seed pixels",
		}
	}

	tree := &RootTree{
		Parent:  make(map[int64]int64),
		Plant:   make(map[int64]int),
		Depth:   make(map[int64]float64),
		Lengths: make(map[int]float64),
	}

	// Plants run in label order so a pixel equidistant from two seed
	// regions always lands on the lowest label.
	plants := make([]int, 0, len(rg.Seeds))
	for plant := range rg.Seeds {
		plants = append(plants, plant)
	}
	sort.Ints(plants)

	for _, plant := range plants {
		seeds := rg.Seeds[plant]
		// A synthetic source joined to every seed pixel at zero cost turns
		// the multi-source search into a single Dijkstra run. Pixel ids
		// are non-negative, so negative ids are free for sources.
		source := simple.Node(-int64(plant))
		rg.G.AddNode(source)
		for _, id := range seeds {
			rg.G.SetWeightedEdge(simple.WeightedEdge{
				F: source,
				T: simple.Node(id),
				W: 0,
			})
		}

		shortest := path.DijkstraFrom(source, rg.G)

		nodes := rg.G.Nodes()
		for nodes.Next() {
			id := nodes.Node().ID()
			if id < 0 {
				continue
			}
			w := shortest.WeightTo(id)
			if math.IsInf(w, 1) {
				continue
			}
			if prev, ok := tree.Depth[id]; ok && prev <= w {
				continue
			}
			tree.Plant[id] = plant
			tree.Depth[id] = w
			tree.Parent[id] = parentOf(shortest, id)
		}

		rg.G.RemoveNode(source.ID())
	}

	for id, plant := range tree.Plant {
		if d := tree.Depth[id]; d > tree.Lengths[plant] {
			tree.Lengths[plant] = d
		}
	}

	return tree, nil
}

// parentOf extracts the predecessor of id on its shortest path, mapping
// nodes adjacent to the synthetic source (the seeds) to NoParent.
func parentOf(shortest path.Shortest, id int64) int64 {
	p, _ := shortest.To(id)
	if len(p) < 2 {
		return NoParent
	}
	parent := p[len(p)-2].ID()
	if parent < 0 {
		return NoParent
	}
	return parent
}

// PlantCount returns the number of plants present in the tree.
func (t *RootTree) PlantCount() int {
	return len(t.Lengths)
}

// Tip returns the deepest node of a plant (the primary root tip) and its
// geodesic depth. It returns NoParent when the plant has no pixels.
func (t *RootTree) Tip(plant int) (int64, float64) {
	best := NoParent
	depth := -1.0
	for id, p := range t.Plant {
		if p != plant {
			continue
		}
		if d := t.Depth[id]; d > depth {
			best = id
			depth = d
		}
	}
	return best, depth
}
