package seed

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	kmeansMaxIter = 100
	kmeansEps     = 1e-6
)

// kmeans1D groups the values xs into k clusters along one axis, weighting
// each value by w, and returns the cluster centers in discovery order.
// Centers are initialized evenly across the value range, which is a good
// fit for plants spread along a plate row.
func kmeans1D(xs, w []float64, k int) []float64 {
	if k <= 1 {
		return []float64{stat.Mean(xs, w)}
	}

	lo := floats.Min(xs)
	hi := floats.Max(xs)
	span := hi - lo

	centers := make([]float64, k)
	for i := range centers {
		centers[i] = lo + (float64(i)+0.5)*span/float64(k)
	}

	assign := make([]int, len(xs))
	for iter := 0; iter < kmeansMaxIter; iter++ {
		for i, x := range xs {
			assign[i] = nearestCenter(centers, x)
		}

		shift := 0.0
		for c := range centers {
			var vals, weights []float64
			for i := range xs {
				if assign[i] == c {
					vals = append(vals, xs[i])
					weights = append(weights, w[i])
				}
			}
			if len(vals) == 0 {
				continue
			}
			next := stat.Mean(vals, weights)
			shift = math.Max(shift, math.Abs(next-centers[c]))
			centers[c] = next
		}
		if shift < kmeansEps {
			break
		}
	}
	return centers
}

// nearestCenter returns the index of the center closest to x.
func nearestCenter(centers []float64, x float64) int {
	best := 0
	bestDist := math.Abs(centers[0] - x)
	for i := 1; i < len(centers); i++ {
		if d := math.Abs(centers[i] - x); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
