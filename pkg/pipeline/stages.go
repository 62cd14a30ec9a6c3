package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/pkg/plate"
	"github.com/artzet-s/rhizoscan/pkg/rootgraph"
	"github.com/artzet-s/rhizoscan/pkg/rootimage"
	"github.com/artzet-s/rhizoscan/pkg/seed"
)

// LoadImage reads the grayscale input photograph and produces "image".
type LoadImage struct {
	Path string
}

func (s *LoadImage) Name() string      { return "load_image" }
func (s *LoadImage) Inputs() []string  { return nil }
func (s *LoadImage) Outputs() []string { return []string{"image"} }

func (s *LoadImage) Run(ctx *Context) error {
	img := gocv.IMRead(s.Path, gocv.IMReadGrayScale)
	if img.Empty() {
		return fmt.Errorf("load_image: cannot read %s", s.Path)
	}
	ctx.Set("image", img)
	return nil
}

// DetectFrame locates the petri plate and produces "pmask". The stage name
// keeps the historical detect_frame alias of detect_petri_plate.
type DetectFrame struct {
	Opts plate.Options
}

func (s *DetectFrame) Name() string      { return "detect_frame" }
func (s *DetectFrame) Inputs() []string  { return []string{"image"} }
func (s *DetectFrame) Outputs() []string { return []string{"pmask"} }

func (s *DetectFrame) Run(ctx *Context) error {
	img, err := ctx.Mat("image")
	if err != nil {
		return err
	}
	pmask, err := plate.Detect(img, s.Opts)
	if err != nil {
		return err
	}
	ctx.Set("pmask", pmask)
	return nil
}

// SegmentImage computes the binary root mask, producing "rmask" and "bbox".
type SegmentImage struct {
	Opts rootimage.SegmentOptions
}

func (s *SegmentImage) Name() string      { return "segment_image" }
func (s *SegmentImage) Inputs() []string  { return []string{"image", "pmask"} }
func (s *SegmentImage) Outputs() []string { return []string{"rmask", "bbox"} }

// ExposedParams hides min_dimension, smooth and verbose from the pipeline
// surface; they remain settable through Opts on direct calls.
func (s *SegmentImage) ExposedParams() []string {
	return []string{"root_max_radius"}
}

func (s *SegmentImage) Run(ctx *Context) error {
	img, err := ctx.Mat("image")
	if err != nil {
		return err
	}
	pmask, err := ctx.Mat("pmask")
	if err != nil {
		return err
	}
	rmask, bbox, err := rootimage.SegmentImage(img, pmask, s.Opts)
	if err != nil {
		return err
	}
	ctx.Set("rmask", rmask)
	ctx.Set("bbox", bbox)
	return nil
}

// DetectLeaves locates per-plant seed regions, producing "seed_map".
type DetectLeaves struct {
	Opts seed.LeavesOptions
}

func (s *DetectLeaves) Name() string      { return "detect_leaves" }
func (s *DetectLeaves) Inputs() []string  { return []string{"rmask", "image", "bbox"} }
func (s *DetectLeaves) Outputs() []string { return []string{"seed_map"} }

// ExposedParams hides sort from the pipeline surface.
func (s *DetectLeaves) ExposedParams() []string {
	return []string{"plant_number", "root_min_radius", "leaf_height"}
}

func (s *DetectLeaves) Run(ctx *Context) error {
	rmask, err := ctx.Mask("rmask")
	if err != nil {
		return err
	}
	img, err := ctx.Mat("image")
	if err != nil {
		return err
	}
	bbox, err := ctx.BBox("bbox")
	if err != nil {
		return err
	}
	seedMap, err := seed.DetectLeaves(rmask.Mat, img, bbox, s.Opts)
	if err != nil {
		return err
	}
	ctx.Set("seed_map", seedMap)
	return nil
}

// ComputeGraph builds the pixel-adjacency root graph, producing "graph".
type ComputeGraph struct{}

func (s *ComputeGraph) Name() string      { return "compute_graph" }
func (s *ComputeGraph) Inputs() []string  { return []string{"rmask", "seed_map"} }
func (s *ComputeGraph) Outputs() []string { return []string{"graph"} }

func (s *ComputeGraph) Run(ctx *Context) error {
	rmask, err := ctx.Mask("rmask")
	if err != nil {
		return err
	}
	seedMap, err := ctx.Mask("seed_map")
	if err != nil {
		return err
	}
	g, err := rootgraph.Build(rmask.Mat, seedMap.Mat)
	if err != nil {
		return err
	}
	ctx.Set("graph", g)
	return nil
}

// ComputeTree derives the per-plant root tree, producing "tree".
type ComputeTree struct{}

func (s *ComputeTree) Name() string      { return "compute_tree" }
func (s *ComputeTree) Inputs() []string  { return []string{"graph"} }
func (s *ComputeTree) Outputs() []string { return []string{"tree"} }

func (s *ComputeTree) Run(ctx *Context) error {
	g, err := ctx.Graph("graph")
	if err != nil {
		return err
	}
	tree, err := rootgraph.ComputeTree(g)
	if err != nil {
		return err
	}
	ctx.Set("tree", tree)
	return nil
}

// Standard assembles the six-stage analysis pipeline for one image file:
// load_image, detect_frame, segment_image, detect_leaves, compute_graph,
// compute_tree.
func Standard(path string, pOpts plate.Options, sOpts rootimage.SegmentOptions, lOpts seed.LeavesOptions, log *logrus.Logger) (*Pipeline, error) {
	return New(log, nil,
		&LoadImage{Path: path},
		&DetectFrame{Opts: pOpts},
		&SegmentImage{Opts: sOpts},
		&DetectLeaves{Opts: lOpts},
		&ComputeGraph{},
		&ComputeTree{},
	)
}
