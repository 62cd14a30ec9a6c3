// Package pipeline composes the root-image analysis stages into an ordered
// sequence with named dataflow: each stage declares the artifacts it reads
// and produces, and a stage's inputs are resolved by name from the outputs
// of the stages before it. Pipelines are built by explicitly listing stage
// values; there is no global stage registry.
package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/artzet-s/rhizoscan/internal/models"
	"github.com/artzet-s/rhizoscan/pkg/rootgraph"
)

// Context carries the named artifacts exchanged between stages during one
// pipeline run. It is not safe for concurrent use; run one Context per
// image.
type Context struct {
	values map[string]interface{}
}

// NewContext returns an empty artifact store.
func NewContext() *Context {
	return &Context{values: make(map[string]interface{})}
}

// Set stores an artifact under its declared name.
func (c *Context) Set(name string, v interface{}) {
	c.values[name] = v
}

// Has reports whether an artifact is present.
func (c *Context) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Mat returns a pixel-array artifact.
func (c *Context) Mat(name string) (gocv.Mat, error) {
	v, ok := c.values[name].(gocv.Mat)
	if !ok {
		return gocv.Mat{}, fmt.Errorf("artifact %q is not an image", name)
	}
	return v, nil
}

// Mask returns a serializable-mask artifact.
func (c *Context) Mask(name string) (models.SerializableMask, error) {
	v, ok := c.values[name].(models.SerializableMask)
	if !ok {
		return models.SerializableMask{}, fmt.Errorf("artifact %q is not a mask", name)
	}
	return v, nil
}

// BBox returns a bounding-box artifact.
func (c *Context) BBox(name string) (models.BoundingBox, error) {
	v, ok := c.values[name].(models.BoundingBox)
	if !ok {
		return models.BoundingBox{}, fmt.Errorf("artifact %q is not a bounding box", name)
	}
	return v, nil
}

// Graph returns a root-graph artifact.
func (c *Context) Graph(name string) (*rootgraph.RootGraph, error) {
	v, ok := c.values[name].(*rootgraph.RootGraph)
	if !ok {
		return nil, fmt.Errorf("artifact %q is not a root graph", name)
	}
	return v, nil
}

// Tree returns a root-tree artifact.
func (c *Context) Tree(name string) (*rootgraph.RootTree, error) {
	v, ok := c.values[name].(*rootgraph.RootTree)
	if !ok {
		return nil, fmt.Errorf("artifact %q is not a root tree", name)
	}
	return v, nil
}

// Close releases every pixel buffer held by the context.
func (c *Context) Close() {
	for name, v := range c.values {
		switch m := v.(type) {
		case gocv.Mat:
			m.Close()
		case models.SerializableMask:
			m.Close()
		}
		delete(c.values, name)
	}
}

// Stage is one step of the analysis pipeline. Inputs and Outputs declare
// the artifact names the stage reads and produces; Run performs the work
// against a Context holding at least the declared inputs.
type Stage interface {
	Name() string
	Inputs() []string
	Outputs() []string
	Run(ctx *Context) error
}

// Exposer is implemented by stages that surface a subset of their
// parameters at pipeline level. Parameters not listed stay settable through
// the stage's Options struct on direct calls, but are excluded from the
// pipeline's parameter listing.
type Exposer interface {
	ExposedParams() []string
}

// Pipeline is an explicitly ordered sequence of stages.
type Pipeline struct {
	stages []Stage
	log    *logrus.Logger
}

// New builds a pipeline from an ordered stage list, validating that every
// declared input is produced by an earlier stage or listed in preset (the
// artifact names the caller will place in the Context before Run).
func New(log *logrus.Logger, preset []string, stages ...Stage) (*Pipeline, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	available := make(map[string]bool, len(preset))
	for _, name := range preset {
		available[name] = true
	}
	for _, s := range stages {
		for _, in := range s.Inputs() {
			if !available[in] {
				return nil, fmt.Errorf("stage %s: input %q is not produced by any earlier stage", s.Name(), in)
			}
		}
		for _, out := range s.Outputs() {
			available[out] = true
		}
	}

	return &Pipeline{stages: stages, log: log}, nil
}

// Run executes the stages in order against ctx. The first stage failure
// aborts the run and propagates unmodified; recovery is the batch driver's
// responsibility.
func (p *Pipeline) Run(ctx *Context) error {
	for _, s := range p.stages {
		for _, in := range s.Inputs() {
			if !ctx.Has(in) {
				return fmt.Errorf("stage %s: missing input artifact %q", s.Name(), in)
			}
		}

		p.log.WithField("stage", s.Name()).Debug("running stage")
		if err := s.Run(ctx); err != nil {
			return err
		}

		for _, out := range s.Outputs() {
			if !ctx.Has(out) {
				return fmt.Errorf("stage %s: declared output %q was not produced", s.Name(), out)
			}
		}
	}
	return nil
}

// Params lists the pipeline-facing parameters of all stages, qualified as
// stage.param. Hidden parameters do not appear here.
func (p *Pipeline) Params() []string {
	var params []string
	for _, s := range p.stages {
		if e, ok := s.(Exposer); ok {
			for _, name := range e.ExposedParams() {
				params = append(params, s.Name()+"."+name)
			}
		}
	}
	return params
}

// StageNames returns the declared stage order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}
