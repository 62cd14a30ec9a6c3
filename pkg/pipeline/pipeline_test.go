package pipeline

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/artzet-s/rhizoscan/pkg/plate"
	"github.com/artzet-s/rhizoscan/pkg/rootimage"
	"github.com/artzet-s/rhizoscan/pkg/seed"
)

// fakeStage is a pure-Go stage used to exercise the composition contract
// without touching image data.
type fakeStage struct {
	name     string
	ins      []string
	outs     []string
	ran      *[]string
	skipOuts bool
	fail     bool
}

func (s *fakeStage) Name() string      { return s.name }
func (s *fakeStage) Inputs() []string  { return s.ins }
func (s *fakeStage) Outputs() []string { return s.outs }

func (s *fakeStage) Run(ctx *Context) error {
	if s.ran != nil {
		*s.ran = append(*s.ran, s.name)
	}
	if s.fail {
		return fmt.Errorf("%s: forced failure", s.name)
	}
	if !s.skipOuts {
		for _, out := range s.outs {
			ctx.Set(out, out)
		}
	}
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// TestNewValidatesDataflow verifies that a stage consuming an artifact no
// earlier stage produces is rejected at construction time.
func TestNewValidatesDataflow(t *testing.T) {
	a := &fakeStage{name: "a", outs: []string{"x"}}
	b := &fakeStage{name: "b", ins: []string{"x"}, outs: []string{"y"}}

	if _, err := New(quietLogger(), nil, a, b); err != nil {
		t.Errorf("Expected valid pipeline, got %v", err)
	}

	if _, err := New(quietLogger(), nil, b, a); err == nil {
		t.Errorf("Expected misordered pipeline to be rejected")
	}

	// A preset artifact satisfies the first stage's input.
	if _, err := New(quietLogger(), []string{"x"}, b, a); err != nil {
		t.Errorf("Expected preset input to satisfy stage b, got %v", err)
	}
}

// TestRunOrderAndArtifacts verifies in-order execution and artifact flow.
func TestRunOrderAndArtifacts(t *testing.T) {
	var ran []string
	a := &fakeStage{name: "a", outs: []string{"x"}, ran: &ran}
	b := &fakeStage{name: "b", ins: []string{"x"}, outs: []string{"y"}, ran: &ran}

	p, err := New(quietLogger(), nil, a, b)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := NewContext()
	defer ctx.Close()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !reflect.DeepEqual(ran, []string{"a", "b"}) {
		t.Errorf("Expected stages to run in order, got %v", ran)
	}
	if !ctx.Has("x") || !ctx.Has("y") {
		t.Errorf("Expected both artifacts in the context")
	}
}

// TestRunFailurePropagates verifies that a stage failure aborts the run
// unmodified and later stages never execute.
func TestRunFailurePropagates(t *testing.T) {
	var ran []string
	a := &fakeStage{name: "a", outs: []string{"x"}, ran: &ran, fail: true}
	b := &fakeStage{name: "b", ins: []string{"x"}, outs: []string{"y"}, ran: &ran}

	p, err := New(quietLogger(), nil, a, b)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := NewContext()
	defer ctx.Close()
	err = p.Run(ctx)
	if err == nil || err.Error() != "a: forced failure" {
		t.Errorf("Expected the stage error to propagate unmodified, got %v", err)
	}
	if !reflect.DeepEqual(ran, []string{"a"}) {
		t.Errorf("Expected only stage a to run, got %v", ran)
	}
}

// TestRunMissingOutput verifies that a stage failing to produce a declared
// output fails the run.
func TestRunMissingOutput(t *testing.T) {
	a := &fakeStage{name: "a", outs: []string{"x"}, skipOuts: true}

	p, err := New(quietLogger(), nil, a)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := NewContext()
	defer ctx.Close()
	if err := p.Run(ctx); err == nil {
		t.Errorf("Expected missing declared output to fail the run")
	}
}

// TestStandardComposition verifies the declared six-stage order of the
// root analysis pipeline.
func TestStandardComposition(t *testing.T) {
	p, err := Standard("plate.png", plate.DefaultOptions(),
		rootimage.DefaultSegmentOptions(), seed.DefaultLeavesOptions(), quietLogger())
	if err != nil {
		t.Fatalf("Standard failed: %v", err)
	}

	expected := []string{
		"load_image", "detect_frame", "segment_image",
		"detect_leaves", "compute_graph", "compute_tree",
	}
	if !reflect.DeepEqual(p.StageNames(), expected) {
		t.Errorf("Expected stage order %v, got %v", expected, p.StageNames())
	}
}

// TestHiddenParameters verifies that hidden parameters stay off the
// pipeline parameter surface while remaining settable by direct call.
func TestHiddenParameters(t *testing.T) {
	p, err := Standard("plate.png", plate.DefaultOptions(),
		rootimage.DefaultSegmentOptions(), seed.DefaultLeavesOptions(), quietLogger())
	if err != nil {
		t.Fatalf("Standard failed: %v", err)
	}

	expected := []string{
		"segment_image.root_max_radius",
		"detect_leaves.plant_number",
		"detect_leaves.root_min_radius",
		"detect_leaves.leaf_height",
	}
	if !reflect.DeepEqual(p.Params(), expected) {
		t.Errorf("Expected exposed parameters %v, got %v", expected, p.Params())
	}

	for _, hidden := range []string{
		"segment_image.min_dimension", "segment_image.smooth",
		"segment_image.verbose", "detect_leaves.sort",
	} {
		for _, got := range p.Params() {
			if got == hidden {
				t.Errorf("Expected %s to stay hidden", hidden)
			}
		}
	}

	// Direct calls still accept the full option set.
	opts := rootimage.DefaultSegmentOptions()
	opts.MinDimension = 0
	opts.Smooth = 0
	stage := &SegmentImage{Opts: opts}
	if stage.Opts.MinDimension != 0 || stage.Opts.Smooth != 0 {
		t.Errorf("Expected hidden parameters to be settable on the options struct")
	}
}

// TestContextTypedAccess verifies the typed getters reject artifacts of
// the wrong kind.
func TestContextTypedAccess(t *testing.T) {
	ctx := NewContext()
	defer ctx.Close()
	ctx.Set("image", "not a mat")

	if _, err := ctx.Mat("image"); err == nil {
		t.Errorf("Expected a type error for a non-Mat artifact")
	}
	if _, err := ctx.Mask("absent"); err == nil {
		t.Errorf("Expected a type error for a missing artifact")
	}
	if _, err := ctx.BBox("image"); err == nil {
		t.Errorf("Expected a type error for a non-bbox artifact")
	}
}
