package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/artzet-s/rhizoscan/pkg/config"
	"github.com/artzet-s/rhizoscan/pkg/pipeline"
	"github.com/artzet-s/rhizoscan/pkg/rootgraph"
)

// plantMeasure is one plant's entry in the per-image measurement report.
type plantMeasure struct {
	Plant         int     `yaml:"plant"`
	RootLengthPx  float64 `yaml:"rootLengthPx"`
	RootPixelArea int     `yaml:"rootPixelArea"`
}

// imageReport is the YAML report written next to the output masks.
type imageReport struct {
	File   string         `yaml:"file"`
	Plants []plantMeasure `yaml:"plants"`
}

// result carries one image's outcome back from a worker.
type result struct {
	file string
	err  error
}

func main() {
	input := flag.String("input", "", "Input image file or directory of plate photographs")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	configPath := flag.String("config", "rhizoscan.yaml", "YAML configuration file")
	plants := flag.Int("plants", 0, "Expected plants per image (overrides config)")
	cores := flag.Int("cores", 0, "Number of images analyzed concurrently (overrides config)")
	verbose := flag.Bool("verbose", false, "Enable stage-progress output")
	flag.Parse()

	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *plants > 0 {
		cfg.Leaves.PlantNumber = *plants
	}
	if *cores > 0 {
		cfg.Processing.NumCores = *cores
	}
	if *verbose {
		cfg.Processing.Verbose = true
	}

	files, err := collectInputFiles(*input)
	if err != nil {
		log.Fatalf("Failed to list input images: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("No image files found under %s", *input)
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	log.WithFields(logrus.Fields{
		"images": len(files),
		"cores":  cfg.Processing.NumCores,
		"plants": cfg.Leaves.PlantNumber,
	}).Info("starting root analysis")

	start := time.Now()
	failed := runBatch(files, cfg, log)

	log.WithFields(logrus.Fields{
		"processed": len(files) - len(failed),
		"failed":    len(failed),
		"elapsed":   time.Since(start).Round(time.Millisecond).String(),
	}).Info("batch finished")

	if len(failed) > 0 {
		for _, f := range failed {
			log.WithField("file", f).Warn("image failed")
		}
		os.Exit(1)
	}
}

// runBatch analyzes the images on a bounded worker pool. A per-image
// failure is logged and recorded; the remaining images keep processing.
func runBatch(files []string, cfg *config.Config, log *logrus.Logger) []string {
	workers := cfg.Processing.NumCores
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan string)
	results := make(chan result)

	for w := 0; w < workers; w++ {
		go func() {
			for file := range jobs {
				results <- result{file: file, err: processImage(file, cfg, log)}
			}
		}()
	}

	go func() {
		for _, file := range files {
			jobs <- file
		}
		close(jobs)
	}()

	var failed []string
	for i := 0; i < len(files); i++ {
		res := <-results
		if res.err != nil {
			log.WithField("file", res.file).Errorf("processing failed: %v", res.err)
			failed = append(failed, res.file)
			continue
		}
		log.WithFields(logrus.Fields{
			"done": i + 1,
			"of":   len(files),
			"file": filepath.Base(res.file),
		}).Info("image processed")
	}
	sort.Strings(failed)
	return failed
}

// processImage runs the full six-stage pipeline for one file and writes
// its artifacts.
func processImage(path string, cfg *config.Config, log *logrus.Logger) error {
	p, err := pipeline.Standard(path, cfg.PlateOptions(), cfg.SegmentOptions(), cfg.LeavesOptions(), log)
	if err != nil {
		return err
	}

	ctx := pipeline.NewContext()
	defer ctx.Close()

	if err := p.Run(ctx); err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if cfg.Output.SaveMasks {
		rmask, err := ctx.Mask("rmask")
		if err != nil {
			return err
		}
		if err := rmask.Save(filepath.Join(cfg.Output.Dir, base+"_rmask.png")); err != nil {
			return err
		}

		seedMap, err := ctx.Mask("seed_map")
		if err != nil {
			return err
		}
		if err := seedMap.Save(filepath.Join(cfg.Output.Dir, base+"_seed_map.png")); err != nil {
			return err
		}
	}

	if cfg.Output.SaveReport {
		tree, err := ctx.Tree("tree")
		if err != nil {
			return err
		}
		if err := writeReport(filepath.Join(cfg.Output.Dir, base+"_report.yaml"), path, tree); err != nil {
			return err
		}
	}

	return nil
}

// writeReport serializes per-plant measurements extracted from the root
// tree.
func writeReport(path, imageFile string, tree *rootgraph.RootTree) error {
	report := imageReport{File: imageFile}

	areas := make(map[int]int)
	for _, plant := range tree.Plant {
		areas[plant]++
	}

	plants := make([]int, 0, len(tree.Lengths))
	for plant := range tree.Lengths {
		plants = append(plants, plant)
	}
	sort.Ints(plants)

	for _, plant := range plants {
		report.Plants = append(report.Plants, plantMeasure{
			Plant:         plant,
			RootLengthPx:  tree.Lengths[plant],
			RootPixelArea: areas[plant],
		})
	}

	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}

// collectInputFiles expands a file or directory argument into the list of
// image files to analyze.
func collectInputFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{input}, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(input, entry.Name())
		if isImageFile(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png" ||
		ext == ".tif" || ext == ".tiff" || ext == ".bmp"
}
