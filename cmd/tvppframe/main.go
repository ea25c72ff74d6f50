// Command tvppframe exports layer frames from a .tvpp project as
// individual image files, with flag parsing, a bounded concurrent
// worker pool, and an optional progress bar.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/tvpio/tvpp"
	"github.com/tvpio/tvpp/internal/encode"
	"github.com/tvpio/tvpp/internal/layer"
)

func main() {
	var (
		scene       int
		clipIdx     int
		layerIdx    int
		frame       int
		outputDir   string
		format      string
		quality     int
		concurrency int
		verbose     bool
	)

	flag.IntVar(&scene, "scene", 0, "Scene index")
	flag.IntVar(&clipIdx, "clip", 0, "Clip index within the scene")
	flag.IntVar(&layerIdx, "layer", -1, "Layer index to export (default: all layers)")
	flag.IntVar(&frame, "frame", -1, "Single frame index to export (default: the layer's full frame range)")
	flag.StringVar(&outputDir, "output_dir", ".", "Directory to write exported images into")
	flag.StringVar(&format, "format", "png", "Image format: png, jpeg, webp")
	flag.IntVar(&quality, "quality", 90, "JPEG/WebP quality 1-100")
	flag.IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Number of parallel workers")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tvppframe [flags] <file.tvpp>\n\n")
		fmt.Fprintf(os.Stderr, "Export layer frames from a .tvpp project as images.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), scene, clipIdx, layerIdx, frame, outputDir, format, quality, concurrency, verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, sceneIdx, clipIdx, layerIdx, frameArg int, outputDir, format string, quality, concurrency int, verbose bool) error {
	p, err := tvpp.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer p.Close()

	version, err := p.Version()
	if err != nil {
		return fmt.Errorf("detecting TVPaint version: %w", err)
	}

	c, err := p.Clip(sceneIdx, clipIdx)
	if err != nil {
		return fmt.Errorf("decoding clip: %w", err)
	}

	enc, err := encode.NewEncoder(format, quality)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	layerIndices := []int{}
	if layerIdx >= 0 {
		layerIndices = append(layerIndices, layerIdx)
	} else {
		for i := range c.Layers {
			layerIndices = append(layerIndices, i)
		}
	}

	type job struct {
		layerIdx int
		frame    int
	}
	var jobs []job
	for _, li := range layerIndices {
		if li < 0 || li >= len(c.Layers) {
			return fmt.Errorf("layer index %d out of range (clip has %d layers)", li, len(c.Layers))
		}
		l := c.Layers[li]
		if frameArg >= 0 {
			jobs = append(jobs, job{li, frameArg})
			continue
		}
		for f := l.Settings.StartFrame; f <= l.Settings.EndFrame; f++ {
			jobs = append(jobs, job{li, f})
		}
	}

	var bar *progressBar
	if verbose {
		bar = newProgressBar("Exporting", int64(len(jobs)))
		defer bar.Finish()
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	errs := make(chan error, len(jobs))

	for _, j := range jobs {
		j := j
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if bar != nil {
					bar.Increment()
				}
			}()
			if err := exportFrame(c.Layers[j.layerIdx], j.layerIdx, j.frame, version, enc, outputDir); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func exportFrame(l *layer.Layer, layerIdx, frameIdx int, version tvpp.Version, enc encode.Encoder, outputDir string) error {
	raster, err := l.Frame(frameIdx)
	if err != nil {
		return fmt.Errorf("layer %d frame %d: %w", layerIdx, frameIdx, err)
	}

	w, h := l.Dimensions()
	img := toRGBAImage(raster, w, h, version.ABGR())

	data, err := enc.Encode(img)
	if err != nil {
		return fmt.Errorf("encoding layer %d frame %d: %w", layerIdx, frameIdx, err)
	}

	name := fmt.Sprintf("layer%03d_%04d%s", layerIdx, frameIdx, enc.FileExtension())
	path := filepath.Join(outputDir, name)
	return os.WriteFile(path, data, 0o644)
}

// toRGBAImage converts a raw storage-order RGBA/ABGR raster into an
// image.RGBA, swapping ABGR to RGBA when the source project is
// TVPaint 9.x (§6). The core never performs this swap itself — it is
// surfaced here, at the export boundary, exactly as the version flag
// is documented to be consumed only by "the external renderer".
func toRGBAImage(raster []byte, w, h int, abgr bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if !abgr {
		copy(img.Pix, raster)
		return img
	}
	for i := 0; i+3 < len(raster); i += 4 {
		a, b, g, r := raster[i], raster[i+1], raster[i+2], raster[i+3]
		img.Pix[i+0] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img
}
