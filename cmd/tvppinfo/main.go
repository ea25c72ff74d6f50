// Command tvppinfo reports project, scene, and clip metadata for a
// .tvpp file: a read-only walk of the decoded structure, no conversion.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tvpio/tvpp"
)

func main() {
	var scene, clipIdx int
	flag.IntVar(&scene, "scene", -1, "Print detail for a single scene index (default: all scenes)")
	flag.IntVar(&clipIdx, "clip", -1, "Print detail for a single clip index within -scene")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tvppinfo [flags] <file.tvpp>\n\n")
		fmt.Fprintf(os.Stderr, "Print project, scene, and clip metadata.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	p, err := tvpp.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	fmt.Printf("File: %s\n", flag.Arg(0))
	printMetadata("Project metadata", p.Metadata())

	if v, err := p.Version(); err == nil {
		pixelFormat := "RGBA"
		if v.ABGR() {
			pixelFormat = "ABGR"
		}
		fmt.Printf("TVPaint host version: %d.%d (pixel format: %s)\n", v.Major, v.Minor, pixelFormat)
	} else {
		fmt.Printf("TVPaint host version: unknown (%v)\n", err)
	}

	fmt.Printf("Scenes: %d\n", p.SceneCount())

	scenes := []int{}
	if scene >= 0 {
		scenes = append(scenes, scene)
	} else {
		for i := 0; i < p.SceneCount(); i++ {
			scenes = append(scenes, i)
		}
	}

	for _, s := range scenes {
		meta, err := p.SceneMetadata(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  scene %d: %v\n", s, err)
			continue
		}
		n, err := p.ClipCount(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  scene %d: %v\n", s, err)
			continue
		}
		fmt.Printf("\nScene %d: %d clip(s)\n", s, n)
		printMetadata("  metadata", meta)

		clips := []int{}
		if clipIdx >= 0 {
			clips = append(clips, clipIdx)
		} else {
			for i := 0; i < n; i++ {
				clips = append(clips, i)
			}
		}
		for _, c := range clips {
			printClip(p, s, c)
		}
	}
}

func printClip(p *tvpp.Project, sceneIdx, clipIdx int) {
	c, err := p.Clip(sceneIdx, clipIdx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  clip %d: %v\n", clipIdx, err)
		return
	}
	w, h := c.Dimensions()
	r, g, b, a := c.BackgroundColor()
	fmt.Printf("  Clip %d: %dx%d, background=(%d,%d,%d,%d), %d layer(s)\n", clipIdx, w, h, r, g, b, a, len(c.Layers))
	for i, l := range c.Layers {
		ctg := ""
		if l.IsCtg {
			ctg = " [ctg]"
		}
		fmt.Printf("    layer %d: %q%s, frames %d-%d, %d image(s), visible=%v locked=%v blend_mode=%d\n",
			i, l.Name, ctg, l.Settings.StartFrame, l.Settings.EndFrame, len(l.Images),
			l.Settings.Visible, l.Settings.Locked, l.Settings.BlendMode)
	}
}

func printMetadata(label string, meta map[string]string) {
	fmt.Printf("%s:\n", label)
	for k, v := range meta {
		fmt.Printf("  %s = %s\n", k, v)
	}
}
