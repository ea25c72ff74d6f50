// Package tvpp opens TVPaint .tvpp project files and reconstructs RGBA
// rasters from their layered, tiled animation data. Open(path)
// memory-maps the file and parses its structure eagerly, with
// per-clip and per-frame work deferred until the caller asks for it.
package tvpp

import (
	"fmt"
	"log"
	"regexp"
	"strconv"

	"github.com/tvpio/tvpp/internal/clip"
	"github.com/tvpio/tvpp/internal/container"
	"github.com/tvpio/tvpp/internal/dict"
	"github.com/tvpio/tvpp/internal/tvperr"
)

// Project is an opened .tvpp file: its container tree plus decoded
// project-level metadata. Scene metadata is decoded at Open; clip
// contents are decoded lazily and cached on first access.
type Project struct {
	src    *container.Source
	root   *container.Node
	logger *log.Logger

	metadata map[string]string

	scenes     []*container.Node
	sceneMeta  []map[string]string
	sceneClips [][]*container.Node

	clips map[clipKey]*clip.Clip
}

type clipKey struct {
	scene, clip int
}

// Version is a (major, minor) TVPaint host version pair, parsed from
// the project's Host metadata field.
type Version struct {
	Major int
	Minor int
}

// ABGR reports whether pixel data for this version is stored as ABGR
// (TVPaint 9.x) rather than RGBA (10+), per §6.
func (v Version) ABGR() bool { return v.Major == 9 }

// hostVersionPattern captures "(major.minor)" out of a Host string
// such as "TVPaint Animation 11.7 (11.7) ...".
var hostVersionPattern = regexp.MustCompile(`\((\d+)\.(\d+)\)`)

// Open memory-maps path, parses the container tree, and decodes
// project-level and scene-level metadata. Clips are not decoded until
// requested.
func Open(path string) (*Project, error) {
	src, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	logger := log.Default()
	root, err := container.ParseTree(src.Data(), logger)
	if err != nil {
		src.Close()
		return nil, err
	}

	p := &Project{
		src:    src,
		root:   root,
		logger: logger,
		clips:  make(map[clipKey]*clip.Clip),
	}

	info := root.Find(container.KindProjectInfo)
	if info != nil {
		meta, err := dict.ParseUTF16(src.Data()[info.PayloadOffset : info.PayloadOffset+info.PayloadSize])
		if err != nil {
			src.Close()
			return nil, err
		}
		p.metadata = meta
	} else {
		p.metadata = map[string]string{}
	}

	p.scenes = root.FindAll(container.KindScene)
	p.sceneMeta = make([]map[string]string, len(p.scenes))
	p.sceneClips = make([][]*container.Node, len(p.scenes))
	for i, scene := range p.scenes {
		if info := scene.Find(container.KindSceneInfo); info != nil {
			meta, err := dict.ParseUTF16(src.Data()[info.PayloadOffset : info.PayloadOffset+info.PayloadSize])
			if err != nil {
				src.Close()
				return nil, err
			}
			p.sceneMeta[i] = meta
		} else {
			p.sceneMeta[i] = map[string]string{}
		}
		p.sceneClips[i] = scene.FindAll(container.KindClip)
	}

	return p, nil
}

// Close releases the underlying file mapping. A Project must not be
// used after Close.
func (p *Project) Close() error {
	return p.src.Close()
}

// Metadata returns the project-level key/value dictionary parsed from
// the project-info node.
func (p *Project) Metadata() map[string]string {
	return p.metadata
}

// Version parses the project's TVPaint host version out of its Host
// metadata field, per the version-detection testable property in §8.
func (p *Project) Version() (Version, error) {
	host, ok := p.metadata["Host"]
	if !ok {
		return Version{}, tvperr.New(tvperr.KindIO, "project metadata has no Host field")
	}
	m := hostVersionPattern.FindStringSubmatch(host)
	if m == nil {
		return Version{}, tvperr.New(tvperr.KindIO, "Host field %q does not contain a (major.minor) version", host)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	return Version{Major: major, Minor: minor}, nil
}

// SceneCount returns the number of scenes in the project.
func (p *Project) SceneCount() int {
	return len(p.scenes)
}

// SceneMetadata returns the decoded scene-info dictionary for the
// scene at sceneIndex.
func (p *Project) SceneMetadata(sceneIndex int) (map[string]string, error) {
	if sceneIndex < 0 || sceneIndex >= len(p.scenes) {
		return nil, tvperr.New(tvperr.KindOutOfRange, "scene index %d out of range (have %d scenes)", sceneIndex, len(p.scenes))
	}
	return p.sceneMeta[sceneIndex], nil
}

// ClipCount returns the number of clips in the scene at sceneIndex.
func (p *Project) ClipCount(sceneIndex int) (int, error) {
	if sceneIndex < 0 || sceneIndex >= len(p.scenes) {
		return 0, tvperr.New(tvperr.KindOutOfRange, "scene index %d out of range (have %d scenes)", sceneIndex, len(p.scenes))
	}
	return len(p.sceneClips[sceneIndex]), nil
}

// Clip fully decodes and returns the clip at (sceneIndex, clipIndex):
// its clip-intro fields and its layers/images. The result is cached,
// so repeat calls with the same indices are free.
func (p *Project) Clip(sceneIndex, clipIndex int) (*clip.Clip, error) {
	if sceneIndex < 0 || sceneIndex >= len(p.scenes) {
		return nil, tvperr.New(tvperr.KindOutOfRange, "scene index %d out of range (have %d scenes)", sceneIndex, len(p.scenes))
	}
	clips := p.sceneClips[sceneIndex]
	if clipIndex < 0 || clipIndex >= len(clips) {
		return nil, tvperr.New(tvperr.KindOutOfRange, "clip index %d out of range (scene %d has %d clips)", clipIndex, sceneIndex, len(clips))
	}

	key := clipKey{sceneIndex, clipIndex}
	if c, ok := p.clips[key]; ok {
		return c, nil
	}

	clipNode := clips[clipIndex]
	dataNode := clipNode.Find(container.KindClipData)
	if dataNode == nil {
		return nil, tvperr.New(tvperr.KindIO, "clip %d of scene %d has no clip-data node", clipIndex, sceneIndex)
	}
	body := p.src.Data()[dataNode.PayloadOffset : dataNode.PayloadOffset+dataNode.PayloadSize]
	c, err := clip.Read(body, p.logger)
	if err != nil {
		return nil, fmt.Errorf("decoding clip %d of scene %d: %w", clipIndex, sceneIndex, err)
	}
	p.clips[key] = c
	return c, nil
}
