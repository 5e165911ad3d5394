// Package pptx extracts slide text from Office Open XML presentations.
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Dossier/internal/core"
)

var _ core.Backend = (*Extractor)(nil)

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

const (
	presentationPart = "ppt/presentation.xml"
	presentationRels = "ppt/_rels/presentation.xml.rels"
)

// maxSlidePart bounds the decompressed size of a single slide part.
const maxSlidePart = 64 << 20

// Extractor unpacks slide parts and joins their text runs. Runs within a
// slide are separated by a single space; slides by a blank line. Slides
// without text are left out.
type Extractor struct {
	// concurrency bounds how many slides are parsed at once; 0 means one per slide.
	concurrency int
}

// New creates a presentation backend.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the backend name.
func (e *Extractor) Name() string {
	return "pptx"
}

type slide struct {
	index int
	file  *zip.File
}

// Extract returns the slide text in presentation order.
func (e *Extractor) Extract(ctx context.Context, src core.Source) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(src.Content), int64(len(src.Content)))
	if err != nil {
		return "", core.UnsupportedVariant("pptx", err)
	}

	slides := listSlides(zr)
	if len(slides) == 0 {
		return "", nil
	}

	texts := make([]string, len(slides))
	g, gctx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i, s := range slides {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := readSlide(s.file)
			if err != nil {
				return core.UnsupportedVariant(fmt.Sprintf("pptx slide %d", s.index), err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "\n\n"), nil
}

// listSlides returns the slide parts in the order the presentation lists
// them. Decks without a resolvable slide list fall back to slide-number
// order, not archive order.
func listSlides(zr *zip.Reader) []slide {
	parts := make(map[string]*zip.File)
	var slides []slide
	for _, f := range zr.File {
		m := slidePart.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		parts[f.Name] = f
		slides = append(slides, slide{index: n, file: f})
	}
	if ordered, ok := presentationOrder(zr, parts); ok {
		return ordered
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].index < slides[j].index })
	return slides
}

type presentation struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// presentationOrder resolves p:sldIdLst through the presentation
// relationships. It reports false when either part is missing or any
// listed slide cannot be resolved to a slide part.
func presentationOrder(zr *zip.Reader, parts map[string]*zip.File) ([]slide, bool) {
	var pres presentation
	if !decodePart(zr, presentationPart, &pres) || len(pres.SlideIDs) == 0 {
		return nil, false
	}
	var rels relationships
	if !decodePart(zr, presentationRels, &rels) {
		return nil, false
	}
	targets := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		targets[r.ID] = r.Target
	}

	ordered := make([]slide, 0, len(pres.SlideIDs))
	for _, id := range pres.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			return nil, false
		}
		name := strings.TrimPrefix(target, "/")
		if !strings.HasPrefix(target, "/") {
			name = path.Join("ppt", target)
		}
		f, ok := parts[name]
		if !ok {
			return nil, false
		}
		ordered = append(ordered, slide{index: len(ordered) + 1, file: f})
	}
	return ordered, true
}

func decodePart(zr *zip.Reader, name string, v any) bool {
	f, err := zr.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	return xml.NewDecoder(io.LimitReader(f, maxSlidePart)).Decode(v) == nil
}

func readSlide(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxSlidePart))
	if err != nil {
		return "", err
	}

	var root node
	if err := xml.Unmarshal(raw, &root); err != nil {
		return "", err
	}

	var runs []string
	collectRuns(&root, &runs)
	return strings.Join(runs, " "), nil
}

// node is a generic XML element.
type node struct {
	XMLName xml.Name
	Chars   string `xml:",chardata"`
	Nodes   []node `xml:",any"`
}

// collectRuns appends the value of every text-run leaf (<a:t>) under n in
// document order. A run is consumed as a leaf and never descended into, so
// each run is counted once.
func collectRuns(n *node, runs *[]string) {
	if n.XMLName.Local == "t" {
		if v := strings.TrimSpace(n.Chars); v != "" {
			*runs = append(*runs, v)
		}
		return
	}
	for i := range n.Nodes {
		collectRuns(&n.Nodes[i], runs)
	}
}
