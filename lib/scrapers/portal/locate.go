package portal

import (
	"attendqr/lib/htmlutil"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const inlineImagePrefix = "data:image"

type SourceKind int

const (
	SourceInline SourceKind = iota + 1
	SourceAbsolute
	SourceRelative
)

func (k SourceKind) String() string {
	switch k {
	case SourceInline:
		return "inline-base64"
	case SourceAbsolute:
		return "absolute-url"
	case SourceRelative:
		return "relative-url"
	}
	return "unknown"
}

// ClassifySource reports how an img src can be resolved into bytes, ok is
// false for sources that cannot (protocol-relative, page-relative, empty).
func ClassifySource(src string) (SourceKind, bool) {
	switch {
	case strings.HasPrefix(src, inlineImagePrefix):
		return SourceInline, true
	case htmlutil.IsAbsolute(src):
		return SourceAbsolute, true
	case strings.HasPrefix(src, "/") && !strings.HasPrefix(src, "//"):
		return SourceRelative, true
	}
	return 0, false
}

type CandidateImage struct {
	Kind   SourceKind
	Source string
	// position in the page's combined candidate list
	Index int
}

// ImageSelector matches img elements whose attribute contains a substring,
// the match is case-sensitive.
type ImageSelector struct {
	Attr     string
	Contains string
}

func (s ImageSelector) CSS() string {
	return fmt.Sprintf("img[%s*='%s']", s.Attr, s.Contains)
}

// LocateImages returns the candidate QR images of doc: every selector match
// in selector order, followed by every inline image. An element matched more
// than once is listed more than once.
func LocateImages(ctx context.Context, doc *goquery.Document, selectors []ImageSelector) []CandidateImage {
	var sources []string
	for _, selector := range selectors {
		for _, img := range doc.Find(selector.CSS()).Nodes {
			sources = append(sources, htmlutil.Attr(img, "src"))
		}
	}
	for _, img := range doc.Find("img").Nodes {
		src := htmlutil.Attr(img, "src")
		if strings.HasPrefix(src, inlineImagePrefix) {
			sources = append(sources, src)
		}
	}

	var images []CandidateImage
	for i, src := range sources {
		kind, ok := ClassifySource(src)
		if !ok {
			slog.DebugContext(ctx, "ignoring unsupported image source", "src", src, "index", i)
			continue
		}
		images = append(images, CandidateImage{
			Kind:   kind,
			Source: src,
			Index:  i,
		})
	}
	return images
}
