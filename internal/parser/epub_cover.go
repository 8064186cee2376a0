package parser

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/unalkalkan/bookshelf/internal/util"
)

// coverThumbnail locates the cover image and returns it as a thumbnail
// data URI. It returns "" when the book has no usable cover.
func (pkg *epubPackage) coverThumbnail() string {
	p := pkg.coverPath()
	if p == "" {
		return ""
	}
	data, err := pkg.readFile(p)
	if err != nil {
		return ""
	}
	thumb, err := util.GenerateThumbnail(data)
	if err != nil {
		return ""
	}
	return thumb
}

// coverPath tries, in order: the EPUB 3 cover-image property, the EPUB 2
// cover meta, an image item named like a cover, and the first image of the
// first spine document.
func (pkg *epubPackage) coverPath() string {
	for _, item := range pkg.opf.Manifest.Items {
		if hasToken(item.Properties, "cover-image") {
			return pkg.resolve(item.Href)
		}
	}

	for _, m := range pkg.opf.Metadata.Metas {
		if !strings.EqualFold(m.Name, "cover") || m.Content == "" {
			continue
		}
		item, ok := pkg.manifestByID[m.Content]
		if !ok {
			continue
		}
		if isImageType(item.MediaType) {
			return pkg.resolve(item.Href)
		}
		if p := pkg.firstImageIn(pkg.resolve(item.Href)); p != "" {
			return p
		}
	}

	for _, item := range pkg.opf.Manifest.Items {
		if isImageType(item.MediaType) &&
			(strings.Contains(strings.ToLower(item.ID), "cover") || strings.Contains(strings.ToLower(item.Href), "cover")) {
			return pkg.resolve(item.Href)
		}
	}

	if len(pkg.spine) > 0 {
		return pkg.firstImageIn(pkg.spine[0])
	}
	return ""
}

// firstImageIn returns the archive path of the first image in an XHTML document
func (pkg *epubPackage) firstImageIn(docPath string) string {
	if docPath == "" {
		return ""
	}
	data, err := pkg.readFile(docPath)
	if err != nil {
		return ""
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode {
			var ref string
			switch {
			case n.DataAtom == atom.Img:
				ref = attr(n, "src")
			case n.Data == "image":
				for _, a := range n.Attr {
					if matchAttr(a, "xlink", "href") || matchAttr(a, "", "href") {
						ref = a.Val
						break
					}
				}
			}
			if ref != "" && !hasURIScheme(ref) {
				found = resolveRelativePath(docPath, hrefWithoutFragment(ref))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func isImageType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}
