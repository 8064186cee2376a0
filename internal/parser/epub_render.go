package parser

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxInlineImage caps images embedded into rendered chapters
const maxInlineImage = 4 << 20

// removedElements never reach the reader
var removedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Link:     true,
	atom.Meta:     true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Form:     true,
	atom.Noscript: true,
}

// renderSection loads an XHTML document with its images and returns the
// sanitized body markup. Loaded resources are dropped when it returns.
func (pkg *epubPackage) renderSection(ctx context.Context, sectionPath string) (string, error) {
	if sectionPath == "" {
		return "", nil
	}
	data, err := pkg.readFile(sectionPath)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	body := findElementAtom(doc, atom.Body)
	if body == nil {
		return "", nil
	}

	if err := pkg.sanitize(ctx, body, sectionPath); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// sanitize strips active content and inlines images in the subtree under n
func (pkg *epubPackage) sanitize(ctx context.Context, n *html.Node, sectionPath string) error {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
			continue
		}
		if c.Type != html.ElementNode {
			continue
		}
		if removedElements[c.DataAtom] {
			n.RemoveChild(c)
			continue
		}

		stripUnsafeAttributes(c)
		switch {
		case c.DataAtom == atom.Img:
			if err := ctx.Err(); err != nil {
				return err
			}
			pkg.inlineImage(c, "", "src", sectionPath)
		case c.Data == "image":
			if err := ctx.Err(); err != nil {
				return err
			}
			pkg.inlineImage(c, "xlink", "href", sectionPath)
			pkg.inlineImage(c, "", "href", sectionPath)
		}

		if err := pkg.sanitize(ctx, c, sectionPath); err != nil {
			return err
		}
	}
	return nil
}

// inlineImage replaces an archive-relative image reference with a data URI
func (pkg *epubPackage) inlineImage(n *html.Node, namespace, key, sectionPath string) {
	for i, a := range n.Attr {
		if !matchAttr(a, namespace, key) {
			continue
		}
		if a.Val == "" || hasURIScheme(a.Val) {
			continue
		}
		imgPath := resolveRelativePath(sectionPath, hrefWithoutFragment(a.Val))
		if imgPath == "" {
			continue
		}
		f := findZipFile(pkg.zr, imgPath)
		if f == nil || f.UncompressedSize64 > maxInlineImage {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			continue
		}
		n.Attr[i].Val = "data:" + pkg.mediaType(imgPath) + ";base64," + base64.StdEncoding.EncodeToString(data)
	}
}

func (pkg *epubPackage) mediaType(p string) string {
	if item, ok := pkg.manifestByPath[p]; ok && item.MediaType != "" {
		return item.MediaType
	}
	if t := mime.TypeByExtension(path.Ext(p)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// stripUnsafeAttributes drops event handlers and script-capable URIs
func stripUnsafeAttributes(n *html.Node) {
	cleaned := n.Attr[:0]
	for _, a := range n.Attr {
		if strings.HasPrefix(strings.ToLower(a.Key), "on") {
			continue
		}
		if isURIAttribute(a) && !isSafeURI(a.Val) {
			continue
		}
		cleaned = append(cleaned, a)
	}
	n.Attr = cleaned
}

func isURIAttribute(a html.Attribute) bool {
	switch a.Key {
	case "href", "src", "xlink:href", "poster", "action":
		return true
	}
	return false
}

// isSafeURI allows relative references, http(s), mailto and data:image
func isSafeURI(raw string) bool {
	v := strings.TrimSpace(raw)
	if v == "" || strings.HasPrefix(v, "#") {
		return true
	}
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "":
		return true
	case "http", "https", "mailto":
		return true
	case "data":
		return strings.HasPrefix(strings.ToLower(v), "data:image/")
	}
	return false
}

// hasURIScheme reports whether s starts with a scheme such as "data:"
func hasURIScheme(s string) bool {
	s = strings.TrimSpace(s)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':':
			return i > 1
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return false
}

func matchAttr(a html.Attribute, namespace, key string) bool {
	if namespace == "" {
		return a.Key == key && a.Namespace == ""
	}
	return (a.Namespace == namespace && a.Key == key) || a.Key == namespace+":"+key
}

func findElementAtom(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElementAtom(c, a); found != nil {
			return found
		}
	}
	return nil
}
