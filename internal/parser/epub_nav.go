package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// navPoint is a navigation entry before index assignment
type navPoint struct {
	id       string
	label    string
	href     string // resolved archive path, fragment kept
	children []navPoint
}

// navigation loads the EPUB 3 nav document, falling back to the NCX
func (pkg *epubPackage) navigation() ([]navPoint, error) {
	if strings.HasPrefix(pkg.opf.Version, "3") {
		if points, err := pkg.navDocument(); err == nil && len(points) > 0 {
			return points, nil
		}
	}
	return pkg.ncx()
}

func (pkg *epubPackage) navDocument() ([]navPoint, error) {
	for _, item := range pkg.opf.Manifest.Items {
		if !hasToken(item.Properties, "nav") {
			continue
		}
		navPath := pkg.resolve(item.Href)
		data, err := pkg.readFile(navPath)
		if err != nil {
			return nil, err
		}
		return parseNavDocument(data, navPath)
	}
	return nil, nil
}

func (pkg *epubPackage) ncx() ([]navPoint, error) {
	item, ok := pkg.manifestByID[pkg.opf.Spine.Toc]
	if !ok {
		for _, it := range pkg.opf.Manifest.Items {
			if it.MediaType == "application/x-dtbncx+xml" {
				item, ok = it, true
				break
			}
		}
	}
	if !ok {
		return nil, nil
	}

	ncxPath := pkg.resolve(item.Href)
	data, err := pkg.readFile(ncxPath)
	if err != nil {
		return nil, err
	}
	return parseNCX(data, ncxPath)
}

type ncxDocument struct {
	XMLName xml.Name `xml:"ncx"`
	NavMap  struct {
		Points []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	ID    string `xml:"id,attr"`
	Label struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

func parseNCX(data []byte, ncxPath string) ([]navPoint, error) {
	var doc ncxDocument
	if err := xml.Unmarshal(stripBOM(preprocessHTMLEntities(data)), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}
	return convertNCX(doc.NavMap.Points, ncxPath), nil
}

func convertNCX(points []ncxNavPoint, ncxPath string) []navPoint {
	if len(points) == 0 {
		return nil
	}
	out := make([]navPoint, 0, len(points))
	for _, np := range points {
		out = append(out, navPoint{
			id:       np.ID,
			label:    strings.TrimSpace(np.Label.Text),
			href:     resolveHref(ncxPath, np.Content.Src),
			children: convertNCX(np.Children, ncxPath),
		})
	}
	return out
}

func parseNavDocument(data []byte, navPath string) ([]navPoint, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse nav document: %w", err)
	}

	var tocNav, firstNav *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if tocNav != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "nav" {
			if firstNav == nil {
				firstNav = n
			}
			if hasToken(attr(n, "epub:type"), "toc") {
				tocNav = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	nav := tocNav
	if nav == nil {
		nav = firstNav
	}
	if nav == nil {
		return nil, nil
	}
	ol := findFirstElement(nav, "ol")
	if ol == nil {
		return nil, nil
	}
	return parseNavList(ol, navPath), nil
}

func parseNavList(ol *html.Node, navPath string) []navPoint {
	var out []navPoint
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		point := navPoint{id: attr(li, "id")}
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "a":
				if point.href == "" {
					point.href = resolveHref(navPath, attr(c, "href"))
					point.label = strings.TrimSpace(textContent(c))
				}
			case "span":
				if point.label == "" {
					point.label = strings.TrimSpace(textContent(c))
				}
			case "ol":
				point.children = parseNavList(c, navPath)
			}
		}
		out = append(out, point)
	}
	return out
}

// resolveHref resolves a navigation href, keeping its fragment
func resolveHref(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	file, fragment := href, ""
	if i := strings.IndexByte(href, '#'); i >= 0 {
		file, fragment = href[:i], href[i:]
	}
	if file == "" {
		return ""
	}
	resolved := resolveRelativePath(base, file)
	if resolved == "" {
		return ""
	}
	return resolved + fragment
}

// normalizeTOC numbers navigation entries breadth-first.
//
// An entry whose target is a known chapter takes that chapter's index. Other
// entries take their breadth-first sequence number, clamped below total.
// Missing ids become "depth-sequence" and missing labels "章节 N".
func normalizeTOC(points []navPoint, chapterIndex map[string]int, total int) []types.TOCEntry {
	entries := buildTOCEntries(points)

	type queued struct {
		entry *types.TOCEntry
		depth int
	}
	queue := make([]queued, 0, len(entries))
	for i := range entries {
		queue = append(queue, queued{&entries[i], 0})
	}

	for seq := 0; len(queue) > 0; seq++ {
		q := queue[0]
		queue = queue[1:]
		e := q.entry

		if e.ID == "" {
			e.ID = fmt.Sprintf("%d-%d", q.depth, seq)
		}
		if e.Label == "" {
			e.Label = fmt.Sprintf("章节 %d", seq+1)
		}
		if idx, ok := chapterIndex[hrefWithoutFragment(e.Href)]; ok && e.Href != "" {
			e.Index = idx
		} else {
			e.Index = max(min(seq, total-1), 0)
		}

		for i := range e.Children {
			queue = append(queue, queued{&e.Children[i], q.depth + 1})
		}
	}
	return entries
}

func buildTOCEntries(points []navPoint) []types.TOCEntry {
	if len(points) == 0 {
		return nil
	}
	out := make([]types.TOCEntry, len(points))
	for i, p := range points {
		out[i] = types.TOCEntry{
			ID:       p.id,
			Label:    p.label,
			Href:     p.href,
			Children: buildTOCEntries(p.children),
		}
	}
	return out
}

// tocTargets lists one archive path per entry in breadth-first order.
// Entries without an href map to "".
func tocTargets(points []navPoint) []string {
	var out []string
	queue := append([]navPoint(nil), points...)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		out = append(out, hrefWithoutFragment(p.href))
		queue = append(queue, p.children...)
	}
	return out
}

func hasToken(list, token string) bool {
	for _, t := range strings.Fields(list) {
		if t == token {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirstElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findFirstElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
