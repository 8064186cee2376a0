package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

const containerPath = "META-INF/container.xml"

var errNoPackage = errors.New("no OPF package document found")

type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         struct {
		Items []opfItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Toc      string `xml:"toc,attr"`
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type opfMetadata struct {
	Titles       []dcElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators     []dcElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages    []dcElement `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifiers  []dcElement `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Publishers   []dcElement `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Dates        []dcElement `xml:"http://purl.org/dc/elements/1.1/ date"`
	Descriptions []dcElement `xml:"http://purl.org/dc/elements/1.1/ description"`
	Metas        []opfMeta   `xml:"meta"`
}

type dcElement struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"`
	Property string `xml:"property,attr"`
	Value    string `xml:",chardata"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// epubPackage is an opened EPUB archive. It is read-only after openPackage.
type epubPackage struct {
	zr      *zip.Reader
	opfPath string
	opf     *opfPackage

	manifestByID   map[string]opfItem
	manifestByPath map[string]opfItem // keyed by resolved archive path
	spine          []string           // resolved archive paths in reading order
}

// openPackage reads the container, the OPF and the spine
func openPackage(data []byte) (*epubPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	opfPath, err := findPackagePath(zr)
	if err != nil {
		return nil, err
	}

	f := findZipFile(zr, opfPath)
	if f == nil {
		return nil, fmt.Errorf("%w: %s missing", errNoPackage, opfPath)
	}
	raw, err := readZipFile(f)
	if err != nil {
		return nil, err
	}

	var opf opfPackage
	if err := xml.Unmarshal(stripBOM(preprocessHTMLEntities(raw)), &opf); err != nil {
		return nil, fmt.Errorf("failed to parse OPF: %w", err)
	}

	pkg := &epubPackage{
		zr:             zr,
		opfPath:        f.Name,
		opf:            &opf,
		manifestByID:   make(map[string]opfItem, len(opf.Manifest.Items)),
		manifestByPath: make(map[string]opfItem, len(opf.Manifest.Items)),
	}
	for _, item := range opf.Manifest.Items {
		pkg.manifestByID[item.ID] = item
		if p := pkg.resolve(item.Href); p != "" {
			pkg.manifestByPath[p] = item
		}
	}
	for _, ref := range opf.Spine.ItemRefs {
		item, ok := pkg.manifestByID[ref.IDRef]
		if !ok {
			continue
		}
		if p := pkg.resolve(item.Href); p != "" {
			pkg.spine = append(pkg.spine, p)
		}
	}

	return pkg, nil
}

// findPackagePath reads container.xml, falling back to the first .opf entry
func findPackagePath(zr *zip.Reader) (string, error) {
	if f := findZipFile(zr, containerPath); f != nil {
		data, err := readZipFile(f)
		if err != nil {
			return "", err
		}
		var c containerXML
		if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
			return "", fmt.Errorf("failed to parse container.xml: %w", err)
		}

		fallback := ""
		for _, rf := range c.RootFiles {
			p := strings.TrimSpace(rf.FullPath)
			if p == "" {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(rf.MediaType), "application/oebps-package+xml") {
				return p, nil
			}
			if fallback == "" {
				fallback = p
			}
		}
		if fallback != "" {
			return fallback, nil
		}
	}

	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name, nil
		}
	}
	return "", errNoPackage
}

// resolve maps an OPF-relative href to an archive path
func (pkg *epubPackage) resolve(href string) string {
	return resolveRelativePath(pkg.opfPath, hrefWithoutFragment(href))
}

// readFile reads an archive entry by path
func (pkg *epubPackage) readFile(p string) ([]byte, error) {
	f := findZipFile(pkg.zr, p)
	if f == nil {
		return nil, fmt.Errorf("%s: %w", p, ErrChapterNotFound)
	}
	return readZipFile(f)
}

// epubMetadata is the descriptive part of the OPF
type epubMetadata struct {
	Title       string
	Author      string
	Publisher   string
	Language    string
	Identifier  string
	Description string
	Date        string
}

func (pkg *epubPackage) metadata() epubMetadata {
	md := pkg.opf.Metadata
	m := epubMetadata{
		Title:       firstDC(md.Titles),
		Author:      firstDC(md.Creators),
		Publisher:   firstDC(md.Publishers),
		Language:    firstDC(md.Languages),
		Description: firstDC(md.Descriptions),
		Date:        firstDC(md.Dates),
	}

	for _, id := range md.Identifiers {
		if id.ID != "" && id.ID == pkg.opf.UniqueIdentifier {
			m.Identifier = strings.TrimSpace(id.Value)
			break
		}
	}
	if m.Identifier == "" {
		m.Identifier = firstDC(md.Identifiers)
	}

	// EPUB 3 carries the modification date only in a meta element
	if m.Date == "" {
		for _, meta := range md.Metas {
			if meta.Property == "dcterms:modified" {
				m.Date = strings.TrimSpace(meta.Value)
				break
			}
		}
	}
	return m
}

func firstDC(elems []dcElement) string {
	for _, e := range elems {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}
